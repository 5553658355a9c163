package simhost

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"auroragrid.io/internal/grid"
)

// HTTPGateway resolves regions on federated grids by name.
type HTTPGateway struct {
	client *http.Client
}

func NewHTTPGateway(timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{client: &http.Client{Timeout: timeout}}
}

type linkRegionDoc struct {
	RegionID string `json:"region_id"`
	Name     string `json:"name"`
	GridX    int    `json:"grid_x"`
	GridY    int    `json:"grid_y"`
	BaseURL  string `json:"base_url"`
}

// LinkRegion asks a remote grid host for one of its regions. The returned
// descriptor is not part of the local catalog; its safety flag lives only as
// long as the admission that linked it.
func (g *HTTPGateway) LinkRegion(ctx context.Context, gridHost, regionName string) (*grid.Region, error) {
	host := strings.TrimSpace(gridHost)
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u := host + "/v1/regions/lookup?name=" + url.QueryEscape(regionName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("region %q not known to %s", regionName, gridHost)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("grid %s: status %d", gridHost, resp.StatusCode)
	}
	var doc linkRegionDoc
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("grid %s: decode: %w", gridHost, err)
	}
	if doc.RegionID == "" || doc.BaseURL == "" {
		return nil, fmt.Errorf("grid %s: incomplete region descriptor", gridHost)
	}
	return &grid.Region{
		ID:      doc.RegionID,
		Name:    doc.Name,
		GridX:   doc.GridX,
		GridY:   doc.GridY,
		BaseURL: strings.TrimRight(doc.BaseURL, "/"),
	}, nil
}
