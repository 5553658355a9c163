package appearance

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPAssetStore checks asset existence against the grid asset service.
type HTTPAssetStore struct {
	baseURL string
	client  *http.Client
}

func NewHTTPAssetStore(baseURL string, timeout time.Duration) *HTTPAssetStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPAssetStore{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPAssetStore) Exists(ctx context.Context, assetID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.baseURL+"/assets/"+assetID, nil)
	if err != nil {
		return false, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode/100 == 2:
		return true, nil
	default:
		return false, fmt.Errorf("asset %s: status %d", assetID, resp.StatusCode)
	}
}
