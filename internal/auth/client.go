package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPIdentity talks to the identity service over JSON HTTP.
type HTTPIdentity struct {
	baseURL string
	client  *http.Client
}

func NewHTTPIdentity(baseURL string, timeout time.Duration) *HTTPIdentity {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPIdentity{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type accountDoc struct {
	Principal   string `json:"principal"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	ScopeID     string `json:"scope_id,omitempty"`
	AccessLevel int    `json:"access_level"`
	Ban         string `json:"ban,omitempty"` // "" | "temporary" | "permanent"
	BanExpires  string `json:"ban_expires,omitempty"`
	TOSVersion  string `json:"tos_version,omitempty"`
	Created     string `json:"created,omitempty"`
}

func (d accountDoc) account() *Account {
	a := &Account{
		Principal:   d.Principal,
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		ScopeID:     d.ScopeID,
		AccessLevel: d.AccessLevel,
		TOSVersion:  d.TOSVersion,
	}
	switch d.Ban {
	case "temporary":
		a.Ban = BanTemporary
	case "permanent":
		a.Ban = BanPermanent
	}
	if t, err := time.Parse(time.RFC3339, d.BanExpires); err == nil {
		a.BanExpires = t
	}
	if t, err := time.Parse(time.RFC3339, d.Created); err == nil {
		a.Created = t
	}
	return a
}

func (c *HTTPIdentity) LookupByName(ctx context.Context, scopeID, firstName, lastName string) (*Account, error) {
	var out accountDoc
	found, err := c.post(ctx, "/v1/accounts/lookup", map[string]string{
		"scope_id":   scopeID,
		"first_name": firstName,
		"last_name":  lastName,
	}, &out)
	if err != nil || !found {
		return nil, err
	}
	return out.account(), nil
}

func (c *HTTPIdentity) LookupByID(ctx context.Context, principal string) (*Account, error) {
	var out accountDoc
	found, err := c.post(ctx, "/v1/accounts/lookup", map[string]string{"principal": principal}, &out)
	if err != nil || !found {
		return nil, err
	}
	return out.account(), nil
}

func (c *HTTPIdentity) Authenticate(ctx context.Context, principal, credential string, lifetime time.Duration) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	found, err := c.post(ctx, "/v1/accounts/authenticate", map[string]string{
		"principal":        principal,
		"credential":       credential,
		"lifetime_seconds": fmt.Sprintf("%d", int(lifetime.Seconds())),
	}, &out)
	if err != nil {
		return "", err
	}
	if !found || out.Token == "" {
		return "", fmt.Errorf("authentication rejected for %s", principal)
	}
	return out.Token, nil
}

func (c *HTTPIdentity) Create(ctx context.Context, scopeID, firstName, lastName, credential string) (*Account, error) {
	var out accountDoc
	found, err := c.post(ctx, "/v1/accounts/create", map[string]string{
		"scope_id":   scopeID,
		"first_name": firstName,
		"last_name":  lastName,
		"credential": credential,
	}, &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("identity service refused account creation")
	}
	return out.account(), nil
}

func (c *HTTPIdentity) SetAcceptedTOS(ctx context.Context, principal, version string) error {
	_, err := c.post(ctx, "/v1/accounts/tos", map[string]string{
		"principal":   principal,
		"tos_version": version,
	}, nil)
	return err
}

// post sends a JSON request. A 404 means "not found" rather than failure.
func (c *HTTPIdentity) post(ctx context.Context, path string, in any, out any) (bool, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode/100 != 2 {
		return false, fmt.Errorf("identity %s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return true, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("identity %s: decode: %w", path, err)
	}
	return true, nil
}
