package simhost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"auroragrid.io/internal/grid"
	"auroragrid.io/internal/protocol"
)

// HTTPConnector speaks the agent-creation protocol to region hosts.
type HTTPConnector struct {
	client *http.Client
}

func NewHTTPConnector(timeout time.Duration) *HTTPConnector {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPConnector{client: &http.Client{Timeout: timeout}}
}

type createAgentDoc struct {
	Principal       string        `json:"principal"`
	FirstName       string        `json:"first_name"`
	LastName        string        `json:"last_name"`
	SessionID       string        `json:"session_id"`
	SecureSessionID string        `json:"secure_session_id"`
	CircuitCode     uint32        `json:"circuit_code"`
	CapsPath        string        `json:"caps_path"`
	StartPosition   protocol.Vec3 `json:"start_position"`
	Via             string        `json:"via"` // login | landmark
	Appearance      json.RawMessage `json:"appearance,omitempty"`
}

type createAgentResp struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

func (c *HTTPConnector) CreateAgent(ctx context.Context, region *grid.Region, circuit *Circuit) error {
	doc := createAgentDoc{
		Principal:       circuit.Principal,
		FirstName:       circuit.FirstName,
		LastName:        circuit.LastName,
		SessionID:       circuit.SessionID,
		SecureSessionID: circuit.SecureSessionID,
		CircuitCode:     circuit.CircuitCode,
		CapsPath:        circuit.CapsPath,
		StartPosition:   circuit.StartPosition,
		Via:             circuit.Via(),
	}
	if circuit.Appearance != nil {
		b, err := json.Marshal(circuit.Appearance)
		if err != nil {
			return fmt.Errorf("encode appearance: %w", err)
		}
		doc.Appearance = b
	}

	var out createAgentResp
	if err := c.post(ctx, region.BaseURL+"/agent/"+circuit.Principal, doc, &out); err != nil {
		return err
	}
	if !out.Success {
		reason := out.Reason
		if reason == "" {
			reason = "region refused the agent"
		}
		return &Rejection{Reason: reason}
	}
	return nil
}

func (c *HTTPConnector) CloseAgent(ctx context.Context, region *grid.Region, sessionID string) error {
	url := fmt.Sprintf("%s/agent/session/%s/close", region.BaseURL, sessionID)
	return c.post(ctx, url, struct{}{}, nil)
}

func (c *HTTPConnector) post(ctx context.Context, url string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s: status %d", url, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
