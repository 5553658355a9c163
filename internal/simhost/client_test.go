package simhost

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auroragrid.io/internal/grid"
	"auroragrid.io/internal/protocol"
)

func testCircuit() *Circuit {
	return &Circuit{
		Principal:       "p1",
		FirstName:       "Test",
		LastName:        "Resident",
		SessionID:       "sess-1",
		SecureSessionID: "secure-1",
		CircuitCode:     42,
		CapsPath:        "/CAPS/abc0000/",
		StartPosition:   protocol.Vec3{X: 128, Y: 128, Z: 0},
		Flags:           FlagViaLogin,
	}
}

func TestCreateAgent(t *testing.T) {
	var got createAgentDoc
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agent/p1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		json.NewEncoder(rw).Encode(createAgentResp{Success: true})
	}))
	defer srv.Close()

	c := NewHTTPConnector(time.Second)
	region := &grid.Region{ID: "r1", BaseURL: srv.URL}
	if err := c.CreateAgent(context.Background(), region, testCircuit()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got.SessionID != "sess-1" || got.Via != "login" || got.CircuitCode != 42 {
		t.Fatalf("doc = %+v", got)
	}
}

func TestCreateAgent_Rejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		json.NewEncoder(rw).Encode(createAgentResp{Success: false, Reason: "region full"})
	}))
	defer srv.Close()

	c := NewHTTPConnector(time.Second)
	err := c.CreateAgent(context.Background(), &grid.Region{ID: "r1", BaseURL: srv.URL}, testCircuit())
	var rej *Rejection
	if !errors.As(err, &rej) || rej.Reason != "region full" {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateAgent_TransportErrorIsNotRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewHTTPConnector(time.Second)
	err := c.CreateAgent(context.Background(), &grid.Region{ID: "r1", BaseURL: srv.URL}, testCircuit())
	if err == nil {
		t.Fatalf("expected error")
	}
	var rej *Rejection
	if errors.As(err, &rej) {
		t.Fatalf("transport failure surfaced as Rejection")
	}
}

func TestLinkRegion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/regions/lookup" {
			t.Errorf("path = %s", r.URL.Path)
		}
		switch r.URL.Query().Get("name") {
		case "Elsewhere":
			json.NewEncoder(rw).Encode(linkRegionDoc{
				RegionID: "remote-1", Name: "Elsewhere", GridX: 2000, GridY: 2000, BaseURL: "http://remote:9000/",
			})
		default:
			rw.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	g := NewHTTPGateway(time.Second)
	reg, err := g.LinkRegion(context.Background(), srv.URL, "Elsewhere")
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if reg.ID != "remote-1" || reg.BaseURL != "http://remote:9000" {
		t.Fatalf("region = %+v", reg)
	}

	if _, err := g.LinkRegion(context.Background(), srv.URL, "Atlantis"); err == nil {
		t.Fatalf("expected miss")
	}
}
