package httpd

import (
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"

	"auroragrid.io/internal/admission"
	"auroragrid.io/internal/grid"
	"auroragrid.io/internal/protocol"
	"auroragrid.io/internal/simhost"
)

// Server is the grid-facing HTTP surface: the login endpoint plus the admin
// endpoints and the admission feed.
type Server struct {
	svc     *admission.Service
	catalog *grid.Catalog
	policy  *grid.Policy
	caps    *simhost.CapRegistry
	feed    *Feed
	log     *log.Logger
}

func NewServer(svc *admission.Service, catalog *grid.Catalog, policy *grid.Policy, caps *simhost.CapRegistry, feed *Feed, logger *log.Logger) *Server {
	return &Server{svc: svc, catalog: catalog, policy: policy, caps: caps, feed: feed, log: logger}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/login", s.handleLogin)
	mux.HandleFunc("/admin/v1/state", s.handleAdminState)
	mux.HandleFunc("/admin/v1/login-level", s.handleLoginLevel)
	mux.HandleFunc("/admin/v1/welcome", s.handleWelcome)
	if s.feed != nil {
		mux.HandleFunc("/admin/v1/feed", s.feed.Handler())
	}
	return mux
}

// handleLogin always answers with a typed protocol message; a failed
// admission is HTTP 200 carrying LOGIN_DENIED, never a bare transport error.
func (s *Server) handleLogin(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, 1<<20))
	if err != nil {
		writeJSON(rw, deny(protocol.ErrInternal, "unreadable request"))
		return
	}
	base, err := protocol.DecodeBase(body)
	if err != nil || base.Type != protocol.TypeLogin {
		writeJSON(rw, deny(protocol.ErrInternal, "expected a LOGIN message"))
		return
	}
	var req protocol.LoginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(rw, deny(protocol.ErrInternal, "malformed LOGIN message"))
		return
	}
	if req.ProtocolVersion != protocol.Version {
		writeJSON(rw, deny(protocol.ErrInternal, "unsupported protocol version"))
		return
	}
	if req.Address == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			req.Address = host
		}
	}

	success, denied := s.svc.Login(r.Context(), &req)
	if denied != nil {
		writeJSON(rw, denied)
		return
	}
	writeJSON(rw, success)
}

func deny(code, msg string) *protocol.LoginDenied {
	return &protocol.LoginDenied{
		Type:            protocol.TypeLoginDeny,
		ProtocolVersion: protocol.Version,
		Code:            code,
		Message:         msg,
	}
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(v)
}
