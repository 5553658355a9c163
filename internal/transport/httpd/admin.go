package httpd

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"auroragrid.io/internal/grid"
)

type regionState struct {
	RegionID string `json:"region_id"`
	Name     string `json:"name"`
	GridX    int    `json:"grid_x"`
	GridY    int    `json:"grid_y"`
	Safety   string `json:"safety"`
	Default  bool   `json:"default,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

type adminState struct {
	MinLoginLevel  int           `json:"min_login_level"`
	WelcomeMessage string        `json:"welcome_message"`
	LiveCapGrants  int           `json:"live_cap_grants"`
	Regions        []regionState `json:"regions"`
}

func (s *Server) handleAdminState(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}

	st := adminState{
		MinLoginLevel:  s.policy.MinLoginLevel(),
		WelcomeMessage: s.policy.WelcomeMessage(),
		LiveCapGrants:  s.caps.Count(),
	}
	for _, reg := range s.catalog.All() {
		st.Regions = append(st.Regions, regionState{
			RegionID: reg.ID,
			Name:     reg.Name,
			GridX:    reg.GridX,
			GridY:    reg.GridY,
			Safety:   safetyName(reg.Safety()),
			Default:  reg.Default,
			Fallback: reg.Fallback,
		})
	}
	writeJSON(rw, st)
}

func safetyName(s int32) string {
	switch s {
	case grid.SafetySafe:
		return "safe"
	case grid.SafetyUnsafe:
		return "unsafe"
	default:
		return "untested"
	}
}

func (s *Server) handleLoginLevel(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	var body struct {
		Level int  `json:"level"`
		Reset bool `json:"reset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(rw, "bad request", http.StatusBadRequest)
		return
	}
	if body.Reset {
		s.policy.ResetMinLoginLevel()
	} else {
		if body.Level < 0 {
			http.Error(rw, "level must be >= 0", http.StatusBadRequest)
			return
		}
		s.policy.SetMinLoginLevel(body.Level)
	}
	s.log.Printf("admin: min login level set to %d", s.policy.MinLoginLevel())
	writeJSON(rw, map[string]int{"min_login_level": s.policy.MinLoginLevel()})
}

func (s *Server) handleWelcome(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(rw, "bad request", http.StatusBadRequest)
		return
	}
	s.policy.SetWelcomeMessage(strings.TrimSpace(body.Message))
	writeJSON(rw, map[string]string{"welcome_message": s.policy.WelcomeMessage()})
}

func isLoopbackRemote(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
