package auth

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"auroragrid.io/internal/protocol"
)

// GateConfig is the static portion of the admission policy.
type GateConfig struct {
	AllowAnonymous bool
	TokenLifetime  time.Duration

	TOSRequired bool
	TOSVersion  string
	TOSText     string

	ViewerAllow []*regexp.Regexp
	ViewerDeny  []*regexp.Regexp
}

// LevelPolicy exposes the runtime-mutable minimum login level.
type LevelPolicy interface {
	MinLoginLevel() int
}

// Gate authenticates a login request and enforces account-level policy.
// It performs no region contact.
type Gate struct {
	identity Identity
	policy   LevelPolicy
	cfg      GateConfig
	log      *log.Logger
}

func NewGate(identity Identity, policy LevelPolicy, cfg GateConfig, logger *log.Logger) *Gate {
	if cfg.TokenLifetime <= 0 {
		cfg.TokenLifetime = 30 * time.Minute
	}
	return &Gate{identity: identity, policy: policy, cfg: cfg, log: logger}
}

// Admit verifies the requester. On success it returns the account and a
// short-lived secure session token; on failure, one typed terminal outcome.
func (g *Gate) Admit(ctx context.Context, req *protocol.LoginRequest) (*Account, string, *protocol.LoginFailure) {
	account, err := g.lookup(ctx, req)
	if err != nil {
		g.log.Printf("identity lookup %s %s: %v", req.FirstName, req.LastName, err)
		return nil, "", protocol.Failf(protocol.ErrAuthProblem, "could not reach the identity service")
	}
	if account == nil {
		return nil, "", protocol.Failf(protocol.ErrAccountProblem, "no account found for %s %s", req.FirstName, req.LastName)
	}

	credential := CanonicalCredential(req.Credential)
	token, err := g.identity.Authenticate(ctx, account.Principal, credential, g.cfg.TokenLifetime)
	if err != nil || token == "" {
		return nil, "", protocol.Failf(protocol.ErrAuthProblem, "could not authenticate %s", account.DisplayName())
	}

	if min := g.policy.MinLoginLevel(); account.AccessLevel < min {
		return nil, "", protocol.Failf(protocol.ErrLoginLevelBlocked, "logins are currently restricted to level %d and above", min)
	}

	switch account.Ban {
	case BanPermanent:
		return nil, "", protocol.Failf(protocol.ErrPermanentBanned, "account %s is banned from this grid", account.DisplayName())
	case BanTemporary:
		// An expired temporary ban is ignored, not cleared.
		if account.BanExpires.After(time.Now()) {
			return nil, "", protocol.Failf(protocol.ErrTemporaryBanned,
				"account %s is suspended until %s", account.DisplayName(), account.BanExpires.UTC().Format(time.RFC1123))
		}
	}

	if reason := g.viewerBlocked(req); reason != "" {
		return nil, "", protocol.Failf(protocol.ErrPasswordIncorrect, "login rejected: %s", reason)
	}

	if fail := g.checkTOS(ctx, account, req); fail != nil {
		return nil, "", fail
	}

	return account, token, nil
}

func (g *Gate) lookup(ctx context.Context, req *protocol.LoginRequest) (*Account, error) {
	if p := strings.TrimSpace(req.Principal); p != "" {
		return g.identity.LookupByID(ctx, p)
	}
	account, err := g.identity.LookupByName(ctx, req.ScopeID, req.FirstName, req.LastName)
	if err != nil {
		return nil, err
	}
	if account == nil && g.cfg.AllowAnonymous && req.Credential != "" {
		account, err = g.identity.Create(ctx, req.ScopeID, req.FirstName, req.LastName, CanonicalCredential(req.Credential))
		if err != nil {
			return nil, fmt.Errorf("auto-provision: %w", err)
		}
		g.log.Printf("auto-provisioned account %s for %s %s", account.Principal, req.FirstName, req.LastName)
	}
	return account, nil
}

// viewerBlocked checks the client descriptor against the allow/deny lists.
// A non-empty result is the human-readable rejection reason.
func (g *Gate) viewerBlocked(req *protocol.LoginRequest) string {
	desc := strings.TrimSpace(req.Channel + " " + req.Version)
	for _, re := range g.cfg.ViewerDeny {
		if re.MatchString(desc) {
			return "client software is not permitted on this grid"
		}
	}
	if len(g.cfg.ViewerAllow) > 0 {
		for _, re := range g.cfg.ViewerAllow {
			if re.MatchString(desc) {
				return ""
			}
		}
		return "client software is not recognized by this grid"
	}
	return ""
}

func (g *Gate) checkTOS(ctx context.Context, account *Account, req *protocol.LoginRequest) *protocol.LoginFailure {
	if !g.cfg.TOSRequired || account.TOSVersion == g.cfg.TOSVersion {
		return nil
	}
	if req.AcceptTOS {
		if err := g.identity.SetAcceptedTOS(ctx, account.Principal, g.cfg.TOSVersion); err != nil {
			g.log.Printf("persist tos acceptance %s: %v", account.Principal, err)
			return protocol.Failf(protocol.ErrAuthProblem, "could not record terms-of-service acceptance")
		}
		account.TOSVersion = g.cfg.TOSVersion
		return nil
	}
	f := protocol.Failf(protocol.ErrTOSRequired, "you must agree to the terms of service before logging in")
	f.TOSText = g.cfg.TOSText
	return f
}
