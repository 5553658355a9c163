package auth

import (
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"testing"
	"time"

	"auroragrid.io/internal/protocol"
)

type fakeIdentity struct {
	accounts map[string]*Account // keyed "First Last"
	authErr  error
	created  []*Account
	tosSet   map[string]string
}

func newFakeIdentity(accounts ...*Account) *fakeIdentity {
	f := &fakeIdentity{accounts: map[string]*Account{}, tosSet: map[string]string{}}
	for _, a := range accounts {
		f.accounts[a.DisplayName()] = a
	}
	return f
}

func (f *fakeIdentity) LookupByName(_ context.Context, _, first, last string) (*Account, error) {
	return f.accounts[first+" "+last], nil
}

func (f *fakeIdentity) LookupByID(_ context.Context, principal string) (*Account, error) {
	for _, a := range f.accounts {
		if a.Principal == principal {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeIdentity) Authenticate(_ context.Context, principal, credential string, _ time.Duration) (string, error) {
	if f.authErr != nil {
		return "", f.authErr
	}
	return "token-" + principal, nil
}

func (f *fakeIdentity) Create(_ context.Context, scope, first, last, credential string) (*Account, error) {
	a := &Account{Principal: "new-" + first, FirstName: first, LastName: last, ScopeID: scope}
	f.accounts[a.DisplayName()] = a
	f.created = append(f.created, a)
	return a, nil
}

func (f *fakeIdentity) SetAcceptedTOS(_ context.Context, principal, version string) error {
	f.tosSet[principal] = version
	return nil
}

type fixedLevel int

func (l fixedLevel) MinLoginLevel() int { return int(l) }

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func loginReq(first, last string) *protocol.LoginRequest {
	return &protocol.LoginRequest{
		Type:            protocol.TypeLogin,
		ProtocolVersion: protocol.Version,
		FirstName:       first,
		LastName:        last,
		Credential:      "secret",
	}
}

func TestGate_AccountNotFound(t *testing.T) {
	g := NewGate(newFakeIdentity(), fixedLevel(0), GateConfig{}, discard())
	_, _, fail := g.Admit(context.Background(), loginReq("No", "Body"))
	if fail == nil || fail.Code != protocol.ErrAccountProblem {
		t.Fatalf("fail = %v", fail)
	}
}

func TestGate_AnonymousProvisioning(t *testing.T) {
	id := newFakeIdentity()
	g := NewGate(id, fixedLevel(0), GateConfig{AllowAnonymous: true}, discard())
	account, token, fail := g.Admit(context.Background(), loginReq("Fresh", "Face"))
	if fail != nil {
		t.Fatalf("fail = %v", fail)
	}
	if account == nil || token == "" {
		t.Fatalf("account = %v token = %q", account, token)
	}
	if len(id.created) != 1 {
		t.Fatalf("created = %d", len(id.created))
	}
}

func TestGate_AuthenticationProblem(t *testing.T) {
	id := newFakeIdentity(&Account{Principal: "p1", FirstName: "Test", LastName: "Resident"})
	id.authErr = fmt.Errorf("bad credential")
	g := NewGate(id, fixedLevel(0), GateConfig{}, discard())
	_, _, fail := g.Admit(context.Background(), loginReq("Test", "Resident"))
	if fail == nil || fail.Code != protocol.ErrAuthProblem {
		t.Fatalf("fail = %v", fail)
	}
}

func TestGate_LoginLevelBlocked(t *testing.T) {
	id := newFakeIdentity(&Account{Principal: "p1", FirstName: "Test", LastName: "Resident", AccessLevel: 0})
	g := NewGate(id, fixedLevel(50), GateConfig{}, discard())
	_, _, fail := g.Admit(context.Background(), loginReq("Test", "Resident"))
	if fail == nil || fail.Code != protocol.ErrLoginLevelBlocked {
		t.Fatalf("fail = %v", fail)
	}
}

func TestGate_Bans(t *testing.T) {
	perm := &Account{Principal: "p1", FirstName: "Bad", LastName: "Actor", Ban: BanPermanent}
	active := &Account{Principal: "p2", FirstName: "Cool", LastName: "Down", Ban: BanTemporary, BanExpires: time.Now().Add(time.Hour)}
	expired := &Account{Principal: "p3", FirstName: "Done", LastName: "Time", Ban: BanTemporary, BanExpires: time.Now().Add(-time.Hour)}
	g := NewGate(newFakeIdentity(perm, active, expired), fixedLevel(0), GateConfig{}, discard())

	_, _, fail := g.Admit(context.Background(), loginReq("Bad", "Actor"))
	if fail == nil || fail.Code != protocol.ErrPermanentBanned {
		t.Fatalf("permanent: %v", fail)
	}

	_, _, fail = g.Admit(context.Background(), loginReq("Cool", "Down"))
	if fail == nil || fail.Code != protocol.ErrTemporaryBanned {
		t.Fatalf("temporary: %v", fail)
	}

	// An expired temporary ban is ignored, not cleared.
	account, _, fail := g.Admit(context.Background(), loginReq("Done", "Time"))
	if fail != nil {
		t.Fatalf("expired ban blocked login: %v", fail)
	}
	if account.Ban != BanTemporary {
		t.Fatalf("ban flag was cleared")
	}
}

func TestGate_ViewerDeny(t *testing.T) {
	id := newFakeIdentity(&Account{Principal: "p1", FirstName: "Test", LastName: "Resident"})
	g := NewGate(id, fixedLevel(0), GateConfig{
		ViewerDeny: []*regexp.Regexp{regexp.MustCompile(`(?i)^copybot`)},
	}, discard())

	req := loginReq("Test", "Resident")
	req.Channel = "CopyBot"
	req.Version = "1.0"
	_, _, fail := g.Admit(context.Background(), req)
	if fail == nil || fail.Code != protocol.ErrPasswordIncorrect {
		t.Fatalf("fail = %v", fail)
	}
}

func TestGate_TOS(t *testing.T) {
	id := newFakeIdentity(&Account{Principal: "p1", FirstName: "Test", LastName: "Resident"})
	g := NewGate(id, fixedLevel(0), GateConfig{
		TOSRequired: true,
		TOSVersion:  "2",
		TOSText:     "the terms",
	}, discard())

	_, _, fail := g.Admit(context.Background(), loginReq("Test", "Resident"))
	if fail == nil || fail.Code != protocol.ErrTOSRequired {
		t.Fatalf("fail = %v", fail)
	}
	if fail.TOSText != "the terms" {
		t.Fatalf("tos text = %q", fail.TOSText)
	}

	req := loginReq("Test", "Resident")
	req.AcceptTOS = true
	account, _, fail := g.Admit(context.Background(), req)
	if fail != nil {
		t.Fatalf("accept failed: %v", fail)
	}
	if id.tosSet[account.Principal] != "2" {
		t.Fatalf("acceptance not persisted: %v", id.tosSet)
	}

	// Already accepted: no prompt on the next login.
	_, _, fail = g.Admit(context.Background(), loginReq("Test", "Resident"))
	if fail != nil {
		t.Fatalf("post-acceptance login failed: %v", fail)
	}
}
