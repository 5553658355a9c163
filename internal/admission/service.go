package admission

import (
	"context"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"auroragrid.io/internal/appearance"
	"auroragrid.io/internal/auth"
	"auroragrid.io/internal/protocol"
)

// AuditSink receives one event per finished admission. Implementations must
// not block the response path.
type AuditSink interface {
	Admission(ev protocol.AdmissionEvent)
}

// Service runs the admission pipeline: gate, bootstrap, destination
// resolution, circuit provisioning, finalization. One worker per request,
// no internal parallelism.
type Service struct {
	gate        *auth.Gate
	bootstrap   *Bootstrap
	resolver    *Resolver
	provisioner *Provisioner
	finalizer   *Finalizer
	store       Store
	locks       *LockTable
	sinks       []AuditSink
	log         *log.Logger

	seq atomic.Uint64
}

func NewService(gate *auth.Gate, bootstrap *Bootstrap, resolver *Resolver, provisioner *Provisioner, finalizer *Finalizer, store Store, locks *LockTable, logger *log.Logger, sinks ...AuditSink) *Service {
	return &Service{
		gate:        gate,
		bootstrap:   bootstrap,
		resolver:    resolver,
		provisioner: provisioner,
		finalizer:   finalizer,
		store:       store,
		locks:       locks,
		sinks:       sinks,
		log:         logger,
	}
}

// Login runs one admission to a terminal outcome. Exactly one of the returns
// is non-nil.
func (s *Service) Login(ctx context.Context, req *protocol.LoginRequest) (*protocol.LoginSuccess, *protocol.LoginDenied) {
	// An admission runs to completion even if the requester disconnects;
	// the parent context only carries values from here on.
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	name := strings.TrimSpace(req.FirstName + " " + req.LastName)

	deny := func(principal string, f *protocol.LoginFailure) *protocol.LoginDenied {
		s.emit(principal, name, f.Code, "", "", start)
		return &protocol.LoginDenied{
			Type:            protocol.TypeLoginDeny,
			ProtocolVersion: protocol.Version,
			Code:            f.Code,
			Message:         f.Message,
			TOSText:         f.TOSText,
		}
	}

	account, token, fail := s.gate.Admit(ctx, req)
	if fail != nil {
		return nil, deny(req.Principal, fail)
	}
	skeleton, rec, fail := s.bootstrap.Ensure(ctx, account)
	if fail != nil {
		return nil, deny(account.Principal, fail)
	}

	release, ok := s.locks.TryAcquire(account.Principal)
	if !ok {
		return nil, deny(account.Principal,
			protocol.Failf(protocol.ErrInternal, "another login for this account is already in progress"))
	}
	if err := s.store.SetLoginLock(ctx, account.Principal, true); err != nil {
		s.log.Printf("set login lock %s: %v", account.Principal, err)
	}

	success, fail := s.admit(ctx, req, account, token, skeleton, rec, release)
	if fail != nil {
		return nil, deny(account.Principal, fail)
	}
	s.emit(account.Principal, name, "ok", success.Destination.Name, success.Reason, start)
	return success, nil
}

// admit is the guarded section. The lock is released exactly once on every
// exit path, including panics; any failure also clears the online flag while
// leaving the stored position fields untouched.
func (s *Service) admit(ctx context.Context, req *protocol.LoginRequest, account *auth.Account, token string, skeleton []protocol.FolderRef, rec *appearance.Record, release func()) (success *protocol.LoginSuccess, fail *protocol.LoginFailure) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Printf("admission %s: panic: %v", account.Principal, r)
			success, fail = nil, protocol.Failf(protocol.ErrInternal, "internal error during admission")
		}
		if fail != nil {
			s.rollback(account.Principal)
		} else if err := s.store.SetLoginLock(context.WithoutCancel(ctx), account.Principal, false); err != nil {
			s.log.Printf("clear login lock %s: %v", account.Principal, err)
		}
		release()
	}()

	pres, err := s.store.Presence(ctx, account.Principal)
	if err != nil {
		s.log.Printf("presence %s: %v", account.Principal, err)
		return nil, protocol.Failf(protocol.ErrInternal, "could not load presence state")
	}

	cand, fail := s.resolver.Resolve(ctx, req.StartLocation, pres)
	if fail != nil {
		return nil, fail
	}

	sessionID := uuid.NewString()
	res, fail := s.provisioner.Provision(ctx, account, rec, cand, sessionID, token)
	if fail != nil {
		return nil, fail
	}

	success, err = s.finalizer.Commit(ctx, account, pres, res, skeleton)
	if err != nil {
		s.log.Printf("finalize %s: %v", account.Principal, err)
		return nil, protocol.Failf(protocol.ErrInternal, "could not commit the session")
	}
	return success, nil
}

// rollback releases the durable lock flag and clears online status after a
// failure inside the guarded section. It runs on a fresh context so a dead
// client connection cannot leave the account locked.
func (s *Service) rollback(principal string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.SetOnline(ctx, principal, false, ""); err != nil {
		s.log.Printf("rollback online %s: %v", principal, err)
	}
	if err := s.store.SetLoginLock(ctx, principal, false); err != nil {
		s.log.Printf("rollback login lock %s: %v", principal, err)
	}
}

func (s *Service) emit(principal, name, outcome, region, reason string, start time.Time) {
	if len(s.sinks) == 0 {
		return
	}
	ev := protocol.AdmissionEvent{
		Type:            protocol.TypeAdmission,
		ProtocolVersion: protocol.Version,
		Seq:             s.seq.Add(1),
		Principal:       principal,
		Name:            name,
		Outcome:         outcome,
		Region:          region,
		Reason:          reason,
		DurationMS:      time.Since(start).Milliseconds(),
		At:              time.Now().UTC().Format(time.RFC3339),
	}
	for _, sink := range s.sinks {
		sink.Admission(ev)
	}
}
