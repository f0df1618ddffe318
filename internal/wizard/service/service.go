// Package service owns the wizard sessions of this process: it creates and
// resumes them, persists their state after every mutation and reports
// lifecycle events to audit and metrics.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"idcard/internal/audit"
	"idcard/internal/wizard/engine"
	"idcard/internal/wizard/files"
	"idcard/internal/wizard/metrics"
	"idcard/internal/wizard/models"
	"idcard/internal/wizard/ports"
	"idcard/internal/wizard/store"
	dErrors "idcard/pkg/domain-errors"
	"idcard/pkg/platform/sentinel"
	"idcard/pkg/requestcontext"
)

type entry struct {
	wizard   *engine.Wizard
	lastSeen time.Time
}

// Service is the session registry.
type Service struct {
	kv       store.KV
	auth     ports.AuthService
	deps     engine.Deps
	topology engine.Topology
	policy   files.Policy

	mu       sync.Mutex
	sessions map[string]*entry

	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(kv store.KV, auth ports.AuthService, deps engine.Deps, topology engine.Topology, policy files.Policy, opts ...Option) (*Service, error) {
	if kv == nil {
		return nil, errors.New("session store is required")
	}
	if auth == nil {
		return nil, errors.New("auth service is required")
	}
	s := &Service{
		kv:       kv,
		auth:     auth,
		deps:     deps,
		topology: topology,
		policy:   policy,
		sessions: make(map[string]*entry),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start is a fresh wizard entry: the auth backend session is ended, the
// state stored for previousSessionID (if any) is wiped and a wizard begins at
// verification under a new session id.
func (s *Service) Start(ctx context.Context, role models.Role, previousSessionID string) (engine.View, error) {
	if err := s.auth.EndSession(ctx); err != nil {
		s.logger.WarnContext(ctx, "ending previous auth session failed", "error", err)
	}
	if err := s.wipe(ctx, previousSessionID); err != nil {
		return engine.View{}, err
	}

	sessionID := uuid.NewString()
	w, err := engine.New(sessionID, engine.NewFlow(role, s.topology, s.policy), s.deps)
	if err != nil {
		return engine.View{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start wizard")
	}
	if err := s.persist(ctx, w); err != nil {
		return engine.View{}, err
	}

	s.mu.Lock()
	s.sessions[sessionID] = &entry{wizard: w, lastSeen: requestcontext.Now(ctx)}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.IncrementSessionsStarted()
	}
	s.emit(ctx, w, audit.ActionSessionStarted, nil)
	return w.View(ctx), nil
}

// View returns the state of a session, resuming it from storage if needed.
func (s *Service) View(ctx context.Context, sessionID string) (engine.View, error) {
	w, err := s.lookup(ctx, sessionID)
	if err != nil {
		return engine.View{}, err
	}
	return w.View(ctx), nil
}

// End is an explicit logout: storage is cleared and the auth backend
// session ended.
func (s *Service) End(ctx context.Context, sessionID string) error {
	w, err := s.lookup(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.auth.EndSession(ctx); err != nil {
		s.logger.WarnContext(ctx, "ending auth session failed", "session_id", sessionID, "error", err)
	}
	if err := store.NewSession(s.kv, sessionID).Clear(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear session")
	}
	s.forget(sessionID)
	s.emit(ctx, w, audit.ActionSessionEnded, nil)
	return nil
}

// wipe drops the stored identity, draft and manifest of a prior session and
// unregisters its live wizard. Ids that were never issued are ignored.
func (s *Service) wipe(ctx context.Context, sessionID string) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil
	}
	if err := store.NewSession(s.kv, sessionID).Clear(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset session storage")
	}
	s.mu.Lock()
	e, live := s.sessions[sessionID]
	s.mu.Unlock()
	s.forget(sessionID)
	if live {
		s.emit(ctx, e.wizard, audit.ActionSessionEnded, func(ev *audit.Event) { ev.Detail = "superseded by a fresh start" })
	}
	return nil
}

func (s *Service) forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; ok {
		delete(s.sessions, sessionID)
		if s.metrics != nil {
			s.metrics.DecrementActiveSessions()
		}
	}
}

// lookup returns the live wizard or resumes it from storage.
func (s *Service) lookup(ctx context.Context, sessionID string) (*engine.Wizard, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
	}

	s.mu.Lock()
	if e, ok := s.sessions[sessionID]; ok {
		e.lastSeen = requestcontext.Now(ctx)
		s.mu.Unlock()
		return e.wizard, nil
	}
	s.mu.Unlock()

	w, err := s.resume(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[sessionID]; ok {
		return e.wizard, nil
	}
	s.sessions[sessionID] = &entry{wizard: w, lastSeen: requestcontext.Now(ctx)}
	if s.metrics != nil {
		s.metrics.ActiveSessionGauge.Inc()
	}
	return w, nil
}

func (s *Service) resume(ctx context.Context, sessionID string) (*engine.Wizard, error) {
	sess := store.NewSession(s.kv, sessionID)
	role, err := sess.LoadRole(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "session not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}

	st := engine.State{Role: role}
	if st.Step, err = sess.LoadStep(ctx); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session step")
	}
	id, err := sess.LoadIdentity(ctx)
	switch {
	case err == nil:
		st.Identity = &id
		if st.Draft, err = sess.LoadDraft(ctx, role, id.Identifier()); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load draft")
		}
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	if st.Manifest, err = sess.LoadManifest(ctx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load file manifest")
	}

	w, err := engine.Restore(ctx, sessionID, engine.NewFlow(role, s.topology, s.policy), s.deps, st)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to restore wizard")
	}
	s.logger.InfoContext(ctx, "wizard session resumed", "session_id", sessionID, "step", w.Step())
	return w, nil
}

// persist writes role, step, identity, draft and manifest. The draft is only
// stored once an identity owns it.
func (s *Service) persist(ctx context.Context, w *engine.Wizard) error {
	st := w.State()
	sess := store.NewSession(s.kv, w.ID())

	err := errors.Join(
		sess.SaveRole(ctx, st.Role),
		sess.SaveStep(ctx, st.Step),
		sess.SaveManifest(ctx, st.Manifest),
	)
	if st.Identity != nil {
		err = errors.Join(err,
			sess.SaveIdentity(ctx, *st.Identity),
			sess.SaveDraft(ctx, st.Role, st.Identity.Identifier(), st.Draft),
		)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "persisting wizard state failed", "session_id", w.ID(), "error", err)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save progress")
	}
	return nil
}

// Sweep drops in-memory sessions idle for longer than idle. Their stored
// state stays and is resumed on the next request.
func (s *Service) Sweep(now time.Time, idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > idle {
			delete(s.sessions, id)
			n++
			if s.metrics != nil {
				s.metrics.DecrementActiveSessions()
			}
		}
	}
	return n
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval, idle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := s.Sweep(now, idle); n > 0 {
				s.logger.DebugContext(ctx, "swept idle wizard sessions", "count", n)
			}
		}
	}
}

func (s *Service) emit(ctx context.Context, w *engine.Wizard, action audit.Action, mutate func(*audit.Event)) {
	if s.auditPublisher == nil {
		return
	}
	event := audit.NewEvent(ctx, action, w.ID())
	st := w.State()
	event.Role = string(st.Role)
	event.Step = string(st.Step)
	if st.Identity != nil {
		event.SubjectHash = audit.HashSubject(st.Identity.Identifier())
	}
	if mutate != nil {
		mutate(&event)
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", action, "error", err)
	}
}
