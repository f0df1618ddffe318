package service

import (
	"context"
	"errors"
	"time"

	"idcard/internal/audit"
	"idcard/internal/wizard/engine"
	"idcard/internal/wizard/files"
	"idcard/internal/wizard/models"
	"idcard/internal/wizard/store"
	dErrors "idcard/pkg/domain-errors"
)

// mutate runs op against a session and persists the result when op succeeds.
// The returned view always reflects the state after op, failed or not.
func (s *Service) mutate(ctx context.Context, sessionID string, op func(*engine.Wizard) error) (*engine.Wizard, engine.View, error) {
	w, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, engine.View{}, err
	}
	opErr := op(w)
	if opErr == nil {
		if err := s.persist(ctx, w); err != nil {
			return w, w.View(ctx), err
		}
	}
	return w, w.View(ctx), opErr
}

func (s *Service) SetRole(ctx context.Context, sessionID string, role models.Role) (engine.View, error) {
	_, v, err := s.mutate(ctx, sessionID, func(w *engine.Wizard) error {
		return w.SetRole(ctx, role)
	})
	return v, err
}

func (s *Service) RequestOTP(ctx context.Context, sessionID, identifier string) (engine.View, error) {
	w, v, err := s.mutate(ctx, sessionID, func(w *engine.Wizard) error {
		return w.RequestOTP(ctx, identifier)
	})
	if w == nil {
		return v, err
	}
	outcome, action := "sent", audit.ActionOTPRequested
	if err != nil {
		outcome, action = string(dErrors.CodeOf(err)), audit.ActionOTPRequestFailed
	}
	if s.metrics != nil {
		s.metrics.RecordOTP("request", outcome)
	}
	s.emit(ctx, w, action, func(e *audit.Event) {
		e.SubjectHash = audit.HashSubject(identifier)
		if err != nil {
			e.Code = string(dErrors.CodeOf(err))
		}
	})
	return v, err
}

func (s *Service) ConfirmOTP(ctx context.Context, sessionID, code string) (engine.View, error) {
	w, v, err := s.mutate(ctx, sessionID, func(w *engine.Wizard) error {
		_, err := w.ConfirmOTP(ctx, code)
		return err
	})
	if w == nil {
		return v, err
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordOTP("confirm", string(dErrors.CodeOf(err)))
		}
		s.emit(ctx, w, audit.ActionOTPConfirmFailed, func(e *audit.Event) { e.Code = string(dErrors.CodeOf(err)) })
		return v, err
	}
	if s.metrics != nil {
		s.metrics.RecordOTP("confirm", "verified")
		s.metrics.RecordTransition("forward", string(v.Step))
	}
	s.emit(ctx, w, audit.ActionIdentityVerified, nil)
	return v, nil
}

func (s *Service) ChangeIdentifier(ctx context.Context, sessionID string) (engine.View, error) {
	_, v, err := s.mutate(ctx, sessionID, func(w *engine.Wizard) error {
		return w.ChangeIdentifier(ctx)
	})
	return v, err
}

func (s *Service) ApplyFields(ctx context.Context, sessionID string, changes []engine.FieldChange) (engine.View, error) {
	_, v, err := s.mutate(ctx, sessionID, func(w *engine.Wizard) error {
		return w.ApplyFields(ctx, changes)
	})
	return v, err
}

func (s *Service) Attach(ctx context.Context, sessionID string, slot models.Slot, c files.Candidate) (engine.View, error) {
	w, v, err := s.mutate(ctx, sessionID, func(w *engine.Wizard) error {
		_, err := w.Attach(ctx, slot, c)
		return err
	})
	var rejection *files.RejectionError
	if w != nil && errors.As(err, &rejection) {
		if s.metrics != nil {
			s.metrics.RecordFileRejection(string(slot), string(rejection.Reason))
		}
		s.emit(ctx, w, audit.ActionFileRejected, func(e *audit.Event) {
			e.Code = string(rejection.Reason)
			e.Detail = string(slot)
		})
	}
	return v, err
}

// Remove clears a slot; removing an empty slot succeeds without change.
func (s *Service) Remove(ctx context.Context, sessionID string, slot models.Slot) (engine.View, error) {
	_, v, err := s.mutate(ctx, sessionID, func(w *engine.Wizard) error {
		_, err := w.Remove(ctx, slot)
		return err
	})
	return v, err
}

func (s *Service) Next(ctx context.Context, sessionID string) (engine.View, error) {
	w, v, err := s.mutate(ctx, sessionID, func(w *engine.Wizard) error {
		_, err := w.Next(ctx)
		return err
	})
	if w == nil {
		return v, err
	}
	var guard *engine.GuardError
	switch {
	case errors.As(err, &guard):
		if s.metrics != nil {
			s.metrics.RecordGuardFailure(string(v.Step), guard.Problem.Code)
		}
		s.emit(ctx, w, audit.ActionGuardFailed, func(e *audit.Event) {
			e.Code = guard.Problem.Code
			e.Detail = guard.Problem.Field
		})
	case err == nil:
		if s.metrics != nil {
			s.metrics.RecordTransition("forward", string(v.Step))
		}
		s.emit(ctx, w, audit.ActionStepAdvanced, nil)
	}
	return v, err
}

func (s *Service) Back(ctx context.Context, sessionID string) (engine.View, error) {
	w, v, err := s.mutate(ctx, sessionID, func(w *engine.Wizard) error {
		_, err := w.Back(ctx)
		return err
	})
	if err == nil && w != nil {
		if s.metrics != nil {
			s.metrics.RecordTransition("back", string(v.Step))
		}
		s.emit(ctx, w, audit.ActionStepBack, nil)
	}
	return v, err
}

// Submit sends the application. Success clears the session storage; the
// in-memory wizard keeps the receipt for display.
func (s *Service) Submit(ctx context.Context, sessionID string) (engine.View, error) {
	w, err := s.lookup(ctx, sessionID)
	if err != nil {
		return engine.View{}, err
	}
	role := string(w.Role())
	subject := ""
	if st := w.State(); st.Identity != nil {
		subject = audit.HashSubject(st.Identity.Identifier())
	}

	start := time.Now()
	receipt, err := w.Submit(ctx)
	if err != nil {
		if s.metrics != nil && !dErrors.HasCode(err, dErrors.CodePending) {
			s.metrics.ObserveSubmit(role, "failed", start)
		}
		s.logger.WarnContext(ctx, "submission failed", "session_id", sessionID, "error", err)
		s.emit(ctx, w, audit.ActionSubmissionFailed, func(e *audit.Event) { e.Code = string(dErrors.CodeOf(err)) })
		return w.View(ctx), err
	}

	if s.metrics != nil {
		s.metrics.ObserveSubmit(role, "submitted", start)
	}
	if err := store.NewSession(s.kv, sessionID).Clear(ctx); err != nil {
		s.logger.ErrorContext(ctx, "clearing submitted session failed", "session_id", sessionID, "error", err)
	}
	s.logger.InfoContext(ctx, "application submitted",
		"session_id", sessionID,
		"application_id", receipt.ApplicationID,
		"provisional", receipt.Provisional,
	)
	s.emit(ctx, w, audit.ActionSubmitted, func(e *audit.Event) {
		e.SubjectHash = subject
		e.Detail = receipt.ApplicationID
	})
	return w.View(ctx), nil
}
