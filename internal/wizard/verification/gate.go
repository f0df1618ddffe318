// Package verification implements the two-phase OTP gate that proves an
// applicant's institutional identity.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"idcard/internal/wizard/models"
	"idcard/internal/wizard/ports"
	dErrors "idcard/pkg/domain-errors"
	"idcard/pkg/email"
	"idcard/pkg/requestcontext"
)

// Gate applies the institutional identifier rules and talks to the OTP
// backend. It holds no per-session state; the wizard engine does.
type Gate struct {
	auth   ports.AuthService
	tokens *TokenService
	domain string
	logger *slog.Logger
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

func NewGate(auth ports.AuthService, tokens *TokenService, domain string, opts ...Option) (*Gate, error) {
	if auth == nil {
		return nil, errors.New("auth service is required")
	}
	if tokens == nil {
		return nil, errors.New("token service is required")
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, errors.New("institutional domain is required")
	}
	g := &Gate{auth: auth, tokens: tokens, domain: domain, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Domain is the institutional mail domain, e.g. "nitt.edu".
func (g *Gate) Domain() string { return g.domain }

// Resolve applies the identifier rules without contacting the backend.
// Students type a roll number and receive mail at <roll>@<domain>;
// everyone else types an institutional email.
func (g *Gate) Resolve(identifier string, role models.Role) (ports.OTPRequest, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		if role == models.RoleStudent {
			return ports.OTPRequest{}, dErrors.New(dErrors.CodeInvalidIdentity, "Please enter your roll number")
		}
		return ports.OTPRequest{}, dErrors.New(dErrors.CodeInvalidIdentity, "Please enter your email address")
	}

	if role == models.RoleStudent {
		if strings.ContainsAny(identifier, "@ \t") {
			return ports.OTPRequest{}, dErrors.New(dErrors.CodeInvalidIdentity, "Please enter your roll number, not an email address")
		}
		rollNo := strings.ToLower(identifier)
		return ports.OTPRequest{
			Identifier: rollNo,
			Email:      email.FromRollNo(rollNo, g.domain),
			Role:       role,
		}, nil
	}

	if !email.HasDomain(identifier, g.domain) {
		return ports.OTPRequest{}, dErrors.New(dErrors.CodeInvalidIdentity,
			fmt.Sprintf("Only @%s institute email is allowed", g.domain))
	}
	addr := email.Normalize(identifier)
	return ports.OTPRequest{Identifier: addr, Email: addr, Role: role}, nil
}

// RequestOTP resolves identifier and asks the backend to deliver a code.
func (g *Gate) RequestOTP(ctx context.Context, identifier string, role models.Role) (ports.OTPRequest, error) {
	req, err := g.Resolve(identifier, role)
	if err != nil {
		return ports.OTPRequest{}, err
	}
	if err := g.auth.RequestOTP(ctx, req); err != nil {
		g.logger.WarnContext(ctx, "otp delivery failed", "role", role, "error", err)
		return ports.OTPRequest{}, dErrors.Wrap(err, dErrors.CodeDeliveryFailed, backendMessage(err, "Failed to send OTP"))
	}
	return req, nil
}

// ConfirmOTP checks code for a previously resolved request and returns the
// verified identity with a signed token bound to sessionID.
func (g *Gate) ConfirmOTP(ctx context.Context, sessionID string, req ports.OTPRequest, code string) (models.Identity, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.Identity{}, dErrors.New(dErrors.CodeOTPInvalid, "Please enter the OTP")
	}

	conf, err := g.auth.ConfirmOTP(ctx, req.Email, code, req.Role)
	if err != nil {
		return models.Identity{}, dErrors.Wrap(err, dErrors.CodeOTPInvalid, backendMessage(err, "Invalid OTP"))
	}

	id := models.Identity{
		Role:     req.Role,
		Email:    req.Email,
		Verified: true,
	}
	if conf != nil && conf.Email != "" {
		id.Email = email.Normalize(conf.Email)
	}
	if req.Role == models.RoleStudent {
		id.RollNo = req.Identifier
	}

	token, expires, err := g.tokens.Issue(sessionID, id, requestcontext.Now(ctx))
	if err != nil {
		return models.Identity{}, err
	}
	id.Token = token
	id.Expires = expires
	return id, nil
}

// Check re-validates a stored identity against its token. A token minted for
// another session, role or mailbox is rejected.
func (g *Gate) Check(ctx context.Context, sessionID string, id *models.Identity) error {
	if id == nil || !id.Verified || id.Token == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "Please verify your identity first")
	}
	claims, err := g.tokens.Validate(id.Token, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	if claims.SessionID != sessionID ||
		claims.Role != string(id.Role) ||
		claims.Email != id.Email ||
		claims.RollNo != id.RollNo {
		return dErrors.New(dErrors.CodeUnauthorized, "verification does not match this session")
	}
	return nil
}

// backendMessage prefers the collaborator's own message, the way the
// applicant would see it from the backend.
func backendMessage(err error, fallback string) string {
	if de, ok := dErrors.As(err); ok && de.Message != "" {
		return de.Message
	}
	return fallback
}
