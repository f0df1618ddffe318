package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"idcard/internal/wizard/models"
	"idcard/internal/wizard/ports"
	"idcard/internal/wizard/ports/mocks"
	dErrors "idcard/pkg/domain-errors"
	"idcard/pkg/requestcontext"
)

type GateSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	auth   *mocks.MockAuthService
	tokens *TokenService
	gate   *Gate
	now    time.Time
	ctx    context.Context
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.auth = mocks.NewMockAuthService(s.ctrl)
	tokens, err := NewTokenService("test-signing-key", "idcard", "idcard-wizard", 30*time.Minute)
	s.Require().NoError(err)
	s.tokens = tokens
	gate, err := NewGate(s.auth, tokens, "nitt.edu")
	s.Require().NoError(err)
	s.gate = gate
	s.now = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *GateSuite) TestNewGate() {
	s.Run("nil auth service", func() {
		_, err := NewGate(nil, s.tokens, "nitt.edu")
		s.Error(err)
	})
	s.Run("empty domain", func() {
		_, err := NewGate(s.auth, s.tokens, " ")
		s.Error(err)
	})
}

func (s *GateSuite) TestResolve() {
	s.Run("staff email is trimmed and lowercased", func() {
		req, err := s.gate.Resolve("  JDoe@NITT.edu ", models.RoleStaff)
		s.Require().NoError(err)
		s.Equal("jdoe@nitt.edu", req.Email)
		s.Equal("jdoe@nitt.edu", req.Identifier)
	})

	s.Run("foreign domain is rejected", func() {
		_, err := s.gate.Resolve("jdoe@gmail.com", models.RoleFaculty)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidIdentity))
	})

	s.Run("lookalike subdomain is rejected", func() {
		_, err := s.gate.Resolve("jdoe@mail.nitt.edu", models.RoleStaff)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidIdentity))
	})

	s.Run("student roll number derives the webmail address", func() {
		req, err := s.gate.Resolve(" 205124040 ", models.RoleStudent)
		s.Require().NoError(err)
		s.Equal("205124040", req.Identifier)
		s.Equal("205124040@nitt.edu", req.Email)
	})

	s.Run("student email instead of roll number is rejected", func() {
		_, err := s.gate.Resolve("205124040@nitt.edu", models.RoleStudent)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidIdentity))
	})

	s.Run("empty identifier", func() {
		_, err := s.gate.Resolve("", models.RoleStudent)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidIdentity))
	})
}

func (s *GateSuite) TestRequestOTP() {
	s.Run("delivers to the resolved mailbox", func() {
		s.auth.EXPECT().RequestOTP(gomock.Any(), ports.OTPRequest{
			Identifier: "205124040", Email: "205124040@nitt.edu", Role: models.RoleStudent,
		}).Return(nil)

		req, err := s.gate.RequestOTP(s.ctx, "205124040", models.RoleStudent)
		s.Require().NoError(err)
		s.Equal("205124040@nitt.edu", req.Email)
	})

	s.Run("domain failure never reaches the backend", func() {
		_, err := s.gate.RequestOTP(s.ctx, "x@example.com", models.RoleStaff)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidIdentity))
	})

	s.Run("backend failure becomes delivery failed", func() {
		s.auth.EXPECT().RequestOTP(gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))

		_, err := s.gate.RequestOTP(s.ctx, "jdoe@nitt.edu", models.RoleStaff)
		s.True(dErrors.HasCode(err, dErrors.CodeDeliveryFailed))
		de, _ := dErrors.As(err)
		s.Equal("Failed to send OTP", de.Message)
	})
}

func (s *GateSuite) TestConfirmOTP() {
	req := ports.OTPRequest{Identifier: "jdoe@nitt.edu", Email: "jdoe@nitt.edu", Role: models.RoleStaff}

	s.Run("success mints a token bound to the session", func() {
		s.auth.EXPECT().ConfirmOTP(gomock.Any(), "jdoe@nitt.edu", "123456", models.RoleStaff).
			Return(&ports.OTPConfirmation{Email: "jdoe@nitt.edu"}, nil)

		id, err := s.gate.ConfirmOTP(s.ctx, "sess-1", req, " 123456 ")
		s.Require().NoError(err)
		s.True(id.Verified)
		s.Equal("jdoe@nitt.edu", id.Email)
		s.Empty(id.RollNo)
		s.Equal(s.now.Add(30*time.Minute), id.Expires)
		s.NoError(s.gate.Check(s.ctx, "sess-1", &id))
	})

	s.Run("student identity keeps the roll number", func() {
		sreq := ports.OTPRequest{Identifier: "205124040", Email: "205124040@nitt.edu", Role: models.RoleStudent}
		s.auth.EXPECT().ConfirmOTP(gomock.Any(), "205124040@nitt.edu", "654321", models.RoleStudent).
			Return(&ports.OTPConfirmation{Email: "205124040@nitt.edu"}, nil)

		id, err := s.gate.ConfirmOTP(s.ctx, "sess-2", sreq, "654321")
		s.Require().NoError(err)
		s.Equal("205124040", id.RollNo)
		s.Equal("205124040", id.Identifier())
	})

	s.Run("wrong code", func() {
		s.auth.EXPECT().ConfirmOTP(gomock.Any(), gomock.Any(), "000000", gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeOTPInvalid, "Invalid or expired OTP"))

		_, err := s.gate.ConfirmOTP(s.ctx, "sess-1", req, "000000")
		s.True(dErrors.HasCode(err, dErrors.CodeOTPInvalid))
		de, _ := dErrors.As(err)
		s.Equal("Invalid or expired OTP", de.Message)
	})

	s.Run("empty code", func() {
		_, err := s.gate.ConfirmOTP(s.ctx, "sess-1", req, "  ")
		s.True(dErrors.HasCode(err, dErrors.CodeOTPInvalid))
	})
}

func (s *GateSuite) TestCheck() {
	id := models.Identity{Role: models.RoleFaculty, Email: "prof@nitt.edu", Verified: true}
	token, _, err := s.tokens.Issue("sess-9", id, s.now)
	s.Require().NoError(err)
	id.Token = token

	s.Run("unverified identity", func() {
		err := s.gate.Check(s.ctx, "sess-9", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("token from another session", func() {
		err := s.gate.Check(s.ctx, "sess-other", &id)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("tampered identity", func() {
		forged := id
		forged.Email = "someone@nitt.edu"
		err := s.gate.Check(s.ctx, "sess-9", &forged)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("expired token", func() {
		later := requestcontext.WithTime(context.Background(), s.now.Add(time.Hour))
		err := s.gate.Check(later, "sess-9", &id)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *GateSuite) TestTokenService() {
	s.Run("rejects foreign signing key", func() {
		other, err := NewTokenService("other-key", "idcard", "idcard-wizard", time.Minute)
		s.Require().NoError(err)
		token, _, err := other.Issue("sess", models.Identity{Role: models.RoleStaff, Email: "a@nitt.edu"}, s.now)
		s.Require().NoError(err)

		_, err = s.tokens.Validate(token, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects garbage", func() {
		_, err := s.tokens.Validate("not-a-token", s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("constructor validation", func() {
		_, err := NewTokenService("", "i", "a", time.Minute)
		s.Error(err)
		_, err = NewTokenService("k", "i", "a", 0)
		s.Error(err)
	})
}
