package authapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idcard/internal/wizard/models"
	"idcard/internal/wizard/ports"
	dErrors "idcard/pkg/domain-errors"
)

type AuthClientSuite struct {
	suite.Suite
	ctx      context.Context
	server   *httptest.Server
	client   *Client
	requests map[string]map[string]any
	handler  http.HandlerFunc
}

func TestAuthClientSuite(t *testing.T) {
	suite.Run(t, new(AuthClientSuite))
}

func (s *AuthClientSuite) SetupTest() {
	s.ctx = context.Background()
	s.requests = map[string]map[string]any{}
	s.handler = nil
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.requests[r.URL.Path] = body
		if s.handler != nil {
			s.handler(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	s.T().Cleanup(s.server.Close)
	s.client = New(s.server.URL, 5*time.Second)
}

func (s *AuthClientSuite) TestRequestOTP() {
	s.Run("students are identified by roll number", func() {
		err := s.client.RequestOTP(s.ctx, ports.OTPRequest{
			Identifier: "205124040", Email: "205124040@nitt.edu", Role: models.RoleStudent,
		})
		s.Require().NoError(err)
		s.Equal(map[string]any{"rollNo": "205124040", "userType": "student"}, s.requests[pathSendOTP])
	})

	s.Run("employees are identified by email", func() {
		err := s.client.RequestOTP(s.ctx, ports.OTPRequest{
			Identifier: "jdoe@nitt.edu", Email: "jdoe@nitt.edu", Role: models.RoleFaculty,
		})
		s.Require().NoError(err)
		s.Equal(map[string]any{"email": "jdoe@nitt.edu", "userType": "faculty"}, s.requests[pathSendOTP])
	})

	s.Run("backend message is kept", func() {
		s.handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"Please wait before requesting another OTP"}`))
		}
		err := s.client.RequestOTP(s.ctx, ports.OTPRequest{Email: "jdoe@nitt.edu", Role: models.RoleStaff})
		s.Require().Error(err)
		de, ok := dErrors.As(err)
		s.Require().True(ok)
		s.Equal(dErrors.CodeDeliveryFailed, de.Code)
		s.Equal("Please wait before requesting another OTP", de.Message)
	})

	s.Run("bare failure has no domain message", func() {
		s.handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}
		err := s.client.RequestOTP(s.ctx, ports.OTPRequest{Email: "jdoe@nitt.edu", Role: models.RoleStaff})
		s.Require().Error(err)
		_, ok := dErrors.As(err)
		s.False(ok)
	})
}

func (s *AuthClientSuite) TestConfirmOTP() {
	s.Run("returns the confirmed email", func() {
		s.handler = func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"email":"JDoe@nitt.edu","token":"ignored"}`))
		}
		conf, err := s.client.ConfirmOTP(s.ctx, "jdoe@nitt.edu", "123456", models.RoleStaff)
		s.Require().NoError(err)
		s.Equal("JDoe@nitt.edu", conf.Email)
		s.Equal(map[string]any{"email": "jdoe@nitt.edu", "otp": "123456", "userType": "staff"}, s.requests[pathVerifyEmail])
	})

	s.Run("wrong code", func() {
		s.handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"OTP expired"}`))
		}
		_, err := s.client.ConfirmOTP(s.ctx, "jdoe@nitt.edu", "000000", models.RoleStaff)
		s.True(dErrors.HasCode(err, dErrors.CodeOTPInvalid))
	})
}

func (s *AuthClientSuite) TestEndSession() {
	s.Require().NoError(s.client.EndSession(s.ctx))
	s.Contains(s.requests, pathLogout)
}

func (s *AuthClientSuite) TestUnreachable() {
	s.server.Close()
	err := s.client.RequestOTP(s.ctx, ports.OTPRequest{Email: "jdoe@nitt.edu", Role: models.RoleStaff})
	s.Error(err)
}
