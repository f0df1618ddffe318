// Package authapi is the HTTP client of the institute's OTP service.
package authapi

import (
	"context"
	"net/http"
	"time"

	"idcard/internal/collaborators/backend"
	"idcard/internal/wizard/models"
	"idcard/internal/wizard/ports"
	dErrors "idcard/pkg/domain-errors"
)

const (
	pathSendOTP     = "/auth/send-otp"
	pathVerifyEmail = "/auth/verify-email"
	pathLogout      = "/auth/logout"
)

// Client implements ports.AuthService over HTTP.
type Client struct {
	backend *backend.Client
}

type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient replaces the default client, e.g. for tests or a custom transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Client{backend: backend.New(baseURL, timeout, o.httpClient, "idcard/authapi")}
}

type sendOTPRequest struct {
	RollNo   string `json:"rollNo,omitempty"`
	Email    string `json:"email,omitempty"`
	UserType string `json:"userType"`
}

type verifyRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	UserType string `json:"userType"`
}

type verifyResponse struct {
	Email string `json:"email"`
}

// RequestOTP asks the service to mail a passcode. Students are identified by
// roll number, employees by their institute e-mail.
func (c *Client) RequestOTP(ctx context.Context, req ports.OTPRequest) error {
	body := sendOTPRequest{UserType: string(req.Role)}
	if req.Role == models.RoleStudent {
		body.RollNo = req.Identifier
	} else {
		body.Email = req.Email
	}
	return c.backend.PostJSON(ctx, "authapi.RequestOTP", pathSendOTP, body, nil, dErrors.CodeDeliveryFailed)
}

func (c *Client) ConfirmOTP(ctx context.Context, identifier, code string, role models.Role) (*ports.OTPConfirmation, error) {
	var resp verifyResponse
	err := c.backend.PostJSON(ctx, "authapi.ConfirmOTP", pathVerifyEmail,
		verifyRequest{Email: identifier, OTP: code, UserType: string(role)}, &resp, dErrors.CodeOTPInvalid)
	if err != nil {
		return nil, err
	}
	return &ports.OTPConfirmation{Email: resp.Email}, nil
}

// EndSession logs the current backend session out.
func (c *Client) EndSession(ctx context.Context) error {
	return c.backend.PostJSON(ctx, "authapi.EndSession", pathLogout, struct{}{}, nil, dErrors.CodeInternal)
}
