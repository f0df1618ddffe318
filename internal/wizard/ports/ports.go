// Package ports declares the collaborators the wizard consumes.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks AuthService,DocumentGenerator,ApplicationService,AuditPublisher

import (
	"context"

	"idcard/internal/audit"
	"idcard/internal/wizard/models"
)

// OTPRequest identifies who should receive a passcode. Identifier is what the
// applicant typed (roll number or email); Email is where the code goes.
type OTPRequest struct {
	Identifier string
	Email      string
	Role       models.Role
}

// OTPConfirmation is returned by a successful confirm.
type OTPConfirmation struct {
	Email string
}

// AuthService delivers and verifies one-time passcodes.
type AuthService interface {
	RequestOTP(ctx context.Context, req OTPRequest) error
	ConfirmOTP(ctx context.Context, identifier, code string, role models.Role) (*OTPConfirmation, error)
	EndSession(ctx context.Context) error
}

// DocumentGenerator renders the one-page application summary.
type DocumentGenerator interface {
	RenderSummary(ctx context.Context, snapshot models.SummarySnapshot, includeWatermark bool) ([]byte, error)
}

// ApplicationService accepts the final multipart package.
type ApplicationService interface {
	Submit(ctx context.Context, pkg *models.SubmissionPackage) (*models.Receipt, error)
}

// AuditPublisher records wizard lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
