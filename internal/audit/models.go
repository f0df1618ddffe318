// Package audit records wizard lifecycle events for operations and
// compliance. Events never carry raw identifiers, only their hash.
package audit

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"
	"golang.org/x/crypto/blake2b"

	"idcard/pkg/requestcontext"
)

// Action names what happened.
type Action string

const (
	ActionSessionStarted   Action = "session_started"
	ActionSessionEnded     Action = "session_ended"
	ActionOTPRequested     Action = "otp_requested"
	ActionOTPRequestFailed Action = "otp_request_failed"
	ActionIdentityVerified Action = "identity_verified"
	ActionOTPConfirmFailed Action = "otp_confirm_failed"
	ActionStepAdvanced     Action = "step_advanced"
	ActionStepBack         Action = "step_back"
	ActionGuardFailed      Action = "guard_failed"
	ActionFileRejected     Action = "file_rejected"
	ActionSubmitted        Action = "application_submitted"
	ActionSubmissionFailed Action = "submission_failed"
)

// Event is one audit record. Keep it transport-agnostic so sinks can fan out.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Action      Action    `json:"action"`
	SessionID   string    `json:"sessionId"`
	Role        string    `json:"role,omitempty"`
	SubjectHash string    `json:"subjectHash,omitempty"`
	Step        string    `json:"step,omitempty"`
	Code        string    `json:"code,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	Client      string    `json:"client,omitempty"`
	RequestID   string    `json:"requestId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewEvent stamps an event with id, request-scoped time, request id and the
// client browser/platform parsed from the User-Agent.
func NewEvent(ctx context.Context, action Action, sessionID string) Event {
	return Event{
		ID:        uuid.New(),
		Action:    action,
		SessionID: sessionID,
		Client:    describeClient(requestcontext.UserAgent(ctx)),
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx).UTC(),
	}
}

// HashSubject pseudonymises an email or roll number.
func HashSubject(identifier string) string {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(identifier))
	return hex.EncodeToString(sum[:])
}

func describeClient(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	if ua.Bot() {
		return "bot"
	}
	name, version := ua.Browser()
	client := name
	if version != "" {
		client += " " + version
	}
	if os := ua.OS(); os != "" {
		client += " (" + os + ")"
	}
	if ua.Mobile() {
		client += " mobile"
	}
	return client
}
