package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors:
//   - ErrNotFound: no session, draft or manifest under the key
//   - ErrExpired: verified-identity token or session TTL elapsed
//   - ErrInvalidState: wizard is not in the state the operation needs
//   - ErrUnavailable: backing store temporarily unavailable
//
// Validation failures use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
