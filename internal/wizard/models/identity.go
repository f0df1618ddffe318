package models

import "time"

// Identity is the applicant identity proven by OTP. It is immutable for the
// rest of the session.
type Identity struct {
	Role     Role      `json:"role"`
	Email    string    `json:"email"`
	RollNo   string    `json:"rollNo,omitempty"`
	Verified bool      `json:"verified"`
	Token    string    `json:"token"`
	Expires  time.Time `json:"expires"`
}

// Identifier is the value the applicant typed to verify: roll number for
// students, email otherwise.
func (i Identity) Identifier() string {
	if i.Role == RoleStudent {
		return i.RollNo
	}
	return i.Email
}
