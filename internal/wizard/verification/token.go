package verification

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"idcard/internal/wizard/models"
	dErrors "idcard/pkg/domain-errors"
)

// Claims binds a verified identity to one wizard session.
type Claims struct {
	SessionID string `json:"sid"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	RollNo    string `json:"roll_no,omitempty"`
	jwt.RegisteredClaims
}

// TokenService mints and validates verified-identity tokens (HS256).
type TokenService struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
}

func NewTokenService(signingKey, issuer, audience string, ttl time.Duration) (*TokenService, error) {
	if signingKey == "" {
		return nil, errors.New("signing key is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &TokenService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
	}, nil
}

// Issue signs a token for id and returns it with its expiry.
func (s *TokenService) Issue(sessionID string, id models.Identity, now time.Time) (string, time.Time, error) {
	expires := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		SessionID: sessionID,
		Role:      string(id.Role),
		Email:     id.Email,
		RollNo:    id.RollNo,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Identifier(),
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign identity token")
	}
	return signed, expires, nil
}

// Validate parses tokenString as of now.
func (s *TokenService) Validate(tokenString string, now time.Time) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return s.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "verification has expired, please verify again")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid verification token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid verification token")
	}
	return claims, nil
}
