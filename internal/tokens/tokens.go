package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed      = errors.New("token malformed")
	ErrExpired        = errors.New("token expired")
	ErrUnsupportedAlg = errors.New("token signing method unsupported")
	ErrEmptyClaims    = errors.New("token claims empty")
)

// AccessClaims is the payload of a signed access token. Roles are a
// structured list, never a joined string.
type AccessClaims struct {
	UserID uint     `json:"userId"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// Signer mints and verifies HS256 access tokens. It holds no mutable
// state and is safe for unlimited concurrent use.
type Signer struct {
	secret []byte
}

func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret}
}

// Issue signs claims {sub, userId, email, roles, iat, exp} for the
// given subject, expiring ttl from now.
func (s *Signer) Issue(subject string, userID uint, email string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID: userID,
		Email:  email,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks the signature and expiry and decodes the claims. Any
// structural or cryptographic defect fails closed, partial claims are
// never returned.
func (s *Signer) Verify(tokenStr string) (*AccessClaims, error) {
	if tokenStr == "" {
		return nil, ErrEmptyClaims
	}

	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrUnsupportedAlg
		}
		return s.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedAlg):
			return nil, ErrUnsupportedAlg
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, ErrMalformed
		}
	}
	if !tkn.Valid || claims.Subject == "" {
		return nil, ErrEmptyClaims
	}
	return &claims, nil
}
