package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid token")

// Principal is the authenticated identity carried by every request: a role,
// a unique access id and an optional unit (company) binding used to resolve
// the visibility rule.
type Principal struct {
	Email     string
	Role      string
	AccessID  uint
	CompanyID *uint
}

// UnitID is the organizational unit the principal's visibility rule keys on,
// preferring the explicit company binding over the access id.
func (p Principal) UnitID() uint {
	if p.CompanyID != nil {
		return *p.CompanyID
	}
	return p.AccessID
}

type Claims struct {
	jwt.RegisteredClaims
	Role      string `json:"role"`
	AccessID  uint   `json:"access_id"`
	CompanyID *uint  `json:"company_id,omitempty"`
}

type TokenManager struct {
	signingKey []byte
	ttl        time.Duration
}

func NewTokenManager(signingKey []byte, ttl time.Duration) *TokenManager {
	return &TokenManager{signingKey: signingKey, ttl: ttl}
}

func (m *TokenManager) Generate(p Principal) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   p.Email,
			Issuer:    "grievance-portal",
		},
		Role:      p.Role,
		AccessID:  p.AccessID,
		CompanyID: p.CompanyID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

func (m *TokenManager) Verify(tokenString string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.signingKey, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Role == "" || claims.AccessID == 0 {
		return Principal{}, ErrInvalidToken
	}

	return Principal{
		Email:     claims.Subject,
		Role:      claims.Role,
		AccessID:  claims.AccessID,
		CompanyID: claims.CompanyID,
	}, nil
}

// FromAuthorizationHeader extracts the bearer token from an Authorization
// header value.
func FromAuthorizationHeader(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// VerifyPassword checks a plaintext password against its bcrypt hash.
func VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// HashPassword hashes a password for storage.
func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
