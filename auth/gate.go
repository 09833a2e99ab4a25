/*
Package auth is the access gate: it issues and checks session tokens.

PURPOSE:
  Every ledger operation needs a principal that is either a specific
  employee or the administrator. The gate turns a login into a signed
  token and a token back into a Principal.

CREDENTIALS:
  Employee: email + employee code, matched against the directory.
            The token carries the employee's id, name and position.
  Admin:    one shared username/password from configuration, compared in
            constant time (or against a bcrypt hash when one is configured).
            There are no per-admin accounts.

SESSIONS:
  HS256 JWTs with a fixed lifetime (8h by default). There is no refresh;
  an expired token is rejected and the caller logs in again.

ERRORS:
  All failures are Unauthorized-kind:
  - generic.ErrInvalidCredentials: bad login or tampered/garbled token
  - generic.ErrTokenExpired:       token past its lifetime

SEE ALSO:
  - api/middleware.go: Extracts the token from requests
*/
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/warp/attendance-engine/generic"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultSessionTTL = 8 * time.Hour
	issuer            = "attendance-engine"
)

// Config holds the gate's secrets.
type Config struct {
	Secret            string
	SessionTTL        time.Duration
	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string // bcrypt; takes precedence over AdminPassword
}

// EmployeeIdentity is the employee part of the token payload.
type EmployeeIdentity struct {
	ID       generic.EmployeeID `json:"id"`
	Name     string             `json:"name"`
	Position string             `json:"position"`
}

// Claims is the token payload.
type Claims struct {
	Employee *EmployeeIdentity `json:"employee,omitempty"`
	Admin    bool              `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller.
type Principal struct {
	Employee *EmployeeIdentity
	Admin    bool
}

// EmployeeID returns the caller's employee id, or "" for the admin.
func (p *Principal) EmployeeID() generic.EmployeeID {
	if p == nil || p.Employee == nil {
		return ""
	}
	return p.Employee.ID
}

// Gate issues and validates tokens.
type Gate struct {
	secret    []byte
	ttl       time.Duration
	adminUser string
	adminPass string
	adminHash []byte
	directory generic.EmployeeStore
	now       func() time.Time
}

func NewGate(cfg Config, directory generic.EmployeeStore) (*Gate, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: token secret is required")
	}
	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		return nil, errors.New("auth: an admin password or password hash is required")
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	username := cfg.AdminUsername
	if username == "" {
		username = "admin"
	}
	return &Gate{
		secret:    []byte(cfg.Secret),
		ttl:       ttl,
		adminUser: username,
		adminPass: cfg.AdminPassword,
		adminHash: []byte(cfg.AdminPasswordHash),
		directory: directory,
		now:       time.Now,
	}, nil
}

// SetClock replaces the time source (tests).
func (g *Gate) SetClock(now func() time.Time) { g.now = now }

// TTL is the session lifetime.
func (g *Gate) TTL() time.Duration { return g.ttl }

// =============================================================================
// LOGIN
// =============================================================================

// LoginEmployee looks the employee up by email and checks the employee code.
func (g *Gate) LoginEmployee(ctx context.Context, email, code string) (string, *generic.Employee, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return "", nil, generic.ErrInvalidCredentials
	}

	emp, err := g.directory.GetEmployeeByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to look up employee: %w", err)
	}
	if emp == nil || subtle.ConstantTimeCompare([]byte(emp.Code), []byte(code)) != 1 {
		return "", nil, generic.ErrInvalidCredentials
	}

	token, err := g.sign(Claims{Employee: &EmployeeIdentity{
		ID:       emp.ID,
		Name:     emp.Name,
		Position: emp.Position,
	}}, string(emp.ID))
	if err != nil {
		return "", nil, err
	}
	return token, emp, nil
}

// LoginAdmin checks the shared administrator secret.
func (g *Gate) LoginAdmin(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.adminUser)) == 1

	var passOK bool
	if len(g.adminHash) > 0 {
		passOK = bcrypt.CompareHashAndPassword(g.adminHash, []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(g.adminPass)) == 1
	}

	if !userOK || !passOK {
		return "", generic.ErrInvalidCredentials
	}
	return g.sign(Claims{Admin: true}, "admin")
}

func (g *Gate) sign(claims Claims, subject string) (string, error) {
	now := g.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// =============================================================================
// VERIFY
// =============================================================================

// Authenticate validates a token and returns its principal.
func (g *Gate) Authenticate(tokenStr string) (*Principal, error) {
	if tokenStr == "" {
		return nil, generic.ErrInvalidCredentials
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(token *jwt.Token) (any, error) { return g.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, generic.ErrTokenExpired
		}
		return nil, generic.ErrInvalidCredentials
	}
	if !token.Valid {
		return nil, generic.ErrInvalidCredentials
	}

	switch {
	case claims.Admin:
		return &Principal{Admin: true}, nil
	case claims.Employee != nil && claims.Employee.ID != "":
		return &Principal{Employee: claims.Employee}, nil
	}
	return nil, generic.ErrInvalidCredentials
}

// HashPassword produces a bcrypt hash suitable for AdminPasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
