package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/auth"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/generic/store"
)

func newTestGate(t *testing.T, cfg auth.Config) (*auth.Gate, *store.Memory) {
	directory := store.NewMemory()
	require.NoError(t, directory.SaveEmployee(context.Background(), generic.Employee{
		ID:       "emp-1",
		Code:     "ER 1040",
		Email:    "ashid@example.com",
		Name:     "Ashid",
		Position: "Digital Marketing Associate",
	}))

	if cfg.Secret == "" {
		cfg.Secret = "test-secret"
	}
	if cfg.AdminPassword == "" && cfg.AdminPasswordHash == "" {
		cfg.AdminPassword = "s3cret"
	}
	g, err := auth.NewGate(cfg, directory)
	require.NoError(t, err)
	return g, directory
}

func TestNewGate_RequiresSecrets(t *testing.T) {
	_, err := auth.NewGate(auth.Config{AdminPassword: "x"}, store.NewMemory())
	assert.Error(t, err)

	_, err = auth.NewGate(auth.Config{Secret: "x"}, store.NewMemory())
	assert.Error(t, err)
}

func TestLoginEmployee_TokenCarriesIdentity(t *testing.T) {
	g, _ := newTestGate(t, auth.Config{})

	token, emp, err := g.LoginEmployee(context.Background(), "ASHID@example.com", "ER 1040")
	require.NoError(t, err)
	assert.Equal(t, generic.EmployeeID("emp-1"), emp.ID)

	p, err := g.Authenticate(token)
	require.NoError(t, err)
	assert.False(t, p.Admin)
	require.NotNil(t, p.Employee)
	assert.Equal(t, generic.EmployeeID("emp-1"), p.EmployeeID())
	assert.Equal(t, "Ashid", p.Employee.Name)
	assert.Equal(t, "Digital Marketing Associate", p.Employee.Position)
}

func TestLoginEmployee_Rejections(t *testing.T) {
	g, _ := newTestGate(t, auth.Config{})

	tests := []struct {
		name, email, code string
	}{
		{"wrong code", "ashid@example.com", "ER 9999"},
		{"unknown email", "nobody@example.com", "ER 1040"},
		{"empty code", "ashid@example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := g.LoginEmployee(context.Background(), tt.email, tt.code)
			assert.ErrorIs(t, err, generic.ErrInvalidCredentials)
			assert.ErrorIs(t, err, generic.ErrUnauthorized)
		})
	}
}

func TestLoginAdmin_PlainSecret(t *testing.T) {
	g, _ := newTestGate(t, auth.Config{AdminUsername: "boss", AdminPassword: "s3cret"})

	_, err := g.LoginAdmin("boss", "wrong")
	assert.ErrorIs(t, err, generic.ErrInvalidCredentials)
	_, err = g.LoginAdmin("admin", "s3cret")
	assert.ErrorIs(t, err, generic.ErrInvalidCredentials)

	token, err := g.LoginAdmin("boss", "s3cret")
	require.NoError(t, err)
	p, err := g.Authenticate(token)
	require.NoError(t, err)
	assert.True(t, p.Admin)
	assert.Equal(t, generic.EmployeeID(""), p.EmployeeID())
}

func TestLoginAdmin_BcryptHash(t *testing.T) {
	hash, err := auth.HashPassword("hunter2")
	require.NoError(t, err)
	g, _ := newTestGate(t, auth.Config{AdminPasswordHash: hash})

	_, err = g.LoginAdmin("admin", "hunter3")
	assert.ErrorIs(t, err, generic.ErrInvalidCredentials)

	_, err = g.LoginAdmin("admin", "hunter2")
	assert.NoError(t, err)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	// GIVEN: A token issued 9 hours ago with the default 8h lifetime
	// THEN: It is rejected as expired

	g, _ := newTestGate(t, auth.Config{})
	issued := time.Now().Add(-9 * time.Hour)
	g.SetClock(func() time.Time { return issued })
	token, err := g.LoginAdmin("admin", "s3cret")
	require.NoError(t, err)

	g.SetClock(time.Now)
	_, err = g.Authenticate(token)
	assert.ErrorIs(t, err, generic.ErrTokenExpired)
	assert.ErrorIs(t, err, generic.ErrUnauthorized)
}

func TestAuthenticate_RejectsForeignAndGarbledTokens(t *testing.T) {
	g, _ := newTestGate(t, auth.Config{})
	other, _ := newTestGate(t, auth.Config{Secret: "another-secret"})

	foreign, err := other.LoginAdmin("admin", "s3cret")
	require.NoError(t, err)
	_, err = g.Authenticate(foreign)
	assert.ErrorIs(t, err, generic.ErrInvalidCredentials)

	_, err = g.Authenticate("not-a-token")
	assert.ErrorIs(t, err, generic.ErrInvalidCredentials)

	_, err = g.Authenticate("")
	assert.ErrorIs(t, err, generic.ErrInvalidCredentials)
}

func TestAuthenticate_RejectsTokenWithoutRole(t *testing.T) {
	g, _ := newTestGate(t, auth.Config{})

	claims := auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "attendance-engine",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = g.Authenticate(token)
	assert.ErrorIs(t, err, generic.ErrInvalidCredentials)
}
