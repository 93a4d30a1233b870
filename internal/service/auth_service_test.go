package service

import (
	"testing"
	"time"

	"ideaportal/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("test-secret")

func (f *fixture) setPassword(username, password string) {
	f.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(f.t, err)
	require.NoError(f.t, f.db.Model(&model.User{}).Where("username = ?", username).Update("password_hash", string(hash)).Error)
}

func TestLoginIssuesTokenForEmployee(t *testing.T) {
	f := newFixture(t, true)
	f.setPassword("leader-a1", "s3cret")
	auth := NewAuthService(f.userRepo, testSecret, time.Hour, f.log)

	res, err := auth.Login(f.ctx, LoginRequest{Username: "leader-a1", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, f.leaderA1.ID.String(), res.EmployeeID)
	assert.Equal(t, model.RoleWorkstreamLeader, res.Role)
	assert.Equal(t, 1, res.ApprovalLevel)
	assert.WithinDuration(t, time.Now().Add(time.Hour), res.ExpiresAt, time.Minute)

	claims, employeeID, err := ParseToken(testSecret, res.Token)
	require.NoError(t, err)
	assert.Equal(t, f.leaderA1.ID, employeeID)
	assert.Equal(t, model.RoleWorkstreamLeader, claims.Role)
	assert.Equal(t, 1, claims.ApprovalLevel)
}

func TestLoginRefusesBadCredentialsAndInactiveAccounts(t *testing.T) {
	f := newFixture(t, true)
	f.setPassword("leader-a1", "s3cret")
	f.setPassword("leader-b1", "s3cret")
	f.deactivateUsers(f.leaderB1.ID)
	auth := NewAuthService(f.userRepo, testSecret, time.Hour, f.log)

	cases := map[string]LoginRequest{
		"wrong password": {Username: "leader-a1", Password: "nope"},
		"unknown user":   {Username: "ghost", Password: "s3cret"},
		"inactive user":  {Username: "leader-b1", Password: "s3cret"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := auth.Login(f.ctx, req)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	token, err := IssueToken(testSecret, TokenClaims{
		Role: model.RoleDivisionGM,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "not-a-uuid",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)

	_, _, err = ParseToken([]byte("other-secret"), token)
	assert.Error(t, err)

	_, _, err = ParseToken(testSecret, token)
	assert.ErrorContains(t, err, "subject")

	expired, err := IssueToken(testSecret, TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	require.NoError(t, err)
	_, _, err = ParseToken(testSecret, expired)
	assert.Error(t, err)
}

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("battery staple")))
}
