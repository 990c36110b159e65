package services

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worldplex-live/worldplex_api/dto"
	"github.com/worldplex-live/worldplex_api/shared"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newWorldFixture(t)

	reg, err := f.auth.Register(dto.RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "sup3rsecret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reg.UserID)
	assert.Equal(t, "alice", reg.Username)

	login, err := f.auth.Login(dto.LoginRequest{
		EmailOrUsername: "alice@example.com",
		Password:        "sup3rsecret",
	})
	require.NoError(t, err)
	assert.Equal(t, reg.UserID, login.UserID)
	assert.NotEmpty(t, login.AccessToken)
	assert.Equal(t, int64(time.Hour.Seconds()), login.ExpiresIn)
}

func TestRegisterDuplicateConflicts(t *testing.T) {
	f := newWorldFixture(t)

	_, err := f.auth.Register(dto.RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "sup3rsecret",
	})
	require.NoError(t, err)

	_, err = f.auth.Register(dto.RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice2",
		Password: "sup3rsecret",
	})
	requireStatus(t, err, http.StatusConflict)
}

func TestLoginByUsername(t *testing.T) {
	f := newWorldFixture(t)

	_, err := f.auth.Register(dto.RegisterRequest{
		Email:    "alice@example.com",
		Username: "Alice",
		Password: "sup3rsecret",
	})
	require.NoError(t, err)

	login, err := f.auth.Login(dto.LoginRequest{
		EmailOrUsername: "alice",
		Password:        "sup3rsecret",
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", login.Username)
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	f := newWorldFixture(t)

	_, err := f.auth.Register(dto.RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "sup3rsecret",
	})
	require.NoError(t, err)

	_, err = f.auth.Login(dto.LoginRequest{
		EmailOrUsername: "alice",
		Password:        "wrong",
	})
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestLoginUnknownAccountUnauthorized(t *testing.T) {
	f := newWorldFixture(t)

	_, err := f.auth.Login(dto.LoginRequest{
		EmailOrUsername: "nobody",
		Password:        "whatever",
	})
	requireStatus(t, err, http.StatusUnauthorized)
}

func TestJWTRoundTrip(t *testing.T) {
	f := newWorldFixture(t)

	token, err := f.jwt.ToJWT("u1", shared.RoleAdmin)
	require.NoError(t, err)

	userID, role, err := f.jwt.VerifyJWTToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
	assert.Equal(t, shared.RoleAdmin, role)
}

func TestJWTRejectsTamperedToken(t *testing.T) {
	f := newWorldFixture(t)

	token, err := f.jwt.ToJWT("u1", shared.RoleUser)
	require.NoError(t, err)

	_, _, err = f.jwt.VerifyJWTToken(token + "x")
	require.Error(t, err)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	f := newWorldFixture(t)

	expired := &JWTService{
		AccessTokenDuration: -time.Minute,
		jwtSecretKey:        "test-secret",
	}
	token, err := expired.ToJWT("u1", shared.RoleUser)
	require.NoError(t, err)

	_, _, err = f.jwt.VerifyJWTToken(token)
	require.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	f := newWorldFixture(t)

	token, err := f.jwt.ExtractTokenFromHeader("Bearer abc123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	_, err = f.jwt.ExtractTokenFromHeader("")
	require.Error(t, err)

	_, err = f.jwt.ExtractTokenFromHeader("Basic abc123")
	require.Error(t, err)
}
