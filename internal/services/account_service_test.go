package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rede-de-patas/patas-api/internal/auth"
	"github.com/rede-de-patas/patas-api/internal/config"
	"github.com/rede-de-patas/patas-api/internal/db/models"
	"github.com/rede-de-patas/patas-api/internal/policy"
)

func newAccountService(w *world, allowAdminSignup bool) *AccountService {
	return NewAccountService(fakeUsers{w}, fakeOngs{w}, config.AuthConfig{
		BcryptCost:       bcrypt.MinCost,
		AllowAdminSignup: allowAdminSignup,
	})
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	svc := newAccountService(w, false)

	user, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.org", Password: "correct horse"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	token, got, err := svc.Login(ctx, "ana@example.org", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "bearer", token.TokenType)

	// The token subject is the user id.
	claims, err := auth.VerifyToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	authed, err := svc.Authenticate(ctx, token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newAccountService(newWorld(), false)

	_, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.org", Password: "password1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Name: "Other", Email: "ana@example.org", Password: "password2"})
	assert.Equal(t, KindConflict, KindOf(err))
}

func TestRegister_Validation(t *testing.T) {
	svc := newAccountService(newWorld(), false)
	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing name", RegisterInput{Email: "a@b.c", Password: "password1"}},
		{"missing email", RegisterInput{Name: "A", Password: "password1"}},
		{"short password", RegisterInput{Name: "A", Email: "a@b.c", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			assert.Equal(t, KindInvalid, KindOf(err))
		})
	}
}

func TestRegister_AdminSignupSwitch(t *testing.T) {
	ctx := context.Background()

	closed := newAccountService(newWorld(), false)
	u, err := closed.Register(ctx, RegisterInput{Name: "A", Email: "a@x.org", Password: "password1", IsAdmin: true})
	require.NoError(t, err)
	assert.False(t, u.IsAdmin, "admin flag must be ignored when admin signup is disabled")

	open := newAccountService(newWorld(), true)
	u, err = open.Register(ctx, RegisterInput{Name: "B", Email: "b@x.org", Password: "password1", IsAdmin: true})
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)
}

func TestLogin_Failures(t *testing.T) {
	ctx := context.Background()
	svc := newAccountService(newWorld(), false)
	_, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.org", Password: "correct horse"})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "ana@example.org", "wrong password")
	assert.Equal(t, KindUnauthenticated, KindOf(err))

	_, _, err2 := svc.Login(ctx, "nobody@example.org", "correct horse")
	assert.Equal(t, KindUnauthenticated, KindOf(err2))
	assert.Equal(t, err.Error(), err2.Error(), "unknown email and wrong password must look the same")
}

func TestLogin_StoreFailureIsUnavailable(t *testing.T) {
	w := newWorld()
	w.failWith = errors.New("connection refused")
	svc := newAccountService(w, false)

	_, _, err := svc.Login(context.Background(), "ana@example.org", "whatever1")
	assert.Equal(t, KindUnavailable, KindOf(err))
	assert.NotContains(t, err.Error(), "connection refused")
}

func TestAuthenticate_Failures(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	svc := newAccountService(w, false)

	_, err := svc.Authenticate(ctx, "not-a-jwt")
	assert.Equal(t, KindUnauthenticated, KindOf(err))

	// A valid token for a user that no longer exists.
	tok, err := auth.IssueToken(999, "ghost@example.org", auth.DefaultTokenTTL)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, tok)
	assert.Equal(t, KindUnauthenticated, KindOf(err))
}

func TestMeAndUpdateProfile(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	ana := w.addUser(1, "Ana", true)
	w.addUser(2, "Bia", false)
	w.addOng(10, "Patas", 1)
	svc := newAccountService(w, false)

	me, err := svc.Me(ctx, ana)
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, me.OngIDs())

	newName := "Ana Souza"
	phone := "+55 11 99999-0000"
	housing := "house"
	updated, err := svc.UpdateProfile(ctx, ana, ProfileInput{
		Name:          &newName,
		Phone:         &phone,
		HousingSurvey: models.HousingSurvey{Housing: &housing},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", updated.Name)
	assert.Equal(t, phone, *updated.Phone)
	assert.Equal(t, "house", *updated.Housing)
	assert.True(t, updated.IsAdmin, "profile updates never touch is_admin")

	taken := "bia@example.org"
	_, err = svc.UpdateProfile(ctx, ana, ProfileInput{Email: &taken})
	assert.Equal(t, KindConflict, KindOf(err))

	_, err = svc.Me(ctx, nil)
	assert.Equal(t, KindUnauthenticated, KindOf(err))
}

func TestListUsers_AdminOnly(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	admin := w.addUser(1, "Ana", true)
	regular := w.addUser(2, "Bia", false)
	svc := newAccountService(w, false)

	users, err := svc.ListUsers(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = svc.ListUsers(ctx, regular)
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Equal(t, policy.ReasonNotAdmin, ReasonOf(err))
}

func TestPromoteAdmin(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	w.addUser(2, "Bia", false)
	svc := newAccountService(w, false)

	u, err := svc.PromoteAdmin(ctx, "bia@example.org", true)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	_, err = svc.PromoteAdmin(ctx, "nobody@example.org", true)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestRefresh(t *testing.T) {
	w := newWorld()
	ana := w.addUser(1, "Ana", false)
	svc := newAccountService(w, false)

	tok, err := svc.Refresh(context.Background(), ana)
	require.NoError(t, err)
	claims, err := auth.VerifyToken(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.UserID)
}
