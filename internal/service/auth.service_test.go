package service

import (
	"context"
	"paydesk/internal/domain"
	"paydesk/internal/repo"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(t *testing.T) (AuthService, *repo.Memory) {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	store := repo.NewMemory()
	return NewAuthService(store.Credentials(), log), store
}

func TestSignupThenLogin(t *testing.T) {
	ctx := context.Background()
	pairs := [][2]string{
		{"asha", "hunter2"},
		{"ravi.k", "p@ss word"},
		{"उपयोगकर्ता", "पासवर्ड"},
	}

	auth, _ := newAuth(t)
	for _, p := range pairs {
		require.NoError(t, auth.Signup(ctx, p[0], p[1]))

		username, err := auth.Login(ctx, p[0], p[1])
		require.NoError(t, err)
		assert.Equal(t, p[0], username)

		_, err = auth.Login(ctx, p[0], p[1]+"x")
		assert.Equal(t, domain.KindAuth, domain.KindOf(err))
	}
}

func TestSignup_Validation(t *testing.T) {
	auth, store := newAuth(t)
	for _, c := range [][2]string{{"", "pw"}, {"user", ""}, {"", ""}} {
		err := auth.Signup(context.Background(), c[0], c[1])
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	}
	assert.Zero(t, store.Writes())
}

func TestSignup_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	auth, store := newAuth(t)
	require.NoError(t, auth.Signup(ctx, "asha", "one"))

	err := auth.Signup(ctx, "asha", "two")
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	assert.Equal(t, 1, store.Writes())

	_, err = auth.Login(ctx, "asha", "two")
	assert.Equal(t, domain.KindAuth, domain.KindOf(err))
}

func TestLogin_UnknownUser(t *testing.T) {
	auth, _ := newAuth(t)
	_, err := auth.Login(context.Background(), "nobody", "pw")
	assert.Equal(t, domain.KindAuth, domain.KindOf(err))
}
