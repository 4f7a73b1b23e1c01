package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diario-app/diario-back/internal/db"
)

func newTestAuth(t *testing.T) (*Auth, *gorm.DB) {
	t.Helper()

	gdb, err := db.NewSQLiteClient(testDSN())
	require.NoError(t, err)

	return NewAuth(gdb, zap.NewNop().Sugar()), gdb
}

func TestRegisterAndLogin(t *testing.T) {
	auth, gdb := newTestAuth(t)

	token, err := auth.Register("diarist@example.com", "a long password")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	user := db.User{}
	require.NoError(t, gdb.Where("token = ?", token).First(&user).Error)
	assert.Equal(t, "diarist@example.com", user.Email)
	assert.NotEqual(t, "a long password", user.Password)

	// Login rotates the token.
	newToken, err := auth.Login("diarist@example.com", "a long password")
	require.NoError(t, err)
	assert.NotEmpty(t, newToken)
	assert.NotEqual(t, token, newToken)
}

func TestLoginFailures(t *testing.T) {
	auth, _ := newTestAuth(t)

	_, err := auth.Register("diarist@example.com", "a long password")
	require.NoError(t, err)

	_, err = auth.Login("nobody@example.com", "a long password")
	assert.ErrorIs(t, err, ErrLoginUserNotFound)

	_, err = auth.Login("diarist@example.com", "wrong password!")
	assert.ErrorIs(t, err, ErrLoginPasswordDoesNotMatch)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	auth, gdb := newTestAuth(t)

	token, err := auth.Register("diarist@example.com", "a long password")
	require.NoError(t, err)

	require.NoError(t, auth.Logout(token))

	user := db.User{}
	err = gdb.Where("token = ?", token).First(&user).Error
	assert.Error(t, err)

	// Logging out an unknown token is a no-op.
	assert.NoError(t, auth.Logout("gone"))
}
