package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/wgdash/wg-dashboard/internal/hash"
	"github.com/wgdash/wg-dashboard/internal/models"
	"github.com/wgdash/wg-dashboard/internal/repo"
	"github.com/wgdash/wg-dashboard/internal/tokens"
)

type testEnv struct {
	db    *gorm.DB
	rp    *repo.GormRepo
	auth  *AuthService
	users *UserService
	peers *PeerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Peer{}, &models.RefreshToken{}))

	rp := repo.New(db)
	issuer := &tokens.Issuer{Secret: []byte("test-jwt-secret"), AccessTTL: 15 * time.Minute}

	return &testEnv{
		db:    db,
		rp:    rp,
		auth:  &AuthService{Repo: rp, Issuer: issuer, RefreshTTL: 48 * time.Hour},
		users: &UserService{Repo: rp},
		peers: &PeerService{Repo: rp, Quota: 5, AdminQuotaExempt: true},
	}
}

func uniqueUsername() string {
	return "u_" + uuid.NewString()
}

// mustCreateAdmin seeds an admin account directly, bypassing signup's
// forced "user" role.
func (env *testEnv) mustCreateAdmin(t *testing.T) *models.User {
	t.Helper()

	pwHash, err := hash.HashPassword("AdminSecret123")
	require.NoError(t, err)
	admin := &models.User{
		Username:     uniqueUsername(),
		PasswordHash: pwHash,
		Name:         "Admin",
		Role:         models.RoleAdmin,
	}
	require.NoError(t, env.rp.CreateUser(context.Background(), admin))
	return admin
}

func testPublicKey(t *testing.T) string {
	t.Helper()

	raw := make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}
