package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wgdash/wg-dashboard/internal/authz"
	"github.com/wgdash/wg-dashboard/internal/models"
)

func TestValidatePublicKey(t *testing.T) {
	t.Parallel()

	valid := testPublicKey(t)
	require.Len(t, valid, 44)

	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "valid wireguard key", key: valid},
		{name: "empty", key: "", wantErr: true},
		{name: "too short", key: "thisshouldntbeallowed", wantErr: true},
		{name: "right length but not base64", key: strings.Repeat("!", 44), wantErr: true},
		{name: "too long", key: valid + "A", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidatePublicKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPeerService_Create_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner, err := env.auth.Signup(ctx, uniqueUsername(), "Secret123", "")
	require.NoError(t, err)
	other, err := env.auth.Signup(ctx, uniqueUsername(), "Secret123", "")
	require.NoError(t, err)

	self := authz.Subject{ID: owner.ID, Role: owner.Role}

	profile, err := env.peers.Create(ctx, self, PeerInput{
		PublicKey:  testPublicKey(t),
		AllowedIPs: "10.0.0.2/32",
		OwnerID:    owner.ID,
	})
	require.NoError(t, err)
	assert.NotZero(t, profile.ID)
	assert.Equal(t, owner.ID, profile.OwnerID)
	assert.Equal(t, owner.Username, profile.OwnerUsername)

	// Creating for somebody else is rejected for users and admins alike.
	_, err = env.peers.Create(ctx, self, PeerInput{PublicKey: testPublicKey(t), OwnerID: other.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	admin := env.mustCreateAdmin(t)
	_, err = env.peers.Create(ctx, authz.Subject{ID: admin.ID, Role: admin.Role},
		PeerInput{PublicKey: testPublicKey(t), OwnerID: owner.ID})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPeerService_Create_DuplicateKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user1, err := env.auth.Signup(ctx, uniqueUsername(), "Secret123", "")
	require.NoError(t, err)
	user2, err := env.auth.Signup(ctx, uniqueUsername(), "Secret123", "")
	require.NoError(t, err)

	key := testPublicKey(t)
	_, err = env.peers.Create(ctx, authz.Subject{ID: user1.ID, Role: user1.Role},
		PeerInput{PublicKey: key, OwnerID: user1.ID})
	require.NoError(t, err)

	// Same key from a different owner: uniqueness is global.
	_, err = env.peers.Create(ctx, authz.Subject{ID: user2.ID, Role: user2.Role},
		PeerInput{PublicKey: key, OwnerID: user2.ID})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestPeerService_Create_BadKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Signup(ctx, uniqueUsername(), "Secret123", "")
	require.NoError(t, err)

	_, err = env.peers.Create(ctx, authz.Subject{ID: user.ID, Role: user.Role},
		PeerInput{PublicKey: "thisshouldntbeallowed", OwnerID: user.ID})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPeerService_Create_DeviceType(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Signup(ctx, uniqueUsername(), "Secret123", "")
	require.NoError(t, err)
	self := authz.Subject{ID: user.ID, Role: user.Role}

	profile, err := env.peers.Create(ctx, self, PeerInput{
		PublicKey:         testPublicKey(t),
		DeviceType:        models.DeviceLaptop,
		DeviceDescription: "work laptop",
		OwnerID:           user.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.DeviceLaptop, profile.DeviceType)
	assert.Equal(t, "work laptop", profile.DeviceDescription)

	// Leaving the device fields empty is allowed.
	_, err = env.peers.Create(ctx, self, PeerInput{PublicKey: testPublicKey(t), OwnerID: user.ID})
	assert.NoError(t, err)

	_, err = env.peers.Create(ctx, self, PeerInput{
		PublicKey:  testPublicKey(t),
		DeviceType: "Toaster",
		OwnerID:    user.ID,
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPeerService_Create_QuotaEnforced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Signup(ctx, uniqueUsername(), "Secret123", "")
	require.NoError(t, err)
	self := authz.Subject{ID: user.ID, Role: user.Role}

	for i := 0; i < 5; i++ {
		_, err := env.peers.Create(ctx, self, PeerInput{PublicKey: testPublicKey(t), OwnerID: user.ID})
		require.NoError(t, err, "peer %d within quota", i+1)
	}

	_, err = env.peers.Create(ctx, self, PeerInput{PublicKey: testPublicKey(t), OwnerID: user.ID})
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	count, err := env.rp.CountPeersByOwner(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)
}

func TestPeerService_Create_AdminQuotaExemptForSelf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := env.mustCreateAdmin(t)
	sub := authz.Subject{ID: admin.ID, Role: admin.Role}

	for i := 0; i < 6; i++ {
		_, err := env.peers.Create(ctx, sub, PeerInput{PublicKey: testPublicKey(t), OwnerID: admin.ID})
		require.NoError(t, err)
	}
}

func TestPeerService_Get_HidesFromStrangers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner, err := env.auth.Signup(ctx, uniqueUsername(), "Secret123", "")
	require.NoError(t, err)
	stranger, err := env.auth.Signup(ctx, uniqueUsername(), "Secret123", "")
	require.NoError(t, err)
	admin := env.mustCreateAdmin(t)

	profile, err := env.peers.Create(ctx, authz.Subject{ID: owner.ID, Role: owner.Role},
		PeerInput{PublicKey: testPublicKey(t), OwnerID: owner.ID})
	require.NoError(t, err)

	got, err := env.peers.Get(ctx, authz.Subject{ID: owner.ID, Role: owner.Role}, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, profile.PublicKey, got.PublicKey)

	_, err = env.peers.Get(ctx, authz.Subject{ID: admin.ID, Role: admin.Role}, profile.ID)
	assert.NoError(t, err)

	_, err = env.peers.Get(ctx, authz.Subject{ID: stranger.ID, Role: stranger.Role}, profile.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.peers.Get(ctx, authz.Subject{ID: owner.ID, Role: owner.Role}, 99999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPeerService_List_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Signup(ctx, uniqueUsername(), "Secret123", "")
	require.NoError(t, err)
	admin := env.mustCreateAdmin(t)

	_, err = env.peers.Create(ctx, authz.Subject{ID: user.ID, Role: user.Role},
		PeerInput{PublicKey: testPublicKey(t), OwnerID: user.ID})
	require.NoError(t, err)

	_, err = env.peers.List(ctx, authz.Subject{ID: user.ID, Role: user.Role})
	assert.ErrorIs(t, err, ErrForbidden)

	profiles, err := env.peers.List(ctx, authz.Subject{ID: admin.ID, Role: admin.Role})
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestPeerService_ListByOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner, err := env.auth.Signup(ctx, uniqueUsername(), "Secret123", "")
	require.NoError(t, err)
	stranger, err := env.auth.Signup(ctx, uniqueUsername(), "Secret123", "")
	require.NoError(t, err)

	self := authz.Subject{ID: owner.ID, Role: owner.Role}
	_, err = env.peers.Create(ctx, self, PeerInput{PublicKey: testPublicKey(t), OwnerID: owner.ID})
	require.NoError(t, err)

	profiles, err := env.peers.ListByOwner(ctx, self, owner.ID)
	require.NoError(t, err)
	assert.Len(t, profiles, 1)

	_, err = env.peers.ListByOwner(ctx, authz.Subject{ID: stranger.ID, Role: stranger.Role}, owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// No peers at all reads as not found, matching the rest of the hide rules.
	_, err = env.peers.ListByOwner(ctx, authz.Subject{ID: stranger.ID, Role: stranger.Role}, stranger.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPeerService_ListByOwnerUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner, err := env.auth.Signup(ctx, uniqueUsername(), "Secret123", "")
	require.NoError(t, err)
	stranger, err := env.auth.Signup(ctx, uniqueUsername(), "Secret123", "")
	require.NoError(t, err)
	admin := env.mustCreateAdmin(t)

	self := authz.Subject{ID: owner.ID, Role: owner.Role}
	_, err = env.peers.Create(ctx, self, PeerInput{PublicKey: testPublicKey(t), OwnerID: owner.ID})
	require.NoError(t, err)

	profiles, err := env.peers.ListByOwnerUsername(ctx, self, owner.Username)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, owner.Username, profiles[0].OwnerUsername)

	_, err = env.peers.ListByOwnerUsername(ctx, authz.Subject{ID: admin.ID, Role: admin.Role}, owner.Username)
	assert.NoError(t, err)

	// Unknown usernames and denied lookups are indistinguishable.
	_, err = env.peers.ListByOwnerUsername(ctx, authz.Subject{ID: stranger.ID, Role: stranger.Role}, owner.Username)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.peers.ListByOwnerUsername(ctx, self, "no-such-user")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPeerService_UpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner, err := env.auth.Signup(ctx, uniqueUsername(), "Secret123", "")
	require.NoError(t, err)
	stranger, err := env.auth.Signup(ctx, uniqueUsername(), "Secret123", "")
	require.NoError(t, err)

	self := authz.Subject{ID: owner.ID, Role: owner.Role}
	profile, err := env.peers.Create(ctx, self, PeerInput{
		PublicKey:  testPublicKey(t),
		AllowedIPs: "10.0.0.2/32",
		OwnerID:    owner.ID,
	})
	require.NoError(t, err)

	newKey := testPublicKey(t)
	require.NoError(t, env.peers.Update(ctx, self, profile.ID, PeerInput{
		PublicKey:         newKey,
		AllowedIPs:        "10.0.0.3/32",
		DeviceType:        models.DevicePhone,
		DeviceDescription: "old phone",
	}))

	got, err := env.peers.Get(ctx, self, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, newKey, got.PublicKey)
	assert.Equal(t, "10.0.0.3/32", got.AllowedIPs)
	assert.Equal(t, models.DevicePhone, got.DeviceType)
	assert.Equal(t, "old phone", got.DeviceDescription)

	err = env.peers.Update(ctx, self, profile.ID, PeerInput{PublicKey: newKey, DeviceType: "Fridge"})
	assert.ErrorIs(t, err, ErrValidation)

	err = env.peers.Delete(ctx, authz.Subject{ID: stranger.ID, Role: stranger.Role}, profile.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, env.peers.Delete(ctx, self, profile.ID))
	_, err = env.peers.Get(ctx, self, profile.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
