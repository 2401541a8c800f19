package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"github.com/wgdash/wg-dashboard/internal/authz"
	"github.com/wgdash/wg-dashboard/internal/events"
	"github.com/wgdash/wg-dashboard/internal/logging"
	"github.com/wgdash/wg-dashboard/internal/models"
	"github.com/wgdash/wg-dashboard/internal/repo"
)

// WireGuard public keys are 32 bytes, which standard base64 always encodes
// as 44 characters.
const publicKeyLength = 44

type PeerService struct {
	Repo             *repo.GormRepo
	Quota            int
	AdminQuotaExempt bool
	Events           *events.Producer
}

func ValidatePublicKey(key string) error {
	if len(key) != publicKeyLength {
		return fmt.Errorf("%w: public key must be %d characters", ErrValidation, publicKeyLength)
	}
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("%w: public key is not a valid base64 key", ErrValidation)
	}
	return nil
}

// PeerInput carries the caller-supplied peer attributes. Update ignores
// OwnerID: a peer never changes hands.
type PeerInput struct {
	PublicKey         string
	AllowedIPs        string
	DeviceType        string
	DeviceDescription string
	OwnerID           uint
}

func (in PeerInput) validate() error {
	if err := ValidatePublicKey(in.PublicKey); err != nil {
		return err
	}
	if !models.IsValidDeviceType(in.DeviceType) {
		return fmt.Errorf("%w: device type %q is not valid", ErrValidation, in.DeviceType)
	}
	return nil
}

// Create registers a peer for in.OwnerID. Creation is owner-only: the
// policy table grants no admin bypass here, so an admin creating a peer
// for another user is rejected like anyone else.
func (s *PeerService) Create(ctx context.Context, actor authz.Subject, in PeerInput) (*repo.PeerProfile, error) {
	l := logging.FromContext(ctx).With("svc", "peer.create", "owner_id", in.OwnerID)

	if err := authz.Authorize(actor, authz.PeerCreate, in.OwnerID); err != nil {
		l.Warn("peer_create_denied", "actor_id", actor.ID)
		return nil, ErrForbidden
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	quota := s.Quota
	if s.AdminQuotaExempt && actor.Role == models.RoleAdmin {
		quota = 0
	}

	peer := &models.Peer{
		PublicKey:         in.PublicKey,
		AllowedIPs:        in.AllowedIPs,
		OwnerID:           in.OwnerID,
		DeviceType:        in.DeviceType,
		DeviceDescription: in.DeviceDescription,
	}
	if err := s.Repo.CreatePeer(ctx, peer, quota); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			return nil, fmt.Errorf("%w: public key already registered", ErrConflict)
		case errors.Is(err, repo.ErrPeerQuota):
			l.Warn("peer_quota_reached")
			return nil, ErrQuotaExceeded
		case errors.Is(err, repo.ErrOwnerNotFound):
			return nil, ErrNotFound
		}
		l.Error("peer_create_failed", "error", err)
		return nil, err
	}

	profile, err := s.Repo.GetPeerProfileByID(ctx, peer.ID)
	if err != nil {
		return nil, err
	}

	l.Info("peer_created", "peer_id", peer.ID)
	s.Events.Publish(ctx, events.PeerCreate, strconv.FormatUint(uint64(in.OwnerID), 10),
		map[string]any{"peer_id": peer.ID, "owner_id": in.OwnerID})
	return profile, nil
}

func (s *PeerService) Get(ctx context.Context, actor authz.Subject, id uint) (*repo.PeerProfile, error) {
	peer, err := s.Repo.GetPeerByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := authz.Authorize(actor, authz.PeerRead, peer.OwnerID); err != nil {
		// NotFound to hide that the peer exists at all.
		return nil, ErrNotFound
	}
	return s.Repo.GetPeerProfileByID(ctx, id)
}

func (s *PeerService) List(ctx context.Context, actor authz.Subject) ([]repo.PeerProfile, error) {
	if err := authz.Authorize(actor, authz.PeerList, 0); err != nil {
		return nil, ErrForbidden
	}
	return s.Repo.ListPeerProfiles(ctx)
}

func (s *PeerService) ListByOwner(ctx context.Context, actor authz.Subject, ownerID uint) ([]repo.PeerProfile, error) {
	if err := authz.Authorize(actor, authz.PeerListOwner, ownerID); err != nil {
		return nil, ErrNotFound
	}
	profiles, err := s.Repo.ListPeerProfilesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, ErrNotFound
	}
	return profiles, nil
}

// ListByOwnerUsername resolves the username first, then applies the same
// access rule as ListByOwner. Unknown usernames and denied lookups read
// the same from outside.
func (s *PeerService) ListByOwnerUsername(ctx context.Context, actor authz.Subject, username string) ([]repo.PeerProfile, error) {
	owner, err := s.Repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.ListByOwner(ctx, actor, owner.ID)
}

func (s *PeerService) Update(ctx context.Context, actor authz.Subject, id uint, in PeerInput) error {
	peer, err := s.Repo.GetPeerByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := authz.Authorize(actor, authz.PeerUpdate, peer.OwnerID); err != nil {
		return ErrNotFound
	}
	if err := in.validate(); err != nil {
		return err
	}

	if err := s.Repo.UpdatePeer(ctx, id, in.PublicKey, in.AllowedIPs, in.DeviceType, in.DeviceDescription); err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			return fmt.Errorf("%w: public key already registered", ErrConflict)
		case errors.Is(err, repo.ErrNotFound):
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *PeerService) Delete(ctx context.Context, actor authz.Subject, id uint) error {
	l := logging.FromContext(ctx).With("svc", "peer.delete", "peer_id", id)

	peer, err := s.Repo.GetPeerByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := authz.Authorize(actor, authz.PeerDelete, peer.OwnerID); err != nil {
		return ErrNotFound
	}

	if err := s.Repo.DeletePeer(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	l.Info("peer_deleted", "actor_id", actor.ID)
	s.Events.Publish(ctx, events.PeerDelete, strconv.FormatUint(uint64(peer.OwnerID), 10),
		map[string]any{"peer_id": id, "owner_id": peer.OwnerID})
	return nil
}
