package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/wgdash/wg-dashboard/internal/models"
)

// PeerProfile is a peer joined with its owner's identity, the shape handed
// back to API callers.
type PeerProfile struct {
	ID                uint   `json:"id"`
	PublicKey         string `json:"publickey"`
	AllowedIPs        string `json:"allowedips"`
	OwnerID           uint   `json:"ownerid"`
	DeviceType        string `json:"devicetype"`
	DeviceDescription string `json:"devicedescription"`
	OwnerUsername     string `json:"owner_username"`
	OwnerName         string `json:"owner_name"`
}

const peerProfileSelect = "peers.id, peers.public_key, peers.allowed_ips, peers.owner_id, " +
	"peers.device_type, peers.device_description, " +
	"users.username AS owner_username, users.name AS owner_name"

// CreatePeer inserts the peer with the owner-existence, key-uniqueness and
// quota checks in one transaction. maxPeers <= 0 disables the quota.
func (r *GormRepo) CreatePeer(ctx context.Context, p *models.Peer, maxPeers int) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owners int64
		if err := tx.Model(&models.User{}).Where("id = ?", p.OwnerID).Count(&owners).Error; err != nil {
			return translate(err)
		}
		if owners == 0 {
			return ErrOwnerNotFound
		}

		var taken int64
		if err := tx.Model(&models.Peer{}).Where("public_key = ?", p.PublicKey).Count(&taken).Error; err != nil {
			return translate(err)
		}
		if taken > 0 {
			return ErrDuplicate
		}

		if maxPeers > 0 {
			var owned int64
			if err := tx.Model(&models.Peer{}).Where("owner_id = ?", p.OwnerID).Count(&owned).Error; err != nil {
				return translate(err)
			}
			if owned >= int64(maxPeers) {
				return ErrPeerQuota
			}
		}

		return translate(tx.Create(p).Error)
	})
}

func (r *GormRepo) GetPeerByID(ctx context.Context, id uint) (*models.Peer, error) {
	var peer models.Peer
	if err := r.DB.WithContext(ctx).First(&peer, id).Error; err != nil {
		return nil, translate(err)
	}
	return &peer, nil
}

func (r *GormRepo) GetPeerProfileByID(ctx context.Context, id uint) (*PeerProfile, error) {
	var profile PeerProfile
	err := r.DB.WithContext(ctx).Model(&models.Peer{}).
		Select(peerProfileSelect).
		Joins("JOIN users ON users.id = peers.owner_id").
		Where("peers.id = ?", id).
		First(&profile).Error
	if err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r *GormRepo) ListPeerProfiles(ctx context.Context) ([]PeerProfile, error) {
	var profiles []PeerProfile
	err := r.DB.WithContext(ctx).Model(&models.Peer{}).
		Select(peerProfileSelect).
		Joins("JOIN users ON users.id = peers.owner_id").
		Order("peers.id").
		Find(&profiles).Error
	if err != nil {
		return nil, translate(err)
	}
	return profiles, nil
}

func (r *GormRepo) ListPeerProfilesByOwner(ctx context.Context, ownerID uint) ([]PeerProfile, error) {
	var profiles []PeerProfile
	err := r.DB.WithContext(ctx).Model(&models.Peer{}).
		Select(peerProfileSelect).
		Joins("JOIN users ON users.id = peers.owner_id").
		Where("peers.owner_id = ?", ownerID).
		Order("peers.id").
		Find(&profiles).Error
	if err != nil {
		return nil, translate(err)
	}
	return profiles, nil
}

// UpdatePeer rewrites the peer's mutable fields, re-checking key
// uniqueness against every other peer inside the transaction.
func (r *GormRepo) UpdatePeer(ctx context.Context, id uint, publicKey, allowedIPs, deviceType, deviceDescription string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.Peer{}).
			Where("public_key = ? AND id <> ?", publicKey, id).
			Count(&taken).Error; err != nil {
			return translate(err)
		}
		if taken > 0 {
			return ErrDuplicate
		}

		res := tx.Model(&models.Peer{}).Where("id = ?", id).Updates(map[string]any{
			"public_key":         publicKey,
			"allowed_ips":        allowedIPs,
			"device_type":        deviceType,
			"device_description": deviceDescription,
		})
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *GormRepo) DeletePeer(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Peer{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormRepo) CountPeersByOwner(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Peer{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error
	return count, translate(err)
}
