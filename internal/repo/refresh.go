package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/wgdash/wg-dashboard/internal/models"
)

func (r *GormRepo) InsertRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return translate(r.DB.WithContext(ctx).Create(t).Error)
}

func (r *GormRepo) FindRefreshTokenByHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&token).Error; err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

// RotateRefreshToken redeems the token stored under tokenHash and installs
// successor as the next link of the chain, all in one transaction.
//
// The redeem itself is a compare-and-swap on the Used flag: of two
// concurrent redemptions of the same token exactly one flips it and wins,
// the other takes the reuse path. Presenting a token that was already
// spent burns the entire chain, since a replayed refresh token means the
// value leaked to a second party.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, tokenHash string, successor *models.RefreshToken) (*models.RefreshToken, error) {
	var redeemed models.RefreshToken
	var reused bool

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_hash = ?", tokenHash).First(&redeemed).Error; err != nil {
			return translate(err)
		}

		if redeemed.ExpiresAt < time.Now().Unix() {
			return ErrTokenExpired
		}

		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND used = ?", redeemed.ID, false).
			Update("used", true)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			// Reuse detected: invalidate every link of the chain. The
			// transaction must commit for the revocation to stick, so the
			// reuse itself is reported through the flag, not the error.
			reused = true
			return translate(tx.Model(&models.RefreshToken{}).
				Where("chain_id = ?", redeemed.ChainID).
				Update("used", true).Error)
		}

		successor.UserID = redeemed.UserID
		successor.ChainID = redeemed.ChainID
		if err := tx.Create(successor).Error; err != nil {
			return translate(err)
		}

		return translate(tx.Model(&models.RefreshToken{}).
			Where("id = ?", redeemed.ID).
			Update("superseded_by", successor.ID).Error)
	})
	if err != nil {
		return nil, err
	}
	if reused {
		return nil, ErrTokenReused
	}
	return &redeemed, nil
}

// RevokeRefreshChain marks every token sharing the chain of tokenHash as
// used. Explicit logout lands here.
func (r *GormRepo) RevokeRefreshChain(ctx context.Context, tokenHash string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var token models.RefreshToken
		if err := tx.Where("token_hash = ?", tokenHash).First(&token).Error; err != nil {
			return translate(err)
		}
		return translate(tx.Model(&models.RefreshToken{}).
			Where("chain_id = ?", token.ChainID).
			Update("used", true).Error)
	})
}
