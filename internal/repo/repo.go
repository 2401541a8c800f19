package repo

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("duplicate record")
	ErrPeerQuota     = errors.New("peer quota reached")
	ErrTokenReused   = errors.New("refresh token already used")
	ErrTokenExpired  = errors.New("refresh token expired")
	ErrOwnerNotFound = errors.New("owner does not exist")
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

// translate folds driver-specific failures into the repo's sentinels.
// Postgres reports unique violations as pq code 23505, the sqlite driver
// used in tests as a plain "UNIQUE constraint failed" message.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	return err
}
