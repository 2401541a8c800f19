package models

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"uniqueIndex;not null"     json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Name         string `json:"name"`
	Role         string `gorm:"not null"                 json:"role"`
}

const (
	DevicePC     = "PC"
	DeviceLaptop = "Laptop"
	DeviceMac    = "Mac"
	DevicePhone  = "Phone"
	DeviceOther  = "Other"
)

// IsValidDeviceType accepts the known device labels. Empty means the
// owner did not say what the peer runs on, which is fine.
func IsValidDeviceType(t string) bool {
	switch t {
	case "", DevicePC, DeviceLaptop, DeviceMac, DevicePhone, DeviceOther:
		return true
	}
	return false
}

type Peer struct {
	ID                uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	PublicKey         string `gorm:"uniqueIndex;not null"     json:"publickey"`
	AllowedIPs        string `json:"allowedips"`
	OwnerID           uint   `gorm:"index;not null"           json:"ownerid"`
	DeviceType        string `gorm:"size:20"                  json:"devicetype"`
	DeviceDescription string `gorm:"size:100"                 json:"devicedescription"`
}

// RefreshToken is one link of a rotation chain. The raw token value never
// touches the database, only its sha256 digest. Every successor inherits
// ChainID so a reused link can take the whole chain down with it.
type RefreshToken struct {
	ID           uint   `gorm:"primaryKey"           json:"id"`
	TokenHash    string `gorm:"uniqueIndex;not null" json:"-"`
	UserID       uint   `gorm:"index;not null"       json:"user_id"`
	ChainID      string `gorm:"index;not null"       json:"chain_id"`
	IssuedAt     int64  `gorm:"not null"             json:"issued_at"`
	ExpiresAt    int64  `gorm:"not null"             json:"expires_at"`
	Used         bool   `gorm:"default:false"        json:"used"`
	SupersededBy *uint  `json:"superseded_by,omitempty"`
}
