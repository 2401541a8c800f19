package authz

import "errors"

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// Subject is the authenticated caller as seen by the guard.
type Subject struct {
	ID   uint
	Role string
}

type Action string

const (
	UserRead     Action = "user.read"
	UserList     Action = "user.list"
	UserUpdate   Action = "user.update"
	UserDelete   Action = "user.delete"
	UserPassword Action = "user.passwd"

	PeerCreate    Action = "peer.create"
	PeerRead      Action = "peer.read"
	PeerList      Action = "peer.list"
	PeerListOwner Action = "peer.list_owner"
	PeerUpdate    Action = "peer.update"
	PeerDelete    Action = "peer.delete"
)

// Policy describes how a single action is authorized. AdminOnly actions have
// no owner at all (collection listings). For the rest, the owner is always
// allowed and AdminBypass decides whether an admin may act on somebody
// else's resource. Admins deliberately get no bypass on peer.create: a peer
// is created by its owner or not at all.
type Policy struct {
	AdminOnly   bool
	AdminBypass bool
}

var policies = map[Action]Policy{
	UserRead:     {AdminBypass: true},
	UserList:     {AdminOnly: true},
	UserUpdate:   {AdminBypass: true},
	UserDelete:   {AdminBypass: true},
	UserPassword: {AdminBypass: true},

	PeerCreate:    {AdminBypass: false},
	PeerRead:      {AdminBypass: true},
	PeerList:      {AdminOnly: true},
	PeerListOwner: {AdminBypass: true},
	PeerUpdate:    {AdminBypass: true},
	PeerDelete:    {AdminBypass: true},
}

// Authorize decides whether sub may perform action against a resource owned
// by ownerID. ownerID is ignored for AdminOnly actions.
func Authorize(sub Subject, action Action, ownerID uint) error {
	if sub.ID == 0 || !isKnownRole(sub.Role) {
		return ErrUnauthenticated
	}

	p, ok := policies[action]
	if !ok {
		return ErrForbidden
	}

	if p.AdminOnly {
		if sub.Role == "admin" {
			return nil
		}
		return ErrForbidden
	}

	if sub.ID == ownerID {
		return nil
	}
	if p.AdminBypass && sub.Role == "admin" {
		return nil
	}
	return ErrForbidden
}

// CheckRoleChange guards privilege escalation: only admins may assign a role
// different from the target's current one, ownership notwithstanding.
func CheckRoleChange(sub Subject, currentRole, requestedRole string) error {
	if requestedRole == currentRole {
		return nil
	}
	if sub.Role != "admin" {
		return ErrForbidden
	}
	return nil
}

func isKnownRole(role string) bool {
	return role == "user" || role == "admin"
}
