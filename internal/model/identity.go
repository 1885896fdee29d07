package model

import "github.com/google/uuid"

type Role string

const (
	RoleCitizen  Role = "citizen"
	RoleOfficial Role = "official"
	RoleAdmin    Role = "admin"
)

// Identity is the caller as established by the auth middleware. Anonymous
// sessions carry a display name and may have no UserID.
type Identity struct {
	UserID     *uuid.UUID
	Role       Role
	Name       string
	Anonymous  bool
	OfficialID *uuid.UUID
	IP         string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func (i Identity) IsOfficial() bool {
	return i.Role == RoleOfficial
}

// Authenticated is true for any token-bearing caller, anonymous sessions included.
func (i Identity) Authenticated() bool {
	return i.UserID != nil || (i.Anonymous && i.Name != "")
}

// VoterKey is the engagement identity: the user id when known, else the IP.
func (i Identity) VoterKey() string {
	if i.UserID != nil {
		return "user:" + i.UserID.String()
	}
	return "ip:" + i.IP
}
