package model

import "time"

// UserRecord is the authoritative in-memory identity. Exactly one copy exists
// at runtime (owned by the session manager); the credential store keeps a
// durable mirror for restart survival.
type UserRecord struct {
	ID                 string            `json:"id"`
	Username           string            `json:"username"`
	Email              string            `json:"email"`
	AvatarURL          string            `json:"avatar_url,omitempty"`
	Bio                string            `json:"bio,omitempty"`
	Preferences        map[string]string `json:"preferences,omitempty"`
	MustChangeUsername bool              `json:"must_change_username,omitempty"`
	IsRestricted       bool              `json:"is_restricted,omitempty"`
	RestrictedUntil    *time.Time        `json:"restricted_until,omitempty"`
	CanPostOrReport    bool              `json:"can_post_or_report"`

	// Membership-derived fields, populated from the passport cache and
	// overwritten as a unit on every passport merge.
	Groups []GroupMembership `json:"groups,omitempty"`
	Roles  []string          `json:"roles,omitempty"`
}

// UserPatch is a partial user payload as returned by the backend (login,
// validate, /me) or produced by a local profile edit. Nil fields were absent
// from the payload and must not displace existing values.
type UserPatch struct {
	ID                 *string           `json:"id,omitempty"`
	Username           *string           `json:"username,omitempty"`
	Email              *string           `json:"email,omitempty"`
	AvatarURL          *string           `json:"avatar_url,omitempty"`
	Bio                *string           `json:"bio,omitempty"`
	Preferences        map[string]string `json:"preferences,omitempty"`
	MustChangeUsername *bool             `json:"must_change_username,omitempty"`
	IsRestricted       *bool             `json:"is_restricted,omitempty"`
	RestrictedUntil    *time.Time        `json:"restricted_until,omitempty"`
	CanPostOrReport    *bool             `json:"can_post_or_report,omitempty"`
}

// Apply shallow-merges the patch onto a copy of the record and returns it.
// Fields populated by other sources (passport merge, earlier edits) survive
// any partial update that does not carry them.
func (u UserRecord) Apply(p UserPatch) UserRecord {
	if p.ID != nil {
		u.ID = *p.ID
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Preferences != nil {
		u.Preferences = p.Preferences
	}
	if p.MustChangeUsername != nil {
		u.MustChangeUsername = *p.MustChangeUsername
	}
	if p.IsRestricted != nil {
		u.IsRestricted = *p.IsRestricted
	}
	if p.RestrictedUntil != nil {
		u.RestrictedUntil = p.RestrictedUntil
	}
	if p.CanPostOrReport != nil {
		u.CanPostOrReport = *p.CanPostOrReport
	}
	return u
}

// ApplyPassport overwrites only the membership-derived fields. Profile fields
// edited concurrently are left untouched.
func (u UserRecord) ApplyPassport(p Passport) UserRecord {
	u.Groups = p.Groups
	u.Roles = p.Roles
	return u
}
