package models

import "time"

// ChildProfile is a child managed by a parent. The id is store-generated
// and distinct from any account id; ParentID never changes after creation.
//
// Pairing state is carried by two nullable fields: an active one-time
// PairingCode, or a bound DeviceID (the ephemeral account id of the
// child's installation). A successful redemption clears the code in the
// same write that sets the device.
type ChildProfile struct {
	ID                   string     `json:"id"`
	ParentID             string     `json:"parent_id"`
	Name                 string     `json:"name"`
	AvatarURL            string     `json:"avatar_url,omitempty"`
	Points               int        `json:"points"`
	CompletedTasks       int        `json:"completed_tasks"`
	RedeemedRewards      int        `json:"redeemed_rewards"`
	PairingCode          *string    `json:"-"`
	PairingCodeIssuedAt  *time.Time `json:"-"`
	PairingCodeExpiresAt *time.Time `json:"-"`
	DeviceID             *string    `json:"device_id,omitempty"`
	LastPairedAt         *time.Time `json:"last_paired_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// IsPaired reports whether a device is bound to this profile.
func (c *ChildProfile) IsPaired() bool {
	return c.DeviceID != nil && *c.DeviceID != ""
}

// HasActiveCode reports whether an unexpired pairing code is set at the
// given instant.
func (c *ChildProfile) HasActiveCode(now time.Time) bool {
	if c.PairingCode == nil || *c.PairingCode == "" {
		return false
	}
	if c.PairingCodeExpiresAt != nil && now.After(*c.PairingCodeExpiresAt) {
		return false
	}
	return true
}
