package models

import "time"

// ParentProfile is the profile of a parent account. It is keyed by the
// owning durable account's id; exactly one profile exists per parent
// account and it is created at sign-up.
type ParentProfile struct {
	AccountID string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
