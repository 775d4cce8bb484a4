package profile

import (
	"time"

	"github.com/careloop/careloop/internal/shared"
)

// Profile is the durable record of what the assistant knows about a user:
// display info plus a free-form map of remembered details (allergies,
// medications, preferences) accumulated through conversation.
type Profile struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`

	Name    string           `json:"name,omitempty"`
	Details shared.StringMap `gorm:"type:json" json:"details"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
