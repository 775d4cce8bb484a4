package dto

type UpdateProfileDetailsRequest struct {
	Details map[string]string `json:"details" example:"allergy:peanuts"`
}

type ProfileResponse struct {
	ID        string            `json:"id" example:"prof_abc123"`
	UserID    string            `json:"user_id" example:"usr_abc123"`
	Name      string            `json:"name,omitempty" example:"Alex"`
	Details   map[string]string `json:"details"`
	CreatedAt string            `json:"created_at" example:"2026-01-15T10:30:00Z"`
	UpdatedAt string            `json:"updated_at" example:"2026-01-20T15:45:00Z"`
}
