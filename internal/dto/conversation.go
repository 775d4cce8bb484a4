package dto

type TurnResponse struct {
	UserText          string `json:"user_text,omitempty" example:"how did I sleep this week"`
	BotText           string `json:"bot_text,omitempty" example:"Your average was seven hours."`
	AttachmentName    string `json:"attachment_name,omitempty" example:"labs.pdf"`
	GeneratedImageURL string `json:"generated_image_url,omitempty" example:"https://example.com/chart.png"`
	GeneratedDocument string `json:"generated_document,omitempty" example:"# Sleep Summary"`
	ToolCallCount     int    `json:"tool_call_count" example:"1"`
	CompletedAt       string `json:"completed_at" example:"2026-01-20T15:45:00Z"`
}

type ConversationResponse struct {
	SessionID string         `json:"session_id" example:"4f8b2c1d-5a6e-4f2b-9c3d-1e2f3a4b5c6d"`
	Turns     []TurnResponse `json:"turns"`
}
