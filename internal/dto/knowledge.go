package dto

type IngestDocumentRequest struct {
	OwnerID    string `json:"owner_id" example:"usr_abc123"`
	DocumentID string `json:"document_id,omitempty" example:"doc_labs_2026"`
	Text       string `json:"text" example:"Lab results from the annual checkup..."`
}

type IngestDocumentResponse struct {
	DocumentID string `json:"document_id" example:"doc_labs_2026"`
	Chunks     int    `json:"chunks" example:"4"`
}

type KnowledgeQueryRequest struct {
	OwnerID string `json:"owner_id" example:"usr_abc123"`
	Query   string `json:"query" example:"what did my last blood test say"`
	Limit   int    `json:"limit,omitempty" example:"3"`
}

type KnowledgeMatch struct {
	DocumentID string  `json:"document_id" example:"doc_labs_2026"`
	Seq        int     `json:"seq" example:"0"`
	Content    string  `json:"content" example:"Cholesterol within normal range..."`
	Score      float32 `json:"score" example:"0.91"`
}

type KnowledgeQueryResponse struct {
	Matches []KnowledgeMatch `json:"matches"`
}

type KnowledgeStatsResponse struct {
	OwnerID string `json:"owner_id" example:"usr_abc123"`
	Chunks  int64  `json:"chunks" example:"42"`
}
