package knowledge

import (
	"time"

	"github.com/careloop/careloop/internal/shared"
)

// Chunk is one indexed window of a health record document, stored with its
// embedding so queries can scan without re-embedding the corpus.
type Chunk struct {
	ID         string `gorm:"primaryKey" json:"id"`
	OwnerID    string `gorm:"not null;index" json:"owner_id"`
	DocumentID string `gorm:"not null;index:idx_owner_document" json:"document_id"`
	Seq        int    `gorm:"not null" json:"seq"`

	Content   string            `gorm:"type:text;not null" json:"content"`
	Embedding shared.FloatSlice `gorm:"type:json" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Match pairs a chunk with its similarity to the query embedding.
type Match struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}
