package knowledge

import (
	"context"
	"errors"

	"github.com/qdrant/go-client/qdrant"
	"gorm.io/gorm"
)

const qdrantCollection = "health_chunks"

type Store struct {
	db     *gorm.DB
	qdrant *qdrant.Client
}

func NewStore(db *gorm.DB, qdrantClient *qdrant.Client) *Store {
	return &Store{
		db:     db,
		qdrant: qdrantClient,
	}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Chunk{})
}

// CreateBatch inserts all chunks of one document in a single transaction.
// Either every chunk lands or none do, so a query can never observe a
// half-ingested document.
func (s *Store) CreateBatch(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, chunk := range chunks {
			if err := tx.Create(chunk).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*Chunk, error) {
	var chunks []*Chunk
	err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).
		Order("document_id, seq").Find(&chunks).Error
	return chunks, err
}

func (s *Store) GetByDocument(ctx context.Context, ownerID, documentID string) ([]*Chunk, error) {
	var chunks []*Chunk
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND document_id = ?", ownerID, documentID).
		Order("seq").Find(&chunks).Error
	return chunks, err
}

// DeleteByDocument removes every chunk of the document and returns the IDs
// it removed so the vector mirror can be pruned. Deleting a document that
// was never ingested is a no-op.
func (s *Store) DeleteByDocument(ctx context.Context, ownerID, documentID string) ([]string, error) {
	chunks, err := s.GetByDocument(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.ID
	}

	err = s.db.WithContext(ctx).
		Delete(&Chunk{}, "owner_id = ? AND document_id = ?", ownerID, documentID).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Chunk{}).
		Where("owner_id = ?", ownerID).Count(&count).Error
	return count, err
}

func (s *Store) UpsertEmbeddings(ctx context.Context, chunks []*Chunk) error {
	if s.qdrant == nil {
		return errors.New("qdrant client not configured")
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, chunk := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ID),
			Vectors: qdrant.NewVectors(chunk.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"owner_id":    chunk.OwnerID,
				"document_id": chunk.DocumentID,
			}),
		})
	}

	_, err := s.qdrant.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: qdrantCollection,
		Points:         points,
	})
	return err
}

// SearchByEmbedding ranks the owner's chunks server-side in qdrant. The
// query path uses the in-process scan; this is the switch for corpora that
// outgrow it.
func (s *Store) SearchByEmbedding(ctx context.Context, ownerID string, embedding []float32, limit int) ([]*qdrant.ScoredPoint, error) {
	if s.qdrant == nil {
		return nil, errors.New("qdrant client not configured")
	}

	return s.qdrant.Query(ctx, &qdrant.QueryPoints{
		CollectionName: qdrantCollection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("owner_id", ownerID),
			},
		},
	})
}

func (s *Store) DeleteEmbeddings(ctx context.Context, chunkIDs []string) error {
	if s.qdrant == nil {
		return errors.New("qdrant client not configured")
	}

	ids := make([]*qdrant.PointId, len(chunkIDs))
	for i, id := range chunkIDs {
		ids[i] = qdrant.NewID(id)
	}

	_, err := s.qdrant.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: qdrantCollection,
		Points:         qdrant.NewPointsSelector(ids...),
	})
	return err
}
