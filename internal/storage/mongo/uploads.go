package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type uploadDoc struct {
	ID        string    `bson:"_id"`
	URL       string    `bson:"url"`
	PublicID  string    `bson:"public_id"`
	Category  string    `bson:"category"`
	OwnerID   string    `bson:"owner_id"`
	CreatedBy string    `bson:"created_by"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d uploadDoc) model() (*models.Upload, error) {
	var ids [3]uuid.UUID
	for i, raw := range []string{d.ID, d.OwnerID, d.CreatedBy} {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("bad upload uuid %q: %w", raw, err)
		}
		ids[i] = id
	}

	return &models.Upload{
		ID:        ids[0],
		URL:       d.URL,
		PublicID:  d.PublicID,
		Category:  d.Category,
		OwnerID:   ids[1],
		CreatedBy: ids[2],
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}, nil
}

// SaveUpload сохраняет метаданные файла.
func (m *Mongo) SaveUpload(ctx context.Context, u *models.Upload) error {
	const op = "storage.mongo.SaveUpload"

	_, err := m.uploads.InsertOne(ctx, uploadDoc{
		ID:        u.ID.String(),
		URL:       u.URL,
		PublicID:  u.PublicID,
		Category:  u.Category,
		OwnerID:   u.OwnerID.String(),
		CreatedBy: u.CreatedBy.String(),
		CreatedAt: toMS(u.CreatedAt),
		UpdatedAt: toMS(u.UpdatedAt),
	})
	if err != nil {
		return mapErr(op, err)
	}

	return nil
}

// UploadByID находит загрузку владельца по ID.
func (m *Mongo) UploadByID(ctx context.Context, ownerID, id uuid.UUID) (*models.Upload, error) {
	const op = "storage.mongo.UploadByID"

	var doc uploadDoc
	err := m.uploads.FindOne(ctx, bson.D{
		{Key: "_id", Value: id.String()},
		{Key: "owner_id", Value: ownerID.String()},
	}).Decode(&doc)
	if err != nil {
		return nil, mapErr(op, err)
	}

	u, err := doc.model()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// UploadsByOwner возвращает загрузки владельца, новые первыми.
func (m *Mongo) UploadsByOwner(ctx context.Context, ownerID uuid.UUID, category string) ([]models.Upload, error) {
	const op = "storage.mongo.UploadsByOwner"

	f := bson.D{{Key: "owner_id", Value: ownerID.String()}}
	if category != "" {
		f = append(f, bson.E{Key: "category", Value: category})
	}

	cur, err := m.uploads.Find(ctx, f, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []uploadDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]models.Upload, 0, len(docs))
	for _, d := range docs {
		u, err := d.model()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *u)
	}

	return out, nil
}

// DeleteUploads удаляет загрузки по ID.
func (m *Mongo) DeleteUploads(ctx context.Context, ids []uuid.UUID) error {
	const op = "storage.mongo.DeleteUploads"

	if len(ids) == 0 {
		return nil
	}

	raw := make(bson.A, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}

	if _, err := m.uploads.DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: raw}}}}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
