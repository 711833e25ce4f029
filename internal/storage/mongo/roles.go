package mongo

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/models"
	"github.com/pribylovaa/go-access-service/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type roleDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Value       string    `bson:"value"`
	Active      bool      `bson:"active"`
	Permissions []string  `bson:"permissions"`
	Protected   bool      `bson:"protected"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toRoleDoc(r *models.Role) roleDoc {
	perms := r.Permissions
	if perms == nil {
		perms = []string{}
	}

	return roleDoc{
		ID:          r.ID.String(),
		Name:        r.Name,
		Value:       r.Value,
		Active:      r.Active,
		Permissions: perms,
		Protected:   r.Protected,
		CreatedAt:   toMS(r.CreatedAt),
		UpdatedAt:   toMS(r.UpdatedAt),
	}
}

func (d roleDoc) model() (*models.Role, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("bad role id %q: %w", d.ID, err)
	}

	return &models.Role{
		ID:          id,
		Name:        d.Name,
		Value:       d.Value,
		Active:      d.Active,
		Permissions: d.Permissions,
		Protected:   d.Protected,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

func (m *Mongo) findRole(ctx context.Context, op string, filter bson.D) (*models.Role, error) {
	var doc roleDoc
	if err := m.roles.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapErr(op, err)
	}

	r, err := doc.model()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r, nil
}

// SaveRole создаёт роль.
func (m *Mongo) SaveRole(ctx context.Context, role *models.Role) error {
	const op = "storage.mongo.SaveRole"

	if _, err := m.roles.InsertOne(ctx, toRoleDoc(role)); err != nil {
		return mapErr(op, err)
	}

	return nil
}

// RoleByID находит роль по ID.
func (m *Mongo) RoleByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	const op = "storage.mongo.RoleByID"

	return m.findRole(ctx, op, bson.D{{Key: "_id", Value: id.String()}})
}

// RoleByValue находит роль по value.
func (m *Mongo) RoleByValue(ctx context.Context, value string) (*models.Role, error) {
	const op = "storage.mongo.RoleByValue"

	return m.findRole(ctx, op, bson.D{{Key: "value", Value: value}})
}

// UpdateRole перезаписывает изменяемые поля роли.
func (m *Mongo) UpdateRole(ctx context.Context, role *models.Role) error {
	const op = "storage.mongo.UpdateRole"

	doc := toRoleDoc(role)
	res, err := m.roles.UpdateOne(ctx, bson.D{{Key: "_id", Value: doc.ID}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "name", Value: doc.Name},
			{Key: "value", Value: doc.Value},
			{Key: "active", Value: doc.Active},
			{Key: "permissions", Value: doc.Permissions},
			{Key: "protected", Value: doc.Protected},
			{Key: "updated_at", Value: doc.UpdatedAt},
		}}})
	if err != nil {
		return mapErr(op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteRole удаляет роль.
func (m *Mongo) DeleteRole(ctx context.Context, id uuid.UUID) error {
	const op = "storage.mongo.DeleteRole"

	res, err := m.roles.DeleteOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ListRoles возвращает роли по фильтру, отсортированные по имени.
func (m *Mongo) ListRoles(ctx context.Context, filter models.RoleFilter) ([]models.Role, error) {
	const op = "storage.mongo.ListRoles"

	f := bson.D{}
	if len(filter.ExcludeValues) > 0 {
		f = append(f, bson.E{Key: "value", Value: bson.D{{Key: "$nin", Value: filter.ExcludeValues}}})
	}
	if filter.Active != nil {
		f = append(f, bson.E{Key: "active", Value: *filter.Active})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		f = append(f, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: re}},
			bson.D{{Key: "value", Value: re}},
		}})
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	applyPage(opts, filter.Page)

	cur, err := m.roles.Find(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []roleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]models.Role, 0, len(docs))
	for _, d := range docs {
		r, err := d.model()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *r)
	}

	return out, nil
}
