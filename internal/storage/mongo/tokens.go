package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-access-service/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// tokenDoc: запись токена. _id: хэш подписанной строки,
// поэтому уникальность токена обеспечивает первичный ключ.
type tokenDoc struct {
	Hash             string     `bson:"_id"`
	UserID           string     `bson:"user_id"`
	Type             string     `bson:"type"`
	GeneratedAuthID  string     `bson:"generated_auth_id,omitempty"`
	GeneratedAuthExp *time.Time `bson:"generated_auth_exp,omitempty"`
	ExpiresAt        time.Time  `bson:"expires_at"`
	Blacklisted      bool       `bson:"blacklisted"`
	CreatedAt        time.Time  `bson:"created_at"`
}

func toTokenDoc(t *models.Token) tokenDoc {
	return tokenDoc{
		Hash:             t.TokenHash,
		UserID:           t.UserID.String(),
		Type:             string(t.Type),
		GeneratedAuthID:  t.GeneratedAuthID,
		GeneratedAuthExp: toMSPtr(t.GeneratedAuthExp),
		ExpiresAt:        toMS(t.ExpiresAt),
		Blacklisted:      t.Blacklisted,
		CreatedAt:        toMS(t.CreatedAt),
	}
}

func (d tokenDoc) model() (*models.Token, error) {
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("bad user id %q: %w", d.UserID, err)
	}

	return &models.Token{
		TokenHash:        d.Hash,
		UserID:           userID,
		Type:             models.TokenType(d.Type),
		GeneratedAuthID:  d.GeneratedAuthID,
		GeneratedAuthExp: utcPtr(d.GeneratedAuthExp),
		ExpiresAt:        d.ExpiresAt.UTC(),
		Blacklisted:      d.Blacklisted,
		CreatedAt:        d.CreatedAt.UTC(),
	}, nil
}

// activeToken: фильтр неотозванного токена по тройке (hash, type, user).
func activeToken(hash string, typ models.TokenType, userID uuid.UUID) bson.D {
	return bson.D{
		{Key: "_id", Value: hash},
		{Key: "type", Value: string(typ)},
		{Key: "user_id", Value: userID.String()},
		{Key: "blacklisted", Value: false},
	}
}

func decodeToken(op string, doc tokenDoc) (*models.Token, error) {
	t, err := doc.model()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// SaveToken сохраняет токен.
func (m *Mongo) SaveToken(ctx context.Context, token *models.Token) error {
	const op = "storage.mongo.SaveToken"

	if _, err := m.tokens.InsertOne(ctx, toTokenDoc(token)); err != nil {
		return mapErr(op, err)
	}

	return nil
}

// TokenByHash находит неотозванный токен.
func (m *Mongo) TokenByHash(ctx context.Context, hash string, typ models.TokenType, userID uuid.UUID) (*models.Token, error) {
	const op = "storage.mongo.TokenByHash"

	var doc tokenDoc
	if err := m.tokens.FindOne(ctx, activeToken(hash, typ, userID)).Decode(&doc); err != nil {
		return nil, mapErr(op, err)
	}

	return decodeToken(op, doc)
}

// ConsumeToken атомарно находит и удаляет токен (findOneAndDelete).
func (m *Mongo) ConsumeToken(ctx context.Context, hash string, typ models.TokenType, userID uuid.UUID) (*models.Token, error) {
	const op = "storage.mongo.ConsumeToken"

	var doc tokenDoc
	if err := m.tokens.FindOneAndDelete(ctx, activeToken(hash, typ, userID)).Decode(&doc); err != nil {
		return nil, mapErr(op, err)
	}

	return decodeToken(op, doc)
}

// RefreshTokenForSession находит REFRESH-токен по generated_auth_id,
// иначе токен с ближайшим generated_auth_exp >= accessExp.
func (m *Mongo) RefreshTokenForSession(ctx context.Context, userID uuid.UUID, accessID string, accessExp time.Time) (*models.Token, error) {
	const op = "storage.mongo.RefreshTokenForSession"

	session := func() bson.D {
		return bson.D{
			{Key: "user_id", Value: userID.String()},
			{Key: "type", Value: string(models.TokenRefresh)},
			{Key: "blacklisted", Value: false},
		}
	}

	var doc tokenDoc

	if accessID != "" {
		exact := append(session(), bson.E{Key: "generated_auth_id", Value: accessID})
		err := m.tokens.FindOne(ctx, exact).Decode(&doc)
		if err == nil {
			return decodeToken(op, doc)
		}
		if !errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, mapErr(op, err)
		}
	}

	filter := append(session(), bson.E{Key: "generated_auth_exp", Value: bson.D{{Key: "$gte", Value: toMS(accessExp)}}})
	opts := options.FindOne().SetSort(bson.D{{Key: "generated_auth_exp", Value: 1}})

	if err := m.tokens.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		return nil, mapErr(op, err)
	}

	return decodeToken(op, doc)
}

// DeleteUserTokens удаляет все токены пользователя указанного типа.
func (m *Mongo) DeleteUserTokens(ctx context.Context, userID uuid.UUID, typ models.TokenType) (int64, error) {
	const op = "storage.mongo.DeleteUserTokens"

	res, err := m.tokens.DeleteMany(ctx, bson.D{
		{Key: "user_id", Value: userID.String()},
		{Key: "type", Value: string(typ)},
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.DeletedCount, nil
}

// DeleteExpiredTokens удаляет просроченные токены.
// TTL-индекс делает то же самое в фоне, но с задержкой до минуты.
func (m *Mongo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.mongo.DeleteExpiredTokens"

	res, err := m.tokens.DeleteMany(ctx, bson.D{
		{Key: "expires_at", Value: bson.D{{Key: "$lte", Value: toMS(now)}}},
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return res.DeletedCount, nil
}
