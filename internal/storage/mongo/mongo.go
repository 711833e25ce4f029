// Package mongo: реализация storage.Storage поверх MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pribylovaa/go-access-service/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection   = "users"
	rolesCollection   = "roles"
	tokensCollection  = "tokens"
	uploadsCollection = "uploads"
	defaultDBName     = "access"
)

// Mongo - тонкий адаптер для подключения и коллекций MongoDB.
type Mongo struct {
	client  *mongodriver.Client
	db      *mongodriver.Database
	users   *mongodriver.Collection
	roles   *mongodriver.Collection
	tokens  *mongodriver.Collection
	uploads *mongodriver.Collection
}

// New подключается к MongoDB, проверяет его, подготавливает коллекции и обеспечивает индексацию.
func New(ctx context.Context, uri string) (*Mongo, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: empty uri")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(databaseFromURI(uri))

	m := &Mongo{
		client:  cli,
		db:      db,
		users:   db.Collection(usersCollection),
		roles:   db.Collection(rolesCollection),
		tokens:  db.Collection(tokensCollection),
		uploads: db.Collection(uploadsCollection),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}

	return m, nil
}

// Close закрывает соединение.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Ping проверяет доступность primary (для /healthz).
func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// ensureIndexes создаёт индексы уникальности и выборок.
// - users: email (unique), phone (unique, sparse: у части аккаунтов телефона нет);
// - roles: name и value (unique);
// - tokens: _id = хэш токена, TTL по expires_at, выборки по user_id+type;
// - uploads: owner_id + category + created_at(desc).
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	set := []struct {
		coll   *mongodriver.Collection
		models []mongodriver.IndexModel
	}{
		{m.users, []mongodriver.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("uniq_email").SetUnique(true)},
			{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetName("uniq_phone").SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "role_id", Value: 1}, {Key: "is_deleted", Value: 1}}, Options: options.Index().SetName("role_deleted")},
			{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}, Options: options.Index().SetName("created_desc")},
		}},
		{m.roles, []mongodriver.IndexModel{
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetName("uniq_name").SetUnique(true)},
			{Keys: bson.D{{Key: "value", Value: 1}}, Options: options.Index().SetName("uniq_value").SetUnique(true)},
		}},
		{m.tokens, []mongodriver.IndexModel{
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetName("ttl_expires_at").SetExpireAfterSeconds(0)},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "type", Value: 1}, {Key: "generated_auth_exp", Value: 1}}, Options: options.Index().SetName("user_type_auth_exp")},
		}},
		{m.uploads, []mongodriver.IndexModel{
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "category", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("owner_category_created_desc")},
		}},
	}

	for _, s := range set {
		if _, err := s.coll.Indexes().CreateMany(ctx, s.models); err != nil {
			return fmt.Errorf("mongo ensure indexes %s: %w", s.coll.Name(), err)
		}
	}

	return nil
}

// databaseFromURI извлекает имя базы данных из URI-пути mongodb.
// Если оно отсутствует или не поддается расшифровке, возвращает значение по умолчанию.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}

	return defaultDBName
}

// mapErr переводит ошибки драйвера в sentinel-ошибки storage.
func mapErr(op string, err error) error {
	switch {
	case errors.Is(err, mongodriver.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	case mongodriver.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// MongoDB DateTime хранит миллисекунды.
func toMS(t time.Time) time.Time { return t.UTC().Truncate(time.Millisecond) }

func toMSPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := toMS(*t)

	return &v
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()

	return &v
}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Mongo)(nil)
