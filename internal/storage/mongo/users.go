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

// userDoc: представление пользователя в коллекции users.
// Phone опускается, если пуст: уникальный sparse-индекс не учитывает такие документы.
type userDoc struct {
	ID              string     `bson:"_id"`
	FirstName       string     `bson:"first_name"`
	LastName        string     `bson:"last_name"`
	MiddleName      string     `bson:"middle_name,omitempty"`
	Email           string     `bson:"email"`
	Phone           string     `bson:"phone,omitempty"`
	PasswordHash    string     `bson:"password_hash"`
	RoleID          string     `bson:"role_id"`
	ProfileImg      string     `bson:"profile_img,omitempty"`
	IsPhoneVerified bool       `bson:"is_phone_verified"`
	IsEmailVerified bool       `bson:"is_email_verified"`
	Active          bool       `bson:"active"`
	FirstTimeLogin  bool       `bson:"first_time_login"`
	LastLogin       *time.Time `bson:"last_login,omitempty"`
	LastFailedLogin *time.Time `bson:"last_failed_login,omitempty"`
	Protected       bool       `bson:"protected"`
	IsDeleted       bool       `bson:"is_deleted"`
	DeletedAt       *time.Time `bson:"deleted_at,omitempty"`
	CreatedAt       time.Time  `bson:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"`
}

func toUserDoc(u *models.User) userDoc {
	return userDoc{
		ID:              u.ID.String(),
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		MiddleName:      u.MiddleName,
		Email:           u.Email,
		Phone:           u.Phone,
		PasswordHash:    u.PasswordHash,
		RoleID:          u.RoleID.String(),
		ProfileImg:      u.ProfileImg,
		IsPhoneVerified: u.IsPhoneVerified,
		IsEmailVerified: u.IsEmailVerified,
		Active:          u.Active,
		FirstTimeLogin:  u.FirstTimeLogin,
		LastLogin:       toMSPtr(u.LastLogin),
		LastFailedLogin: toMSPtr(u.LastFailedLogin),
		Protected:       u.Protected,
		IsDeleted:       u.IsDeleted,
		DeletedAt:       toMSPtr(u.DeletedAt),
		CreatedAt:       toMS(u.CreatedAt),
		UpdatedAt:       toMS(u.UpdatedAt),
	}
}

func (d userDoc) model() (*models.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("bad user id %q: %w", d.ID, err)
	}

	roleID, err := uuid.Parse(d.RoleID)
	if err != nil {
		return nil, fmt.Errorf("bad role id %q: %w", d.RoleID, err)
	}

	return &models.User{
		ID:              id,
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		MiddleName:      d.MiddleName,
		Email:           d.Email,
		Phone:           d.Phone,
		PasswordHash:    d.PasswordHash,
		RoleID:          roleID,
		ProfileImg:      d.ProfileImg,
		IsPhoneVerified: d.IsPhoneVerified,
		IsEmailVerified: d.IsEmailVerified,
		Active:          d.Active,
		FirstTimeLogin:  d.FirstTimeLogin,
		LastLogin:       utcPtr(d.LastLogin),
		LastFailedLogin: utcPtr(d.LastFailedLogin),
		Protected:       d.Protected,
		IsDeleted:       d.IsDeleted,
		DeletedAt:       utcPtr(d.DeletedAt),
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}, nil
}

// alive: фильтр по неудалённым пользователям.
func alive(f bson.D) bson.D {
	return append(f, bson.E{Key: "is_deleted", Value: false})
}

func (m *Mongo) findUser(ctx context.Context, op string, filter bson.D) (*models.User, error) {
	var doc userDoc
	if err := m.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapErr(op, err)
	}

	u, err := doc.model()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// SaveUser создаёт пользователя.
func (m *Mongo) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.mongo.SaveUser"

	if _, err := m.users.InsertOne(ctx, toUserDoc(user)); err != nil {
		return mapErr(op, err)
	}

	return nil
}

// UserByID находит неудалённого пользователя по ID.
func (m *Mongo) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.mongo.UserByID"

	return m.findUser(ctx, op, alive(bson.D{{Key: "_id", Value: id.String()}}))
}

// UserByIdentifier находит неудалённого пользователя по email или телефону.
func (m *Mongo) UserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	const op = "storage.mongo.UserByIdentifier"

	return m.findUser(ctx, op, alive(bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "email", Value: identifier}},
		bson.D{{Key: "phone", Value: identifier}},
	}}}))
}

// UpdateUser перезаписывает изменяемые поля. created_at не трогается.
func (m *Mongo) UpdateUser(ctx context.Context, user *models.User) error {
	const op = "storage.mongo.UpdateUser"

	doc := toUserDoc(user)
	set := bson.D{
		{Key: "first_name", Value: doc.FirstName},
		{Key: "last_name", Value: doc.LastName},
		{Key: "middle_name", Value: doc.MiddleName},
		{Key: "email", Value: doc.Email},
		{Key: "password_hash", Value: doc.PasswordHash},
		{Key: "role_id", Value: doc.RoleID},
		{Key: "profile_img", Value: doc.ProfileImg},
		{Key: "is_phone_verified", Value: doc.IsPhoneVerified},
		{Key: "is_email_verified", Value: doc.IsEmailVerified},
		{Key: "active", Value: doc.Active},
		{Key: "first_time_login", Value: doc.FirstTimeLogin},
		{Key: "protected", Value: doc.Protected},
		{Key: "updated_at", Value: doc.UpdatedAt},
	}

	update := bson.D{}
	if doc.Phone != "" {
		set = append(set, bson.E{Key: "phone", Value: doc.Phone})
	} else {
		update = append(update, bson.E{Key: "$unset", Value: bson.D{{Key: "phone", Value: ""}}})
	}
	update = append(update, bson.E{Key: "$set", Value: set})

	res, err := m.users.UpdateOne(ctx, alive(bson.D{{Key: "_id", Value: doc.ID}}), update)
	if err != nil {
		return mapErr(op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// RecordLogin выставляет last_login или last_failed_login.
func (m *Mongo) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time, success bool) error {
	const op = "storage.mongo.RecordLogin"

	field := "last_failed_login"
	if success {
		field = "last_login"
	}

	res, err := m.users.UpdateOne(ctx, alive(bson.D{{Key: "_id", Value: id.String()}}),
		bson.D{{Key: "$set", Value: bson.D{{Key: field, Value: toMS(at)}}}})
	if err != nil {
		return mapErr(op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// SoftDeleteUser помечает пользователя удалённым.
func (m *Mongo) SoftDeleteUser(ctx context.Context, id uuid.UUID, at time.Time) error {
	const op = "storage.mongo.SoftDeleteUser"

	at = toMS(at)
	res, err := m.users.UpdateOne(ctx, alive(bson.D{{Key: "_id", Value: id.String()}}),
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "is_deleted", Value: true},
			{Key: "active", Value: false},
			{Key: "deleted_at", Value: at},
			{Key: "updated_at", Value: at},
		}}})
	if err != nil {
		return mapErr(op, err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// ListUsers возвращает неудалённых пользователей по фильтру.
func (m *Mongo) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, error) {
	const op = "storage.mongo.ListUsers"

	f := alive(bson.D{})
	if !filter.IncludeProtected {
		f = append(f, bson.E{Key: "protected", Value: false})
	}
	if filter.RoleID != uuid.Nil {
		f = append(f, bson.E{Key: "role_id", Value: filter.RoleID.String()})
	}
	if filter.Active != nil {
		f = append(f, bson.E{Key: "active", Value: *filter.Active})
	}
	if len(filter.IDs) > 0 {
		ids := make(bson.A, 0, len(filter.IDs))
		for _, id := range filter.IDs {
			ids = append(ids, id.String())
		}
		f = append(f, bson.E{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		or := bson.A{}
		for _, field := range []string{"first_name", "last_name", "middle_name", "email", "phone"} {
			or = append(or, bson.D{{Key: field, Value: re}})
		}
		f = append(f, bson.E{Key: "$or", Value: or})
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	applyPage(opts, filter.Page)

	cur, err := m.users.Find(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]models.User, 0, len(docs))
	for _, d := range docs {
		u, err := d.model()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, *u)
	}

	return out, nil
}

// CountUsersByRole считает неудалённых пользователей роли.
func (m *Mongo) CountUsersByRole(ctx context.Context, roleID uuid.UUID) (int64, error) {
	const op = "storage.mongo.CountUsersByRole"

	n, err := m.users.CountDocuments(ctx, alive(bson.D{{Key: "role_id", Value: roleID.String()}}))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

func applyPage(opts *options.FindOptions, p models.Page) {
	if p.Offset > 0 {
		opts.SetSkip(int64(p.Offset))
	}
	if p.Limit > 0 {
		opts.SetLimit(int64(p.Limit))
	}
}
