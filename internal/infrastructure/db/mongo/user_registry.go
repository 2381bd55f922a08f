package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/identity-service/internal/core/domain"
)

const usersCollection = "users"

// UserRegistry implements ports.UserRegistry on a MongoDB collection.
// Uniqueness of email and username relies on the indexes from EnsureIndexes.
type UserRegistry struct {
	coll *mongo.Collection
}

func NewUserRegistry(db *mongo.Database) *UserRegistry {
	return &UserRegistry{coll: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID           string `bson:"_id"`
	Email        string `bson:"email"`
	Username     string `bson:"username"`
	PasswordHash string `bson:"password_hash"`
	Role         string `bson:"role"`
	Active       bool   `bson:"is_active"`
	CreatedAt    int64  `bson:"created_at"`
	UpdatedAt    int64  `bson:"updated_at"`
}

func (r *UserRegistry) FindByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRegistry) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	cred, err := r.findOne(ctx, bson.M{"username": username})
	if err != nil {
		return nil, err
	}
	return &cred.User, nil
}

func (r *UserRegistry) FindByID(ctx context.Context, id string) (*domain.Credential, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRegistry) Create(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	doc := mongoUser{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: in.PasswordHash,
		Role:         string(in.Role),
		Active:       in.Active,
		CreatedAt:    now.UnixMilli(),
		UpdatedAt:    now.UnixMilli(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, mapWriteError("insert user", err)
	}

	cred, err := doc.credential()
	if err != nil {
		return nil, err
	}
	return &cred.User, nil
}

func (r *UserRegistry) UpdateProfile(ctx context.Context, id string, in domain.ProfileUpdate) (*domain.User, error) {
	return r.UpdateAdminFields(ctx, id, domain.AdminUpdate{Email: in.Email, Username: in.Username})
}

func (r *UserRegistry) UpdateAdminFields(ctx context.Context, id string, in domain.AdminUpdate) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC().UnixMilli()}
	if in.Email != nil {
		set["email"] = *in.Email
	}
	if in.Username != nil {
		set["username"] = *in.Username
	}
	if in.Role != nil {
		set["role"] = string(*in.Role)
	}
	if in.Active != nil {
		set["is_active"] = *in.Active
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var mu mongoUser
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFound("user not found")
		}
		return nil, mapWriteError("update user", err)
	}

	cred, err := mu.credential()
	if err != nil {
		return nil, err
	}
	return &cred.User, nil
}

func (r *UserRegistry) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"is_active":  active,
		"updated_at": time.Now().UTC().UnixMilli(),
	}})
	if err != nil {
		return domain.Internal("set user active", err)
	}
	if res.MatchedCount == 0 {
		return domain.NotFound("user not found")
	}
	return nil
}

// List returns identities newest first; _id breaks created_at ties.
func (r *UserRegistry) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, domain.Internal("list users", err)
	}
	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.Internal("decode users", err)
	}

	users := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		cred, err := d.credential()
		if err != nil {
			return nil, err
		}
		users = append(users, cred.User)
	}
	return users, nil
}

// EnsureIndexes creates the unique and ordering indexes on the users collection.
func (r *UserRegistry) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_unique")},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *UserRegistry) findOne(ctx context.Context, filter bson.M) (*domain.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFound("user not found")
		}
		return nil, domain.Internal("find user", err)
	}
	return mu.credential()
}

func (mu mongoUser) credential() (*domain.Credential, error) {
	role, err := domain.ParseRole(mu.Role)
	if err != nil {
		return nil, domain.Internal("decode user role", err)
	}
	return &domain.Credential{
		User: domain.User{
			ID:        mu.ID,
			Email:     mu.Email,
			Username:  mu.Username,
			Role:      role,
			Active:    mu.Active,
			CreatedAt: unixMilliToTime(mu.CreatedAt),
			UpdatedAt: unixMilliToTime(mu.UpdatedAt),
		},
		PasswordHash: mu.PasswordHash,
	}, nil
}

// mapWriteError turns unique index violations into conflicts.
func mapWriteError(op string, err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return domain.Internal(op, err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "email"):
		return domain.Conflict("email already exists")
	case strings.Contains(msg, "username"):
		return domain.Conflict("username already exists")
	default:
		return domain.Conflict("user already exists")
	}
}

func unixMilliToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ts).UTC()
}
