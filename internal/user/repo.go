package user

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mhemon/emon-blog-server/internal/telemetry/tracing"
)

var _ userRepo = (*Repo)(nil)

type Repo struct {
	users *mongo.Collection
}

func NewRepo(db *mongo.Database) *Repo {
	return &Repo{
		users: db.Collection("users"),
	}
}

// EnsureIndexes makes the email a unique key, so two concurrent
// registrations of the same address cannot both insert.
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users email index: %w", err)
	}
	return nil
}

func (r *Repo) Add(ctx context.Context, u *User) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "userRepo.Add")
	defer span.End()

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}

	if _, err := r.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrUserExists
		}
		return err
	}

	log.Tracef("new user [%s] added", u.Email)
	return nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "userRepo.GetByEmail")
	defer span.End()

	var u User
	err := r.users.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &u, nil
}
