package blog

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mhemon/emon-blog-server/internal/telemetry/tracing"
)

// All mutations of shared array fields (likes, comments, page views) go
// through server-side update operators, never load-mutate-store, so
// concurrent writers on the same document cannot lose each other's update.

var _ blogRepo = (*Repo)(nil)

type Repo struct {
	blogs *mongo.Collection
}

func NewRepo(db *mongo.Database) *Repo {
	return &Repo{
		blogs: db.Collection("blogs"),
	}
}

func (r *Repo) Add(ctx context.Context, blog *Blog) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.Add")
	defer span.End()

	if blog.Title == "" || blog.Details == "" {
		return ErrBlogTitleOrDetailsEmpty
	}

	if blog.ID.IsZero() {
		blog.ID = primitive.NewObjectID()
	}
	if blog.CreatedAt.IsZero() {
		blog.CreatedAt = time.Now()
	}

	// defaults are set explicitly, the caller payload is not trusted
	blog.PageView = 0
	blog.Likes = []string{}
	blog.Comments = []Comment{}

	if _, err := r.blogs.InsertOne(ctx, blog); err != nil {
		return err
	}

	log.Tracef("new blog %s: [%s] added", blog.ID.Hex(), blog.Title)
	return nil
}

func (r *Repo) All(ctx context.Context) ([]*Blog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.All")
	defer span.End()

	cursor, err := r.blogs.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	var blogs []*Blog
	if err := cursor.All(ctx, &blogs); err != nil {
		return nil, err
	}
	return blogs, nil
}

func (r *Repo) ByAuthor(ctx context.Context, authorEmail string) ([]*Blog, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.ByAuthor")
	span.SetAttributes(attribute.String("authorEmail", authorEmail))
	defer span.End()

	cursor, err := r.blogs.Find(ctx, bson.M{"authorEmail": authorEmail})
	if err != nil {
		return nil, err
	}

	var blogs []*Blog
	if err := cursor.All(ctx, &blogs); err != nil {
		return nil, err
	}
	return blogs, nil
}

// Update sets the title and details of the blog. The filter includes the
// owner email, so a caller holding a foreign blog id cannot touch it.
func (r *Repo) Update(ctx context.Context, id primitive.ObjectID, ownerEmail, title, details string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.Update")
	span.SetAttributes(attribute.String("id", id.Hex()))
	defer span.End()

	if title == "" || details == "" {
		return ErrBlogTitleOrDetailsEmpty
	}

	res, err := r.blogs.UpdateOne(
		ctx,
		bson.M{"_id": id, "authorEmail": ownerEmail},
		bson.M{"$set": bson.M{"blogTitle": title, "blogDetails": details}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrBlogNotFound
	}

	return nil
}

// Delete removes the blog, filtered by both id and owner email.
func (r *Repo) Delete(ctx context.Context, id primitive.ObjectID, ownerEmail string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.Delete")
	span.SetAttributes(attribute.String("id", id.Hex()))
	defer span.End()

	res, err := r.blogs.DeleteOne(ctx, bson.M{"_id": id, "authorEmail": ownerEmail})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrBlogNotFound
	}

	return nil
}

// ToggleLike removes the user's email from the likes set when present,
// adds it otherwise, and returns the like count after the toggle. Both
// branches are single atomic server-side operations.
func (r *Repo) ToggleLike(ctx context.Context, id primitive.ObjectID, userEmail string) (int, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.ToggleLike")
	span.SetAttributes(attribute.String("id", id.Hex()))
	defer span.End()

	// matches only when the user already likes the blog
	res, err := r.blogs.UpdateOne(
		ctx,
		bson.M{"_id": id, "likes": userEmail},
		bson.M{"$pull": bson.M{"likes": userEmail}},
	)
	if err != nil {
		return 0, err
	}

	if res.MatchedCount == 0 {
		res, err = r.blogs.UpdateOne(
			ctx,
			bson.M{"_id": id},
			bson.M{"$addToSet": bson.M{"likes": userEmail}},
		)
		if err != nil {
			return 0, err
		}
		if res.MatchedCount == 0 {
			return 0, ErrBlogNotFound
		}
	}

	var b Blog
	if err := r.blogs.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrBlogNotFound
		}
		return 0, err
	}

	return len(b.Likes), nil
}

// AddComment appends the comment at the end of the sequence via $push,
// preserving the order of everything already there.
func (r *Repo) AddComment(ctx context.Context, id primitive.ObjectID, comment Comment) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.AddComment")
	span.SetAttributes(attribute.String("id", id.Hex()))
	defer span.End()

	res, err := r.blogs.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$push": bson.M{"comment": comment}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrBlogNotFound
	}

	return nil
}

// IncrementPageViews bumps the page view counter of all given blogs by
// one, in a single server-side update.
func (r *Repo) IncrementPageViews(ctx context.Context, ids []primitive.ObjectID) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "blogRepo.IncrementPageViews")
	defer span.End()

	if len(ids) == 0 {
		return nil
	}

	_, err := r.blogs.UpdateMany(
		ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$inc": bson.M{"pageView": 1}},
	)
	return err
}
