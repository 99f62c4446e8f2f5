package blog

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ blogRepo = (*repoMock)(nil)

type repoMock struct {
	Posts map[primitive.ObjectID]*Blog
	mutex sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Posts: make(map[primitive.ObjectID]*Blog),
	}
}

func (r *repoMock) PostsCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.Posts)
}

func (r *repoMock) Add(_ context.Context, blog *Blog) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if blog.Title == "" || blog.Details == "" {
		return ErrBlogTitleOrDetailsEmpty
	}

	if blog.ID.IsZero() {
		blog.ID = primitive.NewObjectID()
	}

	blog.PageView = 0
	blog.Likes = []string{}
	blog.Comments = []Comment{}

	r.Posts[blog.ID] = blog
	return nil
}

func (r *repoMock) All(_ context.Context) ([]*Blog, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var blogs []*Blog
	for id := range r.Posts {
		blogs = append(blogs, r.Posts[id])
	}
	return blogs, nil
}

func (r *repoMock) ByAuthor(_ context.Context, authorEmail string) ([]*Blog, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var blogs []*Blog
	for id := range r.Posts {
		if r.Posts[id].AuthorEmail == authorEmail {
			blogs = append(blogs, r.Posts[id])
		}
	}
	return blogs, nil
}

func (r *repoMock) Update(_ context.Context, id primitive.ObjectID, ownerEmail, title, details string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if title == "" || details == "" {
		return ErrBlogTitleOrDetailsEmpty
	}

	b, ok := r.Posts[id]
	if !ok || b.AuthorEmail != ownerEmail {
		return ErrBlogNotFound
	}

	b.Title = title
	b.Details = details
	return nil
}

func (r *repoMock) Delete(_ context.Context, id primitive.ObjectID, ownerEmail string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	b, ok := r.Posts[id]
	if !ok || b.AuthorEmail != ownerEmail {
		return ErrBlogNotFound
	}

	delete(r.Posts, id)
	return nil
}

func (r *repoMock) ToggleLike(_ context.Context, id primitive.ObjectID, userEmail string) (int, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	b, ok := r.Posts[id]
	if !ok {
		return 0, ErrBlogNotFound
	}

	for i, email := range b.Likes {
		if email == userEmail {
			b.Likes = append(b.Likes[:i], b.Likes[i+1:]...)
			return len(b.Likes), nil
		}
	}

	b.Likes = append(b.Likes, userEmail)
	return len(b.Likes), nil
}

func (r *repoMock) AddComment(_ context.Context, id primitive.ObjectID, comment Comment) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	b, ok := r.Posts[id]
	if !ok {
		return ErrBlogNotFound
	}

	b.Comments = append(b.Comments, comment)
	return nil
}

func (r *repoMock) IncrementPageViews(_ context.Context, ids []primitive.ObjectID) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, id := range ids {
		if b, ok := r.Posts[id]; ok {
			b.PageView++
		}
	}
	return nil
}
