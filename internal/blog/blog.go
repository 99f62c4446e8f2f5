package blog

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrBlogNotFound            = errors.New("blog not found")
	ErrBlogTitleOrDetailsEmpty = errors.New("blog title or details empty")
)

// Comment keeps the commenter's display data alongside the text; the
// sequence on a blog is append-only and ordered by insertion.
type Comment struct {
	Text     string `bson:"text" json:"text"`
	UserName string `bson:"userName" json:"userName"`
	UserPic  string `bson:"userPic" json:"userPic"`
	Time     string `bson:"time" json:"time"`
}

type Blog struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	AuthorEmail string             `bson:"authorEmail" json:"authorEmail"`
	Title       string             `bson:"blogTitle" json:"blogTitle"`
	Details     string             `bson:"blogDetails" json:"blogDetails"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	PageView    int                `bson:"pageView" json:"pageView"`
	// likes holds each liker's email at most once
	Likes    []string  `bson:"likes" json:"likes"`
	Comments []Comment `bson:"comment" json:"comment"`
}
