package blog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mhemon/emon-blog-server/internal/auth"
	"github.com/mhemon/emon-blog-server/internal/config"
	"github.com/mhemon/emon-blog-server/internal/telemetry/metrics"
	"github.com/mhemon/emon-blog-server/internal/telemetry/tracing"
	"github.com/mhemon/emon-blog-server/internal/user"
	"github.com/mhemon/emon-blog-server/pkg"
)

type likeBlogRequest struct {
	BlogID    string `json:"blogId"`
	UserEmail string `json:"userEmail"`
}

type commentBlogRequest struct {
	BlogID      string `json:"blogId"`
	Comment     string `json:"comment"`
	UserName    string `json:"userName"`
	UserPic     string `json:"userPic"`
	CommentedAt string `json:"commentedAt"`
}

type updateBlogRequest struct {
	Title   string `json:"blogTitle"`
	Details string `json:"blogDetails"`
}

type blogRepo interface {
	Add(ctx context.Context, blog *Blog) error
	All(ctx context.Context) ([]*Blog, error)
	ByAuthor(ctx context.Context, authorEmail string) ([]*Blog, error)
	Update(ctx context.Context, id primitive.ObjectID, ownerEmail, title, details string) error
	Delete(ctx context.Context, id primitive.ObjectID, ownerEmail string) error
	ToggleLike(ctx context.Context, id primitive.ObjectID, userEmail string) (int, error)
	AddComment(ctx context.Context, id primitive.ObjectID, comment Comment) error
	IncrementPageViews(ctx context.Context, ids []primitive.ObjectID) error
}

type userGetter interface {
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

type Handler struct {
	repo           blogRepo
	users          userGetter
	pageViewPolicy string
	instr          *metrics.Manager
}

func NewBlogHandler(
	repo blogRepo,
	users userGetter,
	pageViewPolicy string,
	instr *metrics.Manager,
) *Handler {
	return &Handler{
		repo:           repo,
		users:          users,
		pageViewPolicy: pageViewPolicy,
		instr:          instr,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/blogs", handler.handleAll).Methods("GET").Name("all-blogs")
	router.HandleFunc("/newblog", handler.handleNewBlog).Methods("POST", "OPTIONS").Name("new-blog")
	router.HandleFunc("/myblogs", handler.handleMyBlogs).Methods("GET", "OPTIONS").Name("my-blogs")
	router.HandleFunc("/myblogs/{id}", handler.handleUpdateBlog).Methods("PATCH", "OPTIONS").Name("update-blog")
	router.HandleFunc("/myblogs/{id}", handler.handleDeleteBlog).Methods("DELETE", "OPTIONS").Name("delete-blog")
	router.HandleFunc("/like", handler.handleLikeBlog).Methods("POST", "OPTIONS").Name("like-blog")
	router.HandleFunc("/comment", handler.handleCommentBlog).Methods("POST", "OPTIONS").Name("comment-blog")
}

func (handler *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.all")
	defer span.End()

	allBlogs, err := handler.repo.All(ctx)
	if err != nil {
		log.Errorf("get all blogs error: %s", err)
		http.Error(w, "get all blogs error", http.StatusInternalServerError)
		return
	}

	if handler.pageViewPolicy == config.PageViewPolicyEveryList {
		ids := make([]primitive.ObjectID, 0, len(allBlogs))
		for _, b := range allBlogs {
			ids = append(ids, b.ID)
		}
		// the listing is served even when the counter bump fails
		if err := handler.repo.IncrementPageViews(ctx, ids); err != nil {
			log.Errorf("increment page views: %s", err)
		}
	}

	if handler.instr != nil {
		handler.instr.CounterBlogListings.Inc()
	}

	if allBlogs == nil {
		allBlogs = []*Blog{}
	}
	allBlogsJson, err := json.Marshal(allBlogs)
	if err != nil {
		log.Errorf("marshal all blogs error: %s", err)
		http.Error(w, "marshal all blogs error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, allBlogsJson)
}

func (handler *Handler) handleNewBlog(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.new")
	defer span.End()

	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "unauthorized access!", http.StatusUnauthorized)
		return
	}

	var newBlog Blog
	if err := json.NewDecoder(r.Body).Decode(&newBlog); err != nil {
		log.Errorf("new blog, unmarshal json params: %s", err)
		http.Error(w, "add blog failed", http.StatusBadRequest)
		return
	}

	if newBlog.Title == "" {
		http.Error(w, "error, title empty", http.StatusBadRequest)
		return
	}
	if newBlog.Details == "" {
		http.Error(w, "error, details empty", http.StatusBadRequest)
		return
	}

	// a blog can be created only by its own author
	if newBlog.AuthorEmail == "" || newBlog.AuthorEmail != claims.Email {
		log.Tracef("new blog: [%s] tried to publish as [%s]", claims.Email, newBlog.AuthorEmail)
		pkg.WriteJSONError(w, "your are not an author!", http.StatusForbidden)
		return
	}

	u, err := handler.users.GetByEmail(ctx, newBlog.AuthorEmail)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			pkg.WriteJSONError(w, "your are not an author!", http.StatusForbidden)
			return
		}
		log.Errorf("add new blog, get user failed: %s", err)
		http.Error(w, "add new blog failed", http.StatusInternalServerError)
		return
	}
	if !u.IsAuthor() {
		pkg.WriteJSONError(w, "your are not an author!", http.StatusForbidden)
		return
	}

	if err := handler.repo.Add(ctx, &newBlog); err != nil {
		log.Errorf("add new blog failed: %s", err)
		http.Error(w, "add new blog failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponse(
		w,
		pkg.ContentType.JSON,
		fmt.Sprintf(`{"insertedId":"%s"}`, newBlog.ID.Hex()),
		http.StatusCreated,
	)
}

// handleMyBlogs lists the caller's own blogs. The owner is the verified
// token identity; an email query param naming someone else is ignored.
func (handler *Handler) handleMyBlogs(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.myBlogs")
	defer span.End()

	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "unauthorized access!", http.StatusUnauthorized)
		return
	}

	if email := r.URL.Query().Get("email"); email != "" && email != claims.Email {
		log.Tracef("my blogs: [%s] asked for blogs of [%s], serving own", claims.Email, email)
	}

	myBlogs, err := handler.repo.ByAuthor(ctx, claims.Email)
	if err != nil {
		log.Errorf("get my blogs error: %s", err)
		http.Error(w, "get my blogs error", http.StatusInternalServerError)
		return
	}

	if myBlogs == nil {
		myBlogs = []*Blog{}
	}
	myBlogsJson, err := json.Marshal(myBlogs)
	if err != nil {
		log.Errorf("marshal my blogs error: %s", err)
		http.Error(w, "marshal my blogs error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, myBlogsJson)
}

func (handler *Handler) handleUpdateBlog(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.update")
	defer span.End()

	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "unauthorized access!", http.StatusUnauthorized)
		return
	}

	idStr := mux.Vars(r)["id"]
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		http.Error(w, "error, invalid id", http.StatusBadRequest)
		return
	}

	var updateReq updateBlogRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		log.Errorf("update blog, unmarshal json params: %s", err)
		http.Error(w, "update blog failed", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(ctx, id, claims.Email, updateReq.Title, updateReq.Details); err != nil {
		switch {
		case errors.Is(err, ErrBlogNotFound):
			http.Error(w, "blog not found", http.StatusNotFound)
		case errors.Is(err, ErrBlogTitleOrDetailsEmpty):
			http.Error(w, "error, title or details empty", http.StatusBadRequest)
		default:
			log.Errorf("update blog failed: %s", err)
			http.Error(w, "update blog failed", http.StatusInternalServerError)
		}
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("updated:%s", idStr))
}

func (handler *Handler) handleDeleteBlog(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.delete")
	defer span.End()

	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "unauthorized access!", http.StatusUnauthorized)
		return
	}

	idStr := mux.Vars(r)["id"]
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		http.Error(w, "error, invalid id", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, id, claims.Email); err != nil {
		if errors.Is(err, ErrBlogNotFound) {
			http.Error(w, "blog not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete blog %s: %s", idStr, err)
		http.Error(w, "delete blog failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, fmt.Sprintf("deleted:%s", idStr))
}

func (handler *Handler) handleLikeBlog(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.like")
	defer span.End()

	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, "unauthorized access!", http.StatusUnauthorized)
		return
	}

	var likeReq likeBlogRequest
	if err := json.NewDecoder(r.Body).Decode(&likeReq); err != nil {
		log.Errorf("like blog, unmarshal json params: %s", err)
		http.Error(w, "like blog failed", http.StatusBadRequest)
		return
	}

	if likeReq.BlogID == "" {
		http.Error(w, "error, blog id empty", http.StatusBadRequest)
		return
	}
	// likes are tracked under the verified identity only
	if likeReq.UserEmail != "" && likeReq.UserEmail != claims.Email {
		pkg.WriteJSONError(w, "unauthorized access!", http.StatusForbidden)
		return
	}

	id, err := primitive.ObjectIDFromHex(likeReq.BlogID)
	if err != nil {
		http.Error(w, "error, invalid id", http.StatusBadRequest)
		return
	}

	likeCount, err := handler.repo.ToggleLike(ctx, id, claims.Email)
	if err != nil {
		if errors.Is(err, ErrBlogNotFound) {
			http.Error(w, "blog not found", http.StatusNotFound)
			return
		}
		log.Errorf("toggle like for blog %s: %s", likeReq.BlogID, err)
		http.Error(w, "like blog failed", http.StatusInternalServerError)
		return
	}

	if handler.instr != nil {
		handler.instr.CounterLikeToggles.Inc()
	}

	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"likeCount":%d}`, likeCount))
}

func (handler *Handler) handleCommentBlog(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "blogHandler.comment")
	defer span.End()

	if _, ok := auth.ClaimsFromContext(ctx); !ok {
		pkg.WriteJSONError(w, "unauthorized access!", http.StatusUnauthorized)
		return
	}

	var commentReq commentBlogRequest
	if err := json.NewDecoder(r.Body).Decode(&commentReq); err != nil {
		log.Errorf("comment blog, unmarshal json params: %s", err)
		http.Error(w, "comment blog failed", http.StatusBadRequest)
		return
	}

	if commentReq.BlogID == "" {
		http.Error(w, "error, blog id empty", http.StatusBadRequest)
		return
	}
	if commentReq.Comment == "" {
		http.Error(w, "error, comment empty", http.StatusBadRequest)
		return
	}

	id, err := primitive.ObjectIDFromHex(commentReq.BlogID)
	if err != nil {
		http.Error(w, "error, invalid id", http.StatusBadRequest)
		return
	}

	comment := Comment{
		Text:     commentReq.Comment,
		UserName: commentReq.UserName,
		UserPic:  commentReq.UserPic,
		Time:     commentReq.CommentedAt,
	}

	if err := handler.repo.AddComment(ctx, id, comment); err != nil {
		if errors.Is(err, ErrBlogNotFound) {
			pkg.WriteResponse(w, pkg.ContentType.JSON, `{"error":"Blog not found"}`, http.StatusNotFound)
			return
		}
		log.Errorf("add comment to blog %s: %s", commentReq.BlogID, err)
		http.Error(w, "comment blog failed", http.StatusInternalServerError)
		return
	}

	if handler.instr != nil {
		handler.instr.CounterComments.Inc()
	}

	pkg.WriteJSONResponseOK(w, `{"modifiedCount":1}`)
}
