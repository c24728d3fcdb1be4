package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/monknet/internal/middleware"
	"github.com/hitoshi/monknet/internal/model"
	"github.com/hitoshi/monknet/internal/post"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	// CreatePost は投稿を作成する。
	CreatePost(ctx context.Context, authorID string, input post.CreatePostInput) (*model.Post, error)
	// ListFeed は全投稿のフィードをページ番号指定で返す。
	ListFeed(ctx context.Context, page int) ([]model.PostWithAuthor, error)
}

// EngagementServiceInterface はフォロー・いいね・投稿削除のサービスインターフェース。
type EngagementServiceInterface interface {
	// Follow はフォローエッジを作成する。
	Follow(ctx context.Context, followerID, followeeID string) error
	// Unfollow はフォローエッジを削除する。
	Unfollow(ctx context.Context, followerID, followeeID string) error
	// ToggleLike はいいね状態の遷移を適用する。
	ToggleLike(ctx context.Context, postID string, liked bool) error
	// DeletePost は投稿者本人の投稿を削除する。
	DeletePost(ctx context.Context, principalID, postID string) error
}

// PostHandler は投稿のHTTPハンドラー。
type PostHandler struct {
	posts      PostServiceInterface
	engagement EngagementServiceInterface
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(posts PostServiceInterface, engagement EngagementServiceInterface) *PostHandler {
	return &PostHandler{
		posts:      posts,
		engagement: engagement,
	}
}

// createPostRequest は投稿作成リクエストのボディ。
type createPostRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Image   string   `json:"image"`
	Tags    []string `json:"tags"`
}

// likeRequest はいいね状態遷移リクエストのボディ。
type likeRequest struct {
	Like bool `json:"like"`
}

// postAuthorResponse は投稿レスポンス内の投稿者情報。
type postAuthorResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// postResponse は投稿のAPIレスポンス。
type postResponse struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	Content   string              `json:"content"`
	Image     string              `json:"image"`
	Likes     int                 `json:"likes"`
	Comments  int                 `json:"comments"`
	Shares    int                 `json:"shares"`
	Tags      []string            `json:"tags"`
	CreatedAt time.Time           `json:"createdAt"`
	Author    *postAuthorResponse `json:"author,omitempty"`
	AuthorID  string              `json:"authorId"`
}

// CreatePost は投稿作成を処理する。
// POST /api/post
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("Invalid request body"))
		return
	}

	created, err := h.posts.CreatePost(r.Context(), principal.UserID, post.CreatePostInput{
		Title:   req.Title,
		Content: req.Content,
		Image:   req.Image,
		Tags:    req.Tags,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"message": "Post created successfully",
		"post":    toPostResponse(created),
	})
}

// ListFeed はフィード取得を処理する。1ページ5件固定。
// GET /api/post?page=N
func (h *PostHandler) ListFeed(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			page = parsed
		}
	}

	posts, err := h.posts.ListFeed(r.Context(), page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]postResponse, len(posts))
	for i, p := range posts {
		results[i] = toPostWithAuthorResponse(&p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"posts": results})
}

// DeletePost は投稿削除を処理する。投稿者本人のみ削除できる。
// DELETE /api/post/delete/:postId
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	postID := chi.URLParam(r, "postId")

	if err := h.engagement.DeletePost(r.Context(), principal.UserID, postID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Post deleted successfully")
}

// ToggleLike はいいね状態遷移を処理する。
// POST /api/post/like/:postId
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postId")

	var req likeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("Invalid request body"))
		return
	}

	if err := h.engagement.ToggleLike(r.Context(), postID, req.Like); err != nil {
		handleServiceError(w, err)
		return
	}

	if req.Like {
		writeMessage(w, http.StatusOK, "Post liked successfully")
	} else {
		writeMessage(w, http.StatusOK, "Post unliked successfully")
	}
}

// --- ヘルパー関数 ---

// toPostResponse はmodel.PostからAPIレスポンスに変換する。
func toPostResponse(p *model.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Image:     p.Image,
		Likes:     p.Likes,
		Comments:  p.Comments,
		Shares:    p.Shares,
		Tags:      p.Tags,
		CreatedAt: p.CreatedAt,
		AuthorID:  p.AuthorID,
	}
}

// toPostWithAuthorResponse は投稿者情報付きの投稿をAPIレスポンスに変換する。
func toPostWithAuthorResponse(p *model.PostWithAuthor) postResponse {
	resp := toPostResponse(&p.Post)
	resp.Author = &postAuthorResponse{
		ID:       p.AuthorID,
		Username: p.AuthorUsername,
		Email:    p.AuthorEmail,
	}
	return resp
}

// writeMessage はメッセージのみのJSONレスポンスを書き込む。
func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeUnauthorized は401レスポンスを書き込む。
func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:    model.ErrCodeUnauthorized,
		Message: "Authorization token required",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUserNotFound, model.ErrCodePostNotFound:
		return http.StatusNotFound
	case model.ErrCodeUsernameTaken, model.ErrCodeEmailTaken,
		model.ErrCodeSelfFollow, model.ErrCodeAlreadyLiked, model.ErrCodeNotLiked,
		model.ErrCodeInvalidRequest, model.ErrCodeInvalidCredentials,
		model.ErrCodeInvalidImageURL:
		return http.StatusBadRequest
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
