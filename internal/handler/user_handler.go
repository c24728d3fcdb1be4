package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/monknet/internal/middleware"
	"github.com/hitoshi/monknet/internal/model"
	"github.com/hitoshi/monknet/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// GetUserData は認証済みユーザー自身のプロフィールと統計を取得する。
	GetUserData(ctx context.Context, userID string) (*user.UserData, error)
	// GetPublicProfile はユーザー名で公開プロフィールを取得する。
	GetPublicProfile(ctx context.Context, username string) (*user.PublicProfile, error)
	// ListAllUsers は全ユーザーのサマリー一覧を返す。
	ListAllUsers(ctx context.Context) ([]model.UserListEntry, error)
	// ListFollowers は指定ユーザーのフォロワー一覧を返す。
	ListFollowers(ctx context.Context, userID string) ([]model.UserSummary, error)
	// ListFollowing は指定ユーザーのフォロイー一覧を返す。
	ListFollowing(ctx context.Context, userID string) ([]model.UserSummary, error)
	// UpdateProfileImage はプロフィール画像URLを検証して更新する。
	UpdateProfileImage(ctx context.Context, userID, imageURL string) (*model.User, error)
}

// NotificationServiceInterface はフォロー通知のサービスインターフェース。
type NotificationServiceInterface interface {
	// Drain は未読のフォロー通知をすべて取得し、キューをクリアする。
	Drain(ctx context.Context, userID string) ([]model.UserSummary, error)
}

// UserHandler はユーザーのHTTPハンドラー。
type UserHandler struct {
	users         UserServiceInterface
	engagement    EngagementServiceInterface
	notifications NotificationServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(
	users UserServiceInterface,
	engagement EngagementServiceInterface,
	notifications NotificationServiceInterface,
) *UserHandler {
	return &UserHandler{
		users:         users,
		engagement:    engagement,
		notifications: notifications,
	}
}

// updateProfileImageRequest はプロフィール画像更新リクエストのボディ。
type updateProfileImageRequest struct {
	ProfileImage string `json:"profileImage"`
}

// userStatsResponse はユーザー統計のAPIレスポンス。
type userStatsResponse struct {
	Followers int `json:"followers"`
	Following int `json:"following"`
	Posts     int `json:"posts"`
	Likes     int `json:"likes"`
	Views     int `json:"views"`
}

// userResponse はユーザープロフィールのAPIレスポンス。
type userResponse struct {
	ID           string            `json:"id"`
	Username     string            `json:"username"`
	Email        string            `json:"email"`
	Bio          string            `json:"bio"`
	ProfileImage string            `json:"profileImage"`
	Stats        userStatsResponse `json:"stats"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// postTitleResponse はuserdata用の自分の投稿タイトルサマリー。
type postTitleResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// userSummaryResponse はフォロー一覧用のユーザーサマリー。
type userSummaryResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// userListEntryResponse は全ユーザー一覧のエントリー。
type userListEntryResponse struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	ProfileImage string   `json:"profileImage"`
	Followers    []string `json:"followers"`
	Following    []string `json:"following"`
}

// GetUserData は認証済みユーザー自身のプロフィール取得を処理する。
// GET /api/user/userdata
func (h *UserHandler) GetUserData(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	data, err := h.users.GetUserData(r.Context(), principal.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	titles := make([]postTitleResponse, len(data.PostTitles))
	for i, pt := range data.PostTitles {
		titles[i] = postTitleResponse{ID: pt.ID, Title: pt.Title}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"user":       toUserResponse(data.User, data.Stats),
		"likedPosts": emptyIfNil(data.LikedPosts),
		"posts":      titles,
	})
}

// GetPublicProfile は公開プロフィール取得を処理する。認証不要。
// GET /api/user/:username
func (h *UserHandler) GetPublicProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	profile, err := h.users.GetPublicProfile(r.Context(), username)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	posts := make([]postResponse, len(profile.Posts))
	for i, p := range profile.Posts {
		posts[i] = toPostWithAuthorResponse(&p)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"user":  toUserResponse(profile.User, profile.Stats),
		"posts": posts,
	})
}

// ListAllUsers は全ユーザー一覧取得を処理する。
// GET /api/user/allusers
func (h *UserHandler) ListAllUsers(w http.ResponseWriter, r *http.Request) {
	entries, err := h.users.ListAllUsers(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]userListEntryResponse, len(entries))
	for i, e := range entries {
		results[i] = userListEntryResponse{
			ID:           e.ID,
			Username:     e.Username,
			Email:        e.Email,
			ProfileImage: e.ProfileImage,
			Followers:    emptyIfNil(e.Followers),
			Following:    emptyIfNil(e.Following),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"users": results})
}

// ListFollowers はフォロワー一覧取得を処理する。
// GET /api/user/followers
func (h *UserHandler) ListFollowers(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	summaries, err := h.users.ListFollowers(r.Context(), principal.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeUserSummaries(w, "followers", summaries)
}

// ListFollowing はフォロイー一覧取得を処理する。
// GET /api/user/following
func (h *UserHandler) ListFollowing(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	summaries, err := h.users.ListFollowing(r.Context(), principal.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeUserSummaries(w, "following", summaries)
}

// DrainNotifications はフォロー通知の取得とクリアを処理する。
// GET /api/user/follownotifications
func (h *UserHandler) DrainNotifications(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	notifications, err := h.notifications.Drain(r.Context(), principal.UserID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeUserSummaries(w, "notifications", notifications)
}

// Follow はフォローを処理する。
// POST /api/user/follow/:id
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	followeeID := chi.URLParam(r, "id")

	if err := h.engagement.Follow(r.Context(), principal.UserID, followeeID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Successfully followed the user")
}

// Unfollow はアンフォローを処理する。
// POST /api/user/unfollow/:id
func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	followeeID := chi.URLParam(r, "id")

	if err := h.engagement.Unfollow(r.Context(), principal.UserID, followeeID); err != nil {
		handleServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Successfully unfollowed the user")
}

// UpdateProfileImage はプロフィール画像の更新を処理する。
// PUT /api/user/update-profile-image
func (h *UserHandler) UpdateProfileImage(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateProfileImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("Invalid request body"))
		return
	}

	if req.ProfileImage == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("Profile image URL is required"))
		return
	}

	updated, err := h.users.UpdateProfileImage(r.Context(), principal.UserID, req.ProfileImage)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"message":      "Profile image updated successfully",
		"profileImage": updated.ProfileImage,
	})
}

// --- ヘルパー関数 ---

// toUserResponse はmodel.Userと統計からAPIレスポンスに変換する。
func toUserResponse(u *model.User, stats model.UserStats) userResponse {
	return userResponse{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Bio:          u.Bio,
		ProfileImage: u.ProfileImage,
		Stats: userStatsResponse{
			Followers: stats.Followers,
			Following: stats.Following,
			Posts:     stats.Posts,
			Likes:     stats.Likes,
			Views:     stats.Views,
		},
		CreatedAt: u.CreatedAt,
	}
}

// writeUserSummaries はユーザーサマリー列を指定キーのJSONで書き込む。
func writeUserSummaries(w http.ResponseWriter, key string, summaries []model.UserSummary) {
	results := make([]userSummaryResponse, len(summaries))
	for i, s := range summaries {
		results[i] = userSummaryResponse{ID: s.ID, Username: s.Username}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{key: results})
}

// emptyIfNil はnilスライスを空スライスに変換する。JSONでnullではなく[]を返すため。
func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
