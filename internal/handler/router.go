package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/monknet/internal/metrics"
	"github.com/hitoshi/monknet/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Collector         metrics.MetricsCollector

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 投稿
	PostService PostServiceInterface

	// エンゲージメント（フォロー・いいね・投稿削除）
	EngagementService EngagementServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// フォロー通知
	NotificationService NotificationServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS → (認証ルート以外) Auth → RateLimit(General)
//
// 認証ルート（/api/auth/*）と公開プロフィールは認証ミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.Collector))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	postHandler := NewPostHandler(deps.PostService, deps.EngagementService)
	userHandler := NewUserHandler(deps.UserService, deps.EngagementService, deps.NotificationService)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// 認証フロー
	r.Post("/api/auth/register", authHandler.Register)
	r.Post("/api/auth/login", authHandler.Login)
	r.Get("/api/auth/google", authHandler.GoogleLogin)
	r.Get("/api/auth/google/callback", authHandler.GoogleCallback)

	// 公開プロフィール。/api/user配下の静的パス（userdata等）が優先され、
	// それ以外のパスセグメントがusernameとして扱われる。
	r.Get("/api/user/{username}", userHandler.GetPublicProfile)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 投稿（作成には投稿専用レート制限を追加）
		r.With(deps.RateLimiter.PostCreationMiddleware()).Post("/api/post", postHandler.CreatePost)
		r.Get("/api/post", postHandler.ListFeed)
		r.Delete("/api/post/delete/{postId}", postHandler.DeletePost)
		r.Post("/api/post/like/{postId}", postHandler.ToggleLike)

		// ユーザー
		r.Get("/api/user/userdata", userHandler.GetUserData)
		r.Get("/api/user/followers", userHandler.ListFollowers)
		r.Get("/api/user/following", userHandler.ListFollowing)
		r.Get("/api/user/follownotifications", userHandler.DrainNotifications)
		r.Get("/api/user/allusers", userHandler.ListAllUsers)
		r.Post("/api/user/follow/{id}", userHandler.Follow)
		r.Post("/api/user/unfollow/{id}", userHandler.Unfollow)
		r.Put("/api/user/update-profile-image", userHandler.UpdateProfileImage)
	})

	return r
}
