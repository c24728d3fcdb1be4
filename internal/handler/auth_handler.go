// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/monknet/internal/auth"
	"github.com/hitoshi/monknet/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// Register は新規ユーザーを登録する。
	Register(ctx context.Context, username, email, password string) error
	// Login はユーザー名とパスワードで認証し、アクセストークンを発行する。
	Login(ctx context.Context, username, password string) (*auth.LoginResult, error)
	// GetLoginURL は署名付きstateを含むOAuth認証URLを生成する。
	GetLoginURL() (string, error)
	// HandleGoogleCallback はOAuthコールバックを処理し、アクセストークンを発行する。
	HandleGoogleCallback(ctx context.Context, code, state string) (*auth.LoginResult, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// FrontendURL はOAuthコールバック後のリダイレクト先フロントエンドURL。
	FrontendURL string
}

// AuthHandler は認証のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse はログイン成功時のレスポンス。
type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	UserID  string `json:"userId"`
}

// Register はユーザー登録を処理する。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("Invalid request body"))
		return
	}

	if err := h.service.Register(r.Context(), req.Username, req.Email, req.Password); err != nil {
		handleServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusCreated, "User registered successfully")
}

// Login はログインを処理する。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("Invalid request body"))
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{
		Message: "Login successful",
		Token:   result.Token,
		UserID:  result.UserID,
	})
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /api/auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	loginURL, err := h.service.GetLoginURL()
	if err != nil {
		slog.Error("failed to build oauth login url", slog.String("error", err.Error()))
		http.Redirect(w, r, h.loginErrorURL("server_error"), http.StatusFound)
		return
	}

	http.Redirect(w, r, loginURL, http.StatusFound)
}

// GoogleCallback はGoogle OAuthのコールバックを処理する。
// GET /api/auth/google/callback
//
// 成功時はトークンとユーザーIDをクエリに載せてフロントエンドにリダイレクトする。
// OAuthフロー自体の失敗はerror=auth_failed、内部エラーはerror=server_errorで
// ログインページにリダイレクトする。
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		http.Redirect(w, r, h.loginErrorURL("auth_failed"), http.StatusFound)
		return
	}

	result, err := h.service.HandleGoogleCallback(r.Context(), code, state)
	if err != nil {
		slog.Warn("oauth callback failed", slog.String("error", err.Error()))
		if errors.Is(err, auth.ErrOAuthDenied) {
			http.Redirect(w, r, h.loginErrorURL("auth_failed"), http.StatusFound)
		} else {
			http.Redirect(w, r, h.loginErrorURL("server_error"), http.StatusFound)
		}
		return
	}

	params := url.Values{
		"token":  {result.Token},
		"userId": {result.UserID},
	}
	http.Redirect(w, r, h.config.FrontendURL+"/auth/callback?"+params.Encode(), http.StatusFound)
}

// loginErrorURL はエラーコード付きのログインページURLを返す。
func (h *AuthHandler) loginErrorURL(code string) string {
	return h.config.FrontendURL + "/login?error=" + code
}
