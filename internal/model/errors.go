// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// MessageはそのままAPIレスポンスの message フィールドになる。
type APIError struct {
	Code    string // エラーコード
	Message string // クライアント向けメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodePostNotFound       = "POST_NOT_FOUND"
	ErrCodeUsernameTaken      = "USERNAME_TAKEN"
	ErrCodeEmailTaken         = "EMAIL_TAKEN"
	ErrCodeSelfFollow         = "SELF_FOLLOW"
	ErrCodeAlreadyLiked       = "ALREADY_LIKED"
	ErrCodeNotLiked           = "NOT_LIKED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInvalidImageURL    = "INVALID_IMAGE_URL"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
)

// NewUserNotFoundError はユーザー未検出エラーを生成する。
// messageは操作ごとに異なる文言（"User not found" / "User to follow not found" 等）を受け取る。
func NewUserNotFoundError(message string) *APIError {
	return &APIError{Code: ErrCodeUserNotFound, Message: message}
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
func NewPostNotFoundError() *APIError {
	return &APIError{Code: ErrCodePostNotFound, Message: "Post not found"}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError() *APIError {
	return &APIError{Code: ErrCodeUsernameTaken, Message: "Username already exists"}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{Code: ErrCodeEmailTaken, Message: "Email already exists"}
}

// NewSelfFollowError は自己フォロー/アンフォローエラーを生成する。
func NewSelfFollowError(message string) *APIError {
	return &APIError{Code: ErrCodeSelfFollow, Message: message}
}

// NewAlreadyLikedError はいいね済み投稿への再いいねエラーを生成する。
func NewAlreadyLikedError() *APIError {
	return &APIError{Code: ErrCodeAlreadyLiked, Message: "Post already liked"}
}

// NewNotLikedError は未いいね投稿へのいいね解除エラーを生成する。
func NewNotLikedError() *APIError {
	return &APIError{Code: ErrCodeNotLiked, Message: "Post not liked yet"}
}

// NewForbiddenError は権限なし操作のエラーを生成する。
func NewForbiddenError(message string) *APIError {
	return &APIError{Code: ErrCodeForbidden, Message: message}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(message string) *APIError {
	return &APIError{Code: ErrCodeInvalidRequest, Message: message}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// ユーザー不在とパスワード不一致を区別しない文言を返す。
func NewInvalidCredentialsError() *APIError {
	return &APIError{Code: ErrCodeInvalidCredentials, Message: "Invalid username or password"}
}

// NewInvalidImageURLError は画像URL不正エラーを生成する。
func NewInvalidImageURLError(reason string) *APIError {
	return &APIError{Code: ErrCodeInvalidImageURL, Message: fmt.Sprintf("Invalid image URL: %s", reason)}
}
