package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/monknet/internal/model"
)

// Claims はアクセストークンに埋め込むクレーム。
// 認可判定に必要なユーザーIDとユーザー名のみを保持する。
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService はアクセストークンの発行と検証のインターフェースを定義する。
type TokenService interface {
	// Issue は指定ユーザーのアクセストークンを発行する。
	Issue(userID, username string) (string, error)

	// Verify はトークンを検証し、含まれるプリンシパルを返す。
	// 署名不正・期限切れ・形式不正の場合はエラーを返す。
	Verify(tokenString string) (*model.Principal, error)
}

// jwtTokenService はHMAC-SHA256署名のJWTによるTokenService実装。
type jwtTokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService はjwtTokenServiceを生成する。
func NewTokenService(secret string, ttl time.Duration) *jwtTokenService {
	return &jwtTokenService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue は指定ユーザーのアクセストークンを発行する。
func (s *jwtTokenService) Issue(userID, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify はトークンを検証し、含まれるプリンシパルを返す。
func (s *jwtTokenService) Verify(tokenString string) (*model.Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("missing user ID in token claims")
	}

	return &model.Principal{
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}

// compile-time interface check
var _ TokenService = (*jwtTokenService)(nil)
