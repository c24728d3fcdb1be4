package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StateService はOAuthのstateパラメーターの発行と検証のインターフェースを定義する。
// サーバー側セッションを持たないため、stateはHMAC署名付きの自己完結型トークンとし、
// 発行時刻を埋め込んで有効期間を制限する。
type StateService interface {
	// Issue は署名付きstateを発行する。
	Issue() (string, error)

	// Verify はstateの署名と有効期限を検証する。
	Verify(state string) error
}

// hmacStateService はHMAC-SHA256署名によるStateService実装。
type hmacStateService struct {
	secret []byte
	ttl    time.Duration
}

// NewStateService はhmacStateServiceを生成する。
func NewStateService(secret string, ttl time.Duration) *hmacStateService {
	return &hmacStateService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue は署名付きstateを発行する。
// 形式: base64url(unixtime.nonce.hex(hmac))
func (s *hmacStateService) Issue() (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	payload := strconv.FormatInt(time.Now().Unix(), 10) + "." + hex.EncodeToString(nonce)
	sig := s.sign(payload)

	return base64.RawURLEncoding.EncodeToString([]byte(payload + "." + sig)), nil
}

// Verify はstateの署名と有効期限を検証する。
func (s *hmacStateService) Verify(state string) error {
	raw, err := base64.RawURLEncoding.DecodeString(state)
	if err != nil {
		return fmt.Errorf("malformed state: %w", err)
	}

	parts := strings.Split(string(raw), ".")
	if len(parts) != 3 {
		return fmt.Errorf("malformed state: unexpected format")
	}

	payload := parts[0] + "." + parts[1]
	expected := s.sign(payload)
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return fmt.Errorf("state signature mismatch")
	}

	issuedAt, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return fmt.Errorf("malformed state timestamp: %w", err)
	}
	if time.Since(time.Unix(issuedAt, 0)) > s.ttl {
		return fmt.Errorf("state expired")
	}

	return nil
}

// sign はpayloadのHMAC-SHA256署名をhex文字列で返す。
func (s *hmacStateService) sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// compile-time interface check
var _ StateService = (*hmacStateService)(nil)
