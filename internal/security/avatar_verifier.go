package security

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AvatarVerifierService はプロフィール画像URLの実体検証機能のインターフェースを定義する。
// URLGuardServiceの静的検証を通過したURLに対して、実際にフェッチして
// 画像として有効かを確認する。設定で無効化されている場合は常に成功を返す。
type AvatarVerifierService interface {
	// Verify は画像URLをフェッチし、画像コンテンツであることを確認する。
	// Content-Typeがimage/*でない場合、またはサイズ上限を超える場合はエラーを返す。
	Verify(ctx context.Context, imageURL string) error
}

// avatarVerifier はAvatarVerifierServiceの実装。
type avatarVerifier struct {
	client  *http.Client
	maxSize int64
	enabled bool
}

// NewAvatarVerifier はAvatarVerifierServiceの新しいインスタンスを生成する。
// enabled=falseの場合、Verifyは何もせず成功を返す。
func NewAvatarVerifier(guard URLGuardService, timeout time.Duration, maxSize int64, enabled bool) *avatarVerifier {
	var client *http.Client
	if enabled {
		client = guard.NewSafeClient(timeout)
	}
	return &avatarVerifier{
		client:  client,
		maxSize: maxSize,
		enabled: enabled,
	}
}

// Verify は画像URLをフェッチし、画像コンテンツであることを確認する。
func (v *avatarVerifier) Verify(ctx context.Context, imageURL string) error {
	if !v.enabled {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return fmt.Errorf("not an image content type: %s", contentType)
	}

	// サイズ上限+1バイトまで読み、上限超過を検出する
	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, v.maxSize+1))
	if err != nil {
		return fmt.Errorf("failed to read image body: %w", err)
	}
	if n > v.maxSize {
		return fmt.Errorf("image exceeds size limit of %d bytes", v.maxSize)
	}

	return nil
}

// compile-time interface check
var _ AvatarVerifierService = (*avatarVerifier)(nil)
