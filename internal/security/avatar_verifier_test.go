package security

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// plainGuard はテスト用にSSRF防止なしのHTTPクライアントを返すガード。
// httptestサーバーはループバックで待ち受けるため、本物のセーフクライアントでは到達できない。
type plainGuard struct{}

var _ URLGuardService = (*plainGuard)(nil)

func (g *plainGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (g *plainGuard) ValidateURL(rawURL string) error {
	return nil
}

func TestAvatarVerifier_Disabled_AlwaysSucceeds(t *testing.T) {
	v := NewAvatarVerifier(&plainGuard{}, time.Second, 1024, false)

	if err := v.Verify(context.Background(), "http://127.0.0.1/never-fetched.png"); err != nil {
		t.Errorf("Verify() = %v, want nil when disabled", err)
	}
}

func TestAvatarVerifier_AcceptsImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("fake png bytes"))
	}))
	defer server.Close()

	v := NewAvatarVerifier(&plainGuard{}, time.Second, 1024, true)

	if err := v.Verify(context.Background(), server.URL); err != nil {
		t.Errorf("Verify() = %v, want nil", err)
	}
}

func TestAvatarVerifier_RejectsNonImageContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>not an image</html>"))
	}))
	defer server.Close()

	v := NewAvatarVerifier(&plainGuard{}, time.Second, 1024, true)

	err := v.Verify(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error for non-image content type")
	}
	if !strings.Contains(err.Error(), "not an image content type") {
		t.Errorf("error = %v, want content type error", err)
	}
}

func TestAvatarVerifier_RejectsNon200Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	v := NewAvatarVerifier(&plainGuard{}, time.Second, 1024, true)

	if err := v.Verify(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestAvatarVerifier_RejectsOversizedImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	v := NewAvatarVerifier(&plainGuard{}, time.Second, 1024, true)

	err := v.Verify(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error for oversized image")
	}
	if !strings.Contains(err.Error(), "exceeds size limit") {
		t.Errorf("error = %v, want size limit error", err)
	}
}

func TestAvatarVerifier_AcceptsImageAtExactLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(make([]byte, 1024))
	}))
	defer server.Close()

	v := NewAvatarVerifier(&plainGuard{}, time.Second, 1024, true)

	if err := v.Verify(context.Background(), server.URL); err != nil {
		t.Errorf("Verify() = %v, want nil for image at exact size limit", err)
	}
}
