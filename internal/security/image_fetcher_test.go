package security

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// mockURLGuard はURLGuardのモック。
// httptestサーバーはループバックで起動するため、通常のクライアントを返す。
type mockURLGuard struct {
	validateFn func(rawURL string) error
}

func (m *mockURLGuard) NewSafeClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func (m *mockURLGuard) ValidateURL(rawURL string) error {
	if m.validateFn != nil {
		return m.validateFn(rawURL)
	}
	return nil
}

func newImageServer(t *testing.T, status int, contentType string, body []byte) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestImageFetcher_Fetch_Success(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nfake")
	ts := newImageServer(t, http.StatusOK, "image/png", png)

	fetcher := NewImageFetcher(&mockURLGuard{}, time.Second, 1024)
	img, err := fetcher.Fetch(context.Background(), ts.URL+"/bolo.png")
	if err != nil {
		t.Fatalf("Fetch がエラーを返した: %v", err)
	}
	if img.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want %q", img.ContentType, "image/png")
	}
	if !bytes.Equal(img.Data, png) {
		t.Errorf("Data = %q, want %q", img.Data, png)
	}
}

func TestImageFetcher_Fetch_ContentTypeParams(t *testing.T) {
	ts := newImageServer(t, http.StatusOK, "Image/JPEG; charset=binary", []byte("jpeg"))

	fetcher := NewImageFetcher(&mockURLGuard{}, time.Second, 1024)
	img, err := fetcher.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("Fetch がエラーを返した: %v", err)
	}
	if img.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q, want %q", img.ContentType, "image/jpeg")
	}
}

func TestImageFetcher_Fetch_ValidationFails_NoRequest(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer ts.Close()

	guard := &mockURLGuard{validateFn: func(string) error { return ErrUnsafeURL }}
	fetcher := NewImageFetcher(guard, time.Second, 1024)

	_, err := fetcher.Fetch(context.Background(), ts.URL)
	if !errors.Is(err, ErrUnsafeURL) {
		t.Errorf("error = %v, want ErrUnsafeURL", err)
	}
	if called {
		t.Error("検証失敗時にリクエストが送信された")
	}
}

func TestImageFetcher_Fetch_Non2xx(t *testing.T) {
	ts := newImageServer(t, http.StatusNotFound, "image/png", nil)

	_, err := NewImageFetcher(&mockURLGuard{}, time.Second, 1024).Fetch(context.Background(), ts.URL)
	if !errors.Is(err, ErrImageStatus) {
		t.Errorf("error = %v, want ErrImageStatus", err)
	}
}

func TestImageFetcher_Fetch_NotAnImage(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
	}{
		{"HTML", "text/html; charset=utf-8"},
		{"SVG", "image/svg+xml"},
		{"不正なContent-Type", ";;;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newImageServer(t, http.StatusOK, tt.contentType, []byte("<svg/>"))

			_, err := NewImageFetcher(&mockURLGuard{}, time.Second, 1024).Fetch(context.Background(), ts.URL)
			if !errors.Is(err, ErrNotAnImage) {
				t.Errorf("error = %v, want ErrNotAnImage", err)
			}
		})
	}
}

func TestImageFetcher_Fetch_TooLarge(t *testing.T) {
	ts := newImageServer(t, http.StatusOK, "image/png", []byte(strings.Repeat("x", 2048)))

	_, err := NewImageFetcher(&mockURLGuard{}, time.Second, 1024).Fetch(context.Background(), ts.URL)
	if !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("error = %v, want ErrImageTooLarge", err)
	}
}

func TestImageFetcher_Fetch_TooLargeWithoutContentLength(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/gif")
		w.WriteHeader(http.StatusOK)
		for i := 0; i < 4; i++ {
			w.Write([]byte(strings.Repeat("g", 512)))
			w.(http.Flusher).Flush()
		}
	}))
	defer ts.Close()

	_, err := NewImageFetcher(&mockURLGuard{}, time.Second, 1024).Fetch(context.Background(), ts.URL)
	if !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("error = %v, want ErrImageTooLarge", err)
	}
}

func TestImageFetcher_Fetch_SendsHeaders(t *testing.T) {
	var gotUA, gotAccept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "image/webp")
		w.Write([]byte("webp"))
	}))
	defer ts.Close()

	if _, err := NewImageFetcher(&mockURLGuard{}, time.Second, 1024).Fetch(context.Background(), ts.URL); err != nil {
		t.Fatalf("Fetch がエラーを返した: %v", err)
	}
	if !strings.HasPrefix(gotUA, "PlanEats/") {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotAccept != "image/*" {
		t.Errorf("Accept = %q, want %q", gotAccept, "image/*")
	}
}
