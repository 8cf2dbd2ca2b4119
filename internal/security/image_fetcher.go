package security

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

// 画像取得の失敗理由。画像プロキシはこれらをメトリクスのラベルに変換する。
var (
	ErrImageStatus   = errors.New("image upstream returned non-2xx")
	ErrImageTooLarge = errors.New("image exceeds size limit")
	ErrNotAnImage    = errors.New("upstream content is not an image")
)

// Image はプロキシ経由で取得した画像。
type Image struct {
	Data        []byte
	ContentType string
}

// ImageFetcher はレシピ画像をSSRF防止付きクライアントで取得する。
type ImageFetcher struct {
	guard   URLGuard
	client  *http.Client
	maxSize int64
}

// NewImageFetcher は新しいImageFetcherを生成する。
// HTTPクライアントは生成時に1度だけ作成し、全リクエストで共有する。
func NewImageFetcher(guard URLGuard, timeout time.Duration, maxSize int64) *ImageFetcher {
	return &ImageFetcher{
		guard:   guard,
		client:  guard.NewSafeClient(timeout),
		maxSize: maxSize,
	}
}

// Fetch は画像URLを取得する。
// 静的検証、2xx、Content-Typeがimage/*、最大サイズ以内の全てを満たした場合のみ成功する。
func (f *ImageFetcher) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	if err := f.guard.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsafeURL, err)
	}
	req.Header.Set("User-Agent", "PlanEats/1.0 image proxy")
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrImageStatus, resp.StatusCode)
	}

	if resp.ContentLength > f.maxSize {
		return nil, fmt.Errorf("%w: content-length %d", ErrImageTooLarge, resp.ContentLength)
	}

	contentType := imageMediaType(resp.Header.Get("Content-Type"))
	if contentType == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotAnImage, resp.Header.Get("Content-Type"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if int64(len(body)) > f.maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(body))
	}

	return &Image{Data: body, ContentType: contentType}, nil
}

// imageMediaType はContent-Typeからimage/*のメディアタイプを取り出す。
// SVGはスクリプトを含み得るため受け付けない。
func imageMediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	mediaType = strings.ToLower(mediaType)
	if !strings.HasPrefix(mediaType, "image/") || mediaType == "image/svg+xml" {
		return ""
	}
	return mediaType
}
