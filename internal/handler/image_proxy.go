package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/planeats/web/internal/security"
	"github.com/planeats/web/internal/view"
)

// 画像プロキシの結果ラベル。
const (
	ImageResultOK       = "ok"
	ImageResultBlocked  = "blocked"
	ImageResultUpstream = "upstream_error"
	ImageResultTooLarge = "too_large"
	ImageResultNotImage = "not_image"
	ImageResultError    = "error"
)

// ImageFetcher は外部画像の取得を抽象化する。
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*security.Image, error)
}

// ImageProxyRecorder は画像プロキシの結果を記録する。
type ImageProxyRecorder interface {
	RecordImageProxy(result string)
}

type noopImageProxyRecorder struct{}

func (noopImageProxyRecorder) RecordImageProxy(string) {}

// ImageProxyHandler はレシピ画像をSSRF防止付きで中継する。
// 取得に失敗した場合はプレースホルダー画像へリダイレクトする。
type ImageProxyHandler struct {
	fetcher  ImageFetcher
	recorder ImageProxyRecorder
}

// NewImageProxyHandler はImageProxyHandlerを生成する。recorderがnilの場合は記録を行わない。
func NewImageProxyHandler(fetcher ImageFetcher, recorder ImageProxyRecorder) *ImageProxyHandler {
	if recorder == nil {
		recorder = noopImageProxyRecorder{}
	}
	return &ImageProxyHandler{fetcher: fetcher, recorder: recorder}
}

// ServeHTTP は src クエリの画像を取得して返す。
// GET /images/proxy?src=https://...
func (h *ImageProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("src")

	img, err := h.fetcher.Fetch(r.Context(), src)
	if err != nil {
		result := imageFailureResult(err)
		h.recorder.RecordImageProxy(result)
		slog.Debug("image proxy fallback",
			slog.String("src", src),
			slog.String("result", result),
			slog.String("error", err.Error()),
		)
		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, view.PlaceholderImage, http.StatusFound)
		return
	}

	h.recorder.RecordImageProxy(ImageResultOK)
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(img.Data)
}

// imageFailureResult は取得エラーを結果ラベルに変換する。
func imageFailureResult(err error) string {
	switch {
	case errors.Is(err, security.ErrUnsafeURL):
		return ImageResultBlocked
	case errors.Is(err, security.ErrImageStatus):
		return ImageResultUpstream
	case errors.Is(err, security.ErrImageTooLarge):
		return ImageResultTooLarge
	case errors.Is(err, security.ErrNotAnImage):
		return ImageResultNotImage
	default:
		return ImageResultError
	}
}
