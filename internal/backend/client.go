// Package backend はPlanEatsバックエンドREST APIのクライアントを提供する。
// 全ての呼び出しでセッションのBearerトークンを付与し、HTTPエラーを統一的な形に正規化する。
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/planeats/web/internal/model"
)

// maxErrorBodySize はエラーレスポンス本文の最大読み取りサイズ。
const maxErrorBodySize = 64 * 1024

// TokenSource は現在のリクエストに紐づくBearerトークンを提供する。
// 未認証の場合はfalseを返す。
type TokenSource interface {
	BearerToken(ctx context.Context) (string, bool)
}

// TokenSourceFunc は関数をTokenSourceとして扱うためのアダプタ。
type TokenSourceFunc func(ctx context.Context) (string, bool)

// BearerToken はTokenSourceを実装する。
func (f TokenSourceFunc) BearerToken(ctx context.Context) (string, bool) {
	return f(ctx)
}

// CallRecorder はバックエンド呼び出しの結果を記録する。
// 通信エラー時のstatusCodeは0。
type CallRecorder interface {
	RecordBackendCall(method string, statusCode int, duration time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) RecordBackendCall(string, int, time.Duration) {}

// ClientConfig はバックエンドクライアントの設定。
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	AITimeout time.Duration // AIレシピ生成は応答が遅いため別のタイムアウトを使う
}

// Client はバックエンドAPIのクライアント。
type Client struct {
	baseURL    string
	httpClient *http.Client
	aiClient   *http.Client
	tokens     TokenSource
	logger     *slog.Logger
	recorder   CallRecorder
}

// NewClient はClientの新しいインスタンスを生成する。
// recorderがnilの場合は記録を行わない。
func NewClient(cfg ClientConfig, tokens TokenSource, logger *slog.Logger, recorder CallRecorder) *Client {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if cfg.AITimeout == 0 {
		cfg.AITimeout = cfg.Timeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		aiClient:   &http.Client{Timeout: cfg.AITimeout},
		tokens:     tokens,
		logger:     logger,
		recorder:   recorder,
	}
}

// call は1回のバックエンド呼び出しを表す。
type call struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
	public bool         // trueの場合はAuthorizationヘッダーを付与しない
	client *http.Client // nilの場合は通常のクライアント
}

// do はリクエストを送信し、2xxの場合はレスポンスをoutにデコードする。
// 401/403はmodel.ErrNotAuthenticated、その他の非2xxは*model.BackendErrorを返す。
// リトライは行わない。
func (c *Client) do(ctx context.Context, cl call) error {
	reqURL := c.baseURL + cl.path
	if len(cl.query) > 0 {
		reqURL += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil && cl.method != http.MethodGet {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, reqURL, body)
	if err != nil {
		return fmt.Errorf("failed to create backend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if !cl.public && c.tokens != nil {
		if token, ok := c.tokens.BearerToken(ctx); ok && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	httpClient := cl.client
	if httpClient == nil {
		httpClient = c.httpClient
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		c.recorder.RecordBackendCall(cl.method, 0, time.Since(start))
		c.logger.Error("backend request failed",
			slog.String("method", cl.method),
			slog.String("path", cl.path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("backend request %s %s failed: %w", cl.method, cl.path, err)
	}
	defer resp.Body.Close()
	c.recorder.RecordBackendCall(cl.method, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		detail := parseErrorDetail(resp.StatusCode, raw)

		c.logger.Warn("backend returned error status",
			slog.String("method", cl.method),
			slog.String("path", cl.path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("detail", detail),
		)

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %s", model.ErrNotAuthenticated, detail)
		}
		return &model.BackendError{Status: resp.StatusCode, Detail: detail}
	}

	if cl.out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty response body from %s %s", cl.method, cl.path)
		}
		return fmt.Errorf("failed to decode response from %s %s: %w", cl.method, cl.path, err)
	}
	return nil
}

// parseErrorDetail はエラーレスポンスから利用者向けメッセージを取り出す。
// {detail: string} を優先し、detailが文字列以外（検証エラーの配列など）の場合はJSONのまま返す。
// 解析できない場合は本文、本文が空の場合は "HTTP <status>" を返す。
func parseErrorDetail(status int, body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 && string(envelope.Detail) != "null" {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			if s != "" {
				return s
			}
		} else {
			return string(envelope.Detail)
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", status)
}
