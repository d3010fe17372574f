package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nutritrack/internal/infrastructure/config"

	"github.com/go-resty/resty/v2"
)

// SupabaseStore 透過 Supabase Storage REST API 存放文件
// 一般文件位於 data/<key>，users/ 開頭的文件直接放在 bucket 根目錄
type SupabaseStore struct {
	client *resty.Client
	bucket string
}

// NewSupabaseStore 創建 Supabase 儲存
func NewSupabaseStore(cfg config.SupabaseConfig, timeout time.Duration) *SupabaseStore {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")+"/storage/v1").
		SetHeader("apikey", cfg.APIKey).
		SetAuthToken(cfg.APIKey).
		SetTimeout(timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return newSupabaseStore(client, cfg.Bucket)
}

func newSupabaseStore(client *resty.Client, bucket string) *SupabaseStore {
	return &SupabaseStore{client: client, bucket: bucket}
}

// ObjectPath 文件在 bucket 中的路徑
func ObjectPath(key string) string {
	if strings.HasPrefix(key, "users/") {
		return key
	}
	return "data/" + key
}

func (s *SupabaseStore) objectURL(key string) string {
	return fmt.Sprintf("/object/%s/%s", s.bucket, ObjectPath(key))
}

func (s *SupabaseStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		Get(s.objectURL(key))
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}

	switch {
	case resp.StatusCode() == http.StatusOK:
		return resp.Body(), nil
	case isSupabaseNotFound(resp):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("failed to download %s: status %d: %s", key, resp.StatusCode(), truncate(resp.String(), 200))
	}
}

func (s *SupabaseStore) Put(ctx context.Context, key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-upsert", "true").
		SetBody(data).
		Post(s.objectURL(key))
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to upload %s: status %d: %s", key, resp.StatusCode(), truncate(resp.String(), 200))
	}
	return nil
}

// Ping 查詢 bucket 資訊
func (s *SupabaseStore) Ping(ctx context.Context) error {
	resp, err := s.client.R().SetContext(ctx).Get("/bucket/" + s.bucket)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("supabase bucket %s: status %d", s.bucket, resp.StatusCode())
	}
	return nil
}

func (s *SupabaseStore) Close() error { return nil }

func (s *SupabaseStore) Name() string { return "supabase" }

// isSupabaseNotFound Supabase 對不存在的物件可能回 404，或回 400 並在內容中註明 not found
func isSupabaseNotFound(resp *resty.Response) bool {
	if resp.StatusCode() == http.StatusNotFound {
		return true
	}
	if resp.StatusCode() == http.StatusBadRequest {
		body := strings.ToLower(resp.String())
		return strings.Contains(body, "not found") || strings.Contains(body, "\"404\"")
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
