package storage

import (
	"context"
	"fmt"
	"strings"

	"nutritrack/internal/infrastructure/config"
	"nutritrack/internal/pkg/common"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// firestoreField 文件內容存放的欄位
const firestoreField = "data"

// FirestoreStore 每個 key 對應 collection 中的一份 Firestore 文件
// 文件 ID 為 key 以 "_" 取代 "/"，內容放在 data 欄位
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore 創建 Firestore 儲存
func NewFirestoreStore(ctx context.Context, cfg config.FirestoreConfig) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &FirestoreStore{client: client, collection: cfg.Collection}, nil
}

// DocID 文件 ID
func DocID(key string) string {
	return strings.ReplaceAll(key, "/", "_")
}

func (f *FirestoreStore) doc(key string) *firestore.DocumentRef {
	return f.client.Collection(f.collection).Doc(DocID(key))
}

func (f *FirestoreStore) Get(ctx context.Context, key string) ([]byte, error) {
	snap, err := f.doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if !snap.Exists() {
		return nil, ErrNotFound
	}
	return unwrapFirestoreData(snap.Data())
}

func (f *FirestoreStore) Put(ctx context.Context, key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	payload, err := wrapFirestoreData(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if _, err := f.doc(key).Set(ctx, payload); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Ping 讀取一份不存在的文件，NotFound 代表連線正常
func (f *FirestoreStore) Ping(ctx context.Context) error {
	_, err := f.client.Collection(f.collection).Doc("_ping").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return err
	}
	return nil
}

func (f *FirestoreStore) Close() error {
	return f.client.Close()
}

func (f *FirestoreStore) Name() string { return "firestore" }

// wrapFirestoreData JSON 文件轉為 {"data": <value>}
func wrapFirestoreData(data []byte) (map[string]interface{}, error) {
	var value interface{}
	if err := common.ParseJSONBytes(data, &value); err != nil {
		return nil, err
	}
	return map[string]interface{}{firestoreField: value}, nil
}

// unwrapFirestoreData 取出 data 欄位；舊文件沒有 data 欄位時整份即為內容
func unwrapFirestoreData(doc map[string]interface{}) ([]byte, error) {
	if value, ok := doc[firestoreField]; ok {
		return common.MarshalJSON(value)
	}
	return common.MarshalJSON(doc)
}
