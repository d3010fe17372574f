package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nutritrack/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore 模擬無法連線的遠端
type failingStore struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *failingStore) record() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.record() }
func (f *failingStore) Put(context.Context, string, []byte) error   { return f.record() }
func (f *failingStore) Ping(context.Context) error                  { return f.err }
func (f *failingStore) Close() error                                { return nil }
func (f *failingStore) Name() string                                { return "failing" }

func (f *failingStore) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestKeys(t *testing.T) {
	key, err := PrivateRecipesKey("u1")
	require.NoError(t, err)
	assert.Equal(t, "recipes_private/u1.json", key)

	key, err = ConsumptionKey(" u1 ")
	require.NoError(t, err)
	assert.Equal(t, "consumption_history/u1.json", key)

	key, err = StatsKey("a_b")
	require.NoError(t, err)
	assert.Equal(t, "nutrition_stats/a_b.json", key)

	// 分隔符號不會被改寫成其他使用者的 key
	for _, id := range []string{"a/b", `a\b`, "../../etc/passwd", "..", "", "   "} {
		_, err := StatsKey(id)
		assert.True(t, common.IsValidationError(err), id)
		_, err = ConsumptionKey(id)
		assert.True(t, common.IsValidationError(err), id)
		_, err = PrivateRecipesKey(id)
		assert.True(t, common.IsValidationError(err), id)
	}
}

func TestValidKey(t *testing.T) {
	assert.NoError(t, validKey("foods.json"))
	assert.NoError(t, validKey("consumption_history/u1.json"))
	assert.Error(t, validKey(""))
	assert.Error(t, validKey("/abs.json"))
	assert.Error(t, validKey("a/../b.json"))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Get(ctx, "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	payload := []byte(`{"a":1}`)
	require.NoError(t, s.Put(ctx, "doc.json", payload))
	payload[2] = 'X'

	got, err := s.Get(ctx, "doc.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
	assert.Equal(t, 1, s.Len())
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	fsys := afero.NewMemMapFs()
	s, err := NewFileStoreFs(fsys, "/data")
	require.NoError(t, err)

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "foods.json")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("nested key round trip", func(t *testing.T) {
		key, err := ConsumptionKey("u1")
		require.NoError(t, err)
		require.NoError(t, s.Put(ctx, key, []byte(`[]`)))
		got, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(got))

		exists, err := afero.Exists(fsys, "/data/consumption_history/u1.json")
		require.NoError(t, err)
		assert.True(t, exists)

		tmp, err := afero.Exists(fsys, "/data/consumption_history/u1.json.tmp")
		require.NoError(t, err)
		assert.False(t, tmp)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, "foods.json", []byte(`[1]`)))
		require.NoError(t, s.Put(ctx, "foods.json", []byte(`[2]`)))
		got, err := s.Get(ctx, "foods.json")
		require.NoError(t, err)
		assert.Equal(t, `[2]`, string(got))
	})

	t.Run("rejects escaping keys", func(t *testing.T) {
		assert.Error(t, s.Put(ctx, "../x.json", []byte(`{}`)))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.Get(cctx, "foods.json")
		assert.ErrorIs(t, err, context.Canceled)
	})

	assert.NoError(t, s.Ping(ctx))
}

func TestBadgerStoreInMemory(t *testing.T) {
	ctx := context.Background()
	s, err := NewBadgerStore("")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(ctx, "foods.json")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "foods.json", []byte(`[]`)))
	got, err := s.Get(ctx, "foods.json")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
	assert.NoError(t, s.Ping(ctx))
}

func TestInstrument(t *testing.T) {
	s := Instrument(NewMemoryStore())
	assert.Same(t, s, Instrument(s))
	assert.Equal(t, "memory", s.Name())

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "a.json", []byte(`1`)))
	got, err := s.Get(ctx, "a.json")
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))

	_, err = s.Get(ctx, "b.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMirroredStore(t *testing.T) {
	ctx := context.Background()

	t.Run("remote success refreshes local copy", func(t *testing.T) {
		remote, local := NewMemoryStore(), NewMemoryStore()
		require.NoError(t, remote.Put(ctx, "foods.json", []byte(`["remote"]`)))
		m := NewMirroredStore(remote, local, BreakerSettings{MaxFailures: 3, OpenTimeout: time.Minute})

		got, err := m.Get(ctx, "foods.json")
		require.NoError(t, err)
		assert.Equal(t, `["remote"]`, string(got))

		copied, err := local.Get(ctx, "foods.json")
		require.NoError(t, err)
		assert.Equal(t, `["remote"]`, string(copied))
	})

	t.Run("remote miss reads local", func(t *testing.T) {
		remote, local := NewMemoryStore(), NewMemoryStore()
		require.NoError(t, local.Put(ctx, "foods.json", []byte(`["local"]`)))
		m := NewMirroredStore(remote, local, BreakerSettings{MaxFailures: 1, OpenTimeout: time.Minute})

		for i := 0; i < 3; i++ {
			got, err := m.Get(ctx, "foods.json")
			require.NoError(t, err)
			assert.Equal(t, `["local"]`, string(got))
		}
		assert.Equal(t, "closed", m.BreakerState())
	})

	t.Run("remote failure falls back and trips breaker", func(t *testing.T) {
		remote := &failingStore{err: errors.New("connection refused")}
		local := NewMemoryStore()
		require.NoError(t, local.Put(ctx, "foods.json", []byte(`["local"]`)))
		m := NewMirroredStore(remote, local, BreakerSettings{MaxFailures: 2, OpenTimeout: time.Minute})

		for i := 0; i < 5; i++ {
			got, err := m.Get(ctx, "foods.json")
			require.NoError(t, err)
			assert.Equal(t, `["local"]`, string(got))
		}
		assert.Equal(t, "open", m.BreakerState())
		assert.Equal(t, 2, remote.Calls())
	})

	t.Run("put always lands locally", func(t *testing.T) {
		remote := &failingStore{err: errors.New("timeout")}
		local := NewMemoryStore()
		m := NewMirroredStore(remote, local, BreakerSettings{})

		require.NoError(t, m.Put(ctx, "a.json", []byte(`1`)))
		got, err := local.Get(ctx, "a.json")
		require.NoError(t, err)
		assert.Equal(t, "1", string(got))
		assert.NoError(t, m.Ping(ctx))
		assert.Equal(t, "failing+memory", m.Name())
	})
}

func TestObjectPath(t *testing.T) {
	assert.Equal(t, "data/foods.json", ObjectPath("foods.json"))
	assert.Equal(t, "data/consumption_history/u1.json", ObjectPath("consumption_history/u1.json"))
	assert.Equal(t, "users/u1.json", ObjectPath("users/u1.json"))
}

func TestSupabaseStore(t *testing.T) {
	var (
		mu      sync.Mutex
		objects = map[string][]byte{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		path := strings.TrimPrefix(r.URL.Path, "/storage/v1/object/data/")

		mu.Lock()
		defer mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			data, ok := objects[path]
			if !ok {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"statusCode":"404","error":"not_found","message":"Object not found"}`))
				return
			}
			_, _ = w.Write(data)
		case http.MethodPost:
			assert.Equal(t, "true", r.Header.Get("x-upsert"))
			body, _ := io.ReadAll(r.Body)
			objects[path] = body
			_, _ = w.Write([]byte(`{"Key":"ok"}`))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	client := resty.New().
		SetBaseURL(srv.URL+"/storage/v1").
		SetHeader("apikey", "test-key")
	s := newSupabaseStore(client, "data")
	ctx := context.Background()

	_, err := s.Get(ctx, "foods.json")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "foods.json", []byte(`[]`)))
	got, err := s.Get(ctx, "foods.json")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	mu.Lock()
	_, stored := objects["data/foods.json"]
	mu.Unlock()
	assert.True(t, stored)
}

func TestFirestoreHelpers(t *testing.T) {
	assert.Equal(t, "consumption_history_u1.json", DocID("consumption_history/u1.json"))

	doc, err := wrapFirestoreData([]byte(`[{"food_id":"pollo"}]`))
	require.NoError(t, err)
	require.Contains(t, doc, "data")

	out, err := unwrapFirestoreData(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"food_id":"pollo"}]`, string(out))

	legacy, err := unwrapFirestoreData(map[string]interface{}{"user_id": "u1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user_id":"u1"}`, string(legacy))
}
