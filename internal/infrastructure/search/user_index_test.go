package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-user-registry/internal/domain/entity"
	"github.com/oksasatya/go-user-registry/pkg/helpers"
)

type fakeES struct {
	mu       sync.Mutex
	method   string
	path     string
	body     map[string]any
	response string
	status   int
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.method = r.Method
	f.path = r.URL.Path
	raw, _ := io.ReadAll(r.Body)
	f.body = nil
	_ = json.Unmarshal(raw, &f.body)

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, f.response)
}

func (f *fakeES) last() (method, path string, body map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.method, f.path, f.body
}

func newTestIndex(t *testing.T, f *fakeES) *UserIndex {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	es, err := helpers.NewESClient([]string{srv.URL}, "", "")
	require.NoError(t, err)
	return NewUserIndex(es, "users")
}

func TestClampSize(t *testing.T) {
	assert.Equal(t, DefaultSize, ClampSize(0))
	assert.Equal(t, DefaultSize, ClampSize(-3))
	assert.Equal(t, 1, ClampSize(1))
	assert.Equal(t, 25, ClampSize(25))
	assert.Equal(t, MaxSize, ClampSize(500))
}

func TestUserIndex_Index(t *testing.T) {
	f := &fakeES{response: `{"result":"created"}`}
	x := newTestIndex(t, f)

	u := &entity.User{
		ID:        7,
		Name:      "Maria Silva",
		Email:     "maria@example.com",
		BirthDate: time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC),
		Active:    true,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, x.Index(context.Background(), u))

	method, path, body := f.last()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/users/_doc/7", path)
	assert.Equal(t, "maria@example.com", body["email"])
	assert.Equal(t, "1990-05-17", body["birth_date"])
	assert.Nil(t, body["phone"])
	assert.NotContains(t, body, "password_hash")
}

func TestUserIndex_IndexErrorStatus(t *testing.T) {
	f := &fakeES{status: http.StatusBadRequest, response: `{"error":"mapper_parsing_exception"}`}
	x := newTestIndex(t, f)

	err := x.Index(context.Background(), &entity.User{ID: 1})
	require.Error(t, err)
}

func TestUserIndex_Search(t *testing.T) {
	f := &fakeES{response: `{"hits":{"hits":[{"_id":"3"},{"_id":"junk"},{"_id":"1"}]}}`}
	x := newTestIndex(t, f)

	ids, err := x.Search(context.Background(), "maria", 100)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids)

	_, path, body := f.last()
	assert.Equal(t, "/users/_search", path)
	assert.EqualValues(t, MaxSize, body["size"])
	mm := body["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "maria", mm["query"])
	assert.Equal(t, []any{"email^2", "name"}, mm["fields"])
}
