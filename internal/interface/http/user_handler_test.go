package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	userapp "github.com/oksasatya/go-user-registry/internal/application"
	"github.com/oksasatya/go-user-registry/internal/infrastructure/sqlite"
	"github.com/oksasatya/go-user-registry/pkg/helpers"
	"github.com/oksasatya/go-user-registry/pkg/validation"
)

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	validation.Init()
	m.Run()
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate())
	t.Cleanup(func() { _ = store.Close() })

	logger := helpers.NewDiscardLogger()
	svc := userapp.NewService(store, logger, userapp.WithBcryptCost(bcrypt.MinCost))
	h := NewUserHandler(svc, logger, "/usuarios")
	health := NewHealthHandler(store)

	r := gin.New()
	r.GET("/healthz", health.Health)
	g := r.Group("/usuarios")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/email", h.EmailTaken)
	g.GET("/search", h.Search)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	return r
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func payload(email string) map[string]any {
	return map[string]any{
		"name":       "Maria Silva",
		"email":      email,
		"password":   "secret1",
		"birth_date": "1990-05-17",
		"phone":      "(11) 91234-5678",
	}
}

func createUser(t *testing.T, r *gin.Engine, email string) map[string]any {
	t.Helper()
	w, env := do(t, r, http.MethodPost, "/usuarios", payload(email))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

func TestCreate(t *testing.T) {
	r := newTestRouter(t)

	w, env := do(t, r, http.MethodPost, "/usuarios", payload("Foo@Bar.COM"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "foo@bar.com", data["email"])
	assert.Equal(t, "1990-05-17", data["birth_date"])
	assert.Equal(t, true, data["active"])
	assert.NotContains(t, data, "password")
	assert.NotContains(t, data, "password_hash")
	assert.Equal(t, fmt.Sprintf("/usuarios/%v", data["id"]), w.Header().Get("Location"))
}

func TestCreate_ValidationErrors(t *testing.T) {
	r := newTestRouter(t)

	body := payload("not-an-email")
	body["name"] = "Al"
	body["phone"] = "11 91234-5678"
	body["birth_date"] = "2020-01-01"
	w, env := do(t, r, http.MethodPost, "/usuarios", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var details map[string]string
	require.NoError(t, json.Unmarshal(env.Error, &details))
	assert.Contains(t, details, "name")
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "phone")
	assert.Equal(t, "user must be at least 18 years old", details["birth_date"])
}

func TestCreate_InvalidJSON(t *testing.T) {
	r := newTestRouter(t)

	w, env := do(t, r, http.MethodPost, "/usuarios", `{"name":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"payload":"invalid json"}`, string(env.Error))
}

func TestCreate_DuplicateIsConflict(t *testing.T) {
	r := newTestRouter(t)
	createUser(t, r, "dup@example.com")

	w, env := do(t, r, http.MethodPost, "/usuarios", payload("DUP@example.com"))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `"email 'dup@example.com' is already registered"`, string(env.Error))
}

func TestGet(t *testing.T) {
	r := newTestRouter(t)
	created := createUser(t, r, "get@example.com")

	w, env := do(t, r, http.MethodGet, fmt.Sprintf("/usuarios/%v", created["id"]), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, created, got)

	w, _ = do(t, r, http.MethodGet, "/usuarios/999999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodGet, "/usuarios/abc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestList(t *testing.T) {
	r := newTestRouter(t)

	w, env := do(t, r, http.MethodGet, "/usuarios", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	createUser(t, r, "a@example.com")
	createUser(t, r, "b@example.com")

	w, env = do(t, r, http.MethodGet, "/usuarios", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 2)
}

func TestUpdate(t *testing.T) {
	r := newTestRouter(t)
	created := createUser(t, r, "upd@example.com")
	createUser(t, r, "taken@example.com")
	path := fmt.Sprintf("/usuarios/%v", created["id"])

	body := payload("Upd2@Example.com")
	delete(body, "password")
	body["name"] = "Maria Souza"
	body["active"] = false
	w, env := do(t, r, http.MethodPut, path, body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Maria Souza", got["name"])
	assert.Equal(t, "upd2@example.com", got["email"])
	assert.Equal(t, false, got["active"])
	assert.Equal(t, created["created_at"], got["created_at"])

	w, _ = do(t, r, http.MethodPut, "/usuarios/999999", payload("x@example.com"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, r, http.MethodPut, path, payload("taken@example.com"))
	assert.Equal(t, http.StatusConflict, w.Code)

	short := payload("upd@example.com")
	short["password"] = "123"
	w, _ = do(t, r, http.MethodPut, path, short)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDelete(t *testing.T) {
	r := newTestRouter(t)
	created := createUser(t, r, "del@example.com")
	path := fmt.Sprintf("/usuarios/%v", created["id"])

	w, _ := do(t, r, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, w.Body.Len())

	w, env := do(t, r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, false, got["active"])

	w, _ = do(t, r, http.MethodDelete, "/usuarios/999999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEmailTaken(t *testing.T) {
	r := newTestRouter(t)
	createUser(t, r, "seen@example.com")

	w, env := do(t, r, http.MethodGet, "/usuarios/email?value=SEEN@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"seen@example.com","taken":true}`, string(env.Data))

	w, env = do(t, r, http.MethodGet, "/usuarios/email?value=new@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"new@example.com","taken":false}`, string(env.Data))

	w, _ = do(t, r, http.MethodGet, "/usuarios/email", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch_WithoutIndex(t *testing.T) {
	r := newTestRouter(t)

	w, env := do(t, r, http.MethodGet, "/usuarios/search?q=maria", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	w, _ = do(t, r, http.MethodGet, "/usuarios/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	w, env := do(t, r, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		fmt.Errorf("wrapped: %w", userapp.ErrDuplicateEmail): http.StatusConflict,
		userapp.ErrUnderAge:                                  http.StatusConflict,
		userapp.ErrUserNotFound:                              http.StatusNotFound,
		errors.New("disk on fire"):                           http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}
