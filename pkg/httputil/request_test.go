package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestParseJSON(t *testing.T) {
	body := bytes.NewBufferString(`{"name": "viewer"}`)
	r := httptest.NewRequest("POST", "/v1/roles", body)

	var dest struct {
		Name string `json:"name"`
	}
	err := ParseJSON(r, &dest)

	assert.NoError(t, err)
	assert.Equal(t, "viewer", dest.Name)
}

func TestParseJSON_Invalid(t *testing.T) {
	body := bytes.NewBufferString(`{not json`)
	r := httptest.NewRequest("POST", "/v1/roles", body)

	var dest map[string]string
	err := ParseJSON(r, &dest)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestParseJSONOrError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/v1/roles", bytes.NewBufferString(`{bad`))

	var dest map[string]string
	ok := ParseJSONOrError(w, r, &dest)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePathString(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/roles/editor", nil)
	r = mux.SetURLVars(r, map[string]string{"name": "editor"})

	val, err := ParsePathString(r, "name")

	assert.NoError(t, err)
	assert.Equal(t, "editor", val)
}

func TestParsePathString_Missing(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/roles", nil)

	_, err := ParsePathString(r, "name")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing path parameter")
}

func TestParsePathStringOrError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/v1/roles", nil)

	_, ok := ParsePathStringOrError(w, r, "name")

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseQueryString(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/tokens?owner=user:alice", nil)

	assert.Equal(t, "user:alice", ParseQueryString(r, "owner", ""))
	assert.Equal(t, "fallback", ParseQueryString(r, "missing", "fallback"))
}

func TestParseQueryBool(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/roles?include_policy=true", nil)

	val, err := ParseQueryBool(r, "include_policy", false)
	assert.NoError(t, err)
	assert.True(t, val)

	val, err = ParseQueryBool(r, "missing", true)
	assert.NoError(t, err)
	assert.True(t, val)

	r = httptest.NewRequest("GET", "/v1/roles?include_policy=banana", nil)
	_, err = ParseQueryBool(r, "include_policy", false)
	assert.Error(t, err)
}

func TestRequireNonEmpty(t *testing.T) {
	w := httptest.NewRecorder()
	assert.True(t, RequireNonEmpty(w, "value", "field"))

	w = httptest.NewRecorder()
	assert.False(t, RequireNonEmpty(w, "", "field"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "field is required")
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/v1/roles", nil)
	r.Header.Set("X-Request-ID", "req-abc")
	handler.ServeHTTP(w, r)

	assert.Equal(t, "req-abc", seen)
	assert.Equal(t, "req-abc", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/v1/roles", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestContentTypeMiddleware(t *testing.T) {
	handler := ContentTypeMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/v1/roles", bytes.NewBufferString(`{}`))
	r.Header.Set("Content-Type", "text/plain")
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r = httptest.NewRequest("POST", "/v1/roles", bytes.NewBufferString(`{}`))
	r.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/v1/roles", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
