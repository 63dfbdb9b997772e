package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/gatehouse/pkg/auth"
)

func mintToken(t *testing.T, server *Server, owner map[string]string, name string) CreateTokenResponse {
	t.Helper()

	w := doJSON(t, server, "POST", "/v1/tokens", CreateTokenRequest{Name: name}, owner)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp CreateTokenResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestCreateToken(t *testing.T) {
	server, _ := newTestServer(t)

	resp := mintToken(t, server, asUser("user:alice"), "ci token")

	assert.True(t, strings.HasPrefix(resp.Token, auth.TokenPrefix))
	assert.Equal(t, "user:alice", resp.Record.OwnerID)
	assert.True(t, strings.HasPrefix(resp.Record.PrincipalID, "token:"))
	assert.Equal(t, "ci token", resp.Record.Name)
	assert.Empty(t, resp.Record.TokenHash, "hash must never serialize")
}

func TestCreateToken_Validation(t *testing.T) {
	server, _ := newTestServer(t)
	alice := asUser("user:alice")

	w := doJSON(t, server, "POST", "/v1/tokens", CreateTokenRequest{}, alice)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	past := time.Now().Add(-time.Hour)
	w = doJSON(t, server, "POST", "/v1/tokens", CreateTokenRequest{Name: "old", ExpiresAt: &past}, alice)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, server, "POST", "/v1/tokens", CreateTokenRequest{Name: "x"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateToken_TokensCannotMintTokens(t *testing.T) {
	server, _ := newTestServer(t)

	resp := mintToken(t, server, asUser("user:alice"), "first")

	w := doJSON(t, server, "POST", "/v1/tokens", CreateTokenRequest{Name: "second"},
		map[string]string{"Authorization": "Bearer " + resp.Token})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBearerTokenAuthenticates(t *testing.T) {
	server, _ := newTestServer(t)

	resp := mintToken(t, server, asUser("user:alice"), "ci")

	// The token principal gets the default authenticated roles.
	w := doJSON(t, server, "POST", "/v1/authorize",
		AuthorizeRequest{Path: "/api/workflow", Method: "GET"},
		map[string]string{"Authorization": "Bearer " + resp.Token})
	require.Equal(t, http.StatusOK, w.Code)
	d := decodeDecision(t, w)
	assert.True(t, d.Allowed)
}

func TestBearerToken_Invalid(t *testing.T) {
	server, _ := newTestServer(t)

	w := doJSON(t, server, "POST", "/v1/authorize",
		AuthorizeRequest{Path: "/api/workflow", Method: "GET"},
		map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Well formed but unknown.
	w = doJSON(t, server, "POST", "/v1/authorize",
		AuthorizeRequest{Path: "/api/workflow", Method: "GET"},
		map[string]string{"Authorization": "Bearer " + auth.TokenPrefix + strings.Repeat("A", 43)})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListTokens(t *testing.T) {
	server, _ := newTestServer(t)
	alice := asUser("user:alice")

	mintToken(t, server, alice, "one")
	mintToken(t, server, alice, "two")

	w := doJSON(t, server, "GET", "/v1/tokens", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	var tokens []auth.Token
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tokens))
	assert.Len(t, tokens, 2)

	// Another owner sees nothing.
	w = doJSON(t, server, "GET", "/v1/tokens", nil, asUser("user:bob"))
	require.Equal(t, http.StatusOK, w.Code)
	tokens = nil
	require.NoError(t, json.NewDecoder(w.Body).Decode(&tokens))
	assert.Empty(t, tokens)
}

func TestRevokeToken(t *testing.T) {
	server, _ := newTestServer(t)
	alice := asUser("user:alice")

	resp := mintToken(t, server, alice, "ci")
	id := strconv.FormatInt(resp.Record.ID, 10)

	// Another owner cannot revoke it.
	w := doJSON(t, server, "DELETE", "/v1/tokens/"+id, nil, asUser("user:bob"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, server, "DELETE", "/v1/tokens/"+id, nil, alice)
	require.Equal(t, http.StatusNoContent, w.Code)

	// The revoked token no longer authenticates.
	w = doJSON(t, server, "POST", "/v1/authorize",
		AuthorizeRequest{Path: "/api/workflow", Method: "GET"},
		map[string]string{"Authorization": "Bearer " + resp.Token})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
