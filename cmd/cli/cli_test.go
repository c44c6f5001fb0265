package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")

	require.Error(t, saveToken(path, ""))
	require.NoError(t, saveToken(path, "abc.def.ghi"))

	got, err := readToken(path)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", got)

	require.NoError(t, clearToken(path))
	require.NoError(t, clearToken(path))
	_, err = readToken(path)
	assert.Error(t, err)
}

func TestWebsocketURL(t *testing.T) {
	u, err := websocketURL("https://movies.example.com:8443", "/events/ws")
	require.NoError(t, err)
	assert.Equal(t, "wss://movies.example.com:8443/events/ws", u)

	u, err = websocketURL("http://localhost:8080", "/events/ws")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/events/ws", u)
}

func TestQueryCommand_SendsBearerAndBody(t *testing.T) {
	var gotAuth, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		gotBody = buf.String()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"resolved"}`))
	}))
	defer srv.Close()

	tokenPath := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, saveToken(tokenPath, "tok"))

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--api", srv.URL, "--token-file", tokenPath, "query", "--user", "7", "the", "matrix"})
	require.NoError(t, root.Execute())

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/v1/users/7/queries", gotPath)
	assert.Contains(t, gotBody, `"text":"the matrix"`)
	assert.Contains(t, out.String(), "resolved")
}

func TestAPIErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"insufficient role"}`))
	}))
	defer srv.Close()

	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--api", srv.URL, "--token-file", filepath.Join(t.TempDir(), "none.json"), "missing"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "insufficient role")
}

func TestHashPasswordCommand_Stdin(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader("s3cret\n"))
	root.SetArgs([]string{"hash-password"})
	require.NoError(t, root.Execute())

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}
