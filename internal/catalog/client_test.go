package catalog

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, payload any) *http.Response {
	blob, _ := json.Marshal(payload)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(string(blob))),
		Header:     make(http.Header),
	}
}

func testClient(fn roundTripFunc) *Client {
	client := NewClient(config.Config{GitHubAPIBaseURL: "https://example.test/api/", GitHubRateLimitRPS: 1000})
	client.httpClient = &http.Client{Transport: fn}
	return client
}

var testLocation = Location{Owner: "upc", Repo: "gestor-assignatures", Path: "src/fitxers/Assignatures MET.json", Branch: "main", Token: "tok"}

func TestClientRead(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`[{"codi":"2301234","sigles":"ABC"}]`))
	wrapped := encoded[:10] + "\n" + encoded[10:]

	client := testClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/repos/upc/gestor-assignatures/contents/src/fitxers/Assignatures%20MET.json", r.URL.EscapedPath())
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		return jsonResponse(http.StatusOK, map[string]any{"sha": "abc123", "content": wrapped, "encoding": "base64"}), nil
	})

	file, err := client.Read(context.Background(), testLocation)
	require.NoError(t, err)
	assert.Equal(t, "abc123", file.Revision)
	assert.Equal(t, `[{"codi":"2301234","sigles":"ABC"}]`, file.Content)
}

func TestClientReadErrors(t *testing.T) {
	notFound := testClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, map[string]any{"message": "Not Found"}), nil
	})
	_, err := notFound.Read(context.Background(), testLocation)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "file not found", err.Error())

	calls := 0
	failing := testClient(func(r *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusUnauthorized, map[string]any{"message": "Bad credentials"}), nil
	})
	_, err = failing.Read(context.Background(), testLocation)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Bad credentials", apiErr.Error())
	assert.Equal(t, 1, calls)
}

func TestClientWrite(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body writeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "old-sha", body.SHA)
		assert.Equal(t, "main", body.Branch)
		assert.Equal(t, "update", body.Message)
		decoded, err := base64.StdEncoding.DecodeString(body.Content)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(decoded))
		return jsonResponse(http.StatusOK, map[string]any{"content": map[string]any{"sha": "new-sha"}}), nil
	})

	rev, err := client.Write(context.Background(), testLocation, "[]", "update", "old-sha")
	require.NoError(t, err)
	assert.Equal(t, "new-sha", rev)
}

func TestClientWriteConflict(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusConflict, map[string]any{"message": "is at abc but expected def"}), nil
	})
	_, err := client.Write(context.Background(), testLocation, "[]", "update", "def")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestClientRequiresLocation(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		t.Fatal("unexpected request")
		return nil, nil
	})
	_, err := client.Read(context.Background(), Location{Repo: "r", Path: "p"})
	assert.Error(t, err)
}
