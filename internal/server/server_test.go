package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commentboard/internal/config"
	"commentboard/internal/database"
	"commentboard/internal/geo"
	"commentboard/internal/models"
	"commentboard/internal/service"
)

type fixedLocator struct{}

func (fixedLocator) Locate(_ context.Context, ip string) geo.Location {
	if ip == "127.0.0.1" {
		return geo.Localhost
	}
	return geo.Location{City: "Lisbon", Country: "Portugal"}
}

type stubTranslator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubTranslator) Translate(_ context.Context, text, _, target string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "[" + target + "] " + text, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Port:             "0",
		Env:              "test",
		DBDriver:         "sqlite",
		SQLitePath:       ":memory:",
		VoterIDSalt:      "test-voter-salt",
		WSMaxConnections: 10,
	}
}

func newTestServer(t *testing.T) (*Server, *stubTranslator) {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)

	translator := &stubTranslator{}
	retry := service.RetryPolicy{MaxTries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	srv, err := NewServerWithDeps(testConfig(), db, nil, Options{
		Locator:    fixedLocator{},
		Translator: translator,
		Retry:      &retry,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, translator
}

func doJSON(t *testing.T, app *fiber.App, method, path, voterIP string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if voterIP != "" {
		req.Header.Set("X-Forwarded-For", voterIP)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp, data
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Deleted   bool            `json:"deleted"`
	CommentID string          `json:"commentId"`
	Error     string          `json:"error"`
	Code      string          `json:"code"`
}

func decodeEnvelope(t *testing.T, body []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return env
}

func decodeComment(t *testing.T, body []byte) models.Comment {
	t.Helper()
	env := decodeEnvelope(t, body)
	require.True(t, env.Success, string(body))
	var c models.Comment
	require.NoError(t, json.Unmarshal(env.Data, &c))
	return c
}

func createComment(t *testing.T, app *fiber.App, username, content string) models.Comment {
	t.Helper()
	resp, body := doJSON(t, app, http.MethodPost, "/api/comments", "203.0.113.1",
		map[string]string{"username": username, "content": content})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	return decodeComment(t, body)
}

func TestCreateAndListComments(t *testing.T) {
	srv, _ := newTestServer(t)
	app := srv.App()

	first := createComment(t, app, "ana", "First comment")
	second := createComment(t, app, "bruno", "Second comment")
	assert.Equal(t, "Lisbon", first.City)
	assert.Equal(t, []string{}, first.LikedBy)
	assert.Equal(t, []string{}, first.DislikedBy)

	resp, body := doJSON(t, app, http.MethodGet, "/api/comments?limit=1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, body)
	var page []models.Comment
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)

	resp, body = doJSON(t, app, http.MethodGet, "/api/comments?limit=10&skip=1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, body).Data, &page))
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].ID)

	resp, body = doJSON(t, app, http.MethodGet, "/api/comments/"+first.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "First comment", decodeComment(t, body).Content)
}

func TestCreateComment_Validation(t *testing.T) {
	srv, _ := newTestServer(t)
	app := srv.App()

	tests := []struct {
		name string
		body any
	}{
		{"bad username", map[string]string{"username": "no spaces allowed", "content": "hi"}},
		{"bad content", map[string]string{"username": "ana", "content": "<b>hi</b>"}},
		{"too long", map[string]string{"username": "ana", "content": strings.Repeat("a", 501)}},
		{"missing fields", map[string]string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, app, http.MethodPost, "/api/comments", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			env := decodeEnvelope(t, body)
			assert.False(t, env.Success)
			assert.Equal(t, models.CodeValidation, env.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/comments", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetComment_Errors(t *testing.T) {
	srv, _ := newTestServer(t)
	app := srv.App()

	resp, body := doJSON(t, app, http.MethodGet, "/api/comments/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, decodeEnvelope(t, body).Code)

	resp, body = doJSON(t, app, http.MethodGet, "/api/comments/00000000-0000-0000-0000-000000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, decodeEnvelope(t, body).Code)
}

func TestVoting_IdempotentToggleAndDelete(t *testing.T) {
	srv, _ := newTestServer(t)
	app := srv.App()
	c := createComment(t, app, "ana", "Vote on me")
	likeURL := "/api/comments/" + c.ID + "/like"
	dislikeURL := "/api/comments/" + c.ID + "/dislike"

	resp, body := doJSON(t, app, http.MethodPost, likeURL, "198.51.100.1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, 1, decodeComment(t, body).Likes)

	// Same voter, same direction.
	_, body = doJSON(t, app, http.MethodPost, likeURL, "198.51.100.1", nil)
	liked := decodeComment(t, body)
	assert.Equal(t, 1, liked.Likes)
	require.Len(t, liked.LikedBy, 1)

	// Same voter switches sides.
	_, body = doJSON(t, app, http.MethodPost, dislikeURL, "198.51.100.1", nil)
	toggled := decodeComment(t, body)
	assert.Equal(t, 0, toggled.Likes)
	assert.Equal(t, 1, toggled.Dislikes)
	assert.Empty(t, toggled.LikedBy)
	assert.Equal(t, liked.LikedBy, toggled.DislikedBy)

	// A second voter's dislike reaches the threshold.
	resp, body = doJSON(t, app, http.MethodPost, dislikeURL, "198.51.100.2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env := decodeEnvelope(t, body)
	assert.True(t, env.Success)
	assert.True(t, env.Deleted)
	assert.Equal(t, c.ID, env.CommentID)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/comments/"+c.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, likeURL, "198.51.100.3", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, decodeEnvelope(t, body).Code)
}

func TestVoting_VoterIDIsNotTheRawAddress(t *testing.T) {
	srv, _ := newTestServer(t)
	app := srv.App()
	c := createComment(t, app, "ana", "Hello")

	_, body := doJSON(t, app, http.MethodPost, "/api/comments/"+c.ID+"/like", "198.51.100.7", nil)
	liked := decodeComment(t, body)
	require.Len(t, liked.LikedBy, 1)
	assert.NotContains(t, liked.LikedBy[0], "198.51.100.7")
	assert.Len(t, liked.LikedBy[0], 64)
}

func TestTranslate(t *testing.T) {
	srv, translator := newTestServer(t)
	app := srv.App()
	c := createComment(t, app, "ana", "Good morning")

	payload := map[string]string{"commentId": c.ID, "commentText": "Good morning", "targetLanguage": "pt"}
	resp, body := doJSON(t, app, http.MethodPost, "/api/translate", "", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var res service.TranslationResult
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, body).Data, &res))
	assert.Equal(t, "[pt] Good morning", res.TranslatedText)
	assert.False(t, res.Cached)

	_, body = doJSON(t, app, http.MethodPost, "/api/translate", "", payload)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, body).Data, &res))
	assert.True(t, res.Cached)
	assert.Equal(t, 1, translator.calls)

	resp, body = doJSON(t, app, http.MethodPost, "/api/translate", "",
		map[string]string{"commentId": c.ID, "targetLanguage": "not a language"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, decodeEnvelope(t, body).Code)
}

func TestTranslate_UpstreamFailure(t *testing.T) {
	srv, translator := newTestServer(t)
	translator.err = assert.AnError
	app := srv.App()
	c := createComment(t, app, "ana", "Good morning")

	resp, body := doJSON(t, app, http.MethodPost, "/api/translate", "",
		map[string]string{"commentId": c.ID, "targetLanguage": "de"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, models.CodeUpstreamUnavailable, decodeEnvelope(t, body).Code)
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	app := srv.App()

	resp, body := doJSON(t, app, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, true, health["success"])
	assert.Equal(t, "healthy", health["status"])
	services := health["services"].(map[string]any)
	assert.Equal(t, "connected", services["database"])
	assert.Equal(t, "unavailable", services["redis"])

	resp, _ = doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocketEndpointRequiresUpgrade(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doJSON(t, srv.App(), http.MethodGet, "/api/ws", "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestRespondError_StorageUnavailableSetsRetryAfter(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return respondError(c, models.NewStorageUnavailableError(context.DeadlineExceeded))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, retryAfterSeconds, resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 50, 0},
		{"?limit=10&skip=5", 10, 5},
		{"?limit=1000", 100, 0},
		{"?limit=-3&skip=-1", 50, 0},
		{"?offset=7", 50, 7},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			app := fiber.New()
			var got Pagination
			app.Get("/", func(c *fiber.Ctx) error {
				got = parsePagination(c)
				return nil
			})
			_, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, Pagination{Limit: tt.wantLimit, Offset: tt.wantOffset}, got)
		})
	}
}
