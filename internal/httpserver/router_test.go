package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agrilink/messaging/internal/config"
	"github.com/agrilink/messaging/internal/domain"
	"github.com/agrilink/messaging/internal/httpserver"
	"github.com/agrilink/messaging/internal/realtime"
	"github.com/agrilink/messaging/internal/security"
	"github.com/agrilink/messaging/internal/store/sqlite"
)

type apiTest struct {
	srv    *httptest.Server
	tokens *security.TokenService
}

func newAPITest(t *testing.T) *apiTest {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, sqlite.Migrate(db))
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		CORSOrigins: []string{"http://localhost:3000"},
	}
	tokens := security.NewTokenService("test-secret", time.Hour)
	hub := realtime.NewHub()

	router := httpserver.NewRouter(
		cfg, zap.NewNop().Sugar(), tokens, hub, hub,
		sqlite.NewConversationRepo(db),
		sqlite.NewMessageRepo(db),
		sqlite.NewProfileRepo(db),
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &apiTest{srv: srv, tokens: tokens}
}

func (a *apiTest) request(t *testing.T, method, path, user string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.srv.URL+path, &buf)
	require.NoError(t, err)
	if user != "" {
		token, err := a.tokens.CreateForUser(user)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestAPIRequiresAuth(t *testing.T) {
	a := newAPITest(t)

	resp := a.request(t, http.MethodGet, "/api/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Token signed with a different secret is rejected too.
	other := security.NewTokenService("other-secret", time.Hour)
	token, err := other.CreateForUser("alice")
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodGet, a.srv.URL+"/api/conversations", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestConversationEndpoints(t *testing.T) {
	a := newAPITest(t)

	resp := a.request(t, http.MethodPost, "/api/conversations", "alice",
		map[string]string{"other_user_id": "bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	conv := decode[domain.Conversation](t, resp)
	assert.NotEmpty(t, conv.ID)

	// Repeating from the other side returns the same conversation.
	resp = a.request(t, http.MethodPost, "/api/conversations", "bob",
		map[string]string{"other_user_id": "alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	again := decode[domain.Conversation](t, resp)
	assert.Equal(t, conv.ID, again.ID)

	// Self-conversations are rejected before storage.
	resp = a.request(t, http.MethodPost, "/api/conversations", "alice",
		map[string]string{"other_user_id": "alice"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// An outsider cannot fetch it.
	resp = a.request(t, http.MethodGet, "/api/conversations/"+conv.ID, "carol", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.request(t, http.MethodGet, "/api/conversations/no-such-id", "alice", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMessageEndpoints(t *testing.T) {
	a := newAPITest(t)

	resp := a.request(t, http.MethodPost, "/api/conversations", "alice",
		map[string]string{"other_user_id": "bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	conv := decode[domain.Conversation](t, resp)
	base := fmt.Sprintf("/api/conversations/%s/messages", conv.ID)

	resp = a.request(t, http.MethodPost, base, "alice",
		map[string]string{"content": "When can you start?"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	msg := decode[domain.Message](t, resp)
	assert.Equal(t, "alice", msg.SenderID)
	assert.False(t, msg.IsRead)

	resp = a.request(t, http.MethodPost, base, "alice", map[string]string{"content": "   "})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = a.request(t, http.MethodPost, base, "carol", map[string]string{"content": "hi"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Bob loading the thread sees the message and implicitly reads it.
	resp = a.request(t, http.MethodGet, base, "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msgs := decode[[]domain.Message](t, resp)
	require.Len(t, msgs, 1)

	resp = a.request(t, http.MethodPost, "/api/conversations/"+conv.ID+"/read", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	marked := decode[map[string]int64](t, resp)
	assert.Zero(t, marked["marked"], "thread load already marked the message")

	resp = a.request(t, http.MethodGet, base, "alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msgs = decode[[]domain.Message](t, resp)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsRead)
}

// markReadFailingRepo wraps a real message repo but fails every MarkAllRead.
type markReadFailingRepo struct {
	domain.MessageRepository
}

func (r markReadFailingRepo) MarkAllRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	return 0, errors.New("read state store down")
}

func TestThreadLoadSurvivesMarkReadFailure(t *testing.T) {
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, sqlite.Migrate(db))
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{CORSOrigins: []string{"http://localhost:3000"}}
	tokens := security.NewTokenService("test-secret", time.Hour)
	hub := realtime.NewHub()

	router := httpserver.NewRouter(
		cfg, zap.NewNop().Sugar(), tokens, hub, hub,
		sqlite.NewConversationRepo(db),
		markReadFailingRepo{sqlite.NewMessageRepo(db)},
		sqlite.NewProfileRepo(db),
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	a := &apiTest{srv: srv, tokens: tokens}

	resp := a.request(t, http.MethodPost, "/api/conversations", "alice",
		map[string]string{"other_user_id": "bob"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	conv := decode[domain.Conversation](t, resp)

	resp = a.request(t, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", "alice",
		map[string]string{"content": "crates packed"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// The implicit mark-read fails, but the history still loads.
	resp = a.request(t, http.MethodGet, "/api/conversations/"+conv.ID+"/messages", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msgs := decode[[]domain.Message](t, resp)
	require.Len(t, msgs, 1)
	assert.Equal(t, "crates packed", msgs[0].Content)
}

func TestProfileEndpoints(t *testing.T) {
	a := newAPITest(t)

	resp := a.request(t, http.MethodPut, "/api/profiles/me", "alice",
		map[string]string{"display_name": "Alice's Farm"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	p := decode[domain.Profile](t, resp)
	assert.Equal(t, "alice", p.ID)
	assert.Equal(t, "Alice's Farm", p.DisplayName)

	resp = a.request(t, http.MethodPut, "/api/profiles/me", "alice",
		map[string]string{"display_name": "  "})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = a.request(t, http.MethodGet, "/api/profiles/alice", "bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.request(t, http.MethodGet, "/api/profiles/nobody", "bob", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
