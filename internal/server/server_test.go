package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/dylantneal/eng.com-sub003/internal/auth"
	"github.com/dylantneal/eng.com-sub003/internal/cache"
	"github.com/dylantneal/eng.com-sub003/internal/config"
	"github.com/dylantneal/eng.com-sub003/internal/feed"
	"github.com/dylantneal/eng.com-sub003/internal/models"
	"github.com/dylantneal/eng.com-sub003/internal/storage"
	"github.com/dylantneal/eng.com-sub003/internal/storage/memory"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) ListItems(ctx context.Context, q storage.Query) ([]models.FeedItem, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]models.FeedItem)
	return items, args.Error(1)
}

func (m *mockStorage) CreateItem(ctx context.Context, item *models.FeedItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

type feedResponse struct {
	Items              []models.FeedItem `json:"items"`
	NextCursor         *string           `json:"nextCursor"`
	NextCursorTiebreak *int64            `json:"nextCursorTiebreak"`
}

type testEnv struct {
	server *Server
	store  *memory.MemoryStorage
	auth   *auth.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Env = "test"

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := memory.New()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for n := 1; n <= 14; n++ {
		require.NoError(t, store.CreateItem(ctx, &models.FeedItem{
			ID:        fmt.Sprintf("i%02d", n),
			OwnerID:   fmt.Sprintf("u%d", n%2),
			TipsCents: int64(n%3) * 100,
			CreatedAt: base.Add(time.Duration(n) * time.Minute),
		}))
	}

	authManager := auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, time.Hour)
	paginator := feed.NewPaginator(store, feed.RelationshipResolvers(store), cfg.Feed.PageSize, log)
	memCache := cache.NewMemory(0)
	t.Cleanup(func() { memCache.Close() })

	return &testEnv{
		server: New(cfg, paginator, memCache, authManager, log),
		store:  store,
		auth:   authManager,
	}
}

func (e *testEnv) get(t *testing.T, query url.Values, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/feed?"+query.Encode(), nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) feedResponse {
	t.Helper()
	var resp feedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestNewServer(t *testing.T) {
	env := newTestEnv(t)

	assert.NotNil(t, env.server)
	assert.NotNil(t, env.server.Handler())
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestFeedPages(t *testing.T) {
	env := newTestEnv(t)

	rr := env.get(t, url.Values{"filter": {"newest"}}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))
	assert.Equal(t, "public, max-age=30", rr.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	first := decode(t, rr)
	require.Len(t, first.Items, 12)
	assert.Equal(t, "i14", first.Items[0].ID)
	assert.Equal(t, "i03", first.Items[11].ID)
	require.NotNil(t, first.NextCursor)
	assert.Nil(t, first.NextCursorTiebreak)

	rr = env.get(t, url.Values{"filter": {"newest"}, "cursor": {*first.NextCursor}}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	second := decode(t, rr)
	require.Len(t, second.Items, 2)
	assert.Equal(t, "i02", second.Items[0].ID)
	assert.Equal(t, "i01", second.Items[1].ID)
	assert.Nil(t, second.NextCursor)
	assert.Contains(t, rr.Body.String(), `"nextCursor":null`)
}

func TestFeedCache(t *testing.T) {
	env := newTestEnv(t)

	first := env.get(t, url.Values{"filter": {"newest"}}, "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	// Новый элемент не виден, пока запись в кэше жива
	require.NoError(t, env.store.CreateItem(context.Background(), &models.FeedItem{ID: "fresh", CreatedAt: time.Now()}))

	second := env.get(t, url.Values{"filter": {"unknown-mode"}}, "")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"), "Неизвестный режим делит кэш с newest")
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestFeedTop(t *testing.T) {
	env := newTestEnv(t)

	rr := env.get(t, url.Values{"filter": {"top"}}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode(t, rr)
	require.NotNil(t, page.NextCursor)
	require.NotNil(t, page.NextCursorTiebreak)
	assert.Equal(t, page.Items[len(page.Items)-1].TipsCents, *page.NextCursorTiebreak)

	rr = env.get(t, url.Values{
		"filter":         {"top"},
		"cursor":         {*page.NextCursor},
		"cursorTiebreak": {fmt.Sprint(*page.NextCursorTiebreak)},
	}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr).Items, 2)
}

func TestFeedFollowing(t *testing.T) {
	env := newTestEnv(t)

	rr := env.get(t, url.Values{"filter": {"following"}}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code, "Анонимный following - ошибка клиента")
	assert.Contains(t, rr.Body.String(), "invalid_filter")

	token, err := env.auth.GenerateToken("viewer")
	require.NoError(t, err)

	rr = env.get(t, url.Values{"filter": {"following"}}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode(t, rr).Items, "Без подписок лента пуста")
	assert.JSONEq(t, `{"items":[],"nextCursor":null,"nextCursorTiebreak":null}`, rr.Body.String())

	require.NoError(t, env.store.Follow(context.Background(), "reader", "u1"))
	readerToken, err := env.auth.GenerateToken("reader")
	require.NoError(t, err)

	rr = env.get(t, url.Values{"filter": {"following"}}, readerToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "private, max-age=30", rr.Header().Get("Cache-Control"))
	page := decode(t, rr)
	require.Len(t, page.Items, 7)
	for _, item := range page.Items {
		assert.Equal(t, "u1", item.OwnerID)
	}
}

func TestFeedErrors(t *testing.T) {
	env := newTestEnv(t)

	rr := env.get(t, url.Values{"cursor": {"created_at_id"}}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "malformed_cursor")

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestFeedStoreUnavailable(t *testing.T) {
	cfg := config.Default()
	log := logrus.New()
	log.SetOutput(io.Discard)

	store := &mockStorage{}
	store.On("ListItems", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	srv := New(cfg, feed.NewPaginator(store, nil, 12, log), cache.Noop{}, auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, time.Hour), log)

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/feed", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal","message":"failed to load feed"}`, rr.Body.String())
	store.AssertNumberOfCalls(t, "ListItems", 1)
}
