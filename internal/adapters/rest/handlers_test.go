package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type findCall struct {
	filter domain.ListingFilter
	chatID string
}

type fakeFindListings struct {
	mu      sync.Mutex
	calls   []findCall
	records []domain.ListingRecord
	err     error
}

func (f *fakeFindListings) Execute(ctx context.Context, filter domain.ListingFilter, chatID string) ([]domain.ListingRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, findCall{filter: filter, chatID: chatID})
	return f.records, f.err
}

type fakeIngest struct {
	mu         sync.Mutex
	categories []domain.Category
	done       chan struct{}
}

func (f *fakeIngest) Execute(ctx context.Context, categories []domain.Category) ([]*domain.IngestionStats, error) {
	f.mu.Lock()
	f.categories = append(f.categories, categories...)
	f.mu.Unlock()
	close(f.done)
	return nil, nil
}

type fakeGate struct {
	pending []domain.ChallengeDetected
	acked   int
}

func (g *fakeGate) Pending() []domain.ChallengeDetected { return g.pending }

func (g *fakeGate) Acknowledge() error {
	if len(g.pending) == 0 {
		return domain.ErrNoPendingChallenge
	}
	g.acked++
	g.pending = nil
	return nil
}

func newTestRouter(find *fakeFindListings, ingest *fakeIngest, gate *fakeGate) http.Handler {
	var ingestHandler *IngestHandler
	if ingest != nil {
		ingestHandler = NewIngestHandler(context.Background(), ingest)
	}
	var challengeHandler *ChallengeHandler
	if gate != nil {
		challengeHandler = NewChallengeHandler(gate)
	}
	return NewRouter(NewListingsHandler(find), ingestHandler, challengeHandler, []string{"*"}, contextkeys.NoopLogger())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestRentFilterFromForm(t *testing.T) {
	find := &fakeFindListings{records: []domain.ListingRecord{
		{Category: domain.CategoryRental, Address: "Ленина, 1", Price: "45 000 ₽", Rooms: "2-к. квартира", Area: "50 м²"},
	}}
	router := newTestRouter(find, nil, nil)

	form := url.Values{"rooms": {"2"}, "area": {"45,5"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rent?user_id=12345", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, find.calls, 1)
	call := find.calls[0]
	assert.Equal(t, domain.CategoryRental, call.filter.Category)
	assert.Equal(t, "2-к. квартира", call.filter.Rooms)
	require.NotNil(t, call.filter.AreaMin)
	assert.InDelta(t, 45.5, *call.filter.AreaMin, 1e-9)
	assert.Empty(t, call.filter.PropertyType)
	assert.Equal(t, "12345", call.chatID)

	var resp ListingsResponse
	decode(t, rec, &resp)
	assert.True(t, resp.HasResults)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "Ленина, 1", resp.Listings[0].Address)
	assert.NotEmpty(t, rec.Header().Get(traceHeader))
}

func TestBuyFilterPropertyType(t *testing.T) {
	find := &fakeFindListings{}
	router := newTestRouter(find, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/buy?type="+url.QueryEscape("новостройка")+"&rooms=0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, find.calls, 1)
	assert.Equal(t, domain.CategorySale, find.calls[0].filter.Category)
	assert.Equal(t, "новостройка", find.calls[0].filter.PropertyType)
	assert.Equal(t, "Квартира-студия", find.calls[0].filter.Rooms)

	var resp ListingsResponse
	decode(t, rec, &resp)
	assert.False(t, resp.HasResults)
	assert.Equal(t, noResultsMessage, resp.Message)
	assert.NotNil(t, resp.Listings)
}

func TestFilterValidation(t *testing.T) {
	router := newTestRouter(&fakeFindListings{}, nil, nil)

	cases := map[string]url.Values{
		"unknown rooms code": {"rooms": {"7"}},
		"non numeric area":   {"area": {"много"}},
		"unknown type":       {"type": {"дом"}},
		"non numeric user":   {"user_id": {"abc"}},
	}
	for name, query := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/buy?"+query.Encode(), nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestFindListingsFailure(t *testing.T) {
	router := newTestRouter(&fakeFindListings{err: errors.New("db down")}, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rent", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIndexCarriesUserID(t *testing.T) {
	router := newTestRouter(&fakeFindListings{}, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?user_id=42", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp IndexResponse
	decode(t, rec, &resp)
	assert.Equal(t, "/api/v1/rent?user_id=42", resp.RentURL)
	assert.Equal(t, "/api/v1/buy?user_id=42", resp.BuyURL)
}

func TestTriggerIngest(t *testing.T) {
	ingest := &fakeIngest{done: make(chan struct{})}
	router := newTestRouter(&fakeFindListings{}, ingest, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/ingest/sale", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-ingest.done:
	case <-time.After(2 * time.Second):
		t.Fatal("ingestion was not started")
	}
	assert.Equal(t, []domain.Category{domain.CategorySale}, ingest.categories)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/ingest/garage", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChallengeEndpoints(t *testing.T) {
	detected := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	gate := &fakeGate{pending: []domain.ChallengeDetected{{URL: "https://www.avito.ru/x", Marker: "captcha", DetectedAt: detected}}}
	router := newTestRouter(&fakeFindListings{}, nil, gate)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/challenge", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status ChallengeStatusResponse
	decode(t, rec, &status)
	assert.True(t, status.Pending)
	require.Len(t, status.Challenges, 1)
	assert.Equal(t, "captcha", status.Challenges[0].Marker)
	assert.True(t, detected.Equal(status.Challenges[0].Since))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/challenge/ack", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, gate.acked)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/challenge/ack", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&fakeFindListings{}, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type prefixTokens struct{}

func (prefixTokens) Issue(_ context.Context, chatID string) (string, error) {
	return "ok-" + chatID, nil
}

func (prefixTokens) Verify(_ context.Context, token string) (string, error) {
	if !strings.HasPrefix(token, "ok-") {
		return "", domain.ErrInvalidLinkToken
	}
	return strings.TrimPrefix(token, "ok-"), nil
}

func TestSignedLinkRequired(t *testing.T) {
	find := &fakeFindListings{}
	router := NewRouter(NewListingsHandler(find).WithLinkTokens(prefixTokens{}), nil, nil, []string{"*"}, contextkeys.NoopLogger())

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{name: "anonymous filter", query: "", status: http.StatusOK},
		{name: "valid token", query: "?user_id=555&token=ok-555", status: http.StatusOK},
		{name: "missing token", query: "?user_id=555", status: http.StatusForbidden},
		{name: "token for another chat", query: "?user_id=555&token=ok-777", status: http.StatusForbidden},
		{name: "forged token", query: "?user_id=555&token=forged", status: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/rent"+tt.query, nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	require.Len(t, find.calls, 2)
	assert.Equal(t, "555", find.calls[1].chatID)
}

func TestIndexPropagatesToken(t *testing.T) {
	router := newTestRouter(&fakeFindListings{}, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?user_id=9&token=abc", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp IndexResponse
	decode(t, rec, &resp)
	assert.Equal(t, "/api/v1/rent?token=abc&user_id=9", resp.RentURL)
}
