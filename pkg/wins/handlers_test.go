package wins

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStore struct{}

func (brokenStore) ListAfter(context.Context, *Cursor, int) ([]Win, error) {
	return nil, errors.New("db down")
}

func (brokenStore) ListByMatchIDs(context.Context, []int64) ([]Win, error) {
	return nil, errors.New("db down")
}

func (brokenStore) ListByFinancialYear(context.Context, int) ([]Win, error) {
	return nil, errors.New("db down")
}

func seededStore() *MemoryStore {
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	return NewMemoryStore(
		win("00000000-0000-0000-0000-000000000001", 10, day(2024, time.May, 1), base),
		win("00000000-0000-0000-0000-000000000002", 11, day(2024, time.June, 1), base.Add(time.Minute)),
		win("00000000-0000-0000-0000-000000000003", 10, day(2023, time.June, 1), base.Add(2*time.Minute)),
	)
}

func TestActivityStream_Pages(t *testing.T) {
	h := NewHandler(seededStore(), HandlerOptions{PageSize: 2, BaseURL: "https://wins.example.gov.uk"})

	rec := httptest.NewRecorder()
	h.ActivityStream(rec, httptest.NewRequest(http.MethodGet, "/activity-stream/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var page CollectionPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, "https://www.w3.org/ns/activitystreams", page.Context)
	assert.Equal(t, "OrderedCollectionPage", page.Type)
	assert.Equal(t, "https://wins.example.gov.uk/activity-stream/", page.ID)
	require.Len(t, page.OrderedItems, 2)

	item := page.OrderedItems[0]
	assert.Equal(t, "Create", item.Type)
	assert.Equal(t, "dit:exportWins:Win:00000000-0000-0000-0000-000000000001:Create", item.ID)
	assert.Equal(t, []string{"Document", "dit:exportWins:Win"}, item.Object.Type)
	assert.Equal(t, int64(10), item.Object.Win.MatchID)
	require.NotEmpty(t, page.Next)

	next, err := url.Parse(page.Next)
	require.NoError(t, err)
	assert.Equal(t, "wins.example.gov.uk", next.Host)

	rec = httptest.NewRecorder()
	h.ActivityStream(rec, httptest.NewRequest(http.MethodGet, next.RequestURI(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var last CollectionPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &last))
	require.Len(t, last.OrderedItems, 1)
	assert.Equal(t, "dit:exportWins:Win:00000000-0000-0000-0000-000000000003", last.OrderedItems[0].Object.ID)
	assert.Empty(t, last.Next)
}

func TestActivityStream_UsesRequestHost(t *testing.T) {
	h := NewHandler(seededStore(), HandlerOptions{PageSize: 1})

	rec := httptest.NewRecorder()
	h.ActivityStream(rec, httptest.NewRequest(http.MethodGet, "http://internal:8080/activity-stream/", nil))

	var page CollectionPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Contains(t, page.Next, "http://internal:8080/activity-stream/?cursor=")
}

func TestActivityStream_Errors(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(seededStore(), HandlerOptions{}).ActivityStream(rec, httptest.NewRequest(http.MethodGet, "/activity-stream/?cursor=%21%21", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	NewHandler(brokenStore{}, HandlerOptions{}).ActivityStream(rec, httptest.NewRequest(http.MethodGet, "/activity-stream/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestDataHubWins(t *testing.T) {
	h := NewHandler(seededStore(), HandlerOptions{})

	serve := func(matchID string) *httptest.ResponseRecorder {
		r := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/data-hub/export-wins/"+matchID, nil), map[string]string{"match_id": matchID})
		rec := httptest.NewRecorder()
		h.DataHubWins(rec, r)
		return rec
	}

	rec := serve("10")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []Win
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	rec = serve("999")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, serve("abc").Code)
	assert.Equal(t, http.StatusBadRequest, serve("-1").Code)
}

func TestDataFlowWins(t *testing.T) {
	h := NewHandler(seededStore(), HandlerOptions{})

	rec := httptest.NewRecorder()
	h.DataFlowWins(rec, httptest.NewRequest(http.MethodGet, "/data-flow/export-wins/?financial_year=2024", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DataFlowResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2024/25", resp.FinancialYear)
	assert.Len(t, resp.Results, 2)

	for _, bad := range []string{"twenty", "24", "123456"} {
		rec := httptest.NewRecorder()
		h.DataFlowWins(rec, httptest.NewRequest(http.MethodGet, "/data-flow/export-wins/?financial_year="+bad, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}

	rec = httptest.NewRecorder()
	NewHandler(brokenStore{}, HandlerOptions{}).DataFlowWins(rec, httptest.NewRequest(http.MethodGet, "/data-flow/export-wins/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
