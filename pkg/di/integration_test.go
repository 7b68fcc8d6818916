package di

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-advocate-search/advocate"
	"github.com/goliatone/go-advocate-search/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Data       []advocate.Advocate `json:"data"`
	Pagination search.Pagination   `json:"pagination"`
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, http.NoBody))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return env
}

func TestEndToEnd_ListAndSearch(t *testing.T) {
	c := newTestContainer(t, testConfig())
	h := c.Handler()

	rr := get(t, h, "/api/advocates")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode(t, rr)
	assert.Len(t, list.Data, 10)
	assert.Equal(t, search.Pagination{Page: 1, Limit: 10, Total: 15, TotalPages: 2, HasNext: true}, list.Pagination)
	assert.Equal(t, "Brown", list.Data[0].LastName)

	rr = get(t, h, "/api/advocates?search=&page=2")
	blankPage2 := decode(t, rr)
	assert.Len(t, blankPage2.Data, 5)
	assert.True(t, blankPage2.Pagination.HasPrev)

	rr = get(t, h, "/api/advocates?search=10")
	require.Equal(t, http.StatusOK, rr.Code)
	numeric := decode(t, rr)
	names := make([]string, 0, len(numeric.Data))
	for _, a := range numeric.Data {
		names = append(names, a.LastName)
	}
	// no text field contains "10", so only years of experience match
	assert.ElementsMatch(t, []string{"Doe", "Lee"}, names)
}

func TestEndToEnd_GetByID(t *testing.T) {
	c := newTestContainer(t, testConfig())
	h := c.Handler()

	id := advocate.SampleID(5551112222).String()
	rr := get(t, h, "/api/advocates/"+id)
	require.Equal(t, http.StatusOK, rr.Code)

	var got advocate.Advocate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Michael", got.FirstName)
	assert.Equal(t, int64(5551112222), got.PhoneNumber)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/advocates/"+advocate.SampleID(1).String()).Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/advocates/not-a-uuid").Code)
}

func TestEndToEnd_RejectedQueriesNeverReachCache(t *testing.T) {
	c := newTestContainer(t, testConfig())
	h := c.Handler()

	for _, q := range []string{"%3Cscript%3E", "DROP%20TABLE%20x", strings.Repeat("a", 101)} {
		rr := get(t, h, "/api/advocates?search="+q)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
	}

	stats := c.CacheService().Stats()
	assert.Zero(t, stats.Hits+stats.Misses)
}

func TestEndToEnd_AdminInvalidate(t *testing.T) {
	cfg := testConfig()
	cfg.Admin.InvalidateEnabled = true
	c := newTestContainer(t, cfg)
	h := c.Handler()

	get(t, h, "/api/advocates?search=san")
	require.NotZero(t, c.CacheService().Stats().Entries)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/cache/invalidate", strings.NewReader(`{"tags":["advocates"]}`)))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	stats := c.CacheService().Stats()
	assert.Zero(t, stats.Entries)
	assert.Equal(t, uint64(1), stats.Invalidations)
}

func TestEndToEnd_AdminInvalidateDisabled(t *testing.T) {
	c := newTestContainer(t, testConfig())

	rr := httptest.NewRecorder()
	c.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/cache/invalidate", http.NoBody))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestEndToEnd_MetricsAndHealth(t *testing.T) {
	c := newTestContainer(t, testConfig())
	h := c.Handler()

	get(t, h, "/api/advocates")
	get(t, h, "/api/advocates")

	assert.Equal(t, http.StatusOK, get(t, h, "/healthz").Code)

	body := get(t, h, "/metrics").Body.String()
	assert.Contains(t, body, "advocates_cache_hits_total 2")
	assert.Contains(t, body, "advocates_cache_misses_total 2")
	assert.Contains(t, body, `advocates_searches_total{mode="list",outcome="ok"} 2`)
	assert.Contains(t, body, "go_goroutines")
}
