package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-advocate-search/advocate"
	"github.com/goliatone/go-advocate-search/cache"
	"github.com/goliatone/go-advocate-search/internal/events"
	"github.com/goliatone/go-advocate-search/internal/metrics"
	"github.com/goliatone/go-advocate-search/pkg/testsupport"
	"github.com/goliatone/go-advocate-search/repositorycache"
	"github.com/goliatone/go-advocate-search/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSearcher struct {
	requests []search.Request
	resp     *search.Response
	err      error
	record   *advocate.Advocate
	getErr   error
	panicMsg string
}

func (f *fakeSearcher) Search(_ context.Context, req search.Request) (*search.Response, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

func (f *fakeSearcher) Get(_ context.Context, _ string) (*advocate.Advocate, error) {
	return f.record, f.getErr
}

func (f *fakeSearcher) Bounds() search.Bounds { return search.DefaultBounds() }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type recordingInvalidator struct {
	tags [][]string
	err  error
}

func (r *recordingInvalidator) InvalidateTags(_ context.Context, tags ...string) error {
	r.tags = append(r.tags, tags)
	return r.err
}

type recordingBroadcaster struct {
	sent []events.Invalidation
}

func (r *recordingBroadcaster) Publish(_ context.Context, inv events.Invalidation) error {
	r.sent = append(r.sent, inv)
	return nil
}

func do(t *testing.T, h http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestListAdvocates_ParsesParameters(t *testing.T) {
	s := &fakeSearcher{resp: &search.Response{Data: []*advocate.Advocate{}, Mode: search.ModeList}}
	h := NewRouter(s, fakePinger{}, Options{})

	do(t, h, http.MethodGet, "/api/advocates?search=smith&page=3&limit=500", "")
	do(t, h, http.MethodGet, "/api/advocates?page=abc&limit=2", "")

	require.Len(t, s.requests, 2)
	assert.Equal(t, search.Request{Search: "smith", Page: 3, Limit: 100}, s.requests[0])
	assert.Equal(t, search.Request{Page: 1, Limit: 10}, s.requests[1])
}

func TestListAdvocates_CacheHeaders(t *testing.T) {
	tests := []struct {
		mode search.Mode
		want string
	}{
		{mode: search.ModeList, want: cacheList},
		{mode: search.ModeSearch, want: cacheSearch},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			s := &fakeSearcher{resp: &search.Response{
				Data:       advocate.SampleDirectory()[:1],
				Pagination: search.Paginate(1, 1, 10),
				Mode:       tt.mode,
			}}
			h := NewRouter(s, fakePinger{}, Options{})

			rr := do(t, h, http.MethodGet, "/api/advocates", "")
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.want, rr.Header().Get("Cache-Control"))
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.Equal(t, ETag(rr.Body.Bytes()), rr.Header().Get("ETag"))
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

			var body map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Contains(t, body, "data")
			assert.Contains(t, body, "pagination")
			assert.NotContains(t, body, "Mode")

			etag := rr.Header().Get("ETag")
			rr = do(t, h, http.MethodGet, "/api/advocates", "", "If-None-Match", etag)
			assert.Equal(t, http.StatusNotModified, rr.Code)
			assert.Empty(t, rr.Body.Bytes())
		})
	}
}

func TestListAdvocates_ValidationError(t *testing.T) {
	s := &fakeSearcher{err: search.ValidationError(search.ReasonInvalidChars)}
	m := metrics.NewHTTP(prometheus.NewRegistry())
	h := NewRouter(s, fakePinger{}, Options{Metrics: m})

	rr := do(t, h, http.MethodGet, "/api/advocates?search=x", "")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, cacheNoStore, rr.Header().Get("Cache-Control"))
	assert.Equal(t, errorBody{Error: search.ReasonInvalidChars, Message: search.MessageInvalidQuery}, decodeError(t, rr))
}

func TestListAdvocates_StoreError(t *testing.T) {
	s := &fakeSearcher{err: search.StoreError(errors.New("dial tcp: connection refused"))}
	h := NewRouter(s, fakePinger{}, Options{})

	rr := do(t, h, http.MethodGet, "/api/advocates", "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, cacheNoStore, rr.Header().Get("Cache-Control"))
	assert.Equal(t, errorBody{Error: errInternal, Message: search.MessageStoreFailure}, decodeError(t, rr))
	assert.NotContains(t, rr.Body.String(), "connection refused")
}

func TestGetAdvocate(t *testing.T) {
	record := advocate.SampleDirectory()[0]

	h := NewRouter(&fakeSearcher{record: record}, fakePinger{}, Options{})
	rr := do(t, h, http.MethodGet, "/api/advocates/"+record.ID.String(), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, cacheRecord, rr.Header().Get("Cache-Control"))

	var got advocate.Advocate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, record.ID, got.ID)

	h = NewRouter(&fakeSearcher{getErr: advocate.NotFound("x")}, fakePinger{}, Options{})
	rr = do(t, h, http.MethodGet, "/api/advocates/x", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, cacheNoStore, rr.Header().Get("Cache-Control"))

	h = NewRouter(&fakeSearcher{getErr: search.StoreError(errors.New("boom"))}, fakePinger{}, Options{})
	rr = do(t, h, http.MethodGet, "/api/advocates/x", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestInvalidateCache(t *testing.T) {
	inv := &recordingInvalidator{}
	b := &recordingBroadcaster{}
	h := NewRouter(&fakeSearcher{}, fakePinger{}, Options{Invalidator: inv, Broadcaster: b})

	rr := do(t, h, http.MethodPost, "/api/cache/invalidate", `{"tags":["advocates:search"]}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/cache/invalidate", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodPost, "/api/cache/invalidate", `{nope`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	assert.Equal(t, [][]string{{cache.TagSearch}, {cache.TagAdvocates}}, inv.tags)
	require.Len(t, b.sent, 2)
	assert.Equal(t, "admin", b.sent[0].Source)
}

func TestInvalidateCache_Failure(t *testing.T) {
	inv := &recordingInvalidator{err: errors.New("boom")}
	h := NewRouter(&fakeSearcher{}, fakePinger{}, Options{Invalidator: inv})

	rr := do(t, h, http.MethodPost, "/api/cache/invalidate", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestInvalidateCache_DisabledByDefault(t *testing.T) {
	h := NewRouter(&fakeSearcher{}, fakePinger{}, Options{})

	rr := do(t, h, http.MethodPost, "/api/cache/invalidate", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealth(t *testing.T) {
	h := NewRouter(&fakeSearcher{}, fakePinger{}, Options{})
	rr := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	h = NewRouter(&fakeSearcher{}, fakePinger{err: errors.New("down")}, Options{})
	rr = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewHTTP(reg)
	s := &fakeSearcher{resp: &search.Response{Data: []*advocate.Advocate{}, Mode: search.ModeList}}
	h := NewRouter(s, fakePinger{}, Options{Metrics: m, Gatherer: reg})

	do(t, h, http.MethodGet, "/api/advocates", "")
	rr := do(t, h, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `advocates_http_requests_total{method="GET",path="/api/advocates",status="200"} 1`)
	assert.Contains(t, rr.Body.String(), `advocates_searches_total{mode="list",outcome="ok"} 1`)
}

func TestRecoverer(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := NewRouter(&fakeSearcher{panicMsg: "kaboom"}, fakePinger{}, Options{Logger: zap.New(core)})

	rr := do(t, h, http.MethodGet, "/api/advocates", "")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, errInternal, decodeError(t, rr).Error)
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestWideEventLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewRouter(&fakeSearcher{}, fakePinger{}, Options{Logger: zap.New(core)})

	do(t, h, http.MethodGet, "/healthz", "")

	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/healthz", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestNotFoundRoute(t *testing.T) {
	h := NewRouter(&fakeSearcher{}, fakePinger{}, Options{})
	rr := do(t, h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, errNotFound, decodeError(t, rr).Error)
}

func newStack(t *testing.T) http.Handler {
	t.Helper()

	db := testsupport.OpenDB(t)
	testsupport.SeedAdvocates(t, db, testsupport.Namesakes("Smith", 15)...)

	svc, err := cache.NewCacheService(cache.DefaultConfig())
	require.NoError(t, err)
	store := advocate.NewStore(db)
	repo := repositorycache.New[*advocate.Advocate](store, svc, cache.NewDefaultKeySerializer(),
		repositorycache.WithNamespace("advocates"),
		repositorycache.WithEntityTags(cache.TagAdvocates),
	)
	return NewRouter(search.NewService(repo), store, Options{Invalidator: svc})
}

func TestEndToEnd_SmithSearch(t *testing.T) {
	h := newStack(t)

	rr := do(t, h, http.MethodGet, "/api/advocates?search=smith&page=1&limit=10", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Data       []advocate.Advocate `json:"data"`
		Pagination search.Pagination   `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Data, 10)
	assert.Equal(t, search.Pagination{Page: 1, Limit: 10, Total: 15, TotalPages: 2, HasNext: true}, body.Pagination)

	again := do(t, h, http.MethodGet, "/api/advocates?search=smith&page=1&limit=10", "")
	assert.Equal(t, rr.Header().Get("ETag"), again.Header().Get("ETag"))
}

func TestEndToEnd_ScriptRejected(t *testing.T) {
	h := newStack(t)

	rr := do(t, h, http.MethodGet, "/api/advocates?search=%3Cscript%3Ealert(1)%3C%2Fscript%3E", "")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, errorBody{Error: search.ReasonInvalidChars, Message: search.MessageInvalidQuery}, decodeError(t, rr))
}

func TestEndToEnd_UnknownAdvocate(t *testing.T) {
	h := newStack(t)

	rr := do(t, h, http.MethodGet, "/api/advocates/"+advocate.SampleID(1).String(), "")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, errorBody{Error: errNotFound, Message: "Advocate not found"}, decodeError(t, rr))
}

func TestListAdvocates_FailureMetricsUseRequestMode(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewHTTP(reg)

	failing := &fakeSearcher{err: search.StoreError(errors.New("boom"))}
	h := NewRouter(failing, fakePinger{}, Options{Metrics: m, Gatherer: reg})
	do(t, h, http.MethodGet, "/api/advocates", "")
	do(t, h, http.MethodGet, "/api/advocates?search=%20%20", "")
	do(t, h, http.MethodGet, "/api/advocates?search=smith", "")

	rejecting := &fakeSearcher{err: search.ValidationError(search.ReasonInvalidChars)}
	h = NewRouter(rejecting, fakePinger{}, Options{Metrics: m, Gatherer: reg})
	do(t, h, http.MethodGet, "/api/advocates?search=%3Cb%3E", "")

	body := do(t, h, http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, body, `advocates_searches_total{mode="list",outcome="failed"} 2`)
	assert.Contains(t, body, `advocates_searches_total{mode="search",outcome="failed"} 1`)
	assert.Contains(t, body, `advocates_searches_total{mode="search",outcome="rejected"} 1`)
	assert.NotContains(t, body, `advocates_searches_total{mode="list",outcome="rejected"}`)
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) {
	return 0, errors.New("read tcp 10.0.0.7:8080: connection reset by peer")
}

func TestInvalidateCache_BodyReadError(t *testing.T) {
	inv := &recordingInvalidator{}
	h := NewRouter(&fakeSearcher{}, fakePinger{}, Options{Invalidator: inv})

	req := httptest.NewRequest(http.MethodPost, "/api/cache/invalidate", failingBody{})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, errorBody{Error: errBadBody, Message: "Could not read request body"}, decodeError(t, rr))
	assert.NotContains(t, rr.Body.String(), "10.0.0.7")
	assert.Empty(t, inv.tags)
}
