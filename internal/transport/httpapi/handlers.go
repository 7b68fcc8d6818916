package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/go-chi/chi/v5"
	"github.com/goliatone/go-advocate-search/internal/events"
	"github.com/goliatone/go-advocate-search/internal/logger"
	"github.com/goliatone/go-advocate-search/search"
	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"
)

// Cache-Control values per response class.
const (
	cacheList    = "public, s-maxage=60, stale-while-revalidate=300"
	cacheSearch  = "public, s-maxage=300, stale-while-revalidate=600"
	cacheRecord  = "public, s-maxage=300"
	cacheNoStore = "no-store"
)

const (
	errInternal = "Internal server error"
	errNotFound = "Not found"
	errBadBody  = "Invalid request body"
)

const maxInvalidateBody = 64 << 10

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ListAdvocates handles GET /api/advocates.
func (s *Server) ListAdvocates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := s.searcher.Bounds().Parse(q.Get("page"), q.Get("limit"))
	text := q.Get("search")
	mode := search.ModeFor(text)

	resp, err := s.searcher.Search(r.Context(), search.Request{
		Search: text,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		if reason := search.Reason(err); reason != "" {
			s.observe(mode, "rejected")
			writeError(w, http.StatusBadRequest, reason, search.MessageInvalidQuery)
			return
		}
		s.observe(mode, "failed")
		writeError(w, http.StatusInternalServerError, errInternal, search.MessageStoreFailure)
		return
	}

	s.observe(resp.Mode, "ok")

	cacheControl := cacheList
	if resp.Mode == search.ModeSearch {
		cacheControl = cacheSearch
	}
	s.writeCacheable(w, r, cacheControl, resp)
}

// GetAdvocate handles GET /api/advocates/{id}.
func (s *Server) GetAdvocate(w http.ResponseWriter, r *http.Request) {
	record, err := s.searcher.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if goerrors.IsNotFound(err) {
			writeError(w, http.StatusNotFound, errNotFound, "Advocate not found")
			return
		}
		writeError(w, http.StatusInternalServerError, errInternal, search.MessageStoreFailure)
		return
	}
	s.writeCacheable(w, r, cacheRecord, record)
}

// InvalidateCache handles POST /api/cache/invalidate. An empty body clears
// every advocate entry.
func (s *Server) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxInvalidateBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, errBadBody, "Could not read request body")
		return
	}
	inv, err := events.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, errBadBody, "Expected {\"tags\": [...]}")
		return
	}
	if inv.Source == "" {
		inv.Source = "admin"
	}

	tags := inv.TagsOrDefault()
	log := logger.FromContext(r.Context())
	if err := s.invalidator.InvalidateTags(r.Context(), tags...); err != nil {
		log.Error("cache invalidation failed", zap.Strings("tags", tags), zap.Error(err))
		writeError(w, http.StatusInternalServerError, errInternal, "Cache invalidation failed")
		return
	}
	if s.broadcaster != nil {
		if err := s.broadcaster.Publish(r.Context(), inv); err != nil {
			log.Warn("invalidation broadcast failed", zap.Error(err))
		}
	}

	log.Info("cache invalidated", zap.Strings("tags", tags))
	w.Header().Set("Cache-Control", cacheNoStore)
	w.WriteHeader(http.StatusNoContent)
}

type healthBody struct {
	Status string `json:"status"`
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", cacheNoStore)

	ctx, cancel := context.WithTimeout(r.Context(), s.healthTO)
	defer cancel()

	if err := s.health.Ping(ctx); err != nil {
		logger.FromContext(r.Context()).Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, healthBody{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, healthBody{Status: "ok"})
}

func (s *Server) observe(mode search.Mode, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveSearch(string(mode), outcome)
	}
}

// writeCacheable writes v with an ETag derived from the encoded body and
// answers conditional requests with 304.
func (s *Server) writeCacheable(w http.ResponseWriter, r *http.Request, cacheControl string, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.FromContext(r.Context()).Error("encode response", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errInternal, search.MessageStoreFailure)
		return
	}

	etag := ETag(body)
	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("ETag", etag)

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// ETag returns a strong entity tag for body.
func ETag(body []byte) string {
	return `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errText, message string) {
	w.Header().Set("Cache-Control", cacheNoStore)
	writeJSON(w, status, errorBody{Error: errText, Message: message})
}
