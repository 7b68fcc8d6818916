package search

import (
	"context"
	"strings"

	"github.com/goliatone/go-advocate-search/advocate"
	"github.com/goliatone/go-advocate-search/cache"
	"github.com/goliatone/go-advocate-search/internal/logger"
	"github.com/goliatone/go-advocate-search/repositorycache"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Mode tells which path served a request.
type Mode string

const (
	ModeList   Mode = "list"
	ModeSearch Mode = "search"
)

// Reader is the cached read side of the advocate store.
type Reader interface {
	Find(ctx context.Context, scope repositorycache.Scope, criteria ...repository.SelectCriteria) ([]*advocate.Advocate, error)
	Count(ctx context.Context, scope repositorycache.Scope, criteria ...repository.SelectCriteria) (int, error)
	GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*advocate.Advocate, error)
}

// Request is one directory query. Zero Page and Limit take the defaults.
type Request struct {
	Search string
	Page   int
	Limit  int
}

// Response is the envelope returned for list and search requests.
type Response struct {
	Data       []*advocate.Advocate `json:"data"`
	Pagination Pagination           `json:"pagination"`
	Mode       Mode                 `json:"-"`
}

// Service answers directory queries.
type Service struct {
	reader Reader
	bounds Bounds
}

// Option configures a Service.
type Option func(*Service)

// WithBounds overrides the pagination bounds.
func WithBounds(b Bounds) Option {
	return func(s *Service) {
		s.bounds = b
	}
}

// NewService creates a Service reading through reader.
func NewService(reader Reader, opts ...Option) *Service {
	s := &Service{
		reader: reader,
		bounds: DefaultBounds(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bounds returns the pagination bounds applied by the service.
func (s *Service) Bounds() Bounds {
	return s.bounds
}

// ModeFor reports the path a request with the given search text takes.
func ModeFor(text string) Mode {
	if strings.TrimSpace(text) == "" {
		return ModeList
	}
	return ModeSearch
}

// Search runs the list path for blank text and the search path otherwise.
// Invalid text is rejected before the cache or store is touched.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	page, limit := s.bounds.Normalize(req.Page, req.Limit)

	mode := ModeList
	pred := MatchAll()
	scope := repositorycache.NewScope(string(ModeList)).Tagged(cache.TagList)

	if ModeFor(req.Search) == ModeSearch {
		sanitized, err := ValidateQuery(req.Search)
		if err != nil {
			return nil, err
		}
		mode = ModeSearch
		pred = BuildPredicate(sanitized)
		scope = repositorycache.NewScope(string(ModeSearch), sanitized).Tagged(cache.TagSearch)
	}

	var (
		rows  []*advocate.Advocate
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.reader.Find(gctx, scope.WithArgs(page, limit), pred.Rows(page, limit)...)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.reader.Count(gctx, scope, pred.Count()...)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.FromContext(ctx).Error("advocate query failed",
			zap.String("mode", string(mode)),
			zap.Int("page", page),
			zap.Int("limit", limit),
			zap.Error(err),
		)
		return nil, StoreError(err)
	}

	if rows == nil {
		rows = []*advocate.Advocate{}
	}

	return &Response{
		Data:       rows,
		Pagination: Paginate(total, page, limit),
		Mode:       mode,
	}, nil
}

// Get returns a single advocate. Unknown or malformed IDs yield a not found
// error.
func (s *Service) Get(ctx context.Context, id string) (*advocate.Advocate, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, advocate.NotFound(id)
	}

	record, err := s.reader.GetByID(ctx, parsed.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, err
		}
		logger.FromContext(ctx).Error("advocate lookup failed",
			zap.String("id", id),
			zap.Error(err),
		)
		return nil, StoreError(err)
	}
	return record, nil
}
