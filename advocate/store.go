package advocate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// TextCodeNotFound is attached to errors returned when an advocate does not exist.
const TextCodeNotFound = "ADVOCATE_NOT_FOUND"

// Store reads advocates from the relational store.
//
// Find issues a plain paginated SELECT. Count and GetByID are delegated to the
// generic go-repository-bun repository. Every call is bounded by the store
// timeout so a slow database surfaces as an error instead of a hung request.
type Store struct {
	db      bun.IDB
	repo    repository.Repository[*Advocate]
	timeout time.Duration
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithQueryTimeout bounds every store call. Zero disables the bound.
func WithQueryTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		s.timeout = d
	}
}

// WithRepository overrides the generic repository used for Count and GetByID.
func WithRepository(repo repository.Repository[*Advocate]) StoreOption {
	return func(s *Store) {
		s.repo = repo
	}
}

// NewStore creates a Store backed by db.
func NewStore(db *bun.DB, opts ...StoreOption) *Store {
	s := &Store{
		db:   db,
		repo: NewRepository(db),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Find returns the advocates selected by criteria, in criteria order.
func (s *Store) Find(ctx context.Context, criteria ...repository.SelectCriteria) ([]*Advocate, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	records := make([]*Advocate, 0)
	q := s.db.NewSelect().Model(&records)
	for _, c := range criteria {
		q = c(q)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("find advocates: %w", err)
	}
	return records, nil
}

// Count returns the number of advocates matching criteria.
func (s *Store) Count(ctx context.Context, criteria ...repository.SelectCriteria) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	total, err := s.repo.Count(ctx, criteria...)
	if err != nil {
		return 0, fmt.Errorf("count advocates: %w", err)
	}
	return total, nil
}

// GetByID returns a single advocate. Missing records yield a go-errors
// not_found error.
func (s *Store) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*Advocate, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	record, err := s.repo.GetByID(ctx, id, criteria...)
	if err != nil {
		if isNotFound(err) {
			return nil, NotFound(id)
		}
		return nil, fmt.Errorf("get advocate %s: %w", id, err)
	}
	return record, nil
}

// Insert stores records. It is used by the seed tooling only; the search API
// never writes.
func (s *Store) Insert(ctx context.Context, records []*Advocate) ([]*Advocate, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	for _, r := range records {
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
	}

	created, err := s.repo.CreateMany(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("insert advocates: %w", err)
	}
	return created, nil
}

// Ping checks connectivity with the underlying database.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var one int
	if err := s.db.NewSelect().ColumnExpr("1").Scan(ctx, &one); err != nil {
		return fmt.Errorf("ping advocates store: %w", err)
	}
	return nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// NotFound builds the error returned for a missing advocate.
func NotFound(id string) *goerrors.Error {
	return goerrors.New(fmt.Sprintf("advocate %s not found", id), goerrors.CategoryNotFound).
		WithCode(404).
		WithTextCode(TextCodeNotFound)
}

func isNotFound(err error) bool {
	return repository.IsRecordNotFound(err) ||
		goerrors.Is(err, sql.ErrNoRows) ||
		goerrors.IsNotFound(err)
}

// CreateSchema creates the advocates table when it does not exist yet. It is a
// development convenience for the seed command and tests, not a migration tool.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*Advocate)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create %s table: %w", TableName, err)
	}
	return nil
}
