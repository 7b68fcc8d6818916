package testsupport

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goliatone/go-advocate-search/advocate"
	"github.com/goliatone/go-advocate-search/internal/database"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

var dbSeq atomic.Uint64

// OpenDB opens a private in-memory SQLite database with the advocates table
// created. Connections are capped at one so the shared-cache database lives
// until the test closes it.
func OpenDB(t testing.TB) *bun.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	db, err := database.Open(context.Background(), database.Config{
		Driver:       database.DriverSQLite,
		DSN:          dsn,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := advocate.CreateSchema(context.Background(), db); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return db
}

// SeedAdvocates inserts records through the advocate store. With no records
// the sample directory is used.
func SeedAdvocates(t testing.TB, db *bun.DB, records ...*advocate.Advocate) []*advocate.Advocate {
	t.Helper()

	if len(records) == 0 {
		records = advocate.SampleDirectory()
	}

	created, err := advocate.NewStore(db).Insert(context.Background(), records)
	if err != nil {
		t.Fatalf("failed to seed advocates: %v", err)
	}

	return created
}

// Namesakes returns n advocates sharing lastName, with distinct first names,
// phone numbers and IDs.
func Namesakes(lastName string, n int) []*advocate.Advocate {
	out := make([]*advocate.Advocate, 0, n)
	for i := range n {
		phone := int64(5550000000 + i)
		out = append(out, &advocate.Advocate{
			ID:                advocate.SampleID(phone),
			FirstName:         fmt.Sprintf("Person%02d", i),
			LastName:          lastName,
			City:              "Springfield",
			Degree:            "MD",
			Specialties:       []string{"Bipolar"},
			YearsOfExperience: 1,
			PhoneNumber:       phone,
		})
	}
	return out
}
