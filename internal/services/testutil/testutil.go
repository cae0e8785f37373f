// Package testutil provides shared test utilities for integration tests.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bbernstein/lacylights-console/internal/database"
	"github.com/bbernstein/lacylights-console/internal/fixture"
	"github.com/bbernstein/lacylights-console/internal/services/console"
)

// TestDB holds the test database and the show store on top of it.
type TestDB struct {
	DB    *gorm.DB
	Store *database.Store
}

// SetupTestDB creates a migrated in-memory SQLite database for testing.
// It returns a TestDB and a cleanup function.
func SetupTestDB(t *testing.T) (*TestDB, func()) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// Every connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate database: %v", err)
	}

	testDB := &TestDB{
		DB:    db,
		Store: database.NewStore(db),
	}

	cleanup := func() {
		_ = sqlDB.Close()
	}

	return testDB, cleanup
}

// NewConsole creates a console backed by the test store.
func (tdb *TestDB) NewConsole(lib *fixture.Library) *console.Console {
	if lib == nil {
		lib = fixture.NewLibrary()
	}
	return console.New(console.Options{Library: lib, Store: tdb.Store})
}

// Submit runs command lines and fails the test on the first rejected one.
func Submit(t *testing.T, c *console.Console, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if res := c.Submit(line); !res.Success {
			t.Fatalf("%q failed: %s", line, res.Message)
		}
	}
}
