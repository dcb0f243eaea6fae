package testhelpers

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/jonesrussell/gomonitor/internal/database"
)

// NewMockClient returns a store client backed by sqlmock. The connection is
// closed and expectations are verified during test cleanup.
func NewMockClient(t *testing.T) (*database.Client, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if expErr := mock.ExpectationsWereMet(); expErr != nil {
			t.Errorf("unmet sqlmock expectations: %v", expErr)
		}
		_ = db.Close()
	})

	return database.NewClient(db, NewTestLogger()), mock
}
