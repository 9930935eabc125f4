package organizations

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/labourcompliance/jurisdiction"
)

var orgColumns = []string{"id", "name", "jurisdiction", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStoreCreate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO organizations")).
		WithArgs("org-1", "Local 1", "BC", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	org := &Organization{ID: "org-1", Name: "Local 1", Jurisdiction: jurisdiction.BritishColumbia}
	require.NoError(t, store.Create(context.Background(), org))
	assert.False(t, org.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreCreateDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO organizations")).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	err := store.Create(context.Background(), &Organization{ID: "org-1", Name: "x", Jurisdiction: jurisdiction.Ontario})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestPostgresStoreGet(t *testing.T) {
	store, mock := newMockStore(t)
	stamp := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM organizations")).
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows(orgColumns).AddRow("org-1", "Local 1", "QC", stamp, stamp))
	mock.ExpectQuery(regexp.QuoteMeta("FROM organizations")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	org, err := store.Get(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, jurisdiction.Quebec, org.Jurisdiction)
	assert.Equal(t, stamp, org.CreatedAt)

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreList(t *testing.T) {
	store, mock := newMockStore(t)
	stamp := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows(orgColumns).
			AddRow("a", "A", "AB", stamp, stamp).
			AddRow("b", "B", "federal", stamp, stamp))

	orgs, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	assert.Equal(t, jurisdiction.Federal, orgs[1].Jurisdiction)
}

func TestPostgresStoreListError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM organizations")).WillReturnError(sql.ErrConnDone)

	_, err := store.List(context.Background())
	assert.ErrorContains(t, err, "failed to list organizations")
}
