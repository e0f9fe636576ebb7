package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formdesk/internal/formdesk/adapters/postgres"
	"formdesk/internal/formdesk/domain/entities"
	"formdesk/internal/formdesk/ports/repositories"
	"formdesk/pkg/logger"
)

var errDatabaseConnection = errors.New("database connection failed")

var columns = []string{
	"id", "username", "email", "address", "phone", "password",
	"gender", "terms", "file", "date", "year", "expertise",
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	testLogger, err := logger.NewLogger(logger.Development, "debug")
	require.NoError(t, err)
	return logger.NewContext(context.Background(), testLogger)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func sampleRecord() *entities.Record {
	return &entities.Record{
		Username:  "alice",
		Email:     "a@x.io",
		Address:   "1 Main",
		Phone:     "555",
		Password:  "secret1",
		Gender:    "f",
		Terms:     true,
		File:      "cv.pdf",
		Date:      "2024-01-01",
		Year:      1990,
		Expertise: []string{"go", "sql"},
	}
}

func TestNewRecordStore(t *testing.T) {
	store := postgres.NewRecordStore(newMock(t))

	assert.NotNil(t, store)
	assert.Implements(t, (*repositories.RecordStore)(nil), store)
}

func TestRecordStore_Insert(t *testing.T) {
	ctx := testContext(t)
	rec := sampleRecord()

	t.Run("successful insert", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO formdata \(username, email, address, phone, password, gender, terms, file, date, year, expertise\)`).
			WithArgs(rec.Username, rec.Email, rec.Address, rec.Phone, rec.Password, rec.Gender,
				rec.Terms, rec.File, rec.Date, rec.Year, rec.Expertise).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(17)))

		stored, err := postgres.NewRecordStore(mock).Insert(ctx, rec)

		require.NoError(t, err)
		assert.Equal(t, int64(17), stored.ID)
		assert.Equal(t, *rec, stored.Record)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil expertise is stored as empty array", func(t *testing.T) {
		mock := newMock(t)
		noTags := sampleRecord()
		noTags.Expertise = nil
		mock.ExpectQuery(`INSERT INTO formdata`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), []string{}).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))

		_, err := postgres.NewRecordStore(mock).Insert(ctx, noTags)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`INSERT INTO formdata`).
			WillReturnError(errDatabaseConnection)

		stored, err := postgres.NewRecordStore(mock).Insert(ctx, rec)

		require.Error(t, err)
		assert.Nil(t, stored)
		assert.ErrorIs(t, err, errDatabaseConnection)
		assert.Contains(t, err.Error(), postgres.ErrInsertRecord)
	})
}

func TestRecordStore_Select(t *testing.T) {
	ctx := testContext(t)

	t.Run("rows in store order", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, email, address, phone, password, gender, terms, file, date, year, expertise FROM formdata LIMIT $1`)).
			WithArgs(10).
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow(int64(5), "bob", "b@x.io", "2 Main", "556", "secret2", "m", false, "b.pdf", "", 0, []string{""}).
				AddRow(int64(2), "alice", "a@x.io", "1 Main", "555", "secret1", "f", true, "cv.pdf", "2024-01-01", 1990, []string{"go", "sql"}))

		records, err := postgres.NewRecordStore(mock).Select(ctx, 10)

		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, int64(5), records[0].ID)
		assert.Equal(t, []string{""}, records[0].Expertise)
		assert.Equal(t, int64(2), records[1].ID)
		assert.Equal(t, *sampleRecord(), records[1].Record)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty table", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT id, .* FROM formdata LIMIT`).
			WithArgs(10).
			WillReturnRows(pgxmock.NewRows(columns))

		records, err := postgres.NewRecordStore(mock).Select(ctx, 10)

		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("query error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT id, .* FROM formdata`).
			WithArgs(10).
			WillReturnError(errDatabaseConnection)

		_, err := postgres.NewRecordStore(mock).Select(ctx, 10)

		assert.ErrorIs(t, err, errDatabaseConnection)
		assert.Contains(t, err.Error(), postgres.ErrSelectRecord)
	})

	t.Run("row error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT id, .* FROM formdata`).
			WithArgs(10).
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow(int64(1), "bob", "b@x.io", "2 Main", "556", "secret2", "m", false, "b.pdf", "", 0, []string{"x"}).
				RowError(0, errDatabaseConnection))

		_, err := postgres.NewRecordStore(mock).Select(ctx, 10)

		assert.ErrorIs(t, err, errDatabaseConnection)
	})
}

func TestRecordStore_Update(t *testing.T) {
	ctx := testContext(t)

	t.Run("dynamic set with typed values", func(t *testing.T) {
		mock := newMock(t)
		patch := entities.Patch{
			{Name: entities.FieldUsername, Type: entities.TypeText, Value: "Alicia"},
			{Name: entities.FieldTerms, Type: entities.TypeBool, Value: "false"},
			{Name: entities.FieldYear, Type: entities.TypeNumber, Value: "1991"},
			{Name: entities.FieldExpertise, Type: entities.TypeTags, Value: "go,rust"},
		}
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE formdata SET username = $1, terms = $2, year = $3, expertise = $4 WHERE id = $5`)).
			WithArgs("Alicia", false, 1991, []string{"go", "rust"}, int64(7)).
			WillReturnResult(pgconn.NewCommandTag("UPDATE 1"))

		n, err := postgres.NewRecordStore(mock).Update(ctx, 7, patch)

		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("full draft", func(t *testing.T) {
		mock := newMock(t)
		draft := entities.NewDraft(&entities.StoredRecord{ID: 3, Record: *sampleRecord()})
		mock.ExpectExec(regexp.QuoteMeta(`UPDATE formdata SET username = $1, email = $2, address = $3, phone = $4, password = $5, gender = $6, terms = $7, file = $8, date = $9, year = $10, expertise = $11 WHERE id = $12`)).
			WithArgs("alice", "a@x.io", "1 Main", "555", "secret1", "f", true, "cv.pdf", "2024-01-01", 1990, []string{"go", "sql"}, int64(3)).
			WillReturnResult(pgconn.NewCommandTag("UPDATE 1"))

		_, err := postgres.NewRecordStore(mock).Update(ctx, 3, draft.Patch())

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE formdata SET`).
			WithArgs("x", int64(404)).
			WillReturnResult(pgconn.NewCommandTag("UPDATE 0"))

		n, err := postgres.NewRecordStore(mock).Update(ctx, 404, entities.Patch{{Name: entities.FieldUsername, Value: "x"}})

		assert.ErrorIs(t, err, repositories.ErrRecordNotFound)
		assert.Zero(t, n)
	})

	t.Run("id and unknown columns are rejected before the query", func(t *testing.T) {
		mock := newMock(t)
		store := postgres.NewRecordStore(mock)

		_, err := store.Update(ctx, 1, entities.Patch{{Name: entities.FieldID, Value: "2"}})
		assert.ErrorIs(t, err, entities.ErrUnknownField)

		_, err = store.Update(ctx, 1, entities.Patch{{Name: "username = 'x'; --", Value: "y"}})
		assert.ErrorIs(t, err, entities.ErrUnknownField)

		_, err = store.Update(ctx, 1, nil)
		assert.ErrorIs(t, err, postgres.ErrEmptyPatch)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectExec(`UPDATE formdata SET`).
			WillReturnError(errDatabaseConnection)

		_, err := postgres.NewRecordStore(mock).Update(ctx, 1, entities.Patch{{Name: entities.FieldEmail, Value: "x@y.z"}})

		assert.ErrorIs(t, err, errDatabaseConnection)
		assert.Contains(t, err.Error(), postgres.ErrUpdateRecord)
	})
}

func TestRecordStore_Ping(t *testing.T) {
	ctx := testContext(t)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectPing()
	require.NoError(t, postgres.NewRecordStore(mock).Ping(ctx))

	mock.ExpectPing().WillReturnError(errDatabaseConnection)
	err = postgres.NewRecordStore(mock).Ping(ctx)
	assert.ErrorIs(t, err, errDatabaseConnection)
}
