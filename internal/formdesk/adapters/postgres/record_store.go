// Package postgres provides PostgreSQL implementations of repositories.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"formdesk/internal/formdesk/domain/entities"
	"formdesk/internal/formdesk/ports/repositories"
	"formdesk/pkg/logger"
)

// Ошибки и сообщения репозитория.
const (
	ErrInsertRecord = "failed to insert record"
	ErrSelectRecord = "failed to select records"
	ErrScanRecord   = "failed to scan record"
	ErrIterateRows  = "error iterating rows"
	ErrUpdateRecord = "failed to update record"
	ErrPingStore    = "failed to ping record store"
)

// ErrEmptyPatch возвращается при попытке обновления без полей.
var ErrEmptyPatch = errors.New("patch has no fields")

const recordColumns = `username, email, address, phone, password, gender, terms, file, date, year, expertise`

// Querier подмножество методов пула соединений, используемое хранилищем.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// RecordStore реализует repositories.RecordStore на таблице formdata.
type RecordStore struct {
	db Querier
}

// NewRecordStore создает новое хранилище записей.
func NewRecordStore(db Querier) *RecordStore {
	return &RecordStore{db: db}
}

var _ repositories.RecordStore = (*RecordStore)(nil)

// Insert сохраняет новую запись и возвращает ее с назначенным id.
func (s *RecordStore) Insert(ctx context.Context, rec *entities.Record) (*entities.StoredRecord, error) {
	log := logger.Log(ctx).With(zap.String("method", "RecordStore.Insert"))
	log.Debug(ctx, "inserting record", zap.String("username", rec.Username))

	var id int64
	err := s.db.QueryRow(ctx,
		`INSERT INTO formdata (`+recordColumns+`)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
         RETURNING id`,
		rec.Username, rec.Email, rec.Address, rec.Phone, rec.Password, rec.Gender,
		rec.Terms, rec.File, rec.Date, rec.Year, expertiseArg(rec.Expertise),
	).Scan(&id)
	if err != nil {
		log.Error(ctx, ErrInsertRecord, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrInsertRecord, err)
	}

	log.Debug(ctx, "record inserted", zap.Int64("id", id))
	return &entities.StoredRecord{ID: id, Record: *rec}, nil
}

// Select возвращает не более limit записей в порядке, заданном хранилищем.
func (s *RecordStore) Select(ctx context.Context, limit int) ([]*entities.StoredRecord, error) {
	log := logger.Log(ctx).With(zap.String("method", "RecordStore.Select"))
	log.Debug(ctx, "selecting records", zap.Int("limit", limit))

	rows, err := s.db.Query(ctx,
		`SELECT id, `+recordColumns+` FROM formdata LIMIT $1`,
		limit,
	)
	if err != nil {
		log.Error(ctx, ErrSelectRecord, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrSelectRecord, err)
	}
	defer rows.Close()

	records := make([]*entities.StoredRecord, 0, limit)
	for rows.Next() {
		var r entities.StoredRecord
		err := rows.Scan(&r.ID, &r.Username, &r.Email, &r.Address, &r.Phone, &r.Password,
			&r.Gender, &r.Terms, &r.File, &r.Date, &r.Year, &r.Expertise)
		if err != nil {
			log.Error(ctx, ErrScanRecord, zap.Error(err))
			return nil, fmt.Errorf("%s: %w", ErrScanRecord, err)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		log.Error(ctx, ErrIterateRows, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrIterateRows, err)
	}

	return records, nil
}

// Update применяет частичное обновление к записи id и возвращает количество затронутых строк.
// В SET попадают только известные поля, id изменить нельзя. Ноль строк означает ErrRecordNotFound.
func (s *RecordStore) Update(ctx context.Context, id int64, patch entities.Patch) (int64, error) {
	log := logger.Log(ctx).With(zap.String("method", "RecordStore.Update"), zap.Int64("id", id))
	log.Debug(ctx, "updating record", zap.Strings("fields", patch.Names()))

	query, args, err := buildUpdate(id, patch)
	if err != nil {
		return 0, err
	}

	result, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		log.Error(ctx, ErrUpdateRecord, zap.Error(err))
		return 0, fmt.Errorf("%s: %w", ErrUpdateRecord, err)
	}

	if result.RowsAffected() == 0 {
		log.Debug(ctx, "record not found")
		return 0, repositories.ErrRecordNotFound
	}

	return result.RowsAffected(), nil
}

// Ping проверяет доступность хранилища.
func (s *RecordStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%s: %w", ErrPingStore, err)
	}
	return nil
}

func buildUpdate(id int64, patch entities.Patch) (string, []any, error) {
	if len(patch) == 0 {
		return "", nil, ErrEmptyPatch
	}

	sets := make([]string, 0, len(patch))
	args := make([]any, 0, len(patch)+1)
	seen := make(map[string]struct{}, len(patch))

	for _, f := range patch {
		if !entities.IsEditable(f.Name) {
			return "", nil, fmt.Errorf("%w: %s", entities.ErrUnknownField, f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			continue
		}
		seen[f.Name] = struct{}{}

		args = append(args, columnValue(f))
		sets = append(sets, f.Name+" = $"+strconv.Itoa(len(args)))
	}

	args = append(args, id)
	query := `UPDATE formdata SET ` + strings.Join(sets, ", ") + ` WHERE id = $` + strconv.Itoa(len(args))
	return query, args, nil
}

func columnValue(f entities.Field) any {
	switch f.Name {
	case entities.FieldTerms:
		return entities.ParseBool(f.Value)
	case entities.FieldYear:
		return entities.ParseNumber(f.Value)
	case entities.FieldExpertise:
		return entities.SplitExpertise(f.Value)
	default:
		return f.Value
	}
}

func expertiseArg(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
