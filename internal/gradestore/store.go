package gradestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"isugrades-backend/internal/components/assert"
	"isugrades-backend/internal/components/chrono"
	"isugrades-backend/internal/components/telemetry"
	"isugrades-backend/internal/db"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	report_store_persist = "store.persist"
	report_store_get     = "store.get"
	report_store_list    = "store.list"
)

// ErrRecordConflict is returned when a record book number is already stored
// for a different owner.
var ErrRecordConflict = errors.New("gradebook id already belongs to another owner")

// PersistenceError wraps every failure of the underlying database.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("gradestore: %s: %s", e.Op, e.Err.Error())
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Record is a persisted gradebook. Once written it is never updated.
type Record struct {
	ID              int64
	OwnerID         int64
	FullName        string
	StudyCode       string
	StudyName       string
	Faculty         string
	EnrollmentOrder string
	CreatedAt       time.Time
}

func recordFromRow(row db.Gradebook, loc *time.Location) Record {
	return Record{
		ID:              row.ID,
		OwnerID:         row.OwnerID,
		FullName:        row.FullName,
		StudyCode:       row.StudyCode,
		StudyName:       row.StudyName,
		Faculty:         row.Faculty,
		EnrollmentOrder: row.EnrollmentOrder,
		CreatedAt:       time.Unix(row.CreatedAt, 0).In(loc),
	}
}

// Store persists gradebook records. It enforces one record per owner and one
// owner per record id, both at the schema level. It is safe for concurrent use.
type Store struct {
	qry    *db.Queries
	makeTx db.MakeTx
	time   chrono.API
	tel    telemetry.API
}

func NewStore(database *sql.DB, time chrono.API, tel telemetry.API) Store {
	assert.NotNil(database)
	assert.NotNil(time)
	assert.NotNil(tel)

	return Store{
		qry:    db.New(database),
		makeTx: db.NewMakeTx(database),
		time:   time,
		tel:    telemetry.NewScopedAPI("gradestore", tel),
	}
}

func (s Store) fail(id, op string, err error, params ...any) error {
	s.tel.ReportBroken(id, append([]any{fmt.Errorf("%s: %w", op, err)}, params...)...)
	return &PersistenceError{Op: op, Err: err}
}

// PersistIfAbsent writes the record unless one already exists for its owner,
// the first write wins. It returns whether the record was created.
func (s Store) PersistIfAbsent(ctx context.Context, record Record) (bool, error) {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return false, s.fail(report_store_persist, "begin tx", err)
	}
	defer discard()

	_, err = tx.GetGradebookByOwner(ctx, record.OwnerID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, s.fail(report_store_persist, "query owner", err, record.OwnerID)
	}

	affected, err := tx.CreateGradebook(ctx, db.CreateGradebookParams{
		ID:              record.ID,
		OwnerID:         record.OwnerID,
		FullName:        record.FullName,
		StudyCode:       record.StudyCode,
		StudyName:       record.StudyName,
		Faculty:         record.Faculty,
		EnrollmentOrder: record.EnrollmentOrder,
		CreatedAt:       s.time.Now().Unix(),
	})
	if err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("%w: %w", ErrRecordConflict, err)
		}
		return false, s.fail(report_store_persist, "insert", err, record.ID, record.OwnerID)
	}

	err = commit()
	if err != nil {
		return false, s.fail(report_store_persist, "commit", err)
	}

	return affected > 0, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
		return false
	}
	// libsql only reports the message
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// Get returns the record of an owner, ok is false if there is none.
func (s Store) Get(ctx context.Context, ownerId int64) (Record, bool, error) {
	row, err := s.qry.GetGradebookByOwner(ctx, ownerId)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, s.fail(report_store_get, "query owner", err, ownerId)
	}
	return recordFromRow(row, s.time.Location()), true, nil
}

// GetByID returns the record with the given record book number.
func (s Store) GetByID(ctx context.Context, id int64) (Record, bool, error) {
	row, err := s.qry.GetGradebook(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, s.fail(report_store_get, "query id", err, id)
	}
	return recordFromRow(row, s.time.Location()), true, nil
}

func (s Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.qry.ListGradebooks(ctx)
	if err != nil {
		return nil, s.fail(report_store_list, "list", err)
	}
	records := make([]Record, len(rows))
	for i, r := range rows {
		records[i] = recordFromRow(r, s.time.Location())
	}
	return records, nil
}

func (s Store) Count(ctx context.Context) (int64, error) {
	count, err := s.qry.CountGradebooks(ctx)
	if err != nil {
		return 0, s.fail(report_store_list, "count", err)
	}
	return count, nil
}
