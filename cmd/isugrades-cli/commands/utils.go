package commands

import (
	"database/sql"
	"isugrades-backend/internal/components/chrono"
	"isugrades-backend/internal/components/telemetry"
	"isugrades-backend/internal/db"
	"isugrades-backend/internal/gradestore"
	"isugrades-backend/pkg/sqliteutil"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
)

func NewTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// openStore opens the database selected by the global flags, the returned db
// must be closed by the caller.
func openStore() (gradestore.Store, *sql.DB, chrono.API, error) {
	clock, err := chrono.NewStandardImpl()
	if err != nil {
		return gradestore.Store{}, nil, nil, err
	}
	sqlite, err := sqliteutil.Config{File: dbPath, Url: dbUrl}.OpenDB(db.Schema)
	if err != nil {
		return gradestore.Store{}, nil, nil, err
	}
	return gradestore.NewStore(sqlite, clock, telemetry.SlogAPI{}), sqlite, clock, nil
}

var recordHeader = table.Row{"Record book", "Owner", "Full name", "Study code", "Study name", "Faculty", "Enrolled"}

func recordRow(record gradestore.Record) table.Row {
	return table.Row{
		record.ID,
		record.OwnerID,
		record.FullName,
		record.StudyCode,
		record.StudyName,
		record.Faculty,
		record.EnrollmentOrder,
	}
}

// renderRecord prints a single record as a two column table.
func renderRecord(t table.Writer, record gradestore.Record) {
	row := recordRow(record)
	for i, title := range recordHeader {
		t.AppendRow(table.Row{title, row[i]})
	}
	t.AppendRow(table.Row{"Stored at", record.CreatedAt.Format("2006-01-02 15:04")})
	t.Render()
}
