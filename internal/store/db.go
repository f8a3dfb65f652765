// Package store persists parsed telemetry. The sqlite-backed DB keeps one
// row per parsed field for ad-hoc querying; the TextWriter appends raw lines
// to dated log files for replay and audit.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/OceanDataTools/openrvdas-contrib/internal/sentence"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type DB struct {
	*sql.DB
}

// NewDB opens (creating if necessary) the sqlite database at path and brings
// the schema up to date.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	d := &DB{db}
	if err := d.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// migrateUp applies any pending schema migrations from the embedded
// migrations directory.
func (db *DB) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// RecordParsed stores every field of one parsed record in a single
// transaction: either the whole record lands or none of it does.
func (db *DB) RecordParsed(device string, rec sentence.Record) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var checksum any
	if rec.ChecksumValid != nil {
		checksum = *rec.ChecksumValid
	}

	for field, v := range rec.Fields {
		num, text := columnsFor(v)
		_, err := tx.Exec(
			`INSERT INTO parsed_fields (device, field, kind, value_num, value_text, checksum_valid)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			device, field, kindLabel(v.Kind), num, text, checksum,
		)
		if err != nil {
			return fmt.Errorf("failed to insert field %s: %w", field, err)
		}
	}
	return tx.Commit()
}

// columnsFor maps a typed value onto the numeric/text column pair. Absent
// values leave both NULL.
func columnsFor(v sentence.Value) (num, text any) {
	switch v.Kind {
	case sentence.KindInt:
		return float64(v.Int), nil
	case sentence.KindUint:
		return float64(v.Uint), nil
	case sentence.KindFloat:
		return v.Float, nil
	case sentence.KindString:
		return nil, v.Str
	case sentence.KindTime:
		return nil, v.Time.Format("2006-01-02T15:04:05.000Z07:00")
	}
	return nil, nil
}

func kindLabel(k sentence.Kind) string {
	switch k {
	case sentence.KindInt:
		return "int"
	case sentence.KindUint:
		return "uint"
	case sentence.KindFloat:
		return "float"
	case sentence.KindString:
		return "string"
	case sentence.KindTime:
		return "time"
	case sentence.KindAbsent:
		return "absent"
	}
	return "unknown"
}

// StoredField is one persisted field row.
type StoredField struct {
	Device        string
	Field         string
	Kind          string
	ValueNum      sql.NullFloat64
	ValueText     sql.NullString
	ChecksumValid sql.NullBool
}

// RecentFields returns up to limit of the most recently stored fields for a
// device.
func (db *DB) RecentFields(device string, limit int) ([]StoredField, error) {
	rows, err := db.Query(
		`SELECT device, field, kind, value_num, value_text, checksum_valid
		 FROM parsed_fields WHERE device = ? ORDER BY id DESC LIMIT ?`,
		device, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []StoredField
	for rows.Next() {
		var f StoredField
		if err := rows.Scan(&f.Device, &f.Field, &f.Kind, &f.ValueNum, &f.ValueText, &f.ChecksumValid); err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return fields, nil
}
