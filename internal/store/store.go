// Package store persists parsed logger files in PostgreSQL.
//
// A parsed file is one logger_files row plus its time index in logger_rows
// and one logger_readings row per (row, channel) with the raw value, its
// numeric form and the QC flag. Files can be listed, reloaded as a
// table.Table for re-export, and deleted.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/hobo/internal/table"
)

// ErrNotFound is returned when a file id does not exist.
var ErrNotFound = errors.New("file not found")

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Channel describes one stored data column.
type Channel struct {
	Position int    `json:"position"`
	Slot     string `json:"slot"`
	Name     string `json:"name"`
	LongName string `json:"long_name"`
	Units    string `json:"units"`
}

// File is the stored summary of one parsed export.
type File struct {
	ID           uuid.UUID `json:"id"`
	FileName     string    `json:"file_name"`
	TitleKey     string    `json:"title_key"`
	TitleValue   string    `json:"title_value"`
	SerialNumber string    `json:"serial_number"`
	HeaderLines  int       `json:"header_lines"`
	RowCount     int       `json:"row_count"`
	QCApplied    bool      `json:"qc_applied"`
	TimeZone     string    `json:"time_zone"`
	TZOffset     int       `json:"tz_offset_seconds"`
	Channels     []Channel `json:"channels"`
	SourceIP     string    `json:"source_ip,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	ParsedAt     time.Time `json:"parsed_at"`
}

// NewFile carries what SaveTable records besides the table itself.
type NewFile struct {
	FileName     string
	TitleKey     string
	TitleValue   string
	SerialNumber string
	HeaderLines  int
	QCApplied    bool
	SourceIP     string
	UserAgent    string
}

// Store reads and writes parsed files.
type Store struct {
	db DB
}

// New returns a Store over db.
func New(db DB) *Store {
	return &Store{db: db}
}

// SaveTable stores t in one transaction and returns the new file summary.
func (s *Store) SaveTable(ctx context.Context, nf NewFile, t *table.Table) (File, error) {
	f := File{
		ID:           uuid.New(),
		FileName:     nf.FileName,
		TitleKey:     nf.TitleKey,
		TitleValue:   nf.TitleValue,
		SerialNumber: nf.SerialNumber,
		HeaderLines:  nf.HeaderLines,
		RowCount:     t.Len(),
		QCApplied:    nf.QCApplied,
		Channels:     channelsOf(t),
		SourceIP:     nf.SourceIP,
		UserAgent:    nf.UserAgent,
	}
	f.TimeZone, f.TZOffset = zoneOf(t)

	channels, err := json.Marshal(f.Channels)
	if err != nil {
		return File{}, fmt.Errorf("encode channels: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return File{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, insertFileSQL,
		toPgUUID(f.ID), f.FileName, f.TitleKey, f.TitleValue, toPgText(f.SerialNumber),
		f.HeaderLines, f.RowCount, f.QCApplied, f.TimeZone, f.TZOffset, channels,
		toPgText(f.SourceIP), toPgText(f.UserAgent),
	).Scan(&f.ParsedAt)
	if err != nil {
		return File{}, fmt.Errorf("insert file: %w", err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"logger_rows"},
		[]string{"file_id", "row_num", "observed_at"},
		pgx.CopyFromSlice(t.Len(), func(i int) ([]any, error) {
			return []any{toPgUUID(f.ID), int32(i), t.Index[i]}, nil
		}),
	); err != nil {
		return File{}, fmt.Errorf("copy rows: %w", err)
	}

	readings := readingsOf(t)
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"logger_readings"},
		[]string{"file_id", "row_num", "channel", "raw_value", "value", "qc_flag"},
		pgx.CopyFromSlice(len(readings), func(i int) ([]any, error) {
			r := readings[i]
			return []any{toPgUUID(f.ID), int32(r.Row), int16(r.Channel), r.Raw, toPgFloat8(r.Raw), int16(r.Flag)}, nil
		}),
	); err != nil {
		return File{}, fmt.Errorf("copy readings: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return File{}, fmt.Errorf("commit: %w", err)
	}
	return f, nil
}

// ListFiles returns stored files, newest first.
func (s *Store) ListFiles(ctx context.Context, limit, offset int) ([]File, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, listFilesSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// GetFile returns one file summary.
func (s *Store) GetFile(ctx context.Context, id uuid.UUID) (File, error) {
	f, err := scanFile(s.db.QueryRow(ctx, getFileSQL, toPgUUID(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return File{}, ErrNotFound
	}
	return f, err
}

// LoadTable rebuilds the stored table of a file.
func (s *Store) LoadTable(ctx context.Context, id uuid.UUID) (File, *table.Table, error) {
	f, err := s.GetFile(ctx, id)
	if err != nil {
		return File{}, nil, err
	}

	index := make([]time.Time, f.RowCount)
	rows, err := s.db.Query(ctx, selectRowsSQL, toPgUUID(id))
	if err != nil {
		return File{}, nil, fmt.Errorf("load rows: %w", err)
	}
	for rows.Next() {
		var n int32
		var at time.Time
		if err := rows.Scan(&n, &at); err != nil {
			rows.Close()
			return File{}, nil, fmt.Errorf("scan row: %w", err)
		}
		if int(n) < len(index) {
			index[n] = at
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return File{}, nil, fmt.Errorf("load rows: %w", err)
	}

	var readings []reading
	rr, err := s.db.Query(ctx, selectReadingsSQL, toPgUUID(id))
	if err != nil {
		return File{}, nil, fmt.Errorf("load readings: %w", err)
	}
	for rr.Next() {
		var n int32
		var ch, flag int16
		var raw string
		if err := rr.Scan(&n, &ch, &raw, &flag); err != nil {
			rr.Close()
			return File{}, nil, fmt.Errorf("scan reading: %w", err)
		}
		readings = append(readings, reading{Row: int(n), Channel: int(ch), Raw: raw, Flag: int(flag)})
	}
	rr.Close()
	if err := rr.Err(); err != nil {
		return File{}, nil, fmt.Errorf("load readings: %w", err)
	}

	return f, rebuildTable(f, index, readings), nil
}

// DeleteFile removes a file and its readings.
func (s *Store) DeleteFile(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, deleteFileSQL, toPgUUID(id))
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanFile(row pgx.Row) (File, error) {
	var (
		f         File
		id        pgtype.UUID
		serial    pgtype.Text
		sourceIP  pgtype.Text
		userAgent pgtype.Text
		channels  []byte
	)
	err := row.Scan(&id, &f.FileName, &f.TitleKey, &f.TitleValue, &serial,
		&f.HeaderLines, &f.RowCount, &f.QCApplied, &f.TimeZone, &f.TZOffset, &channels,
		&sourceIP, &userAgent, &f.ParsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, err
		}
		return File{}, fmt.Errorf("scan file: %w", err)
	}
	f.ID = uuid.UUID(id.Bytes)
	f.SerialNumber = serial.String
	f.SourceIP = sourceIP.String
	f.UserAgent = userAgent.String
	if err := json.Unmarshal(channels, &f.Channels); err != nil {
		return File{}, fmt.Errorf("decode channels: %w", err)
	}
	return f, nil
}
