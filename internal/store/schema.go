package store

import (
	"context"
	"fmt"
)

// schemaSQL creates the tables used by Store. Every statement is idempotent.
var schemaSQL = []string{
	`CREATE TABLE IF NOT EXISTS logger_files (
		id            UUID PRIMARY KEY,
		file_name     TEXT NOT NULL,
		title_key     TEXT NOT NULL DEFAULT '',
		title_value   TEXT NOT NULL DEFAULT '',
		serial_number TEXT,
		header_lines  INTEGER NOT NULL,
		row_count     INTEGER NOT NULL,
		qc_applied    BOOLEAN NOT NULL DEFAULT FALSE,
		time_zone     TEXT NOT NULL DEFAULT 'UTC',
		tz_offset     INTEGER NOT NULL DEFAULT 0,
		channels      JSONB NOT NULL DEFAULT '[]',
		client_ip     TEXT,
		user_agent    TEXT,
		parsed_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS logger_files_serial_idx ON logger_files (serial_number)`,
	`CREATE TABLE IF NOT EXISTS logger_rows (
		file_id     UUID NOT NULL REFERENCES logger_files (id) ON DELETE CASCADE,
		row_num     INTEGER NOT NULL,
		observed_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (file_id, row_num)
	)`,
	`CREATE TABLE IF NOT EXISTS logger_readings (
		file_id   UUID NOT NULL REFERENCES logger_files (id) ON DELETE CASCADE,
		row_num   INTEGER NOT NULL,
		channel   SMALLINT NOT NULL,
		raw_value TEXT NOT NULL DEFAULT '',
		value     DOUBLE PRECISION,
		qc_flag   SMALLINT NOT NULL DEFAULT 0,
		PRIMARY KEY (file_id, row_num, channel)
	)`,
}

const insertFileSQL = `
INSERT INTO logger_files (
	id, file_name, title_key, title_value, serial_number,
	header_lines, row_count, qc_applied, time_zone, tz_offset, channels,
	client_ip, user_agent
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING parsed_at`

const fileColumns = `id, file_name, title_key, title_value, serial_number,
	header_lines, row_count, qc_applied, time_zone, tz_offset, channels,
	client_ip, user_agent, parsed_at`

const listFilesSQL = `SELECT ` + fileColumns + ` FROM logger_files
ORDER BY parsed_at DESC, id LIMIT $1 OFFSET $2`

const getFileSQL = `SELECT ` + fileColumns + ` FROM logger_files WHERE id = $1`

const selectRowsSQL = `SELECT row_num, observed_at FROM logger_rows
WHERE file_id = $1 ORDER BY row_num`

const selectReadingsSQL = `SELECT row_num, channel, raw_value, qc_flag FROM logger_readings
WHERE file_id = $1 ORDER BY row_num, channel`

const deleteFileSQL = `DELETE FROM logger_files WHERE id = $1`

// Migrate creates the store tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schemaSQL {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
