package core

// error_messages.go maps technical errors to user-facing messages with a
// support code.
//
// Codes by category:
//
//	HDR001  header not found        no column definition line with a timestamp marker
//	HDR002  malformed header field  a matched header field lacks a unit or label
//	ROW001  invalid timestamp       a data row's timestamp cannot be parsed
//	ROW002  no timestamp column     mapping has no timestamp column
//	FILE001 file too large
//	FILE002 invalid csv
//	FILE003 encoding error
//	FILE004 no file provided
//	FILE005 empty file
//	FILE006 file not found          stored file id does not exist
//	FILE007 unknown export format
//	SRC001  source unavailable      local path or S3 object cannot be opened
//	PRS001  system busy             parse limiter wait expired
//	PRS002  request cancelled
//	PRS003  request timeout
//	DB001   storage disabled
//	DB004   connection refused
//	DB005   connection reset
//	DB007   deadlock
//	RATE001 rate limited
//	ERR000  unknown error
//
// Sentinel errors are matched with errors.Is before the text patterns, so a
// wrapped sentinel always resolves to its own code.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/hobo/internal/export"
	"github.com/JonMunkholm/hobo/internal/header"
	"github.com/JonMunkholm/hobo/internal/store"
	"github.com/JonMunkholm/hobo/internal/table"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

var messages = map[string]UserMessage{
	"HDR001":  {"No column header line with a date/time column was found", "Check that the file is a HOBOware CSV export", "HDR001"},
	"HDR002":  {"A header field is missing its unit or label", "Re-export the file from HOBOware or parse without strict mode", "HDR002"},
	"ROW001":  {"A data row has an unreadable timestamp", "Check the reported line for a corrupted or partial row", "ROW001"},
	"ROW002":  {"The file has no timestamp column", "Check that the file is a HOBOware CSV export", "ROW002"},
	"FILE001": {"File exceeds maximum size limit", "Split the export into smaller date ranges", "FILE001"},
	"FILE002": {"File is not a valid CSV", "Ensure the file is comma-separated with consistent quoting", "FILE002"},
	"FILE003": {"File contains invalid characters", "Save the export as UTF-8 or set PARSE_ENCODING", "FILE003"},
	"FILE004": {"No file was selected", "Please select a CSV export to parse", "FILE004"},
	"FILE005": {"The uploaded file is empty", "Please upload an export with a header and data rows", "FILE005"},
	"FILE006": {"Parsed file not found", "It may have been deleted. Parse the export again", "FILE006"},
	"FILE007": {"Unknown export format", "Use one of csv, json, xlsx, arrow", "FILE007"},
	"SRC001":  {"The source file could not be opened", "Check the path or S3 URI and credentials", "SRC001"},
	"PRS001":  {"System is busy processing other files", "Please wait a moment and try again", "PRS001"},
	"PRS002":  {"Request was cancelled", "Please try again", "PRS002"},
	"PRS003":  {"Request timed out", "Try a smaller file or check your connection", "PRS003"},
	"DB001":   {"Storage is not configured", "Parse without storing or configure DATABASE_URL", "DB001"},
	"DB004":   {"Unable to connect to database", "Please try again in a few moments", "DB004"},
	"DB005":   {"Database connection was interrupted", "Please try again", "DB005"},
	"DB007":   {"Database was busy with conflicting operations", "Please try again", "DB007"},
	"RATE001": {"Too many requests", "Please wait a moment before trying again", "RATE001"},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// sentinelCodes is checked in order with errors.Is.
var sentinelCodes = []struct {
	err  error
	code string
}{
	{ErrEmptyFile, "FILE005"},
	{header.ErrHeaderNotFound, "HDR001"},
	{header.ErrMalformedField, "HDR002"},
	{table.ErrNoTimestampColumn, "ROW002"},
	{ErrFileTooLarge, "FILE001"},
	{ErrNoFile, "FILE004"},
	{export.ErrUnknownFormat, "FILE007"},
	{store.ErrNotFound, "FILE006"},
	{ErrStorageDisabled, "DB001"},
	{ErrTooManyParses, "PRS001"},
	{context.Canceled, "PRS002"},
	{context.DeadlineExceeded, "PRS003"},
}

// errorPatterns is checked case-insensitively after the sentinels. The
// first match wins, so specific patterns come first.
var errorPatterns = []struct {
	pattern string
	code    string
}{
	{"invalid timestamp", "ROW001"},
	{"invalid csv", "FILE002"},
	{"encoding error", "FILE003"},
	{"http: request body too large", "FILE001"},
	{"open source", "SRC001"},
	{"connection refused", "DB004"},
	{"connection reset", "DB005"},
	{"deadlock", "DB007"},
	{"rate limit", "RATE001"},
}

// MapError converts a technical error to a user-friendly message. Unknown
// errors map to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var rowErr *table.RowError
	if errors.As(err, &rowErr) {
		return messages["ROW001"]
	}
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return messages[s.code]
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return messages[ep.code]
		}
	}

	return defaultMessage
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than
// ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
