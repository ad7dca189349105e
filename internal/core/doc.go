// Package core runs the logger export parse pipeline.
//
// [Service.Parse] takes one export stream through every stage:
//
//  1. [WrapForStreaming] decodes the bytes to UTF-8 and drops any BOM
//  2. header.Scan reads the preamble up to the column definition line
//  3. table.Assemble reads the data rows from the same buffered reader
//  4. qc.Run flags suspicious values when QC is requested
//  5. the Repository stores the table when storing is requested
//
// Parses are bounded by a [ParseLimiter]. Technical errors are mapped to
// user messages with support codes by [MapError]:
//
//   - HDR001-HDR002: header errors
//   - ROW001-ROW002: data row errors
//   - FILE001-FILE007: file errors
//   - PRS001-PRS003: limiter, cancellation, timeout
//   - DB001-DB007: storage errors
package core
