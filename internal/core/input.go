package core

// input.go prepares a raw export byte stream for header scanning.
//
// HOBOware writes UTF-8 with or without a BOM, and older Windows installs
// write UTF-16 or Windows-1252. WrapForStreaming decodes any of these to
// UTF-8 on the fly. Invalid bytes become U+FFFD rather than failing the
// parse, and the raw byte count is tracked for logging and size limits.

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrFileTooLarge is returned once more than the size limit has been read.
	ErrFileTooLarge = errors.New("file too large")

	// ErrEmptyFile is returned for input with no lines at all.
	ErrEmptyFile = errors.New("empty file")

	// ErrNoFile is returned by callers that received no input.
	ErrNoFile = errors.New("no file provided")
)

// CountingReader counts bytes read and optionally enforces a limit.
type CountingReader struct {
	r     io.Reader
	n     int64
	limit int64
}

// NewCountingReader wraps r. A limit <= 0 disables the size check.
func NewCountingReader(r io.Reader, limit int64) *CountingReader {
	return &CountingReader{r: r, limit: limit}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.limit > 0 && c.n > c.limit {
		return n, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, c.limit)
	}
	return n, err
}

// BytesRead returns the number of raw bytes consumed so far.
func (c *CountingReader) BytesRead() int64 {
	return c.n
}

// decoderFor returns the decoder for a configured encoding name. A byte
// order mark in the input always wins over the configured name.
func decoderFor(name string) (*encoding.Decoder, error) {
	var fallback transform.Transformer
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		fallback = unicode.UTF8.NewDecoder()
	case "windows-1252", "cp1252":
		fallback = charmap.Windows1252.NewDecoder()
	case "utf-16", "utf16":
		fallback = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	default:
		return nil, fmt.Errorf("encoding error: unsupported encoding %q", name)
	}
	return &encoding.Decoder{Transformer: unicode.BOMOverride(fallback)}, nil
}

// WrapForStreaming returns a UTF-8 reader over r and the counter tracking
// raw bytes. maxBytes <= 0 means no size limit.
func WrapForStreaming(r io.Reader, encodingName string, maxBytes int64) (io.Reader, *CountingReader, error) {
	dec, err := decoderFor(encodingName)
	if err != nil {
		return nil, nil, err
	}
	counter := NewCountingReader(r, maxBytes)
	return transform.NewReader(counter, dec), counter, nil
}
