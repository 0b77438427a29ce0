package discovery

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// sniffBytes bounds how much of a file is inspected to pick a delimiter.
const sniffBytes = 64 * 1024

var utf8BOM = []byte("\xef\xbb\xbf")

// ErrEmptyHeader is returned when a file has no header row.
var ErrEmptyHeader = errors.New("empty header")

// ParseError reports a file whose header row could not be read.
type ParseError struct {
	Err  error
	Path string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse header of %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsParseError reports whether err is, or wraps, a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// trimCompression strips a trailing .gz from a file name.
func trimCompression(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		return name[:len(name)-len(".gz")]
	}
	return name
}

// HasExtension reports whether name (ignoring a trailing .gz) ends with one of exts.
func HasExtension(name string, exts []string) bool {
	base := strings.ToLower(trimCompression(name))
	for _, ext := range exts {
		if strings.HasSuffix(base, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// Delimiter picks the field separator for a file. Known extensions decide
// directly; anything else is sniffed from the first line, defaulting to tab.
func Delimiter(name string, firstLine []byte) rune {
	switch strings.ToLower(path.Ext(trimCompression(name))) {
	case ".csv":
		return ','
	case ".tsv":
		return '\t'
	}

	tabs := bytes.Count(firstLine, []byte{'\t'})
	commas := bytes.Count(firstLine, []byte{','})
	if commas > tabs {
		return ','
	}
	return '\t'
}

// Sample is the header row of a file plus its first few data rows.
type Sample struct {
	Header []string
	Rows   [][]string
}

// ReadHeader reads the first row of a delimited file. name is used to detect
// compression and the delimiter; it does not need to exist on disk.
func ReadHeader(r io.Reader, name string) ([]string, error) {
	sample, err := ReadSample(r, name, 0)
	if err != nil {
		return nil, err
	}
	return sample.Header, nil
}

// ReadSample reads the header row and at most maxRows data rows. Rows may
// have any number of fields; malformed quoting is a ParseError.
func ReadSample(r io.Reader, name string, maxRows int) (*Sample, error) {
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, &ParseError{Path: name, Err: err}
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	cr, err := newReader(r, name)
	if err != nil {
		return nil, err
	}

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = ErrEmptyHeader
		}
		return nil, &ParseError{Path: name, Err: err}
	}

	sample := &Sample{Header: header}
	for len(sample.Rows) < maxRows {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Path: name, Err: err}
		}
		sample.Rows = append(sample.Rows, row)
	}
	return sample, nil
}

// newReader sniffs the delimiter and skips a UTF-8 byte order mark.
func newReader(r io.Reader, name string) (*csv.Reader, error) {
	br := bufio.NewReaderSize(r, sniffBytes)
	peek, err := br.Peek(sniffBytes)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, &ParseError{Path: name, Err: err}
	}
	bom := bytes.HasPrefix(peek, utf8BOM)
	peek = bytes.TrimPrefix(peek, utf8BOM)
	if len(bytes.TrimSpace(peek)) == 0 {
		return nil, &ParseError{Path: name, Err: ErrEmptyHeader}
	}

	firstLine := peek
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		firstLine = peek[:i]
	}

	if bom {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, &ParseError{Path: name, Err: err}
		}
	}

	cr := csv.NewReader(br)
	cr.Comma = Delimiter(name, firstLine)
	cr.FieldsPerRecord = -1
	return cr, nil
}

// ReadHeaderFile opens path and reads its header row.
func ReadHeaderFile(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ReadHeader(f, path)
}
