// Package kgx reads KGX-style delimited node and edge files.
package kgx

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoHeader is returned for an empty file
var ErrNoHeader = errors.New("missing header row")

// Reader streams rows of a delimited file with a header row
type Reader struct {
	Path  string
	Delim rune

	csv     *csv.Reader
	header  []string
	columns map[string]int
	line    int
	closers []io.Closer
}

// Row is one data row addressed by column name
type Row struct {
	Line   int // 1-based file line, header is line 1
	values []string
	cols   map[string]int
}

// Get returns the trimmed cell for column, or "" if the column is absent
func (r Row) Get(column string) string {
	i, ok := r.cols[column]
	if !ok || i >= len(r.values) {
		return ""
	}
	return strings.TrimSpace(r.values[i])
}

// Opt returns the cell as a nullable value: nil when absent or blank
func (r Row) Opt(column string) *string {
	v := r.Get(column)
	if v == "" {
		return nil
	}
	return &v
}

// Open opens path for streaming. Files ending in .gz are decompressed.
// A missing file yields an error matching os.ErrNotExist.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	closers := []io.Closer{f}

	var src io.Reader = f
	name := path
	if strings.HasSuffix(name, ".gz") {
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening gzip %s: %w", path, err)
		}
		closers = append(closers, gr)
		src = gr
		name = strings.TrimSuffix(name, ".gz")
	}

	br := bufio.NewReaderSize(src, 64*1024)
	delim := DelimiterFor(name, peekLine(br))

	r, err := NewReader(br, delim)
	if err != nil {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	r.Path = path
	r.closers = closers
	return r, nil
}

// NewReader reads the header row from src using delim
func NewReader(src io.Reader, delim rune) (*Reader, error) {
	cr := csv.NewReader(src)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		header[i] = h
		if _, dup := columns[h]; !dup {
			columns[h] = i
		}
	}
	return &Reader{Delim: delim, csv: cr, header: header, columns: columns, line: 1}, nil
}

// Header returns the column names in file order
func (r *Reader) Header() []string { return r.header }

// Has reports whether the header names column
func (r *Reader) Has(column string) bool {
	_, ok := r.columns[column]
	return ok
}

// Next returns the next non-empty row, or io.EOF
func (r *Reader) Next() (Row, error) {
	for {
		rec, err := r.csv.Read()
		if err != nil {
			if err == io.EOF {
				return Row{}, io.EOF
			}
			return Row{}, fmt.Errorf("line %d: %w", r.line+1, err)
		}
		line, _ := r.csv.FieldPos(0)
		r.line = line
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		return Row{Line: line, values: rec, cols: r.columns}, nil
	}
}

// Close releases the underlying file
func (r *Reader) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil
	return first
}

// DelimiterFor picks the delimiter from the file extension, falling back to
// whichever of tab or comma occurs more often in the header line.
func DelimiterFor(path string, header []byte) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return '\t'
	case ".csv":
		return ','
	}
	if bytes.Count(header, []byte{','}) > bytes.Count(header, []byte{'\t'}) {
		return ','
	}
	return '\t'
}

func peekLine(br *bufio.Reader) []byte {
	buf, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(buf, '\n'); i >= 0 {
		return buf[:i]
	}
	return buf
}
