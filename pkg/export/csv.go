package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// utf8BOM is the UTF-8 byte order mark.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TimestampLayout is the layout of the {timestamp} file name token.
const TimestampLayout = "20060102150405"

// flushEvery is the number of rows between flushes of the CSV writer.
const flushEvery = 100

// CSVOptions configures the output file.
type CSVOptions struct {
	// UseBOM writes a UTF-8 byte order mark first.
	UseBOM bool

	// UseCRLF terminates records with \r\n instead of \n.
	UseCRLF bool

	// Delimiter is the field separator. Default: ','
	Delimiter rune

	// Atomic writes to "<path>.partial" and renames it into place on Close.
	// Without it a failed export leaves the rows written so far at path.
	Atomic bool
}

// ResolveFileName substitutes the {entity} and {timestamp} tokens of a file
// name template.
func ResolveFileName(template, entity string, now time.Time) string {
	return strings.NewReplacer(
		"{entity}", entity,
		"{timestamp}", now.Format(TimestampLayout),
	).Replace(template)
}

// CSVWriter streams a header and rows to a CSV file.
type CSVWriter struct {
	path     string
	filePath string
	atomic   bool

	file   *os.File
	writer *csv.Writer
	rows   int
	closed bool
}

// CreateCSV creates parent directories, truncates or creates the target and
// writes the byte order mark when enabled.
func CreateCSV(path string, opts CSVOptions) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, &IOError{Op: "create directory", Path: filepath.Dir(path), Cause: err}
	}

	filePath := path
	if opts.Atomic {
		filePath = path + ".partial"
	}

	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, &IOError{Op: "open", Path: filePath, Cause: err}
	}

	if opts.UseBOM {
		if _, err := file.Write(utf8BOM); err != nil {
			file.Close()
			return nil, &IOError{Op: "write", Path: filePath, Cause: err}
		}
	}

	writer := csv.NewWriter(file)
	writer.UseCRLF = opts.UseCRLF
	if opts.Delimiter != 0 {
		writer.Comma = opts.Delimiter
	}

	return &CSVWriter{
		path:     path,
		filePath: filePath,
		atomic:   opts.Atomic,
		file:     file,
		writer:   writer,
	}, nil
}

// Path returns the final output path.
func (w *CSVWriter) Path() string {
	return w.path
}

// Rows returns the number of data rows written.
func (w *CSVWriter) Rows() int {
	return w.rows
}

// WriteHeader writes the header record.
func (w *CSVWriter) WriteHeader(columns []string) error {
	if err := w.writer.Write(columns); err != nil {
		return &IOError{Op: "write header", Path: w.filePath, Cause: err}
	}
	return nil
}

// WriteRow writes one data record.
func (w *CSVWriter) WriteRow(row NormalizedRow) error {
	if err := w.writer.Write(row); err != nil {
		return &IOError{Op: "write row", Path: w.filePath, Cause: err}
	}
	w.rows++

	if w.rows%flushEvery == 0 {
		if err := w.flush(); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the file. In atomic mode the partial file is then
// renamed to the final path.
func (w *CSVWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.flush(); err != nil {
		w.file.Close()
		_ = w.discard()
		return err
	}
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		_ = w.discard()
		return &IOError{Op: "sync", Path: w.filePath, Cause: err}
	}
	if err := w.file.Close(); err != nil {
		_ = w.discard()
		return &IOError{Op: "close", Path: w.filePath, Cause: err}
	}

	if w.atomic {
		if err := os.Rename(w.filePath, w.path); err != nil {
			_ = w.discard()
			return &IOError{Op: "rename", Path: w.path, Cause: err}
		}
	}
	return nil
}

// Abort ends a failed export. In direct mode the rows written so far are
// flushed and stay on disk; in atomic mode the partial file is removed and
// any previous file at the final path is left untouched.
func (w *CSVWriter) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if w.atomic {
		w.file.Close()
		return w.discard()
	}

	flushErr := w.flush()
	closeErr := w.file.Close()
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return &IOError{Op: "close", Path: w.filePath, Cause: closeErr}
	}
	return nil
}

func (w *CSVWriter) flush() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return &IOError{Op: "write", Path: w.filePath, Cause: err}
	}
	return nil
}

// discard removes the partial file of an atomic writer.
func (w *CSVWriter) discard() error {
	if !w.atomic {
		return nil
	}
	if err := os.Remove(w.filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &IOError{Op: "remove", Path: w.filePath, Cause: fmt.Errorf("cleanup of partial file: %w", err)}
	}
	return nil
}
