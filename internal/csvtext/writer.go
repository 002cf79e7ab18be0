package csvtext

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

var errWriterNoTarget = errors.New("csvtext: writer destination cannot be nil")

// Writer emits records terminated by CRLF. Its output always parses back into
// the records written.
type Writer struct {
	dst *bufio.Writer

	// AlwaysQuote quotes every field, not only those that need it.
	AlwaysQuote bool
	// ByteOrderMark writes U+FEFF before the first record so spreadsheet
	// applications detect UTF-8.
	ByteOrderMark bool

	started bool
	err     error
}

// NewWriter returns a Writer buffering into w.
func NewWriter(w io.Writer) *Writer {
	if w == nil {
		panic(errWriterNoTarget.Error())
	}
	return &Writer{dst: bufio.NewWriter(w)}
}

// Write emits one record. A record with no fields is written as a single
// empty field.
func (w *Writer) Write(record Record) error {
	if w.err != nil {
		return w.err
	}
	if !w.started {
		w.started = true
		if w.ByteOrderMark {
			if _, err := w.dst.WriteString(bom); err != nil {
				w.err = err
				return err
			}
		}
	}

	for i, field := range record {
		if i > 0 {
			if err := w.dst.WriteByte(','); err != nil {
				w.err = err
				return err
			}
		}
		if err := w.writeField(field); err != nil {
			w.err = err
			return err
		}
	}
	if _, err := w.dst.WriteString("\r\n"); err != nil {
		w.err = err
		return err
	}
	return nil
}

// WriteAll writes every record and flushes.
func (w *Writer) WriteAll(doc Document) error {
	for _, record := range doc {
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Flush writes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.dst.Flush(); err != nil {
		w.err = err
		return err
	}
	return nil
}

func (w *Writer) writeField(field string) error {
	if !w.AlwaysQuote && !fieldNeedsQuote(field) {
		_, err := w.dst.WriteString(field)
		return err
	}
	if err := w.dst.WriteByte('"'); err != nil {
		return err
	}
	if _, err := w.dst.WriteString(strings.ReplaceAll(field, `"`, `""`)); err != nil {
		return err
	}
	return w.dst.WriteByte('"')
}

// fieldNeedsQuote reports whether field would be altered by Parse if written
// bare. A leading BOM is quoted because Parse strips one at the start of text.
func fieldNeedsQuote(field string) bool {
	if strings.HasPrefix(field, bom) {
		return true
	}
	return strings.ContainsAny(field, ",\"\r\n")
}

// Serialize renders doc with minimal quoting. Parse(Serialize(doc)) equals
// doc whenever every record has at least one field.
func Serialize(doc Document) string {
	var sb strings.Builder
	w := NewWriter(&sb)
	// strings.Builder never fails.
	_ = w.WriteAll(doc)
	return sb.String()
}
