// Package csvtext converts between comma-separated text and rows of fields.
//
// Parse never returns an error. Unmatched quotes and ragged rows are passed
// through as best-effort data; callers check row widths before reading fields
// by position.
package csvtext

import "strings"

// bom is the UTF-8 encoding of U+FEFF, prepended by spreadsheet exports.
const bom = "\uFEFF"

// Record is one row of fields.
type Record []string

// Document is every row of a parsed text, in source order.
type Document []Record

// Parse splits text into records. A leading byte-order mark is dropped.
// Commas and line breaks inside a quoted region are kept as data, and a
// doubled quote inside quotes yields one literal quote.
func Parse(text string) Document {
	text = strings.TrimPrefix(text, bom)

	var (
		doc      Document
		row      Record
		field    strings.Builder
		inQuotes bool
	)

	flushField := func() {
		row = append(row, field.String())
		field.Reset()
	}
	flushRow := func() {
		flushField()
		doc = append(doc, row)
		row = nil
	}

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inQuotes {
			if c == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					field.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
				continue
			}
			field.WriteByte(c)
			continue
		}

		switch c {
		case '"':
			inQuotes = true
		case ',':
			flushField()
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
				flushRow()
				continue
			}
			field.WriteByte(c)
		case '\n':
			flushRow()
		default:
			field.WriteByte(c)
		}
	}

	// Input without a trailing line terminator.
	if field.Len() > 0 || len(row) > 0 {
		flushRow()
	}

	return doc
}

// Width returns the number of fields in the widest record.
func (d Document) Width() int {
	w := 0
	for _, r := range d {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Field returns the field at index i, or "" when the record is too short.
func (r Record) Field(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}
