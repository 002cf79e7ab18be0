// Package sqljob defines the contract shared by the SQL job backends.
package sqljob

import (
	"context"
	"encoding/json"
	"strconv"
)

// Result is the accumulated outcome of one submitted SQL job.
type Result struct {
	JobID     string
	Columns   []string
	Rows      [][]string
	Error     string // first SQL error reported by the backend, if any
	Completed bool
}

// Runner submits a SQL command and waits for it, polling at most polls times.
type Runner interface {
	Run(ctx context.Context, command string, limit, polls int) (*Result, error)
}

// FormatValue renders a decoded JSON or driver value as a CSV field.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// EscapeLiteral doubles single quotes so s can sit inside a '...' literal.
func EscapeLiteral(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'')
		}
		out = append(out, s[i])
	}
	return string(out)
}
