// Package feedback stores chat feedback records in the WXO_LOG table and
// exports them back as CSV.
package feedback

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Record is one feedback row.
type Record struct {
	ID         string         `json:"id"`
	GaroonID   StringOrNumber `json:"garoonId"`
	Name       string         `json:"name"`
	Question   string         `json:"question"`
	Answer     string         `json:"answer"`
	IsPositive Flag           `json:"isPositive"`
	Categories string         `json:"categories"`
	Text       string         `json:"text"`
}

// Flag is a 0/1 column that also accepts JSON booleans and numeric strings.
type Flag int

func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	switch s {
	case "", "null", "false", "0":
		*f = 0
		return nil
	case "true":
		*f = 1
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("isPositive: %q is not a boolean or number", s)
	}
	if n != 0 {
		*f = 1
	} else {
		*f = 0
	}
	return nil
}

// StringOrNumber is a string column that also accepts a JSON number.
type StringOrNumber string

func (l *StringOrNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = StringOrNumber(s)
		return nil
	}
	if string(b) == "null" {
		*l = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*l = StringOrNumber(n.String())
	return nil
}

// ErrEmptyBody is returned by DecodeBody for an empty request.
var ErrEmptyBody = errors.New("empty request body")

// ceBodyKey wraps the payload when the relay is deployed behind a Code Engine
// function trigger.
const ceBodyKey = "__ce_body"

// DecodeBody decodes a feedback record, unwrapping __ce_body when present.
// The wrapped value may be an object or a JSON-encoded string.
func DecodeBody(body []byte) (Record, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Record{}, ErrEmptyBody
	}

	var outer map[string]json.RawMessage
	if err := json.Unmarshal(body, &outer); err != nil {
		return Record{}, fmt.Errorf("decoding feedback: %w", err)
	}
	if inner, ok := outer[ceBodyKey]; ok {
		inner = bytes.TrimSpace(inner)
		if len(inner) > 0 && inner[0] == '"' {
			var s string
			if err := json.Unmarshal(inner, &s); err != nil {
				return Record{}, fmt.Errorf("decoding %s: %w", ceBodyKey, err)
			}
			inner = []byte(s)
		}
		body = inner
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return Record{}, fmt.Errorf("decoding feedback: %w", err)
	}
	return rec, nil
}

// User identifies the portal user who gave feedback.
type User struct {
	ID       string
	GaroonID string
	Name     string
}

// Event is the chat widget's feedback event.
type Event struct {
	InteractionType string `json:"interactionType"`
	MessageItem     struct {
		Text string `json:"text"`
	} `json:"messageItem"`
	IsPositive bool     `json:"isPositive"`
	Categories []string `json:"categories"`
	Text       string   `json:"text"`
}

// FromEvent builds the record for a submitted feedback event. Other
// interaction types yield false. Categories and free text are only kept for
// negative feedback.
func FromEvent(user User, question string, ev Event) (Record, bool) {
	if ev.InteractionType != "submitted" {
		return Record{}, false
	}
	rec := Record{
		ID:       user.ID,
		GaroonID: StringOrNumber(user.GaroonID),
		Name:     user.Name,
		Question: question,
		Answer:   ev.MessageItem.Text,
	}
	if ev.IsPositive {
		rec.IsPositive = 1
	} else {
		rec.Categories = strings.Join(ev.Categories, ", ")
		rec.Text = ev.Text
	}
	return rec, true
}
