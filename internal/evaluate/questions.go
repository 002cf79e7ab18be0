// Package evaluate runs batches of questions against an Orchestrate agent
// and scores the answers against expected keywords.
package evaluate

import (
	"strings"

	"github.com/dgallion1/chatrelay/internal/csvtext"
)

// KeywordSlots is the number of required-keyword columns in a question set.
const KeywordSlots = 3

// Question is one row of a question set.
type Question struct {
	Text        string
	ModelAnswer string
	Keywords    [KeywordSlots]string
}

var (
	questionHeaders    = []string{"Question", "question", "質問", "input", "Input"}
	modelAnswerHeaders = []string{"ModelAnswer", "Model Answer", "模範解答"}
	keywordHeaders     = [KeywordSlots][]string{
		{"Keyword1", "必須単語1"},
		{"Keyword2", "必須単語2"},
		{"Keyword3", "必須単語3"},
	}
)

// QuestionsFromDocument reads a question set whose first row is a header.
// The question column is chosen by name and falls back to the first column.
// Model answer and keyword columns are optional. Rows that are entirely
// blank are dropped; rows with a blank question are kept so the evaluator
// can report them as skipped.
func QuestionsFromDocument(doc csvtext.Document) []Question {
	if len(doc) == 0 {
		return nil
	}
	header := doc[0]

	qCol := columnIndex(header, questionHeaders)
	if qCol < 0 {
		qCol = 0
	}
	maCol := columnIndex(header, modelAnswerHeaders)
	var kwCols [KeywordSlots]int
	for i, names := range keywordHeaders {
		kwCols[i] = columnIndex(header, names)
	}

	out := make([]Question, 0, len(doc)-1)
	for _, rec := range doc[1:] {
		if blankRecord(rec) {
			continue
		}
		q := Question{
			Text:        strings.TrimSpace(rec.Field(qCol)),
			ModelAnswer: strings.TrimSpace(rec.Field(maCol)),
		}
		for i, col := range kwCols {
			q.Keywords[i] = strings.TrimSpace(rec.Field(col))
		}
		out = append(out, q)
	}
	return out
}

// QuestionsFromTexts wraps bare question strings.
func QuestionsFromTexts(texts []string) []Question {
	out := make([]Question, len(texts))
	for i, t := range texts {
		out[i] = Question{Text: t}
	}
	return out
}

// ResultsFromDocument reads a Question,Answer,Status document as returned by
// the relay. The header row and rows with fewer than three fields are
// skipped.
func ResultsFromDocument(doc csvtext.Document) []Result {
	if len(doc) == 0 {
		return nil
	}
	out := make([]Result, 0, len(doc)-1)
	for _, rec := range doc[1:] {
		if len(rec) < 3 {
			continue
		}
		out = append(out, Result{
			Question: Question{Text: rec[0]},
			Answer:   rec[1],
			Status:   rec[2],
		})
	}
	return out
}

// columnIndex returns the position of the first name found in header, in
// the order names are listed, or -1.
func columnIndex(header csvtext.Record, names []string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.TrimSpace(h) == name {
				return i
			}
		}
	}
	return -1
}

func blankRecord(rec csvtext.Record) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
