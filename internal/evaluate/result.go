package evaluate

import (
	"strings"

	"github.com/dgallion1/chatrelay/internal/csvtext"
)

// Result statuses. Failures use ErrorStatus.
const (
	StatusSuccess = "Success"
	StatusSkipped = "Skipped"
)

// ErrorStatus formats the status recorded for a failed question.
func ErrorStatus(err error) string {
	return "Error: " + err.Error()
}

// Result is the outcome for one question.
type Result struct {
	Question Question
	Answer   string
	Status   string
}

// Failed reports whether the question errored.
func (r Result) Failed() bool {
	return strings.HasPrefix(r.Status, "Error")
}

// KeywordCheck marks each keyword slot with 〇 (found in the answer),
// × (missing) or - (no keyword), joined with commas.
func (r Result) KeywordCheck() string {
	return KeywordCheck(r.Answer, r.Question.Keywords)
}

var (
	resultsHeader = csvtext.Record{"Question", "Answer", "Status"}
	reportHeader  = csvtext.Record{"Question", "ModelAnswer", "Answer", "Keyword1", "Keyword2", "Keyword3", "KeywordCheck", "Status"}
)

// ResultsDocument encodes results as the three-column Question,Answer,Status
// document served by the relay.
func ResultsDocument(results []Result) csvtext.Document {
	doc := make(csvtext.Document, 0, len(results)+1)
	doc = append(doc, resultsHeader)
	for _, r := range results {
		doc = append(doc, csvtext.Record{r.Question.Text, r.Answer, r.Status})
	}
	return doc
}

// ReportDocument encodes results with the model answer, keywords and the
// keyword check alongside each answer.
func ReportDocument(results []Result) csvtext.Document {
	doc := make(csvtext.Document, 0, len(results)+1)
	doc = append(doc, reportHeader)
	for _, r := range results {
		q := r.Question
		doc = append(doc, csvtext.Record{
			q.Text,
			q.ModelAnswer,
			r.Answer,
			q.Keywords[0],
			q.Keywords[1],
			q.Keywords[2],
			r.KeywordCheck(),
			r.Status,
		})
	}
	return doc
}

// Summary counts results by outcome.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Status == StatusSuccess:
			s.Succeeded++
		case r.Status == StatusSkipped:
			s.Skipped++
		case r.Failed():
			s.Failed++
		}
	}
	return s
}
