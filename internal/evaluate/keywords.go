package evaluate

import "strings"

const (
	markFound   = "〇"
	markMissing = "×"
	markUnset   = "-"
)

// KeywordCheck returns one mark per keyword. A keyword counts as found when
// it appears in the raw answer or in its Markdown-stripped text.
func KeywordCheck(answer string, keywords [KeywordSlots]string) string {
	var plain string
	plainDone := false

	marks := make([]string, len(keywords))
	for i, kw := range keywords {
		switch {
		case kw == "":
			marks[i] = markUnset
		case strings.Contains(answer, kw):
			marks[i] = markFound
		default:
			if !plainDone {
				plain = PlainText(answer)
				plainDone = true
			}
			if strings.Contains(plain, kw) {
				marks[i] = markFound
			} else {
				marks[i] = markMissing
			}
		}
	}
	return strings.Join(marks, ",")
}
