package evaluate

import "testing"

func TestKeywordCheck(t *testing.T) {
	tests := []struct {
		name     string
		answer   string
		keywords [KeywordSlots]string
		want     string
	}{
		{"all found", "申請はポータルから行い、上長の承認が必要です", [KeywordSlots]string{"ポータル", "承認", "上長"}, "〇,〇,〇"},
		{"none set", "anything", [KeywordSlots]string{}, "-,-,-"},
		{"mixed", "abc", [KeywordSlots]string{"a", "", "z"}, "〇,-,×"},
		{"empty answer", "", [KeywordSlots]string{"a", "b", ""}, "×,×,-"},
		{"found only after markdown is stripped", "**必須**単語を含む", [KeywordSlots]string{"必須単語", "", ""}, "〇,-,-"},
		{"link text", "詳細は[社内規程](https://example.com/rules)を参照", [KeywordSlots]string{"社内規程を参照", "", ""}, "〇,-,-"},
		{"case sensitive", "Portal", [KeywordSlots]string{"portal", "", ""}, "×,-,-"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := KeywordCheck(tc.answer, tc.keywords); got != tc.want {
				t.Errorf("KeywordCheck(%q, %q) = %q, want %q", tc.answer, tc.keywords, got, tc.want)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain words", "plain words"},
		{"**重要**な点", "重要な点"},
		{"# Title\n\n- one\n- two\n", "Title one two"},
		{"see [docs](http://x.test) now", "see docs now"},
		{"line<br>next", "line next"},
		{"`code`  and   spaces", "code and spaces"},
		{"<script>alert(1)</script>text", "text"},
	}
	for _, tc := range tests {
		if got := PlainText(tc.in); got != tc.want {
			t.Errorf("PlainText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
