package evaluate

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/dgallion1/chatrelay/internal/csvtext"
)

func TestQuestionsFromDocument(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Question
	}{
		{
			name: "english header with bom",
			text: "\uFEFFid,Question\r\n1,  What is X?  \r\n2,\"Multi\nline\"\r\n",
			want: []Question{{Text: "What is X?"}, {Text: "Multi\nline"}},
		},
		{
			name: "header order of preference",
			text: "input,question\nfrom input,from question\n",
			want: []Question{{Text: "from question"}},
		},
		{
			name: "japanese sheet layout",
			text: "質問,模範解答,必須単語1,必須単語2,必須単語3\n休暇の申請方法は？,ポータルから申請,ポータル,,承認\n",
			want: []Question{{
				Text:        "休暇の申請方法は？",
				ModelAnswer: "ポータルから申請",
				Keywords:    [KeywordSlots]string{"ポータル", "", "承認"},
			}},
		},
		{
			name: "english keyword columns",
			text: "Question,ModelAnswer,Keyword1,Keyword2,Keyword3\nq,m,a,b,c\n",
			want: []Question{{Text: "q", ModelAnswer: "m", Keywords: [KeywordSlots]string{"a", "b", "c"}}},
		},
		{
			name: "no known header uses first column",
			text: "prompt,notes\nhello,ignored\n",
			want: []Question{{Text: "hello"}},
		},
		{
			name: "blank rows dropped blank questions kept",
			text: "Question,Keyword1\n\n,kw\n,\nnext,\n",
			want: []Question{{Keywords: [KeywordSlots]string{"kw"}}, {Text: "next"}},
		},
		{
			name: "short rows read as empty",
			text: "Question,ModelAnswer\nonly question\n",
			want: []Question{{Text: "only question"}},
		},
		{
			name: "header only",
			text: "Question\n",
			want: []Question{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := QuestionsFromDocument(csvtext.Parse(tc.text))
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("QuestionsFromDocument mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQuestionsFromDocument_Empty(t *testing.T) {
	assert.Nil(t, QuestionsFromDocument(nil))
}

func TestResultsFromDocument(t *testing.T) {
	doc := csvtext.Parse("\uFEFF\"Question\",\"Answer\",\"Status\"\r\n" +
		"\"q1\",\"a, with comma\",\"Success\"\r\n" +
		"\"short\",\"row\"\r\n" +
		"\"\",\"\",\"Skipped\"\r\n" +
		"\"q3\",\"\",\"Error: boom\",\"extra\"\r\n")

	got := ResultsFromDocument(doc)
	want := []Result{
		{Question: Question{Text: "q1"}, Answer: "a, with comma", Status: StatusSuccess},
		{Status: StatusSkipped},
		{Question: Question{Text: "q3"}, Status: "Error: boom"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ResultsFromDocument mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, ResultsFromDocument(nil))
}

func TestQuestionsFromTexts(t *testing.T) {
	got := QuestionsFromTexts([]string{"a", " "})
	assert.Equal(t, []Question{{Text: "a"}, {Text: " "}}, got)
}
