package csvtext

import (
	"strings"
	"testing"
)

func benchmarkText() string {
	row := "\"質問です、改行\nあり\",\"answer with \"\"quotes\"\"\",Success\r\n"
	return "\uFEFFQuestion,Answer,Status\r\n" + strings.Repeat(row, 500)
}

func BenchmarkParse(b *testing.B) {
	text := benchmarkText()
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))

	for i := 0; i < b.N; i++ {
		if doc := Parse(text); len(doc) != 501 {
			b.Fatalf("expected 501 rows, got %d", len(doc))
		}
	}
}

func BenchmarkSerialize(b *testing.B) {
	doc := Parse(benchmarkText())
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = Serialize(doc)
	}
}
