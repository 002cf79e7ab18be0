package csvtext

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func FuzzParseSerializeRoundTrip(f *testing.F) {
	seeds := []string{
		"",
		"a,b,c\n",
		"a,\"b,b\",c\n",
		"a,\"b\nc\",d\n",
		"\"unterminated\n",
		"a\"b,c\n",
		"one\r\ntwo\r\n",
		"lone\rcarriage",
		"\uFEFFq,a,s\r\n",
		",,\n\n",
	}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		if len(input) > 1<<12 {
			t.Skip()
		}

		doc := Parse(input)
		for i, row := range doc {
			if len(row) == 0 {
				t.Fatalf("row %d has no fields for input %q", i, input)
			}
		}

		again := Parse(Serialize(doc))
		if diff := cmp.Diff(doc, again, cmpopts.EquateEmpty()); diff != "" {
			t.Fatalf("round trip mismatch for input %q (-want +got):\n%s", input, diff)
		}
	})
}
