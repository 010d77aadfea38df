package merge

import (
	"strings"
	"testing"
)

func FuzzParse(f *testing.F) {
	f.Add("plain text\n")
	f.Add("<<<<<<< a\nL\n=======\nR\n>>>>>>> b\n")
	f.Add("<<<<<<< a\n<<<<<<< b\nx\n=======\ny\n>>>>>>> b\n=======\nz\n>>>>>>> a\n")
	f.Add("<<<<<<< a\nL\n||||||| base\nB\n=======\nR\n>>>>>>> b\n")
	f.Add("<<<<<<< a\n>>>>>>> b\n=======\n")
	f.Add("=======\n>>>>>>>\n<<<<<<< \n")

	f.Fuzz(func(t *testing.T, text string) {
		got := Parse(text)
		if len(got) == 0 {
			t.Fatalf("Parse(%q) returned no candidates", text)
		}
		if len(got) > MaxCandidates {
			t.Fatalf("Parse returned %d candidates, limit is %d", len(got), MaxCandidates)
		}
		if !IsConflicted(text) && (len(got) != 1 || got[0] != text) {
			t.Fatalf("unconflicted text changed: %q -> %q", text, got)
		}
		for _, c := range got {
			if len(c) > len(text) {
				t.Fatalf("candidate %q longer than input %q", c, text)
			}
		}
		again := Parse(text)
		if strings.Join(again, "\x00") != strings.Join(got, "\x00") {
			t.Fatalf("Parse is not deterministic for %q", text)
		}
	})
}
