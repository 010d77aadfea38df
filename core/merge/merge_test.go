package merge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(data)
}

func TestIsConflicted(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"plain text", "\\v 1 In the beginning.\n", false},
		{"labelled begin", "a\n<<<<<<< HEAD\nb\n=======\nc\n>>>>>>> x\n", true},
		{"begin on first line", "<<<<<<< HEAD\n", true},
		{"tab before label", "<<<<<<<\tours\n", true},
		{"unterminated still counts", "<<<<<<< HEAD\nno end\n", true},
		{"inline marker", "\\v 1 text <<<<<<< HEAD\n", false},
		{"no label", "<<<<<<<\n", false},
		{"eight brackets", "<<<<<<<< HEAD\n", false},
		{"indented", "  <<<<<<< HEAD\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConflicted(tt.text))
		})
	}
}

func TestParse_NoConflict(t *testing.T) {
	text := "\\v 1 In the beginning.\n\\v 2 Text without markers"
	assert.Equal(t, []string{text}, Parse(text))
	assert.Equal(t, []string{""}, Parse(""))
}

func TestParse_TwoWay(t *testing.T) {
	got := Parse(readFixture(t, "two_way.txt"))
	require.Len(t, got, 2)

	before := "\\v 1 The beginning of the gospel of Jesus Christ, the Son of God.\n"
	after := "\\v 3 \"The voice of one calling out in the wilderness.\"\n"
	assert.Equal(t, before+"\\v 2 As it is written in Isaiah the prophet,\n"+after, got[0])
	assert.Equal(t, before+"\\v 2 Just as it was written by Isaiah the prophet,\n"+after, got[1])
}

func TestParse_NestedOnce(t *testing.T) {
	got := Parse(readFixture(t, "nested_once.txt"))
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "and preaching a baptism of repentance.\n")
	assert.Contains(t, got[1], "for the forgiveness of sins.\n")
	assert.Contains(t, got[2], "proclaiming repentance.\n")
	for _, c := range got {
		assert.True(t, strings.HasPrefix(c, "\\v 4 John came"))
		assert.True(t, strings.HasSuffix(c, "\\v 5 The whole country of Judea went out to him.\n"))
	}
}

func TestParse_NestedTwice(t *testing.T) {
	got := Parse(readFixture(t, "nested_twice.txt"))
	require.Len(t, got, 4)
	prefix := "\\v 9 It came about in those days that Jesus came from Nazareth\n"
	assert.Equal(t, prefix+"of Galilee,\n", got[0])
	assert.Equal(t, prefix+"in Galilee,\n", got[1])
	assert.Equal(t, prefix+"from Galilee,\n", got[2])
	assert.Equal(t, prefix+"of Galilee, and he was baptized by John in the Jordan.\n", got[3])
}

func TestParse_FiveWayNested(t *testing.T) {
	got := Parse(readFixture(t, "five_way_nested.txt"))
	require.Len(t, got, 5)
	for i, word := range []string{"five", "four", "three", "two", "one"} {
		assert.Contains(t, got[i], "forty days ("+word+").\n")
		assert.False(t, IsConflicted(got[i]))
		assert.True(t, strings.HasSuffix(got[i], "\\s5\n"))
	}
}

func TestParse_Diff3BaseIsDropped(t *testing.T) {
	got := Parse(readFixture(t, "diff3.txt"))
	require.Len(t, got, 2)
	for _, c := range got {
		assert.NotContains(t, c, "Jesus went into Galilee")
		assert.NotContains(t, c, BaseMarker)
	}
	assert.Contains(t, got[0], "Jesus came into Galilee\n")
	assert.Contains(t, got[1], "Jesus entered Galilee\n")
}

func TestParse_NestedInSideB(t *testing.T) {
	text := "x\n<<<<<<< a\nA\n=======\n<<<<<<< b\nB1\n=======\nB2\n>>>>>>> b\n>>>>>>> a\ny\n"
	assert.Equal(t, []string{"x\nA\ny\n", "x\nB1\ny\n", "x\nB2\ny\n"}, Parse(text))
}

func TestParse_NestedInBothSides(t *testing.T) {
	text := "<<<<<<< a\n<<<<<<< b\nA1\n=======\nA2\n>>>>>>> b\n=======\n<<<<<<< c\nB1\n=======\nB2\n>>>>>>> c\n>>>>>>> a\n"
	assert.Equal(t, []string{"A1\n", "A2\n", "B1\n", "B2\n"}, Parse(text))
}

func TestParse_SequentialRegions(t *testing.T) {
	text := "<<<<<<< a\n1\n=======\n2\n>>>>>>> a\nmid\n<<<<<<< b\n3\n=======\n4\n>>>>>>> b\n"
	assert.Equal(t, []string{
		"1\nmid\n3\n",
		"1\nmid\n4\n",
		"2\nmid\n3\n",
		"2\nmid\n4\n",
	}, Parse(text))
}

func sequentialRegions(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "<<<<<<< HEAD\nL%d\n=======\nR%d\n>>>>>>> theirs\n", i, i)
	}
	return sb.String()
}

func TestParse_ManySequentialRegionsAreCapped(t *testing.T) {
	text := sequentialRegions(20)
	got := Parse(text)
	require.Len(t, got, MaxCandidates)

	var first strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&first, "L%d\n", i)
	}
	literal := text[strings.Index(text, "<<<<<<< HEAD\nL10\n"):]
	assert.Equal(t, first.String()+literal, got[0])
	assert.True(t, strings.HasPrefix(got[len(got)-1], "R0\nR1\n"))
	for _, c := range got {
		assert.True(t, strings.HasSuffix(c, literal))
	}

	assert.LessOrEqual(t, len(Parse(sequentialRegions(60))), MaxCandidates)
}

func TestParse_EmptySides(t *testing.T) {
	text := "a\n<<<<<<< HEAD\n=======\nadded\n>>>>>>> x\nb\n"
	assert.Equal(t, []string{"a\nb\n", "a\nadded\nb\n"}, Parse(text))
}

func TestParse_CRLF(t *testing.T) {
	text := "a\r\n<<<<<<< HEAD\r\nL\r\n=======\r\nR\r\n>>>>>>> x\r\nb\r\n"
	assert.Equal(t, []string{"a\r\nL\r\nb\r\n", "a\r\nR\r\nb\r\n"}, Parse(text))
}

func TestParse_NoTrailingNewline(t *testing.T) {
	text := "<<<<<<< HEAD\nL\n=======\nR\n>>>>>>> x"
	assert.Equal(t, []string{"L\n", "R\n"}, Parse(text))
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "begin without mid or end",
			text: "a\n<<<<<<< HEAD\nb\n",
			want: []string{"a\n<<<<<<< HEAD\nb\n"},
		},
		{
			name: "begin and mid without end",
			text: "<<<<<<< HEAD\nb\n=======\nc\n",
			want: []string{"<<<<<<< HEAD\nb\n=======\nc\n"},
		},
		{
			name: "end before mid",
			text: "<<<<<<< HEAD\nb\n>>>>>>> x\nc\n",
			want: []string{"<<<<<<< HEAD\nb\n>>>>>>> x\nc\n"},
		},
		{
			name: "stray begin before a good region",
			text: "<<<<<<< stray\n=\n<<<<<<< HEAD\nL\n=======\nR\n>>>>>>> x\n",
			want: []string{"<<<<<<< stray\n=\nL\n", "<<<<<<< stray\n=\nR\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, tt.want, Parse(tt.text))
			})
		})
	}
}

func TestParse_StrayBeginDegradesGracefully(t *testing.T) {
	text := "<<<<<<< outer\n<<<<<<< stray\nA\n=======\nB\n>>>>>>> outer\n"
	got := Parse(text)
	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 2)
}

func TestParse_Idempotent(t *testing.T) {
	for _, name := range []string{"two_way.txt", "nested_once.txt", "nested_twice.txt", "five_way_nested.txt", "diff3.txt"} {
		text := readFixture(t, name)
		first := Parse(text)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Parse(text), name)
		}
	}
}

func TestTree(t *testing.T) {
	node := Tree("pre\n<<<<<<< a\nL\n=======\nR\n>>>>>>> b\npost\n")
	c, ok := node.(*Conflict)
	require.True(t, ok)
	assert.Equal(t, "pre\n", c.Before)
	assert.Equal(t, Leaf("L\n"), c.SideA)
	assert.Equal(t, Leaf("R\n"), c.SideB)
	assert.Equal(t, Leaf("post\n"), c.After)

	assert.Equal(t, Leaf("plain"), Tree("plain"))
}
