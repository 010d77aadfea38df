// Package merge splits chunk text containing git conflict markers into every
// complete candidate text.
//
// A conflict region is
//
//	<<<<<<< label
//	side A
//	||||||| label      (optional, diff3 common ancestor; dropped)
//	=======
//	side B
//	>>>>>>> label
//
// and either side may itself contain conflict regions. Parse flattens the
// resulting tree depth-first, side A before side B.
//
// Regions that follow one another multiply: n two-way regions give 2^n
// candidates. Parse never returns more than MaxCandidates. Once expanding a
// region together with the text after it would pass the limit, the regions
// after it are kept as literal text, markers included, so the user resolves
// the earlier regions first and scans again.
package merge

import (
	"regexp"
	"strings"
)

// Marker literals.
const (
	BeginMarker = "<<<<<<<"
	BaseMarker  = "|||||||"
	MidMarker   = "======="
	EndMarker   = ">>>>>>>"
)

// MaxCandidates bounds the number of candidates Parse returns.
const MaxCandidates = 1024

// beginRegex matches a BEGIN marker line carrying a label.
var beginRegex = regexp.MustCompile(`(?m)^<<<<<<<[ \t]+\S`)

// IsConflicted reports whether text contains a labelled BEGIN marker at the
// start of a line. It does not check that the region is well formed.
func IsConflicted(text string) bool {
	return beginRegex.MatchString(text)
}

// Node is one level of the conflict tree: a Leaf or a *Conflict.
type Node interface {
	Candidates() []string
	// Text returns the source text of the node, markers included.
	Text() string
}

// Leaf is unconflicted text.
type Leaf string

// Candidates returns the text itself.
func (l Leaf) Candidates() []string {
	return []string{string(l)}
}

func (l Leaf) Text() string { return string(l) }

// Conflict is one marker region with the text around it. Before never
// contains a well-formed region; After may.
type Conflict struct {
	Before string
	SideA  Node
	SideB  Node
	After  Node

	text string
}

// Candidates expands the region: every side-A candidate, then every side-B
// candidate, each combined with every candidate of the text after it. When
// that would give more than MaxCandidates, After is kept as literal text.
func (c *Conflict) Candidates() []string {
	sides := append(c.SideA.Candidates(), c.SideB.Candidates()...)
	if len(sides) > MaxCandidates {
		sides = sides[:MaxCandidates]
	}
	after := c.After.Candidates()
	if len(sides)*len(after) > MaxCandidates {
		after = []string{c.After.Text()}
	}
	out := make([]string, 0, len(sides)*len(after))
	for _, s := range sides {
		for _, a := range after {
			out = append(out, c.Before+s+a)
		}
	}
	return out
}

func (c *Conflict) Text() string { return c.text }

// Parse returns the candidate texts of text in a stable depth-first order.
// Text without a well-formed conflict region yields itself unchanged.
func Parse(text string) []string {
	return Tree(text).Candidates()
}

// Tree builds the conflict tree of text. Malformed regions (a BEGIN with no
// matching MID or END) are kept as literal text.
func Tree(text string) Node {
	return build(splitLines(text))
}

func build(lines []string) Node {
	for b := range lines {
		if !isBegin(lines[b]) {
			continue
		}
		mid, base, end := match(lines, b)
		if end < 0 {
			continue
		}
		sideEnd := mid
		if base >= 0 {
			sideEnd = base
		}
		return &Conflict{
			text:   strings.Join(lines, ""),
			Before: strings.Join(lines[:b], ""),
			SideA:  build(lines[b+1 : sideEnd]),
			SideB:  build(lines[mid+1 : end]),
			After:  build(lines[end+1:]),
		}
	}
	return Leaf(strings.Join(lines, ""))
}

// match finds the MID, optional BASE and END lines belonging to the BEGIN at
// index begin, counting nested regions so an inner END is never taken for
// the outer one. end is -1 when the region is malformed.
func match(lines []string, begin int) (mid, base, end int) {
	mid, base = -1, -1
	depth := 0
	for j := begin + 1; j < len(lines); j++ {
		line := lines[j]
		switch {
		case isBegin(line):
			depth++
		case isEnd(line):
			if depth > 0 {
				depth--
				continue
			}
			if mid < 0 {
				return -1, -1, -1
			}
			return mid, base, j
		case depth == 0 && mid < 0 && isMid(line):
			mid = j
		case depth == 0 && mid < 0 && base < 0 && isBase(line):
			base = j
		}
	}
	return -1, -1, -1
}

func isBegin(line string) bool {
	return beginRegex.MatchString(line)
}

func isEnd(line string) bool {
	return hasOptionalLabel(line, EndMarker)
}

func isBase(line string) bool {
	return hasOptionalLabel(line, BaseMarker)
}

func isMid(line string) bool {
	return strings.TrimRight(line, " \t\r\n") == MidMarker
}

// hasOptionalLabel reports whether line is marker followed by end of line or
// by whitespace and an optional label.
func hasOptionalLabel(line, marker string) bool {
	if !strings.HasPrefix(line, marker) {
		return false
	}
	rest := strings.TrimRight(line[len(marker):], "\r\n")
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// splitLines splits text after each '\n', keeping the terminators so that
// joining the lines restores the text byte for byte.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
