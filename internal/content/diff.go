package content

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineOp classifies a line of a document diff.
type LineOp int

const (
	LineEqual LineOp = iota
	LineInsert
	LineDelete
)

// DiffLine is one line of a pretty-printed document diff.
type DiffLine struct {
	Op   LineOp
	Text string
}

// DiffLines compares the pretty forms of a and b line by line.
func DiffLines(a, b Value) []DiffLine {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(string(a.Pretty())+"\n", string(b.Pretty())+"\n")
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var out []DiffLine
	for _, d := range diffs {
		op := LineEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = LineInsert
		case diffmatchpatch.DiffDelete:
			op = LineDelete
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out = append(out, DiffLine{Op: op, Text: strings.TrimSuffix(line, "\n")})
		}
	}
	return out
}

// Unified renders a compact unified-style diff with context lines around each
// change. It returns "" when the documents render identically.
func Unified(a, b Value, from, to string, context int) string {
	lines := DiffLines(a, b)

	changed := false
	for _, l := range lines {
		if l.Op != LineEqual {
			changed = true
			break
		}
	}
	if !changed {
		return ""
	}

	keep := make([]bool, len(lines))
	for i, l := range lines {
		if l.Op == LineEqual {
			continue
		}
		for j := max(0, i-context); j <= min(len(lines)-1, i+context); j++ {
			keep[j] = true
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- %s\n+++ %s\n", from, to)
	gap := false
	for i, l := range lines {
		if !keep[i] {
			gap = true
			continue
		}
		if gap || i == 0 {
			sb.WriteString("@@\n")
			gap = false
		}
		switch l.Op {
		case LineInsert:
			sb.WriteString("+")
		case LineDelete:
			sb.WriteString("-")
		default:
			sb.WriteString(" ")
		}
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ChangedPaths lists the deepest paths where a and b differ. A path whose
// kind changed, or which exists on one side only, is reported as a whole.
func ChangedPaths(a, b Value) []Path {
	var out []Path
	collectChanges(Root, a, b, &out)
	return out
}

func collectChanges(at Path, a, b Value, out *[]Path) {
	if a.kind != b.kind {
		*out = append(*out, at)
		return
	}
	switch a.kind {
	case Array:
		n := max(len(a.items), len(b.items))
		for i := 0; i < n; i++ {
			ai, aok := a.Item(i)
			bi, bok := b.Item(i)
			if !aok || !bok {
				*out = append(*out, at.Child(Index(i)))
				continue
			}
			collectChanges(at.Child(Index(i)), ai, bi, out)
		}
	case Object:
		seen := make(map[string]bool, len(a.members))
		for _, m := range a.members {
			seen[m.Key] = true
			other, ok := b.Get(m.Key)
			if !ok {
				*out = append(*out, at.Child(Key(m.Key)))
				continue
			}
			collectChanges(at.Child(Key(m.Key)), m.Value, other, out)
		}
		for _, m := range b.members {
			if !seen[m.Key] {
				*out = append(*out, at.Child(Key(m.Key)))
			}
		}
	default:
		if !Equal(a, b) {
			*out = append(*out, at)
		}
	}
}
