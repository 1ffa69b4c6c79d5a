package parser

import (
	"sort"
	"strings"

	caeerrors "github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/errors"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/segment"
)

// protectedRun is a stretch of adjacent protected leaves and the free-edit
// leaves directly before it.
type protectedRun struct {
	text   string
	origin int
	gap    []*segment.ContentSegment
}

// Resync adapts descs, generated against previous, to content in which
// free-edit regions were edited by hand. Protected text is located in order
// and every free-edit region receives the bytes between its protected
// neighbours. Protected text that cannot be found is a trace mismatch.
func Resync(descs []segment.Description, previous, content string) ([]segment.Description, error) {
	roots, err := Reconstruct(descs, previous)
	if err != nil {
		return nil, err
	}
	if previous == content {
		return descs, nil
	}

	var runs []protectedRun
	var pending []*segment.ContentSegment
	joined := false
	offset := 0
	for _, root := range roots {
		segment.Walk(root, func(s segment.Segment) bool {
			leaf, ok := s.(*segment.ContentSegment)
			if !ok {
				return true
			}
			defer func() { offset += leaf.Len() }()
			switch {
			case !leaf.Protected():
				pending = append(pending, leaf)
				joined = false
			case joined:
				runs[len(runs)-1].text += leaf.Content()
			default:
				runs = append(runs, protectedRun{text: leaf.Content(), origin: offset, gap: pending})
				pending = nil
				joined = true
			}
			return true
		})
	}
	tail := pending

	starts, ok := placeRuns(runs, len(tail) > 0, content, len(content)-len(previous))
	if !ok {
		return nil, caeerrors.TraceMismatch("", len(previous), len(content)).
			WithContext("reason", "protected text was changed")
	}

	end := 0
	for i, r := range runs {
		fill(r.gap, content[end:starts[i]])
		end = starts[i] + len(r.text)
	}
	fill(tail, content[end:])

	out := make([]segment.Description, 0, len(roots))
	for _, root := range roots {
		out = append(out, root.Describe())
	}
	return out, nil
}

// placeRuns finds a start offset for every run such that runs appear in
// order, runs without a gap are adjacent to their predecessor, and the last
// run ends the content unless free-edit text may follow. Candidates closest
// to a run's old offset, unshifted or shifted by the size change, are tried
// first.
func placeRuns(runs []protectedRun, openTail bool, content string, shift int) ([]int, bool) {
	starts := make([]int, len(runs))
	failed := make(map[[2]int]bool)

	var place func(i, pos int) bool
	place = func(i, pos int) bool {
		if i == len(runs) {
			return openTail || pos == len(content)
		}
		key := [2]int{i, pos}
		if failed[key] {
			return false
		}
		r := runs[i]
		var candidates []int
		if len(r.gap) == 0 {
			if strings.HasPrefix(content[pos:], r.text) {
				candidates = []int{pos}
			}
		} else {
			candidates = occurrences(content, r.text, pos, r.origin, shift)
		}
		for _, at := range candidates {
			starts[i] = at
			if place(i+1, at+len(r.text)) {
				return true
			}
		}
		failed[key] = true
		return false
	}
	return starts, place(0, 0)
}

// occurrences lists the offsets of text in content at or after pos, nearest
// to origin or origin+shift first.
func occurrences(content, text string, pos, origin, shift int) []int {
	var out []int
	if text == "" {
		for _, at := range []int{origin, origin + shift} {
			out = append(out, min(max(at, pos), len(content)))
		}
	} else {
		for from := pos; from <= len(content); {
			at := strings.Index(content[from:], text)
			if at < 0 {
				break
			}
			out = append(out, from+at)
			from += at + 1
		}
	}
	distance := func(at int) int {
		return min(abs(at-origin), abs(at-origin-shift))
	}
	sort.SliceStable(out, func(a, b int) bool { return distance(out[a]) < distance(out[b]) })
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// fill spreads text over adjacent free-edit leaves. Leading leaves keep their
// content while text still starts with it; the first leaf that differs takes
// the rest.
func fill(leaves []*segment.ContentSegment, text string) {
	for i, leaf := range leaves {
		if i < len(leaves)-1 && strings.HasPrefix(text, leaf.Content()) {
			text = text[leaf.Len():]
			continue
		}
		leaf.SetContent(text)
		text = ""
	}
}
