//go:build property

package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/segment"
)

// piece renders one generated template fragment.
type piece struct {
	kind int
	text string
}

func (p piece) String() string {
	switch p.kind {
	case 0:
		return p.text
	case 1:
		return "$" + p.text + "$"
	default:
		return "-{" + p.text + "}-"
	}
}

func genPiece() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 2),
		gen.Identifier(),
		gen.OneConstOf("", " ", "-{", "\n", "x-y", "{"),
	).Map(func(values []interface{}) piece {
		kind := values[0].(int)
		ident := values[1].(string)
		noise := values[2].(string)
		switch kind {
		case 0:
			return piece{kind: 0, text: strings.ReplaceAll(ident, "$", "") + noise}
		case 1:
			return piece{kind: 1, text: "P" + ident}
		default:
			return piece{kind: 2, text: noise + ident + noise}
		}
	})
}

func TestParserProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("rendered text survives its own trace metadata", prop.ForAll(
		func(pieces []piece) bool {
			var b strings.Builder
			for _, p := range pieces {
				b.WriteString(p.String())
			}
			root, err := Parse("prop", b.String())
			if err != nil {
				// only an unterminated trailing placeholder or block is rejected
				return true
			}
			rendered := root.Content()
			rebuilt, err := Reconstruct([]segment.Description{root.Describe()}, rendered)
			return err == nil && rebuilt[0].Content() == rendered && rebuilt[0].Len() == root.Len()
		},
		gen.SliceOf(genPiece()),
	))

	properties.Property("segment ids are unique within a template", prop.ForAll(
		func(n int) bool {
			var b strings.Builder
			for i := 0; i < n; i++ {
				fmt.Fprintf(&b, "-{ block %d }- $P%d$ $P%d$", i, i%3, i%3)
			}
			root, err := Parse("prop", b.String())
			if err != nil {
				return false
			}
			seen := make(map[string]bool)
			for _, s := range root.Children() {
				if seen[s.ID()] {
					return false
				}
				seen[s.ID()] = true
			}
			return true
		},
		gen.IntRange(0, 30),
	))

	properties.TestingRun(t)
}
