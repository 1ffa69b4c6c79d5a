// Package guidance detects rule violations in the free-edit regions of
// generated files and maps every match back to the segments it touches.
package guidance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	caeerrors "github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/errors"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/segment"
)

// Rule flags text in the free-edit regions of one element type. Group is
// the capture group holding the offending text; 0 is the whole match.
type Rule struct {
	Type    string `json:"type" yaml:"type"`
	Regex   string `json:"regex" yaml:"regex"`
	Group   int    `json:"group" yaml:"group"`
	Message string `json:"message" yaml:"message"`
}

// RuleFile is the document form of a rule list.
type RuleFile struct {
	Guidances []Rule `json:"guidances" yaml:"guidances"`
}

// Location is a byte range local to one segment.
type Location struct {
	Start     int    `json:"start"`
	End       int    `json:"end"`
	SegmentID string `json:"segmentId"`
}

// Feedback is one rule match.
type Feedback struct {
	Segments []Location `json:"segments"`
	Message  string     `json:"message"`
}

type compiledRule struct {
	Rule
	re *regexp.Regexp
}

// RuleSet is a compiled rule list grouped by element type.
type RuleSet struct {
	byType map[string][]compiledRule
	size   int
}

// ParseRules decodes a rule document. JSON documents start with '{';
// anything else is read as YAML.
func ParseRules(data []byte) ([]Rule, error) {
	var rf RuleFile
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("{")) {
		if err := json.Unmarshal(trimmed, &rf); err != nil {
			return nil, caeerrors.NewConfigError(caeerrors.ErrCodeRuleInvalid,
				fmt.Sprintf("cannot decode rule file: %v", err))
		}
		return rf.Guidances, nil
	}
	if err := yaml.Unmarshal(trimmed, &rf); err != nil {
		return nil, caeerrors.NewConfigError(caeerrors.ErrCodeRuleInvalid,
			fmt.Sprintf("cannot decode rule file: %v", err))
	}
	return rf.Guidances, nil
}

// LoadRules parses and compiles a rule document.
func LoadRules(data []byte) (*RuleSet, error) {
	rules, err := ParseRules(data)
	if err != nil {
		return nil, err
	}
	return Compile(rules)
}

// Compile compiles every rule. The first invalid rule fails the whole set.
// Patterns match across newlines.
func Compile(rules []Rule) (*RuleSet, error) {
	rs := &RuleSet{byType: make(map[string][]compiledRule)}
	for _, r := range rules {
		if strings.TrimSpace(r.Type) == "" {
			return nil, caeerrors.InvalidRule(r.Type, r.Regex, "element type is required", nil)
		}
		re, err := regexp.Compile("(?s)" + r.Regex)
		if err != nil {
			return nil, caeerrors.InvalidRule(r.Type, r.Regex, "regex does not compile", err)
		}
		if r.Group < 0 || r.Group > re.NumSubexp() {
			return nil, caeerrors.InvalidRule(r.Type, r.Regex,
				fmt.Sprintf("group %d out of range, pattern has %d groups", r.Group, re.NumSubexp()), nil)
		}
		rs.byType[r.Type] = append(rs.byType[r.Type], compiledRule{Rule: r, re: re})
		rs.size++
	}
	return rs, nil
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int { return rs.size }

// Types returns the element types that have rules, sorted.
func (rs *RuleSet) Types() []string {
	types := make([]string, 0, len(rs.byType))
	for t := range rs.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// CreateFeedback scans the concatenated content of segments with every rule
// for elementType. Each match yields one Feedback whose locations clip the
// match to the segments it overlaps. Empty and non-participating groups are
// skipped.
func (rs *RuleSet) CreateFeedback(elementType string, segments []*segment.ContentSegment) []Feedback {
	rules := rs.byType[elementType]
	if len(rules) == 0 || len(segments) == 0 {
		return nil
	}

	var buf strings.Builder
	starts := make([]int, len(segments))
	for i, s := range segments {
		starts[i] = buf.Len()
		buf.WriteString(s.Content())
	}
	text := buf.String()

	var feedback []Feedback
	for _, r := range rules {
		for _, m := range r.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2*r.Group], m[2*r.Group+1]
			if start < 0 || start == end {
				continue
			}
			feedback = append(feedback, Feedback{
				Segments: locate(segments, starts, start, end),
				Message:  r.Message,
			})
		}
	}
	return feedback
}

func locate(segments []*segment.ContentSegment, starts []int, start, end int) []Location {
	var locations []Location
	for i, s := range segments {
		segStart := starts[i]
		segEnd := segStart + s.Len()
		if segStart == segEnd || segStart >= end || segEnd <= start {
			continue
		}
		locations = append(locations, Location{
			Start:     max(start, segStart) - segStart,
			End:       min(end, segEnd) - segStart,
			SegmentID: s.ID(),
		})
	}
	return locations
}
