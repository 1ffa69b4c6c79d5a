// Package parser turns template source into segment trees and rebuilds
// segment trees from trace metadata.
//
// Template syntax:
//
//	$Identifier$         placeholder, replaced wholesale by assigned content
//	-{ ... }-            free-edit region; delimiters are never rendered
//	-{ $Identifier$ ...}- free-edit region with a persistent, explicit id
//
// Scanning is a single left-to-right pass. Text inside a free-edit region is
// never rescanned, so a region whose content contains "-{" is taken
// literally and the scan always terminates. A "}-" outside a region is
// malformed, which also rejects nested regions.
package parser

import (
	"fmt"
	"strings"

	caeerrors "github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/errors"
	"github.com/rwth-acis/CAE-Code-Generation-Service-sub001/internal/segment"
)

const (
	openFreeEdit  = "-{"
	closeFreeEdit = "}-"

	// NameProtected is the local name of literal text between tokens.
	NameProtected = "protected"
	// NameUnprotected is the local name of free-edit regions without an explicit id.
	NameUnprotected = "unprotected"
)

// Parse splits source into the children of a new composite with id
// templateID. Child ids are prefixed with templateID and segment.Separator.
func Parse(templateID, source string) (*segment.CompositeSegment, error) {
	p := &parseState{
		templateID: templateID,
		source:     source,
		counts:     make(map[string]int),
		explicit:   make(map[string]bool),
		root:       segment.NewComposite(templateID),
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.root, nil
}

// parseState is scoped to one Parse call; the id counters never outlive it.
type parseState struct {
	templateID string
	source     string
	counts     map[string]int
	explicit   map[string]bool
	root       *segment.CompositeSegment
}

func (p *parseState) run() error {
	src := p.source
	literalStart := 0
	pos := 0
	for pos < len(src) {
		next := strings.IndexAny(src[pos:], "-$}")
		if next < 0 {
			break
		}
		pos += next

		switch src[pos] {
		case '}':
			if strings.HasPrefix(src[pos:], closeFreeEdit) {
				return caeerrors.MalformedTemplate(p.templateID, pos, "free-edit close without open")
			}
			pos++

		case '-':
			if !strings.HasPrefix(src[pos:], openFreeEdit) {
				pos++
				continue
			}
			innerStart := pos + len(openFreeEdit)
			end := strings.Index(src[innerStart:], closeFreeEdit)
			if end < 0 {
				return caeerrors.MalformedTemplate(p.templateID, pos, "unterminated free-edit block")
			}
			p.literal(src[literalStart:pos])
			if err := p.freeEdit(src[innerStart:innerStart+end], innerStart); err != nil {
				return err
			}
			pos = innerStart + end + len(closeFreeEdit)
			literalStart = pos

		case '$':
			n, unterminated := placeholderAt(src, pos)
			if unterminated {
				return caeerrors.MalformedTemplate(p.templateID, pos, "unterminated placeholder at end of template")
			}
			if n == 0 {
				pos++
				continue
			}
			p.literal(src[literalStart:pos])
			if err := p.placeholder(src[pos:pos+n], pos); err != nil {
				return err
			}
			pos += n
			literalStart = pos
		}
	}
	p.literal(src[literalStart:])
	return nil
}

func (p *parseState) literal(text string) {
	if text == "" {
		return
	}
	id := p.indexedID(NameProtected)
	p.root.Add(NameProtected, segment.NewProtected(id, text))
}

func (p *parseState) placeholder(token string, offset int) error {
	if p.explicit[token] {
		return caeerrors.MalformedTemplate(p.templateID, offset,
			fmt.Sprintf("placeholder %s reuses a free-edit id", token))
	}
	p.root.Add(token, segment.NewProtected(p.namedID(token), token))
	return nil
}

// freeEdit emits an unprotected leaf for the text between the delimiters. A
// leading $Identifier$ token becomes the region's id and is not rendered.
func (p *parseState) freeEdit(inner string, offset int) error {
	trimmed := strings.TrimLeft(inner, " \t\r\n")
	if n, _ := placeholderAt(trimmed, 0); n > 0 {
		token := trimmed[:n]
		if p.counts[token] > 0 {
			return caeerrors.MalformedTemplate(p.templateID, offset,
				fmt.Sprintf("free-edit id %s is not unique in template", token))
		}
		p.explicit[token] = true
		p.root.Add(token, segment.NewUnprotected(p.namedID(token), trimmed[n:], true))
		return nil
	}
	id := p.indexedID(NameUnprotected)
	p.root.Add(NameUnprotected, segment.NewUnprotected(id, inner, false))
	return nil
}

// namedID returns templateID:name for the first occurrence of name and
// templateID:name[n] for the n-th repeat.
func (p *parseState) namedID(name string) string {
	n := p.counts[name]
	p.counts[name] = n + 1
	if n == 0 {
		return segment.ChildID(p.templateID, name)
	}
	return segment.ChildID(p.templateID, fmt.Sprintf("%s[%d]", name, n))
}

// indexedID always appends the occurrence counter, starting at zero.
func (p *parseState) indexedID(name string) string {
	n := p.counts[name]
	p.counts[name] = n + 1
	return segment.ChildID(p.templateID, fmt.Sprintf("%s[%d]", name, n))
}

// placeholderAt reports the length of the $Identifier$ token starting at
// pos, or 0 when there is none. unterminated is set when an identifier runs
// to the end of input without its closing '$'.
func placeholderAt(src string, pos int) (n int, unterminated bool) {
	if pos >= len(src) || src[pos] != '$' {
		return 0, false
	}
	i := pos + 1
	if i >= len(src) || !isIdentStart(src[i]) {
		return 0, false
	}
	i++
	for i < len(src) && isIdentPart(src[i]) {
		i++
	}
	if i >= len(src) {
		return 0, true
	}
	if src[i] != '$' {
		return 0, false
	}
	return i + 1 - pos, false
}

// IsPlaceholder reports whether s is exactly one $Identifier$ token.
func IsPlaceholder(s string) bool {
	n, _ := placeholderAt(s, 0)
	return n > 0 && n == len(s)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
