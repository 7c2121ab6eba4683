// Package workflow handles parsing, representation and validation of recorded
// replay workflow documents.
package workflow

import "fmt"

// SelectorKind identifies the matching strategy of one selector link.
type SelectorKind string

// Selector kind constants. The set is extensible: resolvers treat unknown
// kinds as non-matching rather than erroring.
const (
	SelectorResourceID  SelectorKind = "resource_id"
	SelectorContentDesc SelectorKind = "content_description"
	SelectorText        SelectorKind = "text"
	SelectorBounds      SelectorKind = "bounds"
)

// MaxChainLength bounds a selector chain, primary link included. The model is
// nominally unbounded, recorded chains never legitimately exceed this.
const MaxChainLength = 5

// ElementSelector describes how to locate one UI element: a matching strategy
// plus an optional fallback tried when this link misses. Pure data; matching
// lives in pkg/resolver.
type ElementSelector struct {
	Kind       SelectorKind     `json:"type"                 yaml:"type"                 validate:"required"`
	Value      string           `json:"value"                yaml:"value"                validate:"required"`
	Confidence float64          `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Fallback   *ElementSelector `json:"fallback,omitempty"   yaml:"fallback,omitempty"`
}

// Describe returns a human-readable description like id="login_button".
func (s *ElementSelector) Describe() string {
	switch s.Kind {
	case SelectorResourceID:
		return `id="` + s.Value + `"`
	case SelectorContentDesc:
		return `desc="` + s.Value + `"`
	case SelectorText:
		return `text="` + s.Value + `"`
	case SelectorBounds:
		return `bounds="` + s.Value + `"`
	default:
		return string(s.Kind) + `="` + s.Value + `"`
	}
}

// ChainLength returns the number of links in the chain, this link included.
// Walks at most MaxChainLength+1 links so a cyclic chain still terminates.
func (s *ElementSelector) ChainLength() int {
	n := 0
	for link := s; link != nil && n <= MaxChainLength; link = link.Fallback {
		n++
	}
	return n
}

// Normalize clamps diagnostic fields to their documented ranges for the whole
// chain. Confidence is informational only and never affects matching.
func (s *ElementSelector) Normalize() {
	seen := map[*ElementSelector]bool{}
	for link := s; link != nil && !seen[link]; link = link.Fallback {
		seen[link] = true
		if link.Confidence < 0 {
			link.Confidence = 0
		}
		if link.Confidence > 1 {
			link.Confidence = 1
		}
	}
}

// Validate checks that every link carries a kind and value and that the
// fallback chain is acyclic and no longer than MaxChainLength.
func (s *ElementSelector) Validate() error {
	seen := map[*ElementSelector]bool{}
	n := 0
	for link := s; link != nil; link = link.Fallback {
		if seen[link] {
			return fmt.Errorf("selector fallback chain contains a cycle")
		}
		seen[link] = true
		n++
		if n > MaxChainLength {
			return fmt.Errorf("selector fallback chain exceeds %d links", MaxChainLength)
		}
		if link.Kind == "" {
			return fmt.Errorf("selector link %d has no type", n)
		}
		if link.Value == "" {
			return fmt.Errorf("selector link %d (%s) has no value", n, link.Kind)
		}
	}
	return nil
}
