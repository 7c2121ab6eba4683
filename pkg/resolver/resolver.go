// Package resolver matches element selector chains against accessibility-tree
// snapshots. Resolution is deterministic: nodes are scanned in snapshot order,
// the first match wins, and chain links are tried strictly in fallback order.
package resolver

import (
	"strings"

	"github.com/devicelab-dev/replay-runner/pkg/device"
	"github.com/devicelab-dev/replay-runner/pkg/workflow"
)

// Resolution is the outcome of resolving a selector chain.
type Resolution struct {
	Node         *device.Node // nil when the whole chain missed
	SelectorUsed string       // Describe() of the link that matched
	FallbackUsed bool         // true when a non-primary link matched
}

// Found returns true if some link of the chain matched a node.
func (r Resolution) Found() bool {
	return r.Node != nil
}

// Match reports whether a single node satisfies a single selector link.
// Identifier and label kinds match by substring containment (case-sensitive):
// recorded values are often namespaced or prefixed on device, e.g. selector
// value "button" against attribute "com.app:id/button". Bounds match by exact
// string equality; a recorded bounds string is an exact recording-time fact.
func Match(node *device.Node, sel *workflow.ElementSelector) bool {
	if sel == nil || sel.Value == "" {
		return false
	}

	switch sel.Kind {
	case workflow.SelectorResourceID:
		return contains(node.ResourceID, sel.Value)
	case workflow.SelectorContentDesc:
		return contains(node.ContentDescription, sel.Value)
	case workflow.SelectorText:
		return contains(node.Text, sel.Value)
	case workflow.SelectorBounds:
		return node.Bounds == sel.Value
	default:
		// Unknown kinds never match; the chain falls through to the next link.
		return false
	}
}

// Resolve scans the snapshot for the first node matching the selector; on a
// miss it recurses into the fallback chain, bounded by MaxChainLength.
func Resolve(snap *device.Snapshot, sel *workflow.ElementSelector) Resolution {
	fallback := false
	depth := 0

	for link := sel; link != nil && depth < workflow.MaxChainLength; link = link.Fallback {
		for i := range snap.Nodes {
			if Match(&snap.Nodes[i], link) {
				return Resolution{
					Node:         &snap.Nodes[i],
					SelectorUsed: link.Describe(),
					FallbackUsed: fallback,
				}
			}
		}
		fallback = true
		depth++
	}

	return Resolution{}
}

func contains(attr, value string) bool {
	return attr != "" && strings.Contains(attr, value)
}
