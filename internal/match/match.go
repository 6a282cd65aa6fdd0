// Package match implements the deferred-prefix automata that recognise
// indicator sequences and multi-cell character sequences, one cell dot-key
// at a time.
//
// Both matchers share one automaton parameterised over its commit policy.
// The indicator matcher defers: when an exact match is also the prefix of a
// longer indicator, it is committed only after the next cell proves the
// longer sequence is not arriving. The multi-cell matcher commits
// immediately at maximum depth: multi-cell sequences are authored to
// overlap by length only.
package match

import (
	"strings"

	"github.com/derekparker/trie"

	"brailled/internal/braille"
)

// Outcome classifies one automaton step.
type Outcome uint8

const (
	// None: the buffer cannot begin any sequence. The buffered cells are
	// returned for individual processing.
	None Outcome = iota
	// Matched: a sequence was recognised and consumed.
	Matched
	// MatchedLeftover: a sequence was recognised, with trailing cells the
	// caller must reprocess.
	MatchedLeftover
	// Pending: the buffer is a live prefix; feed the next cell.
	Pending
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case None:
		return "none"
	case Matched:
		return "matched"
	case MatchedLeftover:
		return "matched_with_leftover"
	default:
		return "pending"
	}
}

type policy uint8

const (
	deferredPolicy policy = iota
	immediatePolicy
)

// index is one compiled sequence set: a trie keyed by multi-cell dot keys
// with the entry as node metadata.
type index struct {
	t        *trie.Trie
	maxCells int
}

func newIndex() *index {
	return &index{t: trie.New()}
}

func (ix *index) add(key string, cells int, meta any) {
	ix.t.Add(key, meta)
	if cells > ix.maxCells {
		ix.maxCells = cells
	}
}

// exact returns the entry stored under key, or nil.
func (ix *index) exact(key string) any {
	node, ok := ix.t.Find(key)
	if !ok {
		return nil
	}
	return node.Meta()
}

// extends reports whether any stored key begins with key plus a further
// cell.
func (ix *index) extends(key string) bool {
	return ix.t.HasKeysWithPrefix(key + braille.CellSeparator)
}

// step is the untyped result of one automaton step.
type step struct {
	outcome  Outcome
	entry    any
	leftover []string
	buffered []string
}

// automaton consumes one cell key per call against a swappable index.
type automaton struct {
	policy   policy
	ix       *index
	buffer   []string
	deferred any
}

func (a *automaton) offer(key string) step {
	a.buffer = append(a.buffer, key)
	prefix := strings.Join(a.buffer, braille.CellSeparator)

	exact := a.ix.exact(prefix)
	longer := a.ix.extends(prefix)

	switch {
	case exact != nil && !longer:
		a.clear()
		return step{outcome: Matched, entry: exact}

	case exact != nil && longer:
		if a.policy == immediatePolicy {
			if len(a.buffer) >= a.ix.maxCells {
				a.clear()
				return step{outcome: Matched, entry: exact}
			}
			return step{outcome: Pending}
		}
		a.deferred = exact
		return step{outcome: Pending}

	case longer && len(a.buffer) < a.ix.maxCells:
		return step{outcome: Pending}

	case a.policy == deferredPolicy && a.deferred != nil:
		entry := a.deferred
		last := a.buffer[len(a.buffer)-1]
		a.clear()
		return step{outcome: MatchedLeftover, entry: entry, leftover: []string{last}}

	default:
		if a.policy == immediatePolicy && len(a.buffer) >= 2 {
			// Recovery inspects only the immediately-preceding prefix; a
			// true match two or more cells shorter is not searched for.
			prev := strings.Join(a.buffer[:len(a.buffer)-1], braille.CellSeparator)
			if entry := a.ix.exact(prev); entry != nil {
				last := a.buffer[len(a.buffer)-1]
				a.clear()
				return step{outcome: MatchedLeftover, entry: entry, leftover: []string{last}}
			}
		}
		buffered := a.buffer
		a.clear()
		return step{outcome: None, buffered: buffered}
	}
}

func (a *automaton) clear() {
	a.buffer = nil
	a.deferred = nil
}

func (a *automaton) hasPending() bool {
	return len(a.buffer) > 0
}

// flush returns the buffered cells and resets the automaton. A deferred
// match is dropped, not committed.
func (a *automaton) flush() []string {
	buffered := a.buffer
	a.clear()
	return buffered
}
