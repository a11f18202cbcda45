// Package loser merges ordered sequences with a loser (tournament) tree.
// Derived from https://github.com/bboreham/go-loser/blob/iter/tree.go.
//
// A loser tree is a binary tree laid out such that nodes N and N+1 have
// parent N/2. The M leaf nodes live in positions M..2M-1, the M-1
// internal nodes in positions 1..M-1. Node 0 holds the winner of the
// whole contest; every other internal node records the loser of the game
// played there. Advancing the winner replays only the games on its path
// to the root, so a k-way merge costs O(log k) comparisons per element.
//
// The write-ahead log uses it to replay flushed segments as one stream in
// (key, LSN) order.
package loser

import (
	"iter"
)

// Sequence is one ordered input to the merge.
type Sequence[E any] interface {
	All() iter.Seq[E]
}

// New builds a tree over the given sequences. maxVal must order after
// every real element under less; it marks exhausted inputs.
func New[E any](sequences []Sequence[E], maxVal E, less func(E, E) bool) *Tree[E] {
	t := Tree[E]{
		maxVal:    maxVal,
		nodes:     make([]node[E], len(sequences)*2),
		sequences: sequences,
		less:      less,
	}
	return &t
}

// Tree merges its sequences into one ordered stream.
type Tree[E any] struct {
	maxVal    E
	nodes     []node[E]
	sequences []Sequence[E]
	less      func(E, E) bool
}

type node[E any] struct {
	index int              // Loser of the game at this node; winner for node 0.
	value E                // Value copied from that node.
	next  func() (E, bool) // Only populated for leaf nodes.
}

func (t *Tree[E]) moveNext(index int) bool {
	n := &t.nodes[index]
	if v, ok := n.next(); ok {
		n.value = v
		return true
	}
	n.value = t.maxVal
	n.index = -1
	return false
}

// All yields the merged elements in order. The underlying sequences are
// pulled lazily and released when iteration stops.
func (t *Tree[E]) All() iter.Seq[E] {
	return func(yield func(E) bool) {
		if len(t.nodes) == 0 {
			return
		}
		for i, s := range t.sequences {
			next, stop := iter.Pull(s.All())
			t.nodes[i+len(t.sequences)].next = next
			//nolint:gocritic // is not a leak.
			defer stop()
			t.moveNext(i + len(t.sequences)) // Load the first value of each input.
		}
		t.initialize()
		for t.nodes[t.nodes[0].index].index != -1 &&
			yield(t.nodes[0].value) {
			t.moveNext(t.nodes[0].index)
			t.replayGames(t.nodes[0].index)
		}
	}
}

func (t *Tree[E]) initialize() {
	winner := t.playGame(1)
	t.nodes[0].index = winner
	t.nodes[0].value = t.nodes[winner].value
}

// playGame finds the winner at pos; for a non-leaf node it stores the
// loser. pos must be >= 1 and < len(t.nodes).
func (t *Tree[E]) playGame(pos int) int {
	nodes := t.nodes
	if pos >= len(nodes)/2 {
		return pos
	}
	left := t.playGame(pos * 2)
	right := t.playGame(pos*2 + 1)
	var loser, winner int
	if t.less(nodes[left].value, nodes[right].value) {
		loser, winner = right, left
	} else {
		loser, winner = left, right
	}
	nodes[pos].index = loser
	nodes[pos].value = nodes[loser].value
	return winner
}

// replayGames re-considers all games from pos, a winner, up to the root.
func (t *Tree[E]) replayGames(pos int) {
	nodes := t.nodes
	winningValue := nodes[pos].value
	for n := parent(pos); n != 0; n = parent(n) {
		node := &nodes[n]
		if t.less(node.value, winningValue) {
			// Record pos as the loser here; the old loser is the new winner.
			node.index, pos = pos, node.index
			node.value, winningValue = winningValue, node.value
		}
	}
	// pos is now the winner; store it in node 0.
	nodes[0].index = pos
	nodes[0].value = winningValue
}

func parent(i int) int { return i >> 1 }
