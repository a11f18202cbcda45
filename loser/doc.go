// Package loser implements a tournament tree (also known as a loser tree)
// for efficiently merging multiple sorted sequences. This implementation is
// based on the work by Bryan Boreham (https://github.com/bboreham/go-loser).
//
// A loser tree is a binary tree where each internal node holds the "loser"
// of a comparison between its children and the root holds the overall
// winner, so merging k sequences costs O(log k) comparisons per element.
//
// Basic usage:
//
//	tree := loser.New(
//	    []loser.Sequence[int]{seq1, seq2, seq3},
//	    math.MaxInt, // sentinel ordered after every real value
//	    func(a, b int) bool { return a < b },
//	)
//
//	for v := range tree.All() {
//	    fmt.Println(v)
//	}
//
// The log reader uses a tree of statement sequences with statement.Max as
// the sentinel to merge flushed segments back into (key, LSN) order.
//
// Implementation details: the tree is laid out in an array where node N has
// children at 2N and 2N+1, leaves sit at positions M to 2M-1 for M
// sequences, and node 0 holds the current winner. Each internal node keeps
// the losing value of its subtree, so the smallest value propagates to the
// root and only one path needs replaying per element.
package loser
