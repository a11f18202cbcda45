// Package priority implements a keyed priority queue: a binary heap with
// a map for O(1) key lookups, ordered by a user-provided comparison
// function over values.
//
// The merge driver uses it to keep its source cursors ordered by their
// current (key, LSN) position: the cursor with the smallest position sits
// at the top, Set re-sifts a cursor after it advances, and Remove drops a
// cursor once it is exhausted.
//
// Basic usage:
//
//	pq := priority.NewQueue[string, int](func(a, b int) bool {
//	    return a < b
//	})
//
//	pq.Set("a", 5)
//	pq.Set("b", 3)
//
//	key, value, ok := pq.Pop() // "b", 3, true
//
// The less function should return true if a has higher priority than b.
package priority
