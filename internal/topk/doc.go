// Package topk selects the k smallest values of a column together with the
// rows they came from.
//
// A List is a fixed-capacity sorted list. Insertion is a linear scan for the
// leftmost strictly greater element, so equal values keep insertion order
// and the smaller row index wins a tie. Once the list is full, values that
// are not strictly smaller than the current k-th are discarded without a
// scan. Selecting k of n values costs O(n*k), which beats a full sort while
// k stays small.
package topk
