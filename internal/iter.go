package internal

import (
	"iter"
	"maps"
	"slices"
)

// IterSeq2Concat concatenates multiple dual-return iterators into a single iterator sequence.
func IterSeq2Concat[T1 any, T2 any](seqs ...iter.Seq2[T1, T2]) iter.Seq2[T1, T2] {
	return func(yield func(T1, T2) bool) {
		for _, seq := range seqs {
			for val1, val2 := range seq {
				if !yield(val1, val2) {
					return // Stop if the consumer stops
				}
			}
		}
	}
}

// IterSeq2Sorted re-yields a string-keyed iterator in key order.
func IterSeq2Sorted[V any](seq iter.Seq2[string, V]) iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		collect := maps.Collect(seq)
		for _, key := range slices.Sorted(maps.Keys(collect)) {
			if !yield(key, collect[key]) {
				return
			}
		}
	}
}
