// Package fuzzyflake - bucket.go implements the bucket table: bit-slice
// bucket selection, allocation, and load-factor-driven resizing.

package fuzzyflake

import (
	"fmt"
	"math/bits"
	"sort"
)

// bucket is an ascending, duplicate-free run of IDs. The ordering
// invariant is suspended only inside Extend's bulk path and restored
// before it returns.
type bucket []ID

// indexBits returns how many bits a bucket index into a table of the
// given power-of-two size occupies, never less than 1.
func indexBits(bucketCount int) int {
	n := bits.TrailingZeros(uint(bucketCount))
	if n < 1 {
		n = 1
	}
	return n
}

// minBucketCount returns the bucket count for the given capacity and load
// factor: ceil(capacity/loadFactor) rounded up to a power of two, at
// least 2. The floor of 2 keeps the index width at one bit or more so the
// shifts in bucketIndex stay in range.
func minBucketCount(capacity, loadFactor int) int {
	count := (capacity + loadFactor - 1) / loadFactor
	if count < 2 {
		return 2
	}
	return 1 << bits.Len(uint(count-1))
}

// bucketIndex selects a bucket by slicing bits out of the ID's timestamp
// region: the lowest log2(bucketCount) bits of the upper TimestampBits.
// The left shift discards everything above the window, the right shift
// everything below it.
//
// This is deliberately not a general-purpose hash. Fuzzy queries perturb
// an ID's decimal digits but are resolved within a single bucket, so IDs
// must be placed by a bit slice the chopping arithmetic is bounded away
// from; a generic hash would scatter them.
//
// bucketCount must be a power of two, at least 2.
func bucketIndex(bucketCount int, id ID) int {
	n := uint(indexBits(bucketCount))
	return int((id << (TimestampBits - n)) >> (64 - n))
}

// bucketFor returns the index of the bucket that owns id in the current
// table.
func (x *Index) bucketFor(id ID) int {
	return bucketIndex(len(x.buckets), id)
}

// createBuckets allocates a fresh table sized for capacity IDs at the
// Index's load factor.
//
// Panics if the table would need more index bits than the timestamp can
// spare after digit chopping. That is a configuration error (the digit
// tolerance is too large for the data volume), not a runtime condition
// to recover from; constructors pre-check it for the declared capacity.
func (x *Index) createBuckets(capacity int) []bucket {
	count := minBucketCount(capacity, x.loadFactor)

	if budget := TimestampBits - x.maxBitsChoppedOff; indexBits(count) > budget {
		panic(fmt.Sprintf(
			"fuzzyflake: %d buckets need %d index bits but chopping %d digits leaves only %d timestamp bits",
			count, indexBits(count), x.maxDigitsChopped, budget))
	}

	buckets := make([]bucket, count)
	capPerBucket := int(float64(x.loadFactor) * initialCapacityFactor)
	for i := range buckets {
		buckets[i] = make(bucket, 0, capPerBucket)
	}
	return buckets
}

// reallocateBuckets rebuilds the table for the new capacity, rehashing
// every stored ID. Sorting the rebuilt buckets may be suppressed by the
// bulk Extend path, which sorts once itself after pushing its batch.
func (x *Index) reallocateBuckets(newCapacity int, sorted bool) {
	old := x.buckets
	x.buckets = x.createBuckets(newCapacity)
	n := len(x.buckets)

	for _, b := range old {
		for _, id := range b {
			i := bucketIndex(n, id)
			x.buckets[i] = append(x.buckets[i], id)
		}
	}

	if sorted {
		x.sortAllBuckets()
	}
}

// reallocateOnAdd grows the table if adding n more IDs would push the
// average bucket past the load factor.
func (x *Index) reallocateOnAdd(n int, sorted bool) {
	newCapacity := x.size + n
	if newCapacity > x.loadFactor*len(x.buckets) {
		x.reallocateBuckets(newCapacity, sorted)
	}
}

// reallocateOnRemove shrinks the table if removing n IDs would drop the
// projected load factor under 3/8 of the target.
func (x *Index) reallocateOnRemove(n int) {
	newCapacity := x.size - n
	if float64(newCapacity) < float64(x.loadFactor*len(x.buckets))*loadFactorShrinkLimit {
		x.reallocateBuckets(newCapacity, true)
	}
}

// sortAllBuckets restores the ascending order of every bucket.
func (x *Index) sortAllBuckets() {
	for i := range x.buckets {
		b := x.buckets[i]
		sort.Slice(b, func(a, c int) bool { return b[a] < b[c] })
	}
}

// dedupAllBuckets compacts runs of equal IDs out of every sorted bucket
// and corrects the stored size, completing the bulk Extend repair.
func (x *Index) dedupAllBuckets() {
	for i, b := range x.buckets {
		if len(b) < 2 {
			continue
		}
		w := 1
		for r := 1; r < len(b); r++ {
			if b[r] != b[w-1] {
				b[w] = b[r]
				w++
			}
		}
		x.size -= len(b) - w
		x.buckets[i] = b[:w]
	}
}
