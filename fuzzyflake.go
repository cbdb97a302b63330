// Package fuzzyflake provides an in-memory fuzzy search index for Snowflake IDs.
//
// # Overview
//
// Fuzzyflake answers one question: "a user handed me a Snowflake ID with some
// decimal digits corrupted or truncated off either end -- which real ID did
// they mean?" It does so with:
//   - Exact containment checks (binary search, O(log bucket size))
//   - Fuzzy matching that tolerates up to a configured number of digits
//     chopped from the most-significant end, the least-significant end,
//     or both ends at once
//   - Rejection of IDs whose timestamp lies in the future (they cannot
//     belong to any real record yet)
//
// # ID Structure (64 bits)
//
//	┌──────────────────────────────────────────────┬──────────────────────────┐
//	│        42 bits: Timestamp (milliseconds      │  22 bits: Worker /       │
//	│        since the platform epoch, 2015)       │  Process / Sequence      │
//	└──────────────────────────────────────────────┴──────────────────────────┘
//
// Every real ID has at least 17 decimal digits. The index rejects anything
// shorter at insert time.
//
// # Bucket Layout
//
// IDs are stored in a power-of-two number of buckets, each a sorted slice.
// The bucket index is a slice of the ID's timestamp bits rather than a
// general-purpose hash: the low bits of the 42-bit timestamp region, chosen
// so the number of index bits never exceeds the timestamp bits left intact
// by digit chopping. A generic hash would scatter near-identical IDs across
// the table and defeat the single-bucket fuzzy scan.
//
// The table grows when the average bucket would exceed the load factor and
// shrinks when occupancy falls under 3/8 of it. Resizes rehash every stored
// ID and are the only expensive operation; they run inline with whichever
// Add, Remove, or Extend triggered them.
//
// # Concurrency
//
// An Index is NOT internally synchronized. It assumes a single writer, with
// the caller serializing mutation (Add, Remove, Extend) against reads. The
// directory subpackage shows the intended embedding: one lock per guild
// index, rebuilt from the relational member store at startup.
//
// # Usage
//
//	idx, err := fuzzyflake.New(2) // tolerate up to 2 chopped digits per end
//	if err != nil {
//	    return err
//	}
//	idx.Add(123456789012345678)
//
//	// A user pasted an ID missing its first two digits.
//	q, err := fuzzyflake.ParseFuzzyID("3456789012345678")
//	if err != nil {
//	    return err
//	}
//	if match, ok := idx.FindFuzzyMatchQuery(q); ok {
//	    fmt.Println("they meant", match)
//	}
package fuzzyflake

import (
	"fmt"
	"math/bits"
	"sort"
	"time"

	"zombiezen.com/go/log"
)

const (
	// DefaultLoadFactor is the target maximum number of IDs per bucket
	// before the bucket table resizes.
	DefaultLoadFactor = 20

	// DefaultMaxDigitsChopped is the number of decimal digits fuzzy
	// matching tolerates missing from each end of an ID.
	DefaultMaxDigitsChopped = 2

	// TimestampBits is the width of the timestamp field in the high bits
	// of an ID.
	TimestampBits = 42

	// MinIDDigits is the lowest possible decimal length of a real ID.
	MinIDDigits = 17

	// MinIDNumber is the smallest value with MinIDDigits decimal digits.
	// Every stored ID is at least this large.
	MinIDNumber ID = 1e16
)

// initialCapacityFactor sizes fresh buckets at loadFactor * 1.2 to leave
// headroom before the first in-bucket reallocation.
const initialCapacityFactor = 1.2

// loadFactorShrinkLimit is the fraction of the load factor under which the
// bucket table shrinks.
const loadFactorShrinkLimit = 3.0 / 8.0

// choppedLowerBitLimit caps how many bits digit chopping may disturb: the
// bucket index is carved out of the timestamp, so chopping must never be
// able to reach past the non-timestamp bits.
const choppedLowerBitLimit = 64 - TimestampBits

// Config holds construction options for an Index.
//
// The zero value is not valid; start from DefaultConfig().
type Config struct {
	// MaxDigitsChopped is the number of decimal digits fuzzy matching
	// tolerates missing from each end of an ID. Fixed for the lifetime
	// of the Index; it sizes the wildcard table and bounds the bucket
	// index bit budget. Must be non-negative and small enough that the
	// bits it can disturb stay inside the 22 non-timestamp bits; values
	// past a few digits only widen the search without finding more.
	MaxDigitsChopped int

	// Capacity is the expected number of IDs. Zero defers bucket
	// allocation to the first insert.
	Capacity int

	// LoadFactor is the target maximum IDs per bucket before a resize.
	LoadFactor int

	// Logger receives warnings from the time-bound computation.
	// Nil means log.Discard.
	Logger log.Logger
}

// DefaultConfig returns a Config with the production defaults: up to 2
// chopped digits per end, load factor 20, no pre-allocation.
func DefaultConfig() Config {
	return Config{
		MaxDigitsChopped: DefaultMaxDigitsChopped,
		LoadFactor:       DefaultLoadFactor,
	}
}

// Validate checks the configuration and returns a ConfigError describing
// the first violated constraint.
//
// Validation rules:
//   - MaxDigitsChopped must be non-negative and small enough that the bits
//     it can disturb stay inside the 22 non-timestamp bits
//   - LoadFactor must be at least 1
//   - Capacity must be non-negative and leave the bucket index inside the
//     timestamp bits that chopping cannot reach
func (c *Config) Validate() error {
	if c.MaxDigitsChopped < 0 {
		return newConfigError("MaxDigitsChopped", fmt.Sprint(c.MaxDigitsChopped),
			"must be non-negative", "digit tolerance cannot be negative")
	}
	if mb := maxBitsChoppedOff(c.MaxDigitsChopped); mb > choppedLowerBitLimit {
		return newConfigError("MaxDigitsChopped", fmt.Sprint(c.MaxDigitsChopped),
			"chops more bits than an ID has below its timestamp",
			fmt.Sprintf("chopped bits must stay within %d", choppedLowerBitLimit))
	}
	if c.LoadFactor < 1 {
		return newConfigError("LoadFactor", fmt.Sprint(c.LoadFactor),
			"must be positive", "at least 1 ID per bucket")
	}
	if c.Capacity < 0 {
		return newConfigError("Capacity", fmt.Sprint(c.Capacity),
			"must be non-negative", "expected ID count, or 0 to defer allocation")
	}
	if c.Capacity > 0 {
		count := minBucketCount(c.Capacity, c.LoadFactor)
		budget := TimestampBits - maxBitsChoppedOff(c.MaxDigitsChopped)
		if indexBits(count) > budget {
			return newConfigError("Capacity", fmt.Sprint(c.Capacity),
				"needs more bucket index bits than the timestamp can spare",
				fmt.Sprintf("index bits must stay within %d", budget))
		}
	}
	return nil
}

// Index is a bucketed fuzzy search index over Snowflake IDs.
//
// It behaves as a set of uint64 IDs supporting exact and fuzzy containment
// queries. See the package documentation for the bucket layout and the
// single-writer concurrency contract.
type Index struct {
	buckets    []bucket
	size       int
	loadFactor int

	// maxDigitsChopped and its derived bit budget are fixed at
	// construction; the wildcard table is computed once from them.
	maxDigitsChopped  int
	maxBitsChoppedOff int
	wildcards         []wildcardPair

	logger log.Logger
	now    func() time.Time
}

// New creates an empty Index tolerating up to maxDigitsChopped missing
// digits on each end of a query. Buckets are allocated lazily on the
// first insert.
//
// Returns a ConfigError if maxDigitsChopped is out of range.
func New(maxDigitsChopped int) (*Index, error) {
	cfg := DefaultConfig()
	cfg.MaxDigitsChopped = maxDigitsChopped
	return NewWithConfig(cfg)
}

// NewWithCapacity creates an Index pre-sized for the given number of IDs,
// avoiding resize churn during an initial bulk load.
func NewWithCapacity(maxDigitsChopped, capacity int) (*Index, error) {
	cfg := DefaultConfig()
	cfg.MaxDigitsChopped = maxDigitsChopped
	cfg.Capacity = capacity
	return NewWithConfig(cfg)
}

// NewWithLoadFactor creates an empty Index with a custom load factor.
// Larger factors trade slower bucket scans for fewer, cheaper resizes.
func NewWithLoadFactor(maxDigitsChopped, loadFactor int) (*Index, error) {
	cfg := DefaultConfig()
	cfg.MaxDigitsChopped = maxDigitsChopped
	cfg.LoadFactor = loadFactor
	return NewWithConfig(cfg)
}

// NewWithCapacityAndLoadFactor creates a pre-sized Index with a custom
// load factor.
func NewWithCapacityAndLoadFactor(maxDigitsChopped, capacity, loadFactor int) (*Index, error) {
	cfg := DefaultConfig()
	cfg.MaxDigitsChopped = maxDigitsChopped
	cfg.Capacity = capacity
	cfg.LoadFactor = loadFactor
	return NewWithConfig(cfg)
}

// NewWithConfig creates an Index from a full Config.
//
// Returns a ConfigError if validation fails.
func NewWithConfig(cfg Config) (*Index, error) {
	if err := (&cfg).Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard
	}
	x := &Index{
		loadFactor:        cfg.LoadFactor,
		maxDigitsChopped:  cfg.MaxDigitsChopped,
		maxBitsChoppedOff: maxBitsChoppedOff(cfg.MaxDigitsChopped),
		wildcards:         wildcardTable(cfg.MaxDigitsChopped),
		logger:            logger,
		now:               time.Now,
	}
	if cfg.Capacity > 0 {
		x.buckets = x.createBuckets(cfg.Capacity)
	}
	return x, nil
}

// FromIDs builds an Index with the default configuration from a slice of
// IDs, pre-sized and bulk loaded. Duplicates in the slice are ignored.
//
// Panics if any ID is below the 17-digit minimum, like Extend.
func FromIDs(ids []ID) (*Index, error) {
	x, err := NewWithCapacity(DefaultMaxDigitsChopped, len(ids))
	if err != nil {
		return nil, err
	}
	x.Extend(ids)
	return x, nil
}

// SetLogger directs warnings (currently only degraded-clock reports from
// the future-ID bound computation) to the given logger. A nil logger
// restores the default of discarding them.
func (x *Index) SetLogger(logger log.Logger) {
	if logger == nil {
		logger = log.Discard
	}
	x.logger = logger
}

// Len returns the number of distinct IDs stored.
func (x *Index) Len() int {
	return x.size
}

// MaxDigitsChopped reports the per-end digit tolerance this Index was
// built with.
func (x *Index) MaxDigitsChopped() int {
	return x.maxDigitsChopped
}

// Add inserts an ID. It returns true if the ID was inserted and false if
// it was already present. The bucket table may grow even when the ID turns
// out to be a duplicate.
//
// Panics if the ID has fewer than 17 decimal digits; real platform IDs
// always satisfy the floor, so a shorter one is a caller bug.
func (x *Index) Add(id ID) bool {
	if id < MinIDNumber {
		panic(fmt.Sprintf("fuzzyflake: ID %d is shorter than the minimum of %d digits", id, MinIDDigits))
	}

	x.reallocateOnAdd(1, true)

	b := &x.buckets[x.bucketFor(id)]
	i := sort.Search(len(*b), func(i int) bool { return (*b)[i] >= id })
	if i < len(*b) && (*b)[i] == id {
		return false
	}

	*b = append(*b, 0)
	copy((*b)[i+1:], (*b)[i:])
	(*b)[i] = id
	x.size++
	return true
}

// Remove deletes an ID. It returns true if the ID was found and removed.
// The bucket table may shrink when occupancy drops far enough, even when
// the ID turns out to be absent.
func (x *Index) Remove(id ID) bool {
	if x.size == 0 {
		return false
	}

	x.reallocateOnRemove(1)

	b := &x.buckets[x.bucketFor(id)]
	i := sort.Search(len(*b), func(i int) bool { return (*b)[i] >= id })
	if i >= len(*b) || (*b)[i] != id {
		return false
	}

	*b = append((*b)[:i], (*b)[i+1:]...)
	x.size--
	return true
}

// Extend bulk inserts a slice of IDs, ignoring duplicates.
//
// Large batches (more than half the load factor per existing bucket) are
// pushed unsorted into their buckets after a single up-front resize, then
// every bucket is sorted and deduplicated in one pass. This avoids the
// quadratic cost of repeated sorted inserts during startup loads, at the
// price of a temporarily unsorted table that is always repaired before
// Extend returns. Smaller batches degrade to repeated Add calls.
//
// Panics if any ID is below the 17-digit minimum.
func (x *Index) Extend(ids []ID) {
	if len(ids) == 0 {
		return
	}
	if len(ids) <= x.loadFactor/2*len(x.buckets) {
		for _, id := range ids {
			x.Add(id)
		}
		return
	}

	x.reallocateOnAdd(len(ids), false)

	for _, id := range ids {
		if id < MinIDNumber {
			panic(fmt.Sprintf("fuzzyflake: ID %d is shorter than the minimum of %d digits", id, MinIDDigits))
		}
		i := bucketIndex(len(x.buckets), id)
		x.buckets[i] = append(x.buckets[i], id)
		x.size++
	}

	x.sortAllBuckets()
	x.dedupAllBuckets()
}

// Contains reports whether the exact ID is stored, after bounds checks:
// IDs below the 17-digit floor are never present, and IDs whose timestamp
// lies beyond the current wall clock are rejected without touching the
// table (they cannot exist yet). If the system clock is unusable the
// future check is skipped rather than failing the query.
func (x *Index) Contains(id ID) bool {
	if id < MinIDNumber {
		return false
	}
	if bound, ok := x.currentBound(); ok && id > bound {
		return false
	}
	return x.NoBoundCheckContains(id)
}

// NoBoundCheckContains reports whether the exact ID is stored, skipping
// Contains's time-derived future check. An ID inserted with a future
// timestamp is visible here immediately but hidden from Contains until
// the clock catches up.
func (x *Index) NoBoundCheckContains(id ID) bool {
	if len(x.buckets) == 0 {
		return false
	}
	b := x.buckets[x.bucketFor(id)]
	i := sort.Search(len(b), func(i int) bool { return b[i] >= id })
	return i < len(b) && b[i] == id
}

// Equal reports whether two indexes store the same set of IDs. Load
// factors, capacities, and insertion order do not participate. The
// comparison is exact and time-independent.
func (x *Index) Equal(other *Index) bool {
	if x.size != other.size {
		return false
	}
	for _, b := range x.buckets {
		for _, id := range b {
			if !other.NoBoundCheckContains(id) {
				return false
			}
		}
	}
	return true
}

// maxBitsChoppedOff returns how many low-order bits removing up to
// maxDigitsChopped decimal digits can disturb: ceil(log2(d+1)), 0 for 0.
func maxBitsChoppedOff(maxDigitsChopped int) int {
	if maxDigitsChopped == 0 {
		return 0
	}
	return bits.Len(uint(maxDigitsChopped))
}
