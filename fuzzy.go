// Package fuzzyflake - fuzzy.go implements fuzzy queries: decimal digit
// arithmetic, query parsing, wildcard enumeration, and the per-pattern
// match test.

package fuzzyflake

import (
	"math"
	"strconv"
	"strings"
)

// maxIDLen is the decimal length of the largest possible ID (2^64 - 1).
const maxIDLen = 20

// pow10tab holds the powers of ten representable in a uint64.
var pow10tab = [maxIDLen]uint64{
	1, 1e1, 1e2, 1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9,
	1e10, 1e11, 1e12, 1e13, 1e14, 1e15, 1e16, 1e17, 1e18, 1e19,
}

// pow10 returns 10^n, saturating at the maximum uint64 for exponents that
// overflow. Saturation keeps the left-digit strip in wildcard matching a
// no-op when the window already covers the whole number.
func pow10(n int) uint64 {
	if n >= maxIDLen {
		return math.MaxUint64
	}
	return pow10tab[n]
}

// decimalLen counts the decimal digits of an ID. Real IDs have at least
// 17 digits, so the count starts from a floor a few orders below the
// minimum instead of from zero; values under the floor fall back to plain
// counting, which also makes the function safe for chopped query cores.
func decimalLen(id ID) int {
	// 4 orders below the 17-digit minimum, i.e. 10^13.
	const (
		digitReductionFromMin = 4
		ordersLessMin         = ID(uint64(MinIDNumber) / 1e3)
	)

	n := 0
	if id >= ordersLessMin {
		n = MinIDDigits - digitReductionFromMin
		id /= ordersLessMin
	}
	for id > 0 {
		n++
		id /= 10
	}
	return n
}

// wildcardPair is one way to distribute chopped digits between the two
// ends of an ID: left of them missing from the most-significant end,
// right from the least-significant end.
type wildcardPair struct {
	left  int
	right int
}

// wildcardTable enumerates every wildcard distribution for the given
// per-end tolerance, ordered by ascending total digits added so queries
// try the smallest perturbation first. The zero pair is excluded; exact
// matching is the callers' separate fast path.
//
// For maxDigitsChopped = 2 the table is
// (0,1) (1,0) (0,2) (1,1) (2,0) (1,2) (2,1) (2,2).
func wildcardTable(maxDigitsChopped int) []wildcardPair {
	pairs := make([]wildcardPair, 0, (maxDigitsChopped+1)*(maxDigitsChopped+1))
	for added := 1; added <= 2*maxDigitsChopped; added++ {
		lo := added - maxDigitsChopped
		if lo < 0 {
			lo = 0
		}
		hi := added
		if hi > maxDigitsChopped {
			hi = maxDigitsChopped
		}
		for left := lo; left <= hi; left++ {
			pairs = append(pairs, wildcardPair{left: left, right: added - left})
		}
	}
	return pairs
}

// FuzzyID is a fuzzy-match query: the digits a caller actually has, which
// may be any contiguous middle slice of a real ID's decimal form.
//
// It preserves leading zeros separately from the numeric value, because
// "0042..." and "42..." are different queries: the zeros count toward the
// digit positions a stored ID must line up with.
type FuzzyID struct {
	leadingZeros int
	value        ID
}

// NewFuzzyID wraps a numeric ID as a query with no leading zeros.
func NewFuzzyID(id ID) FuzzyID {
	return FuzzyID{value: id}
}

// ParseFuzzyID parses a decimal string, which may carry leading zeros and
// may be shorter than a full ID, into a query.
//
// Returns an error wrapping ErrInvalidFuzzyID if the string is empty,
// longer than any possible ID, or not all digits.
func ParseFuzzyID(s string) (FuzzyID, error) {
	if len(s) == 0 || len(s) > maxIDLen {
		return FuzzyID{}, &ParseError{Input: s, Reason: "length must be 1 through 20 digits"}
	}

	nonzero := strings.IndexFunc(s, func(r rune) bool { return r != '0' })
	if nonzero == -1 {
		return FuzzyID{leadingZeros: len(s) - 1}, nil
	}

	v, err := strconv.ParseUint(s[nonzero:], 10, 64)
	if err != nil {
		return FuzzyID{}, &ParseError{Input: s, Reason: "not a decimal number"}
	}
	return FuzzyID{leadingZeros: nonzero, value: ID(v)}, nil
}

// Value returns the query's numeric value with leading zeros stripped.
func (q FuzzyID) Value() ID {
	return q.value
}

// LeadingZeros returns how many leading zero digits the query carried.
func (q FuzzyID) LeadingZeros() int {
	return q.leadingZeros
}

// String reconstructs the query's decimal form, leading zeros included.
func (q FuzzyID) String() string {
	if q.leadingZeros == 0 {
		return q.value.String()
	}
	return strings.Repeat("0", q.leadingZeros) + q.value.String()
}

// matchesWildcards reports whether stored is a valid hit for the query
// under the given wildcard distribution: stored must be exactly left +
// right digits longer than the query, and stripping left digits off its
// top and right digits off its bottom must expose the query itself.
//
// Behavior is unspecified for stored values of 0 or 1; the index never
// holds them (everything stored has 17+ digits).
func (q FuzzyID) matchesWildcards(left, right int, stored ID) bool {
	added := left + right
	if added == 0 {
		return q.value == stored
	}

	queryLen := decimalLen(q.value)
	if queryLen < 1 {
		queryLen = 1 // a value of 0 still occupies one digit
	}
	totalLen := queryLen + added

	// Different decimal lengths can never match; this also prices the
	// common miss at one digit count instead of two divisions.
	if totalLen+q.leadingZeros != decimalLen(stored) {
		return false
	}

	// Strip the left wildcard digits, then the right ones.
	core := uint64(stored) % pow10(totalLen+q.leadingZeros-left)
	core /= pow10(right)

	return uint64(q.value) == core
}

// FuzzyContains reports whether any stored ID fuzzy-matches the given
// numeric query. Equivalent to FindFuzzyMatch succeeding.
func (x *Index) FuzzyContains(id ID) bool {
	_, ok := x.FindFuzzyMatch(id)
	return ok
}

// FuzzyContainsQuery reports whether any stored ID fuzzy-matches the
// given query.
func (x *Index) FuzzyContainsQuery(q FuzzyID) bool {
	_, ok := x.FindFuzzyMatchQuery(q)
	return ok
}

// FindFuzzyMatch finds a stored ID matching the numeric query, exactly or
// with up to the configured number of digits chopped from each end.
func (x *Index) FindFuzzyMatch(id ID) (ID, bool) {
	return x.FindFuzzyMatchQuery(NewFuzzyID(id))
}

// FindFuzzyMatchQuery finds a stored ID matching the query.
//
// The exact numeric value is tried first by binary search; stored IDs
// always beat wildcard expansions of themselves, and leading zeros do
// not affect the exact lookup (stored IDs never carry them). On a
// miss the wildcard table is walked in ascending perturbation order,
// scanning the query's bucket against each pattern, and the first hit
// wins.
//
// Queries beyond the current maximum plausible ID are rejected up front:
// an ID from the future cannot belong to any record, so there is nothing
// to scan for. The rejection is skipped when the system clock cannot
// produce a bound.
func (x *Index) FindFuzzyMatchQuery(q FuzzyID) (ID, bool) {
	if len(x.buckets) == 0 {
		return 0, false
	}
	if bound, ok := x.currentBound(); ok && q.value > bound {
		return 0, false
	}

	b := x.buckets[x.bucketFor(q.value)]

	if b.containsSorted(q.value) {
		return q.value, true
	}

	for _, w := range x.wildcards {
		for _, stored := range b {
			if q.matchesWildcards(w.left, w.right, stored) {
				return stored, true
			}
		}
	}
	return 0, false
}

// FindFuzzyMatches collects every stored ID matching the numeric query.
func (x *Index) FindFuzzyMatches(id ID) []ID {
	return x.FindFuzzyMatchesQuery(NewFuzzyID(id))
}

// FindFuzzyMatchesQuery collects every stored ID matching the query,
// ordered by ascending total digits added (smallest perturbation first).
// An exact hit short-circuits to a single-element result. A stored ID
// matching under several wildcard patterns appears once per pattern;
// callers needing uniqueness must dedupe.
func (x *Index) FindFuzzyMatchesQuery(q FuzzyID) []ID {
	if len(x.buckets) == 0 {
		return nil
	}
	if bound, ok := x.currentBound(); ok && q.value > bound {
		return nil
	}

	b := x.buckets[x.bucketFor(q.value)]

	if b.containsSorted(q.value) {
		return []ID{q.value}
	}

	var matches []ID
	for _, w := range x.wildcards {
		for _, stored := range b {
			if q.matchesWildcards(w.left, w.right, stored) {
				matches = append(matches, stored)
			}
		}
	}
	return matches
}

// containsSorted binary-searches an ordered bucket.
func (b bucket) containsSorted(id ID) bool {
	lo, hi := 0, len(b)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if b[mid] < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo < len(b) && b[lo] == id
}
