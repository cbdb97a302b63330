package fuzzyflake

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	x, err := New(3)
	if err != nil {
		t.Fatalf("New(3) error = %v", err)
	}
	if x.Len() != 0 {
		t.Errorf("Len() = %d, want 0", x.Len())
	}
	if len(x.buckets) != 0 {
		t.Errorf("bucket count = %d, want 0 before the first insert", len(x.buckets))
	}
	if x.loadFactor != DefaultLoadFactor {
		t.Errorf("loadFactor = %d, want %d", x.loadFactor, DefaultLoadFactor)
	}
	if want := 15; len(x.wildcards) != want {
		t.Errorf("wildcard table has %d pairs, want %d", len(x.wildcards), want)
	}
}

func TestNewWithLoadFactor(t *testing.T) {
	x, err := NewWithLoadFactor(1, 50)
	if err != nil {
		t.Fatal(err)
	}
	if x.loadFactor != 50 {
		t.Errorf("loadFactor = %d, want 50", x.loadFactor)
	}
	if want := 3; len(x.wildcards) != want {
		t.Errorf("wildcard table has %d pairs, want %d", len(x.wildcards), want)
	}
}

func TestNewWithCapacity(t *testing.T) {
	x, err := NewWithCapacity(2, 7831)
	if err != nil {
		t.Fatal(err)
	}
	if len(x.buckets) != 512 {
		t.Errorf("bucket count = %d, want 512", len(x.buckets))
	}
	if x.Len() != 0 {
		t.Errorf("Len() = %d, want 0", x.Len())
	}
}

func TestNewWithCapacityAndLoadFactor(t *testing.T) {
	x, err := NewWithCapacityAndLoadFactor(2, 65_000, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(x.buckets) != 8192 {
		t.Errorf("bucket count = %d, want 8192", len(x.buckets))
	}
	if x.loadFactor != 10 {
		t.Errorf("loadFactor = %d, want 10", x.loadFactor)
	}
}

func TestNewInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative chop", Config{MaxDigitsChopped: -1, LoadFactor: 20}},
		{"chop past bit budget", Config{MaxDigitsChopped: 1 << 23, LoadFactor: 20}},
		{"zero load factor", Config{MaxDigitsChopped: 2, LoadFactor: 0}},
		{"negative capacity", Config{MaxDigitsChopped: 2, LoadFactor: 20, Capacity: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWithConfig(tt.cfg)
			if err == nil {
				t.Fatal("NewWithConfig succeeded, want error")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", err)
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("error is not a *ConfigError: %v", err)
			}
		})
	}
}

func TestNewWideDigitTolerance(t *testing.T) {
	// The tolerance is only bounded by the bits chopping can disturb, not
	// by any fixed digit cap.
	x, err := New(100)
	if err != nil {
		t.Fatalf("New(100) failed: %v", err)
	}
	if got := x.MaxDigitsChopped(); got != 100 {
		t.Errorf("MaxDigitsChopped() = %d, want 100", got)
	}
}

func TestAddContainsRoundTrip(t *testing.T) {
	x, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(242395723))
	stored := uniqueRealisticIDs(rng, 20_000)
	absent := make([]ID, 0, 5000)
	storedSet := make(map[ID]bool, len(stored))
	for _, id := range stored {
		storedSet[id] = true
	}
	for len(absent) < 5000 {
		id := randomRealisticID(rng)
		if !storedSet[id] {
			absent = append(absent, id)
		}
	}

	for _, id := range stored {
		x.Add(id)
	}

	for _, id := range stored {
		if !x.Contains(id) {
			t.Fatalf("Contains(%d) = false for a stored ID", id)
		}
		if !x.NoBoundCheckContains(id) {
			t.Fatalf("NoBoundCheckContains(%d) = false for a stored ID", id)
		}
	}
	for _, id := range absent {
		if x.Contains(id) {
			t.Fatalf("Contains(%d) = true for an absent ID", id)
		}
	}
}

func TestContainsBelowMinimum(t *testing.T) {
	x, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	if x.Contains(12345) {
		t.Error("Contains(12345) = true; IDs under 17 digits cannot be stored")
	}
}

func TestAddIdempotence(t *testing.T) {
	x, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	const id ID = 861128391953352906
	if !x.Add(id) {
		t.Error("first Add = false")
	}
	if x.Add(id) {
		t.Error("second Add = true")
	}
	if x.Len() != 1 {
		t.Errorf("Len() = %d, want 1", x.Len())
	}
}

func TestAddRemoveInverse(t *testing.T) {
	x, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(634241))
	base := uniqueRealisticIDs(rng, 500)
	for _, id := range base {
		x.Add(id)
	}
	before := x.Len()

	probe := randomRealisticID(rng)
	for x.NoBoundCheckContains(probe) {
		probe = randomRealisticID(rng)
	}

	x.Add(probe)
	x.Remove(probe)

	if x.Contains(probe) {
		t.Errorf("Contains(%d) = true after add+remove", probe)
	}
	if x.Len() != before {
		t.Errorf("Len() = %d after add+remove, want %d", x.Len(), before)
	}
}

func TestAddPanicsBelowMinimum(t *testing.T) {
	x, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Add(9999) did not panic")
		}
	}()
	x.Add(9999)
}

func TestExtendPanicsBelowMinimum(t *testing.T) {
	x, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	defer func() {
		if recover() == nil {
			t.Error("Extend with a sub-minimum ID did not panic")
		}
	}()
	x.Extend([]ID{861128391953352906, 42})
}

func TestEqual(t *testing.T) {
	rng := rand.New(rand.NewSource(234))
	ids := uniqueRealisticIDs(rng, 4096)

	a, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewWithCapacity(2, 78_645)
	if err != nil {
		t.Fatal(err)
	}

	for _, id := range ids {
		a.Add(id)
	}
	// Same set, reversed insertion order, different capacity hints.
	for i := len(ids) - 1; i >= 0; i-- {
		b.Add(ids[i])
	}

	if !a.Equal(b) || !b.Equal(a) {
		t.Error("indexes over the same set compare unequal")
	}

	// Add/remove pairs netting to the same set keep equality.
	extra := randomRealisticID(rng)
	for a.NoBoundCheckContains(extra) {
		extra = randomRealisticID(rng)
	}
	b.Add(extra)
	b.Remove(extra)
	if !a.Equal(b) {
		t.Error("netted add/remove broke equality")
	}

	b.Add(extra)
	if a.Equal(b) {
		t.Error("indexes of different cardinality compare equal")
	}
}

func TestFromIDs(t *testing.T) {
	rng := rand.New(rand.NewSource(78645))
	ids := uniqueRealisticIDs(rng, 3000)

	x, err := FromIDs(ids)
	if err != nil {
		t.Fatal(err)
	}
	if x.Len() != len(ids) {
		t.Errorf("Len() = %d, want %d", x.Len(), len(ids))
	}

	y, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range ids {
		y.Add(id)
	}
	if !x.Equal(y) {
		t.Error("FromIDs disagrees with incremental construction")
	}
	checkInvariants(t, x)
}

// fixedClock pins an Index's notion of now for bound-sensitive tests.
func fixedClock(x *Index, at time.Time) {
	x.now = func() time.Time { return at }
}

func TestContainsRejectsFutureID(t *testing.T) {
	x, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	// Pin the clock to a real instant in 2022.
	fixedClock(x, time.UnixMilli(1_658_488_979_000))

	// An ID with every timestamp bit set is far in the future. Add does
	// not bound-check, so insertion succeeds.
	const future ID = 1<<64 - 1
	if !x.Add(future) {
		t.Fatal("Add(future) = false")
	}

	// The bound check hides it from Contains, independent of storage.
	if x.Contains(future) {
		t.Error("Contains returned true for an ID from the future")
	}
	if !x.NoBoundCheckContains(future) {
		t.Error("NoBoundCheckContains should see the stored future ID")
	}

	// Once the clock catches up, Contains sees it too.
	fixedClock(x, future.Time().Add(time.Minute))
	if !x.NoBoundCheckContains(future) {
		t.Error("stored ID vanished")
	}
	// The all-ones timestamp overflows the 42-bit window even then, so
	// the bound is unavailable and the check is skipped.
	if !x.Contains(future) {
		t.Error("Contains kept rejecting once no bound was computable")
	}
}

func TestFindFuzzyMatchRejectsFutureQuery(t *testing.T) {
	x, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	fixedClock(x, time.UnixMilli(1_658_488_979_000))

	const stored ID = 861128391953352906
	x.Add(stored)

	// A query beyond the 2022 bound cannot match anything.
	if _, ok := x.FindFuzzyMatch(realisticMaxID); ok {
		t.Error("FindFuzzyMatch matched a query from the future")
	}
	if x.FuzzyContains(realisticMaxID) {
		t.Error("FuzzyContains matched a query from the future")
	}
}

func TestFindFuzzyMatchExactPrecedence(t *testing.T) {
	x, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	const exact ID = 86112839195335290   // 17 digits
	const longer ID = 861128391953352900 // exact with one digit appended
	x.Add(exact)
	x.Add(longer)

	got, ok := x.FindFuzzyMatch(exact)
	if !ok {
		t.Fatal("FindFuzzyMatch missed a stored ID")
	}
	if got != exact {
		t.Errorf("FindFuzzyMatch = %d, want the exact hit %d", got, exact)
	}

	matches := x.FindFuzzyMatches(exact)
	if len(matches) != 1 || matches[0] != exact {
		t.Errorf("FindFuzzyMatches = %v, want exactly [%d]", matches, exact)
	}
}

func TestFindFuzzyMatchLeadingZeroExactHit(t *testing.T) {
	x, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	const stored ID = 861128391953352906
	x.Add(stored)

	// A copied ID sometimes picks up a stray leading zero; the numeric
	// value is still the stored one.
	q, err := ParseFuzzyID("0861128391953352906")
	if err != nil {
		t.Fatal(err)
	}

	got, ok := x.FindFuzzyMatchQuery(q)
	if !ok {
		t.Fatal("FindFuzzyMatchQuery found nothing for a zero-prefixed stored ID")
	}
	if got != stored {
		t.Errorf("FindFuzzyMatchQuery = %d, want %d", got, stored)
	}

	matches := x.FindFuzzyMatchesQuery(q)
	if len(matches) != 1 || matches[0] != stored {
		t.Errorf("FindFuzzyMatchesQuery = %v, want exactly [%d]", matches, stored)
	}

	if !x.FuzzyContainsQuery(q) {
		t.Error("FuzzyContainsQuery = false")
	}
}

func TestFindFuzzyMatchDigitChop(t *testing.T) {
	x, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	const stored ID = 123456789012345678
	x.Add(stored)

	// The same ID with its first two digits lost.
	q, err := ParseFuzzyID("3456789012345678")
	if err != nil {
		t.Fatal(err)
	}

	got, ok := x.FindFuzzyMatchQuery(q)
	if !ok {
		t.Fatal("FindFuzzyMatchQuery found nothing for a front-chopped ID")
	}
	if got != stored {
		t.Errorf("FindFuzzyMatchQuery = %d, want %d", got, stored)
	}

	if !x.FuzzyContainsQuery(q) {
		t.Error("FuzzyContainsQuery = false")
	}
}

func TestFindFuzzyMatchRightChop(t *testing.T) {
	x, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	const stored ID = 84567890123456780
	x.Add(stored)

	// Last digit lost.
	got, ok := x.FindFuzzyMatch(8456789012345678)
	if !ok {
		t.Fatal("FindFuzzyMatch found nothing for a tail-chopped ID")
	}
	if got != stored {
		t.Errorf("FindFuzzyMatch = %d, want %d", got, stored)
	}
}

func TestFindFuzzyMatchBothEnds(t *testing.T) {
	x, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	const stored ID = 695376103962839600
	x.Add(stored)

	// One digit lost from each end.
	got, ok := x.FindFuzzyMatch(9537610396283960)
	if !ok {
		t.Fatal("FindFuzzyMatch found nothing with both ends chopped")
	}
	if got != stored {
		t.Errorf("FindFuzzyMatch = %d, want %d", got, stored)
	}
}

func TestFindFuzzyMatchesOrdering(t *testing.T) {
	x, err := New(2)
	if err != nil {
		t.Fatal(err)
	}

	// Two stored IDs extend the same query: one by a single front digit,
	// one by two. The smaller perturbation must come back first.
	const oneDigit ID = 23456789012345678
	const twoDigits ID = 123456789012345678
	x.Add(oneDigit)
	x.Add(twoDigits)

	const query ID = 3456789012345678
	matches := x.FindFuzzyMatches(query)
	if len(matches) != 2 {
		t.Fatalf("FindFuzzyMatches = %v, want 2 matches", matches)
	}
	if matches[0] != oneDigit || matches[1] != twoDigits {
		t.Errorf("FindFuzzyMatches = %v, want [%d %d]", matches, oneDigit, twoDigits)
	}

	if got, ok := x.FindFuzzyMatch(query); !ok || got != oneDigit {
		t.Errorf("FindFuzzyMatch = %d, want the least-perturbed hit %d", got, oneDigit)
	}
}

func TestFuzzyMatchOnEmptyIndex(t *testing.T) {
	x, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := x.FindFuzzyMatch(861128391953352906); ok {
		t.Error("FindFuzzyMatch on an empty index returned a hit")
	}
	if x.Contains(861128391953352906) {
		t.Error("Contains on an empty index returned true")
	}
	if got := x.FindFuzzyMatches(861128391953352906); len(got) != 0 {
		t.Errorf("FindFuzzyMatches on an empty index = %v", got)
	}
}

func TestLoadFactorResize(t *testing.T) {
	x, err := NewWithCapacity(2, 64)
	if err != nil {
		t.Fatal(err)
	}
	initial := len(x.buckets)

	rng := rand.New(rand.NewSource(129388342034342))
	ids := uniqueRealisticIDs(rng, DefaultLoadFactor*initial+1)
	for _, id := range ids {
		x.Add(id)
	}

	if len(x.buckets) <= initial {
		t.Fatalf("bucket count = %d, expected at least one growth past %d", len(x.buckets), initial)
	}
	if avg := float64(x.Len()) / float64(len(x.buckets)); avg > DefaultLoadFactor {
		t.Errorf("average occupancy %.2f exceeds the load factor %d", avg, DefaultLoadFactor)
	}
	checkInvariants(t, x)
}
