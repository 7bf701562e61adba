/*
ledger.go - Immutable quantity ledger over a fixed key set

PURPOSE:
  A Ledger counts how many of each item are held. The machine uses one
  ledger per coin slot (customer funds, machine funds, coin return) and one
  for product stock. The same type serves both: the engine has no knowledge
  of coins or products.

CRITICAL INVARIANTS:
  1. FIXED KEY SET: The keys are fixed at construction. Every key always has
     a count (defaulting to 0). Keys outside the set are never stored.
  2. NON-NEGATIVE: Counts never go below zero. Subtraction floors per key.
  3. IMMUTABLE: Every operation returns a new Ledger. The receiver is never
     touched, so sharing a Ledger between owners is safe.
  4. TOTAL: No operation panics or returns an error. Foreign keys and the
     zero Ledger degrade to identity or zero.

ZERO VALUE:
  The zero Ledger has no keys. It is the "absent ledger": merging or
  subtracting it is a no-op and every Quantity is 0.

EXAMPLE:
  coins := generic.NewLedger("nickel", "dime", "quarter")
  coins = coins.Add("quarter").Add("quarter").Add("dime")
  coins.Quantity("quarter")        // 2
  coins.Subtract("penny")          // unchanged, "penny" is not a key

  spent := generic.NewLedger("nickel", "dime", "quarter").AddN("quarter", 5)
  coins.SubtractAll(spent).Quantity("quarter") // 0, floored per key

SEE ALSO:
  - vending/bank.go: Ledger specialized to denominations
  - vending/machine.go: product inventory
*/
package generic

// =============================================================================
// LEDGER - Counts over a fixed, ordered key set
// =============================================================================

// Ledger is an immutable mapping from every key of a fixed set to a
// non-negative count.
type Ledger[K comparable] struct {
	// keys is shared between derived ledgers and never written after
	// construction.
	keys   []K
	counts []int
}

// NewLedger returns a ledger with every key mapped to zero.
// Duplicate keys are kept once, in first-seen order.
func NewLedger[K comparable](keys ...K) Ledger[K] {
	set := make([]K, 0, len(keys))
	seen := make(map[K]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		set = append(set, k)
	}
	return Ledger[K]{keys: set, counts: make([]int, len(set))}
}

func (l Ledger[K]) position(key K) (int, bool) {
	for i, k := range l.keys {
		if k == key {
			return i, true
		}
	}
	return 0, false
}

func (l Ledger[K]) with(i, count int) Ledger[K] {
	counts := make([]int, len(l.counts))
	copy(counts, l.counts)
	if count < 0 {
		count = 0
	}
	counts[i] = count
	return Ledger[K]{keys: l.keys, counts: counts}
}

// =============================================================================
// SINGLE-KEY OPERATIONS
// =============================================================================

// Add returns a ledger with one more of key. A key outside the set is a no-op.
func (l Ledger[K]) Add(key K) Ledger[K] {
	return l.AddN(key, 1)
}

// AddN returns a ledger with n more of key. n <= 0 is a no-op.
func (l Ledger[K]) AddN(key K, n int) Ledger[K] {
	i, ok := l.position(key)
	if !ok || n <= 0 {
		return l
	}
	return l.with(i, l.counts[i]+n)
}

// Subtract returns a ledger with one less of key, never below zero.
func (l Ledger[K]) Subtract(key K) Ledger[K] {
	i, ok := l.position(key)
	if !ok {
		return l
	}
	return l.with(i, l.counts[i]-1)
}

// Quantity returns the count for key, or 0 if key is not in the set.
func (l Ledger[K]) Quantity(key K) int {
	i, ok := l.position(key)
	if !ok {
		return 0
	}
	return l.counts[i]
}

// =============================================================================
// WHOLE-LEDGER OPERATIONS
// =============================================================================

// Merge returns a ledger holding, for every key of l, the sum of both counts.
// Keys that only other knows about are dropped.
func (l Ledger[K]) Merge(other Ledger[K]) Ledger[K] {
	if other.IsEmpty() {
		return l
	}
	counts := make([]int, len(l.counts))
	for i, k := range l.keys {
		counts[i] = l.counts[i] + other.Quantity(k)
	}
	return Ledger[K]{keys: l.keys, counts: counts}
}

// SubtractAll returns a ledger with other's counts removed key by key.
// Each key floors at zero independently of the others.
func (l Ledger[K]) SubtractAll(other Ledger[K]) Ledger[K] {
	if other.IsEmpty() {
		return l
	}
	counts := make([]int, len(l.counts))
	for i, k := range l.keys {
		remaining := l.counts[i] - other.Quantity(k)
		if remaining < 0 {
			remaining = 0
		}
		counts[i] = remaining
	}
	return Ledger[K]{keys: l.keys, counts: counts}
}

// =============================================================================
// INSPECTION
// =============================================================================

// Keys returns the key set in construction order.
func (l Ledger[K]) Keys() []K {
	keys := make([]K, len(l.keys))
	copy(keys, l.keys)
	return keys
}

// Counts returns a copy of every key's count, zero counts included.
func (l Ledger[K]) Counts() map[K]int {
	out := make(map[K]int, len(l.keys))
	for i, k := range l.keys {
		out[k] = l.counts[i]
	}
	return out
}

// Len returns the size of the key set.
func (l Ledger[K]) Len() int { return len(l.keys) }

// Total returns the sum of all counts.
func (l Ledger[K]) Total() int {
	total := 0
	for _, c := range l.counts {
		total += c
	}
	return total
}

// IsEmpty reports whether every count is zero.
func (l Ledger[K]) IsEmpty() bool { return l.Total() == 0 }

// Equal reports whether both ledgers hold the same count for every key
// either of them knows about.
func (l Ledger[K]) Equal(other Ledger[K]) bool {
	for _, k := range l.keys {
		if l.Quantity(k) != other.Quantity(k) {
			return false
		}
	}
	for _, k := range other.keys {
		if l.Quantity(k) != other.Quantity(k) {
			return false
		}
	}
	return true
}
