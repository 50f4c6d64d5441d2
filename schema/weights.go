package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/multierr"
)

// WeightEntry is one dimension's share of the composite.
type WeightEntry struct {
	Key   DimensionKey `json:"key" yaml:"key"`
	Value int          `json:"value" yaml:"value"`
}

// WeightSet is an ordered set of dimension weights. The order is the
// framework's dimension order and drives remainder distribution when the set
// is rebalanced. A WeightSet is immutable: every mutation returns a copy.
type WeightSet struct {
	entries []WeightEntry
}

// NewWeightSet builds a set from entries in the given order.
func NewWeightSet(entries ...WeightEntry) WeightSet {
	return WeightSet{entries: slices.Clone(entries)}
}

// Len returns the number of dimensions in the set.
func (w WeightSet) Len() int {
	return len(w.entries)
}

// Keys returns the dimension keys in order.
func (w WeightSet) Keys() []DimensionKey {
	keys := make([]DimensionKey, 0, len(w.entries))
	for _, e := range w.entries {
		keys = append(keys, e.Key)
	}
	return keys
}

// Entries returns a copy of the ordered entries.
func (w WeightSet) Entries() []WeightEntry {
	return slices.Clone(w.entries)
}

// Get returns the weight for key.
func (w WeightSet) Get(key DimensionKey) (int, bool) {
	if i := w.index(key); i >= 0 {
		return w.entries[i].Value, true
	}
	return 0, false
}

// Sum returns the total of all weights.
func (w WeightSet) Sum() int {
	total := 0
	for _, e := range w.entries {
		total += e.Value
	}
	return total
}

// Map returns the weights keyed by dimension.
func (w WeightSet) Map() map[DimensionKey]int {
	out := make(map[DimensionKey]int, len(w.entries))
	for _, e := range w.entries {
		out[e.Key] = e.Value
	}
	return out
}

// Equal reports whether both sets hold the same entries in the same order.
func (w WeightSet) Equal(other WeightSet) bool {
	return slices.Equal(w.entries, other.entries)
}

// IsValid reports whether the set is non-empty, every weight is within
// [0, 100] and the weights sum to exactly 100.
func (w WeightSet) IsValid() bool {
	return w.Validate() == nil
}

// Validate returns every reason the set is not valid.
func (w WeightSet) Validate() error {
	if len(w.entries) == 0 {
		return errors.New("weights are empty")
	}
	var err error
	seen := make(map[DimensionKey]struct{}, len(w.entries))
	for _, e := range w.entries {
		if _, dup := seen[e.Key]; dup {
			err = multierr.Append(err, fmt.Errorf("duplicate weight for %s", e.Key))
		}
		seen[e.Key] = struct{}{}
		if e.Value < MinWeight || e.Value > MaxWeight {
			err = multierr.Append(err, fmt.Errorf("%w: %s=%d", ErrWeightOutOfRange, e.Key, e.Value))
		}
	}
	if sum := w.Sum(); sum != WeightTotal {
		err = multierr.Append(err, fmt.Errorf("weights sum to %d, want %d", sum, WeightTotal))
	}
	return err
}

// SetWeight returns a new set with key changed to value and the other
// dimensions shifted so the total is 100 again.
//
// The difference is split evenly across the other dimensions using floor
// division; the remainder goes one point each to the first dimensions in set
// order. Any dimension pushed outside [0, 100] is clamped and the excess is
// spread over the dimensions that still have room. When that happens the
// valid set is returned together with an *UnbalancedWeightsError.
func (w WeightSet) SetWeight(key DimensionKey, value int) (WeightSet, error) {
	idx := w.index(key)
	if idx < 0 {
		return w, fmt.Errorf("%w: %q", ErrUnknownDimension, key)
	}
	if value < MinWeight || value > MaxWeight {
		return w, fmt.Errorf("%w: %s=%d", ErrWeightOutOfRange, key, value)
	}

	next := NewWeightSet(w.entries...)
	next.entries[idx].Value = value

	others := make([]int, 0, len(next.entries)-1)
	sumOthers := 0
	for i, e := range next.entries {
		if i != idx {
			others = append(others, i)
			sumOthers += e.Value
		}
	}

	if len(others) == 0 {
		if value == WeightTotal {
			return next, nil
		}
		next.entries[idx].Value = WeightTotal
		return next, &UnbalancedWeightsError{Dimension: key, Requested: value, Clamped: []DimensionKey{key}, Weights: next}
	}

	spread(next.entries, others, WeightTotal-(value+sumOthers))
	if clamped := settle(next.entries, others, WeightTotal-value); len(clamped) > 0 {
		return next, &UnbalancedWeightsError{Dimension: key, Requested: value, Clamped: clamped, Weights: next}
	}
	return next, nil
}

func (w WeightSet) index(key DimensionKey) int {
	return slices.IndexFunc(w.entries, func(e WeightEntry) bool { return e.Key == key })
}

// spread adds diff across the entries at idx: floor(diff/n) each, plus one
// for the first diff mod n entries.
func spread(entries []WeightEntry, idx []int, diff int) {
	n := len(idx)
	share := floorDiv(diff, n)
	rem := diff - share*n
	for pos, i := range idx {
		entries[i].Value += share
		if pos < rem {
			entries[i].Value++
		}
	}
}

// settle clamps the entries at idx into range and redistributes whatever the
// clamping removed until they sum to target. Each pass either converges or
// pins at least one more entry to a bound, so len(idx)+1 passes suffice.
func settle(entries []WeightEntry, idx []int, target int) []DimensionKey {
	clamped := make(map[int]bool)
	for range len(idx) + 1 {
		sum := 0
		for _, i := range idx {
			switch {
			case entries[i].Value < MinWeight:
				entries[i].Value = MinWeight
				clamped[i] = true
			case entries[i].Value > MaxWeight:
				entries[i].Value = MaxWeight
				clamped[i] = true
			}
			sum += entries[i].Value
		}

		residual := target - sum
		if residual == 0 {
			break
		}
		var room []int
		for _, i := range idx {
			if (residual < 0 && entries[i].Value > MinWeight) || (residual > 0 && entries[i].Value < MaxWeight) {
				room = append(room, i)
			}
		}
		if len(room) == 0 {
			break
		}
		spread(entries, room, residual)
	}

	var keys []DimensionKey
	for _, i := range idx {
		if clamped[i] {
			keys = append(keys, entries[i].Key)
		}
	}
	return keys
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// MarshalJSON writes the set as an object whose keys keep set order.
func (w WeightSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range w.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(e.Key))
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", e.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of weights, keeping the document order.
func (w *WeightSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("weights must be a JSON object")
	}
	var entries []WeightEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected weight key %v", tok)
		}
		var value int
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("weight %s: %w", key, err)
		}
		entries = append(entries, WeightEntry{Key: DimensionKey(key), Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	w.entries = entries
	return nil
}
