package validation

import "sort"

// ErrorMap associates a batch position with the errors accumulated for the
// entity at that position, in the order they were reported.
type ErrorMap map[int][]*Error

// Populate appends err to the entity's error list, creating it if absent.
// Repeated calls simply append; nothing is deduplicated.
func Populate(m ErrorMap, index int, err *Error) {
	m[index] = append(m[index], err)
}

// Merge appends every error of other into m, preserving per-entity order.
func (m ErrorMap) Merge(other ErrorMap) {
	for idx, errs := range other {
		m[idx] = append(m[idx], errs...)
	}
}

// Indexes returns the failing positions in ascending order.
func (m ErrorMap) Indexes() []int {
	out := make([]int, 0, len(m))
	for idx, errs := range m {
		if len(errs) > 0 {
			out = append(out, idx)
		}
	}
	sort.Ints(out)
	return out
}

// Has reports whether the entity at index has any error.
func (m ErrorMap) Has(index int) bool {
	return len(m[index]) > 0
}

// Codes lists the error codes reported for the entity at index.
func (m ErrorMap) Codes(index int) []string {
	errs := m[index]
	codes := make([]string, 0, len(errs))
	for _, e := range errs {
		codes = append(codes, e.Code)
	}
	return codes
}

// Count returns the total number of errors across all entities.
func (m ErrorMap) Count() int {
	n := 0
	for _, errs := range m {
		n += len(errs)
	}
	return n
}

// terminal reports whether any error at index halts further processing.
func terminal(errs []*Error) bool {
	for _, e := range errs {
		if !e.Recoverable() {
			return true
		}
	}
	return false
}
