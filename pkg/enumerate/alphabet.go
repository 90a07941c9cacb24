package enumerate

// DefaultAlphabet returns the ordered filter cover: the empty filter
// first (it yields the bulk of the collection up to the cap), then each
// lowercase letter, then each digit. Order matters only for reproducible
// progress reporting; the merged result is order-independent.
func DefaultAlphabet() []string {
	filters := make([]string, 0, 37)
	filters = append(filters, "")
	for c := 'a'; c <= 'z'; c++ {
		filters = append(filters, string(c))
	}
	for c := '0'; c <= '9'; c++ {
		filters = append(filters, string(c))
	}
	return filters
}

// NormalizeAlphabet deduplicates a custom filter alphabet and guarantees
// the empty filter is attempted first, prepending it when absent.
// Returns the default alphabet for an empty input.
func NormalizeAlphabet(filters []string) []string {
	if len(filters) == 0 {
		return DefaultAlphabet()
	}

	seen := make(map[string]struct{}, len(filters)+1)
	normalized := make([]string, 0, len(filters)+1)

	normalized = append(normalized, "")
	seen[""] = struct{}{}

	for _, f := range filters {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		normalized = append(normalized, f)
	}

	return normalized
}
