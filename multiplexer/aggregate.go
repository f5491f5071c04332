package multiplexer

import "strings"

// LabelSeparator joins a backend name and a key in aggregated results.
const LabelSeparator = ": "

// Label tags key with the name of the backend it came from.
func Label(name, key string) string {
	return name + LabelSeparator + key
}

// SplitLabel splits an aggregated entry back into backend name and key.
// Nested multiplexers produce entries such as "outer: inner: key"; only the
// outermost name is split off.
func SplitLabel(entry string) (name, key string, ok bool) {
	return strings.Cut(entry, LabelSeparator)
}

// aggregate concatenates per-backend results in registration order, labelling
// every entry with its backend name.
func (m *Multiplexer) aggregate(results [][]string) []string {
	total := 0
	for _, keys := range results {
		total += len(keys)
	}

	out := make([]string, 0, total)
	for i, keys := range results {
		name := m.backends[i].Name
		for _, key := range keys {
			out = append(out, Label(name, key))
		}
	}
	return out
}
