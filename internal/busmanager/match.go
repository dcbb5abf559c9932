package busmanager

import "github.com/wmbus-tools/wmbusgw/internal/devicespec"

// Match pairs one auto-detected ProbeResult with the user SpecifiedDevice it
// satisfies, or nil if the result matched no declared spec (a fully
// auto-discovered device: "auto" or a bare type token with no id).
type Match struct {
	Result ProbeResult
	Spec   *devicespec.SpecifiedDevice
}

// MatchResults implements spec §4.4's two-pass matching: first pass matches
// exact (type, id); second pass matches (type, id=="") in declaration order.
// Each spec is matched at most once; results with no matching spec are
// still returned (auto-discovered, unassigned to any bus_alias).
func MatchResults(results []ProbeResult, specs []devicespec.SpecifiedDevice) []Match {
	var handled = make([]bool, len(specs))
	var matches = make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{Result: r}
	}

	// First pass: exact (type, id) match.
	for i, r := range results {
		if matches[i].Spec != nil || r.ID == "" {
			continue
		}
		for j := range specs {
			if handled[j] {
				continue
			}
			if specs[j].Type == r.Type && specs[j].ID == r.ID {
				matches[i].Spec = &specs[j]
				handled[j] = true
				break
			}
		}
	}

	// Second pass: (type, id=="") match, in declaration order.
	for i, r := range results {
		if matches[i].Spec != nil {
			continue
		}
		for j := range specs {
			if handled[j] {
				continue
			}
			if specs[j].Type == r.Type && specs[j].ID == "" {
				matches[i].Spec = &specs[j]
				handled[j] = true
				break
			}
		}
	}

	return matches
}
