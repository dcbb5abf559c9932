// Package linkmode implements the wM-Bus PHY link-mode bitset: C1, T1, S1,
// S1m, N1a..N1f, and the Any pseudo-mode.
package linkmode

import (
	"fmt"
	"sort"
	"strings"
)

// Mode names a single wM-Bus PHY profile.
type Mode int

const (
	C1 Mode = iota
	T1
	S1
	S1m
	N1a
	N1b
	N1c
	N1d
	N1e
	N1f
	numModes
)

// Any names the "any" pseudo-mode. It lies outside the bitset: Add ignores
// it and Has reports false for it; Parse("any") and All return the set of
// every known mode.
const Any = numModes

var names = [...]string{
	C1: "c1", T1: "t1", S1: "s1", S1m: "s1m",
	N1a: "n1a", N1b: "n1b", N1c: "n1c", N1d: "n1d", N1e: "n1e", N1f: "n1f",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(names) {
		return "unknown"
	}
	return names[m]
}

// Set is a bitset over Mode.
type Set uint16

// Of builds a Set from the given modes.
func Of(modes ...Mode) Set {
	var s Set
	for _, m := range modes {
		s = s.Add(m)
	}
	return s
}

// All matches every known mode.
func All() Set {
	var s Set
	for m := Mode(0); m < numModes; m++ {
		s = s.Add(m)
	}
	return s
}

// Add returns s with m set.
func (s Set) Add(m Mode) Set {
	if m < 0 || int(m) >= int(numModes) {
		return s
	}
	return s | (1 << uint(m))
}

// Has reports whether m is a member of s.
func (s Set) Has(m Mode) bool {
	if m < 0 || int(m) >= int(numModes) {
		return false
	}
	return s&(1<<uint(m)) != 0
}

// Union returns the union of s and other.
func (s Set) Union(other Set) Set {
	return s | other
}

// Intersect returns the intersection of s and other.
func (s Set) Intersect(other Set) Set {
	return s & other
}

// Empty reports whether the set has no members.
func (s Set) Empty() bool {
	return s == 0
}

// Subset reports whether s is a subset of other (every mode in s is in other).
func (s Set) Subset(other Set) bool {
	return s&other == s
}

// Modes returns the member modes in ascending order.
func (s Set) Modes() []Mode {
	var out []Mode
	for m := Mode(0); m < numModes; m++ {
		if s.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

// String renders the set as a sorted comma-separated list, e.g. "c1,t1".
func (s Set) String() string {
	if s.Empty() {
		return ""
	}
	var parts []string
	for _, m := range s.Modes() {
		parts = append(parts, m.String())
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// Parse parses a comma-separated list of link-mode names, e.g. "c1,t1", or
// the literal "any" for every known mode.
func Parse(s string) (Set, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.EqualFold(s, "any") {
		return All(), nil
	}
	var set Set
	for _, tok := range strings.Split(s, ",") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		m, ok := lookup(tok)
		if !ok {
			return 0, fmt.Errorf("linkmode: unknown link mode %q", tok)
		}
		set = set.Add(m)
	}
	return set, nil
}

func lookup(tok string) (Mode, bool) {
	for i, n := range names {
		if n == tok {
			return Mode(i), true
		}
	}
	return 0, false
}
