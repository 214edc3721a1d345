package models

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

const matchTimeout = 100 * time.Millisecond

// Matcher selects worksheets by display name. Patterns are case-insensitive
// and may use lookaround, e.g. `^ws(?!.*young)`.
type Matcher struct {
	pattern string
	re      *regexp2.Regexp
}

// NewMatcher compiles pattern into a Matcher.
func NewMatcher(pattern string) (Matcher, error) {
	re, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		return Matcher{}, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	re.MatchTimeout = matchTimeout
	return Matcher{pattern: pattern, re: re}, nil
}

// MustMatcher is NewMatcher for patterns known at compile time.
func MustMatcher(pattern string) Matcher {
	m, err := NewMatcher(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// Match reports whether title matches. A zero Matcher matches nothing.
func (m Matcher) Match(title string) bool {
	if m.re == nil {
		return false
	}
	ok, err := m.re.MatchString(title)
	return err == nil && ok
}

func (m Matcher) String() string { return m.pattern }

// AgeBand binds an inclusive age range to the worksheet that holds it.
type AgeBand struct {
	Name    string  `json:"name"`
	Pattern Matcher `json:"-"`
	MinAge  int     `json:"minAge"`
	MaxAge  int     `json:"maxAge"`
}

// Progression is the ordered band list, youngest first, plus the worksheet
// titles that are never a source or a destination.
type Progression struct {
	Bands    []AgeBand
	Excluded []string
}

// IsExcluded reports whether title is one of the administrative worksheets.
func (p Progression) IsExcluded(title string) bool {
	for _, e := range p.Excluded {
		if e == title {
			return true
		}
	}
	return false
}

// DefaultProgression returns the school's standard band layout.
func DefaultProgression() Progression {
	return Progression{
		Bands: []AgeBand{
			{Name: "Young WS", Pattern: MustMatcher(`young ws|young w/i`), MinAge: 6, MaxAge: 8},
			{Name: "WS", Pattern: MustMatcher(`^ws(?!.*young)`), MinAge: 9, MaxAge: 11},
			{Name: "Young Victor", Pattern: MustMatcher(`young victor`), MinAge: 12, MaxAge: 14},
			{Name: "Victor", Pattern: MustMatcher(`^victor(?!.*young)`), MinAge: 15, MaxAge: 17},
		},
		Excluded: []string{"ALL STUDENTS", "NEW STUDENTS", "Sheet4"},
	}
}
