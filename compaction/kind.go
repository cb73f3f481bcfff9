package compaction

import (
	"fmt"
	"strings"
)

// Kind is the reason a compaction is being planned.
type Kind int

const (
	// System compactions are started automatically and gated by the ratio.
	System Kind = iota
	// User compactions were requested explicitly and must eventually compact
	// every candidate file.
	User
	// Selector compactions are driven by a file selector configured on the
	// table. They share User's obligation to compact every candidate.
	Selector
	// Chop compactions trim files to the tablet's range. Like User they must
	// reach every candidate, but they never widen a ratio group.
	Chop
)

var kindNames = map[Kind]string{
	System:   "SYSTEM",
	User:     "USER",
	Selector: "SELECTOR",
	Chop:     "CHOP",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MustCompactAll reports whether jobs of this kind must eventually include
// every candidate file, even when the ratio is never met.
func (k Kind) MustCompactAll() bool {
	return k == User || k == Selector || k == Chop
}

// LooksAhead reports whether a partial group should grow to every candidate
// when its output would not be compacted with the rest.
func (k Kind) LooksAhead() bool {
	return k == User || k == Selector
}

// ParseKind accepts a kind name in any case.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown compaction kind %q", s)
}
