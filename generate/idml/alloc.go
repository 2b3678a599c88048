package idml

import "strconv"

// Entity classes the allocator hands out identifiers for.
type idClass int

const (
	classSpread idClass = iota
	classPage
	classStory
	classFrame
	classCount
)

// Generated identifiers live in their own "g" namespace so they can never be
// mistaken for InDesign's own "u"-prefixed ones. Collisions with template
// identifiers are still checked against the introspected reserved set instead
// of being assumed away.
var classPrefixes = [classCount]string{"gs", "gp", "gt", "gf"}

// allocator produces package-scoped unique identifiers. Counters are owned by
// the instance: independent generation runs never share identifier state.
type allocator struct {
	counters [classCount]int
	reserved map[string]struct{}
}

func newAllocator(reserved map[string]struct{}) *allocator {
	return &allocator{reserved: reserved}
}

// next returns a fresh identifier for the class, skipping anything the
// template already uses.
func (a *allocator) next(c idClass) string {
	for {
		a.counters[c]++
		id := classPrefixes[c] + strconv.Itoa(a.counters[c])
		if _, taken := a.reserved[id]; !taken {
			return id
		}
	}
}
