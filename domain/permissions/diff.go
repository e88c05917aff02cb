package permissions

import (
	"cmp"
	"slices"
)

// MembershipDiff is the set of changes that turns current into desired.
type MembershipDiff[T cmp.Ordered] struct {
	ToAdd    []T
	ToRemove []T
}

// Empty reports whether no changes are needed.
func (d MembershipDiff[T]) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// Diff computes desired − current and current − desired. Duplicates are
// ignored and both outputs are sorted ascending.
func Diff[T cmp.Ordered](current, desired []T) MembershipDiff[T] {
	cur := toSet(current)
	want := toSet(desired)

	var d MembershipDiff[T]
	for v := range want {
		if _, ok := cur[v]; !ok {
			d.ToAdd = append(d.ToAdd, v)
		}
	}
	for v := range cur {
		if _, ok := want[v]; !ok {
			d.ToRemove = append(d.ToRemove, v)
		}
	}
	slices.Sort(d.ToAdd)
	slices.Sort(d.ToRemove)
	return d
}

// Apply returns (current ∪ ToAdd) − ToRemove, sorted.
func (d MembershipDiff[T]) Apply(current []T) []T {
	set := toSet(current)
	for _, v := range d.ToAdd {
		set[v] = struct{}{}
	}
	for _, v := range d.ToRemove {
		delete(set, v)
	}
	out := make([]T, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

func toSet[T comparable](vals []T) map[T]struct{} {
	set := make(map[T]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	return set
}
