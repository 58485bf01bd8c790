package graphsync

import "sort"

// Diff is the set of subscriptions to open and close so that the live set
// matches the current point ids.
type Diff struct {
	Open  []string
	Close []string
}

// Empty reports whether the diff changes nothing.
func (d Diff) Empty() bool {
	return len(d.Open) == 0 && len(d.Close) == 0
}

// Reconcile computes the diff from the current subscribed ids to the next
// point ids. Open follows the order of next; Close is sorted. Duplicates in
// either input are ignored.
func Reconcile(current, next []string) Diff {
	want := make(map[string]struct{}, len(next))
	for _, id := range next {
		want[id] = struct{}{}
	}
	have := make(map[string]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}

	diff := Diff{Open: make([]string, 0), Close: make([]string, 0)}
	for id := range have {
		if _, ok := want[id]; !ok {
			diff.Close = append(diff.Close, id)
		}
	}
	sort.Strings(diff.Close)

	opened := make(map[string]struct{})
	for _, id := range next {
		if _, ok := have[id]; ok {
			continue
		}
		if _, dup := opened[id]; dup {
			continue
		}
		opened[id] = struct{}{}
		diff.Open = append(diff.Open, id)
	}
	return diff
}
