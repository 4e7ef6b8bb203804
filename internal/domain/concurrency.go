package domain

import (
	"slices"
	"sort"
	"time"
)

// MaxConcurrentOpen returns the largest number of issues that were open at
// the same instant. An issue closed at exactly the time another opens does
// not overlap it. The input is not modified and may be in any order.
func MaxConcurrentOpen(intervals []Interval) int {
	sorted := slices.Clone(intervals)
	SortIntervals(sorted)

	var (
		pending     []time.Time // close times of open issues, ascending
		neverCloses int
		best        int
	)
	for _, iv := range sorted {
		// First close strictly after this open; everything before it has
		// already closed.
		keep := sort.Search(len(pending), func(i int) bool {
			return pending[i].After(iv.Opened)
		})
		pending = pending[keep:]

		if iv.Closed == nil {
			neverCloses++
		} else {
			at := sort.Search(len(pending), func(i int) bool {
				return pending[i].After(*iv.Closed)
			})
			pending = slices.Insert(pending, at, *iv.Closed)
		}

		if open := len(pending) + neverCloses; open > best {
			best = open
		}
	}
	return best
}

// SortIntervals orders intervals by opened time, then closed time, with
// open-ended intervals last among equal opened times.
func SortIntervals(intervals []Interval) {
	slices.SortStableFunc(intervals, compareIntervals)
}

func compareIntervals(a, b Interval) int {
	if c := a.Opened.Compare(b.Opened); c != 0 {
		return c
	}
	switch {
	case a.Closed == nil && b.Closed == nil:
		return 0
	case a.Closed == nil:
		return 1
	case b.Closed == nil:
		return -1
	}
	return a.Closed.Compare(*b.Closed)
}
