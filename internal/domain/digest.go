package domain

import "cloud.google.com/go/civil"

// Digest is the per-user daily summary. Overdue and Upcoming are ordered by
// due date ascending; Upcoming is capped by the aggregator.
type Digest struct {
	Date     civil.Date
	Overdue  []*Task
	DueToday []*Task
	Upcoming []*Task
}

// IsEmpty reports whether all three buckets are empty. Empty digests are
// never sent.
func (d *Digest) IsEmpty() bool {
	return d == nil || len(d.Overdue)+len(d.DueToday)+len(d.Upcoming) == 0
}
