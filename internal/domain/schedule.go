package domain

// SplitByLimit partitions slugs into an active window of at most limit
// entries and a FIFO wait queue. Input order is preserved.
// A limit below 1 is treated as 1.
func SplitByLimit(slugs []string, limit int) (active, queued []string) {
	if limit < 1 {
		limit = 1
	}
	if limit > len(slugs) {
		limit = len(slugs)
	}
	active = append([]string{}, slugs[:limit]...)
	queued = append([]string{}, slugs[limit:]...)
	return active, queued
}

// Schedule tracks which features occupy a concurrency slot and which wait.
type Schedule struct {
	Active []string
	Queued []string
	Limit  int
}

// NewSchedule builds a schedule from slugs using SplitByLimit.
func NewSchedule(slugs []string, limit int) *Schedule {
	if limit < 1 {
		limit = 1
	}
	active, queued := SplitByLimit(slugs, limit)
	return &Schedule{Active: active, Queued: queued, Limit: limit}
}

// Promote moves queued features into free slots in FIFO order and returns
// the newly promoted slugs. Calling it again without a Finish is a no-op.
func (s *Schedule) Promote() []string {
	var promoted []string
	for len(s.Active) < s.Limit && len(s.Queued) > 0 {
		next := s.Queued[0]
		s.Queued = s.Queued[1:]
		s.Active = append(s.Active, next)
		promoted = append(promoted, next)
	}
	return promoted
}

// Finish frees the slot held by slug.
func (s *Schedule) Finish(slug string) {
	for i, a := range s.Active {
		if a == slug {
			s.Active = append(s.Active[:i:i], s.Active[i+1:]...)
			return
		}
	}
}

// Done reports whether nothing is active or queued.
func (s *Schedule) Done() bool {
	return len(s.Active) == 0 && len(s.Queued) == 0
}
