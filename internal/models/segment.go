package models

// Instance is one site in a multiple-instance deployment
type Instance struct {
	ID        int    `json:"id" db:"id"`
	Shortname string `json:"shortname" db:"shortname"`
	Title     string `json:"title" db:"title"`
}

// Segment is a named subset of mailing list subscribers
type Segment struct {
	ID                int       `json:"id" db:"id"`
	Title             string    `json:"title" db:"title"`
	Shortname         string    `json:"shortname" db:"shortname"`
	CachedSegmentSize int       `json:"cached_segment_size" db:"cached_segment_size"`
	InstanceID        *int      `json:"instance,omitempty" db:"instance"`
	DisplayOrder      int       `json:"displayorder" db:"displayorder"`
	Instance          *Instance `json:"-"`
}

// HasSubscribers reports whether sending to the segment reaches anyone
func (s *Segment) HasSubscribers() bool {
	return s.CachedSegmentSize > 0
}
