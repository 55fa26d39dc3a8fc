package store

// Stats holds store statistics.
type Stats struct {
	Backend   string `json:"backend" yaml:"backend"`
	Records   int    `json:"records" yaml:"records"`
	Allocated uint64 `json:"allocated" yaml:"allocated"`
	NextID    string `json:"next_id" yaml:"next_id"`
}

// Removed returns how many allocated ids no longer have a record.
func (s *Stats) Removed() uint64 {
	if uint64(s.Records) > s.Allocated {
		return 0
	}
	return s.Allocated - uint64(s.Records)
}
