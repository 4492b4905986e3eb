package web

import "time"

// ChainDoodle is one drawing on the chain page.
type ChainDoodle struct {
	ID         string
	Artist     string
	ParentID   string
	TailLength int
	ImageURL   string
	CreatedAt  time.Time
}

type ChainPage struct {
	RootID  string
	Doodles []ChainDoodle
}

func (p ChainPage) Artists() int {
	seen := make(map[string]bool, len(p.Doodles))
	for _, d := range p.Doodles {
		seen[d.Artist] = true
	}
	return len(seen)
}
