package main

import "sync"

// pager tracks how far each user has paged through the upcoming games list.
// The first page starts at index 1 because the matches menu already shows
// the nearest game.
type pager struct {
	mu       sync.Mutex
	pageSize int
	offsets  map[int64]int
}

func newPager(pageSize int) *pager {
	return &pager{pageSize: pageSize, offsets: make(map[int64]int)}
}

// Reset starts the user's paging from the beginning.
func (p *pager) Reset(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.offsets, userID)
}

// Next returns the bounds [start, end) of the user's next page within a list
// of total items. ok is false when nothing is left; paging then restarts.
func (p *pager) Next(userID int64, total int) (start, end int, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	offset := p.offsets[userID]
	if offset == 0 {
		offset = 1
	} else {
		offset += p.pageSize
	}
	if offset >= total {
		delete(p.offsets, userID)
		return 0, 0, false
	}
	end = min(offset+p.pageSize, total)
	if end >= total {
		delete(p.offsets, userID)
	} else {
		p.offsets[userID] = offset
	}
	return offset, end, true
}
