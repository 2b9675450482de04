package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type page struct {
	start, end int
	ok         bool
}

func nextPage(p *pager, user int64, total int) page {
	start, end, ok := p.Next(user, total)
	return page{start, end, ok}
}

func TestPager_SkipsShownGameAndResets(t *testing.T) {
	p := newPager(3)

	assert.Equal(t, page{1, 4, true}, nextPage(p, 1, 8))
	assert.Equal(t, page{4, 7, true}, nextPage(p, 1, 8))
	assert.Equal(t, page{7, 8, true}, nextPage(p, 1, 8))
	// a short last page resets paging
	assert.Equal(t, page{1, 4, true}, nextPage(p, 1, 8))
}

func TestPager_NothingLeft(t *testing.T) {
	p := newPager(3)
	assert.Equal(t, page{0, 0, false}, nextPage(p, 1, 1))
	assert.Equal(t, page{0, 0, false}, nextPage(p, 1, 0))
}

func TestPager_ExactLastPage(t *testing.T) {
	p := newPager(3)
	assert.Equal(t, page{1, 4, true}, nextPage(p, 1, 4))
	assert.Equal(t, page{1, 4, true}, nextPage(p, 1, 4))
}

func TestPager_PerUserAndReset(t *testing.T) {
	p := newPager(3)
	assert.Equal(t, page{1, 4, true}, nextPage(p, 1, 10))
	assert.Equal(t, page{1, 4, true}, nextPage(p, 2, 10))
	assert.Equal(t, page{4, 7, true}, nextPage(p, 1, 10))

	p.Reset(1)
	assert.Equal(t, page{1, 4, true}, nextPage(p, 1, 10))
}
