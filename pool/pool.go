// Package pool implements a paged fixed-size block allocator.
//
// Blocks live in pages of a fixed number of slots. Pages are committed on
// demand and decommitted (released to the garbage collector) once every block
// in them is freed. Allocation always takes the lowest-indexed page with a free
// slot so that high-index pages drain and become decommit-eligible, and
// Compact moves survivors out of sparse pages explicitly.
//
// A single mutex guards the pool. Allocation churn is expected at load and
// transition time, not per frame.
package pool

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/woozymasta/matsys/internal/bitvec"
)

// DefaultPageSize is the number of blocks per page used when none is given.
const DefaultPageSize = 256

// Pool allocates *T blocks from paged storage.
type Pool[T any] struct {
	mu       sync.Mutex
	pageSize int
	pages    []*page[T]      // nil entries are decommitted slots
	loc      map[*T]location // live block locations
}

type page[T any] struct {
	blocks []T
	used   bitvec.V
}

type location struct {
	page, slot int
}

// Stats reports pool occupancy.
type Stats struct {
	Pages     int `json:"pages" yaml:"pages"`         // Page slots, committed or not
	Committed int `json:"committed" yaml:"committed"` // Committed pages
	Live      int `json:"live" yaml:"live"`           // Allocated blocks
	Capacity  int `json:"capacity" yaml:"capacity"`   // Blocks in committed pages
}

// New returns a pool with pageSize blocks per page (DefaultPageSize if <= 0).
func New[T any](pageSize int) *Pool[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Pool[T]{pageSize: pageSize, loc: make(map[*T]location)}
}

// Alloc returns a zeroed block.
func (p *Pool[T]) Alloc() *T {
	p.mu.Lock()
	defer p.mu.Unlock()

	pi := -1
	for i, pg := range p.pages {
		if pg != nil && pg.used.Rem() > 0 {
			pi = i
			break
		}
	}
	if pi < 0 {
		pi = p.commitLocked()
	}

	pg := p.pages[pi]
	si, _ := pg.used.Search()
	pg.used.Set(si)
	b := &pg.blocks[si]
	p.loc[b] = location{pi, si}

	return b
}

// commitLocked commits the lowest decommitted page slot, or appends a page.
func (p *Pool[T]) commitLocked() int {
	pg := &page[T]{blocks: make([]T, p.pageSize), used: bitvec.New(p.pageSize)}
	for i, old := range p.pages {
		if old == nil {
			p.pages[i] = pg
			return i
		}
	}
	p.pages = append(p.pages, pg)

	return len(p.pages) - 1
}

// Free returns b to the pool. The block is zeroed; freeing a block the pool
// did not hand out panics.
func (p *Pool[T]) Free(b *T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.loc[b]
	if !ok {
		panic(fmt.Sprintf("pool: free of unknown block %p", b))
	}
	delete(p.loc, b)

	pg := p.pages[l.page]
	var zero T
	pg.blocks[l.slot] = zero
	pg.used.Unset(l.slot)

	if pg.used.Count() == 0 && p.committedLocked() > 1 {
		p.pages[l.page] = nil
	}
}

// Contains reports whether b is a live block of this pool.
func (p *Pool[T]) Contains(b *T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.loc[b]
	return ok
}

// Compact moves live blocks out of the sparsest pages into the fullest ones
// and decommits every page left empty. relocate is called after each block is
// copied so the owner can repoint its references; the source block is zeroed
// after relocate returns. Compact returns the number of moved blocks.
func (p *Pool[T]) Compact(relocate func(from, to *T)) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	order := make([]int, 0, len(p.pages))
	for i, pg := range p.pages {
		if pg != nil {
			order = append(order, i)
		}
	}
	// Fullest first; ties keep low-index pages as destinations.
	slices.SortStableFunc(order, func(a, b int) int {
		if c := cmp.Compare(p.pages[b].used.Count(), p.pages[a].used.Count()); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	moved := 0
	dst, src := 0, len(order)-1
	for dst < src {
		dp, sp := p.pages[order[dst]], p.pages[order[src]]
		if dp.used.Rem() == 0 {
			dst++
			continue
		}
		if sp.used.Count() == 0 {
			src--
			continue
		}

		si := firstSet(&sp.used)
		di, _ := dp.used.Search()
		from, to := &sp.blocks[si], &dp.blocks[di]

		*to = *from
		dp.used.Set(di)
		p.loc[to] = location{order[dst], di}
		delete(p.loc, from)
		if relocate != nil {
			relocate(from, to)
		}

		var zero T
		*from = zero
		sp.used.Unset(si)
		moved++
	}

	for i, pg := range p.pages {
		if pg != nil && pg.used.Count() == 0 {
			p.pages[i] = nil
		}
	}
	// Trailing decommitted slots carry no state.
	for len(p.pages) > 0 && p.pages[len(p.pages)-1] == nil {
		p.pages = p.pages[:len(p.pages)-1]
	}

	return moved
}

// Stats reports current occupancy.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{Pages: len(p.pages), Live: len(p.loc)}
	for _, pg := range p.pages {
		if pg != nil {
			s.Committed++
			s.Capacity += len(pg.blocks)
		}
	}

	return s
}

// Reset frees every block and decommits every page.
func (p *Pool[T]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pages = nil
	clear(p.loc)
}

func (p *Pool[T]) committedLocked() int {
	n := 0
	for _, pg := range p.pages {
		if pg != nil {
			n++
		}
	}

	return n
}

func firstSet(v *bitvec.V) int {
	for i := range v.SetBits() {
		return i
	}

	return -1
}
