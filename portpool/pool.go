// (c) Siemens AG 2025
//
// SPDX-License-Identifier: MIT

package portpool

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slices"
)

// ErrExhausted is returned by [Pool.Allocate] when no free block is left in
// the configured range. This is a capacity condition to be reported to the
// caller, not a reason to terminate.
var ErrExhausted = errors.New("no free port block left in pool")

// Range describes the inclusive host port range blocks are carved out of,
// together with the fixed size of each block. A Range is immutable
// configuration for the lifetime of a process.
type Range struct {
	Start     int // first usable port.
	End       int // last usable port, inclusive.
	BlockSize int // ports per block.
}

// Validate returns an error if this range cannot yield even a single block.
func (r Range) Validate() error {
	if r.BlockSize <= 0 {
		return fmt.Errorf("port block size must be positive, got %d", r.BlockSize)
	}
	if r.Start <= 0 || r.End <= 0 || r.Start > r.End {
		return fmt.Errorf("invalid port range [%d,%d]", r.Start, r.End)
	}
	if r.Start+r.BlockSize-1 > r.End {
		return fmt.Errorf("port range [%d,%d] too small for even one block of %d ports",
			r.Start, r.End, r.BlockSize)
	}
	return nil
}

// bases returns the base ports of all blocks that fit the range, in
// ascending order.
func (r Range) bases() []int {
	var bases []int
	for base := r.Start; base+r.BlockSize-1 <= r.End; base += r.BlockSize {
		bases = append(bases, base)
	}
	return bases
}

// Block is a contiguous run of Size ports starting at Base. At most one live
// server instance may own a given block at any time.
type Block struct {
	Base int
	Size int
}

// Ports returns all ports of this block in ascending order.
func (b Block) Ports() []int {
	ports := make([]int, b.Size)
	for i := range ports {
		ports[i] = b.Base + i
	}
	return ports
}

// overlaps reports whether the two port runs share at least one port.
func (b Block) overlaps(o Block) bool {
	return b.Base < o.Base+o.Size && o.Base < b.Base+b.Size
}

// Pool hands out the lowest free port [Block] of a [Range] and takes blocks
// back upon release. It is safe for concurrent use; Allocate and Release
// never block on anything but the pool's own short-lived lock.
type Pool struct {
	r          Range
	quarantine time.Duration

	mu     sync.Mutex
	free   []int            // base ports of free blocks, ascending.
	held   map[int]struct{} // base ports currently allocated.
	parked []parkedBlock    // released blocks still in quarantine.
}

// parkedBlock is a released block waiting out its quarantine.
type parkedBlock struct {
	base  int
	until time.Time
}

// Option customizes a [Pool] created by [New].
type Option func(*Pool)

// WithQuarantine delays re-allocation of a released block by the specified
// duration. A zero (the default) or negative duration releases blocks back
// into the free pool immediately.
func WithQuarantine(d time.Duration) Option {
	return func(p *Pool) {
		p.quarantine = d
	}
}

// New returns a pool for the specified range, with all blocks free except
// those whose base ports are listed in used. The used base ports are the
// assignments persisted in the server record store, restored at process
// start.
//
// Used base ports outside the range or not aligned to the range's block grid
// are grandfathered: the pool keeps every overlapping in-range block out of
// the free pool forever, so the central no-two-servers-share-a-port
// invariant holds even after an operator changed the range under existing
// servers.
func New(r Range, used []int, opts ...Option) (*Pool, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	p := &Pool{
		r:    r,
		held: map[int]struct{}{},
	}
	for _, opt := range opts {
		opt(p)
	}
	usedBlocks := make([]Block, 0, len(used))
	for _, base := range used {
		usedBlocks = append(usedBlocks, Block{Base: base, Size: r.BlockSize})
	}
nextBase:
	for _, base := range r.bases() {
		candidate := Block{Base: base, Size: r.BlockSize}
		for _, ub := range usedBlocks {
			if !candidate.overlaps(ub) {
				continue
			}
			if ub.Base == base {
				p.held[base] = struct{}{}
			}
			// Either this exact block is in use, or a foreign
			// (grandfathered) block overlaps it; never offer it.
			continue nextBase
		}
		p.free = append(p.free, base)
	}
	return p, nil
}

// Range returns the immutable range this pool was configured with.
func (p *Pool) Range() Range { return p.r }

// Allocate returns the lowest free block, or [ErrExhausted] when all blocks
// are taken.
func (p *Pool) Allocate() (Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unpark()
	if len(p.free) == 0 {
		return Block{}, ErrExhausted
	}
	base := p.free[0]
	p.free = p.free[1:]
	p.held[base] = struct{}{}
	return Block{Base: base, Size: p.r.BlockSize}, nil
}

// Release returns a block to the pool. Releasing a block that is already
// free (or that was never handed out by this pool, such as a grandfathered
// foreign block) is a no-op, so release can be blindly retried after a
// partial failure.
func (p *Pool) Release(b Block) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.held[b.Base]; !ok {
		return
	}
	delete(p.held, b.Base)
	if p.quarantine > 0 {
		p.parked = append(p.parked, parkedBlock{
			base:  b.Base,
			until: time.Now().Add(p.quarantine),
		})
		return
	}
	p.insert(b.Base)
}

// IsFree reports whether the block starting at b.Base is currently
// allocatable. Blocks still in quarantine are not free.
func (p *Pool) IsFree(b Block) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unpark()
	_, found := slices.BinarySearch(p.free, b.Base)
	return found
}

// Free returns the number of currently allocatable blocks.
func (p *Pool) Free() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unpark()
	return len(p.free)
}

// insert puts a free base port back into the sorted free list. Callers must
// hold the pool's lock.
func (p *Pool) insert(base int) {
	at, found := slices.BinarySearch(p.free, base)
	if found {
		return
	}
	p.free = slices.Insert(p.free, at, base)
}

// unpark promotes parked blocks whose quarantine has lapsed into the free
// list. Callers must hold the pool's lock.
func (p *Pool) unpark() {
	if len(p.parked) == 0 {
		return
	}
	now := time.Now()
	p.parked = slices.DeleteFunc(p.parked, func(pb parkedBlock) bool {
		if pb.until.After(now) {
			return false
		}
		p.insert(pb.base)
		return true
	})
}
