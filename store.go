package matsys

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/woozymasta/matsys/pool"
)

// VariableStore owns variable storage and the deferred mutation queue shared
// by every material of a System. It replaces process-wide globals: create one
// with NewVariableStore and Close it when the materials are gone.
type VariableStore struct {
	pool     *pool.Pool[Variable]
	dummy    *Variable
	logger   *slog.Logger
	threaded atomic.Bool
	closed   atomic.Bool

	// mu serializes enqueue and the drain snapshot so channel order and
	// overflow order together stay FIFO.
	mu       sync.Mutex
	queue    chan command
	overflow []command

	replayed atomic.Uint64
}

// command is one queued owner-goroutine operation.
type command struct {
	v  *Variable
	s  *staged
	fn func()
}

// StoreStats reports store occupancy.
type StoreStats struct {
	Pool     pool.Stats `json:"pool" yaml:"pool"`
	Queued   int        `json:"queued" yaml:"queued"`
	Replayed uint64     `json:"replayed" yaml:"replayed"`
	Threaded bool       `json:"threaded" yaml:"threaded"`
}

// NewVariableStore creates a variable store.
func NewVariableStore(opt *StoreOptions) *VariableStore {
	o := opt.normalize()
	s := &VariableStore{
		pool:   pool.New[Variable](o.PageSize),
		logger: o.Logger,
		queue:  make(chan command, o.QueueSize),
	}
	s.dummy = &Variable{
		name:    varSymbol(""),
		display: "",
		val:     Undefined{},
		store:   s,
		dummy:   true,
	}

	return s
}

// Dummy returns the shared placeholder returned by lenient lookups that miss.
func (s *VariableStore) Dummy() *Variable { return s.dummy }

// Close flushes queued commands and releases every pooled variable.
func (s *VariableStore) Close() error {
	if s.closed.Swap(true) {
		return ErrStoreClosed
	}
	s.threaded.Store(false)
	s.Drain()
	s.pool.Reset()

	return nil
}

// BeginThreadedAccess makes variable setters stage and queue their writes.
func (s *VariableStore) BeginThreadedAccess() {
	s.threaded.Store(true)
}

// EndThreadedAccess leaves threaded access and replays every queued write.
// Staged writes are flushed, never dropped.
func (s *VariableStore) EndThreadedAccess() {
	s.threaded.Store(false)
	s.Drain()
}

// InThreadedAccess reports whether threaded access is active.
func (s *VariableStore) InThreadedAccess() bool {
	return s.threaded.Load()
}

// Enqueue queues fn to run on the owning goroutine at the next Drain.
// Use it for work such as reference acquisition that must not run on producers.
func (s *VariableStore) Enqueue(fn func()) {
	s.enqueue(command{fn: fn})
}

// stage records val as v's pending value and queues its replay.
func (s *VariableStore) stage(v *Variable, val Value) {
	st := &staged{val: val}
	v.pending.Store(st)
	s.enqueue(command{v: v, s: st})
}

// enqueue appends a command without blocking. A full channel spills into the
// overflow list, and once anything spilled every later command follows it.
func (s *VariableStore) enqueue(c command) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.overflow) == 0 {
		select {
		case s.queue <- c:
			return
		default:
		}
	}
	s.overflow = append(s.overflow, c)
}

// Drain replays queued commands in FIFO order on the calling goroutine, which
// must be the owning one. It returns the number of commands replayed.
func (s *VariableStore) Drain() int {
	s.mu.Lock()
	batch := make([]command, 0, len(s.queue)+len(s.overflow))
	for done := false; !done; {
		select {
		case c := <-s.queue:
			batch = append(batch, c)
		default:
			done = true
		}
	}
	batch = append(batch, s.overflow...)
	clear(s.overflow)
	s.overflow = s.overflow[:0]
	s.mu.Unlock()

	for _, c := range batch {
		s.replay(c)
	}
	s.replayed.Add(uint64(len(batch)))

	return len(batch)
}

func (s *VariableStore) replay(c command) {
	if c.fn != nil {
		c.fn()
		return
	}

	c.v.apply(c.s.val)
	// A newer staged write keeps its cell until its own command replays.
	c.v.pending.CompareAndSwap(c.s, nil)
}

// Queued returns the number of commands waiting for Drain.
func (s *VariableStore) Queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.queue) + len(s.overflow)
}

// Compact relocates variables into fewer pages and repoints their owners'
// variable arrays. It is refused while threaded access is active or commands
// are queued, since queued commands hold variable pointers.
//
// Only the owning arrays are updated: a *Variable kept from Material.Var,
// Material.FindVar or VarSet.At before Compact is stale afterwards and must
// be looked up again.
func (s *VariableStore) Compact() (int, error) {
	if s.closed.Load() {
		return 0, ErrStoreClosed
	}
	if s.InThreadedAccess() {
		return 0, fmt.Errorf("%w: compact during threaded access", ErrStoreBusy)
	}
	if n := s.Queued(); n > 0 {
		return 0, fmt.Errorf("%w: compact with %d queued commands", ErrStoreBusy, n)
	}

	moved := s.pool.Compact(func(from, to *Variable) {
		if to.owner == nil || to.owner.vars == nil {
			return
		}
		if list := to.owner.vars.list; to.index < len(list) && list[to.index] == from {
			list[to.index] = to
		}
	})
	if moved > 0 {
		s.logger.Debug("variable store compacted", "moved", moved, "pages", s.pool.Stats().Committed)
	}

	return moved, nil
}

// Stats reports store occupancy.
func (s *VariableStore) Stats() StoreStats {
	return StoreStats{
		Pool:     s.pool.Stats(),
		Queued:   s.Queued(),
		Replayed: s.replayed.Load(),
		Threaded: s.InThreadedAccess(),
	}
}

// newVariable allocates a variable for owner at index.
func (s *VariableStore) newVariable(owner *Material, index int, name string, val Value) *Variable {
	if val == nil {
		val = Undefined{}
	}
	v := s.pool.Alloc()
	v.name = varSymbol(name)
	v.display = name
	v.val = Undefined{}
	v.owner = owner
	v.index = index
	v.store = s
	// Initial values take their references without notifying the owner.
	acquireValue(val)
	v.val = val

	return v
}

// freeVariable releases v's references and returns it to the pool.
func (s *VariableStore) freeVariable(v *Variable) {
	if v == nil || v.dummy {
		return
	}
	v.reset()
	v.owner = nil
	s.pool.Free(v)
}
