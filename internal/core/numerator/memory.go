package numerator

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process SequenceStore.
// Suitable for tests and single-process tools; counters are lost on exit.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[Scope]*Counter
	now      func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[Scope]*Counter),
		now:      time.Now,
	}
}

func (s *MemoryStore) counter(scope Scope) *Counter {
	c, ok := s.counters[scope]
	if !ok {
		c = &Counter{DocType: scope.DocType, PeriodKey: scope.PeriodKey, PrefixKey: scope.PrefixKey}
		s.counters[scope] = c
	}
	return c
}

// Allocate implements Allocator.
func (s *MemoryStore) Allocate(_ context.Context, scope Scope) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.counter(scope)
	c.Value++
	c.UpdatedAt = s.now()
	return c.Value, nil
}

// Peek implements Peeker.
func (s *MemoryStore) Peek(_ context.Context, scope Scope) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.counters[scope]; ok {
		return c.Value, nil
	}
	return 0, nil
}

// Advance implements Seeder.
func (s *MemoryStore) Advance(_ context.Context, scope Scope, value int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.counter(scope)
	if value > c.Value {
		c.Value = value
		c.UpdatedAt = s.now()
	}
	return c.Value, nil
}

// Counters implements Lister.
func (s *MemoryStore) Counters(_ context.Context, account string) ([]Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Counter, 0)
	for scope, c := range s.counters {
		if scope.Account == account {
			out = append(out, *c)
		}
	}
	sortCounters(out)
	return out, nil
}

func sortCounters(cs []Counter) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].DocType != cs[j].DocType {
			return cs[i].DocType < cs[j].DocType
		}
		if cs[i].PeriodKey != cs[j].PeriodKey {
			return cs[i].PeriodKey < cs[j].PeriodKey
		}
		return cs[i].PrefixKey < cs[j].PrefixKey
	})
}

// MockStore is a test implementation of SequenceStore.
// Nil funcs fall back to an internal MemoryStore.
type MockStore struct {
	AllocateFunc func(ctx context.Context, scope Scope) (int64, error)
	PeekFunc     func(ctx context.Context, scope Scope) (int64, error)

	once sync.Once
	mem  *MemoryStore
}

func (m *MockStore) memory() *MemoryStore {
	m.once.Do(func() { m.mem = NewMemoryStore() })
	return m.mem
}

// Allocate implements Allocator.
func (m *MockStore) Allocate(ctx context.Context, scope Scope) (int64, error) {
	if m.AllocateFunc != nil {
		return m.AllocateFunc(ctx, scope)
	}
	return m.memory().Allocate(ctx, scope)
}

// Peek implements Peeker.
func (m *MockStore) Peek(ctx context.Context, scope Scope) (int64, error) {
	if m.PeekFunc != nil {
		return m.PeekFunc(ctx, scope)
	}
	return m.memory().Peek(ctx, scope)
}

// Ensure compile-time interface compliance.
var (
	_ SequenceStore = (*MemoryStore)(nil)
	_ Seeder        = (*MemoryStore)(nil)
	_ Lister        = (*MemoryStore)(nil)
	_ SequenceStore = (*MockStore)(nil)
)
