package cache

import (
	"slices"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Membership caches site group member ids by group name. Writes are serialized
// so concurrent syncs of one group do not lose updates.
type Membership struct {
	mu     sync.Mutex
	groups *gocache.Cache
}

// NewMembership creates a membership cache with the given TTL.
func NewMembership(ttl time.Duration) *Membership {
	return &Membership{groups: gocache.New(ttl, 2*ttl)}
}

// Members returns the cached member ids, sorted.
func (m *Membership) Members(group string) ([]int, bool) {
	v, ok := m.groups.Get(group)
	if !ok {
		return nil, false
	}
	return slices.Clone(v.([]int)), true
}

// Set replaces the cached members of a group.
func (m *Membership) Set(group string, ids []int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(group, ids)
}

func (m *Membership) set(group string, ids []int) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	m.groups.SetDefault(group, slices.Compact(sorted))
}

// Added records a successful add. Groups that are not cached stay uncached.
func (m *Membership) Added(group string, id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ids, ok := m.Members(group); ok && !slices.Contains(ids, id) {
		m.set(group, append(ids, id))
	}
}

// Removed records a successful removal.
func (m *Membership) Removed(group string, id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ids, ok := m.Members(group); ok {
		m.set(group, slices.DeleteFunc(ids, func(v int) bool { return v == id }))
	}
}

// Forget drops a group.
func (m *Membership) Forget(group string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups.Delete(group)
}
