package tree

import (
	"context"
	"strings"
	"sync"
)

// Memory is an in-process Tree. It backs tests and single-node deployments
// without Postgres.
type Memory struct {
	mu   sync.RWMutex
	root map[string]any
	hub  *hub
}

// NewMemory returns an empty tree.
func NewMemory() *Memory {
	m := &Memory{root: map[string]any{}}
	m.hub = newHub(m.Get)
	return m
}

var _ Tree = (*Memory)(nil)

// Subscribe implements Reader.
func (m *Memory) Subscribe(path string, fn func(value any)) func() {
	return m.hub.subscribe(path, fn)
}

// Get implements Reader. The returned value is a copy.
func (m *Memory) Get(ctx context.Context, path string) (any, error) {
	if err := Validate(path); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	node := m.lookup(Clean(path))
	return Normalize(node)
}

// Set implements Tree.
func (m *Memory) Set(ctx context.Context, path string, value any) error {
	return m.Update(ctx, map[string]any{path: value})
}

// Update implements Tree. Either every path is written or none is.
func (m *Memory) Update(ctx context.Context, updates map[string]any) error {
	normalized := make(map[string]any, len(updates))
	for p, v := range updates {
		if err := Validate(p); err != nil {
			return err
		}
		nv, err := Normalize(v)
		if err != nil {
			return err
		}
		normalized[Clean(p)] = nv
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	for _, p := range sortedPaths(normalized) {
		m.write(p, normalized[p])
	}
	m.mu.Unlock()

	changed := make([]string, 0, len(normalized))
	for p := range normalized {
		changed = append(changed, p)
	}
	m.hub.notify(changed...)
	return nil
}

func (m *Memory) lookup(path string) any {
	if path == "" {
		return m.root
	}
	var node any = m.root
	for _, seg := range strings.Split(path, "/") {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node, ok = obj[seg]
		if !ok {
			return nil
		}
	}
	return node
}

func (m *Memory) write(path string, value any) {
	if path == "" {
		obj, _ := value.(map[string]any)
		if obj == nil {
			obj = map[string]any{}
		}
		m.root = obj
		return
	}
	segs := strings.Split(path, "/")
	if value == nil {
		m.remove(segs)
		return
	}
	node := m.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[seg] = child
		}
		node = child
	}
	if obj, ok := value.(map[string]any); ok && len(obj) == 0 {
		m.remove(segs)
		return
	}
	node[segs[len(segs)-1]] = value
}

// remove deletes the node at segs and prunes parents left empty.
func (m *Memory) remove(segs []string) {
	parents := []map[string]any{m.root}
	node := m.root
	for _, seg := range segs[:len(segs)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			return
		}
		parents = append(parents, child)
		node = child
	}
	delete(node, segs[len(segs)-1])
	for i := len(parents) - 1; i > 0; i-- {
		if len(parents[i]) > 0 {
			break
		}
		delete(parents[i-1], segs[i-1])
	}
}
