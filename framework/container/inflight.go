package container

import "sync"

// buildChain is one top-level Resolve call and every nested resolution made
// through the handles derived from it.
type buildChain struct {
	// construction lock this chain is blocked on, if any
	waiting    *sync.Mutex
	waitingKey Key
}

type holder struct {
	chain *buildChain
	key   Key
}

// inflight tracks which chain holds each construction lock and which lock
// each chain waits on. Singleton and scoped caches share it, so a cycle of
// chains waiting on each other's locks is seen before anyone blocks.
type inflight struct {
	mu      sync.Mutex
	holders map[*sync.Mutex]holder
}

func newInflight() *inflight {
	return &inflight{holders: make(map[*sync.Mutex]holder)}
}

// acquire locks m, the construction lock of key, on behalf of ch. When
// waiting for m would close a cycle of chains blocked on one another, it
// returns the key path of that cycle and leaves m unlocked.
func (t *inflight) acquire(ch *buildChain, m *sync.Mutex, key Key) []Key {
	t.mu.Lock()
	path := []Key{key}
	h, ok := t.holders[m]
	for range len(t.holders) {
		if !ok {
			break
		}
		if h.chain == ch {
			t.mu.Unlock()
			return append([]Key{h.key}, path...)
		}
		if h.chain.waiting == nil {
			break
		}
		path = append(path, h.chain.waitingKey)
		h, ok = t.holders[h.chain.waiting]
	}
	ch.waiting, ch.waitingKey = m, key
	t.mu.Unlock()

	m.Lock()

	t.mu.Lock()
	ch.waiting, ch.waitingKey = nil, Key{}
	t.holders[m] = holder{chain: ch, key: key}
	t.mu.Unlock()
	return nil
}

func (t *inflight) release(m *sync.Mutex) {
	t.mu.Lock()
	delete(t.holders, m)
	t.mu.Unlock()
	m.Unlock()
}
