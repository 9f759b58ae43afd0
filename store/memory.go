package store

import (
	"fmt"
	"sync"

	"github.com/k-zaitsev/icqt/jid"
)

type record struct {
	uin, password string
	opts          Options
}

// Memory is a sync.Mutex-guarded in-memory Store, used by the
// gateway's own tests and as a runnable default when no external store
// is wired in. No pack repo ships a database driver or KV library this
// could be grounded on instead; since Store itself is the real
// external contract (spec §6), a map-backed reference implementation
// is the appropriate scope for this module.
type Memory struct {
	mu      sync.Mutex
	records map[string]*record
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*record)}
}

func (m *Memory) Add(j jid.JID, uin, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[j.Bare().String()] = &record{uin: uin, password: password, opts: DefaultOptions()}
	return nil
}

func (m *Memory) Del(j jid.JID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, j.Bare().String())
	return nil
}

func (m *Memory) IsRegistered(j jid.JID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[j.Bare().String()]
	return ok
}

func (m *Memory) UIN(j jid.JID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[j.Bare().String()]
	if !ok {
		return "", false
	}
	return r.uin, true
}

func (m *Memory) Password(j jid.JID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[j.Bare().String()]
	if !ok {
		return "", false
	}
	return r.password, true
}

func (m *Memory) GetOptions(j jid.JID) Options {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[j.Bare().String()]
	if !ok {
		return DefaultOptions()
	}
	return r.opts
}

func (m *Memory) SetOptions(j jid.JID, opts Options) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[j.Bare().String()]
	if !ok {
		return fmt.Errorf("store: %s is not registered", j.Bare())
	}
	r.opts = opts
	return nil
}

func (m *Memory) ClearOptions(j jid.JID) error {
	return m.SetOptions(j, DefaultOptions())
}

func (m *Memory) ListUsers() []jid.JID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]jid.JID, 0, len(m.records))
	for k := range m.records {
		parsed, err := jid.Parse(k)
		if err != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out
}

func (m *Memory) ListUsersByOption(pred func(Options) bool) []jid.JID {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []jid.JID
	for k, r := range m.records {
		if !pred(r.opts) {
			continue
		}
		parsed, err := jid.Parse(k)
		if err != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out
}
