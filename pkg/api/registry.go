package api

import (
	"sync"
	"time"
)

// LinkInfo describes one open streaming link for observability.
type LinkInfo struct {
	SessionID string    `json:"session_id"`
	Device    string    `json:"device"`
	Model     string    `json:"model"`
	OpenedAt  time.Time `json:"opened_at"`
}

// Registry tracks the open streaming links on this server. Each link is
// added when its worker spawns and removed when the link closes.
type Registry struct {
	links map[string]*LinkInfo
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{links: make(map[string]*LinkInfo)}
}

func (r *Registry) Add(info *LinkInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.links[info.SessionID] = info
}

func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.links, sessionID)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.links)
}

func (r *Registry) Snapshot() []*LinkInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*LinkInfo, 0, len(r.links))
	for _, info := range r.links {
		out = append(out, info)
	}
	return out
}
