package gate

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Open authorizes every caller.
type Open struct{}

func (Open) Authorize(common.Address) bool { return true }

// Whitelist authorizes only registered members.
type Whitelist struct {
	mu      sync.RWMutex
	members map[common.Address]struct{}
}

func NewWhitelist(members ...common.Address) *Whitelist {
	w := &Whitelist{members: make(map[common.Address]struct{}, len(members))}
	for _, member := range members {
		w.members[member] = struct{}{}
	}
	return w
}

func (w *Whitelist) Add(member common.Address) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.members[member] = struct{}{}
}

func (w *Whitelist) Remove(member common.Address) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.members, member)
}

func (w *Whitelist) Authorize(caller common.Address) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.members[caller]
	return ok
}
