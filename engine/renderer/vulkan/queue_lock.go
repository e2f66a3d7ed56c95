package vulkan

import "sync"

// QueueLocks serializes submissions per queue family. Queues are externally
// synchronized objects and an XR runtime submits to the same graphics queue
// from inside its frame calls.
type QueueLocks struct {
	mu    sync.Mutex // Protects access to the locks map
	locks map[uint32]*sync.Mutex
}

func NewQueueLocks(families ...uint32) *QueueLocks {
	ql := &QueueLocks{
		locks: make(map[uint32]*sync.Mutex),
	}
	for _, family := range families {
		ql.lock(family)
	}
	return ql
}

// Get or create the mutex of a queue family
func (ql *QueueLocks) lock(family uint32) *sync.Mutex {
	ql.mu.Lock()
	defer ql.mu.Unlock()

	if _, exists := ql.locks[family]; !exists {
		ql.locks[family] = &sync.Mutex{}
	}
	return ql.locks[family]
}

// Do runs fn while holding the lock of the queue family.
func (ql *QueueLocks) Do(family uint32, fn func() error) error {
	l := ql.lock(family)
	l.Lock()
	defer l.Unlock()

	return fn()
}
