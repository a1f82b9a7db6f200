package machine

import "sync"

// Coordinator tracks which single connection currently drives the
// machine. The holder and the active-connection set are guarded by one
// mutex and only ever change together; reading them separately could
// observe a holder that is no longer connected.
type Coordinator struct {
	mu     sync.Mutex
	holder string
	active map[string]struct{}
}

func NewCoordinator() *Coordinator {
	return &Coordinator{active: make(map[string]struct{})}
}

// Claim grants the machine to connID if it is currently free. A claim
// against an occupied machine is silently ignored: first claimant wins,
// there is no queue.
func (c *Coordinator) Claim(connID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.holder != "" {
		return false
	}
	c.holder = connID
	c.active[connID] = struct{}{}
	return true
}

// Release frees the machine if connID is the holder. Any other caller
// is only dropped from the active set.
func (c *Coordinator) Release(connID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	released := c.holder == connID
	if released {
		c.holder = ""
	}
	delete(c.active, connID)
	return released
}

// ForceRelease unconditionally frees the machine and returns the
// previous holder, empty if the machine was already free.
func (c *Coordinator) ForceRelease() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.holder
	c.holder = ""
	for id := range c.active {
		delete(c.active, id)
	}
	return prev
}

func (c *Coordinator) IsOccupied() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holder != ""
}

func (c *Coordinator) CurrentHolder() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.holder
}

// IsActiveHolder reports whether connID is the holder and still counted
// among the active connections.
func (c *Coordinator) IsActiveHolder(connID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, connected := c.active[connID]
	return c.holder == connID && connected
}
