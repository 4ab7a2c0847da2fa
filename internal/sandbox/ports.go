package sandbox

import (
	"fmt"
	"sync"
)

// PortRange is a reserved host↔container port block for one agent.
type PortRange struct {
	HostStart      int `json:"host_start"`
	ContainerStart int `json:"container_start"`
	Count          int `json:"count"`
}

// PortAllocator hands out fixed-size, non-overlapping blocks of host ports,
// mapped 1:1 to a fixed container-side range. Blocks never overlap across
// agents; deallocation happens on container stop.
type PortAllocator struct {
	base           int
	size           int
	containerStart int

	mu      sync.Mutex
	byAgent map[string]int // agentID → hostStart
	byStart map[int]string // hostStart → agentID
}

// NewPortAllocator creates an allocator starting at base, size ports per
// agent, container side fixed at containerStart.
func NewPortAllocator(base, size, containerStart int) *PortAllocator {
	return &PortAllocator{
		base:           base,
		size:           size,
		containerStart: containerStart,
		byAgent:        make(map[string]int),
		byStart:        make(map[int]string),
	}
}

// Allocate reserves the next free block for agentID. Allocating twice for
// the same agent returns the existing block.
func (a *PortAllocator) Allocate(agentID string) (PortRange, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if start, ok := a.byAgent[agentID]; ok {
		return a.rangeAt(start), nil
	}

	for start := a.base; start < a.base+64*a.size; start += a.size {
		if _, taken := a.byStart[start]; taken {
			continue
		}
		a.byAgent[agentID] = start
		a.byStart[start] = agentID
		return a.rangeAt(start), nil
	}
	return PortRange{}, fmt.Errorf("port allocator: no free block for agent %s", agentID)
}

// ReRegister records an existing allocation adopted from a running
// container. The mappings are already baked into the container; only the
// reservation is restored so no other agent reuses the block.
func (a *PortAllocator) ReRegister(agentID string, hostStart int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if owner, taken := a.byStart[hostStart]; taken && owner != agentID {
		return fmt.Errorf("port allocator: block %d already held by %s", hostStart, owner)
	}
	a.byAgent[agentID] = hostStart
	a.byStart[hostStart] = agentID
	return nil
}

// Release frees agentID's block.
func (a *PortAllocator) Release(agentID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if start, ok := a.byAgent[agentID]; ok {
		delete(a.byAgent, agentID)
		delete(a.byStart, start)
	}
}

// Get returns the agent's current block, if any.
func (a *PortAllocator) Get(agentID string) (PortRange, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start, ok := a.byAgent[agentID]
	if !ok {
		return PortRange{}, false
	}
	return a.rangeAt(start), true
}

func (a *PortAllocator) rangeAt(start int) PortRange {
	return PortRange{HostStart: start, ContainerStart: a.containerStart, Count: a.size}
}
