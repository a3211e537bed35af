package core

import "fmt"

/**
 * @brief A generational identifier. The generation is bumped every time the
 * index is released so stale identifiers can be told apart from live ones.
 */
type Identifier struct {
	Index      uint32
	Generation uint32
}

// InvalidIdentifier never refers to a live slot.
var InvalidIdentifier = Identifier{Index: ^uint32(0)}

func (id Identifier) IsValid() bool {
	return id.Index != InvalidIdentifier.Index
}

/** @brief Hands out generational identifiers and recycles released ones. */
type IdentifierPool struct {
	owners      []interface{}
	generations []uint32
	free        []uint32
}

func NewIdentifierPool() *IdentifierPool {
	return &IdentifierPool{}
}

func (p *IdentifierPool) Acquire(owner interface{}) Identifier {
	// Existing free spot. Take it.
	if n := len(p.free); n > 0 {
		index := p.free[n-1]
		p.free = p.free[:n-1]
		p.owners[index] = owner
		return Identifier{Index: index, Generation: p.generations[index]}
	}

	// If here, no existing free slots. Need a new id, so push one.
	p.owners = append(p.owners, owner)
	p.generations = append(p.generations, 0)
	return Identifier{Index: uint32(len(p.owners) - 1)}
}

func (p *IdentifierPool) Release(id Identifier) error {
	if !p.IsAlive(id) {
		return fmt.Errorf("identifier %d/%d is not alive. Nothing was done", id.Index, id.Generation)
	}
	p.owners[id.Index] = nil
	p.generations[id.Index]++
	p.free = append(p.free, id.Index)
	return nil
}

func (p *IdentifierPool) IsAlive(id Identifier) bool {
	return id.IsValid() && id.Index < uint32(len(p.owners)) && p.generations[id.Index] == id.Generation
}

func (p *IdentifierPool) Owner(id Identifier) interface{} {
	if !p.IsAlive(id) {
		return nil
	}
	return p.owners[id.Index]
}
