package resources

import "github.com/spaghettifunk/prism/engine/core"

/**
 * @brief Payload storage addressed by generational handles. A resource keeps
 * the same slot across reloads, so anyone holding a Ref sees the new payload
 * without re-resolving the resource.
 */
type Arena struct {
	ids   *core.IdentifierPool
	slots []any
}

func NewArena() *Arena {
	return &Arena{
		ids: core.NewIdentifierPool(),
	}
}

func (a *Arena) Allocate(owner *Resource) core.Identifier {
	id := a.ids.Acquire(owner)
	for uint32(len(a.slots)) <= id.Index {
		a.slots = append(a.slots, nil)
	}
	a.slots[id.Index] = nil
	return id
}

func (a *Arena) Get(id core.Identifier) any {
	if !a.ids.IsAlive(id) {
		return nil
	}
	return a.slots[id.Index]
}

func (a *Arena) Set(id core.Identifier, value any) bool {
	if !a.ids.IsAlive(id) {
		return false
	}
	a.slots[id.Index] = value
	return true
}

func (a *Arena) Release(id core.Identifier) {
	if !a.ids.IsAlive(id) {
		return
	}
	a.slots[id.Index] = nil
	if err := a.ids.Release(id); err != nil {
		core.LogError(err.Error())
	}
}

// Ref is a stable reference to the payload slot of a resource.
type Ref struct {
	name   string
	arena  *Arena
	handle core.Identifier
}

// NamedRef builds a reference that only carries a name, used when the
// resource could not be resolved but its name must survive a save.
func NamedRef(name string) Ref {
	return Ref{name: name, handle: core.InvalidIdentifier}
}

// Name returns the current name of the referenced resource. A dead or
// unresolved reference keeps the name it was built with.
func (r Ref) Name() string {
	if r.arena != nil {
		if owner, ok := r.arena.ids.Owner(r.handle).(*Resource); ok {
			return owner.Name
		}
	}
	return r.name
}

// IsAlive reports whether the referenced resource is still registered.
func (r Ref) IsAlive() bool {
	return r.arena != nil && r.arena.ids.IsAlive(r.handle)
}

func (r Ref) Value() any {
	if r.arena == nil {
		return nil
	}
	return r.arena.Get(r.handle)
}

// RefAs returns the payload behind ref when it has type T.
func RefAs[T any](ref Ref) (T, bool) {
	v, ok := ref.Value().(T)
	return v, ok
}
