package resources

import (
	"github.com/spaghettifunk/prism/engine/core"
)

// Owner loads payloads on behalf of a resource.
type Owner interface {
	LoadResource(name string) bool
}

/**
 * @brief A named, typed handle to at most one lazily loaded payload.
 */
type Resource struct {
	/** @brief The name of the resource, unique inside its loader. */
	Name string
	/** @brief The resource type name of the owning loader. */
	TypeName string
	/** @brief Back reference to the record owned by the loader. Can be nil. */
	MetaData *MetaData

	arena    *Arena
	handle   core.Identifier
	owner    Owner
	notifier Notifier
	loading  bool
}

func NewResource(name, typeName string, arena *Arena, owner Owner, notifier Notifier) *Resource {
	if arena == nil {
		arena = NewArena()
	}
	r := &Resource{
		Name:     name,
		TypeName: typeName,
		arena:    arena,
		owner:    owner,
		notifier: notifier,
	}
	r.handle = arena.Allocate(r)
	return r
}

// Info returns the name, type name and whether a payload is present.
func (r *Resource) Info() (string, string, bool) {
	return r.Name, r.TypeName, r.HasData()
}

func (r *Resource) HasData() bool {
	return r.arena.Get(r.handle) != nil
}

func (r *Resource) IsNeedToLoad() bool {
	if !r.HasData() {
		return true
	}
	return r.MetaData != nil && r.MetaData.IsResourceFileChanged()
}

// Data returns the current payload without attempting a load.
func (r *Resource) Data() any {
	return r.arena.Get(r.handle)
}

// GetData loads the payload through the owner when needed. The result may
// still be nil when loading failed.
func (r *Resource) GetData() any {
	if r.IsNeedToLoad() && r.owner != nil && !r.loading {
		r.loading = true
		r.owner.LoadResource(r.Name)
		r.loading = false
	}
	return r.arena.Get(r.handle)
}

// SetData swaps the payload stored in the resource slot. References obtained
// through Ref observe the new payload.
func (r *Resource) SetData(data any) {
	r.arena.Set(r.handle, data)
	if r.notifier != nil {
		r.notifier.ResourceInfoChanged(r.Info())
	}
}

func (r *Resource) ClearData() {
	r.arena.Set(r.handle, nil)
}

func (r *Resource) Ref() Ref {
	return Ref{name: r.Name, arena: r.arena, handle: r.handle}
}

func (r *Resource) Attributes() []Attribute {
	if a, ok := r.Data().(Attributable); ok {
		return a.Attributes()
	}
	return nil
}

func (r *Resource) SetAttribute(name string, value AttributeValue, index int) bool {
	if a, ok := r.Data().(Attributable); ok {
		return a.SetAttribute(name, value, index)
	}
	return false
}

func (r *Resource) release() {
	r.arena.Release(r.handle)
}

// DataAs loads the payload of r and returns it when it has type T.
func DataAs[T any](r *Resource) (T, bool) {
	var zero T
	if r == nil {
		return zero, false
	}
	v, ok := r.GetData().(T)
	return v, ok
}
