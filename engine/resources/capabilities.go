package resources

// Saveable payloads can produce the structure persisted to their resource file.
type Saveable interface {
	SaveData() any
}

// Attributable payloads expose a typed attribute list to editors.
type Attributable interface {
	Attributes() []Attribute
	SetAttribute(name string, value AttributeValue, index int) bool
}

// Named payloads track the name of the resource holding them.
type Named interface {
	SetResourceName(name string)
}

// Notifier receives resource lifecycle notifications.
type Notifier interface {
	ResourceInfoChanged(name, typeName string, hasPayload bool)
	ResourceDeleted(name, typeName string, hasPayload bool)
}

type nopNotifier struct{}

func (nopNotifier) ResourceInfoChanged(string, string, bool) {}
func (nopNotifier) ResourceDeleted(string, string, bool)     {}
