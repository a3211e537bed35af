package resources

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/core"
)

func init() {
	core.SetLogOutput(io.Discard)
}

type notification struct {
	event      string
	name       string
	typeName   string
	hasPayload bool
}

type recordingNotifier struct {
	events []notification
}

func (n *recordingNotifier) ResourceInfoChanged(name, typeName string, hasPayload bool) {
	n.events = append(n.events, notification{"info", name, typeName, hasPayload})
}

func (n *recordingNotifier) ResourceDeleted(name, typeName string, hasPayload bool) {
	n.events = append(n.events, notification{"deleted", name, typeName, hasPayload})
}

type notePayload struct {
	Name  string
	Value int
}

type noteData struct {
	Value int `yaml:"value"`
}

func (p *notePayload) SaveData() any {
	return noteData{Value: p.Value}
}

func (p *notePayload) SetResourceName(name string) {
	p.Name = name
}

func (p *notePayload) Attributes() []Attribute {
	return []Attribute{
		{Name: "name", Value: StringValue(p.Name)},
		{Name: "value", Value: IntValue(int64(p.Value))},
	}
}

func (p *notePayload) SetAttribute(name string, value AttributeValue, index int) bool {
	if name == "value" {
		p.Value = int(value.Int)
		return true
	}
	return false
}

// noteLoader is a minimal category used to exercise the generic loader.
type noteLoader struct {
	*BaseLoader
	loads       int
	conversions int
}

func newNoteLoader(t *testing.T, root string, encoding Encoding) *noteLoader {
	t.Helper()
	l := &noteLoader{}
	l.BaseLoader = NewBaseLoader(LoaderConfig{
		Name:             "NoteLoader",
		ResourceDirName:  "Notes",
		ResourceTypeName: "Note",
		ResourceVersion:  1,
		FileExt:          ".note",
		ExternalDirNames: []string{filepath.Join(ExternalsDirName, "Notes")},
		ExternalFileExt:  map[string]string{"Text": ".txt"},
		Encoding:         encoding,
	}, Environment{RootPath: root}, l)
	return l
}

func (l *noteLoader) LoadResource(name string) bool {
	resource := l.GetResource(name)
	if resource == nil {
		return false
	}
	var data noteData
	if !l.LoadResourceData(resource, &data) {
		return false
	}
	l.loads++
	resource.SetData(&notePayload{Name: resource.Name, Value: data.Value})
	resource.MetaData.SetResourceMetaData(resource.MetaData.ResourceFilePath, true)
	return true
}

func (l *noteLoader) ConvertResource(resource *Resource, sourceFilePath string) bool {
	content, err := os.ReadFile(sourceFilePath)
	if err != nil {
		return false
	}
	l.conversions++
	payload := &notePayload{Name: resource.Name, Value: len(content)}
	resource.SetData(payload)
	return l.SaveResourceData(resource, payload.SaveData(), sourceFilePath)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// touch moves the modification time of path forward so that time based
// checks see a change even on coarse filesystems.
func touch(t *testing.T, path string, offset time.Duration) {
	t.Helper()
	ts := time.Now().Add(offset)
	require.NoError(t, os.Chtimes(path, ts, ts))
}
