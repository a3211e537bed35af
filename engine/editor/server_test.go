package editor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/resources"
	"github.com/spaghettifunk/prism/engine/scene"
	"github.com/spaghettifunk/prism/engine/systems"
)

func init() {
	core.SetLogOutput(io.Discard)
}

type testEditor struct {
	server  *httptest.Server
	events  *core.EventSystem
	hub     *Hub
	metrics *core.Metrics
}

// newTestEditor serves the editor API in front of a resource system driven
// by a stand-in engine loop.
func newTestEditor(t *testing.T) *testEditor {
	t.Helper()
	events := core.NewEventSystem()
	metrics := core.NewMetrics()
	r, err := renderer.New("test", renderer.Headless)
	require.NoError(t, err)
	rs, err := systems.NewResourceSystem(&systems.ResourceSystemConfig{RootPath: t.TempDir()}, events, metrics, r, scene.NewManager())
	require.NoError(t, err)
	require.NoError(t, rs.Initialize())

	commands := make(chan systems.Command, 8)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			select {
			case cmd := <-commands:
				rs.Execute(cmd)
			case <-ctx.Done():
				return
			}
		}
	}()

	hub := NewHub(4)
	hub.Attach(events)
	srv := NewServer(ServerConfig{Timeout: 2 * time.Second}, commands, metrics, hub)
	server := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hub.Close()
		server.Close()
		cancel()
	})
	return &testEditor{server: server, events: events, hub: hub, metrics: metrics}
}

func (e *testEditor) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func TestListResources(t *testing.T) {
	e := newTestEditor(t)
	res, body := e.do(t, http.MethodGet, "/resources", "")
	require.Equal(t, http.StatusOK, res.StatusCode)

	var list []systems.ResourceInfo
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Contains(t, list, systems.ResourceInfo{Name: "Cube", TypeName: "Mesh"})
}

func TestResourceAttributes(t *testing.T) {
	e := newTestEditor(t)
	res, body := e.do(t, http.MethodGet, "/resources/Texture/empty/attributes", "")
	require.Equal(t, http.StatusOK, res.StatusCode)

	var attributes []resources.Attribute
	require.NoError(t, json.Unmarshal(body, &attributes))
	require.NotEmpty(t, attributes)
	assert.Equal(t, "name", attributes[0].Name)
	assert.Equal(t, "empty", attributes[0].Value.String)

	res, body = e.do(t, http.MethodPut, "/resources/Texture/empty/attributes/mag_filter", `{"value":{"kind":"int","int":1},"index":0}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"ok":true,"data":null}`, string(body))

	res, _ = e.do(t, http.MethodPut, "/resources/Texture/empty/attributes/mag_filter", `{"value":`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestResourceActions(t *testing.T) {
	e := newTestEditor(t)

	res, body := e.do(t, http.MethodPost, "/resources/Model/Triangle/duplicate", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"ok":true,"data":null}`, string(body))

	res, _ = e.do(t, http.MethodPost, "/resources/Model/Triangle_0/rename", `{"new_name":"Prism"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = e.do(t, http.MethodPost, "/resources/Model/Prism/rename", `{}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = e.do(t, http.MethodPost, "/resources/Model/Prism/explode", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = e.do(t, http.MethodPost, "/resources/Sound/bang/load", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = e.do(t, http.MethodPost, "/resources/Model/missing/load", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestDumpAndStats(t *testing.T) {
	e := newTestEditor(t)

	res, body := e.do(t, http.MethodGet, "/resources/Texture/empty/dump", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/plain")
	assert.Contains(t, string(body), "empty")

	res, body = e.do(t, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var snapshot core.MetricsSnapshot
	require.NoError(t, json.Unmarshal(body, &snapshot))
	assert.Contains(t, snapshot.Initializations, "TextureLoader")
}

func TestDispatchTimesOutWithoutEngineLoop(t *testing.T) {
	commands := make(chan systems.Command)
	srv := NewServer(ServerConfig{Timeout: 50 * time.Millisecond}, commands, core.NewMetrics(), NewHub(0))
	server := httptest.NewServer(srv.Handler())
	defer server.Close()

	res, err := http.Get(server.URL + "/resources")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestWebsocketStreamsNotifications(t *testing.T) {
	e := newTestEditor(t)
	e.events.ResourceDeleted("old", "Mesh", false)

	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var n Notification
	require.NoError(t, conn.ReadJSON(&n))
	assert.Equal(t, "deleted", n.Event)
	assert.Equal(t, "old", n.Name)

	require.Eventually(t, func() bool { return e.hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	e.events.ResourceInfoChanged("brick", "Texture", true)
	require.NoError(t, conn.ReadJSON(&n))
	assert.Equal(t, "info", n.Event)
	assert.Equal(t, "brick", n.Name)
	assert.Equal(t, "Texture", n.TypeName)
	assert.True(t, n.HasPayload)
}

func TestHubKeepsRecentNotifications(t *testing.T) {
	hub := NewHub(2)
	for _, name := range []string{"a", "b", "c"} {
		hub.Broadcast(Notification{Event: "info", ResourceEvent: core.ResourceEvent{Name: name}})
	}
	backlog := hub.Backlog()
	require.Len(t, backlog, 2)
	assert.Contains(t, string(backlog[0]), `"name":"b"`)
	assert.Contains(t, string(backlog[1]), `"name":"c"`)
}
