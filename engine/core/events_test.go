package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventSystemFiresResourceEvents(t *testing.T) {
	es := NewEventSystem()
	var received []ResourceEvent
	listener := &struct{}{}

	require.True(t, es.Register(EVENT_CODE_RESOURCE_INFO_CHANGED, listener, func(sender, l interface{}, context EventContext) bool {
		received = append(received, context.Data.(ResourceEvent))
		return false
	}))
	assert.False(t, es.Register(EVENT_CODE_RESOURCE_INFO_CHANGED, listener, nil))

	es.ResourceInfoChanged("brick", "Texture", true)
	es.ResourceDeleted("brick", "Texture", true)

	require.Len(t, received, 1)
	assert.Equal(t, ResourceEvent{Name: "brick", TypeName: "Texture", HasPayload: true}, received[0])

	assert.True(t, es.Unregister(EVENT_CODE_RESOURCE_INFO_CHANGED, listener))
	assert.False(t, es.Unregister(EVENT_CODE_RESOURCE_INFO_CHANGED, listener))
	es.ResourceInfoChanged("brick", "Texture", false)
	assert.Len(t, received, 1)
}

func TestEventSystemHandledStopsPropagation(t *testing.T) {
	es := NewEventSystem()
	calls := 0
	handler := func(sender, l interface{}, context EventContext) bool {
		calls++
		return true
	}
	es.Register(EVENT_CODE_APPLICATION_QUIT, "first", handler)
	es.Register(EVENT_CODE_APPLICATION_QUIT, "second", handler)

	assert.True(t, es.Fire(nil, EventContext{Type: EVENT_CODE_APPLICATION_QUIT}))
	assert.Equal(t, 1, calls)
}
