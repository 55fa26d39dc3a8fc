package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishOrder(t *testing.T) {
	var h Hub
	var got []string

	h.Subscribe(func(e Event) { got = append(got, "a:"+string(e.Kind)) })
	h.Subscribe(func(e Event) { got = append(got, "b:"+string(e.Kind)) })

	h.Publish(Event{Kind: RecordAdded, RecordID: "0"})

	assert.Equal(t, []string{"a:record.added", "b:record.added"}, got)
}

func TestHubUnsubscribe(t *testing.T) {
	var h Hub
	calls := 0

	cancel := h.Subscribe(func(Event) { calls++ })
	h.Subscribe(func(Event) {})
	require.Equal(t, 2, h.Len())

	cancel()
	cancel()
	assert.Equal(t, 1, h.Len())

	h.Publish(Event{Kind: RecordRemoved})
	assert.Equal(t, 0, calls)
}

func TestHubSubscriberMayPublish(t *testing.T) {
	var h Hub
	var kinds []Kind

	h.Subscribe(func(e Event) {
		kinds = append(kinds, e.Kind)
		if e.Kind == FlowCommitted {
			h.Publish(Event{Kind: RecordAdded})
		}
	})

	h.Publish(Event{Kind: FlowCommitted})
	assert.Equal(t, []Kind{FlowCommitted, RecordAdded}, kinds)
}
