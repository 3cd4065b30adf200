package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToEveryConnectionOfUser(t *testing.T) {
	hub := NewHub()
	a := NewClient(1, "HOST")
	b := NewClient(1, "HOST")
	other := NewClient(2, "TOURIST")
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)

	hub.SendToUser(1, map[string]string{"type": "BOOKING_CONFIRMED"})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.Send:
			var got map[string]string
			require.NoError(t, json.Unmarshal(msg, &got))
			assert.Equal(t, "BOOKING_CONFIRMED", got["type"])
		default:
			t.Fatal("expected a message")
		}
	}
	assert.Len(t, other.Send, 0)
}

func TestClientCloseUnregisters(t *testing.T) {
	hub := NewHub()
	c := NewClient(5, "TOURIST")
	hub.Register(c)
	assert.Equal(t, 1, hub.Connections(5))

	c.Close()
	c.Close()
	assert.Equal(t, 0, hub.Connections(5))
	hub.SendToUser(5, "ignored")
}

func TestNilHubIsSafe(t *testing.T) {
	var hub *Hub
	hub.SendToUser(1, "x")
}
