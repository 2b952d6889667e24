package room

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// relayMessage is the envelope published to Redis, grounded on the
// teacher's RedisMessage in internal/service/hub.go.
type relayMessage struct {
	RoomID        string          `json:"room_id"`
	ExcludeConnID string          `json:"exclude_conn_id"`
	Payload       json.RawMessage `json:"payload"`
}

// RedisRelay fans a room's broadcasts out to every other room-server
// process sharing the same Redis instance, and rebroadcasts messages
// published by those peers to this process's own local connections.
// Grounded on the teacher's publishToRedis/subscribeToRedis.
type RedisRelay struct {
	client  *redis.Client
	ctx     context.Context
	manager *Manager
}

// NewRedisRelay returns a relay bound to client. Call Start once the
// relay's Manager is available (set via SetManager) to begin the
// subscription loop.
func NewRedisRelay(client *redis.Client) *RedisRelay {
	return &RedisRelay{client: client, ctx: context.Background()}
}

// SetManager wires the relay to the manager whose rooms it rebroadcasts
// into. Must be called before Start.
func (r *RedisRelay) SetManager(m *Manager) {
	r.manager = m
}

// Publish sends payload to the room:<roomID> channel for other instances.
func (r *RedisRelay) Publish(roomID string, payload []byte, excludeConnID string) {
	msg := relayMessage{RoomID: roomID, ExcludeConnID: excludeConnID, Payload: payload}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("room relay: failed to marshal message for room %s: %v", roomID, err)
		return
	}
	if err := r.client.Publish(r.ctx, "room:"+roomID, data).Err(); err != nil {
		log.Printf("room relay: failed to publish to room %s: %v", roomID, err)
	}
}

// Start subscribes to room:* and rebroadcasts every message that arrives to
// the matching local room's connections. Blocks until ctx is done; run it
// in its own goroutine.
func (r *RedisRelay) Start(ctx context.Context) {
	pubsub := r.client.PSubscribe(ctx, "room:*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	log.Println("room relay: subscribed to room:* channels")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var relayed relayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &relayed); err != nil {
				log.Printf("room relay: failed to unmarshal message: %v", err)
				continue
			}
			rm, ok := r.manager.Get(relayed.RoomID)
			if !ok {
				continue
			}
			exclude := map[string]bool{}
			if relayed.ExcludeConnID != "" {
				exclude[relayed.ExcludeConnID] = true
			}
			rm.broadcastLocal(relayed.Payload, exclude)
		}
	}
}
