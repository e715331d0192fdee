// Package stream pushes committed hike tracks to everyone watching the hike,
// locally over websockets and across instances over redis pub/sub.
package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix = "hikes:"
	channelSuffix = ":track"
)

type Hub struct {
	redis   *redis.Client
	log     *zap.Logger
	origin  string
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex

	cancel context.CancelFunc
	stop   <-chan struct{}
	done   chan struct{}
}

type Client struct {
	HikeID string
	Send   chan []byte
}

// envelope tags redis messages with the publishing hub so it can skip its
// own publications, which it already delivered locally.
type envelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

func NewHub(redisClient *redis.Client, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		redis:   redisClient,
		log:     log,
		origin:  uuid.NewString(),
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		h.stop = ctx.Done()
		h.done = make(chan struct{})
		pubsub := redisClient.PSubscribe(ctx, channelPrefix+"*"+channelSuffix)
		waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
		if _, err := pubsub.Receive(waitCtx); err != nil {
			h.log.Warn("redis subscribe failed", zap.Error(err))
		}
		waitCancel()
		go h.forward(pubsub)
	}
	return h
}

func (h *Hub) Register(hikeID string) *Client {
	client := &Client{
		HikeID: hikeID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[hikeID] == nil {
		h.clients[hikeID] = map[*Client]struct{}{}
	}
	h.clients[hikeID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if hikeClients, ok := h.clients[client.HikeID]; ok {
		if _, registered := hikeClients[client]; !registered {
			return
		}
		delete(hikeClients, client)
		if len(hikeClients) == 0 {
			delete(h.clients, client.HikeID)
		}
		close(client.Send)
	}
}

// Broadcast delivers payload to local watchers of hikeID and publishes it
// for other instances. Slow watchers drop messages rather than block.
func (h *Hub) Broadcast(hikeID string, payload []byte) {
	h.deliver(hikeID, payload)

	if h.redis == nil {
		return
	}
	msg, err := json.Marshal(envelope{Origin: h.origin, Payload: payload})
	if err != nil {
		h.log.Error("encode broadcast", zap.String("hike_id", hikeID), zap.Error(err))
		return
	}
	if err := h.redis.Publish(context.Background(), redisChannel(hikeID), msg).Err(); err != nil {
		h.log.Warn("redis publish error", zap.String("hike_id", hikeID), zap.Error(err))
	}
}

// BroadcastJSON marshals v and broadcasts it.
func (h *Hub) BroadcastJSON(hikeID string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(hikeID, payload)
	return nil
}

// Close stops the redis forwarder.
func (h *Hub) Close() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.done
}

func (h *Hub) deliver(hikeID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[hikeID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) forward(pubsub *redis.PubSub) {
	defer close(h.done)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.log.Warn("drop malformed track message", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if env.Origin == h.origin {
				continue
			}
			hikeID := hikeIDFromChannel(msg.Channel)
			if hikeID == "" {
				continue
			}
			h.deliver(hikeID, env.Payload)
		case <-h.stop:
			return
		}
	}
}

func redisChannel(hikeID string) string {
	return channelPrefix + hikeID + channelSuffix
}

func hikeIDFromChannel(ch string) string {
	// hikes:{id}:track
	if len(ch) <= len(channelPrefix)+len(channelSuffix) ||
		!strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
