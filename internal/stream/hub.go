package stream

import (
	"context"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	channelPrefix  = "ride:"
	channelSuffix  = ":events"
	channelPattern = channelPrefix + "*" + channelSuffix
	clientBuffer   = 64
)

// Event is one message on a ride's stream.
type Event struct {
	Type   string `json:"type"`
	RideID string `json:"ride_id"`
	At     int64  `json:"at"`
	Data   any    `json:"data,omitempty"`
}

// Hub fans ride events out to websocket clients. With Redis configured,
// events also travel to clients connected to other instances. Sends never
// block: a slow client drops messages.
type Hub struct {
	redis   *redis.Client
	origin  string
	log     logrus.FieldLogger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex

	cancel context.CancelFunc
	done   chan struct{}
}

type Client struct {
	RideID string
	Send   chan []byte
}

func NewHub(redisClient *redis.Client, log logrus.FieldLogger) *Hub {
	h := &Hub{
		redis:   redisClient,
		origin:  uuid.NewString(),
		log:     log,
		clients: map[string]map[*Client]struct{}{},
		done:    make(chan struct{}),
	}

	if redisClient == nil {
		close(h.done)
		return h
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	pubsub := redisClient.PSubscribe(ctx, channelPattern)
	// Wait for the subscription so events published right after NewHub are seen.
	if _, err := pubsub.Receive(ctx); err != nil {
		log.WithError(err).Warn("redis subscribe failed; stream is local only")
	}
	go h.subscribeRedis(ctx, pubsub)
	return h
}

func (h *Hub) Register(rideID string) *Client {
	client := &Client{
		RideID: rideID,
		Send:   make(chan []byte, clientBuffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[rideID] == nil {
		h.clients[rideID] = map[*Client]struct{}{}
	}
	h.clients[rideID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rideClients, ok := h.clients[client.RideID]
	if !ok {
		return
	}
	if _, ok := rideClients[client]; !ok {
		return
	}
	delete(rideClients, client)
	if len(rideClients) == 0 {
		delete(h.clients, client.RideID)
	}
	close(client.Send)
}

// Publish encodes evt and broadcasts it on the ride's stream.
func (h *Hub) Publish(rideID string, evt Event) {
	if evt.RideID == "" {
		evt.RideID = rideID
	}
	if evt.At == 0 {
		evt.At = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).WithField("type", evt.Type).Warn("stream event not encodable")
		return
	}
	h.Broadcast(rideID, payload)
}

func (h *Hub) Broadcast(rideID string, payload []byte) {
	h.deliver(rideID, payload)

	if h.redis != nil {
		msg := h.origin + "|" + string(payload)
		err := h.redis.Publish(context.Background(), redisChannel(rideID), msg).Err()
		if err != nil {
			h.log.WithError(err).WithField("ride_id", rideID).Warn("redis publish failed")
		}
	}
}

func (h *Hub) deliver(rideID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[rideID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis(ctx context.Context, pubsub *redis.PubSub) {
	defer close(h.done)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			origin, payload, found := strings.Cut(msg.Payload, "|")
			if !found || origin == h.origin {
				continue
			}
			rideID := rideIDFromChannel(msg.Channel)
			if rideID == "" {
				continue
			}
			h.deliver(rideID, []byte(payload))
		}
	}
}

// Close stops the Redis subscription. Local delivery keeps working.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
	<-h.done
}

func redisChannel(rideID string) string {
	return channelPrefix + rideID + channelSuffix
}

func rideIDFromChannel(ch string) string {
	if len(ch) <= len(channelPrefix)+len(channelSuffix) ||
		!strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
