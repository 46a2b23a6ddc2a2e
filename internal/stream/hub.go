package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event types pushed to live session subscribers.
const (
	EventRunStarted      = "run_started"
	EventFix             = "fix"
	EventFixRejected     = "fix_rejected"
	EventLocationError   = "location_error"
	EventRunPaused       = "run_paused"
	EventRunResumed      = "run_resumed"
	EventRunFinished     = "run_finished"
	EventRunRestarted    = "run_restarted"
	EventWorkoutState    = "workout_state"
	EventWorkoutFinished = "workout_finished"
	EventSessionSaved    = "session_saved"
	EventSaveFailed      = "session_save_failed"
)

type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	At        int64  `json:"at"`
	Data      any    `json:"data,omitempty"`
}

// Hub fans session events out to websocket clients. With Redis configured every
// event goes through pub/sub so that clients connected to any instance see it.
type Hub struct {
	redis   *redis.Client
	log     *zap.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex

	cancel context.CancelFunc
	done   chan struct{}
}

type Client struct {
	SessionID string
	Send      chan []byte
}

func NewHub(redisClient *redis.Client, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		redis:   redisClient,
		log:     logger,
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

	ready, stop := context.WithTimeout(ctx, 2*time.Second)
	defer stop()
	if _, err := pubsub.Receive(ready); err != nil {
		h.log.Warn("redis subscribe failed, events stay local", zap.Error(err))
		_ = pubsub.Close()
		h.redis = nil
		close(h.done)
		return h
	}

	go h.subscribeRedis(ctx, pubsub)
	return h
}

func (h *Hub) Register(sessionID string) *Client {
	client := &Client{
		SessionID: sessionID,
		Send:      make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = map[*Client]struct{}{}
	}
	h.clients[sessionID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessionClients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	if _, ok := sessionClients[client]; !ok {
		return
	}
	delete(sessionClients, client)
	if len(sessionClients) == 0 {
		delete(h.clients, client.SessionID)
	}
	close(client.Send)
}

// Publish wraps data in an Event and broadcasts it.
func (h *Hub) Publish(sessionID, eventType string, data any) {
	payload, err := json.Marshal(Event{
		Type:      eventType,
		SessionID: sessionID,
		At:        time.Now().UnixMilli(),
		Data:      data,
	})
	if err != nil {
		h.log.Error("marshal event", zap.String("type", eventType), zap.Error(err))
		return
	}
	h.Broadcast(sessionID, payload)
}

func (h *Hub) Broadcast(sessionID string, payload []byte) {
	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(sessionID), payload).Err()
		if err == nil {
			return
		}
		h.log.Warn("redis publish failed, delivering locally", zap.String("session_id", sessionID), zap.Error(err))
	}
	h.deliver(sessionID, payload)
}

// Close stops the Redis subscription. Registered clients are left alone.
func (h *Hub) Close() {
	if h.cancel != nil {
		h.cancel()
	}
	<-h.done
}

// deliver drops the payload for clients whose buffer is full.
func (h *Hub) deliver(sessionID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[sessionID] {
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
			sessionID := sessionIDFromChannel(msg.Channel)
			if sessionID == "" {
				continue
			}
			h.deliver(sessionID, []byte(msg.Payload))
		}
	}
}

const (
	channelPrefix  = "bodytune:session:"
	channelSuffix  = ":events"
	channelPattern = channelPrefix + "*" + channelSuffix
)

func redisChannel(sessionID string) string {
	return channelPrefix + sessionID + channelSuffix
}

func sessionIDFromChannel(ch string) string {
	if !strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
