// Package dashboard fans the engine's bus events out to connected
// websocket viewers and serves REST snapshot endpoints backed by the
// live aggregator. Generalized from a per-tournament subscriber map
// to a flat broadcast list: this engine has one arena running at a
// time, so there is no per-tournament room to scope clients into.
package dashboard

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/arcane-tourneys/botarena/internal/bus"
	"github.com/arcane-tourneys/botarena/internal/live"
	"go.uber.org/zap"
)

// Message is the wire shape pushed to every connected client.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Message types mirrored from the bus topics they carry.
const (
	MessageTournamentStarted   = "tournament_started"
	MessageTournamentCompleted = "tournament_completed"
	MessageEventStarted        = "event_started"
	MessageEventCompleted      = "event_completed"
	MessageEventStageChanged   = "event_stage_changed"
	MessageMatchCompleted      = "match_completed"
	MessageGroupStandings      = "group_standings_updated"
	MessageSeriesStarted       = "series_started"
	MessageSeriesCompleted     = "series_completed"
	MessageSnapshot            = "state_snapshot"
	MessageWelcome             = "welcome"
)

var busToMessageType = map[bus.Topic]string{
	bus.TopicTournamentStarted:    MessageTournamentStarted,
	bus.TopicTournamentCompleted:  MessageTournamentCompleted,
	bus.TopicEventStarted:         MessageEventStarted,
	bus.TopicEventCompleted:       MessageEventCompleted,
	bus.TopicEventStageChanged:    MessageEventStageChanged,
	bus.TopicMatchCompleted:       MessageMatchCompleted,
	bus.TopicGroupStandingsUpdate: MessageGroupStandings,
	bus.TopicSeriesStarted:        MessageSeriesStarted,
	bus.TopicSeriesCompleted:      MessageSeriesCompleted,
	bus.TopicStateSnapshot:        MessageSnapshot,
}

// Hub maintains every connected dashboard client and rebroadcasts
// lifecycle events read off the bus.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan Message

	bus        *bus.Bus
	aggregator *live.Aggregator
	logger     *zap.SugaredLogger

	mu sync.RWMutex
}

// NewHub wires a Hub to the event bus and the live aggregator it reads
// snapshots from.
func NewHub(eventBus *bus.Bus, aggregator *live.Aggregator, logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 256),
		bus:        eventBus,
		aggregator: aggregator,
		logger:     logger,
	}
}

// Run drives client registration and broadcast delivery until ctx is
// cancelled. Callers should also call Listen to feed bus events in.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
			}
			h.clients = make(map[*Client]bool)
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.broadcastMessage(msg)
		}
	}
}

func (h *Hub) broadcastMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		if h.logger != nil {
			h.logger.Warnw("dashboard: failed to marshal broadcast message", "type", msg.Type, "error", err)
		}
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// client's outbound queue is full; drop rather than block
			// the whole broadcast on one slow reader.
		}
	}
}

// Listen subscribes to every bus topic the dashboard relays and pumps
// them into the broadcast channel until ctx is cancelled.
func (h *Hub) Listen(ctx context.Context) {
	for topic, msgType := range busToMessageType {
		sub := h.bus.Subscribe(topic, 0)
		go h.relay(ctx, msgType, sub)
	}
}

func (h *Hub) relay(ctx context.Context, msgType string, sub *bus.Subscription) {
	defer sub.Cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.Events:
			if !ok {
				return
			}
			h.broadcast <- Message{Type: msgType, Data: evt.Payload}
		}
	}
}

// welcomeSnapshot builds the message sent to a client immediately after
// it connects, so it starts from a coherent view rather than an empty
// one.
func (h *Hub) welcomeSnapshot() Message {
	if h.aggregator == nil {
		return Message{Type: MessageWelcome}
	}
	return Message{Type: MessageWelcome, Data: h.aggregator.TakeSnapshot()}
}
