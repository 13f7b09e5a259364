package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/medsnear/medsnear/internal/adapters/nats"
	"github.com/medsnear/medsnear/internal/core/domain"
	"github.com/medsnear/medsnear/internal/pkg/metrics"
)

const wsPingInterval = 30 * time.Second

// wsRequest is a client command. An empty PharmacyID means every pharmacy.
type wsRequest struct {
	Action     string `json:"action"` // subscribe | unsubscribe
	PharmacyID string `json:"pharmacy_id"`
}

// wsFrame is everything the server writes. Event frames carry Event; replies
// carry Status or Error.
type wsFrame struct {
	Type    string               `json:"type"` // event | reply | error
	Status  string               `json:"status,omitempty"`
	Subject string               `json:"subject,omitempty"`
	Error   string               `json:"error,omitempty"`
	Event   *domain.CatalogEvent `json:"event,omitempty"`
}

// wsSession is one connected client and its NATS subscriptions.
type wsSession struct {
	conn *websocket.Conn
	nc   *nats.Conn

	writeMu sync.Mutex
	subs    map[string]*nats.Subscription
}

func (s *wsSession) write(f wsFrame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSession) reply(status, subject string) {
	_ = s.write(wsFrame{Type: "reply", Status: status, Subject: subject})
}

func (s *wsSession) fail(msg string) {
	_ = s.write(wsFrame{Type: "error", Error: msg})
}

func (s *wsSession) relay(msg *nats.Msg) {
	ev, err := natsadapter.DecodeCatalogEvent(msg.Data)
	if err != nil {
		slog.Warn("ws dropping malformed catalog event", "subject", msg.Subject, "error", err)
		return
	}
	_ = s.write(wsFrame{Type: "event", Subject: msg.Subject, Event: ev})
}

func (s *wsSession) keepAlive(done <-chan struct{}) {
	t := time.NewTicker(wsPingInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.writeMu.Lock()
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *wsSession) handle(req wsRequest) {
	subject := natsadapter.SubjectPrefix + ">"
	if req.PharmacyID != "" {
		subject = natsadapter.Subject(req.PharmacyID)
	}

	switch req.Action {
	case "subscribe":
		if s.nc == nil {
			s.fail("event stream unavailable")
			return
		}
		if _, ok := s.subs[subject]; ok {
			s.reply("already subscribed", subject)
			return
		}
		sub, err := s.nc.Subscribe(subject, s.relay)
		if err != nil {
			s.fail("subscribe failed: " + err.Error())
			return
		}
		s.subs[subject] = sub
		s.reply("subscribed", subject)

	case "unsubscribe":
		sub, ok := s.subs[subject]
		if !ok {
			s.fail("not subscribed to " + subject)
			return
		}
		_ = sub.Unsubscribe()
		delete(s.subs, subject)
		s.reply("unsubscribed", subject)

	default:
		s.fail("unknown action: " + req.Action)
	}
}

// WebSocketHandler relays catalog change events to clients as JSON frames.
// Nothing is relayed until the client subscribes.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		s := &wsSession{conn: c, nc: nc, subs: make(map[string]*nats.Subscription)}
		remote := c.RemoteAddr().String()
		slog.Debug("ws client connected", "remote", remote)

		done := make(chan struct{})
		go s.keepAlive(done)

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}
			var req wsRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				s.fail("invalid JSON")
				continue
			}
			s.handle(req)
		}

		close(done)
		for _, sub := range s.subs {
			_ = sub.Unsubscribe()
		}
		slog.Debug("ws client disconnected", "remote", remote, "subscriptions", len(s.subs))
	}
}
