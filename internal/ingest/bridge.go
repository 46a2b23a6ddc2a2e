package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"backend-bodytune/internal/run"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// FixSink accepts fixes for a live run.
type FixSink interface {
	IngestFix(sessionID string, fix run.RoutePoint) error
}

// Bridge subscribes to <subject>.<sessionID> and hands every fix to the sink.
// A message carries one fix object or an array of them, in arrival order.
type Bridge struct {
	conn    *nats.Conn
	subject string
	sink    FixSink
	log     *zap.Logger
	sub     *nats.Subscription
}

type ack struct {
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
	Error    string `json:"error,omitempty"`
}

func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("bodytune-api"),
		nats.MaxReconnects(-1))
}

func NewBridge(conn *nats.Conn, subject string, sink FixSink, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		conn:    conn,
		subject: strings.TrimSuffix(subject, "."),
		sink:    sink,
		log:     logger.Named("ingest"),
	}
}

func (b *Bridge) Start() error {
	sub, err := b.conn.Subscribe(b.subject+".*", b.handleMsg)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.subject, err)
	}
	b.sub = sub
	b.log.Info("listening for fixes", zap.String("subject", b.subject+".*"))
	return nil
}

func (b *Bridge) Close() error {
	if b.sub == nil {
		return nil
	}
	return b.sub.Unsubscribe()
}

func (b *Bridge) handleMsg(msg *nats.Msg) {
	result := b.ingest(msg.Subject, msg.Data)
	if msg.Reply == "" {
		return
	}
	payload, _ := json.Marshal(result)
	if err := msg.Respond(payload); err != nil {
		b.log.Debug("ack failed", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

func (b *Bridge) ingest(subject string, data []byte) ack {
	sessionID := b.sessionID(subject)
	if sessionID == "" {
		return ack{Error: "missing session id in subject"}
	}
	fixes, err := decodeFixes(data)
	if err != nil {
		b.log.Debug("undecodable fix message", zap.String("session_id", sessionID), zap.Error(err))
		return ack{Error: err.Error()}
	}

	var res ack
	for _, fix := range fixes {
		err := b.sink.IngestFix(sessionID, fix)
		switch {
		case err == nil:
			res.Accepted++
		case errors.Is(err, run.ErrInvalidFix):
			res.Rejected++
		default:
			b.log.Debug("fix not ingested", zap.String("session_id", sessionID), zap.Error(err))
			res.Error = err.Error()
			return res
		}
	}
	return res
}

func (b *Bridge) sessionID(subject string) string {
	prefix := b.subject + "."
	if !strings.HasPrefix(subject, prefix) {
		return ""
	}
	return subject[len(prefix):]
}

func decodeFixes(data []byte) ([]run.RoutePoint, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var fixes []run.RoutePoint
		if err := json.Unmarshal(data, &fixes); err != nil {
			return nil, err
		}
		return fixes, nil
	}
	var fix run.RoutePoint
	if err := json.Unmarshal(data, &fix); err != nil {
		return nil, err
	}
	return []run.RoutePoint{fix}, nil
}
