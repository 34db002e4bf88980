// Package events publishes trip and ledger events to NATS for downstream
// consumers (displays, analytics). Publishing is best-effort: a failed
// publish is counted and logged, never surfaced to the tap path.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"shuttle/internal/metrics"
	"shuttle/internal/modules/trip"
	"shuttle/internal/modules/wallet"
	"shuttle/internal/types"
)

const (
	subjectTripStarted = "shuttle.trips.started"
	subjectTripClosed  = "shuttle.trips.closed"
	subjectLedgerTx    = "shuttle.ledger.tx"
)

type Publisher struct {
	nc      *nats.Conn
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewPublisher connects to NATS with reconnect handling wired into the
// connection gauge.
func NewPublisher(url string, m *metrics.Collector, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	setConnected := func(up bool) {
		if m == nil {
			return
		}
		if up {
			m.NATSConnected.Set(1)
		} else {
			m.NATSConnected.Set(0)
		}
	}
	nc, err := nats.Connect(url,
		nats.Name("shuttle-api"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			setConnected(false)
			logger.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			setConnected(true)
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			setConnected(false)
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	setConnected(true)
	return &Publisher{nc: nc, metrics: m, logger: logger}, nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

type tripMessage struct {
	TripID       string     `json:"tripId"`
	RiderID      string     `json:"riderId"`
	RouteID      string     `json:"routeId"`
	Status       string     `json:"status"`
	TapOnStopID  string     `json:"tapOnStopId"`
	TapOnAt      time.Time  `json:"tapOnAt"`
	TapOffStopID *string    `json:"tapOffStopId,omitempty"`
	TapOffAt     *time.Time `json:"tapOffAt,omitempty"`
	ChargedCents int64      `json:"chargedCents,omitempty"`
}

type ledgerMessage struct {
	TxID        string    `json:"txId"`
	RiderID     string    `json:"riderId"`
	Kind        string    `json:"kind"`
	AmountCents int64     `json:"amountCents"`
	Reason      string    `json:"reason"`
	TripID      *string   `json:"tripId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (p *Publisher) TripStarted(_ context.Context, t *trip.Trip) {
	p.publish(tripSubject(subjectTripStarted, t), tripToMessage(t, 0))
}

func (p *Publisher) TripClosed(_ context.Context, t *trip.Trip, charged types.Money) {
	p.publish(tripSubject(subjectTripClosed, t), tripToMessage(t, int64(charged)))
}

// tripSubject scopes a trip event to its route so consumers can subscribe
// per route (shuttle.trips.closed.<routeId>).
func tripSubject(prefix string, t *trip.Trip) string {
	return fmt.Sprintf("%s.%s", prefix, subjectToken(string(t.RouteID)))
}

func (p *Publisher) TransactionAppended(_ context.Context, tx wallet.Transaction) {
	msg := ledgerMessage{
		TxID:        string(tx.ID),
		RiderID:     string(tx.RiderID),
		Kind:        string(tx.Kind),
		AmountCents: int64(tx.Amount),
		Reason:      tx.Reason,
		CreatedAt:   tx.CreatedAt,
	}
	if tx.TripID != nil {
		s := string(*tx.TripID)
		msg.TripID = &s
	}
	p.publish(subjectLedgerTx, msg)
}

func (p *Publisher) publish(subject string, msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("event marshal", zap.String("subject", subject), zap.Error(err))
		return
	}
	if err := p.nc.Publish(subject, b); err != nil {
		if p.metrics != nil {
			p.metrics.NATSPublishErrs.Inc()
		}
		p.logger.Error("event publish", zap.String("subject", subject), zap.Error(err))
		return
	}
	if p.metrics != nil {
		p.metrics.NATSPublished.Inc()
	}
}

func tripToMessage(t *trip.Trip, charged int64) tripMessage {
	msg := tripMessage{
		TripID:       string(t.ID),
		RiderID:      string(t.RiderID),
		RouteID:      string(t.RouteID),
		Status:       string(t.Status),
		TapOnStopID:  string(t.TapOnStopID),
		TapOnAt:      t.TapOnAt,
		ChargedCents: charged,
	}
	if t.TapOffStopID != nil {
		s := string(*t.TapOffStopID)
		msg.TapOffStopID = &s
	}
	msg.TapOffAt = t.TapOffAt
	return msg
}

// subjectToken sanitizes an identifier for use inside a NATS subject.
// Route IDs are UUIDs today, but admin-created IDs are not guaranteed
// token-safe.
func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
