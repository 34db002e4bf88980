package trip

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"shuttle/internal/metrics"
	"shuttle/internal/modules/fare"
	"shuttle/internal/modules/route"
	"shuttle/internal/modules/wallet"
	"shuttle/internal/types"
)

var ErrNoActiveTrip = errors.New("rider has no active trip on this route")

// Routes resolves the route a stale trip was taken on.
type Routes interface {
	GetRoute(ctx context.Context, id types.ID) (*route.Route, error)
}

// Ledger is the wallet surface the engine charges against.
type Ledger interface {
	Balance(ctx context.Context, riderID types.ID) (types.Money, error)
	Debit(ctx context.Context, riderID types.ID, amount types.Money, reason string, tripID *types.ID) (wallet.Transaction, error)
	DebitUpTo(ctx context.Context, riderID types.ID, amount types.Money, reason string, tripID *types.ID) (wallet.Transaction, error)
}

// Events receives trip lifecycle notifications. Nil-safe in the service.
type Events interface {
	TripStarted(ctx context.Context, t *Trip)
	TripClosed(ctx context.Context, t *Trip, charged types.Money)
}

type Deps struct {
	Store   Store
	Routes  Routes
	Ledger  Ledger
	Events  Events
	Metrics *metrics.Collector
	Logger  *zap.Logger
	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	store   Store
	routes  Routes
	ledger  Ledger
	events  Events
	metrics *metrics.Collector
	logger  *zap.Logger
	now     func() time.Time
	locks   riderLocks
}

func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		store:   deps.Store,
		routes:  deps.Routes,
		ledger:  deps.Ledger,
		events:  deps.Events,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     deps.Now,
	}
}

// Tap is the driver surface's single entry point: the engine decides
// whether the event is a tap-on or a tap-off from the rider's current trip
// state. The decision and its effects run under the rider's lock so no
// concurrent tap can observe a half-applied transition.
func (s *Service) Tap(ctx context.Context, riderID types.ID, r *route.Route, stopID types.ID) (TapResult, error) {
	defer s.locks.lock(riderID).Unlock()

	active, err := s.store.ActiveByRider(ctx, riderID)
	if err != nil {
		return TapResult{}, err
	}
	if active != nil && active.RouteID == r.ID && active.TapOnStopID != stopID {
		return s.tapOff(ctx, riderID, r, stopID)
	}
	return s.tapOn(ctx, riderID, r, stopID)
}

// TapOn evaluates a boarding tap. See tapOn for the rules.
func (s *Service) TapOn(ctx context.Context, riderID types.ID, r *route.Route, stopID types.ID) (TapResult, error) {
	defer s.locks.lock(riderID).Unlock()
	return s.tapOn(ctx, riderID, r, stopID)
}

// TapOff evaluates an alighting tap against the rider's active trip.
func (s *Service) TapOff(ctx context.Context, riderID types.ID, r *route.Route, stopID types.ID) (TapResult, error) {
	defer s.locks.lock(riderID).Unlock()
	return s.tapOff(ctx, riderID, r, stopID)
}

// ActiveTrip returns the rider's current trip, nil when none.
func (s *Service) ActiveTrip(ctx context.Context, riderID types.ID) (*Trip, error) {
	return s.store.ActiveByRider(ctx, riderID)
}

// CloseAllOnRoute force-closes every active trip on the route at max fare.
// Invoked on session end. Individual closures never reject; a store
// failure is logged and the sweep continues.
func (s *Service) CloseAllOnRoute(ctx context.Context, routeID types.ID) ([]*Trip, error) {
	stale, err := s.store.ActiveOnRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}
	var closed []*Trip
	for _, t := range stale {
		func() {
			defer s.locks.lock(t.RiderID).Unlock()
			// Re-check under the lock: the rider may have tapped off since
			// the sweep was listed.
			cur, err := s.store.ActiveByRider(ctx, t.RiderID)
			if err != nil || cur == nil || cur.ID != t.ID {
				return
			}
			c, err := s.forceClose(ctx, cur, nil)
			if err != nil {
				s.logger.Error("forced closure failed",
					zap.String("trip_id", string(t.ID)),
					zap.Error(err),
				)
				return
			}
			closed = append(closed, c)
		}()
	}
	return closed, nil
}

// tapOn applies the tap-on rules:
//
//	Rule 3: a re-tap at the boarding stop of the active trip is ignored.
//	Rule 1: any other active trip is stale; close it at max fare first.
//	Rule 2: reject when the balance cannot cover the route's base fare.
func (s *Service) tapOn(ctx context.Context, riderID types.ID, r *route.Route, stopID types.ID) (TapResult, error) {
	if _, ok := r.StopByID(stopID); !ok {
		return TapResult{}, fare.ErrInvalidStop
	}

	active, err := s.store.ActiveByRider(ctx, riderID)
	if err != nil {
		return TapResult{}, err
	}

	var forced *Trip
	if active != nil {
		if active.RouteID == r.ID && active.TapOnStopID == stopID {
			balance, err := s.ledger.Balance(ctx, riderID)
			if err != nil {
				return TapResult{}, err
			}
			s.count(OutcomeIgnored)
			return TapResult{Outcome: OutcomeIgnored, Trip: active, Balance: balance}, nil
		}
		forced, err = s.forceClose(ctx, active, &stopID)
		if err != nil {
			return TapResult{}, err
		}
	}

	balance, err := s.ledger.Balance(ctx, riderID)
	if err != nil {
		return TapResult{}, err
	}
	if balance < r.BaseFare {
		s.countOutcome("rejected")
		s.logger.Info("tap-on rejected",
			zap.String("rider_id", string(riderID)),
			zap.String("route", r.Name),
			zap.String("balance", balance.String()),
			zap.String("base_fare", r.BaseFare.String()),
		)
		return TapResult{}, wallet.ErrInsufficientFunds
	}

	t := &Trip{
		ID:          types.NewID(),
		RiderID:     riderID,
		RouteID:     r.ID,
		TapOnStopID: stopID,
		TapOnAt:     s.now(),
		Status:      StatusActive,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return TapResult{}, err
	}
	s.count(OutcomeTappedOn)
	if s.metrics != nil {
		s.metrics.ActiveTrips.Inc()
	}
	if s.events != nil {
		s.events.TripStarted(ctx, t)
	}
	s.logger.Info("tap-on",
		zap.String("rider_id", string(riderID)),
		zap.String("trip_id", string(t.ID)),
		zap.String("route", r.Name),
	)
	return TapResult{Outcome: OutcomeTappedOn, Trip: t, ForcedClosed: forced, Balance: balance}, nil
}

// tapOff completes the active trip, charging the distance fare. A
// shortfall drains the balance to zero and the trip still completes.
func (s *Service) tapOff(ctx context.Context, riderID types.ID, r *route.Route, stopID types.ID) (TapResult, error) {
	active, err := s.store.ActiveByRider(ctx, riderID)
	if err != nil {
		return TapResult{}, err
	}
	if active == nil || active.RouteID != r.ID {
		return TapResult{}, ErrNoActiveTrip
	}

	amount, err := fare.Compute(r, active.TapOnStopID, stopID)
	if err != nil {
		return TapResult{}, err
	}

	var charged types.Money
	if amount > 0 {
		reason := fmt.Sprintf("fare on %s", r.Name)
		tx, err := s.ledger.Debit(ctx, riderID, amount, reason, &active.ID)
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			tx, err = s.ledger.DebitUpTo(ctx, riderID, amount, reason, &active.ID)
		}
		if err != nil {
			return TapResult{}, err
		}
		charged = -tx.Amount
	}

	now := s.now()
	active.Status = StatusCompleted
	active.TapOffStopID = &stopID
	active.TapOffAt = &now
	if err := s.store.Close(ctx, active); err != nil {
		return TapResult{}, err
	}

	s.count(OutcomeTappedOff)
	if s.metrics != nil {
		s.metrics.ActiveTrips.Dec()
		s.metrics.FaresChargedCents.Add(float64(charged))
	}
	if s.events != nil {
		s.events.TripClosed(ctx, active, charged)
	}

	balance, err := s.ledger.Balance(ctx, riderID)
	if err != nil {
		return TapResult{}, err
	}
	s.logger.Info("tap-off",
		zap.String("rider_id", string(riderID)),
		zap.String("trip_id", string(active.ID)),
		zap.String("charged", charged.String()),
		zap.String("balance", balance.String()),
	)
	return TapResult{Outcome: OutcomeTappedOff, Trip: active, Charged: charged, Balance: balance}, nil
}

// forceClose resolves a stale trip: charge the old route's max fare
// (draining to zero if needed) and mark the trip forced-closed. atStopID
// records where the stale trip was discovered; nil means a session-end
// sweep, audited against the old route's final stop.
func (s *Service) forceClose(ctx context.Context, t *Trip, atStopID *types.ID) (*Trip, error) {
	r, err := s.routes.GetRoute(ctx, t.RouteID)
	if err != nil {
		return nil, err
	}

	var charged types.Money
	if maxFare := fare.Max(r); maxFare > 0 {
		tx, err := s.ledger.DebitUpTo(ctx, t.RiderID, maxFare,
			fmt.Sprintf("max fare, trip closed without tap-off on %s", r.Name), &t.ID)
		if err != nil {
			return nil, err
		}
		charged = -tx.Amount
	}

	now := s.now()
	t.Status = StatusForcedClosed
	if atStopID != nil {
		t.TapOffStopID = atStopID
	} else {
		last := r.Last().ID
		t.TapOffStopID = &last
	}
	t.TapOffAt = &now
	if err := s.store.Close(ctx, t); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ForcedClosures.Inc()
		s.metrics.ActiveTrips.Dec()
		s.metrics.FaresChargedCents.Add(float64(charged))
	}
	if s.events != nil {
		s.events.TripClosed(ctx, t, charged)
	}
	s.logger.Info("forced closure",
		zap.String("rider_id", string(t.RiderID)),
		zap.String("trip_id", string(t.ID)),
		zap.String("charged", charged.String()),
	)
	return t, nil
}

func (s *Service) count(o Outcome) {
	s.countOutcome(string(o))
}

func (s *Service) countOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.TapsTotal.WithLabelValues(outcome).Inc()
	}
}

// riderLocks serializes tap processing per rider: every tap reads the
// current trip and balance and then writes, so two events for one rider
// must never interleave.
type riderLocks struct {
	mu sync.Mutex
	m  map[types.ID]*sync.Mutex
}

func (l *riderLocks) lock(id types.ID) *sync.Mutex {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[types.ID]*sync.Mutex)
	}
	mu, ok := l.m[id]
	if !ok {
		mu = &sync.Mutex{}
		l.m[id] = mu
	}
	l.mu.Unlock()
	mu.Lock()
	return mu
}
