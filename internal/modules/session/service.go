package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"shuttle/internal/metrics"
	"shuttle/internal/modules/route"
	"shuttle/internal/modules/trip"
	"shuttle/internal/types"
)

// Trips is the engine surface the session loop drives taps into.
type Trips interface {
	Tap(ctx context.Context, riderID types.ID, r *route.Route, stopID types.ID) (trip.TapResult, error)
	CloseAllOnRoute(ctx context.Context, routeID types.ID) ([]*trip.Trip, error)
}

type Routes interface {
	GetRoute(ctx context.Context, id types.ID) (*route.Route, error)
}

type Deps struct {
	Store   Store
	Claims  ShuttleClaims
	Routes  Routes
	Trips   Trips
	Metrics *metrics.Collector
	Logger  *zap.Logger
	Now     func() time.Time
}

type Service struct {
	store   Store
	claims  ShuttleClaims
	routes  Routes
	trips   Trips
	metrics *metrics.Collector
	logger  *zap.Logger
	now     func() time.Time
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
		claims:  deps.Claims,
		routes:  deps.Routes,
		trips:   deps.Trips,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		now:     deps.Now,
	}
}

// Start begins a driving session at the route's first stop. The shuttle
// claim guarantees one running session per shuttle across instances.
func (s *Service) Start(ctx context.Context, shuttleID, routeID, driverID types.ID) (*Session, error) {
	r, err := s.routes.GetRoute(ctx, routeID)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        types.NewID(),
		ShuttleID: shuttleID,
		RouteID:   r.ID,
		DriverID:  driverID,
		Cursor:    0,
		Status:    StatusRunning,
		StartedAt: s.now(),
	}

	claimed, err := s.claims.Claim(ctx, shuttleID, sess.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrShuttleBusy
	}

	if err := s.store.Create(ctx, sess); err != nil {
		// Give the shuttle back; the session never existed.
		if relErr := s.claims.Release(ctx, shuttleID); relErr != nil {
			s.logger.Error("claim release after failed create",
				zap.String("shuttle_id", string(shuttleID)),
				zap.Error(relErr),
			)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SessionsRunning.Inc()
	}
	s.logger.Info("session started",
		zap.String("session_id", string(sess.ID)),
		zap.String("shuttle_id", string(shuttleID)),
		zap.String("route", r.Name),
		zap.String("driver_id", string(driverID)),
	)
	return sess, nil
}

// Next advances the shuttle to the following stop. At the final stop the
// cursor stays put and ErrEndOfRoute is returned alongside the session so
// callers can show the notice without treating it as a failure.
func (s *Service) Next(ctx context.Context, sessionID types.ID) (*Session, error) {
	sess, err := s.running(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	r, err := s.routes.GetRoute(ctx, sess.RouteID)
	if err != nil {
		return nil, err
	}
	if sess.Cursor >= len(r.Stops)-1 {
		return sess, ErrEndOfRoute
	}
	sess.Cursor++
	if err := s.store.Update(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info("session advanced",
		zap.String("session_id", string(sess.ID)),
		zap.String("stop", r.Stops[sess.Cursor].Name),
	)
	return sess, nil
}

// Tap feeds a rider's tap at the session's current stop into the trip
// engine, which decides whether it is a tap-on or a tap-off.
func (s *Service) Tap(ctx context.Context, sessionID, riderID types.ID) (trip.TapResult, error) {
	sess, err := s.running(ctx, sessionID)
	if err != nil {
		return trip.TapResult{}, err
	}
	r, err := s.routes.GetRoute(ctx, sess.RouteID)
	if err != nil {
		return trip.TapResult{}, err
	}
	stop := r.Stops[sess.Cursor]
	return s.trips.Tap(ctx, riderID, r, stop.ID)
}

// CurrentStop reports where the shuttle is.
func (s *Service) CurrentStop(ctx context.Context, sessionID types.ID) (route.Stop, error) {
	sess, err := s.running(ctx, sessionID)
	if err != nil {
		return route.Stop{}, err
	}
	r, err := s.routes.GetRoute(ctx, sess.RouteID)
	if err != nil {
		return route.Stop{}, err
	}
	return r.Stops[sess.Cursor], nil
}

// End closes the session: every trip still open on its route is
// force-closed at max fare, the session is marked ended, and the shuttle
// is released for the next driver. Returns the swept trips.
func (s *Service) End(ctx context.Context, sessionID types.ID) ([]*trip.Trip, error) {
	sess, err := s.running(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	closed, err := s.trips.CloseAllOnRoute(ctx, sess.RouteID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sess.Status = StatusEnded
	sess.EndedAt = &now
	if err := s.store.Update(ctx, sess); err != nil {
		return nil, err
	}
	if err := s.claims.Release(ctx, sess.ShuttleID); err != nil {
		// The session is already ended; a leaked claim blocks the shuttle,
		// so it must surface even though the sweep succeeded.
		s.logger.Error("shuttle claim release",
			zap.String("shuttle_id", string(sess.ShuttleID)),
			zap.Error(err),
		)
		return closed, err
	}

	if s.metrics != nil {
		s.metrics.SessionsRunning.Dec()
	}
	s.logger.Info("session ended",
		zap.String("session_id", string(sess.ID)),
		zap.Int("forced_closures", len(closed)),
	)
	return closed, nil
}

// Get returns any session, running or ended.
func (s *Service) Get(ctx context.Context, sessionID types.ID) (*Session, error) {
	return s.store.Get(ctx, sessionID)
}

// ListRunning returns all sessions currently on the road.
func (s *Service) ListRunning(ctx context.Context) ([]*Session, error) {
	return s.store.ListRunning(ctx)
}

func (s *Service) running(ctx context.Context, sessionID types.ID) (*Session, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusRunning {
		return nil, ErrSessionEnded
	}
	return sess, nil
}
