package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	shuttlehttp "shuttle/internal/http"
	"shuttle/internal/modules/rider"
	"shuttle/internal/modules/route"
	"shuttle/internal/modules/session"
	"shuttle/internal/modules/trip"
	"shuttle/internal/modules/wallet"
	"shuttle/internal/types"
)

type env struct {
	router  *gin.Engine
	wallets *wallet.Service
	loop    *route.Route
	shuttle *session.Shuttle
}

// buildTestEnv wires the full API against in-memory stores: one route
// (base 1.00, 0.50/km) and one shuttle.
func buildTestEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	routes := route.NewMemoryStore()
	loop := &route.Route{
		Name: "Campus Loop", BaseFare: 100, RatePerKm: 50,
		Stops: []route.Stop{
			{ID: "library", Name: "Library", PositionM: 0},
			{ID: "engineering", Name: "Engineering", PositionM: 800},
			{ID: "union", Name: "Student Union", PositionM: 2100},
		},
	}
	if err := routes.CreateRoute(ctx, loop); err != nil {
		t.Fatalf("create route: %v", err)
	}

	wallets := wallet.NewService(wallet.NewMemoryStore(), nil, nil)
	trips := trip.NewService(trip.Deps{
		Store:  trip.NewMemoryStore(),
		Routes: routes,
		Ledger: wallets,
	})
	sessStore := session.NewMemoryStore()
	shuttleRec := &session.Shuttle{ID: types.NewID(), Name: "Shuttle 1", Capacity: 24}
	if err := sessStore.CreateShuttle(ctx, shuttleRec); err != nil {
		t.Fatalf("create shuttle: %v", err)
	}
	sessions := session.NewService(session.Deps{
		Store:  sessStore,
		Claims: session.NewMemoryClaims(),
		Routes: routes,
		Trips:  trips,
	})
	riders := rider.NewMemoryStore()
	if err := riders.Create(ctx, &rider.Rider{
		ID: "rider-alice", Username: "alice", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("create rider: %v", err)
	}

	srv := shuttlehttp.NewServer(shuttlehttp.ServerDeps{
		Sessions: sessions,
		Trips:    trips,
		Wallets:  wallets,
		Routes:   routes,
		Riders:   riders,
		Shuttles: sessStore,
	})
	return &env{router: srv.Routes(), wallets: wallets, loop: loop, shuttle: shuttleRec}
}

func doRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func startSession(t *testing.T, e *env) string {
	t.Helper()
	w := doRequest(e.router, http.MethodPost, "/api/sessions", map[string]any{
		"shuttle_id": string(e.shuttle.ID),
		"route_id":   string(e.loop.ID),
		"driver_id":  "driver-1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("start session: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID string `json:"id"`
	}
	decode(t, w, &resp)
	return resp.ID
}

func TestDriverTapFlow(t *testing.T) {
	e := buildTestEnv(t)
	if _, err := e.wallets.Credit(context.Background(), "rider-alice", 1000, "top-up"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	sessID := startSession(t, e)

	// Board at the library.
	w := doRequest(e.router, http.MethodPost, fmt.Sprintf("/api/sessions/%s/tap", sessID),
		map[string]any{"username": "alice"})
	if w.Code != http.StatusOK {
		t.Fatalf("tap on: %d %s", w.Code, w.Body.String())
	}
	var tap struct {
		Outcome      string `json:"outcome"`
		BalanceCents int64  `json:"balance_cents"`
	}
	decode(t, w, &tap)
	if tap.Outcome != "tapped_on" {
		t.Fatalf("outcome = %s, want tapped_on", tap.Outcome)
	}

	// Drive to the Student Union.
	for i := 0; i < 2; i++ {
		w = doRequest(e.router, http.MethodPost, fmt.Sprintf("/api/sessions/%s/next", sessID), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("next: %d %s", w.Code, w.Body.String())
		}
	}

	// Alight: 1.00 + 0.50 * 2.1km = 2.05.
	w = doRequest(e.router, http.MethodPost, fmt.Sprintf("/api/sessions/%s/tap", sessID),
		map[string]any{"username": "alice"})
	if w.Code != http.StatusOK {
		t.Fatalf("tap off: %d %s", w.Code, w.Body.String())
	}
	var off struct {
		Outcome      string `json:"outcome"`
		ChargedCents int64  `json:"charged_cents"`
		BalanceCents int64  `json:"balance_cents"`
	}
	decode(t, w, &off)
	if off.Outcome != "tapped_off" || off.ChargedCents != 205 || off.BalanceCents != 795 {
		t.Fatalf("tap off = %+v, want tapped_off charging 2.05", off)
	}
}

func TestTapRejectsUnknownRider(t *testing.T) {
	e := buildTestEnv(t)
	sessID := startSession(t, e)

	w := doRequest(e.router, http.MethodPost, fmt.Sprintf("/api/sessions/%s/tap", sessID),
		map[string]any{"username": "mallory"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", w.Code, w.Body.String())
	}
}

func TestTapWithEmptyWalletIsPaymentRequired(t *testing.T) {
	e := buildTestEnv(t)
	sessID := startSession(t, e)

	w := doRequest(e.router, http.MethodPost, fmt.Sprintf("/api/sessions/%s/tap", sessID),
		map[string]any{"username": "alice"})
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d %s", w.Code, w.Body.String())
	}
}

func TestSecondSessionOnSameShuttleConflicts(t *testing.T) {
	e := buildTestEnv(t)
	startSession(t, e)

	w := doRequest(e.router, http.MethodPost, "/api/sessions", map[string]any{
		"shuttle_id": string(e.shuttle.ID),
		"route_id":   string(e.loop.ID),
		"driver_id":  "driver-2",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", w.Code, w.Body.String())
	}
}

func TestNextPastFinalStopIsANotice(t *testing.T) {
	e := buildTestEnv(t)
	sessID := startSession(t, e)

	for i := 0; i < 2; i++ {
		doRequest(e.router, http.MethodPost, fmt.Sprintf("/api/sessions/%s/next", sessID), nil)
	}
	w := doRequest(e.router, http.MethodPost, fmt.Sprintf("/api/sessions/%s/next", sessID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 notice, got %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Cursor int    `json:"cursor"`
		Notice string `json:"notice"`
	}
	decode(t, w, &resp)
	if resp.Cursor != 2 || resp.Notice == "" {
		t.Fatalf("resp = %+v, want clamped cursor with notice", resp)
	}
}

func TestEndSessionSweepsOpenTrips(t *testing.T) {
	e := buildTestEnv(t)
	if _, err := e.wallets.Credit(context.Background(), "rider-alice", 650, "top-up"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	sessID := startSession(t, e)
	doRequest(e.router, http.MethodPost, fmt.Sprintf("/api/sessions/%s/tap", sessID),
		map[string]any{"username": "alice"})

	w := doRequest(e.router, http.MethodPost, fmt.Sprintf("/api/sessions/%s/end", sessID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("end: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Session struct {
			Status string `json:"status"`
		} `json:"session"`
		ForcedClosed []struct {
			Status string `json:"status"`
		} `json:"forced_closed"`
	}
	decode(t, w, &resp)
	if resp.Session.Status != "ended" {
		t.Fatalf("session status = %s, want ended", resp.Session.Status)
	}
	if len(resp.ForcedClosed) != 1 || resp.ForcedClosed[0].Status != "forced_closed" {
		t.Fatalf("forced closed = %+v, want one forced_closed trip", resp.ForcedClosed)
	}

	// Max fare 1.00 + 0.50 * 2.1km = 2.05; balance 6.50 - 2.05 = 4.45.
	w = doRequest(e.router, http.MethodGet, "/api/riders/alice/wallet", nil)
	var bal struct {
		BalanceCents int64 `json:"balance_cents"`
	}
	decode(t, w, &bal)
	if bal.BalanceCents != 445 {
		t.Fatalf("balance = %d, want 445", bal.BalanceCents)
	}
}

func TestWalletTopUpAndHistory(t *testing.T) {
	e := buildTestEnv(t)

	w := doRequest(e.router, http.MethodPost, "/api/riders/alice/wallet/topup",
		map[string]any{"amount_cents": 500})
	if w.Code != http.StatusCreated {
		t.Fatalf("topup: %d %s", w.Code, w.Body.String())
	}

	w = doRequest(e.router, http.MethodGet, "/api/riders/alice/wallet/transactions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Transactions []struct {
			Kind        string `json:"kind"`
			AmountCents int64  `json:"amount_cents"`
		} `json:"transactions"`
	}
	decode(t, w, &resp)
	if len(resp.Transactions) != 1 || resp.Transactions[0].AmountCents != 500 {
		t.Fatalf("transactions = %+v, want the single top-up", resp.Transactions)
	}
}

func TestAdminCreateRouteAndShuttle(t *testing.T) {
	e := buildTestEnv(t)

	w := doRequest(e.router, http.MethodPost, "/api/admin/routes", map[string]any{
		"name":              "North Line",
		"base_fare_cents":   75,
		"rate_per_km_cents": 25,
		"stops": []map[string]any{
			{"name": "Gym", "position_m": 0},
			{"name": "Stadium", "position_m": 1200},
		},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create route: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		ID    string `json:"id"`
		Stops []struct {
			Name string `json:"name"`
		} `json:"stops"`
	}
	decode(t, w, &created)
	if len(created.Stops) != 2 || created.Stops[0].Name != "Gym" {
		t.Fatalf("created route = %+v", created)
	}

	w = doRequest(e.router, http.MethodPost, "/api/admin/shuttles",
		map[string]any{"name": "Shuttle 2", "capacity": 18})
	if w.Code != http.StatusCreated {
		t.Fatalf("create shuttle: %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRider(t *testing.T) {
	e := buildTestEnv(t)

	w := doRequest(e.router, http.MethodPost, "/api/riders",
		map[string]any{"username": "bob", "email": "bob@campus.edu"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	w = doRequest(e.router, http.MethodPost, "/api/riders",
		map[string]any{"username": "bob"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register: %d %s", w.Code, w.Body.String())
	}
}
