// Package http wires the module services into the HTTP API.
package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shuttle/internal/http/handlers"
	"shuttle/internal/http/middleware"
	"shuttle/internal/modules/rider"
	"shuttle/internal/modules/route"
	"shuttle/internal/modules/session"
	"shuttle/internal/modules/trip"
	"shuttle/internal/modules/wallet"
)

type ServerDeps struct {
	Sessions *session.Service
	Trips    *trip.Service
	Wallets  *wallet.Service
	Routes   route.Store
	Riders   rider.Store
	Shuttles session.Store
	Logger   *zap.Logger
}

type Server struct {
	driver *handlers.DriverHandler
	riders *handlers.RiderHandler
	wallet *handlers.WalletHandler
	admin  *handlers.AdminHandler
	logger *zap.Logger
}

func NewServer(deps ServerDeps) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Server{
		driver: handlers.NewDriverHandler(deps.Sessions, deps.Riders),
		riders: handlers.NewRiderHandler(deps.Riders),
		wallet: handlers.NewWalletHandler(deps.Wallets, deps.Riders),
		admin: handlers.NewAdminHandler(handlers.AdminDeps{
			Routes:   deps.Routes,
			Shuttles: deps.Shuttles,
			Riders:   deps.Riders,
			Wallets:  deps.Wallets,
			Trips:    deps.Trips,
			Sessions: deps.Sessions,
		}),
		logger: deps.Logger,
	}
}

func (s *Server) Routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(s.logger), middleware.Logging(s.logger))

	api := r.Group("/api")

	// Driver console.
	api.POST("/sessions", s.driver.Start)
	api.GET("/sessions/:id", s.driver.Get)
	api.GET("/sessions/:id/stop", s.driver.CurrentStop)
	api.POST("/sessions/:id/next", s.driver.Next)
	api.POST("/sessions/:id/tap", s.driver.Tap)
	api.POST("/sessions/:id/end", s.driver.End)

	// Riders and wallets.
	api.POST("/riders", s.riders.Register)
	api.GET("/riders/:username", s.riders.Get)
	api.GET("/riders/:username/wallet", s.wallet.Balance)
	api.POST("/riders/:username/wallet/topup", s.wallet.TopUp)
	api.GET("/riders/:username/wallet/transactions", s.wallet.History)
	api.GET("/riders/:username/rides", s.wallet.Rides)
	api.GET("/riders/:username/trip", s.admin.ActiveTrip)

	// Public catalog.
	api.GET("/routes", s.admin.ListRoutes)
	api.GET("/routes/:id", s.admin.GetRoute)
	api.GET("/shuttles", s.admin.ListShuttles)

	// Back office.
	admin := api.Group("/admin")
	admin.POST("/routes", s.admin.CreateRoute)
	admin.POST("/shuttles", s.admin.CreateShuttle)
	admin.GET("/riders", s.admin.ListRiders)
	admin.POST("/riders/:username/adjust", s.admin.Adjust)
	admin.GET("/ledger", s.admin.Ledger)
	admin.GET("/sessions", s.admin.ListRunningSessions)

	return r
}
