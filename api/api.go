package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/veil-protocol/veil/ledger"
	"github.com/veil-protocol/veil/pool"
	stg "github.com/veil-protocol/veil/storage"
	"go.vocdoni.io/dvote/log"
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host    string
	Port    int
	Pool    *pool.Pool
	Ledger  *ledger.Ledger
	Storage *stg.Storage
}

// API type represents the read-only HTTP server over the protocol state
// surfaces. Mutations enter through the protocol components directly, never
// through HTTP.
type API struct {
	router  *chi.Mux
	pool    *pool.Pool
	ledger  *ledger.Ledger
	storage *stg.Storage
}

// New creates a new API instance with the given configuration.
// It also starts the HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Pool == nil || conf.Ledger == nil || conf.Storage == nil {
		return nil, fmt.Errorf("missing protocol components")
	}
	a := &API{
		pool:    conf.Pool,
		ledger:  conf.Ledger,
		storage: conf.Storage,
	}

	// Initialize router
	a.initRouter()
	go func() {
		log.Infow("Starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", PoolStatusEndpoint, "method", "GET")
	a.router.Get(PoolStatusEndpoint, a.poolStatus)
	log.Infow("register handler", "endpoint", PoolRootEndpoint, "method", "GET")
	a.router.Get(PoolRootEndpoint, a.poolRoot)
	log.Infow("register handler", "endpoint", PoolRootAtEndpoint, "method", "GET")
	a.router.Get(PoolRootAtEndpoint, a.poolRootAt)
	log.Infow("register handler", "endpoint", NullifierEndpoint, "method", "GET")
	a.router.Get(NullifierEndpoint, a.nullifierStatus)
	log.Infow("register handler", "endpoint", DepositorEndpoint, "method", "GET")
	a.router.Get(DepositorEndpoint, a.depositorOfLabel)
	log.Infow("register handler", "endpoint", BalanceEndpoint, "method", "GET")
	a.router.Get(BalanceEndpoint, a.encryptedBalance)
	log.Infow("register handler", "endpoint", AssetsEndpoint, "method", "GET")
	a.router.Get(AssetsEndpoint, a.assets)
	log.Infow("register handler", "endpoint", AuditorEndpoint, "method", "GET")
	a.router.Get(AuditorEndpoint, a.auditorRecord)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}
