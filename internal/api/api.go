package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/susu3304/warikanbot/internal/config"
	"github.com/susu3304/warikanbot/internal/warikan"
)

// Discord is what the API needs from the bot: group membership and settlement DMs.
type Discord interface {
	CanAccess(ctx context.Context, userID, groupID string) (bool, error)
	NotifySettlement(res *warikan.Settlement)
}

type API struct {
	router      *mux.Router
	svc         *warikan.Service
	discord     Discord
	config      *config.Config
	oauthConfig *oauth2.Config
	jwtSecret   []byte
	startedAt   time.Time
}

func New(cfg *config.Config, svc *warikan.Service, discord Discord) *API {
	api := &API{
		router:    mux.NewRouter(),
		svc:       svc,
		discord:   discord,
		config:    cfg,
		jwtSecret: []byte(cfg.JWTSecret),
		startedAt: time.Now(),
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	a.router.HandleFunc("/health", a.handleHealth).Methods("GET")

	// Auth endpoints
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	// Protected endpoints
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	groups := protected.PathPrefix("/groups/{group_id}").Subrouter()
	groups.Use(a.groupMiddleware)

	groups.HandleFunc("", a.handleGroupState).Methods("GET")
	groups.HandleFunc("/items", a.handleListItems).Methods("GET")
	groups.HandleFunc("/items", a.handleAddItems).Methods("POST")
	groups.HandleFunc("/items", a.handleReplaceItems).Methods("PUT")
	groups.HandleFunc("/items/import", a.handleImportItems).Methods("POST")
	groups.HandleFunc("/items/{index:[0-9]+}", a.handleEditItem).Methods("PUT")
	groups.HandleFunc("/items/{index:[0-9]+}", a.handleDeleteItem).Methods("DELETE")
	groups.HandleFunc("/claims", a.handleListClaims).Methods("GET")
	groups.HandleFunc("/claims", a.handleSubmitClaims).Methods("POST")
	groups.HandleFunc("/payments", a.handleRecordPayment).Methods("POST")
	groups.HandleFunc("/unassigned", a.handleUnassigned).Methods("GET")
	groups.HandleFunc("/balances", a.handleBalances).Methods("GET")
	groups.HandleFunc("/finalize", a.handleFinalize).Methods("POST")
}

// Handler returns the router wrapped with CORS.
func (a *API) Handler() http.Handler {
	// Note: When AllowedOrigins is "*", AllowCredentials must be false
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.router)
}

func (a *API) Start() error {
	log.Info().Str("addr", a.config.WebBind).Msg("API server listening")
	srv := &http.Server{
		Addr:              a.config.WebBind,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}
