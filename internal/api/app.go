package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/meetspace/meetspace/internal/config"
	"github.com/meetspace/meetspace/internal/database"
	"github.com/meetspace/meetspace/internal/session"
	"github.com/meetspace/meetspace/internal/stats"
)

type MeetSpaceApp struct {
	log            *log.Logger
	db             database.MeetSpaceRepository
	mux            *http.Server
	sm             *session.SessionManager
	stats          stats.StatsProvider
	signingKey     []byte
	allowedOrigins []string
	jitsiDomain    string
	jaasAppID      string
}

func NewMeetSpaceApp(mux *http.ServeMux, logger *log.Logger, sm *session.SessionManager, db database.MeetSpaceRepository, sp stats.StatsProvider, cfg *config.Config) *MeetSpaceApp {
	s := &MeetSpaceApp{
		log:            logger,
		db:             db,
		sm:             sm,
		stats:          sp,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		jitsiDomain:    cfg.JitsiDomain,
		jaasAppID:      cfg.JaaSAppID,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))
	mux.Handle("POST /api/meetings", s.authMiddleware(s.createMeeting))
	mux.Handle("POST /api/meetings/join", s.authMiddleware(s.joinMeeting))
	mux.Handle("POST /api/meetings/leave", s.authMiddleware(s.leaveMeeting))
	mux.HandleFunc("GET /api/meetings/{code}", s.getMeeting)
	mux.Handle("GET /api/meetings/{code}/participants", s.authMiddleware(s.listParticipants))
	mux.HandleFunc("GET /ws", s.serveWs)
	mux.HandleFunc("GET /healthz", s.healthz)

	mux.HandleFunc("GET /{$}", s.landingPage)
	mux.HandleFunc("GET /create", s.createPage)
	mux.HandleFunc("GET /join", s.joinPage)
	mux.HandleFunc("GET /signin", s.signinPage)
	mux.HandleFunc("GET /meeting/{code}", s.meetingPage)
	mux.HandleFunc("GET /embed/{code}", s.embedPage)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *MeetSpaceApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *MeetSpaceApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
