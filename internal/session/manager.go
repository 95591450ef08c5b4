package session

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/meetspace/meetspace/internal/config"
	"github.com/meetspace/meetspace/internal/database"
	"github.com/meetspace/meetspace/internal/stats"
)

// SessionManager owns every live meeting-page session. All registration
// and teardown flows through its run loop.
type SessionManager struct {
	log            *log.Logger
	db             database.MeetSpaceRepository
	stats          stats.StatsProvider
	jitsiDomain    string
	jaasAppID      string
	sessions       map[string]*Session
	registerChan   chan *Session
	deregisterChan chan *Session
	stop           chan struct{}
	done           chan struct{}
}

func NewSessionManager(logger *log.Logger, db database.MeetSpaceRepository, sp stats.StatsProvider, cfg *config.Config) *SessionManager {
	return &SessionManager{
		log:            logger,
		db:             db,
		stats:          sp,
		jitsiDomain:    cfg.JitsiDomain,
		jaasAppID:      cfg.JaaSAppID,
		sessions:       make(map[string]*Session),
		registerChan:   make(chan *Session),
		deregisterChan: make(chan *Session),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

func (sm *SessionManager) newSession(params Params, widget Widget, notifier Notifier, onLeave func()) *Session {
	return &Session{
		id:           uuid.NewString(),
		params:       params,
		sm:           sm,
		db:           sm.db,
		widget:       widget,
		notifier:     notifier,
		stats:        sm.stats,
		log:          sm.log,
		onLeave:      onLeave,
		jitsiDomain:  sm.jitsiDomain,
		jaasAppID:    sm.jaasAppID,
		state:        StateAuthenticating,
		participants: 1,
		eventChan:    make(chan *ClientMessage, 64),
		updates:      make(chan *StateUpdate, 64),
		exit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// StartSession registers a new session and starts its run loop.
func (sm *SessionManager) StartSession(params Params, widget Widget, notifier Notifier, onLeave func()) (*Session, error) {
	s := sm.newSession(params, widget, notifier, onLeave)

	select {
	case sm.registerChan <- s:
		return s, nil
	case <-sm.stop:
		return nil, errors.New("session manager is shutting down")
	}
}

// Deregister tears a session down without its leave flow, used when the
// page disconnects. Pending store requests are abandoned, not awaited.
func (sm *SessionManager) Deregister(s *Session) {
	if s == nil {
		return
	}

	select {
	case sm.deregisterChan <- s:
	case <-sm.stop:
	}
}

func (sm *SessionManager) Run() {
	for {
		select {
		case s := <-sm.registerChan:
			sm.log.Printf("registering session %q for room %q", s.id, s.params.Code)
			sm.sessions[s.id] = s
			if sm.stats != nil {
				sm.stats.Incr(stats.ActiveSessions)
			}
			go s.run()
		case s := <-sm.deregisterChan:
			if _, ok := sm.sessions[s.id]; !ok {
				continue
			}

			sm.log.Printf("deregistering session %q", s.id)
			delete(sm.sessions, s.id)
			if sm.stats != nil {
				sm.stats.Decr(stats.ActiveSessions)
			}
			s.closeExit()
		case <-sm.stop:
			sm.log.Println("shutting down sessions")
			for _, s := range sm.sessions {
				s.closeExit()
				<-s.done
			}

			close(sm.done)
			return
		}
	}
}

func (sm *SessionManager) Shutdown(ctx context.Context) error {
	close(sm.stop)

	select {
	case <-sm.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
