package session

import (
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/meetspace/meetspace/internal/database"
	"github.com/meetspace/meetspace/internal/jitsi"
	"github.com/meetspace/meetspace/internal/meeting"
	"github.com/meetspace/meetspace/internal/stats"
)

// State is the lifecycle phase of one meeting-page session.
type State int

const (
	StateAuthenticating State = iota
	StateAuthRequired
	StateResolving
	StateError
	StateReady
	StateInCall
	StateConfirmingEnd
	StateTerminated
)

func (s State) String() string {
	return [...]string{
		"authenticating",
		"auth-required",
		"resolving",
		"error",
		"ready",
		"in-call",
		"confirming-end",
		"terminated",
	}[s]
}

const (
	errMeetingNotFound = "meeting not found or has ended"
	errJoinFailed      = "an error occurred while joining the meeting"

	// Shown to hosts before ending: the widget's session model does not
	// guarantee other participants are disconnected.
	hostEndPrompt = "As the host, you're ending your session. Note: other participants may continue their session even after you leave."
)

// Params describes one mount of the meeting page.
type Params struct {
	Code        string
	DisplayName string
	IsHost      bool
	// UserId is empty in guest mode.
	UserId string
	// ClassId authorizes guest mode together with DisplayName.
	ClassId  string
	Embedded bool
	// Token is an optional conferencing access token passed through to
	// the widget.
	Token string
}

// Widget is the narrow capability surface the orchestrator depends on
// instead of the widget's concrete object shape.
type Widget interface {
	Mount(opts jitsi.Options) (WidgetHandle, error)
}

type WidgetHandle interface {
	Command(name string, args ...string) error
	On(event string, handler func(WidgetEvent))
}

// Notifier forwards a notice to the embedding host application.
type Notifier interface {
	Post(notice HostNotice)
}

type Session struct {
	id       string
	params   Params
	sm       *SessionManager
	db       database.MeetSpaceRepository
	widget   Widget
	notifier Notifier
	stats    stats.StatsProvider
	log      *log.Logger
	onLeave  func()

	jitsiDomain string
	jaasAppID   string

	// all fields below are owned by the run goroutine
	state        State
	errMsg       string
	warning      string
	retryable    bool
	guest        bool
	demo         bool
	displayName  string
	meeting      database.Meeting
	handle       WidgetHandle
	durationSecs int
	participants int

	eventChan chan *ClientMessage
	updates   chan *StateUpdate
	exit      chan struct{}
	exitOnce  sync.Once
	done      chan struct{}
}

func (s *Session) Id() string { return s.id }

// Updates is the stream of state snapshots for the attached page.
func (s *Session) Updates() <-chan *StateUpdate { return s.updates }

// Deliver hands a message from the page to the state machine. It never
// blocks; messages are dropped with a log line when the session is busy.
func (s *Session) Deliver(msg *ClientMessage) {
	select {
	case s.eventChan <- msg:
	case <-s.exit:
	default:
		s.log.Printf("event channel full for session %q, dropping message", s.id)
	}
}

func (s *Session) deliverWidgetEvent(ev WidgetEvent) {
	s.Deliver(&ClientMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Widget:      &ev,
	})
}

func (s *Session) closeExit() {
	s.exitOnce.Do(func() { close(s.exit) })
}

func (s *Session) setState(state State) {
	s.state = state
	s.emitState()
}

func (s *Session) emitState() {
	update := &StateUpdate{
		State:            s.state.String(),
		Code:             s.params.Code,
		IsHost:           s.params.IsHost,
		DisplayName:      s.displayName,
		DurationSeconds:  s.durationSecs,
		Duration:         meeting.FormatDuration(s.durationSecs),
		ParticipantCount: s.participants,
		Error:            s.errMsg,
		Warning:          s.warning,
	}
	if s.state == StateConfirmingEnd {
		update.ConfirmPrompt = hostEndPrompt
	}

	// a warning is surfaced exactly once
	s.warning = ""

	select {
	case s.updates <- update:
	default:
		s.log.Printf("update channel full for session %q, dropping snapshot", s.id)
	}
}

func (s *Session) run() {
	defer func() {
		close(s.done)
		if s.sm != nil {
			select {
			case s.sm.deregisterChan <- s:
			case <-s.sm.stop:
			}
		}
	}()

	s.log.Printf("starting session %q for room %q", s.id, s.params.Code)

	if !s.authenticate() {
		return
	}

	s.setState(StateResolving)
	if !s.resolveMeeting() {
		// terminal resolution error, keep serving the snapshot until the
		// page goes away
		s.wait()
		return
	}

	s.mountWidget()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.state == StateInCall || s.state == StateConfirmingEnd {
				s.durationSecs++
				s.emitState()
			}
		case msg := <-s.eventChan:
			if done := s.handleMessage(msg); done {
				return
			}
		case <-s.exit:
			return
		}
	}
}

// wait keeps the session alive in a terminal pre-call state so the page
// can still render the error panel. Only teardown ends it.
func (s *Session) wait() {
	for {
		select {
		case <-s.eventChan:
		case <-s.exit:
			return
		}
	}
}

// authenticate resolves the local identity, allowing an embedded guest
// through when a display name and class are supplied without a session.
func (s *Session) authenticate() bool {
	s.setState(StateAuthenticating)

	if s.params.UserId == "" {
		if s.params.DisplayName != "" && s.params.ClassId != "" {
			s.guest = true
			s.displayName = s.params.DisplayName
			return true
		}

		s.setState(StateAuthRequired)
		s.wait()
		return false
	}

	s.displayName = s.params.DisplayName
	if s.displayName == "" {
		user, err := s.db.GetAccountById(s.params.UserId)
		if err != nil {
			s.log.Printf("session %q: load profile: %v", s.id, err)
		} else {
			s.displayName = user.DisplayName()
		}
	}

	return true
}

// resolveMeeting looks up the active meeting for the session's code and
// idempotently registers a joining participant. The demo code is always
// joinable and never store-backed.
func (s *Session) resolveMeeting() bool {
	if s.params.Code == meeting.DemoCode {
		s.demo = true
		return true
	}

	m, err := s.db.GetActiveMeetingByCode(s.params.Code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.errMsg = errMeetingNotFound
		} else {
			s.log.Printf("session %q: resolve meeting: %v", s.id, err)
			s.errMsg = errJoinFailed
		}
		s.setState(StateError)
		return false
	}

	s.meeting = m

	if !s.params.IsHost && !s.guest {
		s.ensureParticipant()
	}

	return true
}

// ensureParticipant creates the joiner's participant row unless an open
// one already exists. The check-then-insert is best effort; the store's
// partial unique index resolves the race, and a duplicate insert error is
// treated as an ordinary join.
func (s *Session) ensureParticipant() {
	_, err := s.db.GetOpenParticipant(s.meeting.Id, s.params.UserId)
	if err == nil {
		return
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.log.Printf("session %q: check participant: %v", s.id, err)
		s.warning = "failed to record your join"
		return
	}

	_, err = s.db.CreateParticipant(database.CreateParticipantParams{
		MeetingId: s.meeting.Id,
		UserId:    s.params.UserId,
		IsHost:    false,
	})
	if err != nil && !database.IsUniqueViolation(err) {
		s.log.Printf("session %q: create participant: %v", s.id, err)
		s.warning = "failed to record your join"
		return
	}

	if s.stats != nil {
		s.stats.Incr(stats.ParticipantsJoined)
	}
}

// mountWidget mounts the conferencing widget from scratch and arms its
// event hooks. Retrying a failed widget simply runs this again.
func (s *Session) mountWidget() {
	opts := jitsi.BuildOptions(s.jitsiDomain, s.jaasAppID, s.params.Code, s.displayName, s.params.Token)

	handle, err := s.widget.Mount(opts)
	if err != nil {
		s.log.Printf("session %q: mount widget: %v", s.id, err)
		s.errMsg = "failed to start the video conference"
		s.retryable = true
		s.setState(StateError)
		return
	}

	s.handle = handle
	s.errMsg = ""

	for _, event := range []string{
		WidgetEventReady,
		WidgetEventParticipantJoined,
		WidgetEventParticipantLeft,
		WidgetEventReadyToClose,
		WidgetEventFailed,
	} {
		handle.On(event, s.deliverWidgetEvent)
	}

	s.setState(StateReady)
}

func (s *Session) handleMessage(msg *ClientMessage) (terminated bool) {
	switch {
	case msg.Widget != nil:
		return s.handleWidgetEvent(*msg.Widget)
	case msg.Control != nil:
		return s.handleControl(*msg.Control)
	}
	return false
}

func (s *Session) handleWidgetEvent(ev WidgetEvent) bool {
	switch ev.Event {
	case WidgetEventReady:
		if s.state != StateReady {
			return false
		}

		// fix the display name as soon as the widget is up
		if err := s.handle.Command("displayName", s.displayName); err != nil {
			s.log.Printf("session %q: set display name: %v", s.id, err)
		}
		s.setState(StateInCall)
	case WidgetEventParticipantJoined:
		if ev.ParticipantCount > 0 {
			s.participants = ev.ParticipantCount
		} else {
			s.participants++
		}
		s.emitState()
	case WidgetEventParticipantLeft:
		if ev.ParticipantCount > 0 {
			s.participants = ev.ParticipantCount
		} else if s.participants > 1 {
			s.participants--
		}
		s.emitState()
	case WidgetEventReadyToClose:
		return s.requestEnd()
	case WidgetEventFailed:
		s.errMsg = ev.Error
		if s.errMsg == "" {
			s.errMsg = "the video conference reported an error"
		}
		s.retryable = true
		s.setState(StateError)
	default:
		s.log.Printf("session %q: unknown widget event %q", s.id, ev.Event)
	}

	return false
}

func (s *Session) handleControl(ctl Control) bool {
	switch ctl.Action {
	case ControlEnd:
		return s.requestEnd()
	case ControlConfirmEnd:
		if s.state == StateConfirmingEnd {
			s.terminate()
			return true
		}
	case ControlCancelEnd:
		if s.state == StateConfirmingEnd {
			s.setState(StateInCall)
		}
	case ControlRetry:
		// only widget failures are retryable; resolution errors require
		// navigating away
		if s.state == StateError && s.retryable {
			s.retryable = false
			s.mountWidget()
		}
	default:
		s.log.Printf("session %q: unknown control %q", s.id, ctl.Action)
	}

	return false
}

// requestEnd starts termination. Hosts must confirm ending the meeting
// for everyone; a non-host leave is unilateral and immediate.
func (s *Session) requestEnd() bool {
	if s.state != StateInCall && s.state != StateConfirmingEnd {
		return false
	}

	if s.params.IsHost {
		s.setState(StateConfirmingEnd)
		return false
	}

	s.terminate()
	return true
}

// terminate hangs up the widget, performs the best-effort cleanup writes,
// notifies an embedding host, and invokes the on-leave callback. Store
// failures here are logged and swallowed so leaving is never blocked.
func (s *Session) terminate() {
	if s.handle != nil {
		if err := s.handle.Command("hangup"); err != nil {
			s.log.Printf("session %q: hangup: %v", s.id, err)
		}
	}

	if !s.demo && !s.guest && s.meeting.Id != "" {
		if err := s.db.MarkParticipantLeft(s.meeting.Id, s.params.UserId); err != nil {
			s.log.Printf("session %q: mark participant left: %v", s.id, err)
			s.warning = "failed to record your departure"
		}

		if s.params.IsHost {
			if err := s.db.EndMeeting(s.meeting.Id); err != nil {
				s.log.Printf("session %q: end meeting: %v", s.id, err)
				s.warning = "failed to end the meeting"
			} else if s.stats != nil {
				s.stats.Incr(stats.MeetingsEnded)
				s.stats.Decr(stats.ActiveMeetings)
			}
		}
	}

	if s.params.Embedded && s.notifier != nil {
		s.notifier.Post(HostNotice{
			Type:    NoticeMeetingEnded,
			RoomId:  s.params.Code,
			ClassId: s.params.ClassId,
		})
	}

	s.setState(StateTerminated)

	if s.onLeave != nil {
		s.onLeave()
	}
}
