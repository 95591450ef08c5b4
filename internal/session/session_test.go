package session

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/meetspace/meetspace/internal/config"
	"github.com/meetspace/meetspace/internal/database"
	"github.com/meetspace/meetspace/internal/jitsi"
	"github.com/meetspace/meetspace/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// fakeHandle records widget commands and lets tests fire the events the
// session armed hooks for.
type fakeHandle struct {
	mu       sync.Mutex
	commands [][]string
	handlers map[string]func(WidgetEvent)
}

func newFakeHandle() *fakeHandle {
	return &fakeHandle{handlers: make(map[string]func(WidgetEvent))}
}

func (h *fakeHandle) Command(name string, args ...string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commands = append(h.commands, append([]string{name}, args...))
	return nil
}

func (h *fakeHandle) On(event string, handler func(WidgetEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[event] = handler
}

func (h *fakeHandle) fire(t *testing.T, ev WidgetEvent) {
	t.Helper()
	h.mu.Lock()
	handler, ok := h.handlers[ev.Event]
	h.mu.Unlock()
	if !ok {
		t.Fatalf("no handler armed for widget event %q", ev.Event)
	}
	handler(ev)
}

func (h *fakeHandle) commandNames() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var names []string
	for _, cmd := range h.commands {
		names = append(names, cmd[0])
	}
	return names
}

type fakeWidget struct {
	mu       sync.Mutex
	handle   *fakeHandle
	mountErr error
	mounts   int
}

func (w *fakeWidget) Mount(opts jitsi.Options) (WidgetHandle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.mounts++
	if w.mountErr != nil {
		err := w.mountErr
		w.mountErr = nil
		return nil, err
	}
	return w.handle, nil
}

func (w *fakeWidget) mountCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mounts
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []HostNotice
}

func (n *fakeNotifier) Post(notice HostNotice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *fakeNotifier) posted() []HostNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]HostNotice(nil), n.notices...)
}

func newTestManager(t *testing.T, repo database.MeetSpaceRepository) *SessionManager {
	t.Helper()
	cfg := &config.Config{JitsiDomain: "8x8.vc", JaaSAppID: "test-app"}
	sm := NewSessionManager(testutil.TestLogger(t), repo, nil, cfg)
	go sm.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := sm.Shutdown(ctx); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})
	return sm
}

// waitForState drains snapshots until the session reports the wanted
// state, failing the test after a timeout.
func waitForState(t *testing.T, s *Session, want State) *StateUpdate {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case update := <-s.Updates():
			if update.State == want.String() {
				return update
			}
		case <-timeout:
			t.Fatalf("timed out waiting for state %q", want)
			return nil
		}
	}
}

func activeMeeting() database.Meeting {
	return database.Meeting{
		Id:     "4f2c2b1e-8df1-45a0-9a67-0a2e8db0c9f1",
		Code:   "AB12CD34",
		Title:  "Team Standup",
		HostId: "host-user",
		Status: database.MeetingStatusActive,
	}
}

func TestSessionDemoCodeAlwaysReady(t *testing.T) {
	mockRepo := &database.MockMeetSpaceRepository{}
	defer mockRepo.AssertExpectations(t)

	widget := &fakeWidget{handle: newFakeHandle()}
	sm := newTestManager(t, mockRepo)

	s, err := sm.StartSession(Params{
		Code:        "DEMO1234",
		DisplayName: "Jane",
		UserId:      "user-1",
	}, widget, nil, nil)
	assert.NoError(t, err, "expected session to start")

	waitForState(t, s, StateReady)
	// no store lookup is made for the demo code
	mockRepo.AssertNotCalled(t, "GetActiveMeetingByCode", mock.Anything)
}

func TestSessionMeetingNotFound(t *testing.T) {
	mockRepo := &database.MockMeetSpaceRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("GetActiveMeetingByCode", "ZZ99ZZ99").Return(database.Meeting{}, sql.ErrNoRows).Once()

	widget := &fakeWidget{handle: newFakeHandle()}
	sm := newTestManager(t, mockRepo)

	s, err := sm.StartSession(Params{
		Code:        "ZZ99ZZ99",
		DisplayName: "Jane",
		UserId:      "user-1",
	}, widget, nil, nil)
	assert.NoError(t, err, "expected session to start")

	update := waitForState(t, s, StateError)
	assert.Equal(t, "meeting not found or has ended", update.Error, "expected not-found message")
	assert.Equal(t, 0, widget.mountCount(), "expected widget not to be mounted")
}

func TestSessionResolveFailure(t *testing.T) {
	mockRepo := &database.MockMeetSpaceRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("GetActiveMeetingByCode", "AB12CD34").Return(database.Meeting{}, errors.New("db down")).Once()

	widget := &fakeWidget{handle: newFakeHandle()}
	sm := newTestManager(t, mockRepo)

	s, err := sm.StartSession(Params{
		Code:        "AB12CD34",
		DisplayName: "Jane",
		UserId:      "user-1",
	}, widget, nil, nil)
	assert.NoError(t, err, "expected session to start")

	update := waitForState(t, s, StateError)
	assert.Equal(t, "an error occurred while joining the meeting", update.Error, "expected generic join failure")
}

func TestSessionAuthRequired(t *testing.T) {
	mockRepo := &database.MockMeetSpaceRepository{}
	defer mockRepo.AssertExpectations(t)

	widget := &fakeWidget{handle: newFakeHandle()}
	sm := newTestManager(t, mockRepo)

	// no user, no guest bypass
	s, err := sm.StartSession(Params{Code: "AB12CD34"}, widget, nil, nil)
	assert.NoError(t, err, "expected session to start")

	waitForState(t, s, StateAuthRequired)
	assert.Equal(t, 0, widget.mountCount(), "expected no widget mount without auth")
}

func TestSessionGuestBypass(t *testing.T) {
	mockRepo := &database.MockMeetSpaceRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("GetActiveMeetingByCode", "AB12CD34").Return(activeMeeting(), nil).Once()

	widget := &fakeWidget{handle: newFakeHandle()}
	sm := newTestManager(t, mockRepo)

	s, err := sm.StartSession(Params{
		Code:        "AB12CD34",
		DisplayName: "Guest Student",
		ClassId:     "class-1",
		Embedded:    true,
	}, widget, nil, nil)
	assert.NoError(t, err, "expected session to start")

	waitForState(t, s, StateReady)
	// guests never touch the participants table
	mockRepo.AssertNotCalled(t, "GetOpenParticipant", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "CreateParticipant", mock.Anything)
}

func TestSessionJoinerRegistersParticipant(t *testing.T) {
	m := activeMeeting()

	mockRepo := &database.MockMeetSpaceRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("GetAccountById", "user-1").Return(database.User{
		Id:       "user-1",
		Email:    "jane@example.com",
		Name:     "Jane Doe",
		Username: sql.NullString{String: "jdoe", Valid: true},
	}, nil).Once()
	mockRepo.On("GetActiveMeetingByCode", "AB12CD34").Return(m, nil).Once()
	mockRepo.On("GetOpenParticipant", m.Id, "user-1").Return(database.MeetingParticipant{}, sql.ErrNoRows).Once()
	mockRepo.On("CreateParticipant", database.CreateParticipantParams{
		MeetingId: m.Id,
		UserId:    "user-1",
		IsHost:    false,
	}).Return(database.MeetingParticipant{Id: "p-1"}, nil).Once()

	widget := &fakeWidget{handle: newFakeHandle()}
	sm := newTestManager(t, mockRepo)

	s, err := sm.StartSession(Params{Code: "AB12CD34", UserId: "user-1"}, widget, nil, nil)
	assert.NoError(t, err, "expected session to start")

	update := waitForState(t, s, StateReady)
	// username preferred over name when resolving the display name
	assert.Equal(t, "jdoe", update.DisplayName, "expected display name from profile")
}

func TestSessionJoinIsIdempotent(t *testing.T) {
	m := activeMeeting()

	mockRepo := &database.MockMeetSpaceRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("GetActiveMeetingByCode", "AB12CD34").Return(m, nil).Once()
	mockRepo.On("GetOpenParticipant", m.Id, "user-1").Return(database.MeetingParticipant{Id: "p-1"}, nil).Once()

	widget := &fakeWidget{handle: newFakeHandle()}
	sm := newTestManager(t, mockRepo)

	s, err := sm.StartSession(Params{Code: "AB12CD34", UserId: "user-1", DisplayName: "Jane"}, widget, nil, nil)
	assert.NoError(t, err, "expected session to start")

	waitForState(t, s, StateReady)
	mockRepo.AssertNotCalled(t, "CreateParticipant", mock.Anything)
}

func TestSessionHostEndFlow(t *testing.T) {
	m := activeMeeting()

	mockRepo := &database.MockMeetSpaceRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("GetActiveMeetingByCode", "AB12CD34").Return(m, nil).Once()
	mockRepo.On("MarkParticipantLeft", m.Id, "host-user").Return(nil).Once()
	mockRepo.On("EndMeeting", m.Id).Return(nil).Once()

	handle := newFakeHandle()
	widget := &fakeWidget{handle: handle}
	sm := newTestManager(t, mockRepo)

	s, err := sm.StartSession(Params{
		Code:        "AB12CD34",
		UserId:      "host-user",
		DisplayName: "Host",
		IsHost:      true,
	}, widget, nil, nil)
	assert.NoError(t, err, "expected session to start")

	waitForState(t, s, StateReady)
	handle.fire(t, WidgetEvent{Event: WidgetEventReady})
	waitForState(t, s, StateInCall)

	// widget asking to close puts the host into confirmation
	handle.fire(t, WidgetEvent{Event: WidgetEventReadyToClose})
	update := waitForState(t, s, StateConfirmingEnd)
	assert.NotEmpty(t, update.ConfirmPrompt, "expected confirmation prompt for hosts")

	// cancel returns to the call without side effects
	s.Deliver(&ClientMessage{Control: &Control{Action: ControlCancelEnd}})
	waitForState(t, s, StateInCall)
	mockRepo.AssertNotCalled(t, "EndMeeting", mock.Anything)

	s.Deliver(&ClientMessage{Control: &Control{Action: ControlEnd}})
	waitForState(t, s, StateConfirmingEnd)
	s.Deliver(&ClientMessage{Control: &Control{Action: ControlConfirmEnd}})
	waitForState(t, s, StateTerminated)

	assert.Contains(t, handle.commandNames(), "hangup", "expected hangup command")
}

func TestSessionNonHostLeave(t *testing.T) {
	m := activeMeeting()

	mockRepo := &database.MockMeetSpaceRepository{}
	defer mockRepo.AssertExpectations(t)
	mockRepo.On("GetActiveMeetingByCode", "AB12CD34").Return(m, nil).Once()
	mockRepo.On("GetOpenParticipant", m.Id, "user-2").Return(database.MeetingParticipant{Id: "p-2"}, nil).Once()
	mockRepo.On("MarkParticipantLeft", m.Id, "user-2").Return(nil).Once()

	handle := newFakeHandle()
	widget := &fakeWidget{handle: handle}
	sm := newTestManager(t, mockRepo)

	s, err := sm.StartSession(Params{Code: "AB12CD34", UserId: "user-2", DisplayName: "Sam"}, widget, nil, nil)
	assert.NoError(t, err, "expected session to start")

	waitForState(t, s, StateReady)
	handle.fire(t, WidgetEvent{Event: WidgetEventReady})
	waitForState(t, s, StateInCall)

	// non-host leave is unilateral, no confirmation
	s.Deliver(&ClientMessage{Control: &Control{Action: ControlEnd}})
	waitForState(t, s, StateTerminated)

	// leaving never mutates the meeting itself
	mockRepo.AssertNotCalled(t, "EndMeeting", mock.Anything)
}

func TestSessionEmbeddedGuestNotifiesHostFrame(t *testing.T) {
	mockRepo := &database.MockMeetSpaceRepository{}
	defer mockRepo.AssertExpectations(t)

	handle := newFakeHandle()
	widget := &fakeWidget{handle: handle}
	notifier := &fakeNotifier{}
	sm := newTestManager(t, mockRepo)

	s, err := sm.StartSession(Params{
		Code:        "DEMO1234",
		DisplayName: "Guest Student",
		ClassId:     "class-1",
		Embedded:    true,
	}, widget, notifier, nil)
	assert.NoError(t, err, "expected session to start")

	waitForState(t, s, StateReady)
	handle.fire(t, WidgetEvent{Event: WidgetEventReady})
	waitForState(t, s, StateInCall)

	s.Deliver(&ClientMessage{Control: &Control{Action: ControlEnd}})
	waitForState(t, s, StateTerminated)

	notices := notifier.posted()
	assert.Len(t, notices, 1, "expected one host-frame notice")
	assert.Equal(t, NoticeMeetingEnded, notices[0].Type, "expected MEETING_ENDED notice")
	assert.Equal(t, "DEMO1234", notices[0].RoomId, "expected room id in notice")
	assert.Equal(t, "class-1", notices[0].ClassId, "expected class id in notice")

	// demo sessions never write to the store
	mockRepo.AssertNotCalled(t, "MarkParticipantLeft", mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "EndMeeting", mock.Anything)
}

func TestSessionParticipantCounter(t *testing.T) {
	mockRepo := &database.MockMeetSpaceRepository{}
	defer mockRepo.AssertExpectations(t)

	handle := newFakeHandle()
	widget := &fakeWidget{handle: handle}
	sm := newTestManager(t, mockRepo)

	s, err := sm.StartSession(Params{Code: "DEMO1234", UserId: "user-1", DisplayName: "Jane"}, widget, nil, nil)
	assert.NoError(t, err, "expected session to start")

	update := waitForState(t, s, StateReady)
	assert.Equal(t, 1, update.ParticipantCount, "expected counter to start at one")

	handle.fire(t, WidgetEvent{Event: WidgetEventReady})
	waitForState(t, s, StateInCall)

	handle.fire(t, WidgetEvent{Event: WidgetEventParticipantJoined, ParticipantCount: 3})
	update = drainUntil(t, s, func(u *StateUpdate) bool { return u.ParticipantCount == 3 })
	assert.Equal(t, 3, update.ParticipantCount, "expected widget-reported count")

	handle.fire(t, WidgetEvent{Event: WidgetEventParticipantLeft, ParticipantCount: 2})
	drainUntil(t, s, func(u *StateUpdate) bool { return u.ParticipantCount == 2 })
}

func TestSessionDurationTicks(t *testing.T) {
	mockRepo := &database.MockMeetSpaceRepository{}
	defer mockRepo.AssertExpectations(t)

	handle := newFakeHandle()
	widget := &fakeWidget{handle: handle}
	sm := newTestManager(t, mockRepo)

	s, err := sm.StartSession(Params{Code: "DEMO1234", UserId: "user-1", DisplayName: "Jane"}, widget, nil, nil)
	assert.NoError(t, err, "expected session to start")

	waitForState(t, s, StateReady)
	handle.fire(t, WidgetEvent{Event: WidgetEventReady})
	waitForState(t, s, StateInCall)

	update := drainUntil(t, s, func(u *StateUpdate) bool { return u.DurationSeconds >= 1 })
	assert.Equal(t, "00:01", update.Duration, "expected formatted duration after one tick")
}

func TestSessionWidgetRetry(t *testing.T) {
	mockRepo := &database.MockMeetSpaceRepository{}
	defer mockRepo.AssertExpectations(t)

	handle := newFakeHandle()
	widget := &fakeWidget{handle: handle, mountErr: errors.New("iframe failed")}
	sm := newTestManager(t, mockRepo)

	s, err := sm.StartSession(Params{Code: "DEMO1234", UserId: "user-1", DisplayName: "Jane"}, widget, nil, nil)
	assert.NoError(t, err, "expected session to start")

	update := waitForState(t, s, StateError)
	assert.Equal(t, "failed to start the video conference", update.Error, "expected widget failure message")

	// retry remounts the widget from scratch
	s.Deliver(&ClientMessage{Control: &Control{Action: ControlRetry}})
	waitForState(t, s, StateReady)
	assert.Equal(t, 2, widget.mountCount(), "expected a second mount")
}

// drainUntil reads snapshots until pred matches, failing after a timeout.
func drainUntil(t *testing.T, s *Session, pred func(*StateUpdate) bool) *StateUpdate {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case update := <-s.Updates():
			if pred(update) {
				return update
			}
		case <-timeout:
			t.Fatal("timed out waiting for matching snapshot")
			return nil
		}
	}
}
