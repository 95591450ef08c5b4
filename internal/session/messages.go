package session

import (
	"net/http"
	"time"

	"github.com/meetspace/meetspace/internal/jitsi"
)

// Widget events relayed by the page hosting the conferencing iframe.
const (
	WidgetEventReady             = "ready"
	WidgetEventParticipantJoined = "participant-joined"
	WidgetEventParticipantLeft   = "participant-left"
	WidgetEventReadyToClose      = "ready-to-close"
	WidgetEventFailed            = "failed"
)

// User controls sent by the page.
const (
	ControlEnd        = "end"
	ControlConfirmEnd = "confirm-end"
	ControlCancelEnd  = "cancel-end"
	ControlRetry      = "retry"
)

// Widget commands sent back down to the page.
const (
	CommandMount   = "mount"
	CommandExecute = "executeCommand"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ClientMessage struct {
	BaseMessage
	Widget  *WidgetEvent `json:"widget,omitempty"`
	Control *Control     `json:"control,omitempty"`
}

// WidgetEvent is a lifecycle event reported by the conferencing widget.
type WidgetEvent struct {
	Event string `json:"event"`
	// ParticipantCount carries the widget's own participant total when it
	// reports one; zero means not reported.
	ParticipantCount int    `json:"participant_count,omitempty"`
	Error            string `json:"error,omitempty"`
}

type Control struct {
	Action string `json:"action"`
}

type ServerMessage struct {
	BaseMessage
	Response *Response      `json:"response,omitempty"`
	State    *StateUpdate   `json:"state,omitempty"`
	Command  *WidgetCommand `json:"command,omitempty"`
	Notice   *HostNotice    `json:"notice,omitempty"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
}

// StateUpdate is a snapshot of the session for the page to render.
type StateUpdate struct {
	State            string `json:"state"`
	Code             string `json:"code"`
	IsHost           bool   `json:"is_host"`
	DisplayName      string `json:"display_name,omitempty"`
	DurationSeconds  int    `json:"duration_seconds"`
	Duration         string `json:"duration"`
	ParticipantCount int    `json:"participant_count"`
	Error            string `json:"error,omitempty"`
	ConfirmPrompt    string `json:"confirm_prompt,omitempty"`
	// Warning surfaces a non-blocking failure, rendered as a toast.
	Warning string `json:"warning,omitempty"`
}

// WidgetCommand instructs the page to mount the widget or invoke one of
// its imperative commands.
type WidgetCommand struct {
	Name    string         `json:"name"`
	Command string         `json:"command,omitempty"`
	Args    []string       `json:"args,omitempty"`
	Options *jitsi.Options `json:"options,omitempty"`
}

// HostNotice is the structured message forwarded to the embedding host
// application's frame when a session ends.
type HostNotice struct {
	Type    string `json:"type"`
	RoomId  string `json:"roomId"`
	ClassId string `json:"classId,omitempty"`
}

const NoticeMeetingEnded = "MEETING_ENDED"

func ErrInvalidMessage(id int) *ServerMessage {
	msg := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusBadRequest,
			Error:        "invalid message format",
		},
	}

	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
