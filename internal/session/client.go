package session

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/meetspace/meetspace/internal/jitsi"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client bridges one websocket connection to one session. Inbound
// messages relay widget events and user controls into the state machine;
// outbound messages carry state snapshots, widget commands and host
// notices back to the page. The Client is also the session's Widget:
// mounting and commanding the real iframe happens in the browser, driven
// by the command messages written here.
type Client struct {
	conn         *websocket.Conn
	sm           *SessionManager
	log          *log.Logger
	session      *Session
	send         chan *ServerMessage
	handlers     map[string]func(WidgetEvent)
	handlersLock sync.RWMutex
	stop         chan struct{}
	stopOnce     sync.Once
}

func NewClient(conn *websocket.Conn, sm *SessionManager, l *log.Logger) *Client {
	return &Client{
		conn:     conn,
		sm:       sm,
		log:      l,
		send:     make(chan *ServerMessage, 256),
		handlers: make(map[string]func(WidgetEvent)),
		stop:     make(chan struct{}),
	}
}

// Serve starts the session for params and runs the connection pumps.
func (c *Client) Serve(params Params) error {
	s, err := c.sm.StartSession(params, c, c, nil)
	if err != nil {
		return err
	}

	c.session = s
	go c.Write()
	go c.Read()
	return nil
}

// Mount implements Widget: the page owns the iframe, so mounting is a
// command telling it to construct the widget with the given options.
func (c *Client) Mount(opts jitsi.Options) (WidgetHandle, error) {
	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Command: &WidgetCommand{
			Name:    CommandMount,
			Options: &opts,
		},
	})

	return c, nil
}

// Command implements WidgetHandle.
func (c *Client) Command(name string, args ...string) error {
	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Command: &WidgetCommand{
			Name:    CommandExecute,
			Command: name,
			Args:    args,
		},
	})

	return nil
}

// On implements WidgetHandle.
func (c *Client) On(event string, handler func(WidgetEvent)) {
	c.handlersLock.Lock()
	defer c.handlersLock.Unlock()
	c.handlers[event] = handler
}

// Post implements Notifier: the page forwards the notice to its parent
// frame via the cross-origin messaging channel.
func (c *Client) Post(notice HostNotice) {
	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notice:      &notice,
	})
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case update := <-c.session.Updates():
			bytes, err := json.Marshal(&ServerMessage{
				BaseMessage: BaseMessage{Timestamp: Now()},
				State:       update,
			})
			if err != nil {
				c.log.Println("failed to serialize state update:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Println("read exiting")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.Timestamp = Now()

		switch {
		case msg.Widget != nil:
			c.dispatchWidgetEvent(*msg.Widget)
		case msg.Control != nil:
			c.session.Deliver(&msg)
		default:
			c.queueMessage(ErrInvalidMessage(msg.Id))
		}
	}
}

// dispatchWidgetEvent routes a relayed widget event to the hook the
// session armed for it. Events nothing listens for are dropped.
func (c *Client) dispatchWidgetEvent(ev WidgetEvent) {
	c.handlersLock.RLock()
	handler, ok := c.handlers[ev.Event]
	c.handlersLock.RUnlock()

	if !ok {
		c.log.Printf("no handler for widget event %q", ev.Event)
		return
	}

	handler(ev)
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	c.sm.Deregister(c.session)
	c.stopClient()
}
