package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kilianp07/evnav/core/navigation"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	// MsgJoinUser binds the connection to a user's channel.
	MsgJoinUser = "join-user"
)

type wsMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// wsClient is one WebSocket connection. Only one goroutine writes at a time.
type wsClient struct {
	conn *websocket.Conn
	wmu  sync.Mutex

	mu     sync.Mutex
	userID string
	sub    *navigation.Subscription
	pumps  sync.WaitGroup
}

func (c *wsClient) write(messageType int, v any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if messageType == websocket.PingMessage {
		return c.conn.WriteMessage(websocket.PingMessage, nil)
	}
	return c.conn.WriteJSON(v)
}

// join swaps the current subscription for userID's.
func (c *wsClient) join(ch *navigation.Channel, userID string) {
	sub := ch.Join(userID)
	c.mu.Lock()
	prev := c.sub
	c.sub = sub
	c.userID = userID
	c.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	c.pumps.Add(1)
	go func() {
		defer c.pumps.Done()
		for ev := range sub.C {
			if err := c.write(websocket.TextMessage, ev); err != nil {
				return
			}
		}
	}()
}

// leave closes the subscription and returns the joined user, if any.
func (c *wsClient) leave() string {
	c.mu.Lock()
	sub, user := c.sub, c.userID
	c.sub = nil
	c.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
	return user
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.originAllowed(origin)
		},
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade: %v", err)
		return
	}
	c := &wsClient{conn: conn}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(wsPingPeriod)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if err := c.write(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Debugf("websocket: bad message: %v", err)
			continue
		}
		switch msg.Type {
		case MsgJoinUser:
			if msg.UserID == "" {
				continue
			}
			c.join(s.deps.Channel, msg.UserID)
			s.log.Infof("user %s joined", msg.UserID)
		default:
			s.log.Debugf("websocket: ignoring %q", msg.Type)
		}
	}

	close(done)
	user := c.leave()
	c.pumps.Wait()
	_ = conn.Close()
	if user != "" {
		s.deps.Navigator.Disconnect(user)
	}
}
