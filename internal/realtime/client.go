package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/TPI-Manager/TPI-Manager/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 1024
)

// controlMessage is what a websocket peer sends to manage its topics.
type controlMessage struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

// Client is one websocket connection. It subscribes to topics on demand via
// join/leave control messages and receives events as JSON frames.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	user   *models.JWTClaims
	send   chan []byte
	logger *zap.Logger

	mu         sync.Mutex
	subs       map[string]*Subscription
	closed     bool
	forwarders sync.WaitGroup
	closeOnce  sync.Once
}

func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var msg controlMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Action {
		case "join":
			c.join(msg.Topic)
		case "leave":
			c.leave(msg.Topic)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) join(name string) {
	topic, err := ParseTopic(name)
	if err != nil {
		c.logger.Debug("join rejected", zap.String("topic", name))
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if _, ok := c.subs[topic.String()]; ok {
		c.mu.Unlock()
		return
	}
	sub := c.hub.broker.Subscribe(topic)
	c.subs[topic.String()] = sub
	c.forwarders.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.forwarders.Done()
		for ev := range sub.Events() {
			frame, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			select {
			case c.send <- frame:
			default:
				// The peer is not draining; drop rather than stall the topic.
			}
		}
	}()
}

func (c *Client) leave(name string) {
	topic, err := ParseTopic(name)
	if err != nil {
		return
	}
	c.mu.Lock()
	sub, ok := c.subs[topic.String()]
	if ok {
		delete(c.subs, topic.String())
	}
	c.mu.Unlock()
	if ok {
		sub.Close()
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.hub.remove(c)

		c.mu.Lock()
		c.closed = true
		subs := make([]*Subscription, 0, len(c.subs))
		for _, sub := range c.subs {
			subs = append(subs, sub)
		}
		c.subs = make(map[string]*Subscription)
		c.mu.Unlock()

		// Closing the subscriptions ends every forwarder; the send channel
		// must stay open until the last one has returned.
		for _, sub := range subs {
			sub.Close()
		}
		c.forwarders.Wait()
		close(c.send)
		c.conn.Close()
	})
}
