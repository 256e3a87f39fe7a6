package websocket

import (
	"context"
	"sync"
	"time"

	gorillaWS "github.com/gorilla/websocket"

	"github.com/cipher-calc/backend/internal/common/logger"
)

const (
	defaultWriteWait   = 10 * time.Second
	defaultPongWait    = 60 * time.Second
	defaultSendBufSize = 64
	maxFeedMessageSize = 4 * 1024
)

type ClientConfig struct {
	WriteWait   time.Duration
	PongWait    time.Duration
	PingPeriod  time.Duration
	SendBufSize int
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.WriteWait <= 0 {
		c.WriteWait = defaultWriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = defaultPongWait
	}
	if c.PingPeriod <= 0 {
		c.PingPeriod = (c.PongWait * 9) / 10
	}
	if c.SendBufSize <= 0 {
		c.SendBufSize = defaultSendBufSize
	}
	return c
}

// Client is one vault feed connection. The feed is push-only; inbound frames
// are read solely to service pong handling and detect disconnects.
type Client struct {
	hub       *Hub
	conn      *gorillaWS.Conn
	userID    string
	send      chan []byte
	log       *logger.Logger
	config    ClientConfig
	ctx       context.Context
	closeOnce sync.Once
}

func NewClient(ctx context.Context, hub *Hub, conn *gorillaWS.Conn, userID string, log *logger.Logger, config ClientConfig) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, config.withDefaults().SendBufSize),
		log:    log,
		config: config.withDefaults(),
		ctx:    ctx,
	}
}

func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetReadLimit(maxFeedMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if gorillaWS.IsUnexpectedCloseError(err, gorillaWS.CloseGoingAway, gorillaWS.CloseAbnormalClosure) {
				c.log.Warnf("vault feed read error user_id=%s: %v", c.userID, err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				c.conn.WriteMessage(gorillaWS.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(gorillaWS.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(gorillaWS.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
