package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/mediate-project/mediate/internal/models"
)

// Connection tuning.
const (
	writeTimeout     = 10 * time.Second
	wsReadLimit      = 4096
	clientSendBuffer = 256
	maxConnLifetime  = 4 * time.Hour

	revalidateEvery   = 15 * time.Minute
	revalidateTimeout = 10 * time.Second

	pingInterval   = 30 * time.Second
	pingTimeout    = 10 * time.Second
	maxMissedPongs = 2
)

// UserValidator resolves an API key to its user. Connections are closed when
// their key stops resolving to the user that opened them.
type UserValidator interface {
	GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error)
}

// topicSet is the set of entity types a reviewer follows. An empty set
// follows everything.
type topicSet map[string]struct{}

func (t topicSet) has(entityType string) bool {
	if len(t) == 0 || entityType == "" {
		return true
	}

	_, ok := t[entityType]

	return ok
}

// Client is one reviewer connection registered with a Hub.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	log    logrus.FieldLogger
	UserID string

	apiKey    string
	validator UserValidator
	opened    time.Time

	topics    atomic.Pointer[topicSet]
	closeOnce sync.Once
}

// NewClient wraps conn for the authenticated user.
func NewClient(hub *Hub, conn *websocket.Conn, validator UserValidator, userID, apiKey string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, clientSendBuffer),
		log:       hub.log.WithField("user_id", userID),
		UserID:    userID,
		apiKey:    apiKey,
		validator: validator,
		opened:    time.Now(),
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// follows reports whether events about entityType should reach this client.
func (c *Client) follows(entityType string) bool {
	t := c.topics.Load()

	return t == nil || t.has(entityType)
}

// offer queues msg without blocking. It reports false when the buffer is full.
func (c *Client) offer(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ReadPump consumes subscribe messages until the connection ends, then
// unregisters the client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.CloseNow() //nolint:errcheck // teardown
	}()

	c.conn.SetReadLimit(wsReadLimit)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				c.log.WithField("status", status).Debug("reviewer disconnected")
			}

			return
		}

		var msg SubscribeMsg
		if json.Unmarshal(data, &msg) != nil || msg.Type != msgSubscribe {
			continue
		}

		c.subscribe(msg)
	}
}

// subscribe installs the entity type filter and replays what the reviewer
// missed. A gap in the replay buffer yields a reset message instead.
func (c *Client) subscribe(msg SubscribeMsg) {
	topics := make(topicSet, len(msg.EntityTypes))
	for _, t := range msg.EntityTypes {
		topics[t] = struct{}{}
	}

	c.topics.Store(&topics)

	if c.hub.ReplayEvents(c, msg.LastEventID) {
		return
	}

	reset, err := json.Marshal(ResetMsg{
		Type:   msgReset,
		Reason: "requested events no longer available, reload the moderation queue",
	})
	if err == nil {
		c.offer(reset)
	}
}

// WritePump drains the send channel onto the socket. It also pings the peer,
// re-checks the API key and closes the connection once it reaches
// maxConnLifetime.
func (c *Client) WritePump(ctx context.Context) {
	defer c.conn.CloseNow() //nolint:errcheck // teardown

	expiry := time.NewTimer(time.Until(c.opened.Add(maxConnLifetime)))
	defer expiry.Stop()

	revalidate := time.NewTicker(revalidateEvery)
	defer revalidate.Stop()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	missed := 0

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			if err := c.write(ctx, msg); err != nil {
				c.log.WithError(err).Debug("websocket write failed")

				return
			}

		case <-ping.C:
			if c.ping(ctx) {
				missed = 0
				continue
			}

			if missed++; missed >= maxMissedPongs {
				c.log.WithField("missed", missed).Debug("closing unresponsive websocket")

				return
			}

		case <-revalidate.C:
			if !c.stillAuthorized(ctx) {
				c.log.Info("closing websocket: api key no longer valid")
				c.conn.Close(websocket.StatusPolicyViolation, "authentication expired") //nolint:errcheck // closing anyway

				return
			}

		case <-expiry.C:
			c.log.Info("closing websocket: lifetime exceeded")
			c.conn.Close(websocket.StatusNormalClosure, "max connection lifetime exceeded") //nolint:errcheck // closing anyway

			return
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	return c.conn.Write(wctx, websocket.MessageText, msg)
}

func (c *Client) ping(ctx context.Context) bool {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	return c.conn.Ping(pctx) == nil
}

// stillAuthorized re-resolves the API key. A key that now maps to a different
// user counts as revoked.
func (c *Client) stillAuthorized(ctx context.Context) bool {
	if c.validator == nil {
		return true
	}

	vctx, cancel := context.WithTimeout(ctx, revalidateTimeout)
	defer cancel()

	u, err := c.validator.GetUserByAPIKey(vctx, c.apiKey)

	return err == nil && u != nil && u.ID == c.UserID
}
