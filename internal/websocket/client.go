package websocket

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/queuewise/backend/internal/auth"
	"github.com/queuewise/backend/internal/config"
	"github.com/rs/zerolog"
)

// Client is a middleman between the websocket connection and the hub
type Client struct {
	// Unique client ID
	id string

	// The hub this client belongs to
	hub *Hub

	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// Departments this client subscribed to. Empty means all departments
	// the client's claims allow.
	departments []string

	// Configuration
	config *config.Config

	// Logger
	logger zerolog.Logger

	// User claims restricting which departments may be subscribed
	claims *auth.Claims
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, departments []string, cfg *config.Config, logger zerolog.Logger, claims *auth.Claims) *Client {
	clientID := uuid.New().String()
	return &Client{
		id:          clientID,
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, 256),
		departments: restrictDepartments(departments, claims),
		config:      cfg,
		logger:      logger.With().Str("client_id", clientID).Logger(),
		claims:      claims,
	}
}

// restrictDepartments intersects the requested subscription with the
// departments the claims allow. Admins pass through unchanged.
func restrictDepartments(requested []string, claims *auth.Claims) []string {
	if claims == nil || claims.Role == "admin" {
		return requested
	}
	if len(requested) == 0 {
		return claims.Departments
	}

	var allowed []string
	for _, dept := range requested {
		if claims.IsDepartmentAllowed(dept) {
			allowed = append(allowed, dept)
		}
	}
	if allowed == nil {
		// Nothing the client asked for is permitted, fall back to what the
		// claims grant
		return claims.Departments
	}
	return allowed
}

// wantsDepartment reports whether an event for the given department should
// be delivered to this client. Global events (empty department) go to
// everyone.
func (c *Client) wantsDepartment(departmentID string) bool {
	if departmentID == "" || len(c.departments) == 0 {
		return true
	}
	for _, dept := range c.departments {
		if dept == departmentID {
			return true
		}
	}
	return false
}

// readPump pumps messages from the websocket connection to the hub
//
// The application runs readPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error().Err(err).Msg("websocket read error")
			}
			break
		}
		c.logger.Debug().Str("message", string(message)).Msg("received message from client")
	}
}

// writePump pumps messages from the hub to the websocket connection
//
// A goroutine running writePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start starts the client's read and write pumps
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
