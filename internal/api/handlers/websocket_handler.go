package handlers

import (
	"net/http"
	"time"

	"pest-tracker-api-server/internal/api/middleware"
	"pest-tracker-api-server/internal/log"
	"pest-tracker-api-server/internal/models"
	"pest-tracker-api-server/internal/socket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// pongWait is how long a silent client is kept before the read loop gives up.
const pongWait = 60 * time.Second

// defaultPingPeriod must stay below pongWait.
const defaultPingPeriod = pongWait * 9 / 10

type WebSocketHandler struct {
	Hub    *socket.Hub
	Tokens middleware.TokenParser
	// AllowedOrigins empty accepts any origin.
	AllowedOrigins []string
	// PingPeriod defaults to defaultPingPeriod.
	PingPeriod time.Duration
}

func (h *WebSocketHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(h.AllowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range h.AllowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			return false
		},
	}
}

// ServeWs authenticates with the token query parameter and keeps the
// connection registered until the client goes away.
func (h *WebSocketHandler) ServeWs(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Token is required"})
		return
	}
	claims, err := h.Tokens.ParseJWT(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
		return
	}
	if _, err := primitive.ObjectIDFromHex(claims.UserID); err != nil || !models.ValidRole(claims.Role) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
		return
	}
	userID := claims.UserID

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger := log.WithComponent("socket")
		logger.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}

	h.Hub.Register(userID, conn)
	defer func() {
		h.Hub.Unregister(userID, conn)
		conn.Close()
	}()

	done := make(chan struct{})
	defer close(done)
	go h.keepAlive(userID, done)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger := log.WithComponent("socket")
				logger.Debug().Err(err).Str("user_id", userID).Msg("websocket closed")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}

// keepAlive pings userID until done is closed or a ping fails.
func (h *WebSocketHandler) keepAlive(userID string, done <-chan struct{}) {
	period := h.PingPeriod
	if period <= 0 {
		period = defaultPingPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := h.Hub.Ping(userID); err != nil {
				logger := log.WithComponent("socket")
				logger.Debug().Err(err).Str("user_id", userID).Msg("websocket ping failed")
				return
			}
		}
	}
}
