package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/asafe/user-service/internal/api/dto"
	"github.com/asafe/user-service/internal/auth"
	"github.com/asafe/user-service/internal/notification"
	"github.com/asafe/user-service/internal/service"
	apperrors "github.com/asafe/user-service/pkg/util"
)

// NotificationHandler serves the subscriber websocket and the broadcast endpoint.
type NotificationHandler struct {
	registry      *notification.Registry
	notifications *service.NotificationService
	tokens        auth.Verifier
	requireAuth   bool
	logger        *zap.Logger
}

// NewNotificationHandler constructs handler. tokens may be nil when requireAuth is false.
func NewNotificationHandler(registry *notification.Registry, notifications *service.NotificationService, tokens auth.Verifier, requireAuth bool, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{
		registry:      registry,
		notifications: notifications,
		tokens:        tokens,
		requireAuth:   requireAuth,
		logger:        logger,
	}
}

// Upgrade guards GET /api/notification: only websocket handshakes pass, and
// when configured the handshake must carry a valid token in the auth_token
// query parameter or the Authorization header.
func (h *NotificationHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if !h.requireAuth {
		return c.Next()
	}

	token := c.Query("auth_token")
	if token == "" {
		var err error
		if token, err = auth.BearerToken(c.Get(fiber.HeaderAuthorization)); err != nil {
			return err
		}
	}
	if _, err := h.tokens.Verify(token); err != nil {
		return apperrors.NewUnauthorized("Invalid token")
	}
	return c.Next()
}

// Subscribe returns the websocket handler for GET /api/notification.
func (h *NotificationHandler) Subscribe() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *NotificationHandler) serve(c *websocket.Conn) {
	conn := notification.NewWSConn(c)
	if err := h.registry.Register(conn); err != nil {
		h.logger.Error("register notification connection", zap.Error(err))
		return
	}
	defer func() {
		conn.MarkClosed()
		h.registry.Unregister(conn)
	}()

	// subscribers only listen; reading drains control frames and detects close
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("notification connection dropped", zap.String("conn_id", conn.ID()), zap.Error(err))
			}
			return
		}
	}
}

// Broadcast handles POST /api/notification.
func (h *NotificationHandler) Broadcast(c *fiber.Ctx) error {
	var req dto.NotificationRequest
	if err := dto.Decode(c.Body(), &req); err != nil {
		return err
	}

	h.notifications.Broadcast(c.UserContext(), req.Message)
	return c.JSON(fiber.Map{"message": "Notification sent"})
}
