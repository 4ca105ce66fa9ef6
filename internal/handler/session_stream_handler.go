package handler

import (
	"encoding/json"

	"prompt-optimiser-be/internal/pkg/logger"
	"prompt-optimiser-be/internal/service"
	internalWS "prompt-optimiser-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/websocket/v2"
)

// SessionStreamHandler upgrades to a websocket that streams session snapshots.
type SessionStreamHandler struct {
	sessions service.ISessionService
	hub      *internalWS.Hub
	logger   logger.ILogger
}

func NewSessionStreamHandler(sessions service.ISessionService, hub *internalWS.Hub, log logger.ILogger) *SessionStreamHandler {
	return &SessionStreamHandler{
		sessions: sessions,
		hub:      hub,
		logger:   log,
	}
}

func (h *SessionStreamHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/sessions/:id/ws", h.ServeWs)
}

func (h *SessionStreamHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	sessionID := utils.CopyString(c.Params("id"))
	snap, err := h.sessions.Get(c.UserContext(), sessionID)
	if err != nil {
		return err
	}

	// the first frame is the current state so late joiners do not wait for a change
	initial, err := json.Marshal(map[string]interface{}{"type": "session", "data": snap})
	if err != nil {
		return err
	}

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("SessionStream", "Stream opened", map[string]interface{}{"session_id": sessionID})
		internalWS.ServeWs(h.hub, conn, sessionID, initial)
		h.logger.Info("SessionStream", "Stream closed", map[string]interface{}{"session_id": sessionID})
	})(c)
}
