package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"adventure-server/internal/engine"
	"adventure-server/internal/gateway"
	"adventure-server/internal/keypool"
	"adventure-server/internal/models"
	"adventure-server/internal/session"
	"adventure-server/internal/storage"
)

// GameHandler exposes the game loop, save management, the hall of fame and
// credential administration over HTTP.
type GameHandler struct {
	resolver *engine.Resolver
	sessions *session.Manager
	keys     *keypool.Pool
	saves    storage.SaveRepository
	fame     storage.HallOfFameRepository
	logger   *zap.Logger
}

func NewGameHandler(
	resolver *engine.Resolver,
	sessions *session.Manager,
	keys *keypool.Pool,
	saves storage.SaveRepository,
	fame storage.HallOfFameRepository,
	logger *zap.Logger,
) *GameHandler {
	return &GameHandler{
		resolver: resolver,
		sessions: sessions,
		keys:     keys,
		saves:    saves,
		fame:     fame,
		logger:   logger.Named("GameHandler"),
	}
}

// RegisterRoutes attaches all routes to the echo instance.
func (h *GameHandler) RegisterRoutes(e *echo.Echo) {
	e.Validator = newRequestValidator()

	api := e.Group("/api")

	games := api.Group("/games")
	games.POST("", h.createGame)
	games.GET("/:id", h.getGame)
	games.POST("/:id/turn", h.submitTurn)
	games.POST("/:id/craft", h.craftItem)

	saves := api.Group("/saves")
	saves.GET("", h.listSaves)
	saves.POST("/:id/load", h.loadSave)
	saves.DELETE("/:id", h.deleteSave)

	api.GET("/halloffame", h.listHallOfFame)

	keys := api.Group("/keys")
	keys.GET("", h.listKeys)
	keys.POST("", h.addKey)
	keys.PUT("/:id/enabled", h.setKeyEnabled)
	keys.DELETE("/:id", h.removeKey)
}

func (h *GameHandler) createGame(c echo.Context) error {
	var req newGameRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if req.Difficulty == "" {
		req.Difficulty = models.DifficultyNormal
	}

	st := models.NewGameState(req.CharacterName, req.ScenarioTitle, req.Difficulty, req.GMPersonality)
	sess := h.sessions.Create(st)

	working, err := sess.BeginTurn()
	if err != nil {
		return handleServiceError(c, err)
	}
	defer sess.EndTurn()

	next, err := h.resolver.Start(c.Request().Context(), sess, working)
	if err != nil {
		h.sessions.Remove(st.ID)
		h.logger.Error("Failed to start game", zap.Stringer("gameID", st.ID), zap.Error(err))
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, gameResponse{State: next})
}

func (h *GameHandler) getGame(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid game ID format"})
	}

	sess, err := h.sessions.Get(id)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, gameResponse{State: sess.State()})
}

func (h *GameHandler) submitTurn(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid game ID format"})
	}

	var req turnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sess, err := h.sessions.Get(id)
	if err != nil {
		return handleServiceError(c, err)
	}

	working, err := sess.BeginTurn()
	if err != nil {
		return handleServiceError(c, err)
	}
	defer sess.EndTurn()

	next, err := h.resolver.Process(c.Request().Context(), sess, working, req.Action)
	if err != nil {
		// The failed turn still carries the player's line; it stays the
		// visible state even though it is not persisted.
		sess.Adopt(next)
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, gameResponse{State: next})
}

func (h *GameHandler) craftItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid game ID format"})
	}

	var req craftRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sess, err := h.sessions.Get(id)
	if err != nil {
		return handleServiceError(c, err)
	}

	working, err := sess.BeginTurn()
	if err != nil {
		return handleServiceError(c, err)
	}
	defer sess.EndTurn()

	next, err := h.resolver.Craft(c.Request().Context(), sess, working, req.Ingredients)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, gameResponse{State: next})
}

func (h *GameHandler) listSaves(c echo.Context) error {
	summaries, err := h.saves.ListSaves(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to list saves", zap.Error(err))
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, summaries)
}

func (h *GameHandler) loadSave(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid save ID format"})
	}

	sess, err := h.sessions.Load(c.Request().Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, gameResponse{State: sess.State()})
}

func (h *GameHandler) deleteSave(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid save ID format"})
	}

	if err := h.saves.DeleteSave(c.Request().Context(), id); err != nil {
		return handleServiceError(c, err)
	}
	h.sessions.Remove(id)
	return c.NoContent(http.StatusNoContent)
}

func (h *GameHandler) listHallOfFame(c echo.Context) error {
	entries, err := h.fame.List(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to list hall of fame", zap.Error(err))
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *GameHandler) listKeys(c echo.Context) error {
	return c.JSON(http.StatusOK, keyResponse{Keys: h.keys.Snapshot()})
}

func (h *GameHandler) addKey(c echo.Context) error {
	var req addKeyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	key := models.APIKey{
		ID:      uuid.NewString(),
		Name:    req.Name,
		Value:   req.Value,
		Enabled: true,
		Status:  models.APIKeyStatusUnchecked,
	}
	if key.Name == "" {
		key.Name = "key-" + key.ID[:8]
	}
	h.keys.Add(key)
	h.logger.Info("Credential added", zap.String("keyID", key.ID), zap.String("name", key.Name))
	return c.JSON(http.StatusCreated, keyResponse{Keys: h.keys.Snapshot()})
}

func (h *GameHandler) setKeyEnabled(c echo.Context) error {
	var req setKeyEnabledRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	if !h.keys.SetEnabled(c.Param("id"), req.Enabled) {
		return c.JSON(http.StatusNotFound, APIError{Message: "Credential not found"})
	}
	return c.JSON(http.StatusOK, keyResponse{Keys: h.keys.Snapshot()})
}

func (h *GameHandler) removeKey(c echo.Context) error {
	if !h.keys.Remove(c.Param("id")) {
		return c.JSON(http.StatusNotFound, APIError{Message: "Credential not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

// handleServiceError maps domain errors to HTTP statuses. Unknown errors
// become 500s without leaking internals.
func handleServiceError(c echo.Context, err error) error {
	var statusCode int
	var message string

	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrSessionNotFound):
		statusCode = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, models.ErrTurnInProgress):
		statusCode = http.StatusConflict
		message = err.Error()
	case errors.Is(err, models.ErrGameOver), errors.Is(err, models.ErrBadRequest):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, models.ErrNoCredentialsAvailable),
		errors.Is(err, models.ErrAllCredentialsExhausted),
		errors.Is(err, gateway.ErrInvalidCredential):
		statusCode = http.StatusServiceUnavailable
		message = err.Error()
	case errors.Is(err, gateway.ErrMalformedResponse), errors.Is(err, gateway.ErrNonRetryable):
		statusCode = http.StatusBadGateway
		message = "The storyteller backend returned an unusable response"
	default:
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
	}
	return c.JSON(statusCode, APIError{Message: message})
}
