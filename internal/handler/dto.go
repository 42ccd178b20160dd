package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"adventure-server/internal/models"
)

// APIError is the standard error response body.
type APIError struct {
	Message string `json:"message"`
}

type newGameRequest struct {
	CharacterName string `json:"characterName" validate:"required,max=80"`
	ScenarioTitle string `json:"scenarioTitle" validate:"required,max=200"`
	Difficulty    string `json:"difficulty" validate:"omitempty,oneof=easy normal hard"`
	GMPersonality string `json:"gmPersonality" validate:"omitempty,max=500"`
}

type turnRequest struct {
	Action string `json:"action" validate:"required,max=2000"`
}

type craftRequest struct {
	Ingredients []string `json:"ingredients" validate:"required,min=2,dive,required"`
}

type addKeyRequest struct {
	Name  string `json:"name" validate:"omitempty,max=80"`
	Value string `json:"value" validate:"required"`
}

type setKeyEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// keyResponse is the client-facing credential row. The secret itself never
// leaves the server; models.APIKey excludes it from JSON.
type keyResponse struct {
	Keys []models.APIKey `json:"keys"`
}

type gameResponse struct {
	State *models.GameState `json:"state"`
}

// requestValidator adapts go-playground/validator to echo's Validator hook.
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	return &requestValidator{validate: validator.New()}
}

func (v *requestValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
