package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"adventure-server/internal/engine"
	"adventure-server/internal/gateway"
	gatewayMocks "adventure-server/internal/gateway/mocks"
	"adventure-server/internal/keypool"
	"adventure-server/internal/messaging"
	"adventure-server/internal/models"
	"adventure-server/internal/session"
	"adventure-server/internal/storage"
)

type testEnv struct {
	e        *echo.Echo
	gw       *gatewayMocks.Gateway
	keys     *keypool.Pool
	sessions *session.Manager
	saves    *storage.MemorySaveRepository
	fame     *storage.MemoryHallOfFameRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	gw := new(gatewayMocks.Gateway)
	keys := keypool.New(logger)
	keys.Add(models.APIKey{ID: "k1", Name: "key 1", Value: "sk-1", Enabled: true, Status: models.APIKeyStatusValid})

	saves := storage.NewMemorySaveRepository()
	fame := storage.NewMemoryHallOfFameRepository()
	sessions := session.NewManager(saves, fame, logger)
	resolver := engine.NewResolver(gw, keys, messaging.NewLogEventPublisher(logger), logger)

	e := echo.New()
	NewGameHandler(resolver, sessions, keys, saves, fame, logger).RegisterRoutes(e)

	return &testEnv{e: e, gw: gw, keys: keys, sessions: sessions, saves: saves, fame: fame}
}

func (env *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func openingResult() *gateway.ExplorationResult {
	return &gateway.ExplorationResult{
		Story:           "The storm spits you onto a black-sand beach.",
		PlayerState:     models.PlayerState{Health: 100, Sanity: 95, Hunger: 90, Thirst: 85},
		Inventory:       []string{"Torn Map"},
		Choices:         []string{"Follow the shore", "Climb the dunes"},
		WorldState:      models.WorldState{Day: 1, TimeOfDay: "morning"},
		CurrentLocation: "Black-Sand Beach",
	}
}

func (env *testEnv) createGame(t *testing.T) uuid.UUID {
	t.Helper()
	env.gw.On("AdvanceExploration", mock.Anything, mock.Anything, mock.Anything).
		Return(openingResult(), nil).Once()

	rec := env.do(http.MethodPost, "/api/games",
		`{"characterName":"Mira","scenarioTitle":"The Drowned Vale","difficulty":"hard"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp gameResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.State)
	return resp.State.ID
}

func TestCreateGame(t *testing.T) {
	t.Run("creates session and generates the opening scene", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.createGame(t)

		sess, err := env.sessions.Get(id)
		require.NoError(t, err)
		st := sess.State()
		assert.True(t, st.GameStarted)
		assert.Equal(t, "hard", st.Difficulty)
		assert.Equal(t, []string{"The storm spits you onto a black-sand beach."}, st.Story)

		// The opening turn is settled, so it is already persisted.
		_, err = env.saves.LoadGame(context.Background(), id)
		assert.NoError(t, err)
	})

	t.Run("rejects a missing character name", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(http.MethodPost, "/api/games", `{"scenarioTitle":"The Drowned Vale"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		env.gw.AssertNotCalled(t, "AdvanceExploration", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("drops the session when the opening scene fails", func(t *testing.T) {
		env := newTestEnv(t)
		env.gw.On("AdvanceExploration", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: provider down", gateway.ErrNonRetryable)).Once()

		rec := env.do(http.MethodPost, "/api/games",
			`{"characterName":"Mira","scenarioTitle":"The Drowned Vale"}`)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestSubmitTurn(t *testing.T) {
	t.Run("resolves an exploration action", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.createGame(t)

		res := openingResult()
		res.Story = "The shore narrows into a cave mouth."
		res.Choices = []string{"Enter the cave"}
		env.gw.On("AdvanceExploration", mock.Anything, mock.Anything, mock.Anything).
			Return(res, nil).Once()

		rec := env.do(http.MethodPost, "/api/games/"+id.String()+"/turn", `{"action":"Follow the shore"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp gameResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, []string{"Enter the cave"}, resp.State.Choices)
		assert.Contains(t, resp.State.Story, "> Follow the shore")
	})

	t.Run("unknown session is a 404", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(http.MethodPost, "/api/games/"+uuid.NewString()+"/turn", `{"action":"look"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing action is a 400", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.createGame(t)
		rec := env.do(http.MethodPost, "/api/games/"+id.String()+"/turn", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("exhausted credentials map to 503 and keep the player's line", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.createGame(t)

		env.gw.On("AdvanceExploration", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: 429", gateway.ErrQuotaExceeded)).Once()

		rec := env.do(http.MethodPost, "/api/games/"+id.String()+"/turn", `{"action":"Dig in the sand"}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		sess, err := env.sessions.Get(id)
		require.NoError(t, err)
		assert.Contains(t, sess.State().Story, "> Dig in the sand")
	})
}

func TestCraftEndpoint(t *testing.T) {
	t.Run("applies a successful craft", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.createGame(t)

		env.gw.On("CraftItem", mock.Anything, mock.Anything, mock.Anything).Return(&gateway.CraftResult{
			Success:       true,
			ConsumedItems: []string{"Torn Map"},
			CreatedItem:   "Map Fragment Compass",
			Message:       "You fold the map into a crude compass rose.",
		}, nil).Once()

		rec := env.do(http.MethodPost, "/api/games/"+id.String()+"/craft",
			`{"ingredients":["Torn Map","Driftwood"]}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp gameResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.State.Inventory, "Map Fragment Compass")
	})

	t.Run("fewer than two ingredients is a 400", func(t *testing.T) {
		env := newTestEnv(t)
		id := env.createGame(t)
		rec := env.do(http.MethodPost, "/api/games/"+id.String()+"/craft", `{"ingredients":["Torn Map"]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSaveEndpoints(t *testing.T) {
	env := newTestEnv(t)
	id := env.createGame(t)

	rec := env.do(http.MethodGet, "/api/saves", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var summaries []models.SaveSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, id, summaries[0].ID)

	// Dropping the live session and loading the save restores it.
	env.sessions.Remove(id)
	rec = env.do(http.MethodPost, "/api/saves/"+id.String()+"/load", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp gameResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.State.ID)

	rec = env.do(http.MethodDelete, "/api/saves/"+id.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodDelete, "/api/saves/"+id.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHallOfFameEndpoint(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.fame.Record(context.Background(), &models.HallOfFameEntry{
		ID:            uuid.New(),
		CharacterName: "Mira",
		ScenarioTitle: "The Drowned Vale",
		Outcome:       "The sea takes what it is owed.",
		DaysSurvived:  9,
	}))

	rec := env.do(http.MethodGet, "/api/halloffame", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []models.HallOfFameEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 9, entries[0].DaysSurvived)
}

func TestKeyEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/keys", `{"name":"backup","value":"sk-secret"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// The secret never appears in a response body.
	assert.NotContains(t, rec.Body.String(), "sk-secret")

	var resp keyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Keys, 2)
	added := resp.Keys[1]
	assert.Equal(t, "backup", added.Name)
	assert.Equal(t, models.APIKeyStatusUnchecked, added.Status)

	rec = env.do(http.MethodPut, "/api/keys/"+added.ID+"/enabled", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Keys[1].Enabled)

	rec = env.do(http.MethodDelete, "/api/keys/"+added.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodDelete, "/api/keys/"+added.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPut, "/api/keys/nope/enabled", `{"enabled":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
