package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"adventure-server/internal/gateway"
	"adventure-server/internal/models"
)

// Gateway is a mock type for the gateway.Gateway interface.
type Gateway struct {
	mock.Mock
}

func (_m *Gateway) AdvanceExploration(ctx context.Context, req gateway.ExplorationRequest, cred models.APIKey) (*gateway.ExplorationResult, error) {
	ret := _m.Called(ctx, req, cred)

	var r0 *gateway.ExplorationResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*gateway.ExplorationResult)
	}
	return r0, ret.Error(1)
}

func (_m *Gateway) ResolveCombat(ctx context.Context, req gateway.CombatRequest, cred models.APIKey) (*gateway.CombatResult, error) {
	ret := _m.Called(ctx, req, cred)

	var r0 *gateway.CombatResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*gateway.CombatResult)
	}
	return r0, ret.Error(1)
}

func (_m *Gateway) CraftItem(ctx context.Context, req gateway.CraftRequest, cred models.APIKey) (*gateway.CraftResult, error) {
	ret := _m.Called(ctx, req, cred)

	var r0 *gateway.CraftResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*gateway.CraftResult)
	}
	return r0, ret.Error(1)
}

var _ gateway.Gateway = (*Gateway)(nil)
