package service

import (
	"context"
	checkout "transferly/internal/checkout/core"
	"transferly/internal/checkout/flows"
	"transferly/pkg/logger"
)

type CheckoutService struct {
	engine *checkout.Engine
	deps   *checkout.Deps
	Logger *logger.Logger
}

func NewCheckoutService(deps *checkout.Deps, limiter *checkout.Limiter, logger *logger.Logger) *CheckoutService {
	return &CheckoutService{
		engine: checkout.NewEngine(limiter, flows.All()...),
		deps:   deps,
		Logger: logger,
	}
}

func (s *CheckoutService) ExecuteFlow(ctx context.Context, flowName string, input map[string]any) (map[string]any, error) {
	cctx := checkout.NewCheckoutContext(ctx, input, s.deps, s.Logger.With("flow", flowName))
	if err := s.engine.Run(flowName, cctx); err != nil {
		return nil, err
	}
	return cctx.Output, nil
}

func (s *CheckoutService) GetAvailableFlows() []string {
	return s.engine.Names()
}
