package engine

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ashutoshrp06/switchboard/internal/types"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

// execute runs calls on a bounded pool and returns results in call order.
func (a *Agent) execute(ctx context.Context, calls []models.CapabilityCall) []models.CapabilityResult {
	results := make([]models.CapabilityResult, len(calls))
	if len(calls) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(min(len(calls), a.concurrency))

	for i, call := range calls {
		g.Go(func() error {
			results[i] = a.invoke(ctx, call)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (a *Agent) invoke(ctx context.Context, call models.CapabilityCall) models.CapabilityResult {
	a.emit(types.AgentEvent{State: types.StateCapabilityCall, Call: &call})

	cctx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	res := a.registry.Invoke(cctx, call)

	if res.Failed {
		a.logger.Warn("Capability failed",
			zap.String("capability", call.Name),
			zap.String("call_id", call.ID),
			zap.String("error_kind", string(res.Kind)),
			zap.String("detail", res.ErrorDetail))
	} else {
		a.logger.Debug("Capability succeeded",
			zap.String("capability", call.Name),
			zap.String("call_id", call.ID),
			zap.Duration("duration", res.Duration))
	}

	a.emit(types.AgentEvent{State: types.StateExecuting, Call: &call, Result: &res})
	return res
}
