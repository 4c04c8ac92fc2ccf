package engine

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ashutoshrp06/switchboard/internal/types"
	xerrors "github.com/ashutoshrp06/switchboard/pkg/errors"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

// Node is a state of the graph executor.
type Node int

const (
	NodeDispatch Node = iota
	NodeExecute
	NodeAggregate
	NodeDone
)

func (n Node) String() string {
	switch n {
	case NodeDispatch:
		return "dispatch"
	case NodeExecute:
		return "execute"
	case NodeAggregate:
		return "aggregate"
	case NodeDone:
		return "done"
	}
	return "unknown"
}

// Run drives state through the graph until Done and returns it.
//
// Capability failures never abort a run; they are appended as failed tool
// messages. Run returns an error only for inference failures and for a
// looping agent that exhausts its step budget. The partially built state is
// returned alongside the error.
func (a *Agent) Run(ctx context.Context, state *models.State) (*models.State, error) {
	if state == nil {
		state = &models.State{}
	}

	node := NodeDispatch
	rounds := 0
	var pending []models.CapabilityCall

	for node != NodeDone {
		a.logger.Debug("Graph transition",
			zap.Stringer("node", node),
			zap.Int("round", rounds),
			zap.Int("messages", len(state.Messages)))

		switch node {
		case NodeDispatch:
			state.EnsureSystem(a.systemPrompt)

			decision, err := a.decide(ctx, state)
			if err != nil {
				a.emit(types.AgentEvent{State: types.StateError, Error: err})
				return state, err
			}

			if !decision.IsFinal() && a.loop && rounds >= a.maxSteps {
				err := xerrors.Newf(xerrors.CodeLoopBudgetExceeded,
					"agent %s still requested capabilities after %d rounds", a.name, a.maxSteps)
				a.logger.Warn("Loop budget exceeded", zap.Int("max_steps", a.maxSteps))
				a.emit(types.AgentEvent{State: types.StateError, Error: err})
				return state, err
			}

			msg := decision.Message()
			msg.Timestamp = time.Now()
			if decision.IsFinal() {
				state.Append(msg)
				a.emit(types.AgentEvent{State: types.StateResponding, FinalAnswer: decision.Content})
				if a.loop {
					node = NodeDone
				} else {
					node = NodeAggregate
				}
				continue
			}

			msg.Calls = assignCallIDs(msg.Calls)
			state.Append(msg)
			pending = msg.Calls
			node = NodeExecute

		case NodeExecute:
			results := a.execute(ctx, pending)
			for _, res := range results {
				state.Append(res.ToolMessage())
			}
			pending = nil
			node = NodeAggregate

		case NodeAggregate:
			last, _ := state.Last()
			step := state.RecordStep(last.Content)
			a.logger.Debug("Aggregated step", zap.Int("step", step))

			if a.loop {
				rounds++
				node = NodeDispatch
			} else {
				node = NodeDone
			}
		}
	}

	return state, nil
}

func (a *Agent) decide(ctx context.Context, state *models.State) (models.Decision, error) {
	a.emit(types.AgentEvent{State: types.StateThinking})

	dctx, cancel := context.WithTimeout(ctx, a.decideTimeout)
	defer cancel()

	req := Request{
		Agent:        a.name,
		Messages:     models.CloneMessages(state.Messages),
		Context:      state.Context,
		Capabilities: a.registry.Definitions(),
	}

	start := time.Now()
	decision, err := a.decider.Decide(dctx, req)
	if err != nil {
		if stdErrors.Is(err, context.DeadlineExceeded) || stdErrors.Is(dctx.Err(), context.DeadlineExceeded) {
			err = xerrors.Wrap(xerrors.CodeInferenceTimeout, err, "decision step timed out")
		} else if !stdErrors.Is(err, xerrors.ErrInferenceFailure) {
			err = xerrors.Wrap(xerrors.CodeInferenceFailure, err, "decision step failed")
		}
		a.logger.Error("Decision failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return models.Decision{}, err
	}

	a.logger.Debug("Decision received",
		zap.Stringer("kind", decision.Kind),
		zap.Int("calls", len(decision.Calls)),
		zap.Duration("elapsed", time.Since(start)))
	return decision, nil
}

// assignCallIDs gives every call an id that is unique within the decision.
func assignCallIDs(calls []models.CapabilityCall) []models.CapabilityCall {
	seen := make(map[string]bool, len(calls))
	for i := range calls {
		if calls[i].ID == "" || seen[calls[i].ID] {
			calls[i].ID = uuid.New().String()
		}
		seen[calls[i].ID] = true
	}
	return calls
}
