package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/infra/metrics"
)

// FallbackText is the only failure detail a customer ever sees.
const FallbackText = "Something went wrong, please try again."

type ActionRequest struct {
	CustomerID string
	Args       map[string]string
}

type ActionResult struct {
	Messages     []model.OutboundMessage
	ContextPatch map[string]string
	OK           bool
}

type ActionHandler func(ctx context.Context, req ActionRequest) (ActionResult, error)

// CapConfig is a generic frequency cap applied at dispatch: at most Limit
// executions per customer per Window. A capped execution is a silent no-op.
type CapConfig struct {
	Limit  int
	Window time.Duration
}

// RateAllower is satisfied by the redis rate limiter.
type RateAllower interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// ActionRegistry resolves action names to handlers. It is populated at
// process start and frozen before the first event is processed; registering
// after Freeze, registering a duplicate, or executing an unregistered name
// are programming errors and panic.
type ActionRegistry struct {
	handlers map[model.ActionName]ActionHandler
	caps     map[model.ActionName]CapConfig
	limiter  RateAllower
	frozen   bool
	log      *zerolog.Logger
}

func NewActionRegistry(limiter RateAllower, logger *zerolog.Logger) *ActionRegistry {
	l := logger.With().Str("component", "actions").Logger()
	return &ActionRegistry{
		handlers: map[model.ActionName]ActionHandler{},
		caps:     map[model.ActionName]CapConfig{},
		limiter:  limiter,
		log:      &l,
	}
}

func (r *ActionRegistry) Register(name model.ActionName, h ActionHandler) {
	if r.frozen {
		panic(fmt.Sprintf("action registry frozen; cannot register %q", name))
	}
	if h == nil {
		panic(fmt.Sprintf("nil handler for action %q", name))
	}
	if _, dup := r.handlers[name]; dup {
		panic(fmt.Sprintf("duplicate action registration %q", name))
	}
	r.handlers[name] = h
}

// RegisterCapped registers a handler with a frequency cap.
func (r *ActionRegistry) RegisterCapped(name model.ActionName, h ActionHandler, cfg CapConfig) {
	r.Register(name, h)
	if cfg.Limit > 0 && cfg.Window > 0 {
		r.caps[name] = cfg
	}
}

func (r *ActionRegistry) Freeze() { r.frozen = true }

// Execute runs one action. Handler failures never propagate: they are logged
// and converted into the generic fallback message.
func (r *ActionRegistry) Execute(ctx context.Context, name model.ActionName, req ActionRequest) ActionResult {
	h, ok := r.handlers[name]
	if !ok {
		panic(fmt.Sprintf("action %q not registered", name))
	}

	if cfg, capped := r.caps[name]; capped && r.limiter != nil {
		key := fmt.Sprintf("action_cap:%s:%s", req.CustomerID, name)
		allowed, err := r.limiter.Allow(ctx, key, cfg.Limit, cfg.Window)
		if err != nil {
			r.log.Warn().Err(err).Str("action", string(name)).Msg("cap check failed; allowing")
		} else if !allowed {
			r.log.Debug().Str("action", string(name)).Str("customer_id", req.CustomerID).Msg("action suppressed by frequency cap")
			metrics.IncAction(string(name), "capped")
			return ActionResult{OK: true}
		}
	}

	res, err := h(ctx, req)
	if err != nil {
		r.log.Error().Err(err).
			Str("action", string(name)).
			Str("customer_id", req.CustomerID).
			Msg("action handler failed")
		metrics.IncAction(string(name), "error")
		return ActionResult{
			Messages: []model.OutboundMessage{{
				CustomerID: req.CustomerID,
				Text:       FallbackText,
			}},
			OK: false,
		}
	}
	metrics.IncAction(string(name), "ok")
	res.OK = true
	return res
}
