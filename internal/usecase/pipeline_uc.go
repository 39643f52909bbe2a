package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/fsm"
	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/repository"
	"commerce-chat-bot/internal/infra/logging"
	"commerce-chat-bot/internal/infra/metrics"
)

// ConversationLocker serializes processing per customer. TryLock returns
// domain.ErrConversationBusy when another event for the same customer is
// in flight.
type ConversationLocker interface {
	TryLock(ctx context.Context, key string) (unlock func(), err error)
}

// JobDispatcher enqueues background work. The pipeline uses it for outbound
// delivery so a slow provider never blocks event admission.
type JobDispatcher interface {
	Dispatch(ctx context.Context, hook string, payload []byte, runAt time.Time) (string, error)
	DispatchArgs(ctx context.Context, hook string, args map[string]string, runAt time.Time) (string, error)
}

// PipelineUseCase is the single entry point for inbound chat events.
type PipelineUseCase interface {
	// ProcessInbound admits, classifies, transitions and executes one event.
	// Replays of an already-claimed event return nil without side effects.
	ProcessInbound(ctx context.Context, ev model.InboundEvent) error
}

var _ PipelineUseCase = (*pipelineUC)(nil)

const (
	// HookSendMessage delivers one OutboundMessage through the messenger.
	HookSendMessage = "send_message"
	// HookSweepStaleCarts clears an untouched cart after the sweep delay.
	HookSweepStaleCarts = "sweep_stale_carts"

	convLockPrefix = "conv_lock:"

	defaultActionTimeout = 10 * time.Second
	staleCartSweepAfter  = 48 * time.Hour
)

type pipelineUC struct {
	claims        repository.EventClaimRepository
	conversations repository.ConversationRepository
	locker        ConversationLocker
	classifier    ClassifyUseCase
	machine       *fsm.Machine
	registry      *ActionRegistry
	dispatcher    JobDispatcher

	actionTimeout time.Duration
	log           *zerolog.Logger
}

func NewPipelineUseCase(
	claims repository.EventClaimRepository,
	conversations repository.ConversationRepository,
	locker ConversationLocker,
	classifier ClassifyUseCase,
	machine *fsm.Machine,
	registry *ActionRegistry,
	dispatcher JobDispatcher,
	logger *zerolog.Logger,
) *pipelineUC {
	l := logger.With().Str("component", "pipeline").Logger()
	return &pipelineUC{
		claims:        claims,
		conversations: conversations,
		locker:        locker,
		classifier:    classifier,
		machine:       machine,
		registry:      registry,
		dispatcher:    dispatcher,
		actionTimeout: defaultActionTimeout,
		log:           &l,
	}
}

func (uc *pipelineUC) ProcessInbound(ctx context.Context, ev model.InboundEvent) error {
	if ev.EventID == "" || ev.CustomerID == "" {
		return fmt.Errorf("inbound event missing ids: %w", domain.ErrInvalidArgument)
	}
	customerID := model.NormalizeCustomerID(ev.CustomerID)
	ctx = logging.WithEventID(logging.WithCustomerID(ctx, customerID), ev.EventID)
	log := uc.log.With().Str("event_id", ev.EventID).Str("customer_id", customerID).Logger()

	// Lock before claiming. A busy conversation must leave the event
	// unclaimed so the provider's redelivery can apply it once the lock
	// frees up; claiming first would turn that redelivery into a no-op
	// duplicate and lose the event.
	unlock, err := uc.locker.TryLock(ctx, convLockPrefix+customerID)
	if err != nil {
		if errors.Is(err, domain.ErrConversationBusy) {
			metrics.IncEvent("busy")
		}
		return fmt.Errorf("lock conversation %s: %w", customerID, err)
	}
	defer unlock()

	// The claim is permanent: once inserted the event is ours even if
	// everything after this point fails.
	claimed, err := uc.claims.Claim(ctx, ev.EventID, customerID, ev.ReceivedAt)
	if err != nil {
		metrics.IncEvent("claim_error")
		return fmt.Errorf("claim event %s: %w", ev.EventID, errors.Join(domain.ErrClaimStoreOffline, err))
	}
	if !claimed {
		metrics.IncEvent("duplicate")
		log.Debug().Msg("duplicate event dropped")
		return domain.ErrDuplicateEvent
	}
	metrics.IncEvent("admitted")

	conv, err := uc.conversations.Find(ctx, nil, customerID)
	if errors.Is(err, domain.ErrNotFound) {
		conv = model.NewConversation(customerID, ev.ReceivedAt)
	} else if err != nil {
		return fmt.Errorf("load conversation %s: %w", customerID, err)
	}

	intent := uc.classifier.Classify(ctx, &ev)
	next, invocations := uc.machine.Transition(conv, intent)
	metrics.IncTransition(string(conv.State), string(next), string(intent.Type))

	outbound, patches := uc.runActions(ctx, &log, conv, intent, invocations, customerID)

	conv.State = next
	for _, p := range patches {
		conv.MergeContext(p)
	}
	conv.Touch(time.Now())
	if err := uc.conversations.Save(ctx, nil, conv); err != nil {
		return fmt.Errorf("save conversation %s: %w", customerID, err)
	}

	for _, m := range outbound {
		if err := uc.enqueueSend(ctx, m); err != nil {
			log.Error().Err(err).Msg("enqueue outbound message failed")
		}
	}

	// A cart the customer never comes back for gets swept. The hook checks
	// activity again at execution time, so rescheduling on every cart touch
	// just pushes the deadline out.
	if conv.State == model.StateCartReview {
		_, err := uc.dispatcher.DispatchArgs(ctx, HookSweepStaleCarts,
			map[string]string{"customer_id": customerID}, time.Now().Add(staleCartSweepAfter))
		if err != nil {
			log.Error().Err(err).Msg("schedule stale cart sweep failed")
		}
	}
	return nil
}

// runActions executes each invocation in order. A successful handler's
// context patch is visible to the invocations after it, so a row like
// [place_order, show_order_status] sees the order id it just produced. A
// failed handler contributes its fallback message but its patch is
// discarded; later handlers still run so the customer always hears back.
func (uc *pipelineUC) runActions(
	ctx context.Context,
	log *zerolog.Logger,
	conv *model.Conversation,
	intent model.Intent,
	invocations []model.ActionInvocation,
	customerID string,
) ([]model.OutboundMessage, []map[string]string) {
	var outbound []model.OutboundMessage
	var patches []map[string]string
	applied := map[string]string{}
	for _, inv := range invocations {
		actionCtx, cancel := context.WithTimeout(ctx, uc.actionTimeout)
		res := uc.registry.Execute(actionCtx, inv.Name, ActionRequest{
			CustomerID: customerID,
			Args:       overlayArgs(inv.Args, applied, intent.Slots),
		})
		cancel()
		outbound = append(outbound, res.Messages...)
		if res.OK && len(res.ContextPatch) > 0 {
			patches = append(patches, res.ContextPatch)
			for k, v := range res.ContextPatch {
				applied[k] = v
			}
		}
		if !res.OK {
			log.Warn().
				Str("action", string(inv.Name)).
				Str("intent", string(intent.Type)).
				Str("state", string(conv.State)).
				Msg("action failed, fallback sent")
		}
	}
	return outbound, patches
}

// overlayArgs applies this turn's accumulated patches on top of the resolved
// args. Slot values keep precedence, matching the table's arg resolution;
// an empty patch value deletes the key, matching MergeContext.
func overlayArgs(args, applied, slots map[string]string) map[string]string {
	if len(applied) == 0 {
		return args
	}
	merged := make(map[string]string, len(args)+len(applied))
	for k, v := range args {
		merged[k] = v
	}
	for k, v := range applied {
		if _, fromSlot := slots[k]; fromSlot {
			continue
		}
		if v == "" {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	return merged
}

func (uc *pipelineUC) enqueueSend(ctx context.Context, m model.OutboundMessage) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal outbound message: %w", err)
	}
	_, err = uc.dispatcher.Dispatch(ctx, HookSendMessage, payload, time.Now())
	return err
}
