// Package fsm holds the per-conversation state machine: a deterministic
// transition table keyed by (state, intent type). The machine performs no
// I/O; it only decides the next state and which actions to invoke.
package fsm

import "commerce-chat-bot/internal/domain/model"

type Machine struct{}

func New() *Machine { return &Machine{} }

// Transition applies one classified intent to a conversation and returns the
// next state plus the resolved action invocations. The conversation itself is
// not mutated; persisting the result is the caller's job.
func (m *Machine) Transition(conv *model.Conversation, intent model.Intent) (model.ConversationState, []model.ActionInvocation) {
	tr := Lookup(conv.State, intent.Type)

	invocations := make([]model.ActionInvocation, 0, len(tr.Actions))
	for _, name := range tr.Actions {
		invocations = append(invocations, model.ActionInvocation{
			Name: name,
			Args: resolveArgs(conv, intent),
		})
	}
	return tr.Next, invocations
}

// resolveArgs merges the conversation context with the intent slots; slots
// win on conflict. Each invocation gets its own copy.
func resolveArgs(conv *model.Conversation, intent model.Intent) map[string]string {
	args := make(map[string]string, len(conv.Context)+len(intent.Slots)+1)
	for k, v := range conv.Context {
		args[k] = v
	}
	for k, v := range intent.Slots {
		args[k] = v
	}
	args["customer_id"] = conv.CustomerID
	return args
}
