package fsm

import "commerce-chat-bot/internal/domain/model"

// Transition is one row of the machine: the next state plus the actions to
// invoke, in order.
type Transition struct {
	Next    model.ConversationState
	Actions []model.ActionName
}

// global rows apply in every state unless the state's own row overrides them.
// Lookup order: state row, global row, state fallback.
var global = map[model.IntentType]Transition{
	model.IntentGreeting:       {Next: model.StateIdle, Actions: []model.ActionName{model.ActionShowMainMenu}},
	model.IntentCancel:         {Next: model.StateIdle, Actions: []model.ActionName{model.ActionShowMainMenu}},
	model.IntentBrowseCatalog:  {Next: model.StateBrowsingCatalog, Actions: []model.ActionName{model.ActionShowCategories}},
	model.IntentBrowseCategory: {Next: model.StateBrowsingCatalog, Actions: []model.ActionName{model.ActionShowCategory}},
	model.IntentViewProduct:    {Next: model.StateViewingProduct, Actions: []model.ActionName{model.ActionShowProduct}},
	model.IntentViewCart:       {Next: model.StateCartReview, Actions: []model.ActionName{model.ActionShowCart}},
	model.IntentAddToCart:      {Next: model.StateCartReview, Actions: []model.ActionName{model.ActionSetCartQuantity, model.ActionShowCart}},
	model.IntentCheckout:       {Next: model.StateAwaitingAddress, Actions: []model.ActionName{model.ActionBeginCheckout}},
	model.IntentSupport:        {Next: model.StateSupportHandoff, Actions: []model.ActionName{model.ActionHandoffSupport}},
}

// rows holds the state-specific transitions.
var rows = map[model.ConversationState]map[model.IntentType]Transition{
	model.StateIdle: {
		model.IntentFreeText: {Next: model.StateIdle, Actions: []model.ActionName{model.ActionShowUnknownHelp}},
	},
	model.StateViewingProduct: {
		model.IntentSelectVariant: {Next: model.StateSelectingVariant, Actions: []model.ActionName{model.ActionPromptQuantity}},
		model.IntentSetQuantity:   {Next: model.StateCartReview, Actions: []model.ActionName{model.ActionSetCartQuantity, model.ActionShowCart}},
	},
	model.StateSelectingVariant: {
		model.IntentSelectVariant: {Next: model.StateSelectingVariant, Actions: []model.ActionName{model.ActionPromptQuantity}},
		model.IntentSetQuantity:   {Next: model.StateCartReview, Actions: []model.ActionName{model.ActionSetCartQuantity, model.ActionShowCart}},
	},
	model.StateCartReview: {
		model.IntentSetQuantity: {Next: model.StateCartReview, Actions: []model.ActionName{model.ActionSetCartQuantity, model.ActionShowCart}},
		model.IntentRemoveItem:  {Next: model.StateCartReview, Actions: []model.ActionName{model.ActionRemoveCartItem, model.ActionShowCart}},
	},
	model.StateAwaitingAddress: {
		model.IntentProvideAddress: {Next: model.StateAwaitingPayment, Actions: []model.ActionName{model.ActionSaveAddress, model.ActionShowPayOptions}},
		// Free text typed at this step is the address.
		model.IntentFreeText: {Next: model.StateAwaitingPayment, Actions: []model.ActionName{model.ActionSaveAddress, model.ActionShowPayOptions}},
	},
	model.StateAwaitingPayment: {
		model.IntentChoosePayment: {Next: model.StateAwaitingPayment, Actions: []model.ActionName{model.ActionSavePayment}},
		model.IntentConfirmOrder:  {Next: model.StateOrderConfirmed, Actions: []model.ActionName{model.ActionPlaceOrder, model.ActionShowOrderStatus}},
	},
}

// fallbacks re-show the current state's menu so malformed or out-of-context
// input never strands the conversation. SUPPORT_HANDOFF stays silent: after a
// handoff the human agent owns the channel.
var fallbacks = map[model.ConversationState]Transition{
	model.StateIdle:             {Next: model.StateIdle, Actions: []model.ActionName{model.ActionShowMainMenu}},
	model.StateBrowsingCatalog:  {Next: model.StateBrowsingCatalog, Actions: []model.ActionName{model.ActionShowCategories}},
	model.StateViewingProduct:   {Next: model.StateViewingProduct, Actions: []model.ActionName{model.ActionShowProduct}},
	model.StateSelectingVariant: {Next: model.StateSelectingVariant, Actions: []model.ActionName{model.ActionPromptQuantity}},
	model.StateCartReview:       {Next: model.StateCartReview, Actions: []model.ActionName{model.ActionShowCart}},
	model.StateAwaitingAddress:  {Next: model.StateAwaitingAddress, Actions: []model.ActionName{model.ActionBeginCheckout}},
	model.StateAwaitingPayment:  {Next: model.StateAwaitingPayment, Actions: []model.ActionName{model.ActionShowPayOptions}},
	model.StateOrderConfirmed:   {Next: model.StateOrderConfirmed, Actions: []model.ActionName{model.ActionShowOrderStatus}},
	model.StateSupportHandoff:   {Next: model.StateSupportHandoff, Actions: nil},
}

// Lookup resolves (state, intent type) deterministically.
func Lookup(state model.ConversationState, t model.IntentType) Transition {
	if row, ok := rows[state]; ok {
		if tr, ok := row[t]; ok {
			return tr
		}
	}
	if tr, ok := global[t]; ok {
		return tr
	}
	if tr, ok := fallbacks[state]; ok {
		return tr
	}
	// Unknown state values cannot occur through the public API; stay put.
	return Transition{Next: state}
}
