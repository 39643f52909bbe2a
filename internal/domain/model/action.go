package model

type ActionName string

const (
	ActionShowMainMenu    ActionName = "show_main_menu"
	ActionShowCategories  ActionName = "show_categories"
	ActionShowCategory    ActionName = "show_category"
	ActionShowProduct     ActionName = "show_product"
	ActionPromptQuantity  ActionName = "prompt_quantity"
	ActionSetCartQuantity ActionName = "set_cart_quantity"
	ActionRemoveCartItem  ActionName = "remove_cart_item"
	ActionShowCart        ActionName = "show_cart"
	ActionBeginCheckout   ActionName = "begin_checkout"
	ActionSaveAddress     ActionName = "save_address"
	ActionShowPayOptions  ActionName = "show_payment_options"
	ActionSavePayment     ActionName = "save_payment_method"
	ActionPlaceOrder      ActionName = "place_order"
	ActionShowOrderStatus ActionName = "show_order_status"
	ActionHandoffSupport  ActionName = "handoff_support"
	ActionShowUnknownHelp ActionName = "show_unknown_help"
)

// ActionInvocation is what the state machine emits: a registered action name
// plus resolved arguments. The machine itself performs no I/O.
type ActionInvocation struct {
	Name ActionName
	Args map[string]string
}

type Button struct {
	Label   string
	ReplyID string // structured reply grammar id, echoed back on tap
}

// OutboundMessage is an opaque payload handed to the messaging client.
type OutboundMessage struct {
	CustomerID string
	Text       string
	Buttons    [][]Button
}
