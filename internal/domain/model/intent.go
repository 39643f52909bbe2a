package model

import (
	"strconv"
	"strings"
)

type IntentType string

const (
	IntentGreeting       IntentType = "greeting"
	IntentBrowseCatalog  IntentType = "browse_catalog"
	IntentBrowseCategory IntentType = "browse_category"
	IntentViewProduct    IntentType = "view_product"
	IntentSelectVariant  IntentType = "select_variant"
	IntentAddToCart      IntentType = "add_to_cart"
	IntentSetQuantity    IntentType = "set_quantity"
	IntentViewCart       IntentType = "view_cart"
	IntentRemoveItem     IntentType = "remove_item"
	IntentCheckout       IntentType = "checkout"
	IntentProvideAddress IntentType = "provide_address"
	IntentChoosePayment  IntentType = "choose_payment"
	IntentConfirmOrder   IntentType = "confirm_order"
	IntentCancel         IntentType = "cancel"
	IntentSupport        IntentType = "support"
	IntentFreeText       IntentType = "free_text"
	IntentUnknown        IntentType = "unknown"
)

// AllIntentTypes enumerates the closed vocabulary.
func AllIntentTypes() []IntentType {
	return []IntentType{
		IntentGreeting, IntentBrowseCatalog, IntentBrowseCategory,
		IntentViewProduct, IntentSelectVariant, IntentAddToCart,
		IntentSetQuantity, IntentViewCart, IntentRemoveItem, IntentCheckout,
		IntentProvideAddress, IntentChoosePayment, IntentConfirmOrder,
		IntentCancel, IntentSupport, IntentFreeText, IntentUnknown,
	}
}

// Slot names. Each intent type may carry at most its declared slots.
const (
	SlotCategoryID  = "category_id"
	SlotProductID   = "product_id"
	SlotVariationID = "variation_id"
	SlotQuantity    = "quantity"
	SlotAddress     = "address"
	SlotPayMethod   = "payment_method"
	SlotText        = "text"
)

// declaredSlots bounds slot extraction per intent type.
var declaredSlots = map[IntentType][]string{
	IntentBrowseCategory: {SlotCategoryID},
	IntentViewProduct:    {SlotProductID},
	IntentSelectVariant:  {SlotVariationID},
	IntentAddToCart:      {SlotProductID, SlotQuantity},
	IntentSetQuantity:    {SlotQuantity},
	IntentRemoveItem:     {SlotProductID},
	IntentProvideAddress: {SlotAddress},
	IntentChoosePayment:  {SlotPayMethod},
	IntentFreeText:       {SlotText},
}

// DeclaredSlots returns the allowed slot names for an intent type.
func DeclaredSlots(t IntentType) []string { return declaredSlots[t] }

// Intent is the classified purpose of one inbound event. Structured replies
// carry confidence 1.0; free-text confidence comes from the model.
type Intent struct {
	Type         IntentType
	Slots        map[string]string
	Confidence   float64
	StructuredID string // raw reply id when the input was a button/list tap
}

func (i Intent) Structured() bool { return i.StructuredID != "" }

func (i Intent) Slot(name string) string { return i.Slots[name] }

// PruneSlots drops any slot the intent type did not declare.
func (i *Intent) PruneSlots() {
	if len(i.Slots) == 0 {
		return
	}
	allowed := map[string]struct{}{}
	for _, s := range declaredSlots[i.Type] {
		allowed[s] = struct{}{}
	}
	for k := range i.Slots {
		if _, ok := allowed[k]; !ok {
			delete(i.Slots, k)
		}
	}
}

func UnknownIntent() Intent {
	return Intent{Type: IntentUnknown, Slots: map[string]string{}}
}

// DecodeReplyID parses the fixed structured-reply grammar into an Intent.
// The second return is false when the id does not match the grammar.
//
// Grammar: category_{id} product_{id} variant_{id} qty_{n} remove_{id}
//
//	pay_{method} catalog cart checkout confirm cancel menu support
func DecodeReplyID(id string) (Intent, bool) {
	id = strings.TrimSpace(id)
	mk := func(t IntentType, slots map[string]string) (Intent, bool) {
		if slots == nil {
			slots = map[string]string{}
		}
		return Intent{Type: t, Slots: slots, Confidence: 1.0, StructuredID: id}, true
	}

	switch id {
	case "catalog":
		return mk(IntentBrowseCatalog, nil)
	case "cart":
		return mk(IntentViewCart, nil)
	case "checkout":
		return mk(IntentCheckout, nil)
	case "confirm":
		return mk(IntentConfirmOrder, nil)
	case "cancel":
		return mk(IntentCancel, nil)
	case "menu":
		return mk(IntentGreeting, nil)
	case "support":
		return mk(IntentSupport, nil)
	}

	for prefix, t := range map[string]IntentType{
		"category_": IntentBrowseCategory,
		"product_":  IntentViewProduct,
		"variant_":  IntentSelectVariant,
		"remove_":   IntentRemoveItem,
	} {
		if v, ok := strings.CutPrefix(id, prefix); ok && v != "" {
			slot := declaredSlots[t][0]
			return mk(t, map[string]string{slot: v})
		}
	}

	if v, ok := strings.CutPrefix(id, "qty_"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return mk(IntentSetQuantity, map[string]string{SlotQuantity: strconv.Itoa(n)})
		}
	}
	if v, ok := strings.CutPrefix(id, "pay_"); ok && v != "" {
		return mk(IntentChoosePayment, map[string]string{SlotPayMethod: v})
	}

	return Intent{}, false
}
