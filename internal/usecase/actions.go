package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/adapter"
)

// CommerceActions holds the built-in action handlers. Each handler composes
// the narrow catalog/cart/order collaborators and returns messages plus
// context patches; none of them touch conversation state directly.
type CommerceActions struct {
	catalog adapter.CatalogService
	cart    adapter.CartService
	orders  adapter.OrderService
	log     *zerolog.Logger
}

func NewCommerceActions(catalog adapter.CatalogService, cart adapter.CartService, orders adapter.OrderService, logger *zerolog.Logger) *CommerceActions {
	l := logger.With().Str("component", "commerce").Logger()
	return &CommerceActions{catalog: catalog, cart: cart, orders: orders, log: &l}
}

// RegisterAll wires every built-in handler into the registry.
func (a *CommerceActions) RegisterAll(reg *ActionRegistry) {
	reg.Register(model.ActionShowMainMenu, a.ShowMainMenu)
	reg.Register(model.ActionShowCategories, a.ShowCategories)
	reg.Register(model.ActionShowCategory, a.ShowCategory)
	reg.Register(model.ActionShowProduct, a.ShowProduct)
	reg.Register(model.ActionPromptQuantity, a.PromptQuantity)
	reg.Register(model.ActionSetCartQuantity, a.SetCartQuantity)
	reg.Register(model.ActionRemoveCartItem, a.RemoveCartItem)
	reg.Register(model.ActionShowCart, a.ShowCart)
	reg.Register(model.ActionBeginCheckout, a.BeginCheckout)
	reg.Register(model.ActionSaveAddress, a.SaveAddress)
	reg.Register(model.ActionShowPayOptions, a.ShowPaymentOptions)
	reg.Register(model.ActionSavePayment, a.SavePaymentMethod)
	reg.Register(model.ActionPlaceOrder, a.PlaceOrder)
	reg.Register(model.ActionShowOrderStatus, a.ShowOrderStatus)
	// A customer re-tapping "support" should not pile up handoff requests.
	reg.RegisterCapped(model.ActionHandoffSupport, a.HandoffSupport, CapConfig{Limit: 3, Window: time.Hour})
	reg.Register(model.ActionShowUnknownHelp, a.ShowUnknownHelp)
}

func formatPrice(minor int64) string {
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

func msg(customerID, text string, buttons ...[]model.Button) model.OutboundMessage {
	return model.OutboundMessage{CustomerID: customerID, Text: text, Buttons: buttons}
}

func one(m model.OutboundMessage) ActionResult {
	return ActionResult{Messages: []model.OutboundMessage{m}}
}

func (a *CommerceActions) ShowMainMenu(ctx context.Context, req ActionRequest) (ActionResult, error) {
	return one(msg(req.CustomerID,
		"Welcome! What would you like to do?",
		[]model.Button{{Label: "Browse catalog", ReplyID: "catalog"}},
		[]model.Button{{Label: "View cart", ReplyID: "cart"}},
		[]model.Button{{Label: "Talk to support", ReplyID: "support"}},
	)), nil
}

func (a *CommerceActions) ShowCategories(ctx context.Context, req ActionRequest) (ActionResult, error) {
	cats, err := a.catalog.ListCategories(ctx)
	if err != nil {
		return ActionResult{}, fmt.Errorf("list categories: %w", err)
	}
	if len(cats) == 0 {
		return one(msg(req.CustomerID, "The catalog is empty right now. Please check back soon.")), nil
	}
	rows := make([][]model.Button, 0, len(cats))
	for _, c := range cats {
		rows = append(rows, []model.Button{{Label: c.Name, ReplyID: "category_" + c.ID}})
	}
	return one(msg(req.CustomerID, "Pick a category:", rows...)), nil
}

func (a *CommerceActions) ShowCategory(ctx context.Context, req ActionRequest) (ActionResult, error) {
	categoryID := req.Args[model.SlotCategoryID]
	if categoryID == "" {
		return a.ShowCategories(ctx, req)
	}
	products, err := a.catalog.ListProducts(ctx, categoryID)
	if err != nil {
		return ActionResult{}, fmt.Errorf("list products for category %s: %w", categoryID, err)
	}
	if len(products) == 0 {
		return one(msg(req.CustomerID,
			"Nothing in this category yet.",
			[]model.Button{{Label: "Back to categories", ReplyID: "catalog"}},
		)), nil
	}
	rows := make([][]model.Button, 0, len(products)+1)
	for _, p := range products {
		rows = append(rows, []model.Button{{
			Label:   fmt.Sprintf("%s - %s", p.Name, formatPrice(p.Price)),
			ReplyID: "product_" + p.ID,
		}})
	}
	rows = append(rows, []model.Button{{Label: "Back", ReplyID: "catalog"}})
	res := one(msg(req.CustomerID, "Here is what we have:", rows...))
	res.ContextPatch = map[string]string{model.SlotCategoryID: categoryID}
	return res, nil
}

func (a *CommerceActions) ShowProduct(ctx context.Context, req ActionRequest) (ActionResult, error) {
	productID := req.Args[model.SlotProductID]
	if productID == "" {
		return ActionResult{}, fmt.Errorf("show product: %w", domain.ErrInvalidArgument)
	}
	p, err := a.catalog.GetProduct(ctx, productID)
	if err != nil {
		return ActionResult{}, fmt.Errorf("get product %s: %w", productID, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\nPrice: %s", p.Name, p.Description, formatPrice(p.Price))
	if !p.InStock {
		b.WriteString("\n(currently out of stock)")
	}

	var rows [][]model.Button
	if p.HasVariations() {
		for _, v := range p.Variations {
			rows = append(rows, []model.Button{{
				Label:   fmt.Sprintf("%s - %s", v.Label, formatPrice(v.Price)),
				ReplyID: "variant_" + v.ID,
			}})
		}
	} else if p.InStock {
		rows = append(rows, []model.Button{
			{Label: "Qty 1", ReplyID: "qty_1"},
			{Label: "Qty 2", ReplyID: "qty_2"},
			{Label: "Qty 3", ReplyID: "qty_3"},
		})
	}
	rows = append(rows, []model.Button{{Label: "Back", ReplyID: "catalog"}, {Label: "Cart", ReplyID: "cart"}})

	res := one(msg(req.CustomerID, b.String(), rows...))
	// Entering a product resets any previously chosen variation.
	res.ContextPatch = map[string]string{
		model.SlotProductID:   p.ID,
		model.SlotVariationID: "",
	}
	return res, nil
}

func (a *CommerceActions) PromptQuantity(ctx context.Context, req ActionRequest) (ActionResult, error) {
	productID := req.Args[model.SlotProductID]
	if productID == "" {
		return ActionResult{}, fmt.Errorf("prompt quantity: %w", domain.ErrInvalidArgument)
	}
	res := one(msg(req.CustomerID,
		"How many would you like?",
		[]model.Button{
			{Label: "1", ReplyID: "qty_1"},
			{Label: "2", ReplyID: "qty_2"},
			{Label: "3", ReplyID: "qty_3"},
		},
		[]model.Button{{Label: "5", ReplyID: "qty_5"}, {Label: "Cancel", ReplyID: "cancel"}},
	))
	if v := req.Args[model.SlotVariationID]; v != "" {
		res.ContextPatch = map[string]string{model.SlotVariationID: v}
	}
	return res, nil
}

// SetCartQuantity expresses "add to cart" as an absolute set so a replayed
// execution cannot double-add.
func (a *CommerceActions) SetCartQuantity(ctx context.Context, req ActionRequest) (ActionResult, error) {
	productID := req.Args[model.SlotProductID]
	if productID == "" {
		return ActionResult{}, fmt.Errorf("set quantity: %w", domain.ErrInvalidArgument)
	}
	qty := 1
	if q := req.Args[model.SlotQuantity]; q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			return ActionResult{}, fmt.Errorf("set quantity %q: %w", q, domain.ErrInvalidArgument)
		}
		qty = n
	}

	p, err := a.catalog.GetProduct(ctx, productID)
	if err != nil {
		return ActionResult{}, fmt.Errorf("get product %s: %w", productID, err)
	}
	if qty > 0 && !p.InStock {
		return one(msg(req.CustomerID, fmt.Sprintf("%s is out of stock right now.", p.Name))), nil
	}

	variationID := req.Args[model.SlotVariationID]
	if err := a.cart.SetQuantity(ctx, req.CustomerID, productID, variationID, qty); err != nil {
		return ActionResult{}, fmt.Errorf("set cart quantity: %w", err)
	}

	// The chosen variation and quantity are consumed; clear them.
	return ActionResult{ContextPatch: map[string]string{
		model.SlotVariationID: "",
		model.SlotQuantity:    "",
	}}, nil
}

func (a *CommerceActions) RemoveCartItem(ctx context.Context, req ActionRequest) (ActionResult, error) {
	productID := req.Args[model.SlotProductID]
	if productID == "" {
		return ActionResult{}, fmt.Errorf("remove item: %w", domain.ErrInvalidArgument)
	}
	if err := a.cart.SetQuantity(ctx, req.CustomerID, productID, "", 0); err != nil {
		return ActionResult{}, fmt.Errorf("remove cart item: %w", err)
	}
	return ActionResult{}, nil
}

func (a *CommerceActions) ShowCart(ctx context.Context, req ActionRequest) (ActionResult, error) {
	cart, err := a.cart.Get(ctx, req.CustomerID)
	if err != nil {
		return ActionResult{}, fmt.Errorf("get cart: %w", err)
	}
	if cart.Empty() {
		return one(msg(req.CustomerID,
			"Your cart is empty.",
			[]model.Button{{Label: "Browse catalog", ReplyID: "catalog"}},
		)), nil
	}

	var b strings.Builder
	b.WriteString("Your cart:\n")
	var rows [][]model.Button
	for _, it := range cart.Items {
		name := it.ProductID
		if p, err := a.catalog.GetProduct(ctx, it.ProductID); err == nil {
			name = p.Name
		}
		fmt.Fprintf(&b, "- %dx %s @ %s\n", it.Quantity, name, formatPrice(it.UnitPrice))
		rows = append(rows, []model.Button{{
			Label:   "Remove " + name,
			ReplyID: "remove_" + it.ProductID,
		}})
	}
	fmt.Fprintf(&b, "Total: %s", formatPrice(cart.Total()))
	rows = append(rows,
		[]model.Button{{Label: "Checkout", ReplyID: "checkout"}},
		[]model.Button{{Label: "Keep shopping", ReplyID: "catalog"}},
	)
	return one(msg(req.CustomerID, b.String(), rows...)), nil
}

func (a *CommerceActions) BeginCheckout(ctx context.Context, req ActionRequest) (ActionResult, error) {
	cart, err := a.cart.Get(ctx, req.CustomerID)
	if err != nil {
		return ActionResult{}, fmt.Errorf("get cart: %w", err)
	}
	if cart.Empty() {
		return one(msg(req.CustomerID,
			"Your cart is empty. Add something before checking out.",
			[]model.Button{{Label: "Browse catalog", ReplyID: "catalog"}},
		)), nil
	}
	return one(msg(req.CustomerID,
		fmt.Sprintf("Total is %s. Please send your delivery address.", formatPrice(cart.Total())),
		[]model.Button{{Label: "Cancel", ReplyID: "cancel"}},
	)), nil
}

func (a *CommerceActions) SaveAddress(ctx context.Context, req ActionRequest) (ActionResult, error) {
	address := strings.TrimSpace(req.Args[model.SlotAddress])
	if address == "" {
		address = strings.TrimSpace(req.Args[model.SlotText])
	}
	if address == "" {
		return ActionResult{}, fmt.Errorf("save address: %w", domain.ErrInvalidArgument)
	}
	return ActionResult{ContextPatch: map[string]string{model.SlotAddress: address}}, nil
}

func (a *CommerceActions) ShowPaymentOptions(ctx context.Context, req ActionRequest) (ActionResult, error) {
	return one(msg(req.CustomerID,
		"How would you like to pay?",
		[]model.Button{
			{Label: "Cash on delivery", ReplyID: "pay_cod"},
			{Label: "Card link", ReplyID: "pay_card"},
		},
	)), nil
}

func (a *CommerceActions) SavePaymentMethod(ctx context.Context, req ActionRequest) (ActionResult, error) {
	method := req.Args[model.SlotPayMethod]
	if method == "" {
		return ActionResult{}, fmt.Errorf("save payment method: %w", domain.ErrInvalidArgument)
	}
	res := one(msg(req.CustomerID,
		fmt.Sprintf("Payment method: %s. Place the order?", method),
		[]model.Button{
			{Label: "Confirm order", ReplyID: "confirm"},
			{Label: "Cancel", ReplyID: "cancel"},
		},
	))
	res.ContextPatch = map[string]string{model.SlotPayMethod: method}
	return res, nil
}

func (a *CommerceActions) PlaceOrder(ctx context.Context, req ActionRequest) (ActionResult, error) {
	address := req.Args[model.SlotAddress]
	method := req.Args[model.SlotPayMethod]
	if address == "" || method == "" {
		return ActionResult{}, fmt.Errorf("place order missing checkout data: %w", domain.ErrInvalidArgument)
	}
	cart, err := a.cart.Get(ctx, req.CustomerID)
	if err != nil {
		return ActionResult{}, fmt.Errorf("get cart: %w", err)
	}
	if cart.Empty() {
		return ActionResult{}, fmt.Errorf("place order on empty cart: %w", domain.ErrInvalidArgument)
	}

	orderID, err := a.orders.Place(ctx, req.CustomerID, cart, address, method)
	if err != nil {
		return ActionResult{}, fmt.Errorf("place order: %w", err)
	}
	if err := a.cart.Clear(ctx, req.CustomerID); err != nil {
		a.log.Warn().Err(err).Str("customer_id", req.CustomerID).Msg("cart clear after order failed")
	}

	return ActionResult{ContextPatch: map[string]string{
		"order_id":            orderID,
		model.SlotAddress:     "",
		model.SlotPayMethod:   "",
		model.SlotProductID:   "",
		model.SlotVariationID: "",
		model.SlotCategoryID:  "",
	}}, nil
}

func (a *CommerceActions) ShowOrderStatus(ctx context.Context, req ActionRequest) (ActionResult, error) {
	orderID := req.Args["order_id"]
	text := "Your order is confirmed. We'll message you when it ships."
	if orderID != "" {
		text = fmt.Sprintf("Order %s is confirmed. We'll message you when it ships.", orderID)
	}
	return one(msg(req.CustomerID, text,
		[]model.Button{{Label: "Back to menu", ReplyID: "menu"}},
	)), nil
}

func (a *CommerceActions) HandoffSupport(ctx context.Context, req ActionRequest) (ActionResult, error) {
	return one(msg(req.CustomerID,
		"You're in line for a human agent. Send \"menu\" anytime to return to the shop.",
	)), nil
}

func (a *CommerceActions) ShowUnknownHelp(ctx context.Context, req ActionRequest) (ActionResult, error) {
	return one(msg(req.CustomerID,
		"Sorry, I didn't catch that. Try one of these:",
		[]model.Button{{Label: "Browse catalog", ReplyID: "catalog"}},
		[]model.Button{{Label: "View cart", ReplyID: "cart"}},
		[]model.Button{{Label: "Talk to support", ReplyID: "support"}},
	)), nil
}
