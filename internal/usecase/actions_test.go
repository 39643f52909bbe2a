package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/infra/adapters/shop"
)

func demoActions() (*CommerceActions, *shop.MemoryShop) {
	log := zerolog.Nop()
	s := shop.NewDemoShop()
	return NewCommerceActions(s, s, s, &log), s
}

func req(args map[string]string) ActionRequest {
	if args == nil {
		args = map[string]string{}
	}
	return ActionRequest{CustomerID: "15550001111", Args: args}
}

func TestRegisterAllCoversEveryTableAction(t *testing.T) {
	log := zerolog.Nop()
	a, _ := demoActions()
	r := NewActionRegistry(nil, &log)
	a.RegisterAll(r)
	r.Freeze()

	// Every action the transition table can emit must execute without panic.
	names := []model.ActionName{
		model.ActionShowMainMenu, model.ActionShowCategories, model.ActionShowCart,
		model.ActionBeginCheckout, model.ActionShowPayOptions, model.ActionShowOrderStatus,
		model.ActionHandoffSupport, model.ActionShowUnknownHelp,
	}
	for _, n := range names {
		res := r.Execute(context.Background(), n, req(nil))
		if !res.OK {
			t.Fatalf("action %s failed on demo data", n)
		}
	}
}

func TestShowCategoriesButtons(t *testing.T) {
	a, _ := demoActions()
	res, err := a.ShowCategories(context.Background(), req(nil))
	if err != nil {
		t.Fatalf("ShowCategories: %v", err)
	}
	m := res.Messages[0]
	if len(m.Buttons) != 2 {
		t.Fatalf("expected 2 category buttons, got %d", len(m.Buttons))
	}
	if got := m.Buttons[0][0].ReplyID; !strings.HasPrefix(got, "category_") {
		t.Fatalf("category button must use the structured grammar, got %q", got)
	}
}

func TestShowCategoryPatchesContext(t *testing.T) {
	a, _ := demoActions()
	res, err := a.ShowCategory(context.Background(), req(map[string]string{model.SlotCategoryID: "tea"}))
	if err != nil {
		t.Fatalf("ShowCategory: %v", err)
	}
	if res.ContextPatch[model.SlotCategoryID] != "tea" {
		t.Fatalf("expected category patch, got %+v", res.ContextPatch)
	}
	var found bool
	for _, row := range res.Messages[0].Buttons {
		if row[0].ReplyID == "product_sencha" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected product_sencha button")
	}
}

func TestShowProductVariantsVsQuantities(t *testing.T) {
	a, _ := demoActions()

	res, err := a.ShowProduct(context.Background(), req(map[string]string{model.SlotProductID: "filter-blend"}))
	if err != nil {
		t.Fatalf("ShowProduct: %v", err)
	}
	if got := res.Messages[0].Buttons[0][0].ReplyID; !strings.HasPrefix(got, "variant_") {
		t.Fatalf("variated product must offer variants first, got %q", got)
	}
	if res.ContextPatch[model.SlotVariationID] != "" {
		t.Fatalf("entering a product must clear the chosen variation: %+v", res.ContextPatch)
	}

	res, err = a.ShowProduct(context.Background(), req(map[string]string{model.SlotProductID: "sencha"}))
	if err != nil {
		t.Fatalf("ShowProduct: %v", err)
	}
	if got := res.Messages[0].Buttons[0][0].ReplyID; got != "qty_1" {
		t.Fatalf("simple product must offer quantities, got %q", got)
	}

	// Out-of-stock product shows no quantity row.
	res, err = a.ShowProduct(context.Background(), req(map[string]string{model.SlotProductID: "matcha"}))
	if err != nil {
		t.Fatalf("ShowProduct: %v", err)
	}
	if !strings.Contains(res.Messages[0].Text, "out of stock") {
		t.Fatalf("expected stock notice, got %q", res.Messages[0].Text)
	}
	for _, row := range res.Messages[0].Buttons {
		for _, b := range row {
			if strings.HasPrefix(b.ReplyID, "qty_") {
				t.Fatal("out-of-stock product must not offer quantities")
			}
		}
	}
}

func TestSetCartQuantity(t *testing.T) {
	a, s := demoActions()
	ctx := context.Background()

	res, err := a.SetCartQuantity(ctx, req(map[string]string{
		model.SlotProductID: "sencha",
		model.SlotQuantity:  "2",
	}))
	if err != nil {
		t.Fatalf("SetCartQuantity: %v", err)
	}
	if res.ContextPatch[model.SlotQuantity] != "" || res.ContextPatch[model.SlotVariationID] != "" {
		t.Fatalf("consumed slots must be cleared, got %+v", res.ContextPatch)
	}

	cart, _ := s.Get(ctx, "15550001111")
	if it := cart.Find("sencha", ""); it == nil || it.Quantity != 2 {
		t.Fatalf("cart not updated: %+v", cart.Items)
	}

	// Default quantity is 1.
	if _, err := a.SetCartQuantity(ctx, req(map[string]string{model.SlotProductID: "espresso-beans"})); err != nil {
		t.Fatalf("SetCartQuantity default: %v", err)
	}
	cart, _ = s.Get(ctx, "15550001111")
	if it := cart.Find("espresso-beans", ""); it == nil || it.Quantity != 1 {
		t.Fatalf("default quantity not applied: %+v", cart.Items)
	}

	// Out of stock is a polite message, not an error.
	res, err = a.SetCartQuantity(ctx, req(map[string]string{model.SlotProductID: "matcha"}))
	if err != nil {
		t.Fatalf("SetCartQuantity out of stock: %v", err)
	}
	if len(res.Messages) != 1 || !strings.Contains(res.Messages[0].Text, "out of stock") {
		t.Fatalf("expected out-of-stock message, got %+v", res.Messages)
	}

	if _, err := a.SetCartQuantity(ctx, req(map[string]string{model.SlotProductID: "sencha", model.SlotQuantity: "-1"})); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("negative quantity: expected ErrInvalidArgument, got %v", err)
	}
}

func TestShowCartAndRemove(t *testing.T) {
	a, _ := demoActions()
	ctx := context.Background()

	res, err := a.ShowCart(ctx, req(nil))
	if err != nil {
		t.Fatalf("ShowCart empty: %v", err)
	}
	if !strings.Contains(res.Messages[0].Text, "empty") {
		t.Fatalf("expected empty-cart message, got %q", res.Messages[0].Text)
	}

	if _, err := a.SetCartQuantity(ctx, req(map[string]string{model.SlotProductID: "sencha", model.SlotQuantity: "2"})); err != nil {
		t.Fatal(err)
	}
	res, err = a.ShowCart(ctx, req(nil))
	if err != nil {
		t.Fatalf("ShowCart: %v", err)
	}
	if !strings.Contains(res.Messages[0].Text, "Total: 19.00") {
		t.Fatalf("expected total line, got %q", res.Messages[0].Text)
	}

	if _, err := a.RemoveCartItem(ctx, req(map[string]string{model.SlotProductID: "sencha"})); err != nil {
		t.Fatalf("RemoveCartItem: %v", err)
	}
	res, _ = a.ShowCart(ctx, req(nil))
	if !strings.Contains(res.Messages[0].Text, "empty") {
		t.Fatal("cart should be empty after removal")
	}
}

func TestCheckoutFlow(t *testing.T) {
	a, s := demoActions()
	ctx := context.Background()

	// Checkout on an empty cart redirects instead of proceeding.
	res, err := a.BeginCheckout(ctx, req(nil))
	if err != nil {
		t.Fatalf("BeginCheckout empty: %v", err)
	}
	if !strings.Contains(res.Messages[0].Text, "empty") {
		t.Fatalf("expected empty-cart redirect, got %q", res.Messages[0].Text)
	}

	if _, err := a.SetCartQuantity(ctx, req(map[string]string{model.SlotProductID: "sencha", model.SlotQuantity: "1"})); err != nil {
		t.Fatal(err)
	}

	res, err = a.SaveAddress(ctx, req(map[string]string{model.SlotText: " 10 Main St "}))
	if err != nil {
		t.Fatalf("SaveAddress: %v", err)
	}
	if res.ContextPatch[model.SlotAddress] != "10 Main St" {
		t.Fatalf("expected trimmed address patch, got %+v", res.ContextPatch)
	}
	if _, err := a.SaveAddress(ctx, req(nil)); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("blank address: expected ErrInvalidArgument, got %v", err)
	}

	res, err = a.SavePaymentMethod(ctx, req(map[string]string{model.SlotPayMethod: "cod"}))
	if err != nil {
		t.Fatalf("SavePaymentMethod: %v", err)
	}
	if res.ContextPatch[model.SlotPayMethod] != "cod" {
		t.Fatalf("expected payment patch, got %+v", res.ContextPatch)
	}

	// Order requires both address and method.
	if _, err := a.PlaceOrder(ctx, req(map[string]string{model.SlotAddress: "10 Main St"})); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("missing method: expected ErrInvalidArgument, got %v", err)
	}

	res, err = a.PlaceOrder(ctx, req(map[string]string{
		model.SlotAddress:   "10 Main St",
		model.SlotPayMethod: "cod",
	}))
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if res.ContextPatch["order_id"] == "" {
		t.Fatalf("expected order id in patch, got %+v", res.ContextPatch)
	}
	if res.ContextPatch[model.SlotAddress] != "" || res.ContextPatch[model.SlotPayMethod] != "" {
		t.Fatalf("checkout slots must be cleared after order, got %+v", res.ContextPatch)
	}
	if s.OrderCount() != 1 {
		t.Fatalf("expected 1 order, got %d", s.OrderCount())
	}
	cart, _ := s.Get(ctx, "15550001111")
	if !cart.Empty() {
		t.Fatal("cart must be cleared after order")
	}
}

type failingCatalog struct{}

func (failingCatalog) ListCategories(ctx context.Context) ([]model.Category, error) {
	return nil, errors.New("catalog backend down")
}
func (failingCatalog) ListProducts(ctx context.Context, categoryID string) ([]model.Product, error) {
	return nil, errors.New("catalog backend down")
}
func (failingCatalog) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	return nil, errors.New("catalog backend down")
}

func TestCatalogOutageSurfacesAsError(t *testing.T) {
	log := zerolog.Nop()
	s := shop.NewDemoShop()
	a := NewCommerceActions(failingCatalog{}, s, s, &log)

	if _, err := a.ShowCategories(context.Background(), req(nil)); err == nil {
		t.Fatal("expected error from failing catalog")
	}
}
