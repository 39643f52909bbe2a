package shop

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"commerce-chat-bot/internal/domain"
	"commerce-chat-bot/internal/domain/model"
	"commerce-chat-bot/internal/domain/ports/adapter"
)

var (
	_ adapter.CatalogService = (*MemoryShop)(nil)
	_ adapter.CartService    = (*MemoryShop)(nil)
	_ adapter.OrderService   = (*MemoryShop)(nil)
)

// MemoryShop backs the shop ports with in-process maps. It runs the bot
// without a storefront backend (dev mode, demo console, unit tests).
type MemoryShop struct {
	mu         sync.RWMutex
	categories []model.Category
	products   map[string]*model.Product
	carts      map[string]*model.Cart
	orders     map[string]memoryOrder
}

type memoryOrder struct {
	CustomerID    string
	Items         []model.CartItem
	Address       string
	PaymentMethod string
}

func NewMemoryShop() *MemoryShop {
	return &MemoryShop{
		products: make(map[string]*model.Product),
		carts:    make(map[string]*model.Cart),
		orders:   make(map[string]memoryOrder),
	}
}

// NewDemoShop returns a MemoryShop preloaded with a small catalog.
func NewDemoShop() *MemoryShop {
	s := NewMemoryShop()
	s.AddCategory(model.Category{ID: "coffee", Name: "Coffee"})
	s.AddCategory(model.Category{ID: "tea", Name: "Tea"})
	s.AddProduct(model.Product{
		ID: "espresso-beans", CategoryID: "coffee", Name: "Espresso Beans 1kg",
		Description: "Dark roast, whole bean.", Price: 1850, InStock: true,
	})
	s.AddProduct(model.Product{
		ID: "filter-blend", CategoryID: "coffee", Name: "Filter Blend 500g",
		Price: 1200, InStock: true,
		Variations: []model.Variation{
			{ID: "whole", Label: "Whole bean", Price: 1200},
			{ID: "ground", Label: "Ground", Price: 1250},
		},
	})
	s.AddProduct(model.Product{
		ID: "sencha", CategoryID: "tea", Name: "Sencha 100g",
		Price: 950, InStock: true,
	})
	s.AddProduct(model.Product{
		ID: "matcha", CategoryID: "tea", Name: "Ceremonial Matcha 30g",
		Price: 2400, InStock: false,
	})
	return s
}

func (s *MemoryShop) AddCategory(c model.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, c)
}

func (s *MemoryShop) AddProduct(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.products[p.ID] = &cp
}

func (s *MemoryShop) ListCategories(ctx context.Context) ([]model.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Category, len(s.categories))
	copy(out, s.categories)
	return out, nil
}

func (s *MemoryShop) ListProducts(ctx context.Context, categoryID string) ([]model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Product
	for _, c := range s.categories {
		if c.ID != categoryID {
			continue
		}
		for _, p := range s.products {
			if p.CategoryID == categoryID {
				out = append(out, *p)
			}
		}
		return out, nil
	}
	return nil, domain.ErrNotFound
}

func (s *MemoryShop) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryShop) Get(ctx context.Context, customerID string) (*model.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carts[customerID]
	if !ok {
		return &model.Cart{CustomerID: customerID}, nil
	}
	cp := model.Cart{CustomerID: customerID, Items: make([]model.CartItem, len(c.Items))}
	copy(cp.Items, c.Items)
	return &cp, nil
}

func (s *MemoryShop) SetQuantity(ctx context.Context, customerID, productID, variationID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	price := p.Price
	if variationID != "" {
		found := false
		for _, v := range p.Variations {
			if v.ID == variationID {
				price = v.Price
				found = true
				break
			}
		}
		if !found {
			return domain.ErrNotFound
		}
	}

	c, ok := s.carts[customerID]
	if !ok {
		c = &model.Cart{CustomerID: customerID}
		s.carts[customerID] = c
	}

	if it := c.Find(productID, variationID); it != nil {
		if qty == 0 {
			kept := c.Items[:0]
			for _, item := range c.Items {
				if item.ProductID != productID || item.VariationID != variationID {
					kept = append(kept, item)
				}
			}
			c.Items = kept
			return nil
		}
		it.Quantity = qty
		return nil
	}
	if qty == 0 {
		return nil
	}
	c.Items = append(c.Items, model.CartItem{
		ProductID:   productID,
		VariationID: variationID,
		Quantity:    qty,
		UnitPrice:   price,
	})
	return nil
}

func (s *MemoryShop) Clear(ctx context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, customerID)
	return nil
}

func (s *MemoryShop) Place(ctx context.Context, customerID string, cart *model.Cart, address, payMethod string) (string, error) {
	if cart == nil || cart.Empty() {
		return "", fmt.Errorf("place order: %w", domain.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := "ord-" + uuid.NewString()[:8]
	items := make([]model.CartItem, len(cart.Items))
	copy(items, cart.Items)
	s.orders[id] = memoryOrder{
		CustomerID:    customerID,
		Items:         items,
		Address:       address,
		PaymentMethod: payMethod,
	}
	return id, nil
}

// OrderCount is a test hook.
func (s *MemoryShop) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
