package model

// Cart is a read model of the external cart collaborator. The core never
// persists it; handlers mutate it through the CartService port.
type Cart struct {
	CustomerID string     `json:"customer_id"`
	Items      []CartItem `json:"items"`
}

type CartItem struct {
	ProductID   string `json:"product_id"`
	VariationID string `json:"variation_id,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"` // minor currency units, price snapshot at add time
}

func (c *Cart) Empty() bool { return len(c.Items) == 0 }

func (c *Cart) Total() int64 {
	var sum int64
	for _, it := range c.Items {
		sum += it.UnitPrice * int64(it.Quantity)
	}
	return sum
}

func (c *Cart) Find(productID, variationID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].VariationID == variationID {
			return &c.Items[i]
		}
	}
	return nil
}
