package model

// Catalog read models, owned by the external catalog collaborator.

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Variation struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Price int64  `json:"price"`
}

type Product struct {
	ID          string      `json:"id"`
	CategoryID  string      `json:"category_id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Price       int64       `json:"price"` // minor currency units
	InStock     bool        `json:"in_stock"`
	Variations  []Variation `json:"variations,omitempty"`
}

func (p *Product) HasVariations() bool { return len(p.Variations) > 0 }
