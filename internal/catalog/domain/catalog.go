package domain

import "errors"

type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
	// ProductCount counts active products; filled by listings only.
	ProductCount int `json:"productCount"`
}

// Product is the priced catalog entry orders are built from. Price is in
// minor currency units.
type Product struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	CategoryID string `json:"categoryId"`
	Price      int64  `json:"price"`
	Active     bool   `json:"isActive"`
}

var (
	ErrNameRequired  = errors.New("name is required")
	ErrNegativePrice = errors.New("price must not be negative")
)

func (c Category) Validate() error {
	if c.Name == "" {
		return ErrNameRequired
	}
	return nil
}

func (p Product) Validate() error {
	switch {
	case p.Name == "":
		return ErrNameRequired
	case p.Price < 0:
		return ErrNegativePrice
	}
	return nil
}
