package services

import (
	"context"

	"makiti/internal/domain"
)

type CartService struct {
	Carts   CartStore
	Catalog CatalogStore
}

func NewCartService(carts CartStore, catalog CatalogStore) *CartService {
	return &CartService{Carts: carts, Catalog: catalog}
}

func insufficient(p *domain.Product) error {
	return domain.Errorf(domain.ErrCodeInsufficientStock, "insufficient stock for %s (%d available)", p.Name, p.StockQuantity)
}

// Add puts qty units of a product in the cart, merging with an existing line.
// The merged quantity is checked against stock in the same statement that writes it.
func (s *CartService) Add(ctx context.Context, userID, productID string, qty int) error {
	if qty <= 0 {
		return domain.NewError(domain.ErrCodeValidation, "quantity must be positive")
	}
	p, err := s.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if qty > p.StockQuantity {
		return insufficient(p)
	}
	ok, err := s.Carts.AddQuantity(ctx, userID, productID, qty, p.StockQuantity)
	if err != nil {
		return err
	}
	if !ok {
		return insufficient(p)
	}
	return nil
}

// Update sets a line's quantity; qty <= 0 removes the line.
func (s *CartService) Update(ctx context.Context, userID, productID string, qty int) error {
	if qty <= 0 {
		return s.Carts.Remove(ctx, userID, productID)
	}
	p, err := s.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if qty > p.StockQuantity {
		return insufficient(p)
	}
	return s.Carts.SetQuantity(ctx, userID, productID, qty)
}

func (s *CartService) Remove(ctx context.Context, userID, productID string) error {
	return s.Carts.Remove(ctx, userID, productID)
}

func (s *CartService) Clear(ctx context.Context, userID string) error {
	return s.Carts.Clear(ctx, userID)
}

// View joins the stored lines with current catalog data. Lines whose product
// no longer exists are left out of the view but kept in storage.
func (s *CartService) View(ctx context.Context, userID string) (domain.CartView, error) {
	view := domain.CartView{Items: []domain.CartItemView{}}
	cart, err := s.Carts.Get(ctx, userID)
	if err != nil {
		return view, err
	}
	if cart.Empty() {
		return view, nil
	}
	ids := make([]string, len(cart.Lines))
	for i, l := range cart.Lines {
		ids[i] = l.ProductID
	}
	products, err := s.Catalog.GetProducts(ctx, ids)
	if err != nil {
		return view, err
	}
	total := 0.0
	for _, l := range cart.Lines {
		p, ok := products[l.ProductID]
		if !ok {
			continue
		}
		item := domain.CartItemView{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Product: domain.CartProduct{
				ID: p.ID, Name: p.Name, Price: p.Price, SellerID: p.SellerID, StockQuantity: p.StockQuantity,
			},
			ItemTotal: domain.Money(p.Price * float64(l.Quantity)),
		}
		total += item.ItemTotal
		view.Items = append(view.Items, item)
	}
	view.Total = domain.Money(total)
	return view, nil
}
