package domain

// CartLine is a stored cart entry; ProductID is unique within a cart.
type CartLine struct {
	ProductID string `db:"product_id" json:"product_id"`
	Quantity  int    `db:"quantity" json:"quantity"`
}

type Cart struct {
	UserID string     `json:"user_id"`
	Lines  []CartLine `json:"items"`
}

func (c *Cart) Empty() bool { return c == nil || len(c.Lines) == 0 }

// CartProduct is the catalog snapshot joined into a cart view at read time.
type CartProduct struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	SellerID      string  `json:"seller_id"`
	StockQuantity int     `json:"stock_quantity"`
}

type CartItemView struct {
	ProductID string      `json:"product_id"`
	Quantity  int         `json:"quantity"`
	Product   CartProduct `json:"product"`
	ItemTotal float64     `json:"item_total"`
}

type CartView struct {
	Items []CartItemView `json:"items"`
	Total float64        `json:"total"`
}
