package domain

type ProductStatus string

const (
	ProductDraft      ProductStatus = "draft"
	ProductPublished  ProductStatus = "published"
	ProductOutOfStock ProductStatus = "out_of_stock"
	ProductArchived   ProductStatus = "archived"
)

type Product struct {
	ID            string        `db:"id" json:"id"`
	SellerID      string        `db:"seller_id" json:"seller_id"`
	Name          string        `db:"name" json:"name"`
	Description   string        `db:"description" json:"description"`
	Price         float64       `db:"price" json:"price"`
	StockQuantity int           `db:"stock_quantity" json:"stock_quantity"`
	Status        ProductStatus `db:"status" json:"status"`
	CreatedAt     string        `db:"created_at" json:"created_at"`
	UpdatedAt     string        `db:"updated_at" json:"updated_at"`
}
