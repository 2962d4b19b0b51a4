package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, name, product_type, price, cost, stock_quantity, min_stock, active, created_at, updated_at`

func scanProduct(row interface{ Scan(dest ...any) error }) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.ProductType, &p.Price, &p.Cost,
		&p.StockQuantity, &p.MinStock, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const createProduct = `
INSERT INTO products (name, product_type, price, cost, stock_quantity, min_stock, active)
VALUES ($1, $2, $3, $4, $5, $6, true)
RETURNING ` + productColumns

type CreateProductParams struct {
	Name          string
	ProductType   string
	Price         pgtype.Numeric
	Cost          pgtype.Numeric
	StockQuantity pgtype.Numeric
	MinStock      pgtype.Numeric
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct,
		arg.Name, arg.ProductType, arg.Price, arg.Cost, arg.StockQuantity, arg.MinStock)
	return scanProduct(row)
}

const getProduct = `
SELECT ` + productColumns + ` FROM products WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const listProducts = `
SELECT ` + productColumns + ` FROM products
WHERE ($1::text IS NULL OR product_type = $1) AND active
ORDER BY name
`

func (q *Queries) ListProducts(ctx context.Context, productType pgtype.Text) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts, productType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

const updateProduct = `
UPDATE products SET name = $2, price = $3, cost = $4, min_stock = $5, active = $6, updated_at = now()
WHERE id = $1
RETURNING ` + productColumns

type UpdateProductParams struct {
	ID       uuid.UUID
	Name     string
	Price    pgtype.Numeric
	Cost     pgtype.Numeric
	MinStock pgtype.Numeric
	Active   bool
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct,
		arg.ID, arg.Name, arg.Price, arg.Cost, arg.MinStock, arg.Active)
	return scanProduct(row)
}

const adjustProductStock = `
UPDATE products SET stock_quantity = stock_quantity + $2, updated_at = now()
WHERE id = $1
RETURNING stock_quantity
`

// AdjustProductStock applies a signed delta to the stored quantity and
// returns the new value.
func (q *Queries) AdjustProductStock(ctx context.Context, id uuid.UUID, delta pgtype.Numeric) (pgtype.Numeric, error) {
	var qty pgtype.Numeric
	err := q.db.QueryRow(ctx, adjustProductStock, id, delta).Scan(&qty)
	return qty, err
}

const getProductStock = `
SELECT stock_quantity FROM products WHERE id = $1
`

func (q *Queries) GetProductStock(ctx context.Context, id uuid.UUID) (pgtype.Numeric, error) {
	var qty pgtype.Numeric
	err := q.db.QueryRow(ctx, getProductStock, id).Scan(&qty)
	return qty, err
}

const listLowStockProducts = `
SELECT ` + productColumns + ` FROM products
WHERE active AND product_type <> 'MANUFACTURED' AND stock_quantity < min_stock
ORDER BY name
`

func (q *Queries) ListLowStockProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listLowStockProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// --- BOM components ---

const createProductComponent = `
INSERT INTO product_components (product_id, component_id, quantity)
VALUES ($1, $2, $3)
RETURNING id, product_id, component_id, quantity
`

type CreateProductComponentParams struct {
	ProductID   uuid.UUID
	ComponentID uuid.UUID
	Quantity    pgtype.Numeric
}

func (q *Queries) CreateProductComponent(ctx context.Context, arg CreateProductComponentParams) (ProductComponent, error) {
	var c ProductComponent
	err := q.db.QueryRow(ctx, createProductComponent, arg.ProductID, arg.ComponentID, arg.Quantity).
		Scan(&c.ID, &c.ProductID, &c.ComponentID, &c.Quantity)
	return c, err
}

const listComponentsByProduct = `
SELECT id, product_id, component_id, quantity
FROM product_components WHERE product_id = $1 ORDER BY id
`

func (q *Queries) ListComponentsByProduct(ctx context.Context, productID uuid.UUID) ([]ProductComponent, error) {
	rows, err := q.db.Query(ctx, listComponentsByProduct, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var components []ProductComponent
	for rows.Next() {
		var c ProductComponent
		if err := rows.Scan(&c.ID, &c.ProductID, &c.ComponentID, &c.Quantity); err != nil {
			return nil, err
		}
		components = append(components, c)
	}
	return components, rows.Err()
}

const deleteProductComponent = `
DELETE FROM product_components WHERE id = $1 AND product_id = $2
`

func (q *Queries) DeleteProductComponent(ctx context.Context, id, productID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteProductComponent, id, productID)
	return tag.RowsAffected(), err
}
