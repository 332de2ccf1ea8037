package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kvasir-labs/parlor/internal/store"
)

// CreateCategory creates a category.
func (s *Store) CreateCategory(ctx context.Context, name string) (*store.Category, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return &store.Category{ID: id, Name: name}, nil
}

// ListCategories lists categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]*store.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []*store.Category
	for rows.Next() {
		var cat store.Category
		if err := rows.Scan(&cat.ID, &cat.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, &cat)
	}
	return categories, rows.Err()
}

const productColumns = `
	p.id, p.name, p.description, p.price, p.stock, p.image_url, p.category_id,
	c.id, c.name
`

func scanProduct(row interface{ Scan(...any) error }) (*store.Product, error) {
	var p store.Product
	var cat store.Category
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.ImageURL,
		&p.CategoryID,
		&cat.ID,
		&cat.Name,
	)
	if err != nil {
		return nil, err
	}
	p.Category = &cat
	return &p, nil
}

// CreateProduct creates a product and returns it with its ID.
func (s *Store) CreateProduct(ctx context.Context, p *store.Product) (*store.Product, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO products (name, description, price, stock, image_url, category_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Price, p.Stock, p.ImageURL, p.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetProduct(ctx, id)
}

// GetProduct retrieves a product with its category.
func (s *Store) GetProduct(ctx context.Context, id int64) (*store.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = ?
	`
	product, err := scanProduct(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query product: %w", err)
	}
	return product, nil
}

// ListProducts lists products with categories, ordered by name.
func (s *Store) ListProducts(ctx context.Context) ([]*store.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		ORDER BY p.name
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []*store.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

// UpdateProduct overwrites a product's mutable fields.
func (s *Store) UpdateProduct(ctx context.Context, p *store.Product) (*store.Product, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE products
		 SET name = ?, description = ?, price = ?, stock = ?, image_url = ?, category_id = ?
		 WHERE id = ?`,
		p.Name, p.Description, p.Price, p.Stock, p.ImageURL, p.CategoryID, p.ID)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetProduct(ctx, p.ID)
}

// DeleteProduct removes a product by ID.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
