package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kvasir-labs/parlor/internal/store"
)

func (s *Store) cartID(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM carts WHERE user_id = ?`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		result, insertErr := s.db.ExecContext(ctx,
			`INSERT INTO carts (user_id) VALUES (?)`, userID)
		if insertErr != nil {
			return 0, fmt.Errorf("insert cart: %w", insertErr)
		}
		return result.LastInsertId()
	}
	if err != nil {
		return 0, fmt.Errorf("query cart: %w", err)
	}
	return id, nil
}

// GetOrCreateCart returns the user's cart with items, creating it on
// first use.
func (s *Store) GetOrCreateCart(ctx context.Context, userID int64) (*store.Cart, error) {
	cartID, err := s.cartID(ctx, userID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT i.id, i.cart_id, i.product_id, i.quantity, ` + productColumns + `
		FROM cart_items i
		JOIN products p ON p.id = i.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE i.cart_id = ?
		ORDER BY i.id
	`
	rows, err := s.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	cart := &store.Cart{ID: cartID, UserID: userID}
	for rows.Next() {
		var item store.CartItem
		var p store.Product
		var cat store.Category
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.Quantity,
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Price,
			&p.Stock,
			&p.ImageURL,
			&p.CategoryID,
			&cat.ID,
			&cat.Name,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		p.Category = &cat
		item.Product = &p
		cart.Items = append(cart.Items, &item)
	}
	return cart, rows.Err()
}

// AddCartItem adds a product to the user's cart, merging with an
// existing line for the same product.
func (s *Store) AddCartItem(ctx context.Context, userID, productID int64, quantity int) (*store.CartItem, error) {
	cartID, err := s.cartID(ctx, userID)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cart_items (cart_id, product_id, quantity)
		 VALUES (?, ?, ?)
		 ON CONFLICT (cart_id, product_id)
		 DO UPDATE SET quantity = quantity + excluded.quantity`,
		cartID, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}

	return s.getCartItemByProduct(ctx, cartID, productID)
}

func (s *Store) getCartItemByProduct(ctx context.Context, cartID, productID int64) (*store.CartItem, error) {
	var item store.CartItem
	err := s.db.QueryRowContext(ctx,
		`SELECT id, cart_id, product_id, quantity FROM cart_items
		 WHERE cart_id = ? AND product_id = ?`,
		cartID, productID).Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query cart item: %w", err)
	}

	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	item.Product = product
	return &item, nil
}

// UpdateCartItemQuantity sets the quantity of a cart line.
func (s *Store) UpdateCartItemQuantity(ctx context.Context, userID, itemID int64, quantity int) (*store.CartItem, error) {
	cartID, err := s.cartID(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = ? WHERE id = ? AND cart_id = ?`,
		quantity, itemID, cartID)
	if err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	var productID int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT product_id FROM cart_items WHERE id = ?`, itemID).Scan(&productID); err != nil {
		return nil, fmt.Errorf("query cart item: %w", err)
	}
	return s.getCartItemByProduct(ctx, cartID, productID)
}

// RemoveCartItem deletes a cart line.
func (s *Store) RemoveCartItem(ctx context.Context, userID, itemID int64) error {
	cartID, err := s.cartID(ctx, userID)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = ? AND cart_id = ?`, itemID, cartID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
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

// ClearCart removes every line from the user's cart.
func (s *Store) ClearCart(ctx context.Context, userID int64) error {
	cartID, err := s.cartID(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE cart_id = ?`, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
