package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/safar/go-order-store/internal/database"
	"github.com/safar/go-order-store/internal/models"
)

const maxProductNameLength = 200

func validateProduct(name string, price decimal.Decimal, stock int) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", database.ErrValidation)
	}
	if len(name) > maxProductNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", database.ErrValidation, maxProductNameLength)
	}
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", database.ErrValidation)
	}
	if stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", database.ErrValidation)
	}
	return nil
}

func CreateProduct(ctx context.Context, db *sql.DB, name string, price decimal.Decimal, stock int, createdBy string) (*models.Product, error) {
	if err := validateProduct(name, price, stock); err != nil {
		return nil, err
	}

	product := &models.Product{}

	query := `
		INSERT INTO products (id, name, price, stock, created_by, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW(), 1)
		RETURNING id, name, price, stock, created_by, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query, uuid.NewString(), name, price, stock, createdBy).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Stock,
		&product.CreatedBy,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func GetProduct(ctx context.Context, db *sql.DB, id string) (*models.Product, error) {
	product := &models.Product{}

	query := `
		SELECT id, name, price, stock, created_by, created_at, updated_at, version
		FROM products
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Stock,
		&product.CreatedBy,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

func UpdateProduct(ctx context.Context, db *sql.DB, id, name string, price decimal.Decimal, stock int, updatedBy string) (*models.Product, error) {
	if err := validateProduct(name, price, stock); err != nil {
		return nil, err
	}

	product := &models.Product{}

	query := `
		UPDATE products
		SET name = $1, price = $2, stock = $3, created_by = $4,
		    updated_at = NOW(), version = version + 1
		WHERE id = $5
		RETURNING id, name, price, stock, created_by, created_at, updated_at, version`

	err := db.QueryRowContext(ctx, query, name, price, stock, updatedBy, id).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Stock,
		&product.CreatedBy,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

func DeleteProduct(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

func ListProducts(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT id, name, price, stock, created_by, created_at, updated_at, version
		FROM products
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var product models.Product
		err := rows.Scan(
			&product.ID,
			&product.Name,
			&product.Price,
			&product.Stock,
			&product.CreatedBy,
			&product.CreatedAt,
			&product.UpdatedAt,
			&product.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return NewOffsetPage(products, total, page, pageSize), nil
}

// TxProducts adapts a transaction to inventory.ProductStore. Load takes a
// row lock so concurrent reconciliations against the same product serialize;
// AdjustStock is the guarded conditional update that is the only stock
// mutation path in the system.
type TxProducts struct {
	tx *sql.Tx
}

func NewTxProducts(tx *sql.Tx) *TxProducts {
	return &TxProducts{tx: tx}
}

func (s *TxProducts) Load(ctx context.Context, id string) (*models.Product, error) {
	product := &models.Product{}

	query := `
		SELECT id, name, price, stock, created_by, created_at, updated_at, version
		FROM products
		WHERE id = $1
		FOR UPDATE`

	err := s.tx.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Stock,
		&product.CreatedBy,
		&product.CreatedAt,
		&product.UpdatedAt,
		&product.Version,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("lock product: %w", err)
	}

	return product, nil
}

func (s *TxProducts) AdjustStock(ctx context.Context, id string, delta int) error {
	result, err := s.tx.ExecContext(ctx,
		`UPDATE products
		 SET stock = stock + $1,
		     updated_at = NOW(),
		     version = version + 1
		 WHERE id = $2
		   AND stock + $1 >= 0`,
		delta, id)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// A non-negative delta can never trip the stock guard, so zero rows
		// means the product row is gone.
		if delta >= 0 {
			return database.ErrProductNotFound
		}
		return database.ErrInsufficientStock
	}

	return nil
}
