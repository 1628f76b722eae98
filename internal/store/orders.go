package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/safar/go-order-store/internal/database"
	"github.com/safar/go-order-store/internal/inventory"
	"github.com/safar/go-order-store/internal/models"
)

type CreateOrderRequest struct {
	UserID string
	Lines  []inventory.LineRequest
}

// rowQuerier is satisfied by *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// CreateOrder reserves stock for every requested line and persists the order
// in one serializable transaction, so a failed line leaves no stock mutation
// behind.
func CreateOrder(ctx context.Context, db *sql.DB, req CreateOrderRequest) (*models.Order, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", database.ErrValidation)
	}

	order := &models.Order{ID: uuid.NewString(), UserID: req.UserID}

	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		reconciler := inventory.NewReconciler(NewTxProducts(tx))

		lines, err := reconciler.ReserveForCreate(ctx, req.Lines)
		if err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (id, user_id, created_at, updated_at, version)
			 VALUES ($1, $2, NOW(), NOW(), 1)
			 RETURNING created_at, updated_at, version`,
			order.ID, order.UserID).Scan(&order.CreatedAt, &order.UpdatedAt, &order.Version)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if err := insertOrderLines(ctx, tx, order.ID, lines); err != nil {
			return err
		}

		order.Lines = lines
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.ApplyTotals()
	return order, nil
}

// UpdateOrder replaces the order's line set with the reconciled result of
// the requested lines. Stock adjustment and line replacement commit
// together.
func UpdateOrder(ctx context.Context, db *sql.DB, id string, requested []inventory.LineRequest) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		locked, err := lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}

		existing, err := loadOrderLines(ctx, tx, id)
		if err != nil {
			return err
		}

		reconciler := inventory.NewReconciler(NewTxProducts(tx))
		lines, err := reconciler.ReconcileForUpdate(ctx, existing, requested)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = $1`, id); err != nil {
			return fmt.Errorf("clear order lines: %w", err)
		}
		if err := insertOrderLines(ctx, tx, id, lines); err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx,
			`UPDATE orders SET updated_at = NOW(), version = version + 1
			 WHERE id = $1
			 RETURNING updated_at, version`,
			id).Scan(&locked.UpdatedAt, &locked.Version)
		if err != nil {
			return fmt.Errorf("touch order: %w", err)
		}

		locked.Lines = lines
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.ApplyTotals()
	return order, nil
}

func GetOrder(ctx context.Context, db *sql.DB, id string) (*models.Order, error) {
	order := &models.Order{}

	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at, version
		 FROM orders
		 WHERE id = $1`,
		id).Scan(&order.ID, &order.UserID, &order.CreatedAt, &order.UpdatedAt, &order.Version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	lines, err := loadOrderLines(ctx, db, id)
	if err != nil {
		return nil, err
	}

	order.Lines = lines
	order.ApplyTotals()
	return order, nil
}

func ListOrders(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT id, user_id, created_at, updated_at, version
		 FROM orders
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1 OFFSET $2`,
		pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	if err := hydrateOrders(ctx, db, orders); err != nil {
		return nil, err
	}

	return NewOffsetPage(orders, total, page, pageSize), nil
}

func ListOrdersByUser(ctx context.Context, db *sql.DB, userID, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", database.ErrValidation)
	}

	var rows *sql.Rows
	if cursorData == nil {
		rows, err = db.QueryContext(ctx,
			`SELECT id, user_id, created_at, updated_at, version
			 FROM orders
			 WHERE user_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			userID, limit+1)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT id, user_id, created_at, updated_at, version
			 FROM orders
			 WHERE user_id = $1
			   AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	}
	if err != nil {
		return nil, fmt.Errorf("list orders by user: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	if err := hydrateOrders(ctx, db, orders); err != nil {
		return nil, err
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// DeleteOrder removes the order without touching stock.
func DeleteOrder(ctx context.Context, db *sql.DB, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrOrderNotFound
	}

	return nil
}

// RestockThenDeleteOrder returns every line's quantity to stock and deletes
// the order in the same transaction. Since the delete only commits together
// with the restocks, the caller never sees a deleted order with stock still
// outstanding.
func RestockThenDeleteOrder(ctx context.Context, db *sql.DB, id string) error {
	return database.WithRetry(ctx, db, database.SerializableTxOptions(), func(tx *sql.Tx) error {
		if _, err := lockOrder(ctx, tx, id); err != nil {
			return err
		}

		lines, err := loadOrderLines(ctx, tx, id)
		if err != nil {
			return err
		}

		reconciler := inventory.NewReconciler(NewTxProducts(tx))
		if err := reconciler.RestockFromLines(ctx, lines); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return nil
	})
}

func lockOrder(ctx context.Context, tx *sql.Tx, id string) (*models.Order, error) {
	order := &models.Order{}

	err := tx.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at, version
		 FROM orders
		 WHERE id = $1
		 FOR UPDATE`,
		id).Scan(&order.ID, &order.UserID, &order.CreatedAt, &order.UpdatedAt, &order.Version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}

	return order, nil
}

func loadOrderLines(ctx context.Context, q rowQuerier, orderID string) ([]models.OrderLine, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT product_id, quantity, price
		 FROM order_lines
		 WHERE order_id = $1
		 ORDER BY position`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	var lines []models.OrderLine
	for rows.Next() {
		var line models.OrderLine
		if err := rows.Scan(&line.ProductID, &line.Quantity, &line.Price); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return lines, nil
}

func insertOrderLines(ctx context.Context, tx *sql.Tx, orderID string, lines []models.OrderLine) error {
	for i, line := range lines {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_lines (order_id, position, product_id, quantity, price)
			 VALUES ($1, $2, $3, $4, $5)`,
			orderID, i, line.ProductID, line.Quantity, line.Price)
		if err != nil {
			return fmt.Errorf("insert order line: %w", err)
		}
	}
	return nil
}

func scanOrders(rows *sql.Rows) ([]models.Order, error) {
	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(&order.ID, &order.UserID, &order.CreatedAt, &order.UpdatedAt, &order.Version)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// hydrateOrders loads lines for a page of orders in one query and attaches
// derived totals.
func hydrateOrders(ctx context.Context, db *sql.DB, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, len(orders))
	index := make(map[string]*models.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		index[orders[i].ID] = &orders[i]
	}

	rows, err := db.QueryContext(ctx,
		`SELECT order_id, product_id, quantity, price
		 FROM order_lines
		 WHERE order_id = ANY($1)
		 ORDER BY order_id, position`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var line models.OrderLine
		if err := rows.Scan(&orderID, &line.ProductID, &line.Quantity, &line.Price); err != nil {
			return fmt.Errorf("scan order line: %w", err)
		}
		if order, ok := index[orderID]; ok {
			order.Lines = append(order.Lines, line)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	for i := range orders {
		orders[i].ApplyTotals()
	}

	return nil
}
