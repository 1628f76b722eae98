// Package inventory keeps product stock consistent with the quantities
// recorded in order lines. All stock mutation in the system goes through a
// Reconciler; handlers and stores never adjust stock directly.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/safar/go-order-store/internal/database"
	"github.com/safar/go-order-store/internal/models"
)

// LineRequest is one requested (product, quantity) pair. Quantity 0 is only
// meaningful on update, where it removes the line and returns its stock.
type LineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ProductStore is the narrow storage surface the reconciler needs.
//
// AdjustStock applies delta to the product's stock as a single atomic
// conditional mutation: it fails with database.ErrInsufficientStock when the
// result would go negative and with database.ErrProductNotFound when the
// product does not exist, mutating nothing in either case. Implementations
// must not express the adjustment as a separate read followed by a write.
type ProductStore interface {
	Load(ctx context.Context, id string) (*models.Product, error)
	AdjustStock(ctx context.Context, id string, delta int) error
}

// Reconciler validates a requested line set against current stock and
// applies the resulting deltas. Every operation checks the full request
// before the first mutation, so a rejected call leaves stock untouched.
type Reconciler struct {
	products ProductStore
}

func NewReconciler(products ProductStore) *Reconciler {
	return &Reconciler{products: products}
}

// ReserveForCreate decrements stock for every requested line and returns the
// finalized lines with unit prices snapshotted from the products.
func (r *Reconciler) ReserveForCreate(ctx context.Context, requested []LineRequest) ([]models.OrderLine, error) {
	if err := validateRequests(requested, false); err != nil {
		return nil, err
	}

	prices, err := r.checkAvailability(ctx, requested, nil)
	if err != nil {
		return nil, err
	}

	lines := make([]models.OrderLine, 0, len(requested))
	for _, req := range requested {
		if err := r.products.AdjustStock(ctx, req.ProductID, -req.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, models.OrderLine{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			Price:     prices[req.ProductID],
		})
	}

	return lines, nil
}

// ReconcileForUpdate adjusts stock by the delta between an order's existing
// lines and the requested set, and returns the lines that replace the
// order's line set. A requested quantity of 0 restores the old quantity and
// drops the line. Products present in existing but absent from requested are
// treated as explicit quantity-0 requests, so their stock is returned too.
// Emitted lines carry the product's current price.
func (r *Reconciler) ReconcileForUpdate(ctx context.Context, existing []models.OrderLine, requested []LineRequest) ([]models.OrderLine, error) {
	if err := validateRequests(requested, true); err != nil {
		return nil, err
	}

	oldQuantities := make(map[string]int, len(existing))
	for _, line := range existing {
		oldQuantities[line.ProductID] = line.Quantity
	}

	requested = appendImplicitRemovals(existing, requested)

	prices, err := r.checkAvailability(ctx, requested, oldQuantities)
	if err != nil {
		return nil, err
	}

	lines := make([]models.OrderLine, 0, len(requested))
	for _, req := range requested {
		delta := req.Quantity - oldQuantities[req.ProductID]
		if delta != 0 {
			if err := r.products.AdjustStock(ctx, req.ProductID, -delta); err != nil {
				return nil, err
			}
		}

		// quantity 0 restores the old quantity above and drops the line
		if req.Quantity == 0 {
			continue
		}

		lines = append(lines, models.OrderLine{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			Price:     prices[req.ProductID],
		})
	}

	return lines, nil
}

// RestockFromLines returns each line's quantity to its product's stock.
// Products that no longer exist are skipped. Used by the
// restock-then-delete path before the order record is removed.
func (r *Reconciler) RestockFromLines(ctx context.Context, lines []models.OrderLine) error {
	for _, line := range lines {
		err := r.products.AdjustStock(ctx, line.ProductID, line.Quantity)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return err
		}
	}
	return nil
}

// checkAvailability loads every requested product and verifies the full
// request can be satisfied, returning current unit prices by product id.
// oldQuantities may be nil for create.
func (r *Reconciler) checkAvailability(ctx context.Context, requested []LineRequest, oldQuantities map[string]int) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal, len(requested))
	for _, req := range requested {
		product, err := r.products.Load(ctx, req.ProductID)
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("product %s: %w", req.ProductID, database.ErrProductNotFound)
			}
			return nil, err
		}

		delta := req.Quantity - oldQuantities[req.ProductID]
		if req.Quantity > 0 && product.Stock < delta {
			return nil, fmt.Errorf("product %s: %w", req.ProductID, database.ErrInsufficientStock)
		}

		prices[req.ProductID] = product.Price
	}
	return prices, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrProductNotFound)
}

func validateRequests(requested []LineRequest, allowZero bool) error {
	seen := make(map[string]bool, len(requested))
	for _, req := range requested {
		if req.ProductID == "" {
			return fmt.Errorf("%w: missing product id", database.ErrValidation)
		}
		if req.Quantity < 0 || (!allowZero && req.Quantity == 0) {
			return fmt.Errorf("%w: invalid quantity %d for product %s",
				database.ErrValidation, req.Quantity, req.ProductID)
		}
		if seen[req.ProductID] {
			return fmt.Errorf("%w: duplicate line for product %s",
				database.ErrValidation, req.ProductID)
		}
		seen[req.ProductID] = true
	}
	return nil
}

// appendImplicitRemovals adds a quantity-0 request for every product the
// order currently holds that the request does not mention.
func appendImplicitRemovals(existing []models.OrderLine, requested []LineRequest) []LineRequest {
	mentioned := make(map[string]bool, len(requested))
	for _, req := range requested {
		mentioned[req.ProductID] = true
	}

	out := requested
	for _, line := range existing {
		if !mentioned[line.ProductID] {
			out = append(out, LineRequest{ProductID: line.ProductID, Quantity: 0})
		}
	}
	return out
}
