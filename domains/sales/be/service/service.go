package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/optoplus-health/optoplus/platform/go/persistence"
)

// Errors returned by the sales service.
var (
	ErrNotFound          = errors.New("sale not found")
	ErrNoItems           = errors.New("sale requires at least one item")
	ErrInsufficientStock = errors.New("insufficient product stock")
)

// SaleItem is one product line of a sale.
type SaleItem struct {
	ProductID   int64
	ProductName string
	Quantity    int32
	UnitPrice   int64
	TotalPrice  int64
}

// Sale is the domain model for a recorded sale.
type Sale struct {
	ID             int64
	VisitID        *int64
	PatientID      int64
	TotalAmount    int64
	DiscountAmount int64
	FinalAmount    int64
	PaymentMethod  string
	SoldBy         int64
	SaleDate       time.Time
	Items          []SaleItem
}

// RecordInput carries a sale to be recorded.
type RecordInput struct {
	VisitID        *int64
	PatientID      int64
	TotalAmount    int64
	DiscountAmount int64
	PaymentMethod  string
	SoldBy         int64
	Items          []SaleItem
}

// ListFilter narrows sale listings.
type ListFilter struct {
	PatientID *int64
	StartDate *time.Time
	EndDate   *time.Time
}

// Service records and reads sales in a clinic's database through the query
// router.
type Service struct {
	router *persistence.Router
}

// New constructs a Service.
func New(router *persistence.Router) *Service {
	if router == nil {
		panic("sales service requires router")
	}
	return &Service{router: router}
}

// Record persists the sale header, its line items, and the matching stock
// decrements as one transaction. Any failure rolls back everything: a sale
// is never half-recorded and stock never drifts from its line items.
func (s *Service) Record(ctx context.Context, clinicKey string, input RecordInput) (int64, error) {
	if len(input.Items) == 0 {
		return 0, ErrNoItems
	}

	finalAmount := input.TotalAmount - input.DiscountAmount

	var saleID int64
	err := s.router.Transact(ctx, clinicKey, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
            INSERT INTO sales (visit_id, patient_id, total_amount, discount_amount,
                final_amount, payment_method, sold_by)
            VALUES ($1,$2,$3,$4,$5,$6,$7)
            RETURNING id`,
			input.VisitID, input.PatientID, input.TotalAmount, input.DiscountAmount,
			finalAmount, input.PaymentMethod, input.SoldBy,
		).Scan(&saleID)
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}

		for _, item := range input.Items {
			_, err := tx.Exec(ctx, `
                INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, total_price)
                VALUES ($1,$2,$3,$4,$5)`,
				saleID, item.ProductID, item.Quantity, item.UnitPrice,
				int64(item.Quantity)*item.UnitPrice,
			)
			if err != nil {
				return fmt.Errorf("insert sale item: %w", err)
			}

			tag, err := tx.Exec(ctx, `
                UPDATE products SET quantity = quantity - $1, updated_at = now()
                WHERE id = $2 AND quantity >= $1`,
				item.Quantity, item.ProductID,
			)
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("product %d: %w", item.ProductID, ErrInsufficientStock)
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return saleID, nil
}

// GetByID returns a sale with its line items.
func (s *Service) GetByID(ctx context.Context, clinicKey string, id int64) (Sale, error) {
	row, err := s.router.QueryRow(ctx, clinicKey, `
        SELECT id, visit_id, patient_id, total_amount, discount_amount,
            final_amount, payment_method, sold_by, sale_date
        FROM sales WHERE id = $1`, id)
	if err != nil {
		return Sale{}, err
	}

	var sale Sale
	err = row.Scan(&sale.ID, &sale.VisitID, &sale.PatientID, &sale.TotalAmount,
		&sale.DiscountAmount, &sale.FinalAmount, &sale.PaymentMethod,
		&sale.SoldBy, &sale.SaleDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrNotFound
		}
		return Sale{}, err
	}

	rows, err := s.router.Query(ctx, clinicKey, `
        SELECT si.product_id, p.name, si.quantity, si.unit_price, si.total_price
        FROM sale_items si
        JOIN products p ON p.id = si.product_id
        WHERE si.sale_id = $1
        ORDER BY si.id`, id)
	if err != nil {
		return Sale{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity,
			&item.UnitPrice, &item.TotalPrice); err != nil {
			return Sale{}, err
		}
		sale.Items = append(sale.Items, item)
	}
	if err := rows.Err(); err != nil {
		return Sale{}, err
	}

	return sale, nil
}

// List returns sale headers newest-first matching the filter.
func (s *Service) List(ctx context.Context, clinicKey string, filter ListFilter) ([]Sale, error) {
	query := `
        SELECT id, visit_id, patient_id, total_amount, discount_amount,
            final_amount, payment_method, sold_by, sale_date
        FROM sales WHERE 1=1`
	args := []any{}

	if filter.PatientID != nil {
		args = append(args, *filter.PatientID)
		query += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		query += fmt.Sprintf(" AND sale_date >= $%d", len(args))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		query += fmt.Sprintf(" AND sale_date <= $%d", len(args))
	}
	query += " ORDER BY sale_date DESC"

	rows, err := s.router.Query(ctx, clinicKey, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		var sale Sale
		if err := rows.Scan(&sale.ID, &sale.VisitID, &sale.PatientID, &sale.TotalAmount,
			&sale.DiscountAmount, &sale.FinalAmount, &sale.PaymentMethod,
			&sale.SoldBy, &sale.SaleDate); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sales, nil
}
