package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const orderColumns = `id, vendor_id, supplier_id, items, total_paise, status,
	delivery_address, order_date, estimated_delivery, actual_delivery,
	notes, transition_notes, version, created_at, updated_at`

func validateNewOrder(in NewOrder) error {
	if in.VendorID == "" || in.SupplierID == "" {
		return Validationf("vendor_id and supplier_id are required")
	}
	if in.DeliveryAddress == "" {
		return Validationf("delivery_address is required")
	}
	if len(in.Items) == 0 {
		return Validationf("order must contain at least one item")
	}
	var sum int64
	for _, it := range in.Items {
		if it.ProductID == "" {
			return Validationf("item product_id is required")
		}
		if it.Quantity <= 0 {
			return Validationf("invalid quantity for product %s", it.ProductID)
		}
		if it.UnitPricePaise < 0 {
			return Validationf("invalid unit price for product %s", it.ProductID)
		}
		sum += int64(it.Quantity) * it.UnitPricePaise
	}
	if in.TotalPaise != sum {
		return Validationf("total_paise %d does not match items total %d", in.TotalPaise, sum)
	}
	return nil
}

func (r *Repo) Create(ctx context.Context, in NewOrder) (Order, error) {
	if err := validateNewOrder(in); err != nil {
		return Order{}, err
	}

	now := time.Now().UTC()
	o := Order{
		ID:              uuid.NewString(),
		VendorID:        in.VendorID,
		SupplierID:      in.SupplierID,
		Items:           in.Items,
		TotalPaise:      in.TotalPaise,
		Status:          StatusPending,
		DeliveryAddress: in.DeliveryAddress,
		OrderDate:       now,
		Notes:           in.Notes,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	items, err := json.Marshal(o.Items)
	if err != nil {
		return Order{}, fmt.Errorf("encode items: %w", err)
	}
	_, err = r.DB.Exec(ctx, `
		INSERT INTO orders (id, vendor_id, supplier_id, items, total_paise, status,
		                    delivery_address, order_date, notes, transition_notes,
		                    version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'[]',$10,$11,$12)`,
		o.ID, o.VendorID, o.SupplierID, items, o.TotalPaise, o.Status,
		o.DeliveryAddress, o.OrderDate, o.Notes, o.Version, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// UpdateTransition is a compare-and-swap on version. Zero rows affected means
// either the order vanished or someone else won the race; we re-check which.
func (r *Repo) UpdateTransition(ctx context.Context, id string, version int64, patch TransitionPatch) (Order, error) {
	notes, err := json.Marshal(notesOrEmpty(patch.TransitionNotes))
	if err != nil {
		return Order{}, fmt.Errorf("encode transition notes: %w", err)
	}
	row := r.DB.QueryRow(ctx, `
		UPDATE orders
		SET status=$3, estimated_delivery=$4, actual_delivery=$5,
		    transition_notes=$6, updated_at=$7, version=version+1
		WHERE id=$1 AND version=$2
		RETURNING `+orderColumns,
		id, version, patch.Status, patch.EstimatedDelivery, patch.ActualDelivery,
		notes, patch.UpdatedAt,
	)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		if _, gerr := r.Get(ctx, id); gerr != nil {
			return Order{}, gerr
		}
		return Order{}, ErrConflict
	}
	return o, err
}

func (r *Repo) ListByVendor(ctx context.Context, vendorID string) ([]Order, error) {
	return r.List(ctx, Filter{VendorID: vendorID})
}

func (r *Repo) ListBySupplier(ctx context.Context, supplierID string) ([]Order, error) {
	return r.List(ctx, Filter{SupplierID: supplierID})
}

func (r *Repo) List(ctx context.Context, f Filter) ([]Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders`
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.VendorID != "" {
		add("vendor_id=$%d", f.VendorID)
	}
	if f.SupplierID != "" {
		add("supplier_id=$%d", f.SupplierID)
	}
	if f.Status != "" {
		add("status=$%d", f.Status)
	}
	for i, cond := range where {
		if i == 0 {
			q += " WHERE " + cond
		} else {
			q += " AND " + cond
		}
	}
	q += " ORDER BY order_date DESC"

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o     Order
		items []byte
		notes []byte
	)
	err := row.Scan(
		&o.ID, &o.VendorID, &o.SupplierID, &items, &o.TotalPaise, &o.Status,
		&o.DeliveryAddress, &o.OrderDate, &o.EstimatedDelivery, &o.ActualDelivery,
		&o.Notes, &notes, &o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return Order{}, fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal(notes, &o.TransitionNotes); err != nil {
		return Order{}, fmt.Errorf("decode transition notes: %w", err)
	}
	return o, nil
}

func notesOrEmpty(notes []TransitionNote) []TransitionNote {
	if notes == nil {
		return []TransitionNote{}
	}
	return notes
}
