package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmehra2102/restaurant-pos/internal/order/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/pgtx"
)

type Repository struct {
	log *slog.Logger
	db  *pgtx.Transactor
}

func NewRepository(log *slog.Logger, db *pgtx.Transactor) *Repository {
	return &Repository{log: log, db: db}
}

func (r *Repository) Create(ctx context.Context, o domain.Order) error {
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		conn := r.db.Conn(ctx)
		_, err := conn.Exec(ctx, `
			INSERT INTO orders (id, number, status, subtotal, discount_amount, points_discount, total_amount,
				payment_method, payment_status, payment_ref, customer_id, promotion_code, points_redeemed,
				version, created_at, updated_at, paid_at, completed_at, cancelled_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NULLIF($11, ''),NULLIF($12, ''),$13,$14,$15,$16,$17,$18,$19)`,
			o.ID, o.Number, o.Status, o.Subtotal, o.DiscountAmount, o.PointsDiscount, o.TotalAmount,
			o.PaymentMethod, o.PaymentStatus, o.PaymentRef, o.CustomerID, o.PromotionCode, o.PointsRedeemed,
			o.Version, o.CreatedAt, o.UpdatedAt, o.PaidAt, o.CompletedAt, o.CancelledAt)
		if err != nil {
			return pgtx.Translate(err, "order", o.ID)
		}

		batch := &pgx.Batch{}
		for i, item := range o.Items {
			batch.Queue(`
				INSERT INTO order_items (order_id, line_no, product_id, product_name, quantity, unit_price, subtotal, size, toppings, note)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
				o.ID, i+1, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.Subtotal, item.Size, item.Toppings, item.Note)
		}
		return conn.SendBatch(ctx, batch).Close()
	})
}

const orderColumns = `id, number, status, subtotal, discount_amount, points_discount, total_amount,
	payment_method, payment_status, payment_ref, COALESCE(customer_id, ''), COALESCE(promotion_code, ''),
	points_redeemed, version, created_at, updated_at, paid_at, completed_at, cancelled_at`

func (r *Repository) load(ctx context.Context, id, suffix string) (domain.Order, error) {
	conn := r.db.Conn(ctx)
	var o domain.Order
	err := conn.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`+suffix, id).Scan(
		&o.ID, &o.Number, &o.Status, &o.Subtotal, &o.DiscountAmount, &o.PointsDiscount, &o.TotalAmount,
		&o.PaymentMethod, &o.PaymentStatus, &o.PaymentRef, &o.CustomerID, &o.PromotionCode,
		&o.PointsRedeemed, &o.Version, &o.CreatedAt, &o.UpdatedAt, &o.PaidAt, &o.CompletedAt, &o.CancelledAt)
	if err != nil {
		return domain.Order{}, pgtx.Translate(err, "order", id)
	}

	rows, err := conn.Query(ctx, `
		SELECT product_id, product_name, quantity, unit_price, subtotal, size, toppings, note
		FROM order_items WHERE order_id=$1 ORDER BY line_no`, id)
	if err != nil {
		return domain.Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.Subtotal, &item.Size, &item.Toppings, &item.Note); err != nil {
			return domain.Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	return r.load(ctx, id, "")
}

func (r *Repository) GetForUpdate(ctx context.Context, id string) (domain.Order, error) {
	return r.load(ctx, id, " FOR UPDATE")
}

func (r *Repository) Update(ctx context.Context, o domain.Order, prevVersion int64) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `
		UPDATE orders
		SET status=$3, payment_status=$4, payment_ref=$5, version=$6, updated_at=$7,
			paid_at=$8, completed_at=$9, cancelled_at=$10
		WHERE id=$1 AND version=$2`,
		o.ID, prevVersion, o.Status, o.PaymentStatus, o.PaymentRef, o.Version, o.UpdatedAt,
		o.PaidAt, o.CompletedAt, o.CancelledAt)
	if err != nil {
		return pgtx.Translate(err, "order", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("order", o.ID)
	}
	return nil
}

func (r *Repository) AppendHistory(ctx context.Context, c domain.StatusChange) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `
		INSERT INTO order_status_history (order_id, from_status, to_status, actor_id, actor_kind, reason, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		c.OrderID, c.From, c.To, c.ActorID, c.ActorKind, c.Reason, c.At)
	return err
}

func (r *Repository) History(ctx context.Context, orderID string) ([]domain.StatusChange, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT order_id, from_status, to_status, actor_id, actor_kind, reason, created_at
		FROM order_status_history WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.StatusChange{}
	for rows.Next() {
		var c domain.StatusChange
		if err := rows.Scan(&c.OrderID, &c.From, &c.To, &c.ActorID, &c.ActorKind, &c.Reason, &c.At); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// NextNumber bumps the day's counter with an upsert, so concurrent creators
// serialise on the counter row.
func (r *Repository) NextNumber(ctx context.Context, day time.Time) (int, error) {
	var n int
	err := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO order_number_counters (day, last) VALUES ($1::date, 1)
		ON CONFLICT (day) DO UPDATE SET last = order_number_counters.last + 1
		RETURNING last`, day.Format(time.DateOnly)).Scan(&n)
	return n, err
}

func (r *Repository) ListByStatusBefore(ctx context.Context, status domain.OrderStatus, before time.Time) ([]string, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT id FROM orders WHERE status=$1 AND created_at < $2 ORDER BY created_at`, status, before)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ids, err
}
