package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dmehra2102/restaurant-pos/internal/loyalty/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/pgtx"
)

type Repository struct {
	db *pgtx.Transactor
}

func NewRepository(db *pgtx.Transactor) *Repository {
	return &Repository{db: db}
}

const columns = `id, name, COALESCE(phone, ''), loyalty_points, membership_level, membership_locked, total_spent, created_at, updated_at`

func scan(row pgx.Row) (domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.LoyaltyPoints, &c.MembershipLevel, &c.MembershipLocked, &c.TotalSpent, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *Repository) Create(ctx context.Context, c domain.Customer) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `
		INSERT INTO customers (id, name, phone, loyalty_points, membership_level, membership_locked, total_spent, created_at, updated_at)
		VALUES ($1,$2,NULLIF($3, ''),$4,$5,$6,$7,$8,$9)`,
		c.ID, c.Name, c.Phone, c.LoyaltyPoints, c.MembershipLevel, c.MembershipLocked, c.TotalSpent, c.CreatedAt, c.UpdatedAt)
	return pgtx.Translate(err, "customer", c.ID)
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Customer, error) {
	c, err := scan(r.db.Conn(ctx).QueryRow(ctx, `SELECT `+columns+` FROM customers WHERE id=$1`, id))
	return c, pgtx.Translate(err, "customer", id)
}

func (r *Repository) LockForUpdate(ctx context.Context, id string) (domain.Customer, error) {
	c, err := scan(r.db.Conn(ctx).QueryRow(ctx, `SELECT `+columns+` FROM customers WHERE id=$1 FOR UPDATE`, id))
	return c, pgtx.Translate(err, "customer", id)
}

func (r *Repository) Save(ctx context.Context, c domain.Customer) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `
		UPDATE customers
		SET name=$2, phone=NULLIF($3, ''), loyalty_points=$4, membership_level=$5, membership_locked=$6, total_spent=$7, updated_at=$8
		WHERE id=$1`,
		c.ID, c.Name, c.Phone, c.LoyaltyPoints, c.MembershipLevel, c.MembershipLocked, c.TotalSpent, c.UpdatedAt)
	if err != nil {
		return pgtx.Translate(err, "customer", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("customer", c.ID)
	}
	return nil
}

func (r *Repository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `SELECT id FROM customers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *Repository) AppendTransaction(ctx context.Context, t domain.Transaction) (domain.Transaction, error) {
	err := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO loyalty_transactions (customer_id, type, points, reason, order_id, created_at)
		VALUES ($1,$2,$3,$4,NULLIF($5, ''),$6)
		RETURNING id`, t.CustomerID, t.Type, t.Points, t.Reason, t.OrderID, t.CreatedAt).Scan(&t.ID)
	return t, err
}

func (r *Repository) Transactions(ctx context.Context, customerID string) ([]domain.Transaction, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT id, customer_id, type, points, reason, COALESCE(order_id, ''), created_at
		FROM loyalty_transactions WHERE customer_id=$1 ORDER BY id`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.CustomerID, &t.Type, &t.Points, &t.Reason, &t.OrderID, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) SumPoints(ctx context.Context, customerID string) (int64, error) {
	var sum int64
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT COALESCE(sum(points), 0) FROM loyalty_transactions WHERE customer_id=$1`, customerID).Scan(&sum)
	return sum, err
}
