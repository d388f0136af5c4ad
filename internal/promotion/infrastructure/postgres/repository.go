package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dmehra2102/restaurant-pos/internal/promotion/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/pgtx"
)

type Repository struct {
	db *pgtx.Transactor
}

func NewRepository(db *pgtx.Transactor) *Repository {
	return &Repository{db: db}
}

const columns = `id, code, name, scope, discount_type, value, min_order_amount, max_discount_amount,
	product_ids, category_ids, membership_levels, start_date, end_date, start_time, end_time,
	usage_limit, per_user_limit, usage_count, active, created_at, updated_at`

func scan(row pgx.Row) (domain.Promotion, error) {
	var p domain.Promotion
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Scope, &p.DiscountType, &p.Value, &p.MinOrderAmount, &p.MaxDiscountAmount,
		&p.ProductIDs, &p.CategoryIDs, &p.MembershipLevels, &p.StartDate, &p.EndDate, &p.StartTime, &p.EndTime,
		&p.UsageLimit, &p.PerUserLimit, &p.UsageCount, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *Repository) Create(ctx context.Context, p domain.Promotion) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO promotions (`+columns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		p.ID, p.Code, p.Name, p.Scope, p.DiscountType, p.Value, p.MinOrderAmount, p.MaxDiscountAmount,
		orEmpty(p.ProductIDs), orEmpty(p.CategoryIDs), orEmpty(p.MembershipLevels), p.StartDate, p.EndDate, p.StartTime, p.EndTime,
		p.UsageLimit, p.PerUserLimit, p.UsageCount, p.Active, p.CreatedAt, p.UpdatedAt)
	return pgtx.Translate(err, "promotion", p.Code)
}

func (r *Repository) Update(ctx context.Context, p domain.Promotion) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `
		UPDATE promotions SET code=$2, name=$3, scope=$4, discount_type=$5, value=$6, min_order_amount=$7,
			max_discount_amount=$8, product_ids=$9, category_ids=$10, membership_levels=$11, start_date=$12,
			end_date=$13, start_time=$14, end_time=$15, usage_limit=$16, per_user_limit=$17, usage_count=$18,
			active=$19, updated_at=$20
		WHERE id=$1`,
		p.ID, p.Code, p.Name, p.Scope, p.DiscountType, p.Value, p.MinOrderAmount,
		p.MaxDiscountAmount, orEmpty(p.ProductIDs), orEmpty(p.CategoryIDs), orEmpty(p.MembershipLevels), p.StartDate,
		p.EndDate, p.StartTime, p.EndTime, p.UsageLimit, p.PerUserLimit, p.UsageCount,
		p.Active, p.UpdatedAt)
	if err != nil {
		return pgtx.Translate(err, "promotion", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("promotion", p.ID)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM promotions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("promotion", id)
	}
	return nil
}

func (r *Repository) one(ctx context.Context, where, key string) (domain.Promotion, error) {
	p, err := scan(r.db.Conn(ctx).QueryRow(ctx, `SELECT `+columns+` FROM promotions WHERE `+where, key))
	if err != nil {
		return domain.Promotion{}, pgtx.Translate(err, "promotion", key)
	}
	return p, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Promotion, error) {
	return r.one(ctx, `id=$1`, id)
}

func (r *Repository) GetByCode(ctx context.Context, code string) (domain.Promotion, error) {
	return r.one(ctx, `code=$1`, code)
}

func (r *Repository) LockByCode(ctx context.Context, code string) (domain.Promotion, error) {
	return r.one(ctx, `code=$1 FOR UPDATE`, code)
}

func (r *Repository) LockByID(ctx context.Context, id string) (domain.Promotion, error) {
	return r.one(ctx, `id=$1 FOR UPDATE`, id)
}

func (r *Repository) List(ctx context.Context, activeOnly bool) ([]domain.Promotion, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `SELECT `+columns+` FROM promotions WHERE (NOT $1 OR active) ORDER BY code`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Promotion{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) CountCustomerUsages(ctx context.Context, promotionID, customerID string) (int, error) {
	var n int
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT count(*) FROM promotion_usages WHERE promotion_id=$1 AND customer_id=$2`,
		promotionID, customerID).Scan(&n)
	return n, err
}

func (r *Repository) InsertUsage(ctx context.Context, u domain.Usage) error {
	var customer *string
	if u.CustomerID != "" {
		customer = &u.CustomerID
	}
	_, err := r.db.Conn(ctx).Exec(ctx, `
		INSERT INTO promotion_usages (promotion_id, customer_id, order_id, discount_amount, created_at)
		VALUES ($1,$2,$3,$4,$5)`, u.PromotionID, customer, u.OrderID, u.DiscountAmount, u.CreatedAt)
	return pgtx.Translate(err, "promotion usage", u.OrderID)
}

func (r *Repository) UsageByOrder(ctx context.Context, orderID string) (*domain.Usage, error) {
	var u domain.Usage
	err := r.db.Conn(ctx).QueryRow(ctx, `
		SELECT id, promotion_id, COALESCE(customer_id, ''), order_id, discount_amount, created_at
		FROM promotion_usages WHERE order_id=$1 FOR UPDATE`, orderID).
		Scan(&u.ID, &u.PromotionID, &u.CustomerID, &u.OrderID, &u.DiscountAmount, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) DeleteUsage(ctx context.Context, id int64) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM promotion_usages WHERE id=$1`, id)
	return err
}

func (r *Repository) UsageStats(ctx context.Context, promotionID string) (int, int64, error) {
	var (
		customers int
		total     int64
	)
	err := r.db.Conn(ctx).QueryRow(ctx, `
		SELECT count(DISTINCT customer_id), COALESCE(sum(discount_amount), 0)
		FROM promotion_usages WHERE promotion_id=$1`, promotionID).Scan(&customers, &total)
	return customers, total, err
}
