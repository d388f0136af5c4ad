package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmehra2102/restaurant-pos/internal/inventory/application"
	"github.com/dmehra2102/restaurant-pos/internal/inventory/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/apperr"
	"github.com/dmehra2102/restaurant-pos/pkg/pgtx"
)

// Repository implements every inventory port on one pgx pool. Each method
// runs on the transaction bound to ctx when there is one.
type Repository struct {
	log *slog.Logger
	db  *pgtx.Transactor
}

func NewRepository(log *slog.Logger, db *pgtx.Transactor) *Repository {
	return &Repository{log: log, db: db}
}

// Stock, Recipes, Alerts and Deductions expose the port views of r.
func (r *Repository) Stock() application.StockRepository         { return (*stockRepo)(r) }
func (r *Repository) Recipes() application.RecipeRepository       { return (*recipeRepo)(r) }
func (r *Repository) Alerts() application.AlertRepository         { return (*alertRepo)(r) }
func (r *Repository) Deductions() application.DeductionRepository { return (*deductionRepo)(r) }

const stockColumns = `entity_type, entity_id, name, unit, current_stock, min_stock, max_stock, active, last_updated`

func scanLevel(row pgx.Row) (domain.StockLevel, error) {
	var l domain.StockLevel
	err := row.Scan(&l.EntityType, &l.EntityID, &l.Name, &l.Unit, &l.Current, &l.Min, &l.Max, &l.Active, &l.LastUpdated)
	return l, err
}

type stockRepo Repository

func (r *stockRepo) Get(ctx context.Context, key domain.StockKey) (domain.StockLevel, error) {
	row := r.db.Conn(ctx).QueryRow(ctx, `SELECT `+stockColumns+` FROM stock_levels WHERE entity_type=$1 AND entity_id=$2`,
		key.EntityType, key.EntityID)
	l, err := scanLevel(row)
	if err != nil {
		return domain.StockLevel{}, pgtx.Translate(err, "stock", key.String())
	}
	return l, nil
}

func (r *stockRepo) LockForUpdate(ctx context.Context, keys []domain.StockKey) (map[domain.StockKey]domain.StockLevel, error) {
	types := make([]string, 0, len(keys))
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		types = append(types, string(k.EntityType))
		ids = append(ids, k.EntityID)
	}
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT `+stockColumns+`
		FROM stock_levels
		WHERE (entity_type, entity_id) IN (SELECT * FROM unnest($1::text[], $2::text[]))
		ORDER BY entity_type, entity_id
		FOR UPDATE`, types, ids)
	if err != nil {
		return nil, pgtx.Translate(err, "stock", "")
	}
	defer rows.Close()

	out := make(map[domain.StockKey]domain.StockLevel, len(keys))
	for rows.Next() {
		l, err := scanLevel(rows)
		if err != nil {
			return nil, err
		}
		out[l.Key()] = l
	}
	if err := rows.Err(); err != nil {
		return nil, pgtx.Translate(err, "stock", "")
	}
	return out, nil
}

func (r *stockRepo) Create(ctx context.Context, l domain.StockLevel) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO stock_levels (`+stockColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		l.EntityType, l.EntityID, l.Name, l.Unit, l.Current, l.Min, l.Max, l.Active, l.LastUpdated)
	return pgtx.Translate(err, "stock", l.Key().String())
}

func (r *stockRepo) Save(ctx context.Context, l domain.StockLevel) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `
		UPDATE stock_levels
		SET name=$3, unit=$4, current_stock=$5, min_stock=$6, max_stock=$7, active=$8, last_updated=$9
		WHERE entity_type=$1 AND entity_id=$2`,
		l.EntityType, l.EntityID, l.Name, l.Unit, l.Current, l.Min, l.Max, l.Active, l.LastUpdated)
	if err != nil {
		return pgtx.Translate(err, "stock", l.Key().String())
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("stock", l.Key().String())
	}
	return nil
}

func (r *stockRepo) List(ctx context.Context, filter application.StockFilter) ([]domain.StockLevel, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT `+stockColumns+`
		FROM stock_levels
		WHERE ($1 = '' OR entity_type = $1) AND (NOT $2 OR current_stock <= min_stock)
		ORDER BY entity_type, entity_id`, string(filter.EntityType), filter.LowOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StockLevel
	for rows.Next() {
		l, err := scanLevel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *stockRepo) AppendTransaction(ctx context.Context, tx domain.StockTransaction) (domain.StockTransaction, error) {
	err := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO stock_transactions (entity_type, entity_id, type, quantity, balance_after, reason, reference, actor, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id`,
		tx.EntityType, tx.EntityID, tx.Type, tx.Quantity, tx.BalanceAfter, tx.Reason, tx.Reference, tx.Actor, tx.CreatedAt,
	).Scan(&tx.ID)
	return tx, err
}

func (r *stockRepo) Transactions(ctx context.Context, key domain.StockKey, limit int) ([]domain.StockTransaction, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT id, entity_type, entity_id, type, quantity, balance_after, reason, reference, actor, created_at
		FROM stock_transactions
		WHERE entity_type=$1 AND entity_id=$2
		ORDER BY id DESC
		LIMIT $3`, key.EntityType, key.EntityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StockTransaction
	for rows.Next() {
		var t domain.StockTransaction
		if err := rows.Scan(&t.ID, &t.EntityType, &t.EntityID, &t.Type, &t.Quantity, &t.BalanceAfter, &t.Reason, &t.Reference, &t.Actor, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type recipeRepo Repository

func (r *recipeRepo) ByProduct(ctx context.Context, productID string) ([]domain.Recipe, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT product_id, ingredient_id, quantity_per_unit, unit, position
		FROM recipes
		WHERE product_id=$1
		ORDER BY position, ingredient_id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Recipe{}
	for rows.Next() {
		var rec domain.Recipe
		if err := rows.Scan(&rec.ProductID, &rec.IngredientID, &rec.QuantityPerUnit, &rec.Unit, &rec.Position); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *recipeRepo) Put(ctx context.Context, rec domain.Recipe) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `
		INSERT INTO recipes (product_id, ingredient_id, quantity_per_unit, unit, position)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (product_id, ingredient_id)
		DO UPDATE SET quantity_per_unit=EXCLUDED.quantity_per_unit, unit=EXCLUDED.unit, position=EXCLUDED.position`,
		rec.ProductID, rec.IngredientID, rec.QuantityPerUnit, rec.Unit, rec.Position)
	return pgtx.Translate(err, "recipe", rec.ProductID+"/"+rec.IngredientID)
}

func (r *recipeRepo) Delete(ctx context.Context, productID, ingredientID string) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `DELETE FROM recipes WHERE product_id=$1 AND ingredient_id=$2`, productID, ingredientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("recipe", productID+"/"+ingredientID)
	}
	return nil
}

const alertColumns = `id, entity_type, entity_id, type, message, is_read, created_at, updated_at`

func scanAlert(row pgx.Row) (domain.Alert, error) {
	var a domain.Alert
	err := row.Scan(&a.ID, &a.EntityType, &a.EntityID, &a.Type, &a.Message, &a.Read, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

type alertRepo Repository

func (r *alertRepo) Get(ctx context.Context, id string) (domain.Alert, error) {
	a, err := scanAlert(r.db.Conn(ctx).QueryRow(ctx, `SELECT `+alertColumns+` FROM stock_alerts WHERE id=$1`, id))
	if err != nil {
		return domain.Alert{}, pgtx.Translate(err, "alert", id)
	}
	return a, nil
}

func (r *alertRepo) FindUnread(ctx context.Context, key domain.StockKey) (*domain.Alert, error) {
	a, err := scanAlert(r.db.Conn(ctx).QueryRow(ctx, `
		SELECT `+alertColumns+`
		FROM stock_alerts
		WHERE entity_type=$1 AND entity_id=$2 AND NOT is_read
		FOR UPDATE`, key.EntityType, key.EntityID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *alertRepo) Create(ctx context.Context, a domain.Alert) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO stock_alerts (`+alertColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.EntityType, a.EntityID, a.Type, a.Message, a.Read, a.CreatedAt, a.UpdatedAt)
	return pgtx.Translate(err, "alert", a.ID)
}

func (r *alertRepo) Update(ctx context.Context, a domain.Alert) error {
	tag, err := r.db.Conn(ctx).Exec(ctx, `UPDATE stock_alerts SET type=$2, message=$3, is_read=$4, updated_at=$5 WHERE id=$1`,
		a.ID, a.Type, a.Message, a.Read, a.UpdatedAt)
	if err != nil {
		return pgtx.Translate(err, "alert", a.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("alert", a.ID)
	}
	return nil
}

func (r *alertRepo) ListUnread(ctx context.Context) ([]domain.Alert, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `SELECT `+alertColumns+` FROM stock_alerts WHERE NOT is_read ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type deductionRepo Repository

func (r *deductionRepo) Claim(ctx context.Context, orderID string) (bool, error) {
	tag, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO stock_deductions (order_id) VALUES ($1) ON CONFLICT (order_id) DO NOTHING`, orderID)
	if err != nil {
		return false, pgtx.Translate(err, "deduction", orderID)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *deductionRepo) GetForUpdate(ctx context.Context, orderID string) (domain.Deduction, error) {
	d := domain.Deduction{OrderID: orderID}
	var deductedAt *time.Time
	err := r.db.Conn(ctx).QueryRow(ctx, `
		SELECT lines, deducted_at, reversed_at
		FROM stock_deductions
		WHERE order_id=$1
		FOR UPDATE`, orderID).Scan(&d.Lines, &deductedAt, &d.ReversedAt)
	if err != nil {
		return domain.Deduction{}, pgtx.Translate(err, "deduction", orderID)
	}
	if deductedAt != nil {
		d.DeductedAt = *deductedAt
	}
	return d, nil
}

func (r *deductionRepo) Save(ctx context.Context, d domain.Deduction) error {
	lines := d.Lines
	if lines == nil {
		lines = []domain.DeductionLine{}
	}
	tag, err := r.db.Conn(ctx).Exec(ctx, `UPDATE stock_deductions SET lines=$2, deducted_at=$3, reversed_at=$4 WHERE order_id=$1`,
		d.OrderID, lines, d.DeductedAt, d.ReversedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("deduction", d.OrderID)
	}
	return nil
}

