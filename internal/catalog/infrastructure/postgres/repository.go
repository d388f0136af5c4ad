package postgres

import (
	"context"

	"github.com/dmehra2102/restaurant-pos/internal/catalog/domain"
	"github.com/dmehra2102/restaurant-pos/pkg/pgtx"
)

type Repository struct {
	db *pgtx.Transactor
}

func NewRepository(db *pgtx.Transactor) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateCategory(ctx context.Context, c domain.Category) error {
	_, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO categories (id, name, position) VALUES ($1,$2,$3)`, c.ID, c.Name, c.Position)
	return pgtx.Translate(err, "category", c.ID)
}

func (r *Repository) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	var c domain.Category
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT id, name, position FROM categories WHERE id=$1`, id).Scan(&c.ID, &c.Name, &c.Position)
	return c, pgtx.Translate(err, "category", id)
}

func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `
		SELECT c.id, c.name, c.position, count(p.id) FILTER (WHERE p.active)
		FROM categories c
		LEFT JOIN products p ON p.category_id = c.id
		GROUP BY c.id
		ORDER BY c.position, c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Position, &c.ProductCount); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) SaveProduct(ctx context.Context, p domain.Product) error {
	var category *string
	if p.CategoryID != "" {
		category = &p.CategoryID
	}
	_, err := r.db.Conn(ctx).Exec(ctx, `
		INSERT INTO products (id, name, category_id, price, active) VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, category_id=EXCLUDED.category_id, price=EXCLUDED.price, active=EXCLUDED.active`,
		p.ID, p.Name, category, p.Price, p.Active)
	return pgtx.Translate(err, "product", p.ID)
}

func (r *Repository) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var (
		p        domain.Product
		category *string
	)
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT id, name, category_id, price, active FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &category, &p.Price, &p.Active)
	if err != nil {
		return domain.Product{}, pgtx.Translate(err, "product", id)
	}
	if category != nil {
		p.CategoryID = *category
	}
	return p, nil
}

func (r *Repository) ProductsByID(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, `SELECT id, name, COALESCE(category_id, ''), price, active FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CategoryID, &p.Price, &p.Active); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}
