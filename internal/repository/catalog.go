package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/relief-allocator/backend/internal/domain"
)

func (r *Repository) GetSupplyItems(ctx context.Context) ([]domain.SupplyItem, error) {
	query := `
		SELECT id, name, category, unit_weight_kg
		FROM supply_items
		ORDER BY id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SupplyItem, 0)
	for rows.Next() {
		var item domain.SupplyItem
		dst := []any{&item.ID, &item.Name, &item.Category, &item.UnitWeightKg}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *Repository) GetDisasters(ctx context.Context) ([]domain.Disaster, error) {
	query := `
		SELECT d.type, dp.category, dp.level
		FROM disasters d
		LEFT JOIN disaster_priorities dp ON d.type = dp.disaster_type
		ORDER BY d.type, dp.category
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	disasters := make([]domain.Disaster, 0)
	indexByType := make(map[string]int)

	for rows.Next() {
		var row struct {
			disasterType string
			category     *string
			level        *string
		}
		if err := rows.Scan(&row.disasterType, &row.category, &row.level); err != nil {
			return nil, err
		}

		idx, exists := indexByType[row.disasterType]
		if !exists {
			idx = len(disasters)
			indexByType[row.disasterType] = idx
			disasters = append(disasters, domain.Disaster{
				Type:       row.disasterType,
				Priorities: make([]domain.CategoryPriority, 0),
			})
		}

		if row.category == nil || row.level == nil {
			// 没有配置任何类别优先级的灾害
			continue
		}

		disasters[idx].Priorities = append(disasters[idx].Priorities, domain.CategoryPriority{
			Category: *row.category,
			Level:    domain.PriorityLevel(*row.level),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return disasters, nil
}

// ReplaceCatalog 在一个事务中用给定的物资与灾害表替换数据库中的目录
func (r *Repository) ReplaceCatalog(ctx context.Context, items []domain.SupplyItem, disasters []domain.Disaster) error {
	ctx, cancel := r.transactionContext(ctx)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 先删除子表
	for _, query := range []string{
		`DELETE FROM disaster_priorities`,
		`DELETE FROM disasters`,
		`DELETE FROM supply_items`,
	} {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return err
		}
	}

	for _, item := range items {
		query := `
			INSERT INTO supply_items (id, name, category, unit_weight_kg)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.ExecContext(ctx, query, item.ID, item.Name, item.Category, item.UnitWeightKg); err != nil {
			return err
		}
	}

	for _, d := range disasters {
		query := `INSERT INTO disasters (type) VALUES ($1)`
		if _, err := tx.ExecContext(ctx, query, d.Type); err != nil {
			return err
		}

		for _, p := range d.Priorities {
			query := `
				INSERT INTO disaster_priorities (disaster_type, category, level)
				VALUES ($1, $2, $3)
			`
			if _, err := tx.ExecContext(ctx, query, d.Type, p.Category, string(p.Level)); err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.ConstraintName == "disaster_priorities_pkey" {
					return fmt.Errorf("灾害 %s 中类别 %s 的优先级重复: %w", d.Type, p.Category, err)
				}
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}
