package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
)

const materialColumns = `id, name, price, quantity, unit, supplier_id, supplier_name, category, description, rating,
	latitude, longitude, delivery_radius_km, version, created_at, updated_at`

func scanMaterial(row pgx.CollectableRow) (domain.Material, error) {
	var (
		m        domain.Material
		lat, lng *float64
	)
	err := row.Scan(&m.ID, &m.Name, &m.Price, &m.Quantity, &m.Unit, &m.SupplierID, &m.SupplierName, &m.Category,
		&m.Description, &m.Rating, &lat, &lng, &m.DeliveryRadiusKm, &m.Version, &m.CreatedAt, &m.UpdatedAt)
	if lat != nil && lng != nil {
		m.Location = &domain.GeoPoint{Latitude: *lat, Longitude: *lng}
	}
	return m, err
}

func locationArgs(p *domain.GeoPoint) (lat, lng *float64) {
	if p == nil {
		return nil, nil
	}
	return &p.Latitude, &p.Longitude
}

func (s *Store) ListMaterials(ctx context.Context, f domain.MaterialFilter) ([]domain.Material, error) {
	var (
		conds []string
		args  []any
	)
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("lower(category) = lower($%d)", len(args)))
	}
	if f.SupplierID != "" {
		args = append(args, f.SupplierID)
		conds = append(conds, fmt.Sprintf("supplier_id = $%d", len(args)))
	}
	if f.Query != "" {
		args = append(args, likePattern(f.Query))
		conds = append(conds, fmt.Sprintf(`name ILIKE $%d ESCAPE '\'`, len(args)))
	}
	rows, err := s.pool.Query(ctx, `SELECT `+materialColumns+` FROM materials`+whereClause(conds)+` ORDER BY created_at DESC, id`, args...)
	if err != nil {
		return nil, classify("material.list", err)
	}
	ms, err := pgx.CollectRows(rows, scanMaterial)
	if err != nil {
		return nil, classify("material.list", err)
	}
	if ms == nil {
		ms = []domain.Material{}
	}
	return ms, nil
}

func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

func (s *Store) GetMaterial(ctx context.Context, id domain.MaterialID) (domain.Material, error) {
	return getMaterial(ctx, s.pool, id, false)
}

func getMaterial(ctx context.Context, q querier, id domain.MaterialID, forUpdate bool) (domain.Material, error) {
	sql := `SELECT ` + materialColumns + ` FROM materials WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, sql, string(id))
	if err != nil {
		return domain.Material{}, classify("material.get", err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanMaterial)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Material{}, domain.NotFound("material.get", "Material not found: %s", id)
	}
	return m, classify("material.get", err)
}

func (s *Store) CreateMaterial(ctx context.Context, m domain.Material) error {
	lat, lng := locationArgs(m.Location)
	_, err := s.pool.Exec(ctx, `INSERT INTO materials(`+materialColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		string(m.ID), m.Name, m.Price, m.Quantity, m.Unit, m.SupplierID, m.SupplierName, m.Category, m.Description,
		m.Rating, lat, lng, m.DeliveryRadiusKm, m.Version, m.CreatedAt, m.UpdatedAt)
	return classify("material.create", err)
}

// UpdateMaterial locks the row, applies fn and writes the result in one transaction.
func (s *Store) UpdateMaterial(ctx context.Context, id domain.MaterialID, fn func(*domain.Material) error) (domain.Material, error) {
	var m domain.Material
	err := s.withTx(ctx, "material.update", func(q pgx.Tx) error {
		var err error
		if m, err = getMaterial(ctx, q, id, true); err != nil {
			return err
		}
		if err := fn(&m); err != nil {
			return err
		}
		lat, lng := locationArgs(m.Location)
		_, err = q.Exec(ctx, `UPDATE materials SET name = $2, price = $3, quantity = $4, unit = $5, category = $6,
			description = $7, latitude = $8, longitude = $9, delivery_radius_km = $10, version = $11, updated_at = $12
			WHERE id = $1`,
			string(m.ID), m.Name, m.Price, m.Quantity, m.Unit, m.Category, m.Description, lat, lng, m.DeliveryRadiusKm,
			m.Version, m.UpdatedAt)
		return err
	})
	return m, err
}

func (s *Store) DeleteMaterial(ctx context.Context, id domain.MaterialID, check func(domain.Material) error) error {
	return s.withTx(ctx, "material.delete", func(q pgx.Tx) error {
		m, err := getMaterial(ctx, q, id, true)
		if err != nil {
			return err
		}
		if err := check(m); err != nil {
			return err
		}
		_, err = q.Exec(ctx, `DELETE FROM materials WHERE id = $1`, string(id))
		return err
	})
}

func (s *Store) withTx(ctx context.Context, op string, fn func(q pgx.Tx) error) error {
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify(op, err)
	}
	defer func() { _ = pgTx.Rollback(ctx) }()
	if err := fn(pgTx); err != nil {
		return classify(op, err)
	}
	return classify(op, pgTx.Commit(ctx))
}
