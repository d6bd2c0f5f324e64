package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/nazeru/materials-marketplace-go/internal/order/domain"
)

const userColumns = `id, name, email, password_hash, role, phone, address, business_name, latitude, longitude,
	created_at, updated_at`

func scanUser(row pgx.CollectableRow) (domain.User, error) {
	var (
		u        domain.User
		lat, lng *float64
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Phone, &u.Address, &u.BusinessName,
		&lat, &lng, &u.CreatedAt, &u.UpdatedAt)
	if lat != nil && lng != nil {
		u.Location = &domain.GeoPoint{Latitude: *lat, Longitude: *lng}
	}
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	lat, lng := locationArgs(u.Location)
	_, err := s.pool.Exec(ctx, `INSERT INTO users(`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.Phone, u.Address, u.BusinessName, lat, lng,
		u.CreatedAt, u.UpdatedAt)
	return classify("user.create", err)
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	return getUser(ctx, s.pool, `id = $1`, id, false)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return getUser(ctx, s.pool, `email = $1`, email, false)
}

func getUser(ctx context.Context, q querier, cond, arg string, forUpdate bool) (domain.User, error) {
	sql := `SELECT ` + userColumns + ` FROM users WHERE ` + cond
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, sql, arg)
	if err != nil {
		return domain.User{}, classify("user.get", err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.NotFound("user.get", "User not found")
	}
	return u, classify("user.get", err)
}

// UpdateUser locks the row, applies fn and writes the profile columns in one transaction.
func (s *Store) UpdateUser(ctx context.Context, id string, fn func(*domain.User) error) (domain.User, error) {
	var u domain.User
	err := s.withTx(ctx, "user.update", func(q pgx.Tx) error {
		var err error
		if u, err = getUser(ctx, q, `id = $1`, id, true); err != nil {
			return err
		}
		if err := fn(&u); err != nil {
			return err
		}
		lat, lng := locationArgs(u.Location)
		_, err = q.Exec(ctx, `UPDATE users SET name = $2, phone = $3, address = $4, business_name = $5,
			latitude = $6, longitude = $7, updated_at = $8 WHERE id = $1`,
			u.ID, u.Name, u.Phone, u.Address, u.BusinessName, lat, lng, u.UpdatedAt)
		return err
	})
	return u, err
}
