package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailnight/internal/model"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `u.id, u.name, u.surname, u.username, u.email, u.password_hash,
        u.image_url, u.about, u.is_online, u.created_at, u.last_login_at,
        COALESCE((SELECT array_agg(r.role ORDER BY r.role) FROM user_roles r WHERE r.user_id = u.id), '{}')`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Surname, &u.UserName, &u.Email, &u.PasswordHash,
		&u.ImageURL, &u.About, &u.IsOnline, &u.CreatedAt, &u.LastLoginAt,
		&u.Roles,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// Create inserts u together with its roles and fills in ID and CreatedAt.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		query := `
        INSERT INTO users (name, surname, username, email, password_hash, image_url, about)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at
    `
		err := tx.QueryRow(ctx, query,
			u.Name, u.Surname, u.UserName, u.Email, u.PasswordHash, u.ImageURL, u.About,
		).Scan(&u.ID, &u.CreatedAt)
		if err != nil {
			return translate(err)
		}
		for _, role := range u.Roles {
			if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, u.ID, role); err != nil {
				return fmt.Errorf("insert role %s: %w", role, err)
			}
		}
		return nil
	})
}

func (r *UserRepository) FindByID(ctx context.Context, id int) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// FindByEmail matches the address case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE LOWER(u.email) = LOWER($1)`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, email,
	).Scan(&exists)
	return exists, err
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`, username,
	).Scan(&exists)
	return exists, err
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id int, at time.Time) error {
	return r.execOne(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, u *model.User) error {
	query := `
        UPDATE users
        SET name = $2, surname = $3, about = $4, image_url = $5
        WHERE id = $1
    `
	return r.execOne(ctx, query, u.ID, u.Name, u.Surname, u.About, u.ImageURL)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int, hash string) error {
	return r.execOne(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
}

func (r *UserRepository) GetRoles(ctx context.Context, id int) ([]string, error) {
	var roles []string
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(array_agg(role ORDER BY role), '{}') FROM user_roles WHERE user_id = $1`, id,
	).Scan(&roles)
	return roles, err
}

func (r *UserRepository) AddRole(ctx context.Context, id int, role string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, role)
	return translate(err)
}

func (r *UserRepository) RemoveRole(ctx context.Context, id int, role string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, id, role)
	return err
}

// List returns a page of users, newest first, with the number of emails
// each has sent or received.
func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]model.AdminUser, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
        SELECT ` + userColumns + `,
            (SELECT COUNT(*) FROM emails e WHERE e.sender_id = u.id OR e.receiver_id = u.id)
        FROM users u
        ORDER BY u.created_at DESC, u.id DESC
        LIMIT $1 OFFSET $2
    `
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []model.AdminUser
	for rows.Next() {
		var au model.AdminUser
		u := &au.User
		if err := rows.Scan(
			&u.ID, &u.Name, &u.Surname, &u.UserName, &u.Email, &u.PasswordHash,
			&u.ImageURL, &u.About, &u.IsOnline, &u.CreatedAt, &u.LastLoginAt,
			&u.Roles, &au.EmailCount,
		); err != nil {
			return nil, 0, err
		}
		users = append(users, au)
	}
	return users, total, rows.Err()
}

// DeleteWithEmails removes every email the user sent or received, then the
// user. Emails reference users with ON DELETE RESTRICT, so the order matters.
func (r *UserRepository) DeleteWithEmails(ctx context.Context, id int) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM emails WHERE sender_id = $1 OR receiver_id = $1`, id); err != nil {
			return fmt.Errorf("delete emails: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *UserRepository) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
