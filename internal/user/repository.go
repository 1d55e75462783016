package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("user with this email already exists")
	ErrUserExists  = errors.New("user with this username already exists")
	ErrNoAddress   = errors.New("user has no default address")
)

type Repository interface {
	Create(ctx context.Context, user *User) (int64, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) error
	GetDefaultAddress(ctx context.Context, userID int64) (*Address, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, user *User) (int64, error) {
	if len(user.Roles) == 0 {
		user.Roles = []string{RoleBuyer}
	}

	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash, first_name, last_name, phone, roles)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, user.Username, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Phone, user.Roles).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if pgErr.ConstraintName == "users_email_key" {
				return 0, ErrEmailExists
			}
			return 0, ErrUserExists
		}
		return 0, fmt.Errorf("repository: failed to insert user: %w", err)
	}

	user.ID = id
	return id, nil
}

const userColumns = `id, username, email, password_hash, first_name, last_name, phone, roles, created_at, updated_at`

func scanUser(row pgx.Row, u *User) error {
	return row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &u.Phone, &u.Roles, &u.CreatedAt, &u.UpdatedAt)
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	var u User
	err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id), &u)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select user %d: %w", id, err)
	}
	return &u, nil
}

func (r *postgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username), &u)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select user %q: %w", username, err)
	}
	return &u, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var u User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("repository: failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating users: %w", err)
	}

	return users, nil
}

func (r *postgresRepository) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{User: *u}

	addr, err := r.GetDefaultAddress(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNoAddress) {
			return profile, nil
		}
		return nil, err
	}
	profile.Address = addr

	return profile, nil
}

func (r *postgresRepository) GetDefaultAddress(ctx context.Context, userID int64) (*Address, error) {
	var a Address
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, label, line1, city, postal_code, country, is_default
		FROM addresses
		WHERE user_id = $1 AND is_default
		LIMIT 1
	`, userID).Scan(&a.ID, &a.UserID, &a.Label, &a.Line1, &a.City, &a.PostalCode, &a.Country, &a.IsDefault)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoAddress
		}
		return nil, fmt.Errorf("repository: failed to select default address for user %d: %w", userID, err)
	}
	return &a, nil
}

// UpdateProfile updates the account fields and upserts the default address in
// one transaction.
func (r *postgresRepository) UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Int64("user_id", userID).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Int64("user_id", userID).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	cmdTag, err := tx.Exec(ctx, `
		UPDATE users
		SET first_name = $1, last_name = $2, email = $3, phone = $4, updated_at = $5
		WHERE id = $6
	`, update.FirstName, update.LastName, update.Email, update.Phone, time.Now().UTC(), userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			err = ErrEmailExists
			return err
		}
		return fmt.Errorf("repository: failed to update user %d: %w", userID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		err = ErrNotFound
		return err
	}

	if update.Line1 == "" && update.City == "" {
		return nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO addresses (user_id, label, line1, city, postal_code, country, is_default)
		VALUES ($1, 'Home', $2, $3, $4, $5, TRUE)
		ON CONFLICT (user_id) WHERE is_default
		DO UPDATE SET line1 = EXCLUDED.line1, city = EXCLUDED.city,
		              postal_code = EXCLUDED.postal_code, country = EXCLUDED.country
	`, userID, update.Line1, update.City, update.PostalCode, update.Country)
	if err != nil {
		return fmt.Errorf("repository: failed to upsert default address for user %d: %w", userID, err)
	}

	return nil
}
