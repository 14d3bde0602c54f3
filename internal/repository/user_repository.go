package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/collabdir/directory-service/internal/domain"
)

// UserRepository defines persistence access for directory collaborators.
// GetByEmail is the authentication lookup and is the only read that
// populates the password hash.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (gender, firstname, lastname, email, password_hash, phone, birthdate, city, country, photo, category, is_admin)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Gender,
		user.Firstname,
		user.Lastname,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.Birthdate,
		user.City,
		user.Country,
		user.Photo,
		user.Category,
		user.IsAdmin,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users
        SET gender=$1, firstname=$2, lastname=$3, email=$4, password_hash=$5, phone=$6,
            birthdate=$7, city=$8, country=$9, photo=$10, category=$11, is_admin=$12, updated_at=NOW()
        WHERE id=$13`

	cmd, err := r.pool.Exec(ctx, query,
		user.Gender,
		user.Firstname,
		user.Lastname,
		user.Email,
		user.PasswordHash,
		user.Phone,
		user.Birthdate,
		user.City,
		user.Country,
		user.Photo,
		user.Category,
		user.IsAdmin,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, gender, firstname, lastname, email, phone, birthdate, city, country, photo, category, is_admin, created_at, updated_at
        FROM users WHERE id=$1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Gender,
		&user.Firstname,
		&user.Lastname,
		&user.Email,
		&user.Phone,
		&user.Birthdate,
		&user.City,
		&user.Country,
		&user.Photo,
		&user.Category,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, gender, firstname, lastname, email, password_hash, phone, birthdate, city, country, photo, category, is_admin, created_at, updated_at
        FROM users WHERE LOWER(email)=LOWER($1)`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Gender,
		&user.Firstname,
		&user.Lastname,
		&user.Email,
		&user.PasswordHash,
		&user.Phone,
		&user.Birthdate,
		&user.City,
		&user.Country,
		&user.Photo,
		&user.Category,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	const query = `
        SELECT id, gender, firstname, lastname, email, phone, birthdate, city, country, photo, category, is_admin, created_at, updated_at
        FROM users ORDER BY lastname, firstname`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Gender,
			&user.Firstname,
			&user.Lastname,
			&user.Email,
			&user.Phone,
			&user.Birthdate,
			&user.City,
			&user.Country,
			&user.Photo,
			&user.Category,
			&user.IsAdmin,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		users = append(users, &user)
	}
	return users, rows.Err()
}
