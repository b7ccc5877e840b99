package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hostelms/key-module/internal/domain/model"
)

// UserRepository — интерфейс доступа к таблице users.
type UserRepository interface {
	// Create создаёт пользователя.
	Create(ctx context.Context, user *model.User) error
	// Upsert создаёт пользователя или перезаписывает существующего (для provisioning).
	Upsert(ctx context.Context, user *model.User) error
	// GetByID возвращает пользователя по идентификатору.
	GetByID(ctx context.Context, id string) (*model.User, error)
	// ListByRole возвращает пользователей с указанной ролью.
	ListByRole(ctx context.Context, role string) ([]*model.User, error)
	// SetApproved обновляет флаг одобрения регистрации.
	SetApproved(ctx context.Context, id string, approved bool) error
}

// userRepo — реализация UserRepository.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

const userColumns = `id, name, role, registration_number, username, phone_number,
	room_number, approved, auth_id, created_at, updated_at`

// scanUser сканирует строку результата в модель User.
func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(
		&u.ID, &u.Name, &u.Role, &u.RegistrationNumber, &u.Username, &u.PhoneNumber,
		&u.RoomNumber, &u.Approved, &u.AuthID, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, name, role, registration_number, username, phone_number,
			room_number, approved, auth_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		user.ID, user.Name, user.Role, user.RegistrationNumber, user.Username,
		user.PhoneNumber, user.RoomNumber, user.Approved, user.AuthID,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: пользователь с таким идентификатором уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) Upsert(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, name, role, registration_number, username, phone_number,
			room_number, approved, auth_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			role = EXCLUDED.role,
			registration_number = EXCLUDED.registration_number,
			username = EXCLUDED.username,
			phone_number = EXCLUDED.phone_number,
			room_number = EXCLUDED.room_number,
			approved = EXCLUDED.approved,
			auth_id = EXCLUDED.auth_id,
			updated_at = now()
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		user.ID, user.Name, user.Role, user.RegistrationNumber, user.Username,
		user.PhoneNumber, user.RoomNumber, user.Approved, user.AuthID,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения пользователя: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения пользователя: %w", err)
	}
	return u, nil
}

func (r *userRepo) ListByRole(ctx context.Context, role string) ([]*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE role = $1 ORDER BY id`, userColumns)

	rows, err := r.db.Query(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка пользователей: %w", err)
	}
	defer rows.Close()

	var result []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(
			&u.ID, &u.Name, &u.Role, &u.RegistrationNumber, &u.Username, &u.PhoneNumber,
			&u.RoomNumber, &u.Approved, &u.AuthID, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования пользователя: %w", err)
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (r *userRepo) SetApproved(ctx context.Context, id string, approved bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET approved = $2, updated_at = now() WHERE id = $1`,
		id, approved,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления флага одобрения: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
