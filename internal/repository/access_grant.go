package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hostelms/key-module/internal/domain/model"
)

// AccessGrantRepository — интерфейс доступа к таблице access_grants.
// Не более одной записи на комнату: Upsert перезаписывает, Delete идемпотентен.
type AccessGrantRepository interface {
	// Upsert выдаёт разрешение для комнаты, перезаписывая существующее.
	Upsert(ctx context.Context, grant *model.AccessGrant) error
	// GetByRoom возвращает живое разрешение комнаты или ErrNotFound.
	GetByRoom(ctx context.Context, roomNumber string) (*model.AccessGrant, error)
	// Delete удаляет разрешение комнаты. Отсутствие записи — не ошибка.
	Delete(ctx context.Context, roomNumber string) error
}

// accessGrantRepo — реализация AccessGrantRepository.
type accessGrantRepo struct {
	db DBTX
}

// NewAccessGrantRepository создаёт репозиторий разрешений.
func NewAccessGrantRepository(db DBTX) AccessGrantRepository {
	return &accessGrantRepo{db: db}
}

func (r *accessGrantRepo) Upsert(ctx context.Context, grant *model.AccessGrant) error {
	query := `
		INSERT INTO access_grants (room_number, granted, granted_by, granted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (room_number) DO UPDATE
		SET granted = EXCLUDED.granted,
			granted_by = EXCLUDED.granted_by,
			granted_at = EXCLUDED.granted_at`

	_, err := r.db.Exec(ctx, query,
		grant.RoomNumber, grant.Granted, grant.GrantedBy, grant.GrantedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка выдачи разрешения: %w", err)
	}
	return nil
}

func (r *accessGrantRepo) GetByRoom(ctx context.Context, roomNumber string) (*model.AccessGrant, error) {
	query := `SELECT room_number, granted, granted_by, granted_at
		FROM access_grants WHERE room_number = $1`

	grant := &model.AccessGrant{}
	err := r.db.QueryRow(ctx, query, roomNumber).Scan(
		&grant.RoomNumber, &grant.Granted, &grant.GrantedBy, &grant.GrantedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения разрешения: %w", err)
	}
	return grant, nil
}

func (r *accessGrantRepo) Delete(ctx context.Context, roomNumber string) error {
	// Идемпотентное удаление: разрешения могло и не быть
	_, err := r.db.Exec(ctx, `DELETE FROM access_grants WHERE room_number = $1`, roomNumber)
	if err != nil {
		return fmt.Errorf("ошибка удаления разрешения: %w", err)
	}
	return nil
}
