package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hostelms/key-module/internal/domain/model"
)

// RoomRepository — интерфейс доступа к таблице rooms.
type RoomRepository interface {
	// Upsert создаёт комнату или перезаписывает существующую (для provisioning).
	Upsert(ctx context.Context, room *model.Room) error
	// GetByNumber возвращает комнату по номеру.
	GetByNumber(ctx context.Context, number string) (*model.Room, error)
	// List возвращает все комнаты, отсортированные по номеру.
	List(ctx context.Context) ([]*model.Room, error)
	// SetKeyAvailable обновляет флаг владения ключом.
	SetKeyAvailable(ctx context.Context, number string, keyAvailable bool) error
	// SetNightPassFlag обновляет флаг наличия запроса ночного пропуска.
	SetNightPassFlag(ctx context.Context, number string, has bool) error
}

// roomRepo — реализация RoomRepository.
type roomRepo struct {
	db DBTX
}

// NewRoomRepository создаёт репозиторий комнат.
func NewRoomRepository(db DBTX) RoomRepository {
	return &roomRepo{db: db}
}

const roomColumns = `number, key_available, has_night_pass_request, students, created_at, updated_at`

// scanRoom сканирует строку результата в модель Room.
func scanRoom(row pgx.Row) (*model.Room, error) {
	room := &model.Room{}
	err := row.Scan(
		&room.Number, &room.KeyAvailable, &room.HasNightPassRequest,
		&room.Students, &room.CreatedAt, &room.UpdatedAt,
	)
	return room, err
}

func (r *roomRepo) Upsert(ctx context.Context, room *model.Room) error {
	query := `
		INSERT INTO rooms (number, key_available, has_night_pass_request, students)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (number) DO UPDATE
		SET key_available = EXCLUDED.key_available,
			has_night_pass_request = EXCLUDED.has_night_pass_request,
			students = EXCLUDED.students,
			updated_at = now()
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		room.Number, room.KeyAvailable, room.HasNightPassRequest, room.Students,
	).Scan(&room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения комнаты: %w", err)
	}
	return nil
}

func (r *roomRepo) GetByNumber(ctx context.Context, number string) (*model.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms WHERE number = $1`, roomColumns)
	room, err := scanRoom(r.db.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения комнаты: %w", err)
	}
	return room, nil
}

func (r *roomRepo) List(ctx context.Context) ([]*model.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms ORDER BY number`, roomColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка комнат: %w", err)
	}
	defer rows.Close()

	var result []*model.Room
	for rows.Next() {
		room := &model.Room{}
		if err := rows.Scan(
			&room.Number, &room.KeyAvailable, &room.HasNightPassRequest,
			&room.Students, &room.CreatedAt, &room.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования комнаты: %w", err)
		}
		result = append(result, room)
	}
	return result, rows.Err()
}

func (r *roomRepo) SetKeyAvailable(ctx context.Context, number string, keyAvailable bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE rooms SET key_available = $2, updated_at = now() WHERE number = $1`,
		number, keyAvailable,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления флага ключа: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *roomRepo) SetNightPassFlag(ctx context.Context, number string, has bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE rooms SET has_night_pass_request = $2, updated_at = now() WHERE number = $1`,
		number, has,
	)
	if err != nil {
		return fmt.Errorf("ошибка обновления флага ночного пропуска: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
