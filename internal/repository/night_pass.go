package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hostelms/key-module/internal/domain/model"
)

// NightPassRepository — интерфейс доступа к таблице night_pass_requests.
// Одна ячейка на комнату: Upsert перезаписывает предыдущий запрос.
type NightPassRepository interface {
	// Upsert сохраняет запрос комнаты, перезаписывая предыдущий (last-write-wins).
	Upsert(ctx context.Context, req *model.NightPassRequest) error
	// GetByRoom возвращает запрос комнаты или ErrNotFound.
	GetByRoom(ctx context.Context, roomNumber string) (*model.NightPassRequest, error)
	// Approve переводит запрос комнаты в статус approved.
	// Возвращает ErrNotFound, если запроса нет.
	Approve(ctx context.Context, roomNumber, approvedBy string, approvedAt time.Time) error
	// List возвращает все запросы, новые первыми.
	List(ctx context.Context) ([]*model.NightPassRequest, error)
}

// nightPassRepo — реализация NightPassRepository.
type nightPassRepo struct {
	db DBTX
}

// NewNightPassRepository создаёт репозиторий ночных пропусков.
func NewNightPassRepository(db DBTX) NightPassRepository {
	return &nightPassRepo{db: db}
}

const nightPassColumns = `id, student_name, registration_number, room_number, date,
	arrival_time, dispatch_time, reason, status, submitted_at, approved_at, approved_by`

// scanNightPass сканирует строку результата в модель NightPassRequest.
func scanNightPass(row pgx.Row) (*model.NightPassRequest, error) {
	np := &model.NightPassRequest{}
	err := row.Scan(
		&np.ID, &np.StudentName, &np.RegistrationNumber, &np.RoomNumber, &np.Date,
		&np.ArrivalTime, &np.DispatchTime, &np.Reason, &np.Status,
		&np.SubmittedAt, &np.ApprovedAt, &np.ApprovedBy,
	)
	return np, err
}

func (r *nightPassRepo) Upsert(ctx context.Context, req *model.NightPassRequest) error {
	query := `
		INSERT INTO night_pass_requests (room_number, id, student_name, registration_number,
			date, arrival_time, dispatch_time, reason, status, submitted_at, approved_at, approved_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (room_number) DO UPDATE
		SET id = EXCLUDED.id,
			student_name = EXCLUDED.student_name,
			registration_number = EXCLUDED.registration_number,
			date = EXCLUDED.date,
			arrival_time = EXCLUDED.arrival_time,
			dispatch_time = EXCLUDED.dispatch_time,
			reason = EXCLUDED.reason,
			status = EXCLUDED.status,
			submitted_at = EXCLUDED.submitted_at,
			approved_at = EXCLUDED.approved_at,
			approved_by = EXCLUDED.approved_by`

	_, err := r.db.Exec(ctx, query,
		req.RoomNumber, req.ID, req.StudentName, req.RegistrationNumber,
		req.Date, req.ArrivalTime, req.DispatchTime, req.Reason, req.Status,
		req.SubmittedAt, req.ApprovedAt, req.ApprovedBy,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения запроса ночного пропуска: %w", err)
	}
	return nil
}

func (r *nightPassRepo) GetByRoom(ctx context.Context, roomNumber string) (*model.NightPassRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM night_pass_requests WHERE room_number = $1`, nightPassColumns)
	np, err := scanNightPass(r.db.QueryRow(ctx, query, roomNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения запроса ночного пропуска: %w", err)
	}
	return np, nil
}

func (r *nightPassRepo) Approve(ctx context.Context, roomNumber, approvedBy string, approvedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE night_pass_requests
		SET status = $2, approved_at = $3, approved_by = $4
		WHERE room_number = $1`,
		roomNumber, model.NightPassApproved, approvedAt, approvedBy,
	)
	if err != nil {
		return fmt.Errorf("ошибка одобрения ночного пропуска: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *nightPassRepo) List(ctx context.Context) ([]*model.NightPassRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM night_pass_requests ORDER BY submitted_at DESC`, nightPassColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка ночных пропусков: %w", err)
	}
	defer rows.Close()

	var result []*model.NightPassRequest
	for rows.Next() {
		np := &model.NightPassRequest{}
		if err := rows.Scan(
			&np.ID, &np.StudentName, &np.RegistrationNumber, &np.RoomNumber, &np.Date,
			&np.ArrivalTime, &np.DispatchTime, &np.Reason, &np.Status,
			&np.SubmittedAt, &np.ApprovedAt, &np.ApprovedBy,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования запроса: %w", err)
		}
		result = append(result, np)
	}
	return result, rows.Err()
}
