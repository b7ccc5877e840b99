package repository

import (
	"context"
	"fmt"

	"github.com/hostelms/key-module/internal/domain/model"
)

// KeyTransactionRepository — интерфейс доступа к журналу передач ключей.
// Журнал append-only: записи не изменяются и не удаляются.
type KeyTransactionRepository interface {
	// Create добавляет запись в журнал.
	Create(ctx context.Context, tx *model.KeyTransaction) error
	// ListRecent возвращает последние записи журнала (новые первыми).
	ListRecent(ctx context.Context, limit int) ([]*model.KeyTransaction, error)
}

// keyTransactionRepo — реализация KeyTransactionRepository.
type keyTransactionRepo struct {
	db DBTX
}

// NewKeyTransactionRepository создаёт репозиторий журнала передач.
func NewKeyTransactionRepository(db DBTX) KeyTransactionRepository {
	return &keyTransactionRepo{db: db}
}

func (r *keyTransactionRepo) Create(ctx context.Context, tx *model.KeyTransaction) error {
	query := `
		INSERT INTO key_transactions (id, type, name, registration_number,
			room_number, date, time, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		tx.ID, tx.Type, tx.Name, tx.RegistrationNumber,
		tx.RoomNumber, tx.Date, tx.Time, tx.SubmittedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: запись журнала с таким ключом уже существует", ErrConflict)
		}
		return fmt.Errorf("ошибка записи в журнал передач: %w", err)
	}
	return nil
}

func (r *keyTransactionRepo) ListRecent(ctx context.Context, limit int) ([]*model.KeyTransaction, error) {
	query := `
		SELECT id, type, name, registration_number, room_number, date, time, submitted_at
		FROM key_transactions
		ORDER BY submitted_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала передач: %w", err)
	}
	defer rows.Close()

	var result []*model.KeyTransaction
	for rows.Next() {
		tx := &model.KeyTransaction{}
		if err := rows.Scan(
			&tx.ID, &tx.Type, &tx.Name, &tx.RegistrationNumber,
			&tx.RoomNumber, &tx.Date, &tx.Time, &tx.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи журнала: %w", err)
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}
