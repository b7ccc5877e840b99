// Пакет repository — слой доступа к данным PostgreSQL.
// Все запросы — чистый SQL через pgx, без ORM.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict — конфликт уникальности (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — запись уже существует")
)

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repos — набор репозиториев над одним DBTX.
// Вне транзакции DBTX — это пул; внутри Atomic — транзакция pgx.
type Repos struct {
	Rooms           RoomRepository
	Users           UserRepository
	Grants          AccessGrantRepository
	KeyTransactions KeyTransactionRepository
	NightPasses     NightPassRepository
}

// newRepos создаёт набор репозиториев над db.
func newRepos(db DBTX) *Repos {
	return &Repos{
		Rooms:           NewRoomRepository(db),
		Users:           NewUserRepository(db),
		Grants:          NewAccessGrantRepository(db),
		KeyTransactions: NewKeyTransactionRepository(db),
		NightPasses:     NewNightPassRepository(db),
	}
}

// Store — точка доступа сервисного слоя к данным.
// Repos() — репозитории над пулом для одиночных операций.
// Atomic() — многошаговые эффекты в одной транзакции: журнал,
// флаг комнаты и разрешение коммитятся или откатываются вместе.
type Store struct {
	pool  *pgxpool.Pool
	repos *Repos
}

// NewStore создаёт Store над пулом подключений.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:  pool,
		repos: newRepos(pool),
	}
}

// Repos возвращает репозитории над пулом (вне транзакции).
func (s *Store) Repos() *Repos {
	return s.repos
}

// Atomic выполняет fn с транзакционным набором репозиториев.
// При ошибке fn — транзакция откатывается. При успехе — коммитится.
func (s *Store) Atomic(ctx context.Context, fn func(r *Repos) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // откат после коммита — no-op

	if err := fn(newRepos(tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникальности PostgreSQL.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
