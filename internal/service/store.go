// store.go — абстракция доступа к данным для сервисного слоя.
package service

import (
	"context"

	"github.com/hostelms/key-module/internal/repository"
)

// Store — доступ сервисов к репозиториям.
// Реализуется repository.Store; в тестах подменяется моком,
// у которого Atomic выполняет fn без транзакции.
type Store interface {
	// Repos возвращает репозитории для одиночных операций.
	Repos() *repository.Repos
	// Atomic выполняет fn атомарно: все эффекты коммитятся или откатываются вместе.
	Atomic(ctx context.Context, fn func(r *repository.Repos) error) error
}
