// cache.go — LRU-кеш карточек студентов с TTL.
// Снижает нагрузку на PostgreSQL при раскрытии списков жильцов комнат:
// страница комнат резолвит одних и тех же студентов на каждый запрос.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hostelms/key-module/internal/domain/model"
)

// Метрики кеша
var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "km_student_cache_hits_total",
		Help: "Попадания в кеш карточек студентов",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "km_student_cache_misses_total",
		Help: "Промахи кеша карточек студентов",
	})
)

// StudentCache — потокобезопасный LRU-кеш карточек студентов с TTL.
type StudentCache struct {
	lru *expirable.LRU[string, *model.User]
}

// NewStudentCache создаёт кеш на size записей с временем жизни ttl.
func NewStudentCache(size int, ttl time.Duration) *StudentCache {
	return &StudentCache{
		lru: expirable.NewLRU[string, *model.User](size, nil, ttl),
	}
}

// Get возвращает карточку студента из кеша.
func (c *StudentCache) Get(id string) (*model.User, bool) {
	u, ok := c.lru.Get(id)
	if ok {
		cacheHits.Inc()
	} else {
		cacheMisses.Inc()
	}
	return u, ok
}

// Add помещает карточку студента в кеш.
func (c *StudentCache) Add(id string, u *model.User) {
	c.lru.Add(id, u)
}

// Invalidate удаляет карточку из кеша (после изменения учётной записи).
func (c *StudentCache) Invalidate(id string) {
	c.lru.Remove(id)
}

// Purge очищает кеш целиком (после provisioning демо-данных).
func (c *StudentCache) Purge() {
	c.lru.Purge()
}
