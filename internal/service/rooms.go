// rooms.go — сервис комнат: списки и карточка комнаты с раскрытием
// проживающих студентов. Карточки студентов резолвятся через LRU-кеш.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hostelms/key-module/internal/domain/model"
	"github.com/hostelms/key-module/internal/repository"
)

// RoomService — сервис комнат.
type RoomService struct {
	store  Store
	cache  *StudentCache
	logger *slog.Logger
}

// NewRoomService создаёт сервис комнат.
func NewRoomService(store Store, cache *StudentCache, logger *slog.Logger) *RoomService {
	return &RoomService{
		store:  store,
		cache:  cache,
		logger: logger.With(slog.String("component", "room_service")),
	}
}

// RoomView — комната с раскрытыми карточками студентов.
type RoomView struct {
	Number              string
	KeyAvailable        bool
	HasNightPassRequest bool
	Students            []model.StudentRef
}

// RoomDetail — карточка комнаты с текущим запросом ночного пропуска (если есть).
type RoomDetail struct {
	RoomView
	NightPassRequest *model.NightPassRequest
}

// resolveStudents раскрывает идентификаторы студентов в краткие карточки.
// Неизвестные идентификаторы пропускаются с предупреждением — список жильцов
// комнаты не должен падать из-за осиротевшей ссылки.
func (s *RoomService) resolveStudents(ctx context.Context, ids []string) ([]model.StudentRef, error) {
	refs := make([]model.StudentRef, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.cache.Get(id); ok {
			refs = append(refs, u.Ref())
			continue
		}

		u, err := s.store.Repos().Users.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("Студент из списка комнаты не найден",
					slog.String("student_id", id),
				)
				continue
			}
			return nil, err
		}

		s.cache.Add(id, u)
		refs = append(refs, u.Ref())
	}
	return refs, nil
}

// view строит RoomView из модели комнаты.
func (s *RoomService) view(ctx context.Context, room *model.Room) (*RoomView, error) {
	students, err := s.resolveStudents(ctx, room.Students)
	if err != nil {
		return nil, err
	}
	return &RoomView{
		Number:              room.Number,
		KeyAvailable:        room.KeyAvailable,
		HasNightPassRequest: room.HasNightPassRequest,
		Students:            students,
	}, nil
}

// List возвращает все комнаты с раскрытыми студентами, по возрастанию номера.
func (s *RoomService) List(ctx context.Context) ([]*RoomView, error) {
	rooms, err := s.store.Repos().Rooms.List(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]*RoomView, 0, len(rooms))
	for _, room := range rooms {
		v, err := s.view(ctx, room)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// Get возвращает карточку комнаты с текущим запросом ночного пропуска.
// Возвращает ErrNotFound, если комната не существует.
func (s *RoomService) Get(ctx context.Context, number string) (*RoomDetail, error) {
	room, err := s.store.Repos().Rooms.GetByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: комната %s", ErrNotFound, number)
		}
		return nil, err
	}

	v, err := s.view(ctx, room)
	if err != nil {
		return nil, err
	}
	detail := &RoomDetail{RoomView: *v}

	np, err := s.store.Repos().NightPasses.GetByRoom(ctx, number)
	switch {
	case err == nil:
		detail.NightPassRequest = np
	case errors.Is(err, repository.ErrNotFound):
		// Запроса нет — поле остаётся пустым
	default:
		return nil, err
	}

	return detail, nil
}
