// nightpass.go — сервис ночных пропусков.
// Одна ячейка запроса на комнату: повторная подача перезаписывает предыдущий
// запрос (last-write-wins). Подача и одобрение — многошаговые эффекты
// (запись + флаг комнаты), выполняются в одной транзакции.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hostelms/key-module/internal/domain/model"
	"github.com/hostelms/key-module/internal/repository"
)

// NightPassService — сервис ночных пропусков.
type NightPassService struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// NewNightPassService создаёт сервис ночных пропусков.
func NewNightPassService(store Store, logger *slog.Logger) *NightPassService {
	return &NightPassService{
		store:  store,
		now:    time.Now,
		logger: logger.With(slog.String("component", "nightpass_service")),
	}
}

// NightPassInput — параметры запроса ночного пропуска.
type NightPassInput struct {
	StudentName        string
	RegistrationNumber string
	RoomNumber         string
	// Date — дата отсутствия.
	Date string
	// ArrivalTime, DispatchTime — планируемое время возвращения и ухода.
	ArrivalTime  string
	DispatchTime string
	// Reason — причина отсутствия.
	Reason string
}

// validate проверяет обязательные поля запроса.
func (in *NightPassInput) validate() error {
	switch {
	case in.RoomNumber == "":
		return fmt.Errorf("%w: номер комнаты обязателен", ErrValidation)
	case in.StudentName == "":
		return fmt.Errorf("%w: имя студента обязательно", ErrValidation)
	case in.RegistrationNumber == "":
		return fmt.Errorf("%w: регистрационный номер обязателен", ErrValidation)
	case in.Date == "":
		return fmt.Errorf("%w: дата обязательна", ErrValidation)
	}
	return nil
}

// Submit подаёт запрос ночного пропуска для комнаты.
// Атомарно: перезаписывает ячейку запроса комнаты и поднимает флаг комнаты.
// Возвращает ErrNotFound, если комната не существует.
func (s *NightPassService) Submit(ctx context.Context, in *NightPassInput) (*model.NightPassRequest, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	submittedAt := s.now().UTC()
	req := &model.NightPassRequest{
		ID:                 model.NightPassID(submittedAt, in.RegistrationNumber),
		StudentName:        in.StudentName,
		RegistrationNumber: in.RegistrationNumber,
		RoomNumber:         in.RoomNumber,
		Date:               in.Date,
		ArrivalTime:        in.ArrivalTime,
		DispatchTime:       in.DispatchTime,
		Reason:             in.Reason,
		Status:             model.NightPassPending,
		SubmittedAt:        submittedAt,
	}

	err := s.store.Atomic(ctx, func(r *repository.Repos) error {
		if _, err := r.Rooms.GetByNumber(ctx, in.RoomNumber); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: комната %s", ErrNotFound, in.RoomNumber)
			}
			return err
		}
		if err := r.NightPasses.Upsert(ctx, req); err != nil {
			return err
		}
		return r.Rooms.SetNightPassFlag(ctx, in.RoomNumber, true)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Запрос ночного пропуска подан",
		slog.String("room", in.RoomNumber),
		slog.String("registration_number", in.RegistrationNumber),
	)

	return req, nil
}

// Approve одобряет запрос ночного пропуска комнаты от имени approvedBy.
// Атомарно: переводит запрос в approved и опускает флаг комнаты.
// Отсутствие записи запроса не считается ошибкой: флаг всё равно
// опускается, чтобы комната не зависла с поднятым флагом, а результат — nil.
func (s *NightPassService) Approve(ctx context.Context, roomNumber, approvedBy string) (*model.NightPassRequest, error) {
	if roomNumber == "" {
		return nil, fmt.Errorf("%w: номер комнаты обязателен", ErrValidation)
	}

	var (
		approved *model.NightPassRequest
		missing  bool
	)

	err := s.store.Atomic(ctx, func(r *repository.Repos) error {
		if _, err := r.Rooms.GetByNumber(ctx, roomNumber); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: комната %s", ErrNotFound, roomNumber)
			}
			return err
		}

		err := r.NightPasses.Approve(ctx, roomNumber, approvedBy, s.now().UTC())
		switch {
		case errors.Is(err, repository.ErrNotFound):
			missing = true
		case err != nil:
			return err
		}

		if err := r.Rooms.SetNightPassFlag(ctx, roomNumber, false); err != nil {
			return err
		}

		if !missing {
			approved, err = r.NightPasses.GetByRoom(ctx, roomNumber)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if missing {
		s.logger.Warn("Одобрение без записи запроса: флаг комнаты опущен",
			slog.String("room", roomNumber),
		)
		return nil, nil
	}

	s.logger.Info("Ночной пропуск одобрен",
		slog.String("room", roomNumber),
		slog.String("approved_by", approvedBy),
	)

	return approved, nil
}

// Get возвращает запрос ночного пропуска комнаты.
// Возвращает ErrNotFound, если запроса нет.
func (s *NightPassService) Get(ctx context.Context, roomNumber string) (*model.NightPassRequest, error) {
	req, err := s.store.Repos().NightPasses.GetByRoom(ctx, roomNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: запрос ночного пропуска для комнаты %s", ErrNotFound, roomNumber)
		}
		return nil, err
	}
	return req, nil
}

// List возвращает все запросы ночных пропусков, новые первыми.
func (s *NightPassService) List(ctx context.Context) ([]*model.NightPassRequest, error) {
	return s.store.Repos().NightPasses.List(ctx)
}
