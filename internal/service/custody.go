// custody.go — сервис владения ключами комнат.
// Разрешения охраны, журнал передач и переключение состояния ключа.
// Операция с ключом — многошаговый эффект (журнал + флаг комнаты +
// погашение разрешения), выполняется в одной транзакции.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hostelms/key-module/internal/domain/custody"
	"github.com/hostelms/key-module/internal/domain/model"
	"github.com/hostelms/key-module/internal/repository"
)

// CustodyService — сервис владения ключами.
type CustodyService struct {
	store    Store
	logLimit int
	now      func() time.Time
	logger   *slog.Logger
}

// NewCustodyService создаёт сервис владения ключами.
// logLimit — максимум записей в ответе журнала передач.
func NewCustodyService(store Store, logLimit int, logger *slog.Logger) *CustodyService {
	return &CustodyService{
		store:    store,
		logLimit: logLimit,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "custody_service")),
	}
}

// GrantAccess выдаёт разрешение на операцию с ключом комнаты.
// Повторная выдача перезаписывает предыдущее разрешение (остаётся одно живое).
// Возвращает ErrNotFound, если комната не существует.
func (s *CustodyService) GrantAccess(ctx context.Context, roomNumber, grantedBy string) (*model.AccessGrant, error) {
	if roomNumber == "" {
		return nil, fmt.Errorf("%w: номер комнаты обязателен", ErrValidation)
	}

	repos := s.store.Repos()

	if _, err := repos.Rooms.GetByNumber(ctx, roomNumber); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: комната %s", ErrNotFound, roomNumber)
		}
		return nil, err
	}

	grant := &model.AccessGrant{
		RoomNumber: roomNumber,
		Granted:    true,
		GrantedBy:  grantedBy,
		GrantedAt:  s.now().UTC(),
	}
	if err := repos.Grants.Upsert(ctx, grant); err != nil {
		return nil, err
	}

	s.logger.Info("Разрешение на операцию с ключом выдано",
		slog.String("room", roomNumber),
		slog.String("granted_by", grantedBy),
	)

	return grant, nil
}

// CheckAccess возвращает живое разрешение комнаты.
// Если разрешения нет — granted = false, grant = nil (не ошибка).
func (s *CustodyService) CheckAccess(ctx context.Context, roomNumber string) (bool, *model.AccessGrant, error) {
	grant, err := s.store.Repos().Grants.GetByRoom(ctx, roomNumber)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil, nil
		}
		return false, nil, err
	}
	return grant.Granted, grant, nil
}

// KeyTransactionInput — параметры операции передачи ключа.
type KeyTransactionInput struct {
	// Type — тип операции: giving или receiving (допустим алиас taking).
	Type string
	// Name — имя студента.
	Name string
	// RegistrationNumber — регистрационный номер студента.
	RegistrationNumber string
	// RoomNumber — номер комнаты.
	RoomNumber string
	// Date, Time — дата и время операции в записи журнала.
	Date string
	Time string
}

// validate проверяет обязательные поля операции.
func (in *KeyTransactionInput) validate() error {
	switch {
	case in.RoomNumber == "":
		return fmt.Errorf("%w: номер комнаты обязателен", ErrValidation)
	case in.Name == "":
		return fmt.Errorf("%w: имя студента обязательно", ErrValidation)
	case in.RegistrationNumber == "":
		return fmt.Errorf("%w: регистрационный номер обязателен", ErrValidation)
	}
	return nil
}

// RecordKeyTransaction выполняет операцию передачи ключа.
// Атомарно: проверяет живое разрешение, валидирует направление перехода
// относительно текущего состояния ключа, пишет запись журнала,
// переключает флаг комнаты и гасит разрешение.
//
// Ошибки: ErrValidation (вход), ErrNotFound (комната),
// ErrAccessNotGranted (нет разрешения), *custody.TransitionError (направление).
func (s *CustodyService) RecordKeyTransaction(ctx context.Context, in *KeyTransactionInput) (*model.KeyTransaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	txType, err := custody.ParseTransactionType(in.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	submittedAt := s.now().UTC()
	record := &model.KeyTransaction{
		ID:                 model.KeyTransactionID(submittedAt, in.RegistrationNumber),
		Type:               string(txType),
		Name:               in.Name,
		RegistrationNumber: in.RegistrationNumber,
		RoomNumber:         in.RoomNumber,
		Date:               in.Date,
		Time:               in.Time,
		SubmittedAt:        submittedAt,
	}

	err = s.store.Atomic(ctx, func(r *repository.Repos) error {
		room, err := r.Rooms.GetByNumber(ctx, in.RoomNumber)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: комната %s", ErrNotFound, in.RoomNumber)
			}
			return err
		}

		// Операция допустима только при живом разрешении охраны
		grant, err := r.Grants.GetByRoom(ctx, in.RoomNumber)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrAccessNotGranted
			}
			return err
		}
		if !grant.Granted {
			return ErrAccessNotGranted
		}

		// Направление операции должно соответствовать текущему состоянию ключа
		current := custody.StateFromKeyAvailable(room.KeyAvailable)
		next, err := custody.Transition(current, txType)
		if err != nil {
			return err
		}

		if err := r.KeyTransactions.Create(ctx, record); err != nil {
			return err
		}
		if err := r.Rooms.SetKeyAvailable(ctx, in.RoomNumber, next.KeyAvailable()); err != nil {
			return err
		}
		// Разрешение одноразовое: гасим после использования
		return r.Grants.Delete(ctx, in.RoomNumber)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Операция с ключом записана",
		slog.String("room", in.RoomNumber),
		slog.String("type", record.Type),
		slog.String("registration_number", in.RegistrationNumber),
	)

	return record, nil
}

// ListTransactions возвращает последние записи журнала передач (новые первыми).
// Количество ограничено конфигурационным лимитом.
func (s *CustodyService) ListTransactions(ctx context.Context) ([]*model.KeyTransaction, error) {
	return s.store.Repos().KeyTransactions.ListRecent(ctx, s.logLimit)
}
