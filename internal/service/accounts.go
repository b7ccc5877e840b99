// accounts.go — сервис учётных записей: регистрация студентов, вход,
// одобрение/блокировка студентов комендантом, заведение охраны.
// Пароли не хранятся и не проверяются локально — учётные данные живут
// в Keycloak, модуль хранит только карточки пользователей.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/hostelms/key-module/internal/domain/model"
	"github.com/hostelms/key-module/internal/keycloak"
	"github.com/hostelms/key-module/internal/repository"
)

// IdentityProvider — операции с учётными данными в Keycloak.
// Вынесено в интерфейс для подстановки детерминированного дабла в тестах.
type IdentityProvider interface {
	// CreateUser создаёт пользователя с постоянным паролем и атрибутом role.
	// Возвращает Keycloak ID. Возвращает keycloak.ErrUserExists при занятом username.
	CreateUser(ctx context.Context, username, email, name, password, role string) (string, error)
	// PasswordGrant обменивает учётные данные на пару токенов.
	// Возвращает keycloak.ErrInvalidGrant при неверном пароле.
	PasswordGrant(ctx context.Context, username, password string) (*keycloak.TokenResponse, error)
	// SetUserEnabled включает или отключает пользователя.
	SetUserEnabled(ctx context.Context, id string, enabled bool) error
}

// Действия manage-student.
const (
	// StudentActionActivate — одобрить регистрацию студента.
	StudentActionActivate = "activate"
	// StudentActionCancel — отозвать одобрение.
	StudentActionCancel = "cancel"
)

// AccountService — сервис учётных записей.
type AccountService struct {
	store Store
	idp   IdentityProvider
	cache *StudentCache

	studentDomain string
	staffDomain   string

	now    func() time.Time
	logger *slog.Logger
}

// NewAccountService создаёт сервис учётных записей.
// studentDomain, staffDomain — домены email для формирования username в Keycloak.
func NewAccountService(
	store Store,
	idp IdentityProvider,
	cache *StudentCache,
	studentDomain, staffDomain string,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		store:         store,
		idp:           idp,
		cache:         cache,
		studentDomain: studentDomain,
		staffDomain:   staffDomain,
		now:           time.Now,
		logger:        logger.With(slog.String("component", "account_service")),
	}
}

// studentUsername возвращает username студента в Keycloak: <id>@<домен студентов>.
func (s *AccountService) studentUsername(id string) string {
	return fmt.Sprintf("%s@%s", id, s.studentDomain)
}

// staffUsername возвращает username персонала в Keycloak: <id>@<домен персонала>.
func (s *AccountService) staffUsername(id string) string {
	return fmt.Sprintf("%s@%s", id, s.staffDomain)
}

// RegisterInput — параметры регистрации студента.
type RegisterInput struct {
	Name               string
	RegistrationNumber string
	RoomNumber         string
	PhoneNumber        string
	Password           string
}

// validate проверяет обязательные поля регистрации.
func (in *RegisterInput) validate() error {
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: имя обязательно", ErrValidation)
	case in.RegistrationNumber == "":
		return fmt.Errorf("%w: регистрационный номер обязателен", ErrValidation)
	case in.RoomNumber == "":
		return fmt.Errorf("%w: номер комнаты обязателен", ErrValidation)
	case in.Password == "":
		return fmt.Errorf("%w: пароль обязателен", ErrValidation)
	}
	return nil
}

// Register регистрирует студента: создаёт учётные данные в Keycloak
// и карточку User{approved:false}, привязывает студента к комнате.
// Идентификатор студента — его регистрационный номер.
// Возвращает ErrConflict при повторной регистрации,
// ErrNotFound при неизвестной комнате, ErrIDPUnavailable при сбое Keycloak.
func (s *AccountService) Register(ctx context.Context, in *RegisterInput) (*model.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	id := in.RegistrationNumber

	// Ранняя проверка дубликата до похода в Keycloak
	if _, err := s.store.Repos().Users.GetByID(ctx, id); err == nil {
		return nil, fmt.Errorf("%w: студент %s уже зарегистрирован", ErrConflict, id)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	username := s.studentUsername(id)
	authID, err := s.idp.CreateUser(ctx, username, username, in.Name, in.Password, model.RoleStudent)
	if err != nil {
		if errors.Is(err, keycloak.ErrUserExists) {
			return nil, fmt.Errorf("%w: студент %s уже зарегистрирован", ErrConflict, id)
		}
		return nil, fmt.Errorf("%w: %w", ErrIDPUnavailable, err)
	}

	var phone *string
	if in.PhoneNumber != "" {
		phone = &in.PhoneNumber
	}

	user := &model.User{
		ID:                 id,
		Name:               in.Name,
		Role:               model.RoleStudent,
		RegistrationNumber: in.RegistrationNumber,
		Username:           username,
		PhoneNumber:        phone,
		RoomNumber:         in.RoomNumber,
		Approved:           false,
		AuthID:             &authID,
	}

	err = s.store.Atomic(ctx, func(r *repository.Repos) error {
		room, err := r.Rooms.GetByNumber(ctx, in.RoomNumber)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: комната %s", ErrNotFound, in.RoomNumber)
			}
			return err
		}

		if err := r.Users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%w: студент %s уже зарегистрирован", ErrConflict, id)
			}
			return err
		}

		if !slices.Contains(room.Students, id) {
			room.Students = append(room.Students, id)
			return r.Rooms.Upsert(ctx, room)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Студент зарегистрирован",
		slog.String("id", id),
		slog.String("room", in.RoomNumber),
	)

	return user, nil
}

// Login выполняет вход пользователя по идентификатору (регистрационному
// номеру студента или id сотрудника) и паролю.
// Порядок проверок: карточка существует (ErrNotFound), студент одобрен
// (ErrNotApproved), учётные данные верны в Keycloak (ErrInvalidCredentials).
func (s *AccountService) Login(ctx context.Context, identifier, password string) (*model.User, *keycloak.TokenResponse, error) {
	if identifier == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: идентификатор и пароль обязательны", ErrValidation)
	}

	user, err := s.store.Repos().Users.GetByID(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: пользователь %s", ErrNotFound, identifier)
		}
		return nil, nil, err
	}

	if user.Role == model.RoleStudent && !user.Approved {
		return nil, nil, fmt.Errorf("%w: студент %s ожидает одобрения коменданта", ErrNotApproved, identifier)
	}

	session, err := s.idp.PasswordGrant(ctx, user.Username, password)
	if err != nil {
		if errors.Is(err, keycloak.ErrInvalidGrant) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrIDPUnavailable, err)
	}

	s.logger.Info("Вход выполнен",
		slog.String("id", user.ID),
		slog.String("role", user.Role),
	)

	return user, session, nil
}

// ManageStudent переключает флаг одобрения студента: activate — одобрить,
// cancel — отозвать. Синхронно отражает состояние в Keycloak (enabled).
// Возвращает ErrNotFound при неизвестном студенте.
func (s *AccountService) ManageStudent(ctx context.Context, studentID, action string) (*model.User, error) {
	var approved bool
	switch action {
	case StudentActionActivate:
		approved = true
	case StudentActionCancel:
		approved = false
	default:
		return nil, fmt.Errorf("%w: неизвестное действие %q, допустимые: activate, cancel", ErrValidation, action)
	}

	repos := s.store.Repos()

	user, err := repos.Users.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: студент %s", ErrNotFound, studentID)
		}
		return nil, err
	}
	if user.Role != model.RoleStudent {
		return nil, fmt.Errorf("%w: %s не является студентом", ErrValidation, studentID)
	}

	if err := repos.Users.SetApproved(ctx, studentID, approved); err != nil {
		return nil, err
	}
	user.Approved = approved
	s.cache.Invalidate(studentID)

	// Блокировка в Keycloak — best effort: локальный флаг остаётся источником истины
	if user.AuthID != nil {
		if err := s.idp.SetUserEnabled(ctx, *user.AuthID, approved); err != nil {
			s.logger.Warn("Не удалось синхронизировать состояние студента в Keycloak",
				slog.String("id", studentID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("Статус студента изменён",
		slog.String("id", studentID),
		slog.Bool("approved", approved),
	)

	return user, nil
}

// AddSecurityInput — параметры заведения сотрудника охраны.
type AddSecurityInput struct {
	// ID — идентификатор сотрудника (например, security1).
	ID          string
	Name        string
	PhoneNumber string
	Password    string
}

// validate проверяет обязательные поля.
func (in *AddSecurityInput) validate() error {
	switch {
	case in.ID == "":
		return fmt.Errorf("%w: идентификатор сотрудника обязателен", ErrValidation)
	case in.Name == "":
		return fmt.Errorf("%w: имя обязательно", ErrValidation)
	case in.Password == "":
		return fmt.Errorf("%w: пароль обязателен", ErrValidation)
	}
	return nil
}

// AddSecurity заводит сотрудника охраны: учётные данные в Keycloak
// и карточка User. Охрана доверена сразу — без одобрения коменданта.
// Возвращает ErrConflict, если идентификатор занят.
func (s *AccountService) AddSecurity(ctx context.Context, in *AddSecurityInput) (*model.User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	username := s.staffUsername(in.ID)
	authID, err := s.idp.CreateUser(ctx, username, username, in.Name, in.Password, model.RoleSecurity)
	if err != nil {
		if errors.Is(err, keycloak.ErrUserExists) {
			return nil, fmt.Errorf("%w: сотрудник %s уже заведён", ErrConflict, in.ID)
		}
		return nil, fmt.Errorf("%w: %w", ErrIDPUnavailable, err)
	}

	var phone *string
	if in.PhoneNumber != "" {
		phone = &in.PhoneNumber
	}

	user := &model.User{
		ID:                 in.ID,
		Name:               in.Name,
		Role:               model.RoleSecurity,
		RegistrationNumber: in.ID,
		Username:           username,
		PhoneNumber:        phone,
		Approved:           true,
		AuthID:             &authID,
	}

	if err := s.store.Repos().Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: сотрудник %s уже заведён", ErrConflict, in.ID)
		}
		return nil, err
	}

	s.logger.Info("Сотрудник охраны заведён", slog.String("id", in.ID))

	return user, nil
}

// ListStudents возвращает всех студентов.
func (s *AccountService) ListStudents(ctx context.Context) ([]*model.User, error) {
	return s.store.Repos().Users.ListByRole(ctx, model.RoleStudent)
}

// ListSecurities возвращает всех сотрудников охраны.
func (s *AccountService) ListSecurities(ctx context.Context) ([]*model.User, error) {
	return s.store.Repos().Users.ListByRole(ctx, model.RoleSecurity)
}
