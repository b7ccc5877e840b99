// seed.go — provisioning демонстрационных данных (GET /init).
// Идемпотентно: все записи пишутся через upsert, повторный вызов
// приводит данные к исходному демонстрационному состоянию.
// Учётные данные в Keycloak заводятся best-effort до транзакции БД:
// занятый username пропускается, прочие ошибки не валят provisioning.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hostelms/key-module/internal/domain/custody"
	"github.com/hostelms/key-module/internal/domain/model"
	"github.com/hostelms/key-module/internal/keycloak"
	"github.com/hostelms/key-module/internal/repository"
)

// SeedService — provisioning демонстрационных данных.
type SeedService struct {
	store Store
	idp   IdentityProvider
	cache *StudentCache

	studentDomain string
	staffDomain   string

	now    func() time.Time
	logger *slog.Logger
}

// NewSeedService создаёт сервис provisioning демо-данных.
func NewSeedService(
	store Store,
	idp IdentityProvider,
	cache *StudentCache,
	studentDomain, staffDomain string,
	logger *slog.Logger,
) *SeedService {
	return &SeedService{
		store:         store,
		idp:           idp,
		cache:         cache,
		studentDomain: studentDomain,
		staffDomain:   staffDomain,
		now:           time.Now,
		logger:        logger.With(slog.String("component", "seed_service")),
	}
}

// SeedSummary — сводка по заведённым демо-данным.
type SeedSummary struct {
	Rooms           int `json:"rooms"`
	Students        int `json:"students"`
	Securities      int `json:"securities"`
	Wardens         int `json:"wardens"`
	NightPasses     int `json:"nightPasses"`
	KeyTransactions int `json:"keyTransactions"`
}

// seedDemoPassword — общий пароль всех демо-учёток.
const seedDemoPassword = "password"

// Демо-комнаты: состояние ключа, флаг ночного пропуска и жильцы.
var seedRooms = []struct {
	number       string
	keyAvailable bool
	nightPass    bool
	students     []string
}{
	{"101", false, false, []string{"ST001", "ST002", "ST003", "ST004"}},
	{"102", true, true, []string{"ST005", "ST006", "ST007", "ST008"}},
	{"103", true, false, []string{"ST009", "ST010", "ST011", "ST012"}},
	{"104", false, true, []string{"ST013", "ST014", "ST015"}},
	{"105", true, false, []string{"ST016", "ST017", "ST018", "ST019"}},
	{"106", false, false, []string{"ST020", "ST021"}},
	{"107", true, false, []string{"ST022", "ST023", "ST024", "ST025"}},
	{"108", false, true, []string{"ST026", "ST027", "ST028"}},
}

// Демо-студенты. Шестеро ожидают одобрения коменданта.
var seedStudents = []struct {
	id       string
	name     string
	room     string
	approved bool
}{
	{"ST001", "John Doe", "101", true},
	{"ST002", "Jane Smith", "101", true},
	{"ST003", "Mike Johnson", "101", true},
	{"ST004", "Sarah Wilson", "101", true},
	{"ST005", "Tom Brown", "102", false},
	{"ST006", "Emily Davis", "102", true},
	{"ST007", "Chris Miller", "102", true},
	{"ST008", "Lisa Garcia", "102", false},
	{"ST009", "David Martinez", "103", true},
	{"ST010", "Anna Rodriguez", "103", true},
	{"ST011", "Kevin Lee", "103", true},
	{"ST012", "Maria Lopez", "103", true},
	{"ST013", "James Taylor", "104", true},
	{"ST014", "Rachel White", "104", false},
	{"ST015", "Alex Chen", "104", true},
	{"ST016", "Sophie Anderson", "105", true},
	{"ST017", "Daniel Kim", "105", true},
	{"ST018", "Jessica Wong", "105", true},
	{"ST019", "Michael Park", "105", true},
	{"ST020", "Emma Thompson", "106", false},
	{"ST021", "Ryan Clark", "106", false},
	{"ST022", "Olivia Harris", "107", true},
	{"ST023", "Noah Wilson", "107", true},
	{"ST024", "Ava Johnson", "107", true},
	{"ST025", "Ethan Davis", "107", true},
	{"ST026", "Isabella Martin", "108", true},
	{"ST027", "Lucas Garcia", "108", false},
	{"ST028", "Mia Rodriguez", "108", true},
}

// Демо-сотрудники: два охранника и комендант.
var seedStaff = []struct {
	id   string
	name string
	role string
}{
	{"security1", "Security Guard 1", model.RoleSecurity},
	{"security2", "Security Guard 2", model.RoleSecurity},
	{"warden", "Hostel Warden", model.RoleWarden},
}

// Ожидающие ночные пропуска: комнаты 102, 104 и 108.
var seedNightPasses = []struct {
	room         string
	student      string
	name         string
	dateOffset   int // дней от текущей даты
	arrivalTime  string
	dispatchTime string
	reason       string
	submittedAgo time.Duration
}{
	{"102", "ST006", "Emily Davis", 1, "23:30", "18:00",
		"Family emergency - need to visit home", 2 * time.Hour},
	{"104", "ST013", "James Taylor", 1, "22:00", "19:30",
		"Medical appointment in city", 4 * time.Hour},
	{"108", "ST026", "Isabella Martin", 0, "23:59", "20:00",
		"Part-time job shift ends late", 30 * time.Minute},
}

// Журнал передач: пять последних операций.
var seedTransactions = []struct {
	student string
	name    string
	room    string
	txType  custody.TransactionType
	txTime  string
	ago     time.Duration
}{
	{"ST001", "John Doe", "101", custody.TypeReceiving, "09:30", 24 * time.Hour},
	{"ST009", "David Martinez", "103", custody.TypeGiving, "14:15", 12 * time.Hour},
	{"ST016", "Sophie Anderson", "105", custody.TypeGiving, "16:45", 3 * time.Hour},
	{"ST013", "James Taylor", "104", custody.TypeReceiving, "17:20", 2 * time.Hour},
	{"ST026", "Isabella Martin", "108", custody.TypeReceiving, "18:30", time.Hour},
}

// Provision приводит хранилище к демонстрационному состоянию:
// 8 комнат, 28 студентов, 2 охранника, комендант, 3 ожидающих
// ночных пропуска и 5 записей журнала передач.
func (s *SeedService) Provision(ctx context.Context) (*SeedSummary, error) {
	// Учётные данные в Keycloak — до транзакции БД, чтобы не держать
	// её открытой на время внешних вызовов
	authIDs := s.provisionCredentials(ctx)

	summary := &SeedSummary{}

	err := s.store.Atomic(ctx, func(r *repository.Repos) error {
		now := s.now().UTC()

		for _, spec := range seedRooms {
			room := &model.Room{
				Number:              spec.number,
				KeyAvailable:        spec.keyAvailable,
				HasNightPassRequest: spec.nightPass,
				Students:            spec.students,
			}
			if err := r.Rooms.Upsert(ctx, room); err != nil {
				return err
			}
			summary.Rooms++
		}

		for _, spec := range seedStudents {
			username := spec.id + "@" + s.studentDomain
			user := &model.User{
				ID:                 spec.id,
				Name:               spec.name,
				Role:               model.RoleStudent,
				RegistrationNumber: spec.id,
				Username:           username,
				RoomNumber:         spec.room,
				Approved:           spec.approved,
			}
			// Повторный /init не создаёт учётку заново — сохраняем привязку
			if authID, ok := authIDs[username]; ok {
				user.AuthID = &authID
			} else if existing, err := r.Users.GetByID(ctx, spec.id); err == nil {
				user.AuthID = existing.AuthID
			}
			if err := r.Users.Upsert(ctx, user); err != nil {
				return err
			}
			summary.Students++
		}

		for _, spec := range seedStaff {
			username := spec.id + "@" + s.staffDomain
			user := &model.User{
				ID:                 spec.id,
				Name:               spec.name,
				Role:               spec.role,
				RegistrationNumber: spec.id,
				Username:           username,
				Approved:           true,
			}
			if authID, ok := authIDs[username]; ok {
				user.AuthID = &authID
			} else if existing, err := r.Users.GetByID(ctx, spec.id); err == nil {
				user.AuthID = existing.AuthID
			}
			if err := r.Users.Upsert(ctx, user); err != nil {
				return err
			}
			if spec.role == model.RoleSecurity {
				summary.Securities++
			} else {
				summary.Wardens++
			}
		}

		for _, spec := range seedNightPasses {
			submittedAt := now.Add(-spec.submittedAgo)
			req := &model.NightPassRequest{
				ID:                 model.NightPassID(submittedAt, spec.student),
				StudentName:        spec.name,
				RegistrationNumber: spec.student,
				RoomNumber:         spec.room,
				Date:               now.AddDate(0, 0, spec.dateOffset).Format("2006-01-02"),
				ArrivalTime:        spec.arrivalTime,
				DispatchTime:       spec.dispatchTime,
				Reason:             spec.reason,
				Status:             model.NightPassPending,
				SubmittedAt:        submittedAt,
			}
			if err := r.NightPasses.Upsert(ctx, req); err != nil {
				return err
			}
			summary.NightPasses++
		}

		for _, spec := range seedTransactions {
			submittedAt := now.Add(-spec.ago)
			record := &model.KeyTransaction{
				ID:                 model.KeyTransactionID(submittedAt, spec.student),
				Type:               string(spec.txType),
				Name:               spec.name,
				RegistrationNumber: spec.student,
				RoomNumber:         spec.room,
				Date:               submittedAt.Format("2006-01-02"),
				Time:               spec.txTime,
				SubmittedAt:        submittedAt,
			}
			if err := r.KeyTransactions.Create(ctx, record); err != nil {
				// Повторный /init: записи журнала уже существуют
				if !errors.Is(err, repository.ErrConflict) {
					return err
				}
				continue
			}
			summary.KeyTransactions++
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Карточки могли измениться — сбрасываем кеш целиком
	s.cache.Purge()

	s.logger.Info("Демонстрационные данные заведены",
		slog.Int("rooms", summary.Rooms),
		slog.Int("students", summary.Students),
	)

	return summary, nil
}

// provisionCredentials заводит демо-учётки в Keycloak best-effort.
// Возвращает username → Keycloak ID для созданных учёток. Занятый
// username означает повторный /init и пропускается молча; прочие
// ошибки логируются, но не прерывают provisioning.
func (s *SeedService) provisionCredentials(ctx context.Context) map[string]string {
	authIDs := make(map[string]string)

	for _, spec := range seedStudents {
		username := spec.id + "@" + s.studentDomain
		authID, err := s.idp.CreateUser(ctx, username, username, spec.name, seedDemoPassword, model.RoleStudent)
		switch {
		case errors.Is(err, keycloak.ErrUserExists):
			continue
		case err != nil:
			s.logger.Warn("Не удалось завести демо-учётку в Keycloak",
				slog.String("username", username),
				slog.Any("error", err),
			)
			continue
		}
		authIDs[username] = authID

		// Неодобренные студенты отключены до решения коменданта
		if !spec.approved {
			if err := s.idp.SetUserEnabled(ctx, authID, false); err != nil {
				s.logger.Warn("Не удалось отключить демо-учётку",
					slog.String("username", username),
					slog.Any("error", err),
				)
			}
		}
	}

	for _, spec := range seedStaff {
		username := spec.id + "@" + s.staffDomain
		authID, err := s.idp.CreateUser(ctx, username, username, spec.name, seedDemoPassword, spec.role)
		switch {
		case errors.Is(err, keycloak.ErrUserExists):
			continue
		case err != nil:
			s.logger.Warn("Не удалось завести демо-учётку в Keycloak",
				slog.String("username", username),
				slog.Any("error", err),
			)
			continue
		}
		authIDs[username] = authID
	}

	return authIDs
}
