package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/hostelms/key-module/internal/domain/model"
	"github.com/hostelms/key-module/internal/keycloak"
	"github.com/hostelms/key-module/internal/repository"
)

// testLogger — логгер для тестов, вывод отбрасывается.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore — in-memory реализация Store для unit-тестов сервисов.
// Atomic выполняет fn над теми же данными без транзакции: тестам важна
// бизнес-логика, а не изоляция.
type fakeStore struct {
	repos *repository.Repos
}

func newFakeStore() *fakeStore {
	data := &fakeData{
		rooms:  map[string]*model.Room{},
		users:  map[string]*model.User{},
		grants: map[string]*model.AccessGrant{},
		passes: map[string]*model.NightPassRequest{},
	}
	return &fakeStore{
		repos: &repository.Repos{
			Rooms:           &fakeRoomRepo{data},
			Users:           &fakeUserRepo{data},
			Grants:          &fakeGrantRepo{data},
			KeyTransactions: &fakeKeyTxRepo{data},
			NightPasses:     &fakeNightPassRepo{data},
		},
	}
}

func (s *fakeStore) Repos() *repository.Repos {
	return s.repos
}

func (s *fakeStore) Atomic(_ context.Context, fn func(r *repository.Repos) error) error {
	return fn(s.repos)
}

// fakeData — общее состояние фейковых репозиториев.
type fakeData struct {
	rooms  map[string]*model.Room
	users  map[string]*model.User
	grants map[string]*model.AccessGrant
	txs    []*model.KeyTransaction
	passes map[string]*model.NightPassRequest
}

// --- rooms ---

type fakeRoomRepo struct{ d *fakeData }

func (f *fakeRoomRepo) Upsert(_ context.Context, room *model.Room) error {
	cp := *room
	f.d.rooms[room.Number] = &cp
	return nil
}

func (f *fakeRoomRepo) GetByNumber(_ context.Context, number string) (*model.Room, error) {
	room, ok := f.d.rooms[number]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *room
	cp.Students = slices.Clone(room.Students)
	return &cp, nil
}

func (f *fakeRoomRepo) List(_ context.Context) ([]*model.Room, error) {
	numbers := make([]string, 0, len(f.d.rooms))
	for n := range f.d.rooms {
		numbers = append(numbers, n)
	}
	sort.Strings(numbers)

	result := make([]*model.Room, 0, len(numbers))
	for _, n := range numbers {
		cp := *f.d.rooms[n]
		result = append(result, &cp)
	}
	return result, nil
}

func (f *fakeRoomRepo) SetKeyAvailable(_ context.Context, number string, keyAvailable bool) error {
	room, ok := f.d.rooms[number]
	if !ok {
		return repository.ErrNotFound
	}
	room.KeyAvailable = keyAvailable
	return nil
}

func (f *fakeRoomRepo) SetNightPassFlag(_ context.Context, number string, has bool) error {
	room, ok := f.d.rooms[number]
	if !ok {
		return repository.ErrNotFound
	}
	room.HasNightPassRequest = has
	return nil
}

// --- users ---

type fakeUserRepo struct{ d *fakeData }

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if _, ok := f.d.users[user.ID]; ok {
		return repository.ErrConflict
	}
	cp := *user
	f.d.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) Upsert(_ context.Context, user *model.User) error {
	cp := *user
	f.d.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.d.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) ListByRole(_ context.Context, role string) ([]*model.User, error) {
	var result []*model.User
	for _, u := range f.d.users {
		if u.Role == role {
			cp := *u
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeUserRepo) SetApproved(_ context.Context, id string, approved bool) error {
	u, ok := f.d.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Approved = approved
	return nil
}

// --- access grants ---

type fakeGrantRepo struct{ d *fakeData }

func (f *fakeGrantRepo) Upsert(_ context.Context, grant *model.AccessGrant) error {
	cp := *grant
	f.d.grants[grant.RoomNumber] = &cp
	return nil
}

func (f *fakeGrantRepo) GetByRoom(_ context.Context, roomNumber string) (*model.AccessGrant, error) {
	g, ok := f.d.grants[roomNumber]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGrantRepo) Delete(_ context.Context, roomNumber string) error {
	delete(f.d.grants, roomNumber)
	return nil
}

// --- key transactions ---

type fakeKeyTxRepo struct{ d *fakeData }

func (f *fakeKeyTxRepo) Create(_ context.Context, tx *model.KeyTransaction) error {
	for _, existing := range f.d.txs {
		if existing.ID == tx.ID {
			return repository.ErrConflict
		}
	}
	cp := *tx
	f.d.txs = append(f.d.txs, &cp)
	return nil
}

func (f *fakeKeyTxRepo) ListRecent(_ context.Context, limit int) ([]*model.KeyTransaction, error) {
	sorted := slices.Clone(f.d.txs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].SubmittedAt.After(sorted[j].SubmittedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

// --- night passes ---

type fakeNightPassRepo struct{ d *fakeData }

func (f *fakeNightPassRepo) Upsert(_ context.Context, req *model.NightPassRequest) error {
	cp := *req
	f.d.passes[req.RoomNumber] = &cp
	return nil
}

func (f *fakeNightPassRepo) GetByRoom(_ context.Context, roomNumber string) (*model.NightPassRequest, error) {
	np, ok := f.d.passes[roomNumber]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *np
	return &cp, nil
}

func (f *fakeNightPassRepo) Approve(_ context.Context, roomNumber, approvedBy string, approvedAt time.Time) error {
	np, ok := f.d.passes[roomNumber]
	if !ok {
		return repository.ErrNotFound
	}
	np.Status = model.NightPassApproved
	np.ApprovedAt = &approvedAt
	np.ApprovedBy = &approvedBy
	return nil
}

func (f *fakeNightPassRepo) List(_ context.Context) ([]*model.NightPassRequest, error) {
	var result []*model.NightPassRequest
	for _, np := range f.d.passes {
		cp := *np
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SubmittedAt.After(result[j].SubmittedAt)
	})
	return result, nil
}

// --- identity provider ---

// fakeIDP — детерминированный дабл Keycloak для тестов учётных записей.
type fakeIDP struct {
	// passwords: username → пароль
	passwords map[string]string
	// enabled: authID → включён
	enabled map[string]bool
	// failCreate/failGrant — имитация недоступности Keycloak
	failCreate bool
	failGrant  bool
	nextID     int
}

func newFakeIDP() *fakeIDP {
	return &fakeIDP{
		passwords: map[string]string{},
		enabled:   map[string]bool{},
	}
}

func (f *fakeIDP) CreateUser(_ context.Context, username, _, _, password, _ string) (string, error) {
	if f.failCreate {
		return "", fmt.Errorf("keycloak: connection refused")
	}
	if _, ok := f.passwords[username]; ok {
		return "", keycloak.ErrUserExists
	}
	f.passwords[username] = password
	f.nextID++
	id := fmt.Sprintf("kc-%d", f.nextID)
	f.enabled[id] = true
	return id, nil
}

func (f *fakeIDP) PasswordGrant(_ context.Context, username, password string) (*keycloak.TokenResponse, error) {
	if f.failGrant {
		return nil, fmt.Errorf("keycloak: connection refused")
	}
	stored, ok := f.passwords[username]
	if !ok || stored != password {
		return nil, keycloak.ErrInvalidGrant
	}
	return &keycloak.TokenResponse{
		AccessToken: "token-" + strings.ReplaceAll(username, "@", "-"),
		TokenType:   "Bearer",
		ExpiresIn:   300,
	}, nil
}

func (f *fakeIDP) SetUserEnabled(_ context.Context, id string, enabled bool) error {
	f.enabled[id] = enabled
	return nil
}
