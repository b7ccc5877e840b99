package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hostelms/key-module/internal/domain/custody"
	"github.com/hostelms/key-module/internal/domain/model"
)

// newTestCustody создаёт CustodyService над фейковым хранилищем
// с фиксированными часами.
func newTestCustody(t *testing.T, logLimit int) (*CustodyService, *fakeStore, time.Time) {
	t.Helper()
	store := newFakeStore()
	svc := NewCustodyService(store, logLimit, testLogger())
	base := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	return svc, store, base
}

// addRoom заводит комнату в фейковом хранилище.
func addRoom(t *testing.T, store *fakeStore, number string, keyAvailable bool) {
	t.Helper()
	err := store.Repos().Rooms.Upsert(context.Background(), &model.Room{
		Number:       number,
		KeyAvailable: keyAvailable,
	})
	if err != nil {
		t.Fatalf("не удалось завести комнату %s: %v", number, err)
	}
}

func TestGrantAccess(t *testing.T) {
	svc, store, base := newTestCustody(t, 10)
	ctx := context.Background()
	addRoom(t, store, "101", false)

	grant, err := svc.GrantAccess(ctx, "101", "security1")
	if err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}
	if !grant.Granted {
		t.Error("разрешение должно быть активным")
	}
	if grant.GrantedBy != "security1" {
		t.Errorf("GrantedBy = %q, ожидалось security1", grant.GrantedBy)
	}
	if !grant.GrantedAt.Equal(base) {
		t.Errorf("GrantedAt = %v, ожидалось %v", grant.GrantedAt, base)
	}

	// Повторная выдача перезаписывает предыдущее разрешение
	regrant, err := svc.GrantAccess(ctx, "101", "security2")
	if err != nil {
		t.Fatalf("повторный GrantAccess: %v", err)
	}
	if regrant.GrantedBy != "security2" {
		t.Errorf("GrantedBy после перезаписи = %q, ожидалось security2", regrant.GrantedBy)
	}

	stored, err := store.Repos().Grants.GetByRoom(ctx, "101")
	if err != nil {
		t.Fatalf("GetByRoom: %v", err)
	}
	if stored.GrantedBy != "security2" {
		t.Errorf("в хранилище GrantedBy = %q, должно остаться одно живое разрешение", stored.GrantedBy)
	}
}

func TestGrantAccess_Errors(t *testing.T) {
	svc, store, _ := newTestCustody(t, 10)
	ctx := context.Background()
	addRoom(t, store, "101", false)

	if _, err := svc.GrantAccess(ctx, "", "security1"); !errors.Is(err, ErrValidation) {
		t.Errorf("пустой номер комнаты: err = %v, ожидался ErrValidation", err)
	}
	if _, err := svc.GrantAccess(ctx, "999", "security1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("несуществующая комната: err = %v, ожидался ErrNotFound", err)
	}
}

func TestCheckAccess(t *testing.T) {
	svc, store, _ := newTestCustody(t, 10)
	ctx := context.Background()
	addRoom(t, store, "101", false)

	// Нет разрешения — не ошибка
	granted, grant, err := svc.CheckAccess(ctx, "101")
	if err != nil {
		t.Fatalf("CheckAccess без разрешения: %v", err)
	}
	if granted || grant != nil {
		t.Errorf("без разрешения granted = %v, grant = %v, ожидалось false, nil", granted, grant)
	}

	if _, err := svc.GrantAccess(ctx, "101", "security1"); err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}

	granted, grant, err = svc.CheckAccess(ctx, "101")
	if err != nil {
		t.Fatalf("CheckAccess: %v", err)
	}
	if !granted || grant == nil {
		t.Fatalf("после выдачи granted = %v, grant = %v", granted, grant)
	}
	if grant.RoomNumber != "101" {
		t.Errorf("grant.RoomNumber = %q", grant.RoomNumber)
	}
}

func TestRecordKeyTransaction_Giving(t *testing.T) {
	svc, store, base := newTestCustody(t, 10)
	ctx := context.Background()
	// Ключ у студентов — допустима только сдача (giving)
	addRoom(t, store, "101", false)

	if _, err := svc.GrantAccess(ctx, "101", "security1"); err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}

	record, err := svc.RecordKeyTransaction(ctx, &KeyTransactionInput{
		Type:               "giving",
		Name:               "Rahul Sharma",
		RegistrationNumber: "ST001",
		RoomNumber:         "101",
		Date:               "2026-03-14",
		Time:               "10:00",
	})
	if err != nil {
		t.Fatalf("RecordKeyTransaction: %v", err)
	}

	wantID := model.KeyTransactionID(base, "ST001")
	if record.ID != wantID {
		t.Errorf("ID = %q, ожидалось %q", record.ID, wantID)
	}
	if record.Type != "giving" {
		t.Errorf("Type = %q, ожидалось giving", record.Type)
	}

	// Ключ перешёл к охране
	room, err := store.Repos().Rooms.GetByNumber(ctx, "101")
	if err != nil {
		t.Fatalf("GetByNumber: %v", err)
	}
	if !room.KeyAvailable {
		t.Error("после giving ключ должен быть у охраны (KeyAvailable = true)")
	}

	// Разрешение одноразовое — погашено
	granted, _, err := svc.CheckAccess(ctx, "101")
	if err != nil {
		t.Fatalf("CheckAccess: %v", err)
	}
	if granted {
		t.Error("разрешение должно быть погашено после операции")
	}

	// Запись попала в журнал
	log, err := svc.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(log) != 1 || log[0].ID != wantID {
		t.Errorf("журнал = %d записей, ожидалась одна с ID %q", len(log), wantID)
	}
}

func TestRecordKeyTransaction_TakingAlias(t *testing.T) {
	svc, store, _ := newTestCustody(t, 10)
	ctx := context.Background()
	// Ключ у охраны — студенты забирают
	addRoom(t, store, "102", true)

	if _, err := svc.GrantAccess(ctx, "102", "security1"); err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}

	record, err := svc.RecordKeyTransaction(ctx, &KeyTransactionInput{
		Type:               "taking", // старый алиас receiving
		Name:               "Emily Davis",
		RegistrationNumber: "ST006",
		RoomNumber:         "102",
	})
	if err != nil {
		t.Fatalf("RecordKeyTransaction: %v", err)
	}
	if record.Type != "receiving" {
		t.Errorf("Type = %q, алиас taking должен нормализоваться в receiving", record.Type)
	}

	room, err := store.Repos().Rooms.GetByNumber(ctx, "102")
	if err != nil {
		t.Fatalf("GetByNumber: %v", err)
	}
	if room.KeyAvailable {
		t.Error("после receiving ключ должен быть у студентов (KeyAvailable = false)")
	}

	granted, _, err := svc.CheckAccess(ctx, "102")
	if err != nil {
		t.Fatalf("CheckAccess: %v", err)
	}
	if granted {
		t.Error("разрешение должно быть погашено после операции")
	}
}

func TestRecordKeyTransaction_NoGrant(t *testing.T) {
	svc, store, _ := newTestCustody(t, 10)
	ctx := context.Background()
	addRoom(t, store, "101", false)

	_, err := svc.RecordKeyTransaction(ctx, &KeyTransactionInput{
		Type:               "giving",
		Name:               "Rahul Sharma",
		RegistrationNumber: "ST001",
		RoomNumber:         "101",
	})
	if !errors.Is(err, ErrAccessNotGranted) {
		t.Fatalf("err = %v, ожидался ErrAccessNotGranted", err)
	}

	// Состояние не изменилось, журнал пуст
	room, _ := store.Repos().Rooms.GetByNumber(ctx, "101")
	if room.KeyAvailable {
		t.Error("флаг ключа не должен меняться без разрешения")
	}
	log, _ := svc.ListTransactions(ctx)
	if len(log) != 0 {
		t.Errorf("журнал должен быть пуст, записей: %d", len(log))
	}
}

func TestRecordKeyTransaction_InvalidDirection(t *testing.T) {
	svc, store, _ := newTestCustody(t, 10)
	ctx := context.Background()
	// Ключ уже у охраны — повторная сдача недопустима
	addRoom(t, store, "101", true)

	if _, err := svc.GrantAccess(ctx, "101", "security1"); err != nil {
		t.Fatalf("GrantAccess: %v", err)
	}

	_, err := svc.RecordKeyTransaction(ctx, &KeyTransactionInput{
		Type:               "giving",
		Name:               "Rahul Sharma",
		RegistrationNumber: "ST001",
		RoomNumber:         "101",
	})

	var terr *custody.TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("err = %v, ожидался *custody.TransitionError", err)
	}
	if terr.Code != "INVALID_TRANSITION" {
		t.Errorf("Code = %q, ожидалось INVALID_TRANSITION", terr.Code)
	}

	// Отклонённая операция не гасит разрешение и не пишет журнал
	granted, _, _ := svc.CheckAccess(ctx, "101")
	if !granted {
		t.Error("разрешение не должно гаситься при отклонённой операции")
	}
	log, _ := svc.ListTransactions(ctx)
	if len(log) != 0 {
		t.Errorf("журнал должен быть пуст, записей: %d", len(log))
	}
}

func TestRecordKeyTransaction_InputErrors(t *testing.T) {
	svc, store, _ := newTestCustody(t, 10)
	ctx := context.Background()
	addRoom(t, store, "101", false)

	tests := []struct {
		name    string
		in      *KeyTransactionInput
		wantErr error
	}{
		{
			name: "недопустимый тип передачи",
			in: &KeyTransactionInput{
				Type: "stealing", Name: "X", RegistrationNumber: "ST001", RoomNumber: "101",
			},
			wantErr: ErrValidation,
		},
		{
			name: "пустой номер комнаты",
			in: &KeyTransactionInput{
				Type: "giving", Name: "X", RegistrationNumber: "ST001",
			},
			wantErr: ErrValidation,
		},
		{
			name: "пустой регистрационный номер",
			in: &KeyTransactionInput{
				Type: "giving", Name: "X", RoomNumber: "101",
			},
			wantErr: ErrValidation,
		},
		{
			name: "несуществующая комната",
			in: &KeyTransactionInput{
				Type: "giving", Name: "X", RegistrationNumber: "ST001", RoomNumber: "999",
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordKeyTransaction(ctx, tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, ожидался %v", err, tt.wantErr)
			}
		})
	}
}

func TestListTransactions_Limit(t *testing.T) {
	svc, store, base := newTestCustody(t, 3)
	ctx := context.Background()
	addRoom(t, store, "101", false)

	// Пять операций с разным временем подачи, лимит журнала — три
	for i := range 5 {
		submittedAt := base.Add(time.Duration(i) * time.Minute)
		svc.now = func() time.Time { return submittedAt }

		if _, err := svc.GrantAccess(ctx, "101", "security1"); err != nil {
			t.Fatalf("GrantAccess #%d: %v", i, err)
		}

		txType := "giving"
		if i%2 == 1 {
			txType = "receiving"
		}
		_, err := svc.RecordKeyTransaction(ctx, &KeyTransactionInput{
			Type:               txType,
			Name:               "Rahul Sharma",
			RegistrationNumber: fmt.Sprintf("ST%03d", i+1),
			RoomNumber:         "101",
		})
		if err != nil {
			t.Fatalf("RecordKeyTransaction #%d: %v", i, err)
		}
	}

	log, err := svc.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(log) != 3 {
		t.Fatalf("len = %d, ожидался лимит 3", len(log))
	}
	// Новые первыми
	for i := 1; i < len(log); i++ {
		if log[i].SubmittedAt.After(log[i-1].SubmittedAt) {
			t.Errorf("журнал не отсортирован по убыванию времени подачи")
		}
	}
	if log[0].RegistrationNumber != "ST005" {
		t.Errorf("первой должна быть последняя операция, получено %s", log[0].RegistrationNumber)
	}
}
