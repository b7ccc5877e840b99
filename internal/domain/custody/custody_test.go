package custody

import (
	"errors"
	"testing"
)

// TestParseTransactionType проверяет парсинг строки в TransactionType.
func TestParseTransactionType(t *testing.T) {
	tests := []struct {
		input   string
		want    TransactionType
		wantErr bool
	}{
		{"giving", TypeGiving, false},
		{"receiving", TypeReceiving, false},
		{"taking", TypeReceiving, false}, // синоним из старого фронтенда
		{"invalid", "", true},
		{"", "", true},
		{"GIVING", "", true}, // Case-sensitive
	}

	for _, tt := range tests {
		got, err := ParseTransactionType(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTransactionType(%q): ожидалась ошибка", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTransactionType(%q): неожиданная ошибка: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTransactionType(%q): ожидалось %q, получено %q", tt.input, tt.want, got)
		}
	}
}

// TestStateFromKeyAvailable проверяет преобразование флага в состояние.
func TestStateFromKeyAvailable(t *testing.T) {
	if StateFromKeyAvailable(true) != StateWithSecurity {
		t.Error("keyAvailable=true должен давать with_security")
	}
	if StateFromKeyAvailable(false) != StateWithStudents {
		t.Error("keyAvailable=false должен давать with_students")
	}

	// Обратное преобразование
	if !StateWithSecurity.KeyAvailable() {
		t.Error("with_security: KeyAvailable() должен быть true")
	}
	if StateWithStudents.KeyAvailable() {
		t.Error("with_students: KeyAvailable() должен быть false")
	}
}

// TestTransition_Valid проверяет штатные переходы в обе стороны.
func TestTransition_Valid(t *testing.T) {
	tests := []struct {
		current KeyState
		t       TransactionType
		want    KeyState
	}{
		{StateWithStudents, TypeGiving, StateWithSecurity},
		{StateWithSecurity, TypeReceiving, StateWithStudents},
	}

	for _, tt := range tests {
		if !CanTransition(tt.current, tt.t) {
			t.Errorf("%s + %s: переход должен быть допустим", tt.current, tt.t)
		}
		got, err := Transition(tt.current, tt.t)
		if err != nil {
			t.Errorf("%s + %s: неожиданная ошибка: %v", tt.current, tt.t, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s + %s: ожидалось %q, получено %q", tt.current, tt.t, tt.want, got)
		}
	}
}

// TestTransition_DirectionMismatch проверяет отклонение передачи
// в направлении, не совпадающем с текущим состоянием.
func TestTransition_DirectionMismatch(t *testing.T) {
	tests := []struct {
		current KeyState
		t       TransactionType
	}{
		{StateWithSecurity, TypeGiving},    // ключ уже у охраны
		{StateWithStudents, TypeReceiving}, // ключ уже у студентов
	}

	for _, tt := range tests {
		if CanTransition(tt.current, tt.t) {
			t.Errorf("%s + %s: переход не должен быть допустим", tt.current, tt.t)
		}

		_, err := Transition(tt.current, tt.t)
		if err == nil {
			t.Errorf("%s + %s: ожидалась ошибка", tt.current, tt.t)
			continue
		}

		var te *TransitionError
		if !errors.As(err, &te) {
			t.Errorf("%s + %s: ожидалась TransitionError, получена %T", tt.current, tt.t, err)
			continue
		}
		if te.Code != "INVALID_TRANSITION" {
			t.Errorf("ожидался код INVALID_TRANSITION, получен %q", te.Code)
		}
	}
}

// TestTransition_RoundTrip проверяет полный цикл сдачи и получения ключа.
func TestTransition_RoundTrip(t *testing.T) {
	state := StateWithStudents

	state, err := Transition(state, TypeGiving)
	if err != nil {
		t.Fatalf("giving: %v", err)
	}
	if state != StateWithSecurity {
		t.Fatalf("после giving ожидалось with_security, получено %q", state)
	}

	state, err = Transition(state, TypeReceiving)
	if err != nil {
		t.Fatalf("receiving: %v", err)
	}
	if state != StateWithStudents {
		t.Fatalf("после receiving ожидалось with_students, получено %q", state)
	}
}
