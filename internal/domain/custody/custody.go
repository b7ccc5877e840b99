// Пакет custody — конечный автомат владения ключом комнаты.
//
// Два состояния на комнату:
//   - with_students — ключ у студентов (Room.KeyAvailable == false)
//   - with_security — ключ у охраны (Room.KeyAvailable == true)
//
// Переходы привязаны к направлению передачи:
//   - giving: with_students → with_security (студенты сдают ключ)
//   - receiving: with_security → with_students (студенты забирают ключ)
//
// Передача в направлении, не совпадающем с текущим состоянием,
// отклоняется с TransitionError (INVALID_TRANSITION).
package custody

import "fmt"

// KeyState — состояние владения ключом комнаты.
type KeyState string

const (
	// StateWithStudents — ключ у студентов.
	StateWithStudents KeyState = "with_students"
	// StateWithSecurity — ключ у охраны.
	StateWithSecurity KeyState = "with_security"
)

// TransactionType — направление передачи ключа.
type TransactionType string

const (
	// TypeGiving — студенты сдают ключ охране.
	TypeGiving TransactionType = "giving"
	// TypeReceiving — студенты забирают ключ у охраны.
	TypeReceiving TransactionType = "receiving"
)

// legacyTakingAlias — старый фронтенд отправлял "taking" вместо "receiving".
const legacyTakingAlias = "taking"

// validTransitions — матрица допустимых переходов.
// Ключ — текущее состояние, значение — направление, допустимое из него.
var validTransitions = map[KeyState]TransactionType{
	StateWithStudents: TypeGiving,
	StateWithSecurity: TypeReceiving,
}

// targetStates — состояние после принятой передачи.
var targetStates = map[TransactionType]KeyState{
	TypeGiving:    StateWithSecurity,
	TypeReceiving: StateWithStudents,
}

// StateFromKeyAvailable преобразует флаг Room.KeyAvailable в состояние автомата.
func StateFromKeyAvailable(keyAvailable bool) KeyState {
	if keyAvailable {
		return StateWithSecurity
	}
	return StateWithStudents
}

// KeyAvailable возвращает значение флага Room.KeyAvailable для состояния.
func (s KeyState) KeyAvailable() bool {
	return s == StateWithSecurity
}

// ParseTransactionType преобразует строку в TransactionType.
// Принимает "taking" как синоним "receiving" для совместимости
// со старыми формами. Возвращает ошибку для недопустимых значений.
func ParseTransactionType(s string) (TransactionType, error) {
	switch s {
	case string(TypeGiving):
		return TypeGiving, nil
	case string(TypeReceiving), legacyTakingAlias:
		return TypeReceiving, nil
	default:
		return "", fmt.Errorf("недопустимый тип передачи: %q, допустимые: giving, receiving", s)
	}
}

// CanTransition проверяет, допустима ли передача из текущего состояния.
func CanTransition(current KeyState, t TransactionType) bool {
	return validTransitions[current] == t
}

// Transition выполняет переход и возвращает новое состояние.
//
// Ошибки:
//   - INVALID_TRANSITION — направление не совпадает с текущим состоянием
//     (например, giving, когда ключ уже у охраны)
func Transition(current KeyState, t TransactionType) (KeyState, error) {
	if !CanTransition(current, t) {
		return "", &TransitionError{
			Code: "INVALID_TRANSITION",
			Message: fmt.Sprintf("передача %s недопустима из состояния %s",
				t, current),
		}
	}
	return targetStates[t], nil
}

// TransitionError — ошибка недопустимого перехода владения ключом.
type TransitionError struct {
	Code    string // Машиночитаемый код (INVALID_TRANSITION)
	Message string // Человекочитаемое описание
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
