package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrNoPendingChallenge возвращается, если подтверждение пришло, когда капчи нет
var ErrNoPendingChallenge = errors.New("no pending challenge")

// ErrRunInProgress возвращается, если проход по категории уже выполняется
var ErrRunInProgress = errors.New("ingestion run already in progress")

// ErrUnknownCategory возвращается для категории, отличной от rental и sale
var ErrUnknownCategory = errors.New("unknown category")

// FetchError описывает ошибку навигации или браузерной сессии
type FetchError struct {
	URL   string
	Stage string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed at stage %q: %v", e.URL, e.Stage, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ChallengeDetected сообщает, что на странице обнаружена проверка на робота.
// Не является терминальной ошибкой: обрабатывается через ручное подтверждение оператора.
type ChallengeDetected struct {
	URL        string
	Marker     string
	DetectedAt time.Time
}

func (e *ChallengeDetected) Error() string {
	return fmt.Sprintf("bot challenge detected on %s (marker %q)", e.URL, e.Marker)
}

// ExtractionRejected означает, что во фрагменте нет обязательных полей
type ExtractionRejected struct {
	Reason string
}

func (e *ExtractionRejected) Error() string {
	return "extraction rejected: " + e.Reason
}

// PersistenceError описывает ошибку записи или соединения с хранилищем
type PersistenceError struct {
	Op      string
	Address string
	Err     error
}

func (e *PersistenceError) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence %s failed for %q: %v", e.Op, e.Address, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrInvalidLinkToken возвращается, если подпись ссылки на фильтры не прошла проверку или не совпадает с чатом
var ErrInvalidLinkToken = errors.New("invalid filters link token")
