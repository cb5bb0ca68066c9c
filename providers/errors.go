package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// Классификация ошибок источников данных. Транзиентные ошибки (сеть,
// 5xx, таймауты) не имеют собственного sentinel — это всё остальное.
var (
	// Запрошенной сущности нет выше по течению. Не повторяется: для
	// пайплайна это ожидаемое состояние "данных ещё нет".
	ErrNotFound = errors.New("requested entity not found upstream")

	// Источник отклонил запрос из-за превышения лимита. Повторяется
	// после увеличенной паузы.
	ErrRateLimited = errors.New("source rate limit exceeded")

	// Ошибка авторизации или схемы запроса. Не повторяется,
	// поднимается оператору.
	ErrFatal = errors.New("fatal source error")

	// Ответ пришёл, но его форма не соответствует ожидаемой
	// (например, неполный состав участников).
	ErrDataShape = errors.New("unexpected data shape from source")
)

// statusError переводит HTTP-статус в ошибку таксономии.
// Неизвестные статусы считаются транзиентными.
func statusError(source string, code int) error {
	switch {
	case code == http.StatusNotFound:
		return fmt.Errorf("%s: status %d: %w", source, code, ErrNotFound)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%s: status %d: %w", source, code, ErrRateLimited)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%s: status %d: %w", source, code, ErrFatal)
	default:
		return fmt.Errorf("%s: unexpected status %d", source, code)
	}
}

// retryable сообщает, имеет ли смысл повторять запрос.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrFatal) || errors.Is(err, ErrDataShape) {
		return false
	}
	return true
}
