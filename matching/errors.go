package matching

import "errors"

var (
	// ErrInvalidOptions некорректная конфигурация сверки
	ErrInvalidOptions = errors.New("invalid reconciliation options")
	// ErrUnknownColumn настроенная колонка отсутствует в наборе данных
	ErrUnknownColumn = errors.New("unknown column")
	// ErrArbiterRequired включена валидация арбитром, но арбитр не передан
	ErrArbiterRequired = errors.New("arbiter validation enabled but no arbiter configured")
	// ErrAlreadyConsumed идентификатор источника уже занят принятым совпадением
	ErrAlreadyConsumed = errors.New("source identifier already consumed")
)
