package domain

import "errors"

var (
	// ErrAdapter — сбой платформы при выполнении действия (удаление, мут, бан, отправка).
	// Такие ошибки логируются и не прерывают обновление журнала предупреждений.
	ErrAdapter = errors.New("platform adapter error")
	// ErrPersistence — сбой записи в хранилище. Операция считается не выполненной.
	ErrPersistence = errors.New("persistence error")
	// ErrInvalidArgument — некорректные входные данные, состояние не изменено.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound — запрошенная запись отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrForbidden — у пользователя нет прав на операцию.
	ErrForbidden = errors.New("forbidden")
)
