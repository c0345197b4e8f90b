// Package apperr описывает таксономию ошибок приложения и их отображение в HTTP-статусы.
package apperr

import (
	"errors"
	"net/http"
)

// Kind категория ошибки.
type Kind int

const (
	// KindInternal непредвиденная ошибка (500).
	KindInternal Kind = iota
	// KindValidation отсутствующие или некорректные входные данные (400).
	KindValidation
	// KindConfiguration не заданы учётные данные сервера (500).
	KindConfiguration
	// KindGateway ответ платёжного шлюза не 2xx, статус пробрасывается.
	KindGateway
	// KindUnauthorized нет или недействительна сессия (401).
	KindUnauthorized
	// KindForbidden нет прав или подписки (403).
	KindForbidden
	// KindNotFound объект не найден (404).
	KindNotFound
	// KindUnavailable внешний сервис временно недоступен (503).
	KindUnavailable
)

// Error ошибка приложения с категорией, сообщением для клиента и деталями.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus возвращает HTTP-статус для ошибки.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindGateway:
		if e.Status >= 400 {
			return e.Status
		}
		return http.StatusBadGateway
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Validation создаёт ошибку валидации.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Configuration создаёт ошибку конфигурации сервера.
func Configuration(err error) *Error {
	return &Error{Kind: KindConfiguration, Message: "Server configuration error", Err: err}
}

// Gateway создаёт ошибку платёжного шлюза с сохранением статуса.
func Gateway(msg string, status int, details string, err error) *Error {
	return &Error{Kind: KindGateway, Message: msg, Status: status, Details: details, Err: err}
}

// Unauthorized создаёт ошибку отсутствующей сессии.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Forbidden создаёт ошибку отказа в доступе.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// NotFound создаёт ошибку отсутствующего объекта.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Unavailable создаёт ошибку недоступности внешнего сервиса.
func Unavailable(msg string, err error) *Error {
	return &Error{Kind: KindUnavailable, Message: msg, Err: err}
}

// Internal оборачивает непредвиденную ошибку.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal Server Error", Err: err}
}

// From приводит произвольную ошибку к *Error. Неизвестные ошибки становятся Internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Is сообщает, относится ли ошибка к указанной категории.
func Is(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
