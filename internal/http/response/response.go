// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Ошибки возвращаются
// в конверте {error, details?}, успешные ответы несут флаг success.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/wingoboss/wingoboss-api/internal/apperr"
)

// ErrorResponse конверт ошибки. Используется и в аннотациях @Failure.
type ErrorResponse struct {
	Error   string `json:"error" example:"Missing required fields"`
	Details string `json:"details,omitempty" example:"order_amount: invalid value"`
	State   string `json:"state,omitempty"`
}

// OKResponse минимальный успешный ответ без данных.
type OKResponse struct {
	Success bool `json:"success" example:"true"`
}

// OK возвращает успешный ответ без данных.
func OK() OKResponse {
	return OKResponse{Success: true}
}

// Error возвращает конверт ошибки с переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// ErrorWithDetails возвращает конверт ошибки с деталями.
func ErrorWithDetails(msg, details string) ErrorResponse {
	return ErrorResponse{Error: msg, Details: details}
}

// ValidationError формирует конверт ошибки на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		case "numeric":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only numbers", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "gt":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be greater than %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return ErrorResponse{
		Error: strings.Join(errsMsgs, ", "),
	}
}

// RenderError пишет ошибку приложения с соответствующим HTTP-статусом.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperr.From(err)
	render.Status(r, appErr.HTTPStatus())
	render.JSON(w, r, ErrorWithDetails(appErr.Message, appErr.Details))
}

// RenderValidation пишет ошибку валидации со статусом 400.
func RenderValidation(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, http.StatusBadRequest)
	if errs, ok := err.(validator.ValidationErrors); ok {
		render.JSON(w, r, ValidationError(errs))
		return
	}
	render.JSON(w, r, Error("invalid request body"))
}
