package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode — стабильный машинный код ошибки, который видит клиент.
type ErrorCode string

const (
	CodeSuccess                 ErrorCode = "SUCCESS"
	CodeRequiredParamMissing    ErrorCode = "REQUIRED_PARAMETER_MISSING"
	CodeInvalidFirstName        ErrorCode = "INVALID_FIRST_NAME"
	CodeInvalidLastName         ErrorCode = "INVALID_LAST_NAME"
	CodeInvalidEmail            ErrorCode = "INVALID_EMAIL"
	CodeInvalidPassword         ErrorCode = "INVALID_PASSWORD"
	CodeInvalidOTP              ErrorCode = "INVALID_OTP"
	CodeInvalidEmailOrPassword  ErrorCode = "INVALID_EMAIL_OR_PASSWORD"
	CodeInvalidUserID           ErrorCode = "INVALID_USER_ID"
	CodeUserAlreadyExists       ErrorCode = "USER_ALREADY_EXIST"
	CodeUserNotExist            ErrorCode = "USER_NOT_EXIST"
	CodeAccountNotFound         ErrorCode = "ACCOUNT_NOT_FOUND"
	CodeEmailNotVerified        ErrorCode = "EMAIL_NOT_VERIFIED"
	CodeEmailAlreadyVerified    ErrorCode = "EMAIL_ALREADY_VERIFIED"
	CodeEmailAlreadyTaken       ErrorCode = "EMAIL_ALREADY_TAKEN"
	CodeAccountDisabled         ErrorCode = "ACCOUNT_DISABLED"
	CodeAccountSuspended        ErrorCode = "ACCOUNT_SUSPENDED"
	CodeUnauthorized            ErrorCode = "UNAUTHORIZED"
	CodeLimitExceedTryIn5Min    ErrorCode = "LIMIT_EXCEED_TRY_IN_5MIN"
	CodeLimitExceedTryIn60Min   ErrorCode = "LIMIT_EXCEED_TRY_IN_60MIN"
	CodeLimitExceedTryIn24Hr    ErrorCode = "LIMIT_EXCEED_TRY_IN_24HR"
	CodeTooManyRequests         ErrorCode = "TOO_MANY_REQUESTS"
	CodeFileSizeLimitExceed     ErrorCode = "FILE_SIZE_LIMIT_EXCEED"
	CodeInvalidFileType         ErrorCode = "INVALID_FILE_TYPE"
	CodeUnknownServerError      ErrorCode = "UNKNOWN_SERVER_ERROR"
)

// AppError — ошибка бизнес-логики с HTTP статусом и машинным кодом.
// Один и тот же код может отдаваться с разными статусами на разных
// маршрутах (ACCOUNT_DISABLED: 401 на login, 400 на forget-password),
// поэтому статус хранится явно, а не выводится из кода.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New создаёт AppError со статусом по умолчанию для кода.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: defaultStatus(code),
	}
}

// Wrap оборачивает причину в AppError, сохраняя её для логов.
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: defaultStatus(code),
		Cause:      err,
	}
}

// WithStatus возвращает копию ошибки с другим HTTP статусом.
func (e *AppError) WithStatus(status int) *AppError {
	clone := *e
	clone.HTTPStatus = status
	return &clone
}

// Internal маскирует неожиданную ошибку коллаборатора единообразным 500.
func Internal(err error) *AppError {
	return Wrap(err, CodeUnknownServerError, "internal server error, please try later")
}

func defaultStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeUserNotExist, CodeAccountNotFound:
		return http.StatusNotFound
	case CodeUserAlreadyExists, CodeEmailAlreadyVerified:
		return http.StatusConflict
	case CodeUnauthorized, CodeAccountDisabled, CodeAccountSuspended:
		return http.StatusUnauthorized
	case CodeLimitExceedTryIn5Min, CodeLimitExceedTryIn60Min, CodeLimitExceedTryIn24Hr, CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeUnknownServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// As извлекает *AppError из цепочки ошибок.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is сообщает, несёт ли ошибка указанный машинный код.
func Is(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
