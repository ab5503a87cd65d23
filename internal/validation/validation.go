package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Границы полей. Имя и фамилия — от 2 до 15 символов, пароль — от 6 до
// 20 символов с хотя бы одной буквой и одной цифрой.
const (
	MinNameLength     = 2
	MaxNameLength     = 15
	MinPasswordLength = 6
	MaxPasswordLength = 20
	OTPLength         = 6
)

var (
	namePattern  = regexp.MustCompile(`^[A-Za-zА-Яа-яЁё]+(?: [A-Za-zА-Яа-яЁё]+)*$`)
	emailPattern = regexp.MustCompile(`^[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}$`)
	otpPattern   = regexp.MustCompile(`^[0-9]{6}$`)
)

// ValidName проверяет имя или фамилию: длина и допустимые символы.
func ValidName(name string) bool {
	length := utf8.RuneCountInString(name)
	if length < MinNameLength || length > MaxNameLength {
		return false
	}
	return namePattern.MatchString(name)
}

// NormalizeEmail приводит email к каноничному виду для хранения и поиска.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail проверяет формат email после нормализации.
func ValidEmail(email string) bool {
	email = NormalizeEmail(email)
	if email == "" || len(email) > 254 {
		return false
	}
	return emailPattern.MatchString(email)
}

// ValidPassword проверяет пароль: 6..20 символов, минимум одна буква
// и одна цифра.
func ValidPassword(password string) bool {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return false
	}

	var hasLetter, hasDigit bool
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

// ValidOTPFormat проверяет форму кода до обращения к хранилищу.
func ValidOTPFormat(code string) bool {
	return otpPattern.MatchString(code)
}
