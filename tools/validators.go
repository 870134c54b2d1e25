package tools

import "regexp"

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// PasswordMinLength é ajustado no boot a partir de
// security.password_min_chars da configuração.
var PasswordMinLength = 6

func ValidateEmail(email string) bool {
	return emailRe.MatchString(email)
}

// CheckPassword devolve o nome do campo problemático ("" se ok).
func CheckPassword(password string) string {
	if len(password) < PasswordMinLength {
		return "password"
	}
	return ""
}
