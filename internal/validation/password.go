package validation

import (
	"fmt"
	"unicode"
)

// PasswordError representa un error de validación del master password
type PasswordError struct {
	Field   string
	Message string
}

func (e *PasswordError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MinStrength es el puntaje mínimo aceptado para un master password.
// Un password suma 25 puntos por cada criterio cumplido (largo, mayúsculas y
// minúsculas, dígito, carácter especial): se exigen al menos 3 de 4.
const MinStrength = 75

// PasswordStrength calcula el puntaje de fortaleza (0-100) de un password.
// Criterios, 25 puntos cada uno:
//   - largo >= 8
//   - mayúsculas y minúsculas
//   - al menos un dígito
//   - al menos un carácter especial
func PasswordStrength(pwd string) int {
	strength := 0

	if len(pwd) >= 8 {
		strength += 25
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range pwd {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	if hasLower && hasUpper {
		strength += 25
	}
	if hasDigit {
		strength += 25
	}
	if hasSpecial {
		strength += 25
	}

	return strength
}

// StrengthLabel retorna la etiqueta de fortaleza usada en la UI
func StrengthLabel(strength int) string {
	switch {
	case strength < 25:
		return "Weak"
	case strength < 50:
		return "Fair"
	case strength < 75:
		return "Good"
	default:
		return "Strong"
	}
}

// ValidateMasterPassword valida un master password nuevo y su confirmación
func ValidateMasterPassword(password, confirm string) error {
	if password == "" {
		return &PasswordError{Field: "password", Message: "no puede estar vacío"}
	}

	if strength := PasswordStrength(password); strength < MinStrength {
		return &PasswordError{
			Field:   "password",
			Message: fmt.Sprintf("demasiado débil (%s, %d/100): se requiere al menos %d", StrengthLabel(strength), strength, MinStrength),
		}
	}

	if password != confirm {
		return &PasswordError{Field: "confirm_password", Message: "los passwords no coinciden"}
	}

	return nil
}
