package validation

import "testing"

func TestPasswordStrength(t *testing.T) {
	cases := []struct {
		password string
		want     int
	}{
		{"", 0},
		{"abc", 0},             // corto, solo minúsculas
		{"abcdefgh", 25},       // largo
		{"Abcdefgh", 50},       // largo + mayús/minús
		{"Abcdefg1", 75},       // largo + mayús/minús + dígito
		{"Abcdef1!", 100},      // los cuatro criterios
		{"Ab1!", 75},           // corto pero con los otros tres
		{"password", 25},       // largo solamente
		{"PASSWORD123", 50},    // largo + dígito (sin minúsculas no suma el mixto)
	}

	for _, tc := range cases {
		got := PasswordStrength(tc.password)
		if got != tc.want {
			t.Errorf("PasswordStrength(%q) = %d, want %d", tc.password, got, tc.want)
		}
	}
}

func TestStrengthLabel(t *testing.T) {
	if StrengthLabel(0) != "Weak" {
		t.Errorf("Expected Weak for 0")
	}
	if StrengthLabel(25) != "Fair" {
		t.Errorf("Expected Fair for 25")
	}
	if StrengthLabel(50) != "Good" {
		t.Errorf("Expected Good for 50")
	}
	if StrengthLabel(75) != "Strong" {
		t.Errorf("Expected Strong for 75")
	}
}

func TestValidateMasterPassword(t *testing.T) {
	// Password fuerte con confirmación correcta
	if err := ValidateMasterPassword("Abcdef1!", "Abcdef1!"); err != nil {
		t.Errorf("Expected valid password, got error: %v", err)
	}

	// Password vacío
	if err := ValidateMasterPassword("", ""); err == nil {
		t.Error("Expected error for empty password")
	}

	// Password débil
	if err := ValidateMasterPassword("abcdefgh", "abcdefgh"); err == nil {
		t.Error("Expected error for weak password")
	}

	// Confirmación no coincide
	if err := ValidateMasterPassword("Abcdef1!", "Abcdef1?"); err == nil {
		t.Error("Expected error for mismatched confirmation")
	}
}
