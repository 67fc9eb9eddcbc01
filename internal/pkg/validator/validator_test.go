package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"test@example.com", "user.name+1@domain.co", "a@b.cd"}
	invalid := []string{"test@", "@example.com", "test@.com", "test@com", "test@domain", " ", ""}
	for _, email := range valid {
		if !IsValidEmail(email) {
			t.Errorf("IsValidEmail(%q) = false, want true", email)
		}
	}
	for _, email := range invalid {
		if IsValidEmail(email) {
			t.Errorf("IsValidEmail(%q) = true, want false", email)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2023-01-01", "2000-12-31"}
	invalid := []string{"2023-13-01", "2023-01-32", "2023/01/01", "01-01-2023", ""}
	for _, s := range valid {
		_, ok := IsValidDate(s)
		if !ok {
			t.Errorf("IsValidDate(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		_, ok := IsValidDate(s)
		if ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestIsValidDate_ReturnsParsedTime(t *testing.T) {
	date, ok := IsValidDate("2025-06-15")
	if !ok {
		t.Fatalf("IsValidDate(%q) = false, want true", "2025-06-15")
	}
	if date.Year() != 2025 || date.Month() != 6 || date.Day() != 15 {
		t.Errorf("IsValidDate parsed %v, want 2025-06-15", date)
	}
}

func TestIsValidYear(t *testing.T) {
	valid := []int{2000, 2025, 2100}
	invalid := []int{1999, 2101, 0, -1}
	for _, year := range valid {
		if !IsValidYear(year) {
			t.Errorf("IsValidYear(%d) = false, want true", year)
		}
	}
	for _, year := range invalid {
		if IsValidYear(year) {
			t.Errorf("IsValidYear(%d) = true, want false", year)
		}
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "email", Message: "invalid"},
		{Field: "start_date", Message: "required"},
	}
	got := errs.Error()
	want := "email: invalid; start_date: required"
	if got != want {
		t.Errorf("ValidationErrors.Error() = %q, want %q", got, want)
	}
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "email", Message: "invalid"},
		{Field: "start_date", Message: "required"},
	}
	got := errs.ToMap()
	want := map[string]string{"email": "invalid", "start_date": "required"}
	if len(got) != len(want) {
		t.Errorf("ValidationErrors.ToMap() length = %d, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ValidationErrors.ToMap()[%q] = %q, want %q", k, got[k], v)
		}
	}
}
