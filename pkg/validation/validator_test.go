package validation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name      string `json:"name" binding:"required,min=3,max=100"`
	Email     string `json:"email" binding:"required,email,max=100"`
	Password  string `json:"password" binding:"required,min=6"`
	BirthDate string `json:"birth_date" binding:"required,birthdate,adult"`
	Phone     string `json:"phone" binding:"omitempty,max=15,phone_br"`
}

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	v.SetTagName("binding")
	require.NoError(t, Register(v))
	return v
}

func withNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := Now
	Now = func() time.Time { return now }
	t.Cleanup(func() { Now = prev })
}

func validSignup() signup {
	return signup{
		Name:      "Maria Silva",
		Email:     "maria@example.com",
		Password:  "secret1",
		BirthDate: "1990-05-17",
		Phone:     "(11) 91234-5678",
	}
}

func TestPhonePattern(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"(11) 91234-5678", true},
		{"(21) 3456-7890", true},
		{"", true},
		{"11 91234-5678", false},
		{"(01) 91234-5678", false},
		{"(11) 90234-5678", false},
		{"(11) 1234-5678", false},
		{"(11)91234-5678", false},
		{"(11) 91234-56789", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidPhone(tc.in))
		})
	}
}

func TestParseBirthDate(t *testing.T) {
	d, err := ParseBirthDate("1990-05-17")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseBirthDate("1990-05-17T23:10:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseBirthDate("17/05/1990")
	require.Error(t, err)
}

func TestRegister_ValidPayload(t *testing.T) {
	withNow(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	v := newValidator(t)

	require.NoError(t, v.Struct(validSignup()))

	s := validSignup()
	s.Phone = ""
	require.NoError(t, v.Struct(s))
}

func TestRegister_FieldMessages(t *testing.T) {
	withNow(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	v := newValidator(t)

	s := signup{
		Name:      "Al",
		Email:     "not-an-email",
		Password:  "123",
		BirthDate: "2008-03-10",
		Phone:     "11 91234-5678",
	}
	details := ToDetails(v.Struct(s))

	assert.Equal(t, map[string]string{
		"name":       "must be at least 3 characters long",
		"email":      "must be a valid email",
		"password":   "must be at least 6 characters long",
		"birth_date": "user must be at least 18 years old",
		"phone":      "must match the format (XX) XXXXX-XXXX",
	}, details)
}

func TestRegister_AdultBoundary(t *testing.T) {
	withNow(t, time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC))
	v := newValidator(t)

	s := validSignup()
	s.BirthDate = "2008-03-10"
	require.Error(t, v.Struct(s))

	s.BirthDate = "2008-03-09"
	require.NoError(t, v.Struct(s))
}

func TestRegister_BadDateReportsFormat(t *testing.T) {
	v := newValidator(t)

	s := validSignup()
	s.BirthDate = "yesterday"
	details := ToDetails(v.Struct(s))
	assert.Equal(t, "must be a date in YYYY-MM-DD format", details["birth_date"])
}

func TestRegister_Required(t *testing.T) {
	v := newValidator(t)

	details := ToDetails(v.Struct(signup{}))
	for _, field := range []string{"name", "email", "password", "birth_date"} {
		assert.Equal(t, "is required", details[field], field)
	}
	assert.NotContains(t, details, "phone")
}

func TestToDetails_InvalidJSON(t *testing.T) {
	var s signup
	err := json.Unmarshal([]byte(`{"name":`), &s)
	require.Error(t, err)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))

	err = json.Unmarshal([]byte(`{"name": 12}`), &s)
	require.Error(t, err)
	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))

	assert.Nil(t, ToDetails(nil))
}
