package validate

import (
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resetForm struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(resetForm{Token: "t", Password: "secret123", PasswordConfirm: "secret123"}))
}

func TestStruct_ErrorsKeyedByJSONName(t *testing.T) {
	err := Struct(resetForm{Password: "short", PasswordConfirm: "different"})

	var errs validation.Errors
	require.ErrorAs(t, err, &errs)

	assert.Contains(t, errs, "token")
	assert.Contains(t, errs, "password")
	assert.Contains(t, errs, "password_confirm")

	var ve validation.Error
	require.ErrorAs(t, errs["password_confirm"], &ve)
	assert.Equal(t, "validation_eqfield", ve.Code())
	assert.Equal(t, "Values don't match.", ve.Message())
}

func TestStruct_DateTimeTag(t *testing.T) {
	type form struct {
		Date string `json:"date" validate:"required,datetime=2006-01-02"`
	}

	assert.NoError(t, Struct(form{Date: "2025-03-01"}))

	var errs validation.Errors
	require.ErrorAs(t, Struct(form{Date: "03/01/2025"}), &errs)
	assert.Contains(t, errs, "date")
}
