package validation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deppfellow/bicycle-gateway/internal/errs"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupRequest struct {
	ID       string `param:"id" validate:"required"`
	Limit    int    `query:"limit" validate:"omitempty,min=2"`
	Callback string `query:"callback" validate:"omitempty,url"`
}

func (r *lookupRequest) Validate() error {
	return Struct(r)
}

func newContext(target string, id string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func TestBindAndValidate_OK(t *testing.T) {
	req := &lookupRequest{}
	err := BindAndValidate(newContext("/42?limit=3", "42"), req)

	require.NoError(t, err)
	assert.Equal(t, "42", req.ID)
	assert.Equal(t, 3, req.Limit)
}

func TestBindAndValidate_FieldErrors(t *testing.T) {
	err := BindAndValidate(newContext("/x?limit=1&callback=nope", ""), &lookupRequest{})

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.ElementsMatch(t, []errs.FieldError{
		{Field: "id", Error: "is required"},
		{Field: "limit", Error: "must be at least 2"},
		{Field: "callback", Error: "must be a valid URL"},
	}, httpErr.Errors)
}

func TestBindAndValidate_BindError(t *testing.T) {
	err := BindAndValidate(newContext("/42?limit=abc", "42"), &lookupRequest{})

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.NotEmpty(t, httpErr.Message)
}

func TestExtractValidationError_Custom(t *testing.T) {
	msg, fields := extractValidationError(CustomValidationErrors{{Field: "name", Message: "is blank"}})

	assert.Equal(t, "Validation failed", msg)
	assert.Equal(t, []errs.FieldError{{Field: "name", Error: "is blank"}}, fields)
}

func TestExtractValidationError_PlainError(t *testing.T) {
	_, fields := extractValidationError(errors.New("boom"))

	require.Len(t, fields, 1)
	assert.Equal(t, "boom", fields[0].Error)
}
