package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	apperrors "github.com/lorrc/ticket-workflow/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	v := NewValidator()
	assert.False(t, v.HasErrors())

	v.Custom("dueDate", true, "unused").
		Custom("ticketID", false, "Must be a valid UUID")

	require.True(t, v.HasErrors())
	errs := v.Errors().Errors
	assert.Equal(t, []string{"Must be a valid UUID"}, errs["ticketID"])
	assert.NotContains(t, errs, "dueDate")
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Title string `json:"title"`
	}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"VPN"}`))
		got, err := DecodeJSON[body](httptest.NewRecorder(), req)
		require.NoError(t, err)
		assert.Equal(t, "VPN", got.Title)
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		got, err := DecodeJSON[body](httptest.NewRecorder(), req)
		require.NoError(t, err)
		assert.Empty(t, got.Title)
	})

	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":`))
		_, err := DecodeJSON[body](httptest.NewRecorder(), req)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
		assert.Equal(t, "Invalid request body", appErr.Message)
	})
}

func TestParseUUID(t *testing.T) {
	id := uuid.New()
	got, err := ParseUUID("ticketID", id.String())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUID("ticketID", "42")
	var verrs *apperrors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Errors, "ticketID")
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/tickets?limit=10&offset=30", nil)
	assert.Equal(t, PaginationParams{Limit: 10, Offset: 30}, ParsePagination(req))

	req = httptest.NewRequest(http.MethodGet, "/tickets?limit=-1&offset=abc", nil)
	assert.Equal(t, PaginationParams{}, ParsePagination(req))
}

func TestParseStringQueryParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/tickets?q=+printer+&status=", nil)

	q := ParseStringQueryParam(req, "q")
	require.NotNil(t, q)
	assert.Equal(t, "printer", *q)
	assert.Nil(t, ParseStringQueryParam(req, "status"))
}
