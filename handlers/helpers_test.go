package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapServiceErrorToHTTP_UnexpectedErrorKeepsText(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/tournaments", nil)
	rec := httptest.NewRecorder()

	err := fmt.Errorf("failed to list tournaments: %w", errors.New("connection refused"))
	mapServiceErrorToHTTP(rec, req, err)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "failed to list tournaments: connection refused", body["error"])
}
