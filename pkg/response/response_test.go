package response

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"anoa.com/librarydesk/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestResponseError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"not found", fmt.Errorf("book: %w", apperror.ErrNotFound), http.StatusNotFound, `{"error":"book: resource not found"}`},
		{"unavailable", apperror.ErrUnavailable, http.StatusConflict, `{"error":"book is not available"}`},
		{"invalid operation", apperror.ErrInvalidOperation, http.StatusUnprocessableEntity, `{"error":"invalid operation"}`},
		{"internal hides detail", errors.New("pq: connection refused"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			ResponseError(c, tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestParseUUIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
	_, err := ParseUUIDParam(c, "id")
	assert.ErrorIs(t, err, apperror.ErrBadRequest)

	c.Params = gin.Params{{Key: "id", Value: "0190b1a4-8c1e-7cc2-9a55-3f4c1f1d2e3a"}}
	id, err := ParseUUIDParam(c, "id")
	assert.NoError(t, err)
	assert.Equal(t, "0190b1a4-8c1e-7cc2-9a55-3f4c1f1d2e3a", id.String())
}
