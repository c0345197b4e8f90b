package prices

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/wingoboss/wingoboss-api/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Get(ctx context.Context) (models.Prices, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Prices), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestPricesHandler(t *testing.T) {
	svc := new(MockService)
	svc.On("Get", mock.Anything).Return(models.Prices{Weekly: 149, Monthly: 399}, nil).Once()

	rr := httptest.NewRecorder()
	New(newNoopLogger(), svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/prices", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"weekly":149,"monthly":399}`, rr.Body.String())
}

func TestPricesHandler_Error(t *testing.T) {
	svc := new(MockService)
	svc.On("Get", mock.Anything).Return(models.Prices{}, errors.New("boom")).Once()

	rr := httptest.NewRecorder()
	New(newNoopLogger(), svc).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/prices", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
