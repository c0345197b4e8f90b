package pricing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wingoboss/wingoboss-api/internal/apperr"
	"github.com/wingoboss/wingoboss-api/internal/cache"
	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/storage"
)

type MockSettings struct {
	mock.Mock
}

func (m *MockSettings) GetSetting(ctx context.Context, key string, out any) (bool, error) {
	args := m.Called(ctx, key, out)
	if fn, ok := args.Get(0).(func(any) bool); ok {
		return fn(out), args.Error(1)
	}
	return args.Bool(0), args.Error(1)
}

func (m *MockSettings) MergeSetting(ctx context.Context, key string, fields map[string]any) error {
	return m.Called(ctx, key, fields).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	return &cache.Cache{Db: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
}

func TestService_Get(t *testing.T) {
	tests := []struct {
		name   string
		stored func(any) bool
		want   models.Prices
	}{
		{
			name:   "missing document uses defaults",
			stored: func(any) bool { return false },
			want:   models.Prices{Weekly: 99, Monthly: 299},
		},
		{
			name: "stored prices win",
			stored: func(out any) bool {
				*out.(*models.Prices) = models.Prices{Weekly: 149, Monthly: 499}
				return true
			},
			want: models.Prices{Weekly: 149, Monthly: 499},
		},
		{
			name: "partial document filled from defaults",
			stored: func(out any) bool {
				out.(*models.Prices).Weekly = 50
				return true
			},
			want: models.Prices{Weekly: 50, Monthly: 299},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockSettings)
			repo.On("GetSetting", mock.Anything, storage.SettingPrices, mock.Anything).Return(tt.stored, nil).Once()
			svc := New(repo, newCache(t), newNoopLogger())

			got, err := svc.Get(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// второй вызов обслуживается из кэша
			got, err = svc.Get(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Get_StoreError(t *testing.T) {
	repo := new(MockSettings)
	repo.On("GetSetting", mock.Anything, storage.SettingPrices, mock.Anything).Return(false, errors.New("db down"))

	_, err := New(repo, newCache(t), newNoopLogger()).Get(context.Background())
	require.Error(t, err)
}

func TestService_Set(t *testing.T) {
	repo := new(MockSettings)
	repo.On("GetSetting", mock.Anything, storage.SettingPrices, mock.Anything).Return(false, nil).Twice()
	repo.On("MergeSetting", mock.Anything, storage.SettingPrices, map[string]any{
		"weekly":  float64(129),
		"monthly": float64(349),
	}).Return(nil)
	svc := New(repo, newCache(t), newNoopLogger())

	_, err := svc.Get(context.Background())
	require.NoError(t, err)

	got, err := svc.Set(context.Background(), models.Prices{Weekly: 129, Monthly: 349})
	require.NoError(t, err)
	assert.Equal(t, models.Prices{Weekly: 129, Monthly: 349}, got)

	// кэш сброшен, следующее чтение идёт в хранилище
	_, err = svc.Get(context.Background())
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestService_Set_Validation(t *testing.T) {
	repo := new(MockSettings)
	_, err := New(repo, newCache(t), newNoopLogger()).Set(context.Background(), models.Prices{Weekly: 0, Monthly: 10})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	repo.AssertNotCalled(t, "MergeSetting", mock.Anything, mock.Anything, mock.Anything)
}
