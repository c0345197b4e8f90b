package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// GetSetting читает документ настроек в out. Возвращает false, если документа нет.
func (s *Storage) GetSetting(ctx context.Context, key string, out any) (bool, error) {
	const op = "storage.GetSetting"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var raw []byte
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// MergeSetting сливает поля верхнего уровня в документ настроек, создавая его при отсутствии.
func (s *Storage) MergeSetting(ctx context.Context, key string, fields map[string]any) error {
	const op = "storage.MergeSetting"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `INSERT INTO settings (key, value, updated_at)
			  VALUES ($1, $2::jsonb, now())
			  ON CONFLICT (key) DO UPDATE SET
			      value = settings.value || EXCLUDED.value,
			      updated_at = now()`
	if _, err := s.DB.ExecContext(ctx, query, key, string(data)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
