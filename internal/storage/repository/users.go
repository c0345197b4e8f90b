package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wingoboss/wingoboss-api/internal/models"
	"github.com/wingoboss/wingoboss-api/internal/storage"
)

const profileColumns = `uid, email, display_name, photo_url, device_id, last_login, created_at,
	sub_is_subscribed, sub_plan, sub_start_date, sub_expires_at, sub_amount,
	sub_currency, sub_order_id, sub_transaction_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.UserProfile, error) {
	var (
		p                    models.UserProfile
		isSubscribed         bool
		plan                 string
		startDate, expiresAt sql.NullTime
		amount               float64
		currency             string
		orderID, txID        string
	)
	if err := row.Scan(&p.UID, &p.Email, &p.DisplayName, &p.PhotoURL, &p.DeviceID,
		&p.LastLogin, &p.CreatedAt, &isSubscribed, &plan, &startDate, &expiresAt,
		&amount, &currency, &orderID, &txID); err != nil {
		return nil, err
	}

	if isSubscribed || expiresAt.Valid || plan != "" {
		sub := &models.Subscription{
			IsSubscribed:  isSubscribed,
			Plan:          models.Plan(plan),
			Amount:        amount,
			Currency:      currency,
			OrderID:       orderID,
			TransactionID: txID,
		}
		if startDate.Valid {
			sub.StartDate = &startDate.Time
		}
		if expiresAt.Valid {
			sub.ExpiresAt = &expiresAt.Time
		}
		p.Subscription = sub
	}
	return &p, nil
}

// UpsertProfile создаёт профиль или обновляет поля входа у существующего.
// Блок подписки и created_at не трогаются.
func (s *Storage) UpsertProfile(ctx context.Context, in models.ProfileUpsert) (*models.UserProfile, error) {
	const op = "storage.UpsertProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (uid, email, display_name, photo_url, device_id, last_login)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (uid) DO UPDATE SET
			      email = EXCLUDED.email,
			      display_name = EXCLUDED.display_name,
			      photo_url = EXCLUDED.photo_url,
			      device_id = EXCLUDED.device_id,
			      last_login = EXCLUDED.last_login
			  RETURNING ` + profileColumns
	row := s.DB.QueryRowContext(ctx, query,
		in.UID, in.Email, in.DisplayName, in.PhotoURL, in.DeviceID, in.LastLogin)
	p, err := scanProfile(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// GetProfile возвращает профиль по uid.
func (s *Storage) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	const op = "storage.GetProfile"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + profileColumns + ` FROM users WHERE uid = $1`
	p, err := scanProfile(s.DB.QueryRowContext(ctx, query, uid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrProfileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// ListProfiles возвращает все профили, последние входы первыми.
func (s *Storage) ListProfiles(ctx context.Context) ([]*models.UserProfile, error) {
	const op = "storage.ListProfiles"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + profileColumns + ` FROM users ORDER BY last_login DESC`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var res []*models.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// SetSubscription перезаписывает блок подписки. nil очищает его.
func (s *Storage) SetSubscription(ctx context.Context, uid string, sub *models.Subscription) error {
	const op = "storage.SetSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if sub == nil {
		sub = &models.Subscription{}
	}
	var startDate, expiresAt sql.NullTime
	if sub.StartDate != nil {
		startDate = sql.NullTime{Time: sub.StartDate.UTC(), Valid: true}
	}
	if sub.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: sub.ExpiresAt.UTC(), Valid: true}
	}

	query := `UPDATE users SET
			      sub_is_subscribed = $2,
			      sub_plan = $3,
			      sub_start_date = $4,
			      sub_expires_at = $5,
			      sub_amount = $6,
			      sub_currency = $7,
			      sub_order_id = $8,
			      sub_transaction_id = $9
			  WHERE uid = $1`
	res, err := s.DB.ExecContext(ctx, query, uid, sub.IsSubscribed, string(sub.Plan),
		startDate, expiresAt, sub.Amount, sub.Currency, sub.OrderID, sub.TransactionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrProfileNotFound)
	}
	return nil
}

// ClearDeviceID сбрасывает device_id, только если он всё ещё равен deviceID.
// Возвращает true, если запись изменилась.
func (s *Storage) ClearDeviceID(ctx context.Context, uid, deviceID string) (bool, error) {
	const op = "storage.ClearDeviceID"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET device_id = '' WHERE uid = $1 AND device_id = $2 AND device_id <> ''`,
		uid, deviceID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n > 0, nil
}
