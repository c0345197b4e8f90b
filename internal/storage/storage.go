// Package storage содержит общие для всех бэкендов хранилища ошибки и ключи документов.
package storage

import "errors"

var (
	// ErrProfileNotFound профиль с таким uid не существует.
	ErrProfileNotFound = errors.New("profile not found")
)

// Ключи документов настроек.
const (
	SettingPrices = "prices"
	SettingPages  = "pages"
)
