// Package orderid генерирует идентификаторы заказов вида ORDER_<unix-ms>_<7 символов base36>.
package orderid

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"
)

const (
	prefix    = "ORDER_"
	suffixLen = 7
	alphabet  = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// New возвращает новый идентификатор для момента now.
func New(now time.Time) string {
	buf := make([]byte, 0, len(prefix)+14+1+suffixLen)
	buf = append(buf, prefix...)
	buf = strconv.AppendInt(buf, now.UnixMilli(), 10)
	buf = append(buf, '_')
	base := big.NewInt(int64(len(alphabet)))
	for i := 0; i < suffixLen; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			// crypto/rand не возвращает ошибок на поддерживаемых платформах
			panic(err)
		}
		buf = append(buf, alphabet[n.Int64()])
	}
	return string(buf)
}
