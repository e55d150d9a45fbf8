package seed

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Daily returns a deterministic seed for a date using HMAC(salt, YYYY-MM-DD).
// Every caller with the same salt gets the same seed for the same UTC day.
func Daily(date time.Time, salt string) uint64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// take first 8 bytes to uint64
	return binary.BigEndian.Uint64(sum[:8])
}
