package order

import (
	"crypto/rand"
	"time"
)

// displayIDAlphabet excludes 0, O, I and 1 to avoid human transcription
// errors when customers read order numbers over the phone.
const displayIDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const displayIDSuffixLen = 4

// GenerateDisplayID returns a human-readable order identifier of the form
// ORD-YYYYMMDD-XXXX. The random suffix is short enough that collisions
// are possible; the display id is not the primary key and carries a
// unique index only as a backstop.
func GenerateDisplayID(now time.Time) string {
	var suffix [displayIDSuffixLen]byte
	rand.Read(suffix[:])
	// 32-character alphabet divides 256 evenly, so the modulo is unbiased.
	for i, b := range suffix {
		suffix[i] = displayIDAlphabet[int(b)%len(displayIDAlphabet)]
	}
	return "ORD-" + now.Format("20060102") + "-" + string(suffix[:])
}
