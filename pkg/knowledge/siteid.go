package knowledge

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
)

const (
	siteIDLength = 12
	base62       = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

// NewSiteID returns an identifier like site_15oJOoBsQFa3.
func NewSiteID(prefix string) string {
	if prefix == "" {
		prefix = "site"
	}
	out := make([]byte, 0, siteIDLength)
	buf := make([]byte, siteIDLength*2)
	for len(out) < siteIDLength {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand: " + err.Error())
		}
		for _, b := range buf {
			// 248 = 4*62; rejecting above it keeps the alphabet uniform.
			if b >= 248 {
				continue
			}
			out = append(out, base62[b%62])
			if len(out) == siteIDLength {
				break
			}
		}
	}
	return prefix + "_" + string(out)
}

// newRecordID returns a time-ordered record identifier.
func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func now() time.Time {
	return time.Now().UTC()
}
