package authtest

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"time"
)

const (
	totpPeriod = 30
	totpDigits = 6
	totpSkew   = 1
)

// TOTPCode returns the RFC 6238 code for secret at t (SHA1, 30s, 6 digits).
func TOTPCode(secret []byte, t time.Time) string {
	return hotpCode(secret, t.Unix()/totpPeriod, totpDigits)
}

func verifyTOTP(secret []byte, code string, now time.Time) bool {
	if len(secret) == 0 || len(code) != totpDigits {
		return false
	}
	base := now.Unix() / totpPeriod
	for step := int64(-totpSkew); step <= totpSkew; step++ {
		counter := base + step
		if counter < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(hotpCode(secret, counter, totpDigits)), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

func hotpCode(secret []byte, counter int64, digits int) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, bin%mod)
}
