package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/gosuda/trail/internal/secrets"
)

// Signer computes HMAC-SHA256 signatures over audit events.
type Signer struct {
	key []byte
}

func NewSigner(key secrets.Key) *Signer {
	return &Signer{key: key.Bytes()}
}

// Sign returns the hex signature of
//
//	id | companyID | eventType | canonicalPayload | timestamp
//
// where a nil companyID is rendered as the empty string.
func (s *Signer) Sign(id int64, companyID *int64, eventType string, canonicalPayload []byte, timestamp string) string {
	mac := hmac.New(sha256.New, s.key)
	_, _ = mac.Write([]byte(strconv.FormatInt(id, 10)))
	_, _ = mac.Write([]byte{'|'})
	if companyID != nil {
		_, _ = mac.Write([]byte(strconv.FormatInt(*companyID, 10)))
	}
	_, _ = mac.Write([]byte{'|'})
	_, _ = mac.Write([]byte(eventType))
	_, _ = mac.Write([]byte{'|'})
	_, _ = mac.Write(canonicalPayload)
	_, _ = mac.Write([]byte{'|'})
	_, _ = mac.Write([]byte(timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

// Equal compares two signatures in constant time.
func (s *Signer) Equal(expected, actual string) bool {
	return hmac.Equal([]byte(expected), []byte(actual))
}
