// Package clickurl signs the tracking reference carried on affiliate links.
// The link synthesizer signs; the click redirect verifies.
package clickurl

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// SignatureLength is the number of hex characters kept from the HMAC.
const SignatureLength = 12

// RefPrefix marks a signed affiliate reference in a tracking URL.
const RefPrefix = "afl_"

// LinkParams identify an affiliate link independent of the row that stores it,
// so regenerating a link for the same inputs yields the same reference.
type LinkParams struct {
	ProductID int64
	Platform  string
	Program   string
}

// Message returns "productID|platform|program" with the program lowercased and trimmed.
func (p LinkParams) Message() string {
	return strings.Join([]string{
		strconv.FormatInt(p.ProductID, 10),
		p.Platform,
		strings.ToLower(strings.TrimSpace(p.Program)),
	}, "|")
}

// Signer computes and checks truncated HMAC-SHA256 signatures.
type Signer struct {
	secret []byte
}

// NewSigner creates a Signer with the shared secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the first SignatureLength hex characters of HMAC-SHA256(message).
func (s *Signer) Sign(message string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))[:SignatureLength]
}

// Verify compares in constant time.
func (s *Signer) Verify(message, signature string) bool {
	return hmac.Equal([]byte(s.Sign(message)), []byte(signature))
}

// Ref returns the prefixed reference value for a link.
func (s *Signer) Ref(p LinkParams) string {
	return RefPrefix + s.Sign(p.Message())
}

// VerifyRef checks a prefixed reference against link params.
func (s *Signer) VerifyRef(p LinkParams, ref string) bool {
	sig, ok := strings.CutPrefix(ref, RefPrefix)
	if !ok {
		return false
	}
	return s.Verify(p.Message(), sig)
}
