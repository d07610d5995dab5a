package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// UnsubscribeLinks builds and checks the per-recipient unsubscribe URL.
// Without a signing key links carry no token and every token is accepted.
type UnsubscribeLinks struct {
	BaseURL    string
	SigningKey string
}

func (u UnsubscribeLinks) URL(recipientID int64) string {
	q := url.Values{}
	q.Set("recipient", strconv.FormatInt(recipientID, 10))
	if u.SigningKey != "" {
		q.Set("token", u.Token(recipientID))
	}
	return fmt.Sprintf("%s/unsubscribe?%s", strings.TrimRight(u.BaseURL, "/"), q.Encode())
}

func (u UnsubscribeLinks) Token(recipientID int64) string {
	mac := hmac.New(sha256.New, []byte(u.SigningKey))
	mac.Write([]byte(strconv.FormatInt(recipientID, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

func (u UnsubscribeLinks) Verify(recipientID int64, token string) bool {
	if u.SigningKey == "" {
		return true
	}
	want, err := hex.DecodeString(u.Token(recipientID))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(token)
	if err != nil {
		return false
	}
	return hmac.Equal(want, got)
}
