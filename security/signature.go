package security

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/youssefsiam38/flowent-gateway/models"
	"github.com/youssefsiam38/flowent-gateway/utils"
)

const ReplayWindow = 5 * time.Minute

// SignedFields are the parts of an invocation covered by its signature.
type SignedFields struct {
	ActionName string
	Parameters map[string]interface{}
	Timestamp  int64
	Test       *bool
}

func SignedFieldsOf(req *models.InvocationRequest) SignedFields {
	return SignedFields{
		ActionName: req.ActionName,
		Parameters: req.Parameters,
		Timestamp:  req.Timestamp,
		Test:       req.Test,
	}
}

// Canonicalize renders fields as compact JSON in the fixed order
// action_name, parameters, timestamp, test. Object keys are sorted and
// non-ASCII text is written as \u escapes, so a receiver that re-serializes
// the decoded body with ordinary compact JSON reproduces the same bytes.
func Canonicalize(fields SignedFields) ([]byte, error) {
	params := fields.Parameters
	if params == nil {
		params = map[string]interface{}{}
	}

	name, err := compactJSON(fields.ActionName)
	if err != nil {
		return nil, fmt.Errorf("failed to encode action name: %w", err)
	}
	encodedParams, err := compactJSON(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parameters: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"action_name":`)
	buf.Write(name)
	buf.WriteString(`,"parameters":`)
	buf.Write(encodedParams)
	buf.WriteString(`,"timestamp":`)
	buf.WriteString(strconv.FormatInt(fields.Timestamp, 10))
	if fields.Test != nil {
		buf.WriteString(`,"test":`)
		buf.WriteString(strconv.FormatBool(*fields.Test))
	}
	buf.WriteByte('}')

	return escapeNonASCII(buf.Bytes()), nil
}

func compactJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Non-ASCII bytes only occur inside JSON strings, so rewriting them in place
// keeps the document valid.
func escapeNonASCII(data []byte) []byte {
	ascii := true
	for _, b := range data {
		if b >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return data
	}

	out := make([]byte, 0, len(data)+16)
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		data = data[size:]
		switch {
		case r < utf8.RuneSelf:
			out = append(out, byte(r))
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			out = appendUnicodeEscape(out, hi)
			out = appendUnicodeEscape(out, lo)
		default:
			out = appendUnicodeEscape(out, r)
		}
	}
	return out
}

func appendUnicodeEscape(out []byte, r rune) []byte {
	const hexDigits = "0123456789abcdef"
	return append(out, '\\', 'u',
		hexDigits[(r>>12)&0xF], hexDigits[(r>>8)&0xF],
		hexDigits[(r>>4)&0xF], hexDigits[r&0xF])
}

// Sign returns the lowercase hex HMAC-SHA256 of payload under key.
func Sign(payload, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether candidate is the signature of payload under key.
// It never panics and returns false for an empty key or malformed candidate.
func Verify(payload, key []byte, candidate string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	if len(key) == 0 {
		return false
	}
	got, err := hex.DecodeString(candidate)
	if err != nil || len(got) != sha256.Size {
		return false
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}

// VerifyRequest checks the signature of a received invocation and then that
// its timestamp lies within window of now.
func VerifyRequest(req *models.InvocationRequest, key []byte, now time.Time, window time.Duration) error {
	if req == nil || req.Signature == "" {
		return utils.ErrSignatureMismatch.WithDetails("missing signature")
	}

	payload, err := Canonicalize(SignedFieldsOf(req))
	if err != nil {
		return utils.ErrSignatureMismatch.Wrap(err)
	}
	if !Verify(payload, key, req.Signature) {
		return utils.ErrSignatureMismatch
	}

	skew := now.Unix() - req.Timestamp
	if skew < 0 {
		skew = -skew
	}
	if time.Duration(skew)*time.Second > window {
		return utils.ErrReplayWindowExceeded
	}
	return nil
}
