package gateway

import (
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// fallbackMessage is used when a failure carries no usable information.
const fallbackMessage = "request failed"

// RawFailure is everything known about a failed call before normalization.
//
// Body holds the response octets exactly as received. The speech call reads
// its body as audio, so error payloads arrive here as bytes even when the
// gateway sent JSON. Structured is set instead when the caller already
// decoded a JSON body.
type RawFailure struct {
	Status      int
	StatusText  string
	ContentType string
	Body        []byte
	Structured  any
	Err         error
}

// Normalized is the single message (and optional detail payload) a failure
// is reduced to.
type Normalized struct {
	Message string
	Detail  any
}

// decodeStep tries one encoding. It returns true once n.Message is final;
// it may leave a Detail behind for later steps even when it returns false.
type decodeStep func(raw RawFailure, n *Normalized) bool

var decodeChain = []decodeStep{
	fromBinaryBody,
	fromStructuredBody,
	fromStatus,
}

// Normalize runs the decode chain in order and returns the first result.
func Normalize(raw RawFailure) Normalized {
	var n Normalized
	for _, step := range decodeChain {
		if step(raw, &n) {
			break
		}
	}
	return n
}

// fromBinaryBody reinterprets the body bytes as text, then as JSON.
func fromBinaryBody(raw RawFailure, n *Normalized) bool {
	if len(raw.Body) == 0 {
		return false
	}

	text := decodeText(raw.Body, raw.ContentType)
	if strings.TrimSpace(text) == "" {
		return false
	}

	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		n.Detail = text
		return false
	}

	n.Detail = v
	if msg, ok := messageOf(v); ok {
		n.Message = msg
		return true
	}
	return false
}

// fromStructuredBody handles bodies the transport already decoded as JSON.
func fromStructuredBody(raw RawFailure, n *Normalized) bool {
	if raw.Structured == nil {
		return false
	}

	if msg, ok := messageOf(raw.Structured); ok {
		n.Message = msg
		n.Detail = raw.Structured
		return true
	}
	if n.Detail == nil {
		n.Detail = raw.Structured
	}
	return false
}

// fromStatus always succeeds: status phrase, transport error, or fallback.
func fromStatus(raw RawFailure, n *Normalized) bool {
	switch {
	case raw.StatusText != "":
		n.Message = raw.StatusText
	case raw.Status > 0 && http.StatusText(raw.Status) != "":
		n.Message = http.StatusText(raw.Status)
	case raw.Err != nil:
		n.Message = raw.Err.Error()
	default:
		n.Message = fallbackMessage
	}
	return true
}

func messageOf(v any) (string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	msg, ok := obj["message"].(string)
	if !ok || strings.TrimSpace(msg) == "" {
		return "", false
	}
	return msg, true
}

// decodeText converts body to a string using the charset named in
// contentType, defaulting to UTF-8. A leading BOM overrides either.
func decodeText(body []byte, contentType string) string {
	var fallback transform.Transformer = unicode.UTF8.NewDecoder()

	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if cs := params["charset"]; cs != "" {
			if enc, err := htmlindex.Get(cs); err == nil {
				fallback = enc.NewDecoder()
			}
		}
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(fallback), body)
	if err != nil {
		return strings.ToValidUTF8(string(body), "�")
	}
	return string(out)
}
