// Sensitive-value scrubbing for access logs.
//
// Whole-value masking covers headers that carry credentials outright
// (Authorization, Cookie, Set-Cookie) plus X-Webhook-Signature, so a
// subscriber's HMAC never lands in a log line. Everything else gets
// pattern-level redaction of emails, UUID-like identifiers, and phone
// numbers.
package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

// Compiled once; redactText applies them on every logged request.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits-only phone pattern so it cannot match hex segments of a UUID.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

// maskedHeaders are replaced wholesale. Keys are lowercase.
var maskedHeaders = map[string]struct{}{
	"authorization":       {},
	"cookie":              {},
	"set-cookie":          {},
	"x-webhook-signature": {},
}

// redactText scrubs identifiers from free text. UUIDs run first so the
// phone pattern cannot bite on their digit runs, then emails, then phones.
func redactText(s string) string {
	if s == "" {
		return s
	}
	out := uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	out = emailRE.ReplaceAllString(out, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(out, "[REDACTED:phone]")
}

// scrubHeaders returns a loggable copy of h: masked headers become
// "[REDACTED]", the rest pass through redactText.
func scrubHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := maskedHeaders[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = redactText(strings.Join(vv, ", "))
	}
	return out
}
