// Package ratelimit recognizes provider rate-limit rejections and turns them into user-facing wait messages.
//
// [Classify] inspects an error returned by any remote call and reports whether it was an HTTP 429 along with
// the wait the provider asked for. It accepts several error shapes, found anywhere in the wrap chain:
//
//   - values exposing HTTPStatus() int, optionally with ResponseHeader() http.Header (the Spotify client's APIError)
//   - values exposing RetryAfter() string
//   - [oauth2.RetrieveError], returned when a token refresh is rejected
//
// Classification never retries and never panics; anything unexpected degrades to "not rate limited".
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// StatusTooManyRequests is the only status treated as a rate limit.
	StatusTooManyRequests = http.StatusTooManyRequests
	headerRetryAfter      = "Retry-After"
	fallbackWait          = "a few minutes"
)

// Info is the result of classifying an error.
type Info struct {
	Limited       bool
	HasRetryAfter bool
	RetryAfter    time.Duration
	RetryAt       time.Time
	Message       string
}

type statusCarrier interface{ HTTPStatus() int }

type headerCarrier interface{ ResponseHeader() http.Header }

type retryAfterCarrier interface{ RetryAfter() string }

// Classify reports whether err is a rate-limit rejection, relative to the current time.
func Classify(err error) Info {
	return ClassifyAt(err, time.Now())
}

// ClassifyAt reports whether err is a rate-limit rejection, computing RetryAt relative to now.
func ClassifyAt(err error, now time.Time) (info Info) {
	defer func() {
		if r := recover(); r != nil {
			info = Info{}
		}
	}()

	if err == nil {
		return Info{}
	}

	status, raw := inspect(err)
	if status != StatusTooManyRequests {
		return Info{}
	}

	info.Limited = true
	if wait, ok := ParseRetryAfter(raw, now); ok {
		info.HasRetryAfter = true
		info.RetryAfter = wait
		info.RetryAt = now.Add(wait)
	}
	info.Message = WaitMessage(info.RetryAfter, info.HasRetryAfter)
	return info
}

// IsRateLimited reports whether err carries an HTTP 429 status.
func IsRateLimited(err error) bool {
	return Classify(err).Limited
}

// inspect walks the wrap chain for a status code and a raw Retry-After value.
func inspect(err error) (status int, retryAfter string) {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) && retrieve.Response != nil {
		status = retrieve.Response.StatusCode
		retryAfter = retrieve.Response.Header.Get(headerRetryAfter)
	}

	var sc statusCarrier
	if errors.As(err, &sc) {
		status = sc.HTTPStatus()
	}

	var hc headerCarrier
	if retryAfter == "" && errors.As(err, &hc) {
		if header := hc.ResponseHeader(); header != nil {
			retryAfter = header.Get(headerRetryAfter)
		}
	}

	var rc retryAfterCarrier
	if retryAfter == "" && errors.As(err, &rc) {
		retryAfter = rc.RetryAfter()
	}

	return status, strings.TrimSpace(retryAfter)
}

// ParseRetryAfter reads a Retry-After value given as delta-seconds or an HTTP date.
//
// Zero, negative, and past values are reported as absent.
func ParseRetryAfter(raw string, now time.Time) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		if seconds <= 0 || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
			return 0, false
		}
		return time.Duration(seconds * float64(time.Second)), true
	}

	if t, err := http.ParseTime(raw); err == nil {
		if wait := t.Sub(now); wait > 0 {
			return wait, true
		}
	}

	return 0, false
}

// WaitMessage builds the user-facing message for a rate-limit rejection.
func WaitMessage(wait time.Duration, known bool) string {
	human := fallbackWait
	if known && wait > 0 {
		human = FormatWait(wait)
	}
	return fmt.Sprintf("Spotify rate limit reached. Please wait %s before trying again.", human)
}

// FormatWait renders d, rounded up to whole seconds, as hours, minutes, and seconds.
func FormatWait(d time.Duration) string {
	total := int64(math.Ceil(d.Seconds()))
	if total <= 0 {
		return "a moment"
	}

	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var parts []string
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 {
		parts = append(parts, plural(seconds, "second"))
	}
	return strings.Join(parts, " ")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
