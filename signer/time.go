package signer

import "time"

// SigningTime provides a wrapper around time.Time with cached format strings.
// The wrapped time is UTC and truncated to whole seconds, since every
// protocol here signs second precision timestamps.
// Reference: AWS SDK v4 signer internal/v4/time.go
type SigningTime struct {
	time.Time
	iso8601         string
	rfc1123         string
	timeFormat      string
	shortTimeFormat string
}

// NewSigningTime creates a new SigningTime from a time.Time.
func NewSigningTime(t time.Time) SigningTime {
	return SigningTime{
		Time: t.UTC().Truncate(time.Second),
	}
}

// ISO8601 returns the time as 2008-06-05T16:53:19Z.
func (st *SigningTime) ISO8601() string {
	if st.iso8601 == "" {
		st.iso8601 = st.Time.Format(ISO8601Format)
	}
	return st.iso8601
}

// RFC1123 returns the time as Thu, 05 Jun 2008 16:38:19 GMT.
func (st *SigningTime) RFC1123() string {
	if st.rfc1123 == "" {
		st.rfc1123 = st.Time.Format(RFC1123Format)
	}
	return st.rfc1123
}

// TimeFormat returns the time formatted for X-Amz-Date header/query.
// Format: YYYYMMDDTHHMMSSZ (e.g., 20231201T120000Z)
func (st *SigningTime) TimeFormat() string {
	if st.timeFormat == "" {
		st.timeFormat = st.Time.Format(TimeFormat)
	}
	return st.timeFormat
}

// ShortTimeFormat returns the time formatted for credential scope.
// Format: YYYYMMDD (e.g., 20231201)
func (st *SigningTime) ShortTimeFormat() string {
	if st.shortTimeFormat == "" {
		st.shortTimeFormat = st.Time.Format(ShortTimeFormat)
	}
	return st.shortTimeFormat
}

// TimeWindow is the validity range of one signed request.
type TimeWindow struct {
	SignedAt  SigningTime
	ExpiresAt SigningTime
}

// Duration returns ExpiresAt - SignedAt.
func (w TimeWindow) Duration() time.Duration {
	return w.ExpiresAt.Sub(w.SignedAt.Time)
}

// Seconds returns the window length in whole seconds.
func (w TimeWindow) Seconds() int64 {
	return int64(w.Duration() / time.Second)
}
