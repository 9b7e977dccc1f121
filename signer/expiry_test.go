package signer

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestExpiryPolicyResolve(t *testing.T) {
	now := time.Date(2008, time.June, 5, 16, 38, 19, 500, time.FixedZone("CEST", 2*60*60))
	seconds := func(n int64) *int64 { return &n }

	tests := []struct {
		name     string
		policy   ExpiryPolicy
		explicit *int64
		expected time.Duration
		wantErr  bool
	}{
		{name: "default", policy: ExpiryPolicy{}, expected: 15 * time.Minute},
		{name: "configured default", policy: ExpiryPolicy{Default: time.Hour}, expected: time.Hour},
		{name: "explicit", policy: ExpiryPolicy{}, explicit: seconds(1), expected: time.Second},
		{name: "explicit at max", policy: ExpiryPolicy{Max: MaxPresignExpiry}, explicit: seconds(604800), expected: MaxPresignExpiry},
		{name: "explicit over max", policy: ExpiryPolicy{Max: MaxPresignExpiry}, explicit: seconds(604801), wantErr: true},
		{name: "zero", policy: ExpiryPolicy{}, explicit: seconds(0), wantErr: true},
		{name: "negative", policy: ExpiryPolicy{}, explicit: seconds(-1), wantErr: true},
		{name: "overflow", policy: ExpiryPolicy{}, explicit: seconds(math.MaxInt64), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := tt.policy.Resolve(now, tt.explicit)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDuration) {
					t.Errorf("expected ErrInvalidDuration, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if w.Duration() != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, w.Duration())
			}
			if w.Seconds() != int64(tt.expected/time.Second) {
				t.Errorf("expected %d seconds, got %d", int64(tt.expected/time.Second), w.Seconds())
			}
			if !w.ExpiresAt.After(w.SignedAt.Time) {
				t.Error("expiry must be after the signing instant")
			}
		})
	}
}

func TestSigningTimeFormats(t *testing.T) {
	st := NewSigningTime(time.Date(2008, time.June, 5, 18, 38, 19, 999, time.FixedZone("CEST", 2*60*60)))

	if st.Location() != time.UTC {
		t.Errorf("expected UTC, got %s", st.Location())
	}
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"iso8601", st.ISO8601(), "2008-06-05T16:38:19Z"},
		{"rfc1123", st.RFC1123(), "Thu, 05 Jun 2008 16:38:19 GMT"},
		{"amz date", st.TimeFormat(), "20080605T163819Z"},
		{"short", st.ShortTimeFormat(), "20080605"},
	}
	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.expected, tt.got)
		}
	}
}
