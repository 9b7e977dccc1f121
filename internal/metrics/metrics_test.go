package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forestrie/go-blobsign/signer"
)

func TestObserveSign(t *testing.T) {
	m := New()

	m.ObserveSign(signer.AzureBlob, signer.GetBlob, time.Millisecond, nil)
	m.ObserveSign(signer.AzureBlob, signer.GetBlob, time.Millisecond, nil)
	m.ObserveSign(signer.AzureBlob, signer.GetBlob, time.Millisecond, fmt.Errorf("wrapped: %w", signer.ErrInvalidDuration))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("azureblob", "get", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("azureblob", "get", "invalid_duration")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))
}

func TestRegistryObserver(t *testing.T) {
	m := New()
	r, err := signer.NewDefaultRegistry(signer.FixedClock(time.Unix(1212683899, 0)), signer.Config{}, signer.WithObserver(m))
	require.NoError(t, err)

	op, err := signer.NewOperation(signer.DeleteBlob, "container/name")
	require.NoError(t, err)
	_, err = r.Sign(signer.AzureBlob, op, signer.Credentials{Account: "identity", Secret: "aaaabbbb"})
	require.NoError(t, err)
	_, err = r.Sign("gcs", op, signer.Credentials{Account: "identity", Secret: "aaaabbbb"})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("azureblob", "delete", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("gcs", "delete", "unsupported_provider")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveSign(signer.AWSS3, signer.PutBlob, time.Millisecond, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `blobsign_sign_requests_total{operation="put",provider="aws-s3",result="ok"} 1`)
	assert.Contains(t, string(body), "blobsign_sign_duration_seconds_bucket")
}
