package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardoff/internal/config"
	"cardoff/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""

	svc := notifications.NewService(&cfg)
	require.NoError(t, svc.NotifyRunStarted(context.Background(), "Sony A7C", 10, 1<<20))
	require.NoError(t, svc.TestNotification(context.Background()))
}

type capturedRequest struct {
	title    string
	tags     string
	priority string
	body     string
}

func captureServer(t *testing.T, captured *capturedRequest) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		captured.title = r.Header.Get("Title")
		captured.tags = r.Header.Get("Tags")
		captured.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured.body = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func ntfyService(t *testing.T, captured *capturedRequest) notifications.Service {
	t.Helper()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = captureServer(t, captured).URL
	cfg.Notifications.RequestTimeout = 5
	return notifications.NewService(&cfg)
}

func TestNotifyRunCompletedFormatsMessage(t *testing.T) {
	var captured capturedRequest
	svc := ntfyService(t, &captured)

	err := svc.NotifyRunCompleted(context.Background(), "Sony A7C", "store", 120, 4<<30, 92*time.Second)
	require.NoError(t, err)

	assert.Equal(t, "Cardoff - Import Complete", captured.title)
	assert.Equal(t, "Import complete: Sony A7C, 120 files, 4.0 GiB in 1m32s", captured.body)
	assert.Equal(t, "cardoff,import,completed", captured.tags)
	assert.Equal(t, "high", captured.priority)
}

func TestNotifyRunCompletedMentionsStagingFallback(t *testing.T) {
	var captured capturedRequest
	svc := ntfyService(t, &captured)

	err := svc.NotifyRunCompleted(context.Background(), "DJI Mini", "staging", 8, 512<<20, time.Minute)
	require.NoError(t, err)
	assert.Contains(t, captured.body, "Store was unreachable")
}

func TestNotifyRunFailedFormatsKind(t *testing.T) {
	var captured capturedRequest
	svc := ntfyService(t, &captured)

	err := svc.NotifyRunFailed(context.Background(), "Sony A7C", "VerificationError", "2 files failed verification")
	require.NoError(t, err)

	assert.Equal(t, "Cardoff - Import Failed", captured.title)
	assert.Equal(t, "Import of Sony A7C failed (VerificationError): 2 files failed verification", captured.body)
	assert.Equal(t, "high", captured.priority)
}

func TestNotifyUnidentifiedCard(t *testing.T) {
	var captured capturedRequest
	svc := ntfyService(t, &captured)

	err := svc.NotifyUnidentifiedCard(context.Background(), "/media/sdcard")
	require.NoError(t, err)
	assert.Equal(t, "Cardoff - Unidentified Card", captured.title)
	assert.Contains(t, captured.body, "/media/sdcard")
}

func TestSendSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	err := svc.TestNotification(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
