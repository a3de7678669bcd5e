package dump

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mysql-dump/internal/config"
	"mysql-dump/internal/logging"
)

func notifySummary(statuses ...TableStatus) *RunSummary {
	summary := NewRunSummary(false)
	report := summary.AddDatabase("shop", "primary")
	for i, status := range statuses {
		summary.RecordTable(report, TableResult{
			Database: "shop",
			Table:    "orders",
			Status:   status,
			Rows:     int64(10 * (i + 1)),
		})
	}
	summary.Finish()
	return summary
}

func TestNotifierSendsRunSummary(t *testing.T) {
	summary := notifySummary(StatusSucceeded)

	var received struct {
		Event   string `json:"event"`
		Summary struct {
			RunID  string `json:"run_id"`
			Totals struct {
				Succeeded int   `json:"succeeded"`
				Rows      int64 `json:"rows"`
			} `json:"totals"`
		} `json:"summary"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		err := json.NewDecoder(r.Body).Decode(&received)
		assert.NoError(t, err)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewNotifier(config.NotifyConfig{
		Enabled: true,
		URL:     server.URL,
		Method:  "POST",
		Timeout: 5 * time.Second,
	}, logging.NewDefaultLogger())

	err := notifier.Send(context.Background(), summary)

	require.NoError(t, err)
	assert.Equal(t, "dump.succeeded", received.Event)
	assert.Equal(t, summary.RunID, received.Summary.RunID)
	assert.Equal(t, 1, received.Summary.Totals.Succeeded)
	assert.Equal(t, int64(10), received.Summary.Totals.Rows)
}

func TestNotifierDisabledSendsNothing(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	notifier := NewNotifier(config.NotifyConfig{
		Enabled: false,
		URL:     server.URL,
	}, logging.NewDefaultLogger())

	err := notifier.Send(context.Background(), notifySummary(StatusSucceeded))

	assert.NoError(t, err)
	assert.Equal(t, 0, calls)
}

func TestNotifierMissingURL(t *testing.T) {
	notifier := NewNotifier(config.NotifyConfig{Enabled: true}, logging.NewDefaultLogger())

	err := notifier.Send(context.Background(), notifySummary(StatusSucceeded))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "webhook URL not configured")
}

func TestNotifierErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	notifier := NewNotifier(config.NotifyConfig{
		Enabled: true,
		URL:     server.URL,
	}, logging.NewDefaultLogger())

	err := notifier.Send(context.Background(), notifySummary(StatusSucceeded))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook returned error status: 500")
}

func TestNotifierHonorsConfiguredMethod(t *testing.T) {
	var method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	notifier := NewNotifier(config.NotifyConfig{
		Enabled: true,
		URL:     server.URL,
		Method:  "PUT",
	}, logging.NewDefaultLogger())

	err := notifier.Send(context.Background(), notifySummary(StatusSucceeded))

	require.NoError(t, err)
	assert.Equal(t, "PUT", method)
}

func TestSummaryEventClassification(t *testing.T) {
	tests := []struct {
		name     string
		statuses []TableStatus
		want     string
	}{
		{
			name:     "all tables dumped",
			statuses: []TableStatus{StatusSucceeded, StatusSucceeded},
			want:     "dump.succeeded",
		},
		{
			name:     "some tables failed",
			statuses: []TableStatus{StatusSucceeded, StatusFailed},
			want:     "dump.partial",
		},
		{
			name:     "every table failed",
			statuses: []TableStatus{StatusFailed},
			want:     "dump.failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summaryEvent(notifySummary(tt.statuses...)))
		})
	}
}
