package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordBackup(t *testing.T) {
	before := testutil.ToFloat64(BackupOperations.WithLabelValues("metadata", "error"))

	RecordBackup("metadata", time.Second, errors.New("boom"))
	RecordBackup("metadata", time.Second, nil)

	after := testutil.ToFloat64(BackupOperations.WithLabelValues("metadata", "error"))
	if after-before != 1 {
		t.Errorf("Expected error counter to grow by 1, got %v", after-before)
	}
}

func TestTrackBackupInFlight(t *testing.T) {
	before := testutil.ToFloat64(BackupsInFlight)
	TrackBackupInFlight(true)
	if got := testutil.ToFloat64(BackupsInFlight); got != before+1 {
		t.Errorf("Expected gauge %v, got %v", before+1, got)
	}
	TrackBackupInFlight(false)
	if got := testutil.ToFloat64(BackupsInFlight); got != before {
		t.Errorf("Expected gauge %v, got %v", before, got)
	}
}
