package envelope

import (
	"fmt"
	"strings"

	"github.com/MKhiriev/go-delta-sync/models"
)

const (
	summaryNotRun     = "Sync has not run yet."
	checksumSampleLen = 2
)

// Summarize derives the status shown to the user from the last envelope.
// A nil envelope means no sync has run yet.
func Summarize(env *models.Envelope) models.SyncStatus {
	if env == nil {
		return models.SyncStatus{Status: models.StatusIdle, Summary: summaryNotRun}
	}

	sample := make([]string, 0, checksumSampleLen)
	for i := 0; i < len(env.Deltas) && i < checksumSampleLen; i++ {
		sample = append(sample, env.Deltas[i].Checksum)
	}

	joined := strings.Join(sample, ",")
	if joined == "" {
		joined = "n/a"
	}

	return models.SyncStatus{
		Status:  models.StatusReady,
		Summary: fmt.Sprintf("%d entities prepared (checksum sample: %s)", len(env.Deltas), joined),
		Cursor:  env.Cursor,
	}
}
