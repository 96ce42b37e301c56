package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/ssebasarias/droptools/internal/types"
)

const (
	TypeDownloadCompare = "download_compare"
	TypeProcessRange    = "process_range"
)

// Retry ceiling shared with the worker claim query. A job failing its final
// attempt is treated as permanently failed by the range handler.
const MaxAttempts = 5

func NewDownloadCompareJob(runID, tenantID uuid.UUID) *types.JobRun {
	payload, _ := json.Marshal(map[string]any{
		"run_id":    runID.String(),
		"tenant_id": tenantID.String(),
	})
	return &types.JobRun{
		JobType: TypeDownloadCompare,
		Status:  "queued",
		Payload: datatypes.JSON(payload),
	}
}

func NewProcessRangeJob(runID, tenantID uuid.UUID, startIndex, endIndex int) *types.JobRun {
	payload, _ := json.Marshal(map[string]any{
		"run_id":      runID.String(),
		"tenant_id":   tenantID.String(),
		"start_index": startIndex,
		"end_index":   endIndex,
	})
	return &types.JobRun{
		JobType: TypeProcessRange,
		Status:  "queued",
		Payload: datatypes.JSON(payload),
	}
}
