package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/filegpt/filegpt/internal/service"
)

const autoIngestBatchSize = 10

// AutoIngestJob periodically ingests files that were uploaded but never
// processed. It is opt-in; the explicit process endpoint stays the primary
// trigger.
type AutoIngestJob struct {
	files  service.FileRepository
	ingest *service.IngestService
}

func NewAutoIngestJob(files service.FileRepository, ingest *service.IngestService) *AutoIngestJob {
	return &AutoIngestJob{files: files, ingest: ingest}
}

func (j *AutoIngestJob) Name() string {
	return "auto_ingest"
}

func (j *AutoIngestJob) Run(ctx context.Context) error {
	pending, err := j.files.ListUnprocessed(ctx, autoIngestBatchSize)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	ids := make([]string, 0, len(pending))
	for _, f := range pending {
		ids = append(ids, f.ID)
	}
	results := j.ingest.Process(ctx, ids)
	var failed int
	for _, r := range results {
		if r.Status != service.IngestStatusProcessed {
			failed++
		}
	}
	logutil.GetLogger(ctx).Info("auto ingest run completed",
		zap.Int("total", len(results)),
		zap.Int("failed", failed),
	)
	return nil
}
