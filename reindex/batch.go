package reindex

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/equiptrack/core"
	"github.com/poiesic/equiptrack/index"
	"github.com/poiesic/equiptrack/storage"
)

// BatchProcessor turns batches of problems into index documents and pushes them.
type BatchProcessor struct {
	equipment storage.EquipmentTypeRepository
	index     index.Index
	policy    pushPolicy
	logger    *slog.Logger

	mu    sync.Mutex
	names map[core.ID]string
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for each UpsertBatch call
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(equipment storage.EquipmentTypeRepository, idx index.Index, maxRetries int, retryBaseDelay time.Duration, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		equipment: equipment,
		index:     idx,
		policy:    pushPolicy{attempts: maxRetries, baseDelay: retryBaseDelay},
		logger:    logger,
		names:     make(map[core.ID]string),
	}
}

// Process indexes a batch. A batch whose push still fails after all retries
// is reported with every document as a failure rather than as an error.
func (bp *BatchProcessor) Process(ctx context.Context, problems []*core.Problem) (*index.BatchResult, error) {
	if len(problems) == 0 {
		return &index.BatchResult{}, nil
	}

	docs := make([]index.Document, len(problems))
	for i, p := range problems {
		docs[i] = index.DocumentFromProblem(p, bp.equipmentName(ctx, p.EquipmentTypeID))
	}

	result, err := pushBatch(ctx, bp.index, docs, bp.policy, bp.logger)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	var pushErr *PushError
	if errors.As(err, &pushErr) {
		bp.logger.Warn("batch could not be indexed", "first_id", pushErr.FirstID, "size", pushErr.Size,
			"attempts", pushErr.Attempts, "err", pushErr.Err)
		return &index.BatchResult{Failures: pushErr.failures(docs)}, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// equipmentName resolves an equipment type name, caching lookups across batches.
func (bp *BatchProcessor) equipmentName(ctx context.Context, id core.ID) string {
	if id == 0 {
		return ""
	}

	bp.mu.Lock()
	name, ok := bp.names[id]
	bp.mu.Unlock()
	if ok {
		return name
	}

	et, err := bp.equipment.GetEquipmentType(ctx, id)
	if err != nil {
		bp.logger.Warn("error looking up equipment type", "equipment_type_id", id, "err", err)
		return ""
	}

	bp.mu.Lock()
	bp.names[id] = et.Name
	bp.mu.Unlock()
	return et.Name
}
