package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/JonMunkholm/staffimport/internal/config"
	"github.com/JonMunkholm/staffimport/internal/delimited"
	"github.com/JonMunkholm/staffimport/internal/logging"
	"github.com/JonMunkholm/staffimport/internal/schema"
	"github.com/google/uuid"
)

// ErrRowsInvalid is matched by the error Submit returns when any row failed
// validation. Nothing is written in that case.
var ErrRowsInvalid = errors.New("rows failed validation")

// InvalidRowsError carries the preview of a rejected submission so the
// caller can show every row error at once.
type InvalidRowsError struct {
	Preview *Preview
}

func (e *InvalidRowsError) Error() string {
	return fmt.Sprintf("%v: %d of %d rows", ErrRowsInvalid, e.Preview.TotalRows-e.Preview.ValidRows, e.Preview.TotalRows)
}

func (e *InvalidRowsError) Is(target error) bool { return target == ErrRowsInvalid }

// Service runs engineer imports.
type Service struct {
	store       Store
	profile     *schema.Profile
	limiter     *ImportLimiter
	maxFileSize int64
	timeout     time.Duration
}

// NewService creates a Service. A nil profile selects the built-in
// engineers profile.
func NewService(store Store, profile *schema.Profile, cfg config.ImportConfig) *Service {
	if profile == nil {
		profile = schema.Default()
	}
	return &Service{
		store:       store,
		profile:     profile,
		limiter:     NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		maxFileSize: cfg.MaxFileSize,
		timeout:     cfg.Timeout,
	}
}

// Profile returns the active import profile.
func (s *Service) Profile() *schema.Profile {
	return s.profile
}

// Template returns the CSV template for the active profile.
func (s *Service) Template() (fileName, body string) {
	name := s.profile.FileName
	if name == "" {
		name = s.profile.Key + "_template.csv"
	}
	return name, s.profile.Template()
}

// Preview parses an upload without writing anything.
//
// Structural problems (wrong file type, oversize file, no data rows,
// missing columns) are returned as errors. Row problems are reported in
// Preview.Errors alongside the rows that passed.
func (s *Service) Preview(ctx context.Context, fileName string, r io.Reader) (*Preview, error) {
	start := time.Now()
	logger := logging.WithFields(ctx, "file", fileName, "profile", s.profile.Key)

	if fileName != "" && !isCSVName(fileName) {
		return nil, delimited.NewStructuralError(ErrWrongFileType)
	}

	text, err := readUpload(r, s.maxFileSize)
	if err != nil {
		return nil, err
	}

	res, err := delimited.ParseTable(text, s.profile.Options())
	if err != nil {
		logger.Info("import rejected", "error", err)
		return nil, err
	}

	engineers := make([]Engineer, len(res.Records))
	for i, rec := range res.Records {
		engineers[i] = FromRecord(rec)
	}

	p := &Preview{
		FileName:  fileName,
		Header:    res.Header,
		Engineers: engineers,
		Errors:    res.Errors,
		TotalRows: res.TotalRows,
		ValidRows: len(engineers),
		CanSubmit: res.Valid(),
		ElapsedMs: time.Since(start).Milliseconds(),
	}

	logger.Debug("import parsed",
		"rows", p.TotalRows,
		"valid", p.ValidRows,
		"errors", len(p.Errors),
	)
	return p, nil
}

// Submit parses an upload and, when every row is valid, stores all
// engineers as one batch. The outcome is all-or-nothing for the batch.
//
// If any row is invalid the returned error is an *InvalidRowsError
// (matching ErrRowsInvalid) and nothing is written.
func (s *Service) Submit(ctx context.Context, fileName string, r io.Reader) (*BatchResult, error) {
	start := time.Now()

	preview, err := s.Preview(ctx, fileName, r)
	if err != nil {
		return nil, err
	}
	if !preview.CanSubmit {
		return nil, &InvalidRowsError{Preview: preview}
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	meta := MetaFromContext(ctx, fileName)
	batchID := uuid.New().String()
	engineers := make([]Engineer, len(preview.Engineers))
	for i, e := range preview.Engineers {
		e.BatchID = batchID
		engineers[i] = e
	}

	batch := Batch{
		ID:        batchID,
		FileName:  fileName,
		RowCount:  len(engineers),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := s.store.InsertBatch(ctx, batch, engineers); err != nil {
		return nil, fmt.Errorf("store batch: %w", err)
	}

	result := &BatchResult{
		BatchID:  batchID,
		FileName: fileName,
		Inserted: len(engineers),
		Duration: time.Since(start),
	}
	logging.WithFields(ctx, "batch_id", batchID, "file", fileName).Info("import committed",
		"inserted", result.Inserted,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// ListEngineers returns stored engineers matching f.
func (s *Service) ListEngineers(ctx context.Context, f EngineerFilter) ([]Engineer, error) {
	engineers, err := s.store.ListEngineers(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list engineers: %w", err)
	}
	if engineers == nil {
		engineers = []Engineer{}
	}
	return engineers, nil
}

// ListBatches returns recent import batches.
func (s *Service) ListBatches(ctx context.Context, limit int) ([]Batch, error) {
	batches, err := s.store.ListBatches(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	if batches == nil {
		batches = []Batch{}
	}
	return batches, nil
}

// RollbackBatch deletes a batch and every engineer it imported.
func (s *Service) RollbackBatch(ctx context.Context, batchID string) (*RollbackResult, error) {
	n, err := s.store.DeleteBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("rollback batch: %w", err)
	}
	logging.WithFields(ctx, "batch_id", batchID).Info("import rolled back", "rows_deleted", n)
	return &RollbackResult{BatchID: batchID, RowsDeleted: n}, nil
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until in-flight imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.Drain(ctx)
}
