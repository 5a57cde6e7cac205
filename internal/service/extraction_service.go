package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"doctriage/internal/classify"
	"doctriage/internal/domain"
	"doctriage/internal/engine"
	"doctriage/internal/port"
	"doctriage/internal/routing"
	s3storage "doctriage/internal/storage/s3"
)

// ProcessRequest is one inbound extraction request. FilePath may be a local
// path or an s3://bucket/key URI. DeclaredContentType is advisory; the
// classifier re-derives the type from content where feasible.
type ProcessRequest struct {
	FilePath            string
	DeclaredContentType string
	Industry            string
	Mode                domain.ExtractionMode
}

// ExtractionService orchestrates classify, route, execute, and the optional
// consolidation pass.
type ExtractionService struct {
	classifier    *classify.Classifier
	router        *routing.Router
	engine        *engine.Engine
	storage       port.ObjectStorage // nil unless s3 sources are enabled
	maxFileSizeMB int64
}

// NewExtractionService creates an ExtractionService. storage may be nil.
func NewExtractionService(classifier *classify.Classifier, router *routing.Router, eng *engine.Engine, storage port.ObjectStorage, maxFileSizeMB int64) *ExtractionService {
	if maxFileSizeMB <= 0 {
		maxFileSizeMB = 50
	}
	return &ExtractionService{
		classifier:    classifier,
		router:        router,
		engine:        eng,
		storage:       storage,
		maxFileSizeMB: maxFileSizeMB,
	}
}

// Process loads the document and runs the full pipeline. Given identical
// bytes and identical provider states, the routing is deterministic.
func (s *ExtractionService) Process(ctx context.Context, req ProcessRequest) (*domain.ProcessingResult, error) {
	data, err := s.loadSource(ctx, req.FilePath)
	if err != nil {
		return nil, err
	}
	return s.ProcessBytes(ctx, fileName(req.FilePath), data, req.DeclaredContentType, req.Industry, req.Mode)
}

// ProcessBytes runs the pipeline over in-memory document bytes.
func (s *ExtractionService) ProcessBytes(ctx context.Context, name string, data []byte, declaredContentType, industry string, mode domain.ExtractionMode) (*domain.ProcessingResult, error) {
	if int64(len(data)) > s.maxFileSizeMB*1024*1024 {
		return nil, domain.ErrFileTooLarge
	}

	switch mode {
	case domain.ModeCascade, domain.ModeRace, "":
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidMode, mode)
	}

	classification := s.classifier.Classify(ctx, classify.Input{
		FileName:            name,
		FileBytes:           data,
		DeclaredContentType: declaredContentType,
	})

	decision := s.router.Route(classification)
	log.Printf("service: %s -> kind=%s complexity=%s chosen=%s est=%.1fs (%s)",
		name, classification.DocumentKind, classification.Complexity, decision.Chosen, decision.EstimatedSeconds, decision.Reason)

	doc := engine.Document{
		ID:          uuid.New(),
		Bytes:       data,
		ContentType: contentTypeFor(data, declaredContentType),
		Instruction: buildExtractionInstruction(classification),
	}

	result, err := s.engine.Execute(ctx, doc, decision, mode)
	if err != nil {
		return nil, err
	}

	if industry != "" {
		s.engine.Consolidate(ctx, doc, result, industry)
	}
	return result, nil
}

func (s *ExtractionService) loadSource(ctx context.Context, path string) ([]byte, error) {
	if strings.HasPrefix(path, "s3://") {
		if s.storage == nil {
			return nil, fmt.Errorf("%w: s3 sources not enabled", domain.ErrUnreadableSource)
		}
		bucket, key, err := s3storage.ParseURI(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUnreadableSource, err)
		}
		data, err := s.storage.Download(ctx, bucket, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUnreadableSource, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreadableSource, err)
	}
	return data, nil
}

func fileName(path string) string {
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		return path[i+1:]
	}
	return path
}

func contentTypeFor(data []byte, declared string) string {
	// The classifier already re-derived the type for routing; redo the cheap
	// detection here so the provider payload names what the bytes actually are.
	return classify.DetectContentType(data, declared)
}
