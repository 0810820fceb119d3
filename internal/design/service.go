package design

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"design-assistant/internal/common/logger"
	"design-assistant/internal/common/metrics"
	"design-assistant/internal/genai"
	"design-assistant/internal/models"
	"design-assistant/internal/store"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound   = errors.New("USER_NOT_FOUND")
	ErrDesignNotFound = errors.New("DESIGN_NOT_FOUND")
	ErrForbidden      = errors.New("DESIGN_FORBIDDEN")
)

// JobProducer hands a serialized job to the queue. Publish is void by
// contract: the producer observes the outcome itself and dead-letters on
// failure, never propagating back to the request path.
type JobProducer interface {
	Publish(ctx context.Context, payload []byte)
}

// SearchIndexer indexes persisted designs, best-effort.
type SearchIndexer interface {
	IndexDesign(ctx context.Context, d *models.Design) error
}

// CompletionNotifier tells a user their deferred design finished.
type CompletionNotifier interface {
	DesignCompleted(ctx context.Context, email string, designID int64, prompt string)
}

// Service is the design orchestrator: it chooses the execution path,
// drives validation and diagram fallback, and owns the read projections.
type Service struct {
	users     *store.UserStore
	designs   *store.DesignStore
	generator genai.Generator
	producer  JobProducer
	indexer   SearchIndexer
	notifier  CompletionNotifier
	logger    logger.Logger
}

func NewService(users *store.UserStore, designs *store.DesignStore, generator genai.Generator, producer JobProducer, log logger.Logger) *Service {
	return &Service{
		users:     users,
		designs:   designs,
		generator: generator,
		producer:  producer,
		logger:    log.WithFields(map[string]interface{}{"component": "design-service"}),
	}
}

// WithIndexer enables best-effort search indexing of persisted designs.
func (s *Service) WithIndexer(indexer SearchIndexer) *Service {
	s.indexer = indexer
	return s
}

// WithNotifier enables completion notification for queued jobs.
func (s *Service) WithNotifier(notifier CompletionNotifier) *Service {
	s.notifier = notifier
	return s
}

// Submit handles a design request for the given submitter identity.
// Advanced requests are deferred to the job queue and acknowledged
// immediately; everything else runs the synchronous pipeline.
func (s *Service) Submit(ctx context.Context, req *models.DesignRequest, identity string) (*models.DesignArtifact, error) {
	user, err := s.ResolveIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}

	if models.ParseComplexity(req.Complexity) == models.ComplexityAdvanced {
		job := models.QueuedJob{JobID: uuid.NewString(), Request: *req, UserID: user.ID}
		payload, err := json.Marshal(job)
		if err != nil {
			return nil, fmt.Errorf("marshal queued job: %w", err)
		}

		s.producer.Publish(ctx, payload)
		metrics.JobsQueued.Inc()
		s.logger.Info("design job queued", map[string]interface{}{
			"jobId":  job.JobID,
			"userId": user.ID,
		})

		return &models.DesignArtifact{
			Prompt:    req.Prompt,
			RawOutput: map[string]interface{}{"status": "Job queued"},
		}, nil
	}

	return s.generateAndPersist(ctx, req, user, "sync")
}

// ProcessQueued runs the identical synchronous pipeline for a dequeued job
// payload. Any returned error causes the consumer to dead-letter the raw
// payload.
func (s *Service) ProcessQueued(ctx context.Context, payload []byte) error {
	var job models.QueuedJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("unmarshal queued job: %w", err)
	}

	user, err := s.users.FindByID(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: id %d", ErrUserNotFound, job.UserID)
		}
		return err
	}

	artifact, err := s.generateAndPersist(ctx, &job.Request, user, "consumer")
	if err != nil {
		return err
	}

	s.logger.Info("queued design job processed", map[string]interface{}{
		"jobId":    job.JobID,
		"designId": artifact.ID,
		"userId":   user.ID,
	})

	if s.notifier != nil {
		s.notifier.DesignCompleted(ctx, user.Email, artifact.ID, artifact.Prompt)
	}
	return nil
}

// generateAndPersist is the synchronous path shared by Submit and the
// queue consumer: generate, validate, extract diagram, fallback, persist.
func (s *Service) generateAndPersist(ctx context.Context, req *models.DesignRequest, user *store.UserRecord, path string) (*models.DesignArtifact, error) {
	start := time.Now()
	result, err := s.generator.GenerateDesign(ctx, req)
	metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DesignsFailed.WithLabelValues(path, "GENERATION_BACKEND_UNAVAILABLE").Inc()
		return nil, err
	}

	if err := ValidateResult(result); err != nil {
		metrics.DesignsFailed.WithLabelValues(path, "INVALID_GENERATION_RESULT").Inc()
		return nil, err
	}

	rawOutput, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("serialize generation result: %w", err)
	}

	// Even a successfully extracted diagram goes through the fallback
	// generator's acceptance check.
	mermaid := EnsureValid(extractDiagram(result))

	saved, err := s.designs.Save(ctx, &models.Design{
		Prompt:      req.Prompt,
		RawOutput:   string(rawOutput),
		MermaidCode: mermaid,
		CreatedAt:   time.Now().UTC(),
		UserID:      user.ID,
	})
	if err != nil {
		metrics.DesignsFailed.WithLabelValues(path, "DATABASE_INSERT_FAILED").Inc()
		return nil, err
	}
	metrics.DesignsGenerated.WithLabelValues(path).Inc()

	if s.indexer != nil {
		if err := s.indexer.IndexDesign(ctx, saved); err != nil {
			s.logger.Warn("design index failed", map[string]interface{}{
				"designId": saved.ID,
				"error":    err.Error(),
			})
		}
	}

	return &models.DesignArtifact{
		ID:          saved.ID,
		Prompt:      saved.Prompt,
		RawOutput:   result,
		MermaidCode: saved.MermaidCode,
	}, nil
}

// Get returns one design, scoped to its owner.
func (s *Service) Get(ctx context.Context, id int64, identity string) (*models.DesignArtifact, error) {
	user, err := s.ResolveIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}

	d, err := s.designs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrDesignNotFound, id)
		}
		return nil, err
	}
	if d.UserID != user.ID {
		return nil, fmt.Errorf("%w: design %d", ErrForbidden, id)
	}

	return toArtifact(d), nil
}

// List returns all designs owned by the submitter identity.
func (s *Service) List(ctx context.Context, identity string) ([]*models.DesignArtifact, error) {
	user, err := s.ResolveIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.listByUserID(ctx, user.ID)
}

// ListForUser returns all designs for a user id, unscoped. Internal use.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]*models.DesignArtifact, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrUserNotFound, userID)
		}
		return nil, err
	}
	return s.listByUserID(ctx, userID)
}

func (s *Service) listByUserID(ctx context.Context, userID int64) ([]*models.DesignArtifact, error) {
	designs, err := s.designs.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	artifacts := make([]*models.DesignArtifact, 0, len(designs))
	for _, d := range designs {
		artifacts = append(artifacts, toArtifact(d))
	}
	return artifacts, nil
}

// ResolveIdentity maps an opaque submitter identity to a user record:
// first by email, then by parsing the identity as a numeric user id.
func (s *Service) ResolveIdentity(ctx context.Context, identity string) (*store.UserRecord, error) {
	user, err := s.users.FindByEmail(ctx, identity)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	id, parseErr := strconv.ParseInt(identity, 10, 64)
	if parseErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, identity)
	}

	user, err = s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, identity)
		}
		return nil, err
	}
	return user, nil
}

// extractDiagram reads diagrams[0].content from a validated result, or
// empty when absent.
func extractDiagram(result map[string]interface{}) string {
	diagrams, ok := result["diagrams"].([]interface{})
	if !ok || len(diagrams) == 0 {
		return ""
	}
	first, ok := diagrams[0].(map[string]interface{})
	if !ok {
		return ""
	}
	content, _ := first["content"].(string)
	return content
}

// toArtifact converts a stored design row to the response shape. A row
// whose stored result no longer parses gets an inline error marker instead
// of failing the whole projection.
func toArtifact(d *models.Design) *models.DesignArtifact {
	var rawOutput map[string]interface{}
	if err := json.Unmarshal([]byte(d.RawOutput), &rawOutput); err != nil {
		rawOutput = map[string]interface{}{
			"error": fmt.Sprintf("Failed to parse rawOutput: %s", err.Error()),
		}
	}
	return &models.DesignArtifact{
		ID:          d.ID,
		Prompt:      d.Prompt,
		RawOutput:   rawOutput,
		MermaidCode: d.MermaidCode,
	}
}
