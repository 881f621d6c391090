package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"relayforge/internal/domain"
	"relayforge/internal/ports"
)

// AnalysisStageDeps wires the analysis stage. MediaQueue defaults to the
// conventional queue name when empty.
type AnalysisStageDeps struct {
	Jobs       ports.JobStore
	Extractor  ports.ArticleExtractor
	Analyzer   ports.Analyzer
	Publisher  ports.QueuePublisher
	MediaQueue string
	Logger     *slog.Logger
}

// AnalysisStage consumes story messages: it extracts article text, runs
// the analyzer and hands the job to media production. Redeliveries of an
// already analyzed job skip straight to the downstream publish, so a
// crash between persist and publish heals on the next delivery.
type AnalysisStage struct {
	jobs       ports.JobStore
	extractor  ports.ArticleExtractor
	analyzer   ports.Analyzer
	publisher  ports.QueuePublisher
	mediaQueue string
	logger     *slog.Logger
}

// NewAnalysisStage constructs the stage.
func NewAnalysisStage(deps AnalysisStageDeps) *AnalysisStage {
	return &AnalysisStage{
		jobs:       deps.Jobs,
		extractor:  deps.Extractor,
		analyzer:   deps.Analyzer,
		publisher:  deps.Publisher,
		mediaQueue: queueOrDefault(deps.MediaQueue, domain.MediaQueue),
		logger:     deps.Logger,
	}
}

// HandleStory processes one story message.
func (s *AnalysisStage) HandleStory(ctx context.Context, msg domain.Message) error {
	job, err := s.jobs.Get(ctx, msg.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", msg.JobID, err)
	}

	// Redelivery of work already persisted: only the downstream publish
	// is outstanding.
	if job.Status.Rank() >= domain.StatusAnalysisComplete.Rank() {
		return s.publishNext(ctx, job.ID)
	}

	if job.Status == domain.StatusIngested {
		if err := s.jobs.SetStatus(ctx, job.ID, domain.StatusProcessing, nil); err != nil {
			return fmt.Errorf("mark processing: %w", err)
		}
	}

	articleText := s.extractText(ctx, job)

	analysis, err := s.analyzer.Analyze(ctx, job.Title, articleText)
	if err != nil {
		return fmt.Errorf("analyze job %s: %w", job.ID, err)
	}

	if err := s.jobs.SaveAnalysis(ctx, job.ID, articleText, analysis, analysis.Script); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}

	return s.publishNext(ctx, job.ID)
}

// extractText pulls the article body; extraction failures degrade to the
// feed summary or the bare title rather than failing the stage.
func (s *AnalysisStage) extractText(ctx context.Context, job *domain.ContentJob) string {
	if job.SourceURL != "" {
		text, err := s.extractor.Extract(ctx, job.SourceURL)
		if err == nil {
			return text
		}
		s.logger.Warn("extraction failed, using feed summary", "job_id", job.ID, "error", err)
	}

	if summary, ok := job.SourceMetadata["summary"].(string); ok && summary != "" {
		return summary
	}
	return job.Title
}

func (s *AnalysisStage) publishNext(ctx context.Context, jobID string) error {
	if err := s.publisher.Publish(ctx, s.mediaQueue, domain.Message{JobID: jobID}); err != nil {
		return fmt.Errorf("publish media message: %w", err)
	}
	return nil
}
