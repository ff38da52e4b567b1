package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/noah-isme/canvas-assignment-manager/internal/models"
	appErrors "github.com/noah-isme/canvas-assignment-manager/pkg/errors"
)

// RecencyWindow is how far back a past-due assignment is still surfaced.
const RecencyWindow = 7 * 24 * time.Hour

const defaultFetchConcurrency = 8

// UpstreamClient reads courses and assignments from Canvas.
type UpstreamClient interface {
	ListActiveCourses(ctx context.Context) ([]models.Course, error)
	ListAssignments(ctx context.Context, courseID int64) ([]models.Assignment, error)
}

// ClientFactory builds an UpstreamClient for a given configuration.
type ClientFactory func(cfg models.APIConfig) UpstreamClient

// AggregatorConfig tunes an aggregation run.
type AggregatorConfig struct {
	Timeout     time.Duration
	Concurrency int
	Now         func() time.Time
}

// AggregatorService fetches every active course's assignments and classifies them.
type AggregatorService struct {
	newClient   ClientFactory
	metrics     *MetricsService
	logger      *zap.Logger
	timeout     time.Duration
	concurrency int
	now         func() time.Time
}

// NewAggregatorService constructs an AggregatorService.
func NewAggregatorService(factory ClientFactory, metrics *MetricsService, logger *zap.Logger, cfg AggregatorConfig) *AggregatorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultFetchConcurrency
	}
	return &AggregatorService{
		newClient:   factory,
		metrics:     metrics,
		logger:      logger,
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
		now:         cfg.Now,
	}
}

type courseResult struct {
	items []models.ClassifiedAssignment
	err   error
}

// FetchAll retrieves, classifies and filters assignments across all active courses. It fails when
// the course list cannot be read or when every course's assignment fetch fails; individual course
// failures only drop that course's items.
func (s *AggregatorService) FetchAll(ctx context.Context, cfg models.APIConfig) ([]models.ClassifiedAssignment, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	client := s.newClient(cfg)
	courses, err := client.ListActiveCourses(ctx)
	if err != nil && !s.keepTruncated(err) {
		s.metrics.RecordFetchRun("error")
		return nil, fmt.Errorf("list active courses: %w", err)
	}

	mapper := iter.Mapper[models.Course, courseResult]{MaxGoroutines: s.concurrency}
	results := mapper.Map(courses, func(course *models.Course) courseResult {
		assignments, err := client.ListAssignments(ctx, course.ID)
		if err != nil && !s.keepTruncated(err, zap.Int64("course_id", course.ID), zap.String("course_name", course.Name)) {
			return courseResult{err: &appErrors.PartialFetchError{CourseID: course.ID, CourseName: course.Name, Err: err}}
		}
		items := make([]models.ClassifiedAssignment, 0, len(assignments))
		for _, a := range assignments {
			if !IsRealAssignment(a) {
				continue
			}
			items = append(items, Classify(a, course.Name))
		}
		return courseResult{items: items}
	})

	var (
		all      []models.ClassifiedAssignment
		failures []error
	)
	for _, res := range results {
		if res.err != nil {
			failures = append(failures, res.err)
			s.metrics.RecordPartialFailure()
			s.logPartialFailure(res.err)
			continue
		}
		all = append(all, res.items...)
	}

	if len(courses) > 0 && len(failures) == len(courses) {
		s.metrics.RecordFetchRun("error")
		return nil, appErrors.Wrap(errors.Join(failures...), appErrors.ErrNoCoursesReachable.Code, appErrors.ErrNoCoursesReachable.Status, appErrors.ErrNoCoursesReachable.Message)
	}

	filtered := FilterRecent(all, s.now())
	s.metrics.RecordFetchRun("success")
	s.logSummary(len(courses), len(failures), len(all), filtered)
	return filtered, nil
}

// FilterRecent drops assignments whose due date is older than RecencyWindow before now. Undated
// assignments are always kept.
func FilterRecent(items []models.ClassifiedAssignment, now time.Time) []models.ClassifiedAssignment {
	cutoff := now.Add(-RecencyWindow)
	out := make([]models.ClassifiedAssignment, 0, len(items))
	for _, item := range items {
		if item.DueAt != nil && item.DueAt.Before(cutoff) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// keepTruncated reports whether err only signals a page-capped listing, logging the cut so the
// partial result is never silent.
func (s *AggregatorService) keepTruncated(err error, fields ...zap.Field) bool {
	var limit *appErrors.PageLimitError
	if !errors.As(err, &limit) {
		return false
	}
	s.logger.Warn("canvas listing truncated at page limit", append(fields,
		zap.String("resource", limit.Resource),
		zap.Int("pages", limit.Pages),
	)...)
	return true
}

func (s *AggregatorService) logPartialFailure(err error) {
	var partial *appErrors.PartialFetchError
	if errors.As(err, &partial) {
		s.logger.Warn("failed to fetch course assignments",
			zap.Int64("course_id", partial.CourseID),
			zap.String("course_name", partial.CourseName),
			zap.Error(partial.Err),
		)
		return
	}
	s.logger.Warn("failed to fetch course assignments", zap.Error(err))
}

func (s *AggregatorService) logSummary(courses, failed, processed int, kept []models.ClassifiedAssignment) {
	var dueInClass, hidden int
	for _, item := range kept {
		if item.IsDueInClass {
			dueInClass++
		}
		if item.IsHidden {
			hidden++
		}
	}
	s.logger.Info("assignments aggregated",
		zap.Int("courses", courses),
		zap.Int("courses_failed", failed),
		zap.Int("processed", processed),
		zap.Int("kept", len(kept)),
		zap.Int("due_in_class", dueInClass),
		zap.Int("visible", len(kept)-hidden),
		zap.Int("hidden", hidden),
	)
}
