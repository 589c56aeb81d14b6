package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/use-agent/shelfscan/models"
	"github.com/use-agent/shelfscan/webhook"
	"golang.org/x/sync/errgroup"
)

const batchTTL = time.Hour

// batchJob is one batch's progress. Results are filled in as URLs finish.
type batchJob struct {
	mu        sync.Mutex
	id        string
	status    string
	total     int
	completed int
	failed    int
	results   []*models.ScrapeResponse
	createdAt time.Time
}

func (j *batchJob) record(idx int, resp *models.ScrapeResponse) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results[idx] = resp
	j.completed++
	if !resp.Success {
		j.failed++
	}
}

// finish sets the final status and returns it with the failure count.
func (j *batchJob) finish() (string, int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch {
	case j.failed == j.total:
		j.status = models.BatchFailed
	case j.failed > 0:
		j.status = models.BatchPartial
	default:
		j.status = models.BatchCompleted
	}
	return j.status, j.failed
}

func (j *batchJob) snapshot() models.BatchStatusResponse {
	j.mu.Lock()
	defer j.mu.Unlock()
	results := make([]*models.ScrapeResponse, len(j.results))
	copy(results, j.results)
	return models.BatchStatusResponse{
		ID:        j.id,
		Status:    j.status,
		Completed: j.completed,
		Total:     j.total,
		Results:   results,
	}
}

// BatchStore holds in-flight and finished batch jobs for an hour.
type BatchStore struct {
	mu   sync.Mutex
	jobs map[string]*batchJob
	now  func() time.Time
	done chan struct{}
	once sync.Once
}

// NewBatchStore starts a goroutine that drops expired jobs every 5
// minutes until Stop.
func NewBatchStore() *BatchStore {
	s := &BatchStore{jobs: make(map[string]*batchJob), now: time.Now, done: make(chan struct{})}
	go s.cleanupLoop()
	return s
}

func (s *BatchStore) create(total int) *batchJob {
	job := &batchJob{
		id:        "batch-" + uuid.NewString(),
		status:    models.BatchProcessing,
		total:     total,
		results:   make([]*models.ScrapeResponse, total),
		createdAt: s.now(),
	}
	s.mu.Lock()
	s.jobs[job.id] = job
	s.mu.Unlock()
	return job
}

func (s *BatchStore) get(id string) (*batchJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	return job, ok
}

func (s *BatchStore) expire() {
	cutoff := s.now().Add(-batchTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, job := range s.jobs {
		if job.createdAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (s *BatchStore) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *BatchStore) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.expire()
		}
	}
}

// PostBatch returns a handler for POST /api/v1/batch/scrape. Every URL
// is validated up front; the job then runs in the background.
func PostBatch(svc *Service, store *BatchStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidInput(c, err.Error(), svc.timestamp())
			return
		}
		for i, u := range req.URLs {
			if err := validateURL(u, svc.AllowedDomains); err != nil {
				invalidInput(c, fmt.Sprintf("urls[%d]: %v", i, err), svc.timestamp())
				return
			}
		}

		job := store.create(len(req.URLs))
		go runBatch(svc, job, req)

		c.JSON(http.StatusAccepted, models.BatchResponse{
			ID:     job.id,
			Status: models.BatchProcessing,
			Total:  job.total,
		})
	}
}

// GetBatch returns a handler for GET /api/v1/batch/:id.
func GetBatch(svc *Service, store *BatchStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, ok := store.get(c.Param("id"))
		if !ok {
			respondError(c, models.NewScrapeError(models.ErrCodeNotFound, "batch job not found", nil), svc.timestamp())
			return
		}
		c.JSON(http.StatusOK, job.snapshot())
	}
}

// runBatch extracts every URL with bounded concurrency.
func runBatch(svc *Service, job *batchJob, req models.BatchRequest) {
	limit := svc.BatchConcurrency
	if limit <= 0 {
		limit = 2
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, u := range req.URLs {
		g.Go(func() error {
			job.record(i, svc.run(context.Background(), u, req.CaptureScreenshots))
			return nil
		})
	}
	_ = g.Wait()

	status, failed := job.finish()
	svc.Metrics.ObserveBatch(status)
	snap := job.snapshot()
	slog.Info("batch job finished",
		"id", job.id,
		"status", status,
		"failed", failed,
		"total", job.total,
	)

	if svc.Notifier != nil && req.WebhookURL != "" {
		svc.Notifier.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
			Type:      webhook.EventBatchCompleted,
			ID:        job.id,
			Timestamp: svc.now().Unix(),
			Data:      snap,
		})
	}
	go svc.cleanupScreenshots()
}
