package api

import (
	"context"
	"errors"
	"time"

	"github.com/bilgisen/newscurator/internal/jobs"
	"github.com/bilgisen/newscurator/internal/logger"
	"github.com/bilgisen/newscurator/internal/middleware"
	"github.com/bilgisen/newscurator/internal/models"
	"github.com/bilgisen/newscurator/internal/storage"
	"github.com/gofiber/fiber/v2"
)

const version = "1.0.0"

// Runner starts background jobs and reports their last outcome
type Runner interface {
	Go(ctx context.Context, job string) error
	Last(job string) (jobs.Run, bool)
}

// Deps wires the handlers
type Deps struct {
	Candidates storage.Table
	Approved   storage.Table
	Runner     Runner
	// BaseContext bounds background jobs, normally cancelled on shutdown
	BaseContext context.Context
	// NextRun reports the next scheduled run; nil when no schedule is set
	NextRun func() string
}

type Handlers struct {
	deps Deps
}

func NewHandlers(d Deps) *Handlers {
	if d.BaseContext == nil {
		d.BaseContext = context.Background()
	}
	return &Handlers{deps: d}
}

// ListQuery holds the query parameters of the list endpoints
type ListQuery struct {
	Status   string `query:"status" validate:"omitempty,oneof=new ok done"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

func newListQuery() interface{} {
	return &ListQuery{}
}

// CandidateItem is a candidate row as served by the API
type CandidateItem struct {
	Row int `json:"row"`
	models.CandidateRecord
}

// ApprovedItem is an approved row as served by the API
type ApprovedItem struct {
	Row int `json:"row"`
	models.ApprovedRecord
}

// HealthCheck handles the /health endpoint
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	runs := fiber.Map{}
	for _, job := range []string{jobs.JobIngest, jobs.JobPromote} {
		if run, ok := h.deps.Runner.Last(job); ok {
			runs[job] = run
		}
	}

	resp := fiber.Map{
		"status":  "ok",
		"version": version,
		"time":    time.Now().Format(time.RFC3339),
		"runs":    runs,
	}
	if h.deps.NextRun != nil {
		resp["next_run"] = h.deps.NextRun()
	}
	return c.JSON(resp)
}

// ListCandidates handles GET /api/v1/candidates
func (h *Handlers) ListCandidates(c *fiber.Ctx) error {
	q := c.Locals(middleware.QueryParamsKey).(*ListQuery)

	rows, err := h.deps.Candidates.Rows(c.UserContext())
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error reading candidate store")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to read candidates",
		})
	}

	items := make([]CandidateItem, 0, len(rows))
	for _, row := range rows {
		rec := models.CandidateFromFields(row.Fields)
		if q.Status != "" && string(rec.Status) != q.Status {
			continue
		}
		items = append(items, CandidateItem{Row: row.Index, CandidateRecord: rec})
	}

	return c.JSON(page(items, q))
}

// ListApproved handles GET /api/v1/approved
func (h *Handlers) ListApproved(c *fiber.Ctx) error {
	q := c.Locals(middleware.QueryParamsKey).(*ListQuery)

	rows, err := h.deps.Approved.Rows(c.UserContext())
	if err != nil {
		logger.Get().Error().Err(err).Msg("Error reading approved store")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to read approved rows",
		})
	}

	items := make([]ApprovedItem, 0, len(rows))
	for _, row := range rows {
		rec := models.ApprovedFromFields(row.Fields)
		if q.Status != "" && string(rec.Status) != q.Status {
			continue
		}
		items = append(items, ApprovedItem{Row: row.Index, ApprovedRecord: rec})
	}

	return c.JSON(page(items, q))
}

func page[T any](items []T, q *ListQuery) fiber.Map {
	pageNum := q.Page
	if pageNum < 1 {
		pageNum = 1
	}
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	start := (pageNum - 1) * pageSize
	if start > len(items) {
		start = len(items)
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}

	return fiber.Map{
		"page":      pageNum,
		"page_size": pageSize,
		"total":     len(items),
		"items":     items[start:end],
	}
}

// TriggerIngest handles POST /api/v1/admin/ingest
func (h *Handlers) TriggerIngest(c *fiber.Ctx) error {
	return h.trigger(c, jobs.JobIngest)
}

// TriggerPromote handles POST /api/v1/admin/promote
func (h *Handlers) TriggerPromote(c *fiber.Ctx) error {
	return h.trigger(c, jobs.JobPromote)
}

func (h *Handlers) trigger(c *fiber.Ctx, job string) error {
	log := logger.Get()

	if err := h.deps.Runner.Go(h.deps.BaseContext, job); err != nil {
		if errors.Is(err, jobs.ErrBusy) {
			log.Warn().Str("job", job).Str("ip", c.IP()).Msg("Run requested while another is in progress")
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Another run is in progress",
			})
		}
		return err
	}

	log.Info().Str("job", job).Str("ip", c.IP()).Msg("Background run started")
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "started",
		"job":    job,
	})
}
