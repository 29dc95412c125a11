package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/agenthive/proxy-server-go/internal/config"
	apperrors "github.com/agenthive/proxy-server-go/internal/errors"
	"github.com/agenthive/proxy-server-go/internal/httputil"
	"github.com/agenthive/proxy-server-go/internal/middleware"
	"github.com/agenthive/proxy-server-go/internal/model"
	"github.com/agenthive/proxy-server-go/internal/repository"
	"github.com/agenthive/proxy-server-go/internal/service"
)

const recentRunsLimit = 5

type JobHandler struct {
	jobRepo     repository.JobRepository
	jobRunRepo  repository.JobRunRepository
	agentRepo   repository.AgentRepository
	licenseRepo repository.LicenseRepository
}

func NewJobHandler(
	jobRepo repository.JobRepository,
	jobRunRepo repository.JobRunRepository,
	agentRepo repository.AgentRepository,
	licenseRepo repository.LicenseRepository,
) *JobHandler {
	return &JobHandler{
		jobRepo:     jobRepo,
		jobRunRepo:  jobRunRepo,
		agentRepo:   agentRepo,
		licenseRepo: licenseRepo,
	}
}

type createJobRequest struct {
	AgentID           string          `json:"agentId"`
	LicenseID         *string         `json:"licenseId,omitempty"`
	Config            json.RawMessage `json:"config"`
	Schedule          string          `json:"schedule"`
	OutputMethods     []string        `json:"outputMethods"`
	NotificationEmail *string         `json:"notificationEmail,omitempty"`
}

type jobResponse struct {
	model.Job
	LatestResult *string `json:"latestResult,omitempty"`
}

type jobDetailResponse struct {
	model.Job
	RecentRuns []model.JobRun `json:"recentRuns"`
}

// Create handles POST /v1/jobs.
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := middleware.GetAccount(ctx)

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid JSON body"))
		return
	}

	if req.AgentID == "" {
		httputil.WriteError(w, apperrors.MissingRequired("agentId"))
		return
	}
	schedule := model.JobSchedule(req.Schedule)
	if !model.ValidSchedule(schedule) {
		httputil.WriteError(w, apperrors.InvalidInput("schedule", "must be one of once, hourly, daily, weekly"))
		return
	}
	for _, method := range req.OutputMethods {
		if method != model.OutputMethodInApp && method != model.OutputMethodEmail {
			httputil.WriteError(w, apperrors.InvalidInput("outputMethods", "must be in_app or email"))
			return
		}
	}
	if len(req.OutputMethods) == 0 {
		req.OutputMethods = []string{model.OutputMethodInApp}
	}
	if req.Config == nil {
		req.Config = json.RawMessage(`{}`)
	}

	agent, err := h.agentRepo.FindByID(ctx, req.AgentID)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return
	}
	if agent == nil {
		httputil.WriteError(w, apperrors.NotFound("Agent"))
		return
	}

	billingModel := "per_run"
	if req.LicenseID != nil {
		license, err := h.licenseRepo.FindByID(ctx, *req.LicenseID)
		if err != nil {
			httputil.WriteError(w, apperrors.Database(err))
			return
		}
		if license == nil || license.BuyerID != account.ID || license.AgentID != req.AgentID {
			httputil.WriteError(w, apperrors.NotFound("License"))
			return
		}
		if license.Status != model.LicenseStatusActive {
			httputil.WriteError(w, apperrors.LicenseNotActive(string(license.Status)))
			return
		}
		billingModel = "license"
	}

	price := service.RunPriceCredits(agent, config.DefaultRunPriceCredits)
	if account.CreditBalance < price {
		httputil.WriteError(w, apperrors.InsufficientCredits(price, account.CreditBalance))
		return
	}

	job, err := h.jobRepo.Create(ctx, model.CreateJobParams{
		UserID:            account.ID,
		AgentID:           req.AgentID,
		LicenseID:         req.LicenseID,
		Config:            req.Config,
		BillingModel:      billingModel,
		Schedule:          schedule,
		NextRunAt:         time.Now(),
		OutputMethods:     req.OutputMethods,
		NotificationEmail: req.NotificationEmail,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to create job")
		httputil.WriteError(w, apperrors.Database(err))
		return
	}

	log.Info().
		Str("jobId", job.ID).
		Str("userId", account.ID).
		Str("agentId", req.AgentID).
		Str("schedule", string(schedule)).
		Msg("job created")

	httputil.WriteJSON(w, http.StatusCreated, job)
}

// List handles GET /v1/jobs.
func (h *JobHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := middleware.GetAccount(ctx)

	jobs, err := h.jobRepo.FindByUser(ctx, account.ID)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return
	}

	responses := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		latest, err := h.jobRunRepo.FindLatestResult(ctx, job.ID)
		if err != nil {
			httputil.WriteError(w, apperrors.Database(err))
			return
		}
		responses = append(responses, jobResponse{Job: job, LatestResult: latest})
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{"jobs": responses})
}

// Get handles GET /v1/jobs/{jobID}.
func (h *JobHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := middleware.GetAccount(ctx)
	jobID := chi.URLParam(r, "jobID")

	job, err := h.jobRepo.FindByIDAndUser(ctx, jobID, account.ID)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return
	}
	if job == nil {
		httputil.WriteError(w, apperrors.NotFound("Job"))
		return
	}

	runs, err := h.jobRunRepo.FindRecentByJobID(ctx, job.ID, recentRunsLimit)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return
	}
	if runs == nil {
		runs = []model.JobRun{}
	}

	httputil.WriteJSON(w, http.StatusOK, jobDetailResponse{Job: *job, RecentRuns: runs})
}

type updateJobRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /v1/jobs/{jobID}. Owners can pause, resume, or
// cancel; cancelled and completed jobs are terminal.
func (h *JobHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account := middleware.GetAccount(ctx)
	jobID := chi.URLParam(r, "jobID")

	var req updateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid JSON body"))
		return
	}

	status := model.JobStatus(req.Status)
	switch status {
	case model.JobStatusActive, model.JobStatusPaused, model.JobStatusCancelled:
	default:
		httputil.WriteError(w, apperrors.InvalidInput("status", "must be active, paused, or cancelled"))
		return
	}

	job, err := h.jobRepo.FindByIDAndUser(ctx, jobID, account.ID)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return
	}
	if job == nil {
		httputil.WriteError(w, apperrors.NotFound("Job"))
		return
	}
	if job.Status == model.JobStatusCancelled || job.Status == model.JobStatusCompleted {
		httputil.WriteError(w, apperrors.New(apperrors.ErrCodeConflict,
			"Job is "+string(job.Status)+" and cannot change status"))
		return
	}

	updated, err := h.jobRepo.UpdateStatusByUser(ctx, jobID, account.ID, status)
	if err != nil {
		httputil.WriteError(w, apperrors.Database(err))
		return
	}
	if updated == nil {
		// Terminal transition raced us between the read and the update.
		httputil.WriteError(w, apperrors.New(apperrors.ErrCodeConflict,
			"Job cannot change status"))
		return
	}

	log.Info().
		Str("jobId", jobID).
		Str("status", string(status)).
		Msg("job status updated")

	httputil.WriteJSON(w, http.StatusOK, updated)
}
