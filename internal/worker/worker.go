package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/agenthive/proxy-server-go/internal/config"
	"github.com/agenthive/proxy-server-go/internal/database"
	"github.com/agenthive/proxy-server-go/internal/mail"
	"github.com/agenthive/proxy-server-go/internal/model"
	"github.com/agenthive/proxy-server-go/internal/repository"
	"github.com/agenthive/proxy-server-go/internal/service"
	"github.com/agenthive/proxy-server-go/internal/upstream"
	"github.com/agenthive/proxy-server-go/internal/util"
)

const resultPreviewLen = 200

var errInsufficientFunds = errors.New("balance does not cover run price")

// Worker polls for due background jobs and executes them. One instance per
// deployment; FindDue has no row locking, so concurrent workers would
// double-run jobs.
type Worker struct {
	db               database.TxRunner
	jobRepo          repository.JobRepository
	jobRunRepo       repository.JobRunRepository
	agentRepo        repository.AgentRepository
	accountRepo      repository.AccountRepository
	notificationRepo repository.NotificationRepository
	upstream         *upstream.Client
	mailer           mail.Mailer

	encryptionKey  string
	platformAPIKey string
	pollInterval   time.Duration
	batchSize      int
}

func New(
	db database.TxRunner,
	jobRepo repository.JobRepository,
	jobRunRepo repository.JobRunRepository,
	agentRepo repository.AgentRepository,
	accountRepo repository.AccountRepository,
	notificationRepo repository.NotificationRepository,
	upstreamClient *upstream.Client,
	mailer mail.Mailer,
	encryptionKey string,
	platformAPIKey string,
	pollInterval time.Duration,
	batchSize int,
) *Worker {
	return &Worker{
		db:               db,
		jobRepo:          jobRepo,
		jobRunRepo:       jobRunRepo,
		agentRepo:        agentRepo,
		accountRepo:      accountRepo,
		notificationRepo: notificationRepo,
		upstream:         upstreamClient,
		mailer:           mailer,
		encryptionKey:    encryptionKey,
		platformAPIKey:   platformAPIKey,
		pollInterval:     pollInterval,
		batchSize:        batchSize,
	}
}

// Run polls until ctx is cancelled. The first cycle happens immediately.
func (w *Worker) Run(ctx context.Context) {
	log.Info().
		Dur("pollInterval", w.pollInterval).
		Int("batchSize", w.batchSize).
		Msg("worker started")

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker stopped")
			return
		case <-ticker.C:
			w.cycle(ctx)
		}
	}
}

// cycle processes one batch of due jobs sequentially.
func (w *Worker) cycle(ctx context.Context) {
	jobs, err := w.jobRepo.FindDue(ctx, time.Now(), w.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("worker: failed to select due jobs")
		return
	}
	if len(jobs) == 0 {
		return
	}

	log.Info().Int("count", len(jobs)).Msg("worker: processing due jobs")
	for i := range jobs {
		w.processJob(ctx, &jobs[i])
	}
}

// processJob runs one job end to end. A panic in one job must not take the
// polling loop down with it.
func (w *Worker) processJob(ctx context.Context, job *model.Job) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("jobId", job.ID).Any("panic", r).Msg("worker: job panicked")
		}
	}()

	// The run row is committed before any work so a crash mid-run leaves
	// visible evidence.
	run, err := w.jobRunRepo.CreateRunning(ctx, job.ID)
	if err != nil {
		log.Error().Err(err).Str("jobId", job.ID).Msg("worker: failed to create run row")
		return
	}

	result, agent, err := w.executeJob(ctx, job)
	if err != nil {
		log.Warn().Err(err).Str("jobId", job.ID).Str("runId", run.ID).Msg("worker: run failed")
		if err := w.jobRunRepo.MarkFailed(ctx, run.ID, err.Error()); err != nil {
			log.Error().Err(err).Str("runId", run.ID).Msg("worker: failed to mark run failed")
		}
		// Failed jobs stay active with next_run_at unchanged, so the next
		// cycle retries them.
		if err := w.jobRepo.Touch(ctx, job.ID); err != nil {
			log.Error().Err(err).Str("jobId", job.ID).Msg("worker: failed to touch job")
		}
		return
	}

	price := service.RunPriceCredits(agent, config.DefaultRunPriceCredits)
	if agent.IsFree {
		price = 0
	}

	if err := w.finishRun(ctx, job, run.ID, result, price); err != nil {
		if errors.Is(err, errInsufficientFunds) {
			// Out of funds: pause and notify. The rolled-back transaction
			// leaves the run row running so the attempt is visible, and
			// next_run_at untouched so resuming picks up where it left off.
			w.pauseForInsufficientFunds(ctx, job, price)
			return
		}
		log.Error().Err(err).Str("jobId", job.ID).Str("runId", run.ID).Msg("worker: failed to finish run")
		if err := w.jobRunRepo.MarkFailed(ctx, run.ID, "failed to record run: "+err.Error()); err != nil {
			log.Error().Err(err).Str("runId", run.ID).Msg("worker: failed to mark run failed")
		}
		if err := w.jobRepo.Touch(ctx, job.ID); err != nil {
			log.Error().Err(err).Str("jobId", job.ID).Msg("worker: failed to touch job")
		}
		return
	}

	w.notifyResult(ctx, job, run.ID, result)
}

// executeJob renders the job config into a prompt and calls the agent's LLM.
// The loaded agent is returned so billing can reuse it.
func (w *Worker) executeJob(ctx context.Context, job *model.Job) (string, *model.Agent, error) {
	agent, err := w.agentRepo.FindByID(ctx, job.AgentID)
	if err != nil {
		return "", nil, fmt.Errorf("load agent: %w", err)
	}
	if agent == nil {
		return "", nil, fmt.Errorf("agent %s not found", job.AgentID)
	}
	// Unattended runs prefer the creator's own key and fall back to the
	// platform-wide one.
	var apiKey string
	switch {
	case agent.EncryptedAPIKey != nil && *agent.EncryptedAPIKey != "":
		apiKey, err = util.Decrypt(w.encryptionKey, *agent.EncryptedAPIKey)
		if err != nil {
			return "", nil, fmt.Errorf("decrypt agent API key: %w", err)
		}
	case w.platformAPIKey != "":
		apiKey = w.platformAPIKey
	default:
		return "", nil, fmt.Errorf("agent %s has no API key configured", job.AgentID)
	}

	req := upstream.MessageRequest{
		Model:       agent.LLMModel,
		MaxTokens:   agent.MaxTokens,
		Temperature: agent.Temperature,
		Messages: []upstream.ChatMessage{
			{Role: "user", Content: renderPrompt(job.Config)},
		},
	}
	if agent.SystemPrompt != nil {
		req.System = *agent.SystemPrompt
	}

	resp, err := w.upstream.CreateMessage(ctx, apiKey, req)
	if err != nil {
		return "", nil, err
	}
	return resp.Text(), agent, nil
}

// renderPrompt turns the job config into the user message. A top-level
// "prompt" or "task" string wins; anything else is passed through as JSON.
func renderPrompt(cfg json.RawMessage) string {
	var fields struct {
		Prompt string `json:"prompt"`
		Task   string `json:"task"`
	}
	if err := json.Unmarshal(cfg, &fields); err == nil {
		if fields.Prompt != "" {
			return fields.Prompt
		}
		if fields.Task != "" {
			return fields.Task
		}
	}
	return string(cfg)
}

// finishRun charges the wallet, records the completed run, and advances the
// schedule in one transaction. The debit commits together with the schedule
// advance, so a partial failure can never charge a run that will be retried.
// Returns errInsufficientFunds (with everything rolled back) when the balance
// does not cover the price.
func (w *Worker) finishRun(ctx context.Context, job *model.Job, runID, result string, price int64) error {
	return w.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		accounts := w.accountRepo.WithTx(tx)
		runs := w.jobRunRepo.WithTx(tx)
		jobs := w.jobRepo.WithTx(tx)

		if price > 0 {
			ok, err := accounts.DebitIfSufficient(ctx, job.UserID, price)
			if err != nil {
				return err
			}
			if !ok {
				return errInsufficientFunds
			}
		}

		if err := runs.MarkCompleted(ctx, runID, result, price); err != nil {
			return err
		}

		next, ok := service.NextRunTime(job.Schedule, time.Now())
		if !ok {
			return jobs.Complete(ctx, job.ID, price)
		}
		return jobs.Advance(ctx, job.ID, next, price)
	})
}

// pauseForInsufficientFunds transitions the job to paused and tells the owner.
func (w *Worker) pauseForInsufficientFunds(ctx context.Context, job *model.Job, price int64) {
	log.Warn().
		Str("jobId", job.ID).
		Int64("price", price).
		Msg("worker: insufficient credits, pausing job")

	if err := w.jobRepo.Pause(ctx, job.ID); err != nil {
		log.Error().Err(err).Str("jobId", job.ID).Msg("worker: failed to pause job")
		return
	}

	_, err := w.notificationRepo.Create(ctx, model.CreateNotificationParams{
		UserID: job.UserID,
		JobID:  &job.ID,
		Type:   model.NotificationLowBalance,
		Title:  "Job paused: insufficient credits",
		Body: fmt.Sprintf("Your job was paused because your balance does not cover the %d credit run price. Top up and resume it.",
			price),
	})
	if err != nil {
		log.Error().Err(err).Str("jobId", job.ID).Msg("worker: failed to create low balance notification")
	}
}

// notifyResult delivers the run result through the job's output methods.
// Email is best-effort and never affects run state.
func (w *Worker) notifyResult(ctx context.Context, job *model.Job, runID, result string) {
	preview := result
	if len(preview) > resultPreviewLen {
		preview = preview[:resultPreviewLen] + "..."
	}

	for _, method := range job.OutputMethods {
		switch method {
		case model.OutputMethodInApp:
			_, err := w.notificationRepo.Create(ctx, model.CreateNotificationParams{
				UserID:   job.UserID,
				JobID:    &job.ID,
				JobRunID: &runID,
				Type:     model.NotificationJobResult,
				Title:    "Job completed",
				Body:     preview,
			})
			if err != nil {
				log.Error().Err(err).Str("jobId", job.ID).Msg("worker: failed to create result notification")
			}
		case model.OutputMethodEmail:
			to := w.emailRecipient(ctx, job)
			if to == "" {
				log.Warn().Str("jobId", job.ID).Msg("worker: no email recipient for job")
				continue
			}
			if err := w.mailer.Send(to, "Your job completed", result); err != nil {
				log.Warn().Err(err).Str("jobId", job.ID).Msg("worker: failed to send result email")
			}
		}
	}
}

func (w *Worker) emailRecipient(ctx context.Context, job *model.Job) string {
	if job.NotificationEmail != nil && *job.NotificationEmail != "" {
		return *job.NotificationEmail
	}
	owner, err := w.accountRepo.FindByID(ctx, job.UserID)
	if err != nil || owner == nil {
		return ""
	}
	return owner.Email
}
