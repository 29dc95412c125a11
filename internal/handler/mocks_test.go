package handler

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/agenthive/proxy-server-go/internal/model"
	"github.com/agenthive/proxy-server-go/internal/repository"
	"github.com/agenthive/proxy-server-go/internal/service"
)

type mockValidator struct {
	validated *service.ValidatedLicense
	err       error
	calls     int
}

func (m *mockValidator) Validate(ctx context.Context, licenseKey string) (*service.ValidatedLicense, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.validated, nil
}

type mockSettler struct {
	params []service.SettleParams
	err    error
}

func (m *mockSettler) Settle(ctx context.Context, p service.SettleParams) (*model.UsageRecord, error) {
	m.params = append(m.params, p)
	if m.err != nil {
		return nil, m.err
	}
	return &model.UsageRecord{ID: "usage-1", Success: p.Success}, nil
}

type mockAccountRepo struct {
	accounts map[string]*model.Account
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: make(map[string]*model.Account)}
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return m.accounts[id], nil
}

func (m *mockAccountRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Account, error) {
	return nil, nil
}

func (m *mockAccountRepo) Credit(ctx context.Context, id string, amount int64) error {
	return nil
}

func (m *mockAccountRepo) DebitIfSufficient(ctx context.Context, id string, amount int64) (bool, error) {
	return true, nil
}

func (m *mockAccountRepo) WithTx(tx *sqlx.Tx) repository.AccountRepository {
	return m
}

type mockAgentRepo struct {
	agents map[string]*model.Agent
}

func newMockAgentRepo() *mockAgentRepo {
	return &mockAgentRepo{agents: make(map[string]*model.Agent)}
}

func (m *mockAgentRepo) FindByID(ctx context.Context, id string) (*model.Agent, error) {
	return m.agents[id], nil
}

func (m *mockAgentRepo) AddEarnedCredits(ctx context.Context, id string, credits int64) error {
	return nil
}

func (m *mockAgentRepo) WithTx(tx *sqlx.Tx) repository.AgentRepository {
	return m
}

type mockLicenseRepo struct {
	byID map[string]*model.License
}

func newMockLicenseRepo() *mockLicenseRepo {
	return &mockLicenseRepo{byID: make(map[string]*model.License)}
}

func (m *mockLicenseRepo) FindByID(ctx context.Context, id string) (*model.License, error) {
	return m.byID[id], nil
}

func (m *mockLicenseRepo) FindByKey(ctx context.Context, licenseKey string) (*model.License, error) {
	return nil, nil
}

func (m *mockLicenseRepo) FindActiveByAgentAndBuyer(ctx context.Context, agentID, buyerID string) (*model.License, error) {
	return nil, nil
}

func (m *mockLicenseRepo) Create(ctx context.Context, params model.CreateLicenseParams) (*model.License, error) {
	return nil, nil
}

func (m *mockLicenseRepo) UpdateStatus(ctx context.Context, id string, status model.LicenseStatus) error {
	return nil
}

func (m *mockLicenseRepo) RecordUsage(ctx context.Context, id string, tokens, costCents, creditsSpent, creatorCredits int64) error {
	return nil
}

func (m *mockLicenseRepo) WithTx(tx *sqlx.Tx) repository.LicenseRepository {
	return m
}

type mockJobRepo struct {
	byID    map[string]*model.Job
	created []model.CreateJobParams

	statusUpdates map[string]model.JobStatus
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{
		byID:          make(map[string]*model.Job),
		statusUpdates: make(map[string]model.JobStatus),
	}
}

func (m *mockJobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	return m.byID[id], nil
}

func (m *mockJobRepo) FindByIDAndUser(ctx context.Context, id, userID string) (*model.Job, error) {
	job := m.byID[id]
	if job == nil || job.UserID != userID {
		return nil, nil
	}
	return job, nil
}

func (m *mockJobRepo) FindByUser(ctx context.Context, userID string) ([]model.Job, error) {
	var jobs []model.Job
	for _, job := range m.byID {
		if job.UserID == userID {
			jobs = append(jobs, *job)
		}
	}
	return jobs, nil
}

func (m *mockJobRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]model.Job, error) {
	return nil, nil
}

func (m *mockJobRepo) Create(ctx context.Context, params model.CreateJobParams) (*model.Job, error) {
	m.created = append(m.created, params)
	return &model.Job{
		ID:            "job-new",
		UserID:        params.UserID,
		AgentID:       params.AgentID,
		LicenseID:     params.LicenseID,
		Config:        params.Config,
		BillingModel:  params.BillingModel,
		Schedule:      params.Schedule,
		Status:        model.JobStatusActive,
		NextRunAt:     &params.NextRunAt,
		OutputMethods: params.OutputMethods,
	}, nil
}

func (m *mockJobRepo) UpdateStatusByUser(ctx context.Context, id, userID string, status model.JobStatus) (*model.Job, error) {
	job := m.byID[id]
	if job == nil || job.UserID != userID ||
		job.Status == model.JobStatusCancelled || job.Status == model.JobStatusCompleted {
		return nil, nil
	}
	m.statusUpdates[id] = status
	updated := *job
	updated.Status = status
	return &updated, nil
}

func (m *mockJobRepo) Pause(ctx context.Context, id string) error {
	m.statusUpdates[id] = model.JobStatusPaused
	return nil
}

func (m *mockJobRepo) Advance(ctx context.Context, id string, nextRunAt time.Time, creditsCharged int64) error {
	return nil
}

func (m *mockJobRepo) Complete(ctx context.Context, id string, creditsCharged int64) error {
	return nil
}

func (m *mockJobRepo) Touch(ctx context.Context, id string) error {
	return nil
}

func (m *mockJobRepo) WithTx(tx *sqlx.Tx) repository.JobRepository {
	return m
}

type mockJobRunRepo struct {
	runs map[string][]model.JobRun
}

func newMockJobRunRepo() *mockJobRunRepo {
	return &mockJobRunRepo{runs: make(map[string][]model.JobRun)}
}

func (m *mockJobRunRepo) CreateRunning(ctx context.Context, jobID string) (*model.JobRun, error) {
	return &model.JobRun{ID: "run-new", JobID: jobID, Status: model.RunStatusRunning}, nil
}

func (m *mockJobRunRepo) MarkCompleted(ctx context.Context, id, result string, creditsCharged int64) error {
	return nil
}

func (m *mockJobRunRepo) MarkFailed(ctx context.Context, id, errMsg string) error {
	return nil
}

func (m *mockJobRunRepo) FindRecentByJobID(ctx context.Context, jobID string, limit int) ([]model.JobRun, error) {
	runs := m.runs[jobID]
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *mockJobRunRepo) FindLatestResult(ctx context.Context, jobID string) (*string, error) {
	for _, run := range m.runs[jobID] {
		if run.Status == model.RunStatusCompleted && run.Result != nil {
			return run.Result, nil
		}
	}
	return nil, nil
}

func (m *mockJobRunRepo) WithTx(tx *sqlx.Tx) repository.JobRunRepository {
	return m
}
