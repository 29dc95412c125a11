package service

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/agenthive/proxy-server-go/internal/database"
	"github.com/agenthive/proxy-server-go/internal/model"
	"github.com/agenthive/proxy-server-go/internal/repository"
)

// mockTxRunner invokes the function directly; the repo mocks ignore the nil
// transaction.
type mockTxRunner struct {
	calls int
}

func (m *mockTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	m.calls++
	return fn(nil)
}

type mockAccountRepo struct {
	accounts map[string]*model.Account

	credits       map[string]int64
	debits        map[string]int64
	debitOK       bool
	debitErr      error
	debitAttempts int
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{
		accounts: make(map[string]*model.Account),
		credits:  make(map[string]int64),
		debits:   make(map[string]int64),
		debitOK:  true,
	}
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return m.accounts[id], nil
}

func (m *mockAccountRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Account, error) {
	return nil, nil
}

func (m *mockAccountRepo) Credit(ctx context.Context, id string, amount int64) error {
	m.credits[id] += amount
	return nil
}

func (m *mockAccountRepo) DebitIfSufficient(ctx context.Context, id string, amount int64) (bool, error) {
	m.debitAttempts++
	if m.debitErr != nil {
		return false, m.debitErr
	}
	if !m.debitOK {
		return false, nil
	}
	m.debits[id] += amount
	return true, nil
}

func (m *mockAccountRepo) WithTx(tx *sqlx.Tx) repository.AccountRepository {
	return m
}

type mockAgentRepo struct {
	agents        map[string]*model.Agent
	earnedCredits map[string]int64
}

func newMockAgentRepo() *mockAgentRepo {
	return &mockAgentRepo{
		agents:        make(map[string]*model.Agent),
		earnedCredits: make(map[string]int64),
	}
}

func (m *mockAgentRepo) FindByID(ctx context.Context, id string) (*model.Agent, error) {
	return m.agents[id], nil
}

func (m *mockAgentRepo) AddEarnedCredits(ctx context.Context, id string, credits int64) error {
	m.earnedCredits[id] += credits
	return nil
}

func (m *mockAgentRepo) WithTx(tx *sqlx.Tx) repository.AgentRepository {
	return m
}

type recordedUsage struct {
	licenseID string
	tokens    int64
	credits   int64
	earned    int64
}

type mockLicenseRepo struct {
	byKey map[string]*model.License

	statusUpdates map[string]model.LicenseStatus
	usageRecorded []recordedUsage
	created       []model.CreateLicenseParams
}

func newMockLicenseRepo() *mockLicenseRepo {
	return &mockLicenseRepo{
		byKey:         make(map[string]*model.License),
		statusUpdates: make(map[string]model.LicenseStatus),
	}
}

func (m *mockLicenseRepo) FindByID(ctx context.Context, id string) (*model.License, error) {
	for _, l := range m.byKey {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, nil
}

func (m *mockLicenseRepo) FindByKey(ctx context.Context, licenseKey string) (*model.License, error) {
	return m.byKey[licenseKey], nil
}

func (m *mockLicenseRepo) FindActiveByAgentAndBuyer(ctx context.Context, agentID, buyerID string) (*model.License, error) {
	return nil, nil
}

func (m *mockLicenseRepo) Create(ctx context.Context, params model.CreateLicenseParams) (*model.License, error) {
	m.created = append(m.created, params)
	return &model.License{
		ID:         "lic-new",
		AgentID:    params.AgentID,
		BuyerID:    params.BuyerID,
		PlanID:     params.PlanID,
		LicenseKey: params.LicenseKey,
		Status:     model.LicenseStatusActive,
		ExpiresAt:  params.ExpiresAt,
	}, nil
}

func (m *mockLicenseRepo) UpdateStatus(ctx context.Context, id string, status model.LicenseStatus) error {
	m.statusUpdates[id] = status
	return nil
}

func (m *mockLicenseRepo) RecordUsage(ctx context.Context, id string, tokens, costCents, creditsSpent, creatorCredits int64) error {
	m.usageRecorded = append(m.usageRecorded, recordedUsage{
		licenseID: id,
		tokens:    tokens,
		credits:   creditsSpent,
		earned:    creatorCredits,
	})
	return nil
}

func (m *mockLicenseRepo) WithTx(tx *sqlx.Tx) repository.LicenseRepository {
	return m
}

type mockPlanRepo struct {
	plans map[string]*model.PricingPlan
}

func newMockPlanRepo() *mockPlanRepo {
	return &mockPlanRepo{plans: make(map[string]*model.PricingPlan)}
}

func (m *mockPlanRepo) FindByID(ctx context.Context, id string) (*model.PricingPlan, error) {
	return m.plans[id], nil
}

func (m *mockPlanRepo) WithTx(tx *sqlx.Tx) repository.PlanRepository {
	return m
}

type mockUsageRepo struct {
	created []model.CreateUsageRecordParams
}

func (m *mockUsageRepo) Create(ctx context.Context, params model.CreateUsageRecordParams) (*model.UsageRecord, error) {
	m.created = append(m.created, params)
	return &model.UsageRecord{
		ID:             "usage-1",
		LicenseID:      params.LicenseID,
		AgentID:        params.AgentID,
		BuyerID:        params.BuyerID,
		Model:          params.Model,
		InputTokens:    params.InputTokens,
		OutputTokens:   params.OutputTokens,
		TotalTokens:    params.InputTokens + params.OutputTokens,
		Success:        params.Success,
		ErrorMessage:   params.ErrorMessage,
		CreditsCharged: params.CreditsCharged,
	}, nil
}

func (m *mockUsageRepo) FindByLicenseID(ctx context.Context, licenseID string, limit, offset int) ([]model.UsageRecord, error) {
	return nil, nil
}

func (m *mockUsageRepo) WithTx(tx *sqlx.Tx) repository.UsageRepository {
	return m
}

type mockEarningsRepo struct {
	created []model.CreateEarningsRecordParams
}

func (m *mockEarningsRepo) Create(ctx context.Context, params model.CreateEarningsRecordParams) (*model.EarningsRecord, error) {
	m.created = append(m.created, params)
	return &model.EarningsRecord{ID: "earnings-1"}, nil
}

func (m *mockEarningsRepo) FindByOwnerID(ctx context.Context, ownerID string, limit, offset int) ([]model.EarningsRecord, error) {
	return nil, nil
}

func (m *mockEarningsRepo) WithTx(tx *sqlx.Tx) repository.EarningsRepository {
	return m
}
