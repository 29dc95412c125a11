package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/agenthive/proxy-server-go/internal/errors"
	"github.com/agenthive/proxy-server-go/internal/httputil"
	"github.com/agenthive/proxy-server-go/internal/middleware"
	"github.com/agenthive/proxy-server-go/internal/model"
	"github.com/agenthive/proxy-server-go/internal/repository"
	"github.com/agenthive/proxy-server-go/internal/service"
	"github.com/agenthive/proxy-server-go/internal/upstream"
	"github.com/agenthive/proxy-server-go/internal/util"
)

// Headers relayed to the upstream besides the credential.
var passThroughHeaders = []string{"anthropic-version", "anthropic-beta", "content-type"}

// licenseValidator resolves a license key to its entitlement bundle.
// Satisfied by *service.LicenseService.
type licenseValidator interface {
	Validate(ctx context.Context, licenseKey string) (*service.ValidatedLicense, error)
}

// settler settles credits for one proxied call.
// Satisfied by *service.SettlementService.
type settler interface {
	Settle(ctx context.Context, p service.SettleParams) (*model.UsageRecord, error)
}

// ProxyHandler is the metered proxy: it authenticates the caller by license
// key, forwards the request body verbatim to the upstream provider, meters
// token usage from the response, and settles credits. The upstream response
// is relayed unmodified so provider SDK clients work against the proxy
// without changes.
type ProxyHandler struct {
	licenseService licenseValidator
	settlement     settler
	accountRepo    repository.AccountRepository
	upstream       *upstream.Client
	encryptionKey  string
}

func NewProxyHandler(
	licenseService licenseValidator,
	settlement settler,
	accountRepo repository.AccountRepository,
	upstreamClient *upstream.Client,
	encryptionKey string,
) *ProxyHandler {
	return &ProxyHandler{
		licenseService: licenseService,
		settlement:     settlement,
		accountRepo:    accountRepo,
		upstream:       upstreamClient,
		encryptionKey:  encryptionKey,
	}
}

// Messages handles POST /proxy/v1/messages.
func (h *ProxyHandler) Messages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// 1. Credential format check. Malformed and absent keys are
	// indistinguishable from the caller's side.
	licenseKey := middleware.ExtractLicenseKey(r)
	if licenseKey == "" || !strings.HasPrefix(licenseKey, util.LicenseKeyPrefix) {
		httputil.WriteProxyError(w, apperrors.MissingKey())
		return
	}

	// 2. Entitlement validation.
	validated, err := h.licenseService.Validate(ctx, licenseKey)
	if err != nil {
		httputil.WriteProxyError(w, err)
		return
	}

	license := validated.License
	agent := validated.Agent
	plan := validated.Plan
	mode := service.ModeForPlan(plan)

	// 3. Pre-flight balance check against the flat per-message price. No
	// usage record is written for rejections here: nothing reached the
	// upstream yet.
	if mode == service.BillingPerMessage {
		buyer, err := h.accountRepo.FindByID(ctx, license.BuyerID)
		if err != nil {
			log.Error().Err(err).Msg("proxy: buyer lookup failed")
			httputil.WriteProxyError(w, apperrors.Database(err))
			return
		}
		if buyer == nil {
			httputil.WriteProxyError(w, apperrors.Forbidden("Buyer account not found"))
			return
		}
		if need := *plan.CreditsPerMessage; buyer.CreditBalance < need {
			httputil.WriteProxyError(w, apperrors.InsufficientCredits(need, buyer.CreditBalance))
			return
		}
	}

	// 4. Resolve and decrypt the creator's upstream credential.
	if agent.EncryptedAPIKey == nil || *agent.EncryptedAPIKey == "" {
		httputil.WriteProxyError(w, apperrors.NoAPIKey())
		return
	}
	realAPIKey, err := util.Decrypt(h.encryptionKey, *agent.EncryptedAPIKey)
	if err != nil {
		log.Error().Err(err).Str("agentId", agent.ID).Msg("proxy: api key decrypt failed")
		httputil.WriteProxyError(w, apperrors.KeyDecryptFailed())
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteProxyError(w, apperrors.ValidationError("Failed to read request body"))
		return
	}

	headers := make(http.Header)
	for _, name := range passThroughHeaders {
		if v := r.Header.Get(name); v != "" {
			headers.Set(name, v)
		}
	}

	// 5. Forward verbatim. Transport failures still produce a zero-token
	// failed usage record for the billing audit trail.
	start := time.Now()
	result, err := h.upstream.Forward(ctx, realAPIKey, body, headers)
	if err != nil {
		responseTimeMS := time.Since(start).Milliseconds()
		var proxyErr *apperrors.AppError
		var errMsg string
		if errors.Is(err, upstream.ErrTimeout) {
			proxyErr = apperrors.UpstreamTimeout()
			errMsg = "Upstream timeout"
		} else {
			proxyErr = apperrors.UpstreamUnreachable()
			errMsg = err.Error()
		}
		h.settleCall(r, service.SettleParams{
			License:        license,
			Agent:          agent,
			Plan:           plan,
			Mode:           mode,
			Model:          "unknown",
			ResponseTimeMS: responseTimeMS,
			Success:        false,
			ErrorMessage:   &errMsg,
		})
		httputil.WriteProxyError(w, proxyErr)
		return
	}
	responseTimeMS := time.Since(start).Milliseconds()

	// 6. Meter usage from the response. Parse failures are tolerated: the
	// call is still relayed, with zero tokens recorded.
	modelUsed := "unknown"
	var inputTokens, outputTokens int64
	success := result.StatusCode == http.StatusOK
	var errorMessage *string

	if success {
		var resp upstream.MessageResponse
		if err := json.Unmarshal(result.Body, &resp); err != nil {
			log.Warn().Err(err).Msg("proxy: failed to parse upstream usage, recording zero tokens")
		} else {
			inputTokens = resp.Usage.InputTokens
			outputTokens = resp.Usage.OutputTokens
			if resp.Model != "" {
				modelUsed = resp.Model
			}
		}
	} else {
		msg := upstreamErrorMessage(result)
		errorMessage = &msg
	}

	// 7. Settle credits and persist the audit trail in one transaction.
	h.settleCall(r, service.SettleParams{
		License:        license,
		Agent:          agent,
		Plan:           plan,
		Mode:           mode,
		Model:          modelUsed,
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		ResponseTimeMS: responseTimeMS,
		Success:        success,
		ErrorMessage:   errorMessage,
	})

	// 8. Relay the upstream response byte-for-byte.
	w.Header().Set("Content-Type", result.ContentType)
	w.WriteHeader(result.StatusCode)
	w.Write(result.Body)
}

// settleCall settles without failing the relay: the upstream work already
// happened, so a settlement error is an operator problem, not a caller one.
func (h *ProxyHandler) settleCall(r *http.Request, params service.SettleParams) {
	if _, err := h.settlement.Settle(r.Context(), params); err != nil {
		log.Error().Err(err).
			Str("licenseId", params.License.ID).
			Bool("success", params.Success).
			Msg("proxy: settlement failed")
	}
}

func upstreamErrorMessage(result *upstream.ForwardResult) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(result.Body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return "HTTP " + http.StatusText(result.StatusCode)
}
