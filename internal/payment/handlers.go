package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/paystack-checkout/internal/common"
	"github.com/noah-isme/paystack-checkout/internal/config"
	"github.com/noah-isme/paystack-checkout/internal/obs"
)

const (
	msgRequiredFields  = "Email, amount, and reference are required"
	msgReferenceNeeded = "Reference is required"
	msgInitializeError = "An error occurred while initializing the payment"
	msgVerifyError     = "An error occurred while verifying the payment"
	msgConfigError     = "Server configuration error: PAYSTACK_SECRET_KEY is not set"
	successPagePath    = "/success.html"
)

// Handler serves the initiation and verification proxies.
type Handler struct {
	cfg      *config.Config
	provider Provider
	logger   zerolog.Logger
	validate *validator.Validate
}

// NewHandler wires a Handler. cfg is read-only for the handler's lifetime.
func NewHandler(cfg *config.Config, provider Provider, logger zerolog.Logger) *Handler {
	allowed := make(map[string]struct{}, len(cfg.Currencies))
	for _, c := range cfg.Currencies {
		allowed[strings.ToUpper(c)] = struct{}{}
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		_, ok := allowed[fl.Field().String()]
		return ok
	})
	return &Handler{cfg: cfg, provider: provider, logger: logger, validate: v}
}

// initializeBody mirrors OrderRequest with a lenient amount so that a missing
// amount and a malformed one can be told apart.
type initializeBody struct {
	Email       string         `json:"email"`
	Amount      json.Number    `json:"amount"`
	Currency    string         `json:"currency"`
	Reference   string         `json:"reference"`
	Metadata    map[string]any `json:"metadata"`
	CallbackURL string         `json:"callback_url"`
}

// Initialize handles POST /api/initialize-payment.
func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		common.MethodNotAllowed(w, r)
		return
	}
	logger := h.log(r.Context())
	if !h.cfg.PaystackConfigured() {
		logger.Error().Msg("paystack_secret_missing")
		obs.CountInitialize("config_error")
		common.Fail(w, http.StatusInternalServerError, msgConfigError)
		return
	}

	var body initializeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		obs.CountInitialize("invalid")
		common.Fail(w, http.StatusBadRequest, invalidBodyMessage(err))
		return
	}
	req, err := h.buildOrder(r, body)
	if err != nil {
		obs.CountInitialize("invalid")
		common.FailError(w, err, msgRequiredFields)
		return
	}

	res, err := h.provider.Initialize(r.Context(), req)
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			logger.Warn().Str("reference", req.Reference).Str("provider_message", perr.Message).Msg("payment_initialize_rejected")
			obs.CountInitialize("rejected")
			common.Fail(w, http.StatusBadRequest, perr.Message)
			return
		}
		logger.Error().Err(err).Str("reference", req.Reference).Msg("payment_initialize_failed")
		obs.CountInitialize("error")
		common.Fail(w, http.StatusInternalServerError, msgInitializeError)
		return
	}

	logger.Info().Str("reference", res.Reference).Msg("payment_initialized")
	obs.CountInitialize("ok")
	message := res.Message
	if message == "" {
		message = "Authorization URL created"
	}
	common.OK(w, message, res)
}

func (h *Handler) buildOrder(r *http.Request, body initializeBody) (OrderRequest, error) {
	email := strings.TrimSpace(body.Email)
	reference := strings.TrimSpace(body.Reference)
	amountText := strings.TrimSpace(body.Amount.String())
	if email == "" || reference == "" || amountText == "" || amountText == "0" {
		return OrderRequest{}, common.NewAppError(common.KindValidation, msgRequiredFields, nil)
	}
	amount, err := body.Amount.Int64()
	if err != nil || amount <= 0 {
		return OrderRequest{}, common.NewAppError(common.KindValidation, "Amount must be a positive integer in the smallest currency unit", err)
	}

	currency := strings.ToUpper(strings.TrimSpace(body.Currency))
	if currency == "" {
		currency = h.cfg.DefaultCurrency
	}
	metadata := body.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	req := OrderRequest{
		Email:       email,
		Amount:      amount,
		Currency:    currency,
		Reference:   reference,
		Metadata:    metadata,
		CallbackURL: h.callbackURL(r, strings.TrimSpace(body.CallbackURL)),
	}
	if err := h.validate.Struct(req); err != nil {
		return OrderRequest{}, common.NewAppError(common.KindValidation, validationMessage(err, req), err)
	}
	return req, nil
}

// callbackURL picks the first of: the request value, the configured URL, and
// (only when enabled) the caller's origin plus the success page. An empty
// result leaves the provider dashboard default in effect.
func (h *Handler) callbackURL(r *http.Request, requested string) string {
	if requested != "" {
		return requested
	}
	if h.cfg.CallbackURL != "" {
		return h.cfg.CallbackURL
	}
	if h.cfg.CallbackFromOrigin {
		if origin := common.RequestOrigin(r); origin != "" {
			return origin + successPagePath
		}
	}
	return ""
}

// Verify handles GET /api/verify-payment?reference=.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		common.MethodNotAllowed(w, r)
		return
	}
	h.verify(w, r, r.URL.Query().Get("reference"))
}

// VerifyByPath handles GET /api/verify-payment/{reference}.
func (h *Handler) VerifyByPath(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		common.MethodNotAllowed(w, r)
		return
	}
	reference := chi.URLParam(r, "reference")
	// chi matches on RawPath when the path needed escaping; only then is the
	// parameter still encoded.
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(reference); err == nil {
			reference = unescaped
		}
	}
	h.verify(w, r, reference)
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request, reference string) {
	logger := h.log(r.Context())
	if !h.cfg.PaystackConfigured() {
		logger.Error().Msg("paystack_secret_missing")
		obs.CountVerify("config_error", "")
		common.Fail(w, http.StatusInternalServerError, msgConfigError)
		return
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		obs.CountVerify("invalid", "")
		common.Fail(w, http.StatusBadRequest, msgReferenceNeeded)
		return
	}

	res, err := h.provider.Verify(r.Context(), reference)
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			logger.Info().Str("reference", reference).Str("provider_message", perr.Message).Msg("payment_verify_rejected")
			obs.CountVerify("rejected", "")
			common.FailMessage(w, http.StatusBadRequest, perr.Message)
			return
		}
		logger.Error().Err(err).Str("reference", reference).Msg("payment_verify_failed")
		obs.CountVerify("error", "")
		common.Fail(w, http.StatusInternalServerError, msgVerifyError)
		return
	}

	status := res.Transaction.Status
	statusLabel := string(status)
	if !status.Known() {
		statusLabel = "other"
	}
	logger.Info().Str("reference", reference).Str("tx_status", string(status)).Msg("payment_verified")
	obs.CountVerify("ok", statusLabel)
	message := res.Message
	if message == "" {
		message = "Verification successful"
	}
	common.OK(w, message, res.Raw)
}

func (h *Handler) log(ctx context.Context) *zerolog.Logger {
	return loggerFrom(ctx, &h.logger)
}

// loggerFrom prefers the request-scoped logger set by obs.RequestLogger.
func loggerFrom(ctx context.Context, fallback *zerolog.Logger) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return fallback
}

func invalidBodyMessage(err error) string {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return "Request body too large"
	}
	return "Invalid JSON body"
}

func validationMessage(err error, req OrderRequest) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid payment request"
	}
	switch verrs[0].Field() {
	case "Email":
		return "Email must be a valid email address"
	case "Currency":
		return fmt.Sprintf("Currency %s is not supported", req.Currency)
	case "CallbackURL":
		return "callback_url must be an absolute http(s) URL"
	case "Reference":
		return "Reference must be at most 100 characters"
	default:
		return "Invalid payment request"
	}
}
