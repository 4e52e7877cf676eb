package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pixkeys/internal/directory/wire"
	"pixkeys/internal/pixkey/models"
	"pixkeys/internal/pixkey/service"
	"pixkeys/internal/platform/metrics"
	"pixkeys/internal/platform/middleware"
	id "pixkeys/pkg/domain"
	dErrors "pixkeys/pkg/domain-errors"
	"pixkeys/pkg/platform/httputil"
	authmw "pixkeys/pkg/platform/middleware/auth"
	"pixkeys/pkg/platform/middleware/metadata"
	"pixkeys/pkg/platform/middleware/requesttime"
	"pixkeys/pkg/requestcontext"
)

const maxCallbackBytes = 64 << 10

// Service defines the key lifecycle operations exposed over HTTP.
type Service interface {
	CreateKey(ctx context.Context, ownerID id.OwnerID, keyType models.KeyType, value string) (*models.Key, error)
	GetKey(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID) (*models.Key, error)
	ListKeys(ctx context.Context, ownerID id.OwnerID) ([]*models.Key, error)
	VerifyCode(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, code string) (*models.Key, error)
	ResendCode(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID) (*models.Key, error)
	StartPortabilityClaim(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, counterparty id.ISPB) (*models.Key, error)
	ApprovePortabilityStart(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID) (*models.Key, error)
	CancelPortabilityStart(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, reason models.Reason) (*models.Key, error)
	CancelPortabilityInProgress(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, reason models.Reason) (*models.Key, error)
	StartOwnershipClaim(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, counterparty id.ISPB) (*models.Key, error)
	ApproveOwnershipStart(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID) (*models.Key, error)
	CancelOwnershipStart(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, reason models.Reason) (*models.Key, error)
	CancelOwnershipInProgress(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, reason models.Reason) (*models.Key, error)
	ConfirmPortabilityRequest(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID) (*models.Key, error)
	DenyPortabilityRequest(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, reason models.Reason) (*models.Key, error)
	ReleaseClaimedKey(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID) (*models.Key, error)
	DeleteKey(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, reason models.Reason) (*models.Key, error)
	OnDirectoryCallback(ctx context.Context, cb models.DirectoryCallback) (*service.CallbackResult, error)
}

// Handler serves the /keys API and the directory callback endpoint.
type Handler struct {
	logger       *slog.Logger
	keys         Service
	metrics      *metrics.Metrics
	jwtValidator authmw.JWTValidator
}

// New creates a new key Handler.
func New(
	keys Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	jwtValidator authmw.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		keys:         keys,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register registers the key routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	common := []func(http.Handler) http.Handler{
		middleware.Recovery(h.logger),
		middleware.RequestID,
		middleware.Logger(h.logger),
		middleware.Timeout(30 * time.Second),
		requesttime.Middleware,
		metadata.ClientMetadata,
		middleware.ContentTypeJSON,
		middleware.LatencyMiddleware(h.metrics),
	}

	keysRouter := chi.NewRouter()
	keysRouter.Use(common...)
	keysRouter.Use(authmw.RequireAuth(h.jwtValidator, h.logger))
	keysRouter.Post("/", h.handleCreateKey)
	keysRouter.Get("/", h.handleListKeys)
	keysRouter.Route("/{keyID}", func(r chi.Router) {
		r.Get("/", h.handleGetKey)
		r.Delete("/", h.handleDeleteKey)
		r.Post("/verify", h.handleVerifyCode)
		r.Post("/resend-code", h.keyAction(h.keys.ResendCode))
		r.Post("/release", h.keyAction(h.keys.ReleaseClaimedKey))

		r.Post("/portability", h.startClaim(h.keys.StartPortabilityClaim))
		r.Post("/portability/approve", h.keyAction(h.keys.ApprovePortabilityStart))
		r.Post("/portability/cancel", h.reasonAction(h.keys.CancelPortabilityStart))
		r.Post("/portability/cancel-in-progress", h.reasonAction(h.keys.CancelPortabilityInProgress))

		r.Post("/ownership", h.startClaim(h.keys.StartOwnershipClaim))
		r.Post("/ownership/approve", h.keyAction(h.keys.ApproveOwnershipStart))
		r.Post("/ownership/cancel", h.reasonAction(h.keys.CancelOwnershipStart))
		r.Post("/ownership/cancel-in-progress", h.reasonAction(h.keys.CancelOwnershipInProgress))

		r.Post("/portability-request/confirm", h.keyAction(h.keys.ConfirmPortabilityRequest))
		r.Post("/portability-request/deny", h.reasonAction(h.keys.DenyPortabilityRequest))
	})
	r.Mount("/keys", keysRouter)

	// The directory authenticates at the transport layer (mTLS at the edge).
	callbackRouter := chi.NewRouter()
	callbackRouter.Use(common...)
	callbackRouter.Post("/", h.handleDirectoryCallback)
	r.Mount("/directory/callbacks", callbackRouter)
}

func (h *Handler) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createKeyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, "create key", err)
		return
	}
	keyType, err := models.ParseKeyType(req.Type)
	if err != nil {
		h.fail(ctx, w, "create key", err)
		return
	}
	key, err := h.keys.CreateKey(ctx, requestcontext.OwnerID(ctx), keyType, req.Value)
	if err != nil {
		h.fail(ctx, w, "create key", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toKeyResponse(key))
}

func (h *Handler) handleListKeys(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	keys, err := h.keys.ListKeys(ctx, requestcontext.OwnerID(ctx))
	if err != nil {
		h.fail(ctx, w, "list keys", err)
		return
	}
	resp := listKeysResponse{Keys: make([]keyResponse, 0, len(keys))}
	for _, k := range keys {
		resp.Keys = append(resp.Keys, toKeyResponse(k))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetKey(w http.ResponseWriter, r *http.Request) {
	h.keyAction(h.keys.GetKey)(w, r)
}

func (h *Handler) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	keyID, err := id.ParseKeyID(chi.URLParam(r, "keyID"))
	if err != nil {
		h.fail(ctx, w, "verify code", err)
		return
	}
	var req verifyCodeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.fail(ctx, w, "verify code", err)
		return
	}
	key, err := h.keys.VerifyCode(ctx, requestcontext.OwnerID(ctx), keyID, req.Code)
	if err != nil {
		h.fail(ctx, w, "verify code", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toKeyResponse(key))
}

// handleDeleteKey takes the reason from the query string since DELETE
// requests carry no body.
func (h *Handler) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	keyID, err := id.ParseKeyID(chi.URLParam(r, "keyID"))
	if err != nil {
		h.fail(ctx, w, "delete key", err)
		return
	}
	reason, err := parseReason(r.URL.Query().Get("reason"))
	if err != nil {
		h.fail(ctx, w, "delete key", err)
		return
	}
	key, err := h.keys.DeleteKey(ctx, requestcontext.OwnerID(ctx), keyID, reason)
	if err != nil {
		h.fail(ctx, w, "delete key", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toKeyResponse(key))
}

func (h *Handler) handleDirectoryCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBytes))
	if err != nil {
		h.fail(ctx, w, "directory callback", dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable body"))
		return
	}
	cb, err := wire.DecodeCallback(body)
	if err != nil {
		h.fail(ctx, w, "directory callback", err)
		return
	}
	result, err := h.keys.OnDirectoryCallback(ctx, cb)
	if err != nil {
		h.fail(ctx, w, "directory callback", err)
		return
	}
	resp := callbackResponse{Outcome: string(result.Outcome), Detail: result.Detail}
	if result.Key != nil {
		k := toKeyResponse(result.Key)
		resp.Key = &k
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type keyFunc func(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID) (*models.Key, error)

// keyAction serves a bodiless command on the key named in the path.
func (h *Handler) keyAction(fn keyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		keyID, err := id.ParseKeyID(chi.URLParam(r, "keyID"))
		if err != nil {
			h.fail(ctx, w, r.URL.Path, err)
			return
		}
		key, err := fn(ctx, requestcontext.OwnerID(ctx), keyID)
		if err != nil {
			h.fail(ctx, w, r.URL.Path, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, toKeyResponse(key))
	}
}

// reasonAction serves a cancel or deny command with an optional reason body.
func (h *Handler) reasonAction(fn func(context.Context, id.OwnerID, id.KeyID, models.Reason) (*models.Key, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reasonRequest
		if r.ContentLength != 0 {
			if err := httputil.DecodeJSON(r, &req); err != nil {
				h.fail(r.Context(), w, r.URL.Path, err)
				return
			}
		}
		reason, err := parseReason(req.Reason)
		if err != nil {
			h.fail(r.Context(), w, r.URL.Path, err)
			return
		}
		h.keyAction(func(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID) (*models.Key, error) {
			return fn(ctx, ownerID, keyID, reason)
		})(w, r)
	}
}

func (h *Handler) startClaim(fn func(context.Context, id.OwnerID, id.KeyID, id.ISPB) (*models.Key, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startClaimRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			h.fail(r.Context(), w, r.URL.Path, err)
			return
		}
		counterparty, err := id.ParseISPB(req.CounterpartyISPB)
		if err != nil {
			h.fail(r.Context(), w, r.URL.Path, err)
			return
		}
		h.keyAction(func(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID) (*models.Key, error) {
			return fn(ctx, ownerID, keyID, counterparty)
		})(w, r)
	}
}

// fail logs err at a level matching its status and writes the error body.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, op string, err error) {
	status := httputil.StatusFor(err)
	if status >= http.StatusInternalServerError && !dErrors.Retryable(err) {
		h.logger.ErrorContext(ctx, "request failed",
			"op", op,
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, "request rejected",
			"op", op,
			"code", dErrors.CodeOf(err),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
