package handler

import (
	"strings"
	"time"

	"pixkeys/internal/pixkey/models"
	dErrors "pixkeys/pkg/domain-errors"
)

type createKeyRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type verifyCodeRequest struct {
	Code string `json:"code"`
}

type startClaimRequest struct {
	CounterpartyISPB string `json:"counterparty_ispb"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// parseReason defaults to USER_REQUESTED when the caller gives none.
func parseReason(raw string) (models.Reason, error) {
	if strings.TrimSpace(raw) == "" {
		return models.ReasonUserRequested, nil
	}
	reason := models.Reason(strings.ToUpper(strings.TrimSpace(raw)))
	if !reason.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown reason %q", raw)
	}
	return reason, nil
}

type claimResponse struct {
	ID           string    `json:"id,omitempty"`
	Kind         string    `json:"kind"`
	Role         string    `json:"role"`
	Reason       string    `json:"reason,omitempty"`
	Counterparty string    `json:"counterparty_ispb,omitempty"`
	OpenedAt     time.Time `json:"opened_at,omitzero"`
	DeadlineAt   time.Time `json:"deadline_at,omitzero"`
}

type keyResponse struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Value          string         `json:"value"`
	State          string         `json:"state"`
	Claim          *claimResponse `json:"claim,omitempty"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	StateChangedAt time.Time      `json:"state_changed_at"`
	Version        int64          `json:"version"`
}

type listKeysResponse struct {
	Keys []keyResponse `json:"keys"`
}

type callbackResponse struct {
	Outcome string       `json:"outcome"`
	Detail  string       `json:"detail,omitempty"`
	Key     *keyResponse `json:"key,omitempty"`
}

func toKeyResponse(k *models.Key) keyResponse {
	resp := keyResponse{
		ID:             k.ID.String(),
		Type:           string(k.Type),
		Value:          k.Value,
		State:          string(k.State),
		ExpiresAt:      k.ExpiresAt,
		CreatedAt:      k.CreatedAt,
		StateChangedAt: k.StateChangedAt,
		Version:        k.Version,
	}
	if c := k.ActiveClaim; c != nil {
		resp.Claim = &claimResponse{
			ID:           c.ID,
			Kind:         string(c.Kind),
			Role:         string(c.Role),
			Reason:       string(c.Reason),
			Counterparty: c.Counterparty.String(),
			OpenedAt:     c.OpenedAt,
			DeadlineAt:   c.DeadlineAt,
		}
	}
	return resp
}
