package activationhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/byblosmedia/bybx-activation/api"
	"github.com/byblosmedia/bybx-activation/interfaces"
	"github.com/byblosmedia/bybx-activation/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler processes HTTP requests for the content activation service. It
// enforces the one-device-per-purchase rule:
//   - bond records a first-time (order, product, device) binding and issues
//     the content key; a repeat bond from the same device is treated as
//     idempotent success, while a different device is rejected.
//   - verify re-confirms an existing binding and re-issues the same key;
//     unknown pairs and fingerprint mismatches are rejected.
//
// Keys are derived deterministically per (order, product), so a verified
// device always receives the key the content was originally sealed under.
type Handler struct {
	ledger  interfaces.BindingLedger
	deriver interfaces.KeyDeriver
	log     *slog.Logger
}

// NewHandler creates a new HTTP request handler with the specified dependencies.
func NewHandler(ledger interfaces.BindingLedger, deriver interfaces.KeyDeriver, log *slog.Logger) *Handler {
	return &Handler{
		ledger:  ledger,
		deriver: deriver,
		log:     log,
	}
}

// RegisterRoutes mounts the activation endpoints on the given router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post(api.BondPath, h.HandleBond)
	r.Post(api.VerifyPath, h.HandleVerify)
}

// HandleBond processes a first-time device binding.
//
// URL format: POST /activation/bond
// Request body: JSON ActivationRequest.
// Response: JSON ActivationResponse with the hex content key.
//
// A pair already bound to a different fingerprint is rejected with 409; the
// client must not be able to move content between devices through repeat
// bonds. A repeat bond from the bound device succeeds, because the client
// never rewrites the envelope after binding and will present an unbound
// header again on the next open.
func (h *Handler) HandleBond(w http.ResponseWriter, r *http.Request) {
	metrics.BondRequests.Inc()

	req, err := decodeActivationRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	existing, err := h.ledger.Lookup(r.Context(), req.OrderNumber, req.ProductID)
	switch {
	case err == nil:
		if existing.Fingerprint.String() != req.Fingerprint {
			h.log.Info("bond rejected: pair bound to a different device",
				slog.String("orderNumber", req.OrderNumber),
				slog.Int("productId", int(req.ProductID)))
			http.Error(w, "order/product pair is already bound to a different device", http.StatusConflict)
			return
		}
		// Same device bonding again: idempotent success.
	case errors.Is(err, interfaces.ErrBindingNotFound):
		binding := interfaces.Binding{
			ID:          uuid.NewString(),
			OrderNumber: req.OrderNumber,
			ProductID:   req.ProductID,
			Fingerprint: interfaces.Fingerprint(req.Fingerprint),
			BoundAt:     time.Now().UTC(),
		}
		if err := h.ledger.Record(r.Context(), binding); err != nil {
			// A concurrent bond won the Lookup/Record race. Resolve against
			// the binding that made it in: same device is still an
			// idempotent success, a different device is a denial, never a
			// server error.
			if errors.Is(err, interfaces.ErrAlreadyBound) {
				h.resolveBondRace(w, r, req)
				return
			}
			h.log.Error("could not record binding", "err", err)
			http.Error(w, fmt.Errorf("could not record binding: %w", err).Error(), http.StatusInternalServerError)
			return
		}
		h.log.Info("recorded new binding",
			slog.String("bindingId", binding.ID),
			slog.String("orderNumber", req.OrderNumber),
			slog.Int("productId", int(req.ProductID)))
	default:
		h.log.Error("ledger lookup failed", "err", err)
		http.Error(w, fmt.Errorf("could not look up binding: %w", err).Error(), http.StatusInternalServerError)
		return
	}

	h.respondWithKey(w, req)
}

// HandleVerify processes a re-activation of an already bound envelope.
//
// URL format: POST /activation/verify
// Request body: JSON ActivationRequest.
// Response: JSON ActivationResponse with the same key bond issued.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	metrics.VerifyRequests.Inc()

	req, err := decodeActivationRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	existing, err := h.ledger.Lookup(r.Context(), req.OrderNumber, req.ProductID)
	if errors.Is(err, interfaces.ErrBindingNotFound) {
		http.Error(w, "order/product pair has never been activated", http.StatusNotFound)
		return
	} else if err != nil {
		h.log.Error("ledger lookup failed", "err", err)
		http.Error(w, fmt.Errorf("could not look up binding: %w", err).Error(), http.StatusInternalServerError)
		return
	}

	if existing.Fingerprint.String() != req.Fingerprint {
		h.log.Info("verify rejected: fingerprint mismatch",
			slog.String("orderNumber", req.OrderNumber),
			slog.Int("productId", int(req.ProductID)))
		http.Error(w, "device fingerprint does not match the bound device", http.StatusForbidden)
		return
	}

	h.respondWithKey(w, req)
}

// resolveBondRace re-reads the ledger after Record lost to a concurrent bond
// and answers as if the winning binding had been visible to the Lookup.
func (h *Handler) resolveBondRace(w http.ResponseWriter, r *http.Request, req *api.ActivationRequest) {
	existing, err := h.ledger.Lookup(r.Context(), req.OrderNumber, req.ProductID)
	if err != nil {
		h.log.Error("ledger lookup failed after bond race", "err", err)
		http.Error(w, fmt.Errorf("could not look up binding: %w", err).Error(), http.StatusInternalServerError)
		return
	}
	if existing.Fingerprint.String() != req.Fingerprint {
		h.log.Info("bond rejected: pair bound to a different device",
			slog.String("orderNumber", req.OrderNumber),
			slog.Int("productId", int(req.ProductID)))
		http.Error(w, "order/product pair is already bound to a different device", http.StatusConflict)
		return
	}
	h.respondWithKey(w, req)
}

func (h *Handler) respondWithKey(w http.ResponseWriter, req *api.ActivationRequest) {
	key, err := h.deriver.ContentKey(req.OrderNumber, req.ProductID)
	if err != nil {
		h.log.Error("key derivation failed", "err", err)
		http.Error(w, "could not derive content key", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(api.ActivationResponse{DecryptionKey: key}); err != nil {
		h.log.Error("failed to encode response", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func decodeActivationRequest(r *http.Request) (*api.ActivationRequest, error) {
	var req api.ActivationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("could not parse activation request: %w", err)
	}
	if req.OrderNumber == "" {
		return nil, fmt.Errorf("missing order number")
	}
	if req.Fingerprint == "" {
		return nil, fmt.Errorf("missing device fingerprint")
	}
	return &req, nil
}
