package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kjannette/satsval-backend/internal/models"
	"github.com/kjannette/satsval-backend/internal/valuation"
	"github.com/kjannette/satsval-backend/internal/xpub"
)

type transactionsResponse struct {
	PubKey       string             `json:"pubkey"`
	Transactions []models.Valuation `json:"transactions"`
	Summary      models.Summary     `json:"summary"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	pubkey := strings.TrimSpace(r.URL.Query().Get("pubkey"))
	key := s.deps.Normalizer.Normalize(pubkey)

	vals, err := s.deps.Valuer.Run(r.Context(), key)
	if err != nil {
		writeValuationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transactionsResponse{
		PubKey:       key,
		Transactions: vals,
		Summary:      valuation.Summarize(vals),
	})
}

func writeValuationError(w http.ResponseWriter, err error) {
	var verr *valuation.Error
	if !errors.As(err, &verr) {
		writeJSON(w, http.StatusInternalServerError, errorJSON{
			Error: "internal server error",
			Kind:  string(valuation.KindInternal),
		})
		return
	}
	writeJSON(w, verr.HTTPStatus(), errorJSON{
		Error:   verr.Msg,
		Kind:    string(verr.Kind),
		Details: verr.Detail,
	})
}

type keyJSON struct {
	Input             string `json:"input"`
	Normalized        string `json:"normalized"`
	Variant           string `json:"variant"`
	Depth             uint8  `json:"depth"`
	ParentFingerprint string `json:"parentFingerprint"`
	ChildNumber       uint32 `json:"childNumber"`
	Hardened          bool   `json:"hardened"`
}

func (s *Server) handleInspectKey(w http.ResponseWriter, r *http.Request) {
	pubkey := strings.TrimSpace(r.URL.Query().Get("pubkey"))
	if pubkey == "" {
		writeJSON(w, http.StatusBadRequest, errorJSON{
			Error: "missing pubkey parameter",
			Kind:  string(valuation.KindMissingInput),
		})
		return
	}

	key, err := xpub.Decode(pubkey)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorJSON{
			Error: "invalid extended public key",
			Kind:  string(valuation.KindInvalidInput),
		})
		return
	}

	writeJSON(w, http.StatusOK, keyJSON{
		Input:             pubkey,
		Normalized:        s.deps.Normalizer.Normalize(pubkey),
		Variant:           key.Variant(),
		Depth:             key.Depth(),
		ParentFingerprint: fmt.Sprintf("%08x", key.ParentFingerprint()),
		ChildNumber:       key.ChildNumber(),
		Hardened:          key.Hardened(),
	})
}
