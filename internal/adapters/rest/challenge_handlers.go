package rest

import (
	"errors"
	"net/http"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
)

// ChallengeGate отдает ожидающие проверки и принимает их подтверждение
type ChallengeGate interface {
	Pending() []domain.ChallengeDetected
	Acknowledge() error
}

type ChallengeHandler struct {
	gate ChallengeGate
}

func NewChallengeHandler(gate ChallengeGate) *ChallengeHandler {
	return &ChallengeHandler{gate: gate}
}

func (h *ChallengeHandler) Status(w http.ResponseWriter, r *http.Request) {
	pending := h.gate.Pending()

	resp := ChallengeStatusResponse{
		Pending:    len(pending) > 0,
		Challenges: make([]ChallengeInfoResponse, 0, len(pending)),
	}
	for _, c := range pending {
		resp.Challenges = append(resp.Challenges, ChallengeInfoResponse{
			URL:    c.URL,
			Marker: c.Marker,
			Since:  c.DetectedAt,
		})
	}
	RespondWithJSON(w, http.StatusOK, resp)
}

// Acknowledge вызывается, когда оператор прошел проверку в окне браузера
func (h *ChallengeHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	if err := h.gate.Acknowledge(); err != nil {
		if errors.Is(err, domain.ErrNoPendingChallenge) {
			WriteJSONError(w, http.StatusConflict, "No pending challenge")
			return
		}
		logger.Error("Failed to acknowledge challenge", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to acknowledge challenge")
		return
	}

	logger.Info("Challenge acknowledged via API", nil)
	RespondWithJSON(w, http.StatusOK, map[string]bool{"acknowledged": true})
}
