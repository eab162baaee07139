package rest

import (
	"context"
	"net/http"
	"sync"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/contextkeys"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"
	usecases_port "github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port/usecases"

	"github.com/go-chi/chi/v5"
)

// IngestHandler запускает проход в фоне. Проход живет дольше запроса,
// поэтому выполняется на контексте приложения.
type IngestHandler struct {
	baseCtx            context.Context
	ingestCategoriesUC usecases_port.IngestCategoriesPort

	wg sync.WaitGroup
}

func NewIngestHandler(baseCtx context.Context, ingestCategoriesUC usecases_port.IngestCategoriesPort) *IngestHandler {
	return &IngestHandler{
		baseCtx:            baseCtx,
		ingestCategoriesUC: ingestCategoriesUC,
	}
}

func (h *IngestHandler) TriggerIngest(w http.ResponseWriter, r *http.Request) {
	category := domain.Category(chi.URLParam(r, "category"))
	if !category.Valid() {
		WriteJSONError(w, http.StatusBadRequest, "Unknown category")
		return
	}

	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"category": string(category)})
	runCtx := contextkeys.ContextWithLogger(h.baseCtx, logger)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if _, err := h.ingestCategoriesUC.Execute(runCtx, []domain.Category{category}); err != nil {
			logger.Error("Triggered ingestion finished with error", err, nil)
		}
	}()

	logger.Info("Ingestion run accepted", nil)
	RespondWithJSON(w, http.StatusAccepted, IngestAcceptedResponse{
		Category: string(category),
		Status:   "accepted",
	})
}

// Wait дожидается запущенных через API проходов
func (h *IngestHandler) Wait() {
	h.wg.Wait()
}
