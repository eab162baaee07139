package rest

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/normalizer"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port"
	usecases_port "github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/port/usecases"

	"github.com/go-playground/validator/v10"
)

const noResultsMessage = "По вашим фильтрам ничего не найдено. Попробуйте изменить параметры поиска."

type ListingsHandler struct {
	findListingsUC usecases_port.FindListingsPort
	validate       *validator.Validate
	tokens         port.ChatLinkTokenPort // без него user_id принимается без подписи
}

func NewListingsHandler(findListingsUC usecases_port.FindListingsPort) *ListingsHandler {
	return &ListingsHandler{
		findListingsUC: findListingsUC,
		validate:       validator.New(),
	}
}

// WithLinkTokens требует подписанный token для запросов с user_id
func (h *ListingsHandler) WithLinkTokens(tokens port.ChatLinkTokenPort) *ListingsHandler {
	h.tokens = tokens
	return h
}

// Index отдает ссылки на формы фильтров для пользователя из чата
func (h *ListingsHandler) Index(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	token := r.URL.Query().Get("token")

	withUser := func(path string) string {
		if userID == "" {
			return path
		}
		query := url.Values{"user_id": {userID}}
		if token != "" {
			query.Set("token", token)
		}
		return path + "?" + query.Encode()
	}

	RespondWithJSON(w, http.StatusOK, IndexResponse{
		UserID:  userID,
		RentURL: withUser("/api/v1/rent"),
		BuyURL:  withUser("/api/v1/buy"),
	})
}

func (h *ListingsHandler) Rent(w http.ResponseWriter, r *http.Request) {
	h.find(w, r, domain.CategoryRental)
}

func (h *ListingsHandler) Buy(w http.ResponseWriter, r *http.Request) {
	h.find(w, r, domain.CategorySale)
}

func (h *ListingsHandler) find(w http.ResponseWriter, r *http.Request, category domain.Category) {
	// 1. Собираем поля формы (query и тело POST)
	if err := r.ParseForm(); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	req := filterRequest{
		Rooms:  strings.TrimSpace(r.Form.Get("rooms")),
		Area:   strings.TrimSpace(r.Form.Get("area")),
		Type:   strings.TrimSpace(r.Form.Get("type")),
		UserID: strings.TrimSpace(r.Form.Get("user_id")),
	}
	if err := h.validate.Struct(req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "Invalid filter parameters")
		return
	}
	if h.tokens != nil && req.UserID != "" {
		chatID, err := h.tokens.Verify(r.Context(), r.Form.Get("token"))
		if err != nil || chatID != req.UserID {
			WriteJSONError(w, http.StatusForbidden, "Invalid or expired filters link")
			return
		}
	}

	// 2. Переводим в доменный фильтр
	filter := domain.ListingFilter{Category: category}
	if req.Rooms != "" {
		rooms, _ := domain.RoomsFilterFromCode(req.Rooms)
		filter.Rooms = rooms
	}
	if req.Area != "" {
		area, err := normalizer.ParseAreaInput(req.Area)
		if err != nil {
			WriteJSONError(w, http.StatusBadRequest, "Area must be a number")
			return
		}
		filter.AreaMin = &area
	}
	if category == domain.CategorySale {
		filter.PropertyType = req.Type
	}

	// 3. Вызываем Use Case
	records, err := h.findListingsUC.Execute(r.Context(), filter, req.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownCategory) {
			WriteJSONError(w, http.StatusBadRequest, "Unknown category")
			return
		}
		WriteJSONError(w, http.StatusInternalServerError, "Failed to find listings")
		return
	}

	resp := ListingsResponse{
		HasResults: len(records) > 0,
		Count:      len(records),
		Listings:   toListingResponses(records),
	}
	if !resp.HasResults {
		resp.Message = noResultsMessage
	}
	RespondWithJSON(w, http.StatusOK, resp)
}
