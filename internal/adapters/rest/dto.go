package rest

import (
	"time"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
)

// поля формы фильтров
type filterRequest struct {
	Rooms  string `validate:"omitempty,oneof=0 1 2 3 4 5"`
	Area   string `validate:"omitempty,max=16"`
	Type   string `validate:"omitempty,oneof=any новостройка вторичка"`
	UserID string `validate:"omitempty,numeric"`
}

type ListingResponse struct {
	Address      string `json:"address"`
	Price        string `json:"price"`
	Rooms        string `json:"rooms"`
	Area         string `json:"area"`
	Link         string `json:"link,omitempty"`
	PropertyType string `json:"property_type,omitempty"`
}

type ListingsResponse struct {
	HasResults bool              `json:"has_results"`
	Count      int               `json:"count"`
	Listings   []ListingResponse `json:"listings"`
	Message    string            `json:"message,omitempty"`
}

type IndexResponse struct {
	UserID  string `json:"user_id,omitempty"`
	RentURL string `json:"rent_url"`
	BuyURL  string `json:"buy_url"`
}

type IngestAcceptedResponse struct {
	Category string `json:"category"`
	Status   string `json:"status"`
}

type ChallengeInfoResponse struct {
	URL    string    `json:"url"`
	Marker string    `json:"marker"`
	Since  time.Time `json:"since"`
}

type ChallengeStatusResponse struct {
	Pending    bool                    `json:"pending"`
	Challenges []ChallengeInfoResponse `json:"challenges"`
}

func toListingResponses(records []domain.ListingRecord) []ListingResponse {
	out := make([]ListingResponse, 0, len(records))
	for _, r := range records {
		out = append(out, ListingResponse{
			Address:      r.Address,
			Price:        r.Price,
			Rooms:        r.Rooms,
			Area:         r.Area,
			Link:         r.Link,
			PropertyType: string(r.PropertyType),
		})
	}
	return out
}
