package rabbitmq_adapter

import (
	"fmt"
	"time"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
)

// ListingSavedDTO соответствует схеме events/listing-saved/v1.json
type ListingSavedDTO struct {
	Category     string    `json:"category"`
	Address      string    `json:"address"`
	Price        string    `json:"price"`
	Rooms        string    `json:"rooms"`
	Area         string    `json:"area"`
	Link         string    `json:"link,omitempty"`
	PropertyType string    `json:"property_type,omitempty"`
	RunID        string    `json:"run_id"`
	SavedAt      time.Time `json:"saved_at"`
}

func toListingSavedDTO(event domain.SavedListingEvent) ListingSavedDTO {
	r := event.Record
	return ListingSavedDTO{
		Category:     string(r.Category),
		Address:      r.Address,
		Price:        r.Price,
		Rooms:        r.Rooms,
		Area:         r.Area,
		Link:         r.Link,
		PropertyType: string(r.PropertyType),
		RunID:        event.RunID,
		SavedAt:      event.SavedAt.UTC(),
	}
}

// IngestTaskDTO соответствует схеме events/ingest-task/v1.json
type IngestTaskDTO struct {
	TaskID     string   `json:"task_id,omitempty"`
	Categories []string `json:"categories"`
}

func (d IngestTaskDTO) toDomain() ([]domain.Category, error) {
	categories := make([]domain.Category, 0, len(d.Categories))
	for _, c := range d.Categories {
		category := domain.Category(c)
		if !category.Valid() {
			return nil, fmt.Errorf("unknown category %q", c)
		}
		categories = append(categories, category)
	}
	return categories, nil
}
