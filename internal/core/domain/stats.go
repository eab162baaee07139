package domain

import "time"

// IngestionStats содержит итог одного прохода загрузки по категории
type IngestionStats struct {
	RunID    string
	Category Category

	PagesRequested int
	PagesFetched   int
	PagesFailed    int

	FragmentsSeen      int // сколько карточек нашлось на страницах
	FragmentsProcessed int // сколько было обработано с учетом лимита

	Extracted int
	Rejected  int

	Inserted        int
	Duplicates      int
	PersistFailures int

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration возвращает длительность прохода
func (s *IngestionStats) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
