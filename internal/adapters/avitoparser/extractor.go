package avitoparser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"
	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/normalizer"

	"github.com/PuerkitoBio/goquery"
)

// AvitoExtractorAdapter разбирает индексную страницу Avito с помощью goquery
type AvitoExtractorAdapter struct {
	origin *url.URL
}

// NewAvitoExtractorAdapter создает экстрактор. origin используется для абсолютных ссылок.
func NewAvitoExtractorAdapter(origin string) (*AvitoExtractorAdapter, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("avito extractor: invalid origin %q: %w", origin, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("avito extractor: origin %q must be absolute", origin)
	}
	return &AvitoExtractorAdapter{origin: u}, nil
}

// SplitFragments возвращает карточки в порядке документа. Используется первый селектор
// карточек, который что-то нашел.
func (a *AvitoExtractorAdapter) SplitFragments(markup string) ([]domain.Fragment, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("avito extractor: failed to parse markup: %w", err)
	}

	for _, selector := range fragmentSelectors {
		cards := doc.Find(selector)
		if cards.Length() == 0 {
			continue
		}

		fragments := make([]domain.Fragment, 0, cards.Length())
		cards.Each(func(i int, card *goquery.Selection) {
			html, err := goquery.OuterHtml(card)
			if err != nil {
				return
			}
			fragments = append(fragments, domain.Fragment{Index: i, HTML: html})
		})
		return fragments, nil
	}

	return nil, nil
}

// Extract разбирает одну карточку. Отсутствие заголовка, цены или адреса дает отказ.
func (a *AvitoExtractorAdapter) Extract(fragment domain.Fragment, category domain.Category) domain.ExtractionResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment.HTML))
	if err != nil {
		return domain.Rejected(fmt.Sprintf("unparsable fragment: %v", err))
	}
	card := doc.Selection

	values := make(map[string]string, len(listingRules))
	var missing []string
	for _, f := range listingRules {
		value, _ := f.resolve(card)
		if value == "" && f.required {
			missing = append(missing, f.field)
			continue
		}
		values[f.field] = value
	}
	if len(missing) > 0 {
		return domain.Rejected("missing required fields: " + strings.Join(missing, ", "))
	}

	rooms, area := normalizer.SplitTitle(values[fieldTitle])

	record := domain.ListingRecord{
		Category: category,
		Address:  values[fieldAddress],
		Price:    normalizer.NormalizePrice(values[fieldPrice]),
		Rooms:    rooms,
		Area:     area,
		Link:     a.absoluteLink(values[fieldLink]),
	}
	if category == domain.CategorySale {
		record.PropertyType = normalizer.ClassifyPropertyType(values[fieldDescription])
	}

	return domain.Extracted(record)
}

// absoluteLink разрешает href относительно origin сайта
func (a *AvitoExtractorAdapter) absoluteLink(href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return a.origin.ResolveReference(ref).String()
}
