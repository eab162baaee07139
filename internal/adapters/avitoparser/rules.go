package avitoparser

import (
	"strings"

	"github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/normalizer"

	"github.com/PuerkitoBio/goquery"
)

// Поля карточки, которые разбираются каскадом правил
const (
	fieldTitle       = "title"
	fieldPrice       = "price"
	fieldAddress     = "address"
	fieldLink        = "link"
	fieldDescription = "description"
)

// Селекторы карточки объявления в порядке приоритета
var fragmentSelectors = []string{
	`div[data-marker="item"]`,
	`div[itemprop="itemListElement"]`,
}

// extractionRule задает один вариант поиска значения поля. attr == "" означает текст элемента.
type extractionRule struct {
	name     string
	selector string
	attr     string
}

// fieldRules хранит каскад правил для поля, побеждает первое непустое значение
type fieldRules struct {
	field    string
	required bool
	rules    []extractionRule
}

// listingRules – это таблица каскадов. Новый вариант шаблона добавляется строкой в таблицу.
var listingRules = []fieldRules{
	{
		field:    fieldTitle,
		required: true,
		rules: []extractionRule{
			{name: "schema-name", selector: `h3[itemprop="name"]`},
			{name: "title-root", selector: `h3.title-root`},
			{name: "title-link", selector: `a[data-marker="item-title"]`},
		},
	},
	{
		field:    fieldPrice,
		required: true,
		rules: []extractionRule{
			{name: "schema-price-meta", selector: `meta[itemprop="price"]`, attr: "content"},
			{name: "price-marker", selector: `span[data-marker="item-price"]`},
			{name: "schema-price-text", selector: `span[itemprop="price"]`},
		},
	},
	{
		field:    fieldAddress,
		required: true,
		rules: []extractionRule{
			{name: "address-marker", selector: `div[data-marker="item-address"]`},
			{name: "geo-address", selector: `span.geo-address`},
			{name: "geo-root", selector: `div.geo-root`},
		},
	},
	{
		field: fieldLink,
		rules: []extractionRule{
			{name: "title-link-href", selector: `a[data-marker="item-title"]`, attr: "href"},
			{name: "schema-url-href", selector: `a[itemprop="url"]`, attr: "href"},
		},
	},
	{
		field: fieldDescription,
		rules: []extractionRule{
			{name: "item-description", selector: `div.iva-item-description`},
		},
	},
}

// apply возвращает значение правила или пустую строку
func (r extractionRule) apply(card *goquery.Selection) string {
	sel := card.Find(r.selector).First()
	if sel.Length() == 0 {
		return ""
	}
	if r.attr == "" {
		return normalizer.NormalizeText(sel.Text())
	}
	value, ok := sel.Attr(r.attr)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}

// resolve прогоняет каскад и возвращает значение вместе с именем сработавшего правила
func (f fieldRules) resolve(card *goquery.Selection) (value string, rule string) {
	for _, r := range f.rules {
		if v := r.apply(card); v != "" {
			return v, r.name
		}
	}
	return "", ""
}
