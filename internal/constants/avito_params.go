package constants

import "github.com/AnastasiaMuntyaeva/RealEstateFinder-bot/internal/core/domain"

// Индексные страницы Санкт-Петербурга
const (
	AvitoOrigin    = "https://www.avito.ru"
	AvitoRentalURL = AvitoOrigin + "/sankt-peterburg/kvartiry/sdam/na_dlitelnyy_srok-ASgBAgICAkSSA8gQ8AeQUg"
	AvitoSaleURL   = AvitoOrigin + "/sankt-peterburg/kvartiry/prodam-ASgBAgICAUSSA8YQ?context=H4sIAAAAAAAA_wEtANL_YToxOntzOjg6ImZyb21QYWdlIjtzOjE2OiJzZWFyY2hGb3JtV2lkZ2V0Ijt9F_yIfi0AAAA"
)

// PageQueryParam задает номер страницы выдачи
const PageQueryParam = "p"

// MaxFragmentsPerRun ограничивает число карточек, обрабатываемых с одной страницы
const MaxFragmentsPerRun = 50

// Столько записей уходит в чат по одному запросу фильтра
const NotifyListingsLimit = 5

// ChallengeMarkers – это признаки страницы проверки на робота
var ChallengeMarkers = []string{"captcha", "капча"}

// ListingReadySelector ждет появления карточек на странице
const ListingReadySelector = `[data-marker="item"], div[itemprop="itemListElement"]`

// Порядок категорий при последовательном запуске
var DefaultIngestOrder = []domain.Category{domain.CategoryRental, domain.CategorySale}

// User-agent десктопного Chrome, с которым открывается браузер
const DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.212 Safari/537.36"
