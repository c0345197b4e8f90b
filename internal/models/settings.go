package models

// Prices документ config/prices.
type Prices struct {
	Weekly  float64 `json:"weekly" validate:"gt=0"`
	Monthly float64 `json:"monthly" validate:"gt=0"`
}

// DefaultPrices возвращает цены по умолчанию в рупиях.
func DefaultPrices() Prices {
	return Prices{Weekly: 99, Monthly: 299}
}

// For возвращает цену тарифа.
func (p Prices) For(plan Plan) float64 {
	if plan == PlanWeekly {
		return p.Weekly
	}
	return p.Monthly
}

// PageContent значение одной страницы в документе content/pages.
type PageContent struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Pages документ content/pages: page1..page5 -> {title, content}.
type Pages map[string]PageContent
