/*
dto.go - Data Transfer Objects for API responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the facet engine's types from the external API contract:
  - Money is rendered as fixed two-decimal strings
  - Periods carry a display label next to the raw key

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Complex response wrappers

TYPES:
  Records:  RecordDTO, PageDTO
  Facets:   OptionDTO, FilterOptionsResponse, BrowseResponse
  Periods:  MonthSummaryDTO, PeriodSummaryResponse
  Catalog:  CatalogResponse (wraps factory.CatalogJSON)

SEE ALSO:
  - handlers.go: Uses these types
  - factory/catalog.go: CatalogJSON type
*/
package api

import (
	"github.com/warp/payroll-browse/facet"
	"github.com/warp/payroll-browse/factory"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RecordDTO represents one payroll record in API responses.
type RecordDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Position    string `json:"position"`
	Department  string `json:"department"`
	Branch      string `json:"branch"`
	Status      string `json:"status"`
	Period      string `json:"period"`
	PeriodLabel string `json:"period_label"`
	BaseSalary  string `json:"base_salary"`
	Deductions  string `json:"deductions"`
	NetPay      string `json:"net_pay"`
}

// PageDTO is one page of records.
type PageDTO struct {
	Records    []RecordDTO `json:"records"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	Total      int         `json:"total"`
	TotalPages int         `json:"total_pages"`
	SortBy     string      `json:"sort_by"`
	SortDir    string      `json:"sort_dir"`
}

// OptionDTO is one selectable value of a dimension.
type OptionDTO struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// FilterOptionsResponse maps dimension name to its options.
type FilterOptionsResponse struct {
	Options map[string][]OptionDTO `json:"options"`
}

// BrowseResponse combines a page with the filter options for the same request.
type BrowseResponse struct {
	Page    PageDTO                `json:"page"`
	Options map[string][]OptionDTO `json:"options"`
}

// MonthSummaryDTO is one month of the period summary.
type MonthSummaryDTO struct {
	Month         string   `json:"month"`
	Label         string   `json:"label"`
	UniqueDayKeys []string `json:"unique_day_keys"`
	TotalCount    int      `json:"total_count"`
}

// PeriodSummaryResponse lists months, most recent first.
type PeriodSummaryResponse struct {
	Months []MonthSummaryDTO `json:"months"`
}

// CatalogResponse describes what clients may filter, search and sort on.
type CatalogResponse struct {
	factory.CatalogJSON
	DefaultPageSize int `json:"default_page_size"`
	MaxPageSize     int `json:"max_page_size"`
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION
// =============================================================================

func toRecordDTO(r facet.Record) RecordDTO {
	return RecordDTO{
		ID:          r.ID,
		Name:        r.Name,
		Position:    r.Position,
		Department:  r.Department,
		Branch:      r.Branch,
		Status:      r.Status,
		Period:      r.Period,
		PeriodLabel: periodLabel(r.Period),
		BaseSalary:  r.BaseSalary.StringFixed(2),
		Deductions:  r.Deductions.StringFixed(2),
		NetPay:      r.NetPay.StringFixed(2),
	}
}

func toPageDTO(p *facet.ResultPage) PageDTO {
	records := make([]RecordDTO, len(p.Records))
	for i, r := range p.Records {
		records[i] = toRecordDTO(r)
	}
	return PageDTO{
		Records:    records,
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      p.Total,
		TotalPages: p.TotalPages,
		SortBy:     p.SortBy,
		SortDir:    string(p.SortDir),
	}
}

func toOptionDTOs(catalog *facet.Catalog, options map[string][]facet.Option) map[string][]OptionDTO {
	out := make(map[string][]OptionDTO, len(options))
	for name, opts := range options {
		d, _ := catalog.Dimension(name)
		dtos := make([]OptionDTO, len(opts))
		for i, o := range opts {
			label := o.Value
			if d.Kind == facet.KindPeriod {
				label = periodLabel(o.Value)
			}
			dtos[i] = OptionDTO{Value: o.Value, Label: label, Count: o.Count}
		}
		out[name] = dtos
	}
	return out
}

func toMonthSummaryDTOs(months []facet.MonthSummary) []MonthSummaryDTO {
	out := make([]MonthSummaryDTO, len(months))
	for i, m := range months {
		out[i] = MonthSummaryDTO{
			Month:         m.Month,
			Label:         periodLabel(m.Month),
			UniqueDayKeys: m.UniqueDayKeys,
			TotalCount:    m.TotalCount,
		}
	}
	return out
}

// periodLabel renders a period for display, falling back to the raw value.
func periodLabel(raw string) string {
	b, err := facet.Normalize(raw)
	if err != nil {
		return raw
	}
	return b.Label()
}
