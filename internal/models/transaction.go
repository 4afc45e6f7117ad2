package models

import "time"

// Transaction is a single DVF sale record after schema normalization.
// A zero Date means the source date could not be parsed; an empty
// PostalCode means the source value was not numeric.
type Transaction struct {
	Date         time.Time `json:"date"`
	PostalCode   string    `json:"postal_code"`
	PropertyType string    `json:"property_type"`
	BuiltAreaSqm float64   `json:"built_area_sqm"`
	SaleValue    float64   `json:"sale_value"`
	StreetNumber string    `json:"street_number,omitempty"`
	StreetName   string    `json:"street_name,omitempty"`
	Address      string    `json:"address"`
	Commune      string    `json:"commune"`
	Longitude    *float64  `json:"longitude,omitempty"`
	Latitude     *float64  `json:"latitude,omitempty"`
}

// ComparableQuery describes the subject property a caller wants
// comparables for. Only PostalCode is required.
type ComparableQuery struct {
	PostalCode    string  `json:"postal_code" binding:"required"`
	Address       string  `json:"address"`
	PropertyType  string  `json:"property_type"`
	TargetAreaSqm float64 `json:"area_sqm"`
}

// Comparable is one matched sale, annotated with the derived
// price-per-sqm metric.
type Comparable struct {
	Transaction
	PricePerSqm float64 `json:"price_per_sqm"`
}

// Reasons attached to an empty ComparableResult. Callers distinguish a
// missing regional dataset from schema drift and from a genuine lack of
// matching sales.
const (
	ReasonDatasetMissing = "no transaction data available for this region"
	ReasonSchemaDrift    = "regional dataset has an unexpected format"
	ReasonNoComparables  = "no comparable sales found"
)

// ComparableResult is the ordered comparable set for one query, most
// recent sale first, at most ten rows. When Rows is empty, Reason says
// why.
type ComparableResult struct {
	Query  ComparableQuery `json:"query"`
	Rows   []Comparable    `json:"rows"`
	Reason string          `json:"reason,omitempty"`
}

// Empty reports whether the result carries no comparables.
func (r ComparableResult) Empty() bool {
	return len(r.Rows) == 0
}

// TrendPoint is the mean price-per-sqm over one calendar year.
type TrendPoint struct {
	Year         int     `json:"year"`
	MeanPriceSqm float64 `json:"mean_price_sqm"`
}

// YearlyTrend is ordered by year ascending. An empty slice means no
// qualifying sales existed.
type YearlyTrend []TrendPoint
