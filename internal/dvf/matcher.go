package dvf

import (
	"errors"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"immoval/server/internal/models"
)

const (
	// Validity floor: smaller areas and values are data-entry noise.
	minBuiltAreaSqm = 10.0
	minSaleValue    = 1000.0

	// Relative tolerance band around the subject property's area.
	areaTolerance = 0.30

	maxComparables = 10
)

// validPropertyTypes is the closed set of DVF category labels admitted
// into the yearly trend. Unrecognized labels stay in the raw dataset
// but never feed aggregation.
var validPropertyTypes = map[string]bool{
	"Appartement": true,
	"Maison":      true,
	"Dépendance":  true,
	"Local industriel. commercial ou assimilé": true,
}

// Service answers comparable-sales queries against the regional DVF
// datasets. Stateless per call apart from the modtime-keyed cache.
type Service struct {
	loader *Loader
	cache  *datasetCache
	logger *logrus.Logger
}

func NewService(dataDir string, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	loader := NewLoader(dataDir, logger)
	return &Service{
		loader: loader,
		cache:  newDatasetCache(loader, logger),
		logger: logger,
	}
}

// FindComparables runs the filter cascade for one subject property.
// Every failure mode comes back as a result value with a reason; the
// document builder never sees a pipeline error.
func (s *Service) FindComparables(query models.ComparableQuery) models.ComparableResult {
	result := models.ComparableResult{Query: query}

	transactions, err := s.loadRegion(query.PostalCode)
	if err != nil {
		result.Reason = reasonForLoadError(err)
		s.logger.WithError(err).WithField("postal_code", query.PostalCode).
			Warn("Comparable lookup has no dataset")
		return result
	}

	postalCode := parsePostalCode(query.PostalCode)

	// Exact postal-code match on the zero-padded form.
	matched := make([]models.Transaction, 0)
	for _, t := range transactions {
		if t.PostalCode != "" && t.PostalCode == postalCode {
			matched = append(matched, t)
		}
	}

	if query.PropertyType != "" {
		matched = filterTransactions(matched, func(t models.Transaction) bool {
			return t.PropertyType == query.PropertyType
		})
	}

	matched = s.applyAddressFilter(matched, query.Address)

	matched = filterTransactions(matched, func(t models.Transaction) bool {
		return t.BuiltAreaSqm > minBuiltAreaSqm && t.SaleValue > minSaleValue
	})

	if query.TargetAreaSqm > 0 {
		low := (1 - areaTolerance) * query.TargetAreaSqm
		high := (1 + areaTolerance) * query.TargetAreaSqm
		matched = filterTransactions(matched, func(t models.Transaction) bool {
			return t.BuiltAreaSqm >= low && t.BuiltAreaSqm <= high
		})
	}

	if len(matched) == 0 {
		result.Reason = models.ReasonNoComparables
		return result
	}

	// Most recent sale first; rows with unparseable dates sort last.
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].Date, matched[j].Date
		if a.IsZero() {
			return false
		}
		if b.IsZero() {
			return true
		}
		return a.After(b)
	})

	if len(matched) > maxComparables {
		matched = matched[:maxComparables]
	}

	result.Rows = make([]models.Comparable, len(matched))
	for i, t := range matched {
		result.Rows[i] = models.Comparable{
			Transaction: t,
			PricePerSqm: t.SaleValue / t.BuiltAreaSqm,
		}
	}
	return result
}

// applyAddressFilter keeps rows whose address contains any query token
// as a substring. When that would eliminate every row, the filter is
// discarded and the incoming set returned unchanged: some comparable
// data always beats none.
func (s *Service) applyAddressFilter(transactions []models.Transaction, rawAddress string) []models.Transaction {
	tokens := strings.Fields(strings.ToLower(rawAddress))
	if len(tokens) == 0 || len(transactions) == 0 {
		return transactions
	}

	matched := filterTransactions(transactions, func(t models.Transaction) bool {
		address := strings.ToLower(t.Address)
		if address == "" {
			return false
		}
		for _, token := range tokens {
			if strings.Contains(address, token) {
				return true
			}
		}
		return false
	})

	if len(matched) == 0 {
		s.logger.WithField("address", rawAddress).
			Info("Address filter matched nothing, keeping postal-code set")
		return transactions
	}
	return matched
}

// YearlyTrend aggregates the mean price-per-sqm per calendar year for a
// postal code, over the closed property-type set (or one type when
// given). Rows with unparseable dates are dropped. An empty trend is
// not an error; dataset-level failures are.
func (s *Service) YearlyTrend(postalCode, propertyType string) (models.YearlyTrend, error) {
	transactions, err := s.loadRegion(postalCode)
	if err != nil {
		return nil, err
	}

	padded := parsePostalCode(postalCode)

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, t := range transactions {
		if t.PostalCode == "" || t.PostalCode != padded {
			continue
		}
		if propertyType != "" {
			if t.PropertyType != propertyType {
				continue
			}
		} else if !validPropertyTypes[t.PropertyType] {
			continue
		}
		if t.BuiltAreaSqm <= minBuiltAreaSqm || t.SaleValue <= minSaleValue {
			continue
		}
		if t.Date.IsZero() {
			continue
		}
		year := t.Date.Year()
		sums[year] += t.SaleValue / t.BuiltAreaSqm
		counts[year]++
	}

	years := make([]int, 0, len(sums))
	for year := range sums {
		years = append(years, year)
	}
	sort.Ints(years)

	trend := make(models.YearlyTrend, 0, len(years))
	for _, year := range years {
		trend = append(trend, models.TrendPoint{
			Year:         year,
			MeanPriceSqm: math.Round(sums[year] / float64(counts[year])),
		})
	}
	return trend, nil
}

func (s *Service) loadRegion(postalCode string) ([]models.Transaction, error) {
	region, err := RegionKey(postalCode)
	if err != nil {
		return nil, err
	}
	return s.cache.Get(region)
}

func filterTransactions(transactions []models.Transaction, keep func(models.Transaction) bool) []models.Transaction {
	out := transactions[:0:0]
	for _, t := range transactions {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func reasonForLoadError(err error) string {
	var notFound *DatasetNotFoundError
	if errors.As(err, &notFound) {
		return models.ReasonDatasetMissing
	}
	var schema *SchemaError
	if errors.As(err, &schema) {
		return models.ReasonSchemaDrift
	}
	return models.ReasonDatasetMissing
}
