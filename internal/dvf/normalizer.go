package dvf

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"

	"immoval/server/internal/models"
)

// SchemaError means required columns are missing after normalization,
// i.e. the regional file is in a format the rename table does not know.
// Distinguishable from DatasetNotFoundError so callers can alert on
// schema drift specifically.
type SchemaError struct {
	Region  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset for region %q is missing required columns: %s",
		e.Region, strings.Join(e.Missing, ", "))
}

// columnRenames maps every historical DVF header, already folded to
// lowercase-underscore form, to its canonical name. Releases disagree on
// naming and casing; this table is the single point absorbing that.
var columnRenames = map[string]string{
	"date_mutation":       "date_mutation",
	"datemut":             "date_mutation",
	"valeur_fonciere":     "valeur_fonciere",
	"valeurfonc":          "valeur_fonciere",
	"code_postal":         "code_postal",
	"codepostal":          "code_postal",
	"cp":                  "code_postal",
	"type_local":          "type_local",
	"libtyploc":           "type_local",
	"surface_reelle_bati": "surface_reelle_bati",
	"sbati":               "surface_reelle_bati",
	"no_voie":             "adresse_numero",
	"novoie":              "adresse_numero",
	"adresse_numero":      "adresse_numero",
	"voie":                "adresse_nom_voie",
	"adresse_nom_voie":    "adresse_nom_voie",
	"commune":             "nom_commune",
	"nom_commune":         "nom_commune",
	"longitude":           "longitude",
	"latitude":            "latitude",
}

// requiredColumns must survive renaming for the file to be usable.
var requiredColumns = []string{"surface_reelle_bati", "valeur_fonciere"}

// rawTransaction mirrors one canonicalized CSV row. Everything stays a
// string here; typed coercion happens in toTransaction with explicit
// missing-value behavior.
type rawTransaction struct {
	Date       string `csv:"date_mutation"`
	Value      string `csv:"valeur_fonciere"`
	PostalCode string `csv:"code_postal"`
	Type       string `csv:"type_local"`
	Area       string `csv:"surface_reelle_bati"`
	Number     string `csv:"adresse_numero"`
	Street     string `csv:"adresse_nom_voie"`
	Commune    string `csv:"nom_commune"`
	Longitude  string `csv:"longitude"`
	Latitude   string `csv:"latitude"`
}

// NormalizeHeader folds raw column names to lowercase-underscore form
// and applies the rename table. Unknown columns pass through untouched.
func NormalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		folded := strings.ToLower(strings.TrimSpace(name))
		folded = strings.ReplaceAll(folded, " ", "_")
		if canonical, ok := columnRenames[folded]; ok {
			out[i] = canonical
		} else {
			out[i] = folded
		}
	}
	return out
}

// Normalize converts a raw regional table into typed transactions.
// Individual rows that fail coercion are kept with missing-value
// semantics (zero date, empty postal code); only structurally absent
// required columns abort with a SchemaError.
func Normalize(region string, table *RawTable) ([]models.Transaction, error) {
	header := NormalizeHeader(table.Header)

	if missing := missingColumns(header); len(missing) > 0 {
		return nil, &SchemaError{Region: region, Missing: missing}
	}

	decoder, err := csvutil.NewDecoder(&rowReader{rows: table.Rows}, header...)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset decoder: %w", err)
	}

	transactions := make([]models.Transaction, 0, len(table.Rows))
	for {
		var raw rawTransaction
		if err := decoder.Decode(&raw); err == io.EOF {
			break
		} else if err != nil {
			// Row-level decode failures are dropped, not fatal.
			continue
		}
		transactions = append(transactions, toTransaction(raw))
	}
	return transactions, nil
}

func missingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[name] = true
	}
	var missing []string
	for _, name := range requiredColumns {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// rowReader feeds already-split records to csvutil.
type rowReader struct {
	rows [][]string
	next int
}

func (r *rowReader) Read() ([]string, error) {
	if r.next >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.next]
	r.next++
	return row, nil
}

func toTransaction(raw rawTransaction) models.Transaction {
	number := stripFloatArtifact(raw.Number)
	street := strings.TrimSpace(raw.Street)

	t := models.Transaction{
		Date:         parseDate(raw.Date),
		PostalCode:   parsePostalCode(raw.PostalCode),
		PropertyType: strings.TrimSpace(raw.Type),
		BuiltAreaSqm: parseAmount(raw.Area),
		SaleValue:    parseAmount(raw.Value),
		StreetNumber: number,
		StreetName:   street,
		Address:      buildAddress(number, street),
		Commune:      strings.TrimSpace(raw.Commune),
	}

	if lon, ok := parseCoordinate(raw.Longitude); ok {
		if lat, ok := parseCoordinate(raw.Latitude); ok {
			t.Longitude = &lon
			t.Latitude = &lat
		}
	}
	return t
}

// buildAddress concatenates "number name" when both parts are present,
// falls back to the street name alone, and stays empty otherwise.
func buildAddress(number, street string) string {
	switch {
	case number != "" && street != "":
		return number + " " + street
	case street != "":
		return street
	default:
		return ""
	}
}

// parsePostalCode accepts integer-like values, including float-formatted
// strings such as "75001.0": the fraction is truncated and the result
// zero-padded to 5 characters. Non-numeric input becomes the empty
// string, which exact-match filtering never selects.
func parsePostalCode(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || f < 0 {
		return ""
	}
	return fmt.Sprintf("%05d", int(math.Trunc(f)))
}

// parseAmount coerces a monetary or surface value, accepting comma
// decimal separators. Failure yields 0, which the validity floor in the
// matcher excludes.
func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

var dateLayouts = []string{"2006-01-02", "02/01/2006"}

// parseDate returns the zero time for unparseable input; such rows are
// kept for comparable matching (they sort last) and dropped from the
// yearly trend.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// stripFloatArtifact cleans trailing ".0" left by earlier float-typed
// exports of street numbers ("12.0" -> "12").
func stripFloatArtifact(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSuffix(s, ".0")
}

func parseCoordinate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
