package dvf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader_RenamesLegacyColumns(t *testing.T) {
	header := []string{"Date mutation", "Valeur fonciere", "Code postal", "Type local", "Surface reelle bati", "No voie", "Voie", "Commune"}

	normalized := NormalizeHeader(header)

	assert.Equal(t, []string{
		"date_mutation", "valeur_fonciere", "code_postal", "type_local",
		"surface_reelle_bati", "adresse_numero", "adresse_nom_voie", "nom_commune",
	}, normalized)
}

func TestNormalizeHeader_PassesUnknownColumnsThrough(t *testing.T) {
	normalized := NormalizeHeader([]string{"Some Extra", "code_postal"})
	assert.Equal(t, []string{"some_extra", "code_postal"}, normalized)
}

func TestNormalize_SchemaErrorOnMissingRequiredColumns(t *testing.T) {
	table := &RawTable{
		Header: []string{"date_mutation", "code_postal"},
		Rows:   [][]string{{"2023-01-01", "06000"}},
	}

	_, err := Normalize("06", table)
	require.Error(t, err)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "06", schemaErr.Region)
	assert.ElementsMatch(t, []string{"surface_reelle_bati", "valeur_fonciere"}, schemaErr.Missing)
}

func TestNormalize_TypedRows(t *testing.T) {
	table := &RawTable{
		Header: []string{"date_mutation", "valeur_fonciere", "code_postal", "type_local", "surface_reelle_bati", "adresse_numero", "adresse_nom_voie", "nom_commune"},
		Rows: [][]string{
			{"2023-05-01", "250000,50", "06000", "Appartement", "50", "12.0", "rue de France", "Nice"},
		},
	}

	transactions, err := Normalize("06", table)
	require.NoError(t, err)
	require.Len(t, transactions, 1)

	tx := transactions[0]
	assert.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), tx.Date)
	assert.Equal(t, 250000.50, tx.SaleValue)
	assert.Equal(t, "06000", tx.PostalCode)
	assert.Equal(t, "Appartement", tx.PropertyType)
	assert.Equal(t, 50.0, tx.BuiltAreaSqm)
	assert.Equal(t, "12", tx.StreetNumber)
	assert.Equal(t, "12 rue de France", tx.Address)
	assert.Equal(t, "Nice", tx.Commune)
}

func TestParsePostalCode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "75001", "75001"},
		{"float artifact", "75001.0", "75001"},
		{"needs padding", "6000", "06000"},
		{"float with padding", "6000.0", "06000"},
		{"non numeric", "ABCDE", ""},
		{"empty", "", ""},
		{"negative", "-1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parsePostalCode(tt.input))
		})
	}
}

func TestBuildAddress(t *testing.T) {
	assert.Equal(t, "12 rue de France", buildAddress("12", "rue de France"))
	assert.Equal(t, "rue de France", buildAddress("", "rue de France"))
	assert.Equal(t, "", buildAddress("12", ""))
	assert.Equal(t, "", buildAddress("", ""))
}

func TestParseAmount(t *testing.T) {
	assert.Equal(t, 250000.5, parseAmount("250000,50"))
	assert.Equal(t, 250000.5, parseAmount("250000.50"))
	assert.Equal(t, 0.0, parseAmount("n/a"))
	assert.Equal(t, 0.0, parseAmount(""))
}

func TestParseDate(t *testing.T) {
	assert.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), parseDate("2023-05-01"))
	assert.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), parseDate("01/05/2023"))
	assert.True(t, parseDate("garbage").IsZero())
}

func TestNormalize_ShortRowsAreDropped(t *testing.T) {
	table := &RawTable{
		Header: []string{"date_mutation", "valeur_fonciere", "code_postal", "type_local", "surface_reelle_bati"},
		Rows: [][]string{
			{"2023-05-01", "250000", "06000", "Appartement", "50"},
			{"2023-05-02", "260000"}, // truncated row
		},
	}

	transactions, err := Normalize("06", table)
	require.NoError(t, err)
	assert.Len(t, transactions, 1)
}
