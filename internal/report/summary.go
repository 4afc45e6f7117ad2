package report

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"immoval/server/internal/models"
)

// Summary renders the comparable set as the fixed-column text table the
// document builder embeds. An empty result yields a "no data" message
// carrying the pipeline's reason instead of an empty table.
func Summary(result models.ComparableResult) string {
	if result.Empty() {
		reason := result.Reason
		if reason == "" {
			reason = models.ReasonNoComparables
		}
		return fmt.Sprintf("Aucune donnée comparable (%s)", reason)
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "Adresse\tCommune\tType\tSurface (m²)\tPrix (€)\tPrix/m² (€)")
	for _, row := range result.Rows {
		address := row.Address
		if address == "" {
			address = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f\t%.0f\t%.0f\n",
			address,
			row.Commune,
			row.PropertyType,
			row.BuiltAreaSqm,
			row.SaleValue,
			row.PricePerSqm,
		)
	}
	w.Flush()
	return buf.String()
}
