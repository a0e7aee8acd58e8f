// Package export renders catalog projections for spreadsheets.
package export

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/jecastrom/lager-build-sub000/internal/catalog"
)

// utf8BOM keeps umlauts intact when the file is opened in Excel.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCatalogCSV serialises the full catalog with a fixed column order,
// sorted by item name using German collation.
func WriteCatalogCSV(w io.Writer, items []catalog.StockItem) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}

	sorted := append([]catalog.StockItem(nil), items...)
	collator := collate.New(language.German)
	sort.SliceStable(sorted, func(i, j int) bool {
		return collator.CompareString(sorted[i].Name, sorted[j].Name) < 0
	})

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Name", "Artikelnummer", "Kapazität", "Bestand", "Mindestbestand", "System", "Hersteller"}); err != nil {
		return err
	}
	for _, item := range sorted {
		record := []string{
			item.Name,
			item.SKU,
			item.Capacity,
			strconv.Itoa(item.Stock),
			strconv.Itoa(item.MinStock),
			item.System,
			item.Manufacturer,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
