package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jecastrom/lager-build-sub000/internal/catalog"
)

func TestWriteCatalogCSV(t *testing.T) {
	items := []catalog.StockItem{
		{Name: "Zange", SKU: "WZ-100", Capacity: "", Stock: 4, MinStock: 2, System: "Werkzeug", Manufacturer: "Knipex"},
		{Name: "Ätzmittel", SKU: "CH-001", Capacity: "1l", Stock: 10, MinStock: 5, System: "Chemie", Manufacturer: ""},
		{Name: "Akku 18V", SKU: "EL-018", Capacity: "5Ah", Stock: 0, MinStock: 1, System: "Elektro", Manufacturer: "Bosch"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCatalogCSV(&buf, items))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\xEF\xBB\xBF"), "output must start with a UTF-8 BOM")

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(out, "\xEF\xBB\xBF")), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "Name,Artikelnummer,Kapazität,Bestand,Mindestbestand,System,Hersteller", lines[0])

	// German collation sorts Ä with A, ahead of Z.
	require.True(t, strings.HasPrefix(lines[1], "Akku 18V,EL-018,5Ah,0,1,Elektro,Bosch"))
	require.True(t, strings.HasPrefix(lines[2], "Ätzmittel,CH-001,1l,10,5,Chemie,"))
	require.True(t, strings.HasPrefix(lines[3], "Zange,WZ-100,,4,2,Werkzeug,Knipex"))
}

func TestWriteCatalogCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCatalogCSV(&buf, nil))

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(buf.String(), "\xEF\xBB\xBF")), "\n")
	require.Len(t, lines, 1)
}
