package catalog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	input := strings.Join([]string{
		"name;brand;price;image_url;stock;description",
		"Cola Classic;FizzCo;85;https://example.com/cola.png;12;0.5l can",
		`Spring Water;"Aqua;Pure";40;;30;`,
	}, "\n")

	rows, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, ImportRow{
		Name:          "Cola Classic",
		BrandName:     "FizzCo",
		Price:         85,
		ImageURL:      "https://example.com/cola.png",
		StockQuantity: 12,
		Description:   "0.5l can",
	}, rows[0])
	assert.Equal(t, "Aqua;Pure", rows[1].BrandName, "quoted delimiter survives")
	assert.Equal(t, 30, rows[1].StockQuantity)
	assert.Empty(t, rows[1].ImageURL)
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("name;brand;price;image_url;stock;description\n"))
	assert.Error(t, err)
}

func TestParseCSV_RejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"missing name":   ";FizzCo;85;;1;",
		"missing brand":  "Cola;;85;;1;",
		"zero price":     "Cola;FizzCo;0;;1;",
		"garbage price":  "Cola;FizzCo;abc;;1;",
		"negative stock": "Cola;FizzCo;85;;-3;",
	}
	header := "name;brand;price;image_url;stock;description\n"

	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(header + line))
			var rerr *RowError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, 2, rerr.Row, "error names the offending row")
		})
	}
}

func TestTemplateRoundTrips(t *testing.T) {
	b, err := Template()
	require.NoError(t, err)

	rows, err := ParseXLSX(bytes.NewReader(b))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Cola Classic", rows[0].Name)
	assert.Equal(t, 85, rows[0].Price)
	assert.Equal(t, 12, rows[0].StockQuantity)
}
