package importer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseFile_CSV(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Date,Amount,Description\n\n01/03/2024,-12.50,Coles\n,,\n02/03/2024,100,\"Salary, March\"\n")...)
	table, err := ParseFile("bank.CSV", data, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Date", "Amount", "Description"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 1, table.Rows[0].Number)
	assert.Equal(t, 2, table.Rows[1].Number)
	assert.Equal(t, "Salary, March", table.Rows[1].Get(2))
	assert.Equal(t, "", table.Rows[1].Get(9))
}

func TestParseFile_CSVDelimiters(t *testing.T) {
	semi := []byte("Date;Amount;Description\n01/03/2024;-12,50;Coles\n")
	table, err := ParseFile("bank.csv", semi, "")
	require.NoError(t, err)
	assert.Equal(t, "-12,50", table.Rows[0].Get(1))

	tab := []byte("Date\tAmount\n01/03/2024\t5\n")
	table, err = ParseFile("bank.csv", tab, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Amount"}, table.Headers)
	assert.Equal(t, "5", table.Rows[0].Get(1))
}

func TestParseFile_Errors(t *testing.T) {
	_, err := ParseFile("bank.pdf", []byte("x"), "")
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = ParseFile("bank.csv", []byte("\n\n"), "")
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = ParseFile("bank.xlsx", []byte("not a zip"), "")
	assert.Error(t, err)
}

func buildWorkbook(t *testing.T, sheet string, rows [][]interface{}) []byte {
	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		require.NoError(t, f.SetSheetName("Sheet1", sheet))
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestParseFile_XLSX(t *testing.T) {
	data := buildWorkbook(t, "Statement", [][]interface{}{
		{"Transaction Date", "Debit", "Credit", "Narrative"},
		{45352, 12.5, nil, "Woolworths"},
		{"02/03/2024", nil, 200, "Pay"},
	})

	table, err := ParseFile("bank.xlsx", data, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Transaction Date", "Debit", "Credit", "Narrative"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "45352", table.Rows[0].Get(0))
	assert.Equal(t, "12.5", table.Rows[0].Get(1))
	assert.Equal(t, "Pay", table.Rows[1].Get(3))

	_, err = ParseFile("bank.xlsx", data, "Missing")
	assert.Error(t, err)

	named, err := ParseFile("bank.xlsm", data, "Statement")
	require.NoError(t, err)
	assert.Len(t, named.Rows, 2)
}

func TestSuggestMapping(t *testing.T) {
	m := SuggestMapping([]string{" Transaction  Date ", "AMOUNT", "Details", "Category", "Currency"})
	assert.Equal(t, " Transaction  Date ", m.Date)
	assert.Equal(t, "AMOUNT", m.Amount)
	assert.Equal(t, "Details", m.Description)
	assert.Equal(t, "Category", m.Category)
	assert.Equal(t, "Currency", m.Currency)
	assert.Empty(t, m.Debit)

	dc := SuggestMapping([]string{"Date", "Paid Out", "Paid In", "Memo"})
	assert.Equal(t, "Paid Out", dc.Debit)
	assert.Equal(t, "Paid In", dc.Credit)
	assert.Equal(t, "Memo", dc.Description)

	assert.True(t, SuggestMapping([]string{"foo", "bar"}).IsEmpty())
}

func TestColumnMapping_Resolve(t *testing.T) {
	headers := []string{"Date", "Amount", "Description"}

	cols, err := ColumnMapping{Date: "date", Amount: " AMOUNT "}.resolve(headers)
	require.NoError(t, err)
	assert.Equal(t, 0, cols.date)
	assert.Equal(t, 1, cols.amount)
	assert.Equal(t, -1, cols.description)

	_, err = ColumnMapping{Amount: "Amount"}.resolve(headers)
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = ColumnMapping{Date: "Date"}.resolve(headers)
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, err = ColumnMapping{Date: "Date", Amount: "Amount", Category: "Bucket"}.resolve(headers)
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "Bucket")

	m := ColumnMapping{Date: "Date", Amount: "Amount"}.ToMap()
	assert.Equal(t, map[string]string{"date": "Date", "amount": "Amount"}, m)
}
