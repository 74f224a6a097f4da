package drafts

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "zerodha-allocator/internal/errors"
	"zerodha-allocator/internal/models"
)

func TestRead(t *testing.T) {
	in := `Symbol,Exchange,Weight,Amount,Qty,Locked,LTP
reliance,NSE,40,"1,00,000",2.9,yes,2450.5
TCS,,abc,,,,
sbin,bse,10,,-3.7,false,
`
	file, err := Read(strings.NewReader(in), "drafts.csv")
	require.NoError(t, err)
	require.Len(t, file.Rows, 3)

	assert.Equal(t, models.RowDraft{
		ID: "NSE:RELIANCE", Symbol: "RELIANCE", Exchange: models.NSE,
		WeightPct: 40, AmountInr: 100000, Qty: 2, Locked: true,
	}, file.Rows[0])
	assert.Equal(t, models.RowDraft{ID: "NSE:TCS", Symbol: "TCS", Exchange: models.NSE}, file.Rows[1])
	assert.Equal(t, "BSE:SBIN", file.Rows[2].ID)
	assert.Equal(t, int64(-3), file.Rows[2].Qty)
	assert.Equal(t, map[string]float64{"NSE:RELIANCE": 2450.5}, file.Prices)
}

func TestRead_Errors(t *testing.T) {
	_, err := Read(strings.NewReader("symbol\nTCS\ntcs\n"), "d.csv")
	var dataErr *apperrors.DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, 3, dataErr.Line)
	assert.ErrorIs(t, err, apperrors.ErrInvalidDrafts)

	_, err = Read(strings.NewReader("weight\n10\n"), "d.csv")
	assert.ErrorIs(t, err, apperrors.ErrInvalidDrafts)

	_, err = Read(strings.NewReader(""), "d.csv")
	assert.ErrorIs(t, err, apperrors.ErrInvalidDrafts)

	_, err = Read(strings.NewReader("symbol,locked\nTCS,maybe\n"), "d.csv")
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "locked", dataErr.Column)
}

func TestWriteThenRead(t *testing.T) {
	rows := []models.RowDraft{
		{ID: "a", Symbol: "TCS", Exchange: models.NSE, WeightPct: 33.33, Locked: true},
		{ID: "b", Symbol: "INFY", Exchange: models.BSE, AmountInr: 1500.5, Qty: 4},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rows, map[string]float64{"b": 1499.95}))

	assert.True(t, strings.HasPrefix(buf.String(), strings.Join(Header, ",")+"\n"))

	file, err := Read(&buf, "roundtrip")
	require.NoError(t, err)
	assert.Equal(t, rows, file.Rows)
	assert.Equal(t, map[string]float64{"b": 1499.95}, file.Prices)
}

func TestReadPrices(t *testing.T) {
	in := "symbol,exchange,price\nTCS,,3500\nSBIN,BSE,\"1,200.50\"\n"
	got, err := ReadPrices(strings.NewReader(in), "p.csv")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"NSE:TCS": 3500, "BSE:SBIN": 1200.5}, got)

	got, err = ReadPrices(strings.NewReader("id,price\nrow-1,99\n"), "p.csv")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"row-1": 99}, got)

	_, err = ReadPrices(strings.NewReader("id,price\nrow-1,n/a\n"), "p.csv")
	assert.Error(t, err)

	_, err = ReadPrices(strings.NewReader("id\nrow-1\n"), "p.csv")
	assert.Error(t, err)
}

func TestReadWithExchange(t *testing.T) {
	in := "symbol,exchange,weight\nRELIANCE,,50\nTCS,NSE,50\n"
	file, err := ReadWithExchange(strings.NewReader(in), "d.csv", models.BSE)
	require.NoError(t, err)
	assert.Equal(t, "BSE:RELIANCE", file.Rows[0].ID)
	assert.Equal(t, "NSE:TCS", file.Rows[1].ID)
}
