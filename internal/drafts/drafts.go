// Package drafts reads and writes allocation row drafts as CSV.
package drafts

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"zerodha-allocator/internal/allocation"
	apperrors "zerodha-allocator/internal/errors"
	"zerodha-allocator/internal/models"
)

// Header is the column order used when writing drafts.
var Header = []string{"id", "symbol", "exchange", "weight_pct", "amount_inr", "qty", "locked", "price"}

var aliases = map[string]string{
	"weight":    "weight_pct",
	"weightpct": "weight_pct",
	"amount":    "amount_inr",
	"amountinr": "amount_inr",
	"quantity":  "qty",
	"ltp":       "price",
	"key":       "id",
}

// File is a parsed drafts CSV.
type File struct {
	Rows []models.RowDraft
	// Prices holds the optional price column keyed by row id.
	Prices map[string]float64
}

// Read parses drafts from r. source names the input in error messages.
// Numeric cells that are blank or unparsable are treated as unset; qty is
// truncated toward zero.
func Read(r io.Reader, source string) (*File, error) {
	return ReadWithExchange(r, source, models.NSE)
}

// ReadWithExchange is Read with exchange used for rows whose exchange cell
// is blank or missing.
func ReadWithExchange(r io.Reader, source string, exchange models.Exchange) (*File, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewDataError(source, 0, "", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NewDataError(source, 0, "", apperrors.ErrInvalidDrafts)
	}

	cols := columnIndex(records[0])
	if _, ok := cols["symbol"]; !ok {
		if _, ok := cols["id"]; !ok {
			return nil, apperrors.NewDataError(source, 1, "symbol",
				fmt.Errorf("%w: header needs an id or symbol column", apperrors.ErrInvalidDrafts))
		}
	}

	file := &File{Prices: make(map[string]float64)}
	seen := make(map[string]int)
	for n, record := range records[1:] {
		line := n + 2
		cell := func(name string) string {
			if i, ok := cols[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		row := models.RowDraft{
			ID:       cell("id"),
			Symbol:   strings.ToUpper(cell("symbol")),
			Exchange: exchange,
		}
		if ex := cell("exchange"); ex != "" {
			row.Exchange = models.ParseExchange(strings.ToUpper(ex))
		}
		if row.ID == "" && row.Symbol == "" {
			continue
		}
		if row.ID == "" {
			row.ID = row.Instrument()
		}
		if first, dup := seen[row.ID]; dup {
			return nil, apperrors.NewDataError(source, line, "id",
				fmt.Errorf("%w: duplicate id %q (first on line %d)", apperrors.ErrInvalidDrafts, row.ID, first))
		}
		seen[row.ID] = line

		row.WeightPct, _ = allocation.SafeNumber(cell("weight_pct"))
		row.AmountInr, _ = allocation.SafeNumber(cell("amount_inr"))
		if qty, ok := allocation.SafeNumber(cell("qty")); ok {
			row.Qty = int64(math.Trunc(qty))
		}
		if raw := cell("locked"); raw != "" {
			locked, err := parseBool(raw)
			if err != nil {
				return nil, apperrors.NewDataError(source, line, "locked", err)
			}
			row.Locked = locked
		}
		if price, ok := allocation.SafeNumber(cell("price")); ok {
			file.Prices[row.ID] = price
		}

		file.Rows = append(file.Rows, row)
	}
	return file, nil
}

// Write emits rows in the Header column order. Prices are optional.
func Write(w io.Writer, rows []models.RowDraft, prices map[string]float64) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		price := ""
		if p, ok := prices[r.ID]; ok {
			price = formatFloat(p)
		}
		record := []string{
			r.ID,
			r.Symbol,
			string(r.Exchange),
			formatFloat(r.WeightPct),
			formatFloat(r.AmountInr),
			strconv.FormatInt(r.Qty, 10),
			strconv.FormatBool(r.Locked),
			price,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadPrices parses a price table with a price column and either an id/key
// column or symbol (+ optional exchange) columns. Keys are row ids or
// EXCHANGE:SYMBOL instruments.
func ReadPrices(r io.Reader, source string) (map[string]float64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewDataError(source, 0, "", err)
	}
	if len(records) == 0 {
		return map[string]float64{}, nil
	}

	cols := columnIndex(records[0])
	if _, ok := cols["price"]; !ok {
		return nil, apperrors.NewDataError(source, 1, "price", fmt.Errorf("missing price column"))
	}

	out := make(map[string]float64)
	for n, record := range records[1:] {
		cell := func(name string) string {
			if i, ok := cols[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		key := cell("id")
		if key == "" && cell("symbol") != "" {
			row := models.RowDraft{
				Symbol:   strings.ToUpper(cell("symbol")),
				Exchange: models.ParseExchange(strings.ToUpper(cell("exchange"))),
			}
			key = row.Instrument()
		}
		if key == "" {
			continue
		}
		price, ok := allocation.SafeNumber(cell("price"))
		if !ok {
			return nil, apperrors.NewDataError(source, n+2, "price", fmt.Errorf("invalid price %q", cell("price")))
		}
		out[key] = price
	}
	return out, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if alias, ok := aliases[name]; ok {
			name = alias
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "y", "yes", "locked", "x":
		return true, nil
	case "n", "no", "-":
		return false, nil
	}
	return cast.ToBoolE(raw)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
