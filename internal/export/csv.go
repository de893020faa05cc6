// Package export renders item snapshots into delimited text for
// offline use in spreadsheet tools.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ayane-t/mochimono/internal/model"
)

// utf8BOM lets spreadsheet consumers detect the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// header is the fixed column order of the export.
var header = []string{
	"id", "name", "name_en", "generic_name", "generic_en",
	"category", "condition", "quantity", "recommended_action",
	"online_low", "online_high", "online_confidence",
	"thrift_low", "thrift_high", "thrift_confidence",
	"disposal_cost", "marketplaces", "keywords",
	"created_at", "updated_at",
}

// yen formats monetary values with a currency prefix and
// locale-grouped digits.
var yen = message.NewPrinter(language.Japanese)

// WriteCSV writes a byte-order marker, one header row, then one row
// per item in input order.
//
// Every cell is neutralized against spreadsheet formula injection:
// values beginning with '=', '+', '-', or '@' gain a leading single
// quote. Array fields become one comma-joined cell.
func WriteCSV(w io.Writer, items []*model.Item) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write byte-order marker: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, item := range items {
		if err := cw.Write(itemRow(item)); err != nil {
			return fmt.Errorf("failed to write row for item %s: %w", item.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}
	return nil
}

func itemRow(item *model.Item) []string {
	disposal := ""
	if item.DisposalCost != nil {
		disposal = money(*item.DisposalCost)
	}
	row := []string{
		item.ID,
		item.Name,
		item.NameEN,
		item.GenericName,
		item.GenericEN,
		item.Category,
		string(item.Condition),
		fmt.Sprintf("%d", item.Quantity),
		string(item.RecommendedAction),
		money(item.OnlinePrice.Low),
		money(item.OnlinePrice.High),
		fmt.Sprintf("%.2f", item.OnlinePrice.Confidence),
		money(item.ThriftPrice.Low),
		money(item.ThriftPrice.High),
		fmt.Sprintf("%.2f", item.ThriftPrice.Confidence),
		disposal,
		strings.Join(item.Marketplaces, ", "),
		strings.Join(item.Keywords, ", "),
		item.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		item.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
	}
	for i, cell := range row {
		row[i] = EscapeCell(cell)
	}
	return row
}

// money renders a yen amount with grouped digits, e.g. "¥1,500".
func money(v int64) string {
	return yen.Sprintf("¥%d", v)
}

// EscapeCell neutralizes a value that a spreadsheet would otherwise
// evaluate as a formula.
func EscapeCell(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@':
		return "'" + v
	}
	return v
}
