// Package report renders commission statements and allocation summaries as
// XLSX workbooks.
package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/osusproperties/brokerage-core/internal/application/port"
)

const (
	statementSheet = "Statement"
	summarySheet   = "Summary"

	// numFmtAmount is the built-in "#,##0.00" format
	numFmtAmount = 4
)

// ExcelRenderer implements port.ReportRenderer with excelize
type ExcelRenderer struct {
	companyName string
	now         func() time.Time
	logger      *zap.Logger
}

// NewExcelRenderer creates a new renderer
func NewExcelRenderer(companyName string, logger *zap.Logger) *ExcelRenderer {
	return &ExcelRenderer{
		companyName: companyName,
		now:         time.Now,
		logger:      logger,
	}
}

// styles holds the style IDs registered on a workbook
type styles struct {
	title  int
	header int
	amount int
	total  int
}

func (r *ExcelRenderer) newWorkbook(sheet string) (*excelize.File, *styles, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	st := &styles{}
	var err error
	if st.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to create style: %w", err)
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	}); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to create style: %w", err)
	}
	if st.amount, err = f.NewStyle(&excelize.Style{NumFmt: numFmtAmount}); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to create style: %w", err)
	}
	if st.total, err = f.NewStyle(&excelize.Style{NumFmt: numFmtAmount, Font: &excelize.Font{Bold: true}}); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to create style: %w", err)
	}

	return f, st, nil
}

// RenderStatement renders the commission statement of one sale
func (r *ExcelRenderer) RenderStatement(stmt *port.SaleStatement) ([]byte, error) {
	if stmt == nil || stmt.Sale == nil {
		return nil, fmt.Errorf("statement has no sale")
	}

	f, st, err := r.newWorkbook(statementSheet)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	w := &sheetWriter{f: f, sheet: statementSheet, logger: r.logger}
	sale := stmt.Sale

	w.set("A1", r.companyName)
	w.style("A1", "A1", st.title)
	w.set("A2", "Commission Statement")
	w.set("D2", "Generated "+r.now().UTC().Format("2006-01-02 15:04"))

	header := [][2]interface{}{
		{"Sale", sale.Name},
		{"Buyer", sale.BuyerName},
		{"Project", sale.Project},
		{"Unit", sale.Unit},
		{"State", sale.State},
		{"Currency", sale.Currency},
	}
	row := 4
	for _, kv := range header {
		w.setRow(row, kv[0], kv[1])
		w.style(cell(1, row), cell(1, row), st.header)
		row++
	}
	w.setRow(row, "Sale value", amount(sale.SaleValue))
	w.style(cell(2, row), cell(2, row), st.amount)
	row++
	w.setRow(row, "Untaxed total", amount(sale.AmountUntaxed))
	w.style(cell(2, row), cell(2, row), st.amount)
	row += 2

	w.setRow(row, "Role", "Partner", "Calculation", "Rate / Amount", "Commission")
	w.style(cell(1, row), cell(5, row), st.header)
	row++
	first := row
	for _, line := range stmt.Allocation.Lines {
		w.setRow(row, string(line.Role), line.PartnerName, string(line.CalcType), amount(line.RateOrAmount), amount(line.Amount))
		row++
	}
	if row > first {
		w.style(cell(4, first), cell(5, row-1), st.amount)
	}
	w.setRow(row, "Total", "", "", "", amount(stmt.Allocation.Total))
	w.style(cell(5, row), cell(5, row), st.total)
	row += 2

	v := stmt.Verdict
	w.setRow(row, "Ceiling", amount(v.Ceiling))
	w.style(cell(2, row), cell(2, row), st.amount)
	row++
	w.setRow(row, "Remaining", amount(v.Remaining))
	w.style(cell(2, row), cell(2, row), st.amount)
	row++
	w.setRow(row, "Utilization %", amount(v.UtilizationPct))
	row++
	w.setRow(row, "Verdict", string(v.Level), v.Message)
	row += 2

	if len(stmt.Orders) > 0 {
		w.setRow(row, "Purchase order", "Partner", "State", "Export", "Total")
		w.style(cell(1, row), cell(5, row), st.header)
		row++
		for _, po := range stmt.Orders {
			w.setRow(row, po.Reference, po.PartnerName, po.State, po.ExportStatus, amount(po.Total))
			w.style(cell(5, row), cell(5, row), st.amount)
			row++
		}
	}

	w.widths(map[string]float64{"A": 18, "B": 28, "C": 16, "D": 16, "E": 16})
	if w.err != nil {
		return nil, w.err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	r.logger.Info("Commission statement rendered",
		zap.Int64("sale_id", sale.ID),
		zap.Int("lines", len(stmt.Allocation.Lines)),
		zap.Int("bytes", buf.Len()))

	return buf.Bytes(), nil
}

// RenderSummary renders one row per sale and a totals row
func (r *ExcelRenderer) RenderSummary(stmts []*port.SaleStatement) ([]byte, error) {
	f, st, err := r.newWorkbook(summarySheet)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	w := &sheetWriter{f: f, sheet: summarySheet, logger: r.logger}

	w.set("A1", r.companyName+" - Allocation Summary")
	w.style("A1", "A1", st.title)
	w.setRow(3, "Sale", "Project", "Unit", "State", "Untaxed total", "Commission", "Remaining", "Utilization %", "Verdict")
	w.style(cell(1, 3), cell(9, 3), st.header)

	row := 4
	untaxed, total, remaining := decimal.Zero, decimal.Zero, decimal.Zero
	for _, s := range stmts {
		if s == nil || s.Sale == nil {
			continue
		}
		w.setRow(row,
			s.Sale.Name, s.Sale.Project, s.Sale.Unit, s.Sale.State,
			amount(s.Sale.AmountUntaxed), amount(s.Allocation.Total), amount(s.Verdict.Remaining),
			amount(s.Verdict.UtilizationPct), string(s.Verdict.Level))
		untaxed = untaxed.Add(s.Sale.AmountUntaxed)
		total = total.Add(s.Allocation.Total)
		remaining = remaining.Add(s.Verdict.Remaining)
		row++
	}
	if row > 4 {
		w.style(cell(5, 4), cell(7, row-1), st.amount)
	}

	w.setRow(row, "Total", "", "", "", amount(untaxed), amount(total), amount(remaining))
	w.style(cell(5, row), cell(7, row), st.total)

	w.widths(map[string]float64{"A": 16, "B": 24, "E": 16, "F": 16, "G": 16, "H": 14, "I": 10})
	if w.err != nil {
		return nil, w.err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	r.logger.Info("Allocation summary rendered", zap.Int("sales", row-4))
	return buf.Bytes(), nil
}

// sheetWriter keeps the first error so rendering code stays linear
type sheetWriter struct {
	f      *excelize.File
	sheet  string
	logger *zap.Logger
	err    error
}

func (w *sheetWriter) set(axis string, value interface{}) {
	if w.err != nil {
		return
	}
	if err := w.f.SetCellValue(w.sheet, axis, value); err != nil {
		w.logger.Warn("Failed to set cell value", zap.String("sheet", w.sheet), zap.String("cell", axis), zap.Error(err))
		w.err = fmt.Errorf("failed to set %s!%s: %w", w.sheet, axis, err)
	}
}

func (w *sheetWriter) setRow(row int, values ...interface{}) {
	for i, v := range values {
		w.set(cell(i+1, row), v)
	}
}

func (w *sheetWriter) style(from, to string, styleID int) {
	if w.err != nil {
		return
	}
	if err := w.f.SetCellStyle(w.sheet, from, to, styleID); err != nil {
		w.err = fmt.Errorf("failed to style %s:%s: %w", from, to, err)
	}
}

func (w *sheetWriter) widths(cols map[string]float64) {
	for col, width := range cols {
		if w.err != nil {
			return
		}
		if err := w.f.SetColWidth(w.sheet, col, col, width); err != nil {
			w.err = fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

// amount converts a decimal for display; the stored value stays exact
func amount(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

var _ port.ReportRenderer = (*ExcelRenderer)(nil)
