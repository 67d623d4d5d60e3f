package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"cmms_backend/scheduler"
)

// ReportFormat представляет формат выгрузки отчета
type ReportFormat string

const (
	ReportFormatCSV   ReportFormat = "csv"
	ReportFormatExcel ReportFormat = "excel"
	ReportFormatPDF   ReportFormat = "pdf"
	ReportFormatJSON  ReportFormat = "json"
)

// ParseReportFormat разбирает формат выгрузки, по умолчанию csv
func ParseReportFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return ReportFormatCSV, nil
	case ReportFormatCSV, ReportFormatExcel, ReportFormatPDF, ReportFormatJSON:
		return f, nil
	case "xlsx":
		return ReportFormatExcel, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Extension возвращает расширение файла формата
func (f ReportFormat) Extension() string {
	if f == ReportFormatExcel {
		return "xlsx"
	}
	return string(f)
}

// ContentType возвращает MIME тип формата
func (f ReportFormat) ContentType() string {
	switch f {
	case ReportFormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ReportFormatPDF:
		return "application/pdf"
	case ReportFormatJSON:
		return "application/json"
	default:
		return "text/csv"
	}
}

// ReportData представляет табличные данные отчета
type ReportData struct {
	Title       string                   `json:"title"`
	GeneratedAt time.Time                `json:"generated_at"`
	Headers     []string                 `json:"headers"`
	Rows        []map[string]interface{} `json:"rows"`
	Summary     map[string]interface{}   `json:"summary,omitempty"`
}

// Колонки отчета по срокам ТО
var dueReportHeaders = []string{"Name", "Equipment", "Warehouse", "Frequency", "Next Due", "Last Completed", "Status"}

// BuildDueReportData преобразует отчет по срокам в табличный вид
func BuildDueReportData(report *DueReport) *ReportData {
	data := &ReportData{
		Title:       "Preventive maintenance due report",
		GeneratedAt: report.GeneratedAt,
		Headers:     dueReportHeaders,
		Rows:        make([]map[string]interface{}, 0, len(report.Items)),
		Summary: map[string]interface{}{
			"overdue":       report.Summary.Overdue,
			"due_soon":      report.Summary.DueSoon,
			"scheduled":     report.Summary.Scheduled,
			"uninitialized": report.Summary.Uninitialized,
		},
	}
	if report.LookaheadDays != nil {
		data.Summary["lookahead_days"] = *report.LookaheadDays
	}

	for _, item := range report.Items {
		pm := item.PM
		status := string(item.Classification)
		if item.Uninitialized {
			status = "uninitialized"
		}
		data.Rows = append(data.Rows, map[string]interface{}{
			"Name":           pm.Name,
			"Equipment":      pm.EquipmentID.String(),
			"Warehouse":      pm.WarehouseID.String(),
			"Frequency":      scheduler.FrequencyOf(&pm).String(),
			"Next Due":       formatReportDate(pm.NextDueDate),
			"Last Completed": formatReportDate(pm.LastCompletedAt),
			"Status":         status,
		})
	}
	return data
}

func formatReportDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// ReportService формирует файлы отчетов
type ReportService struct {
	reportsDir string
}

// NewReportService создает новый экземпляр ReportService
func NewReportService(reportsDir string) *ReportService {
	if reportsDir == "" {
		reportsDir = "reports"
	}
	return &ReportService{reportsDir: reportsDir}
}

// Write записывает отчет в w в указанном формате
func (rs *ReportService) Write(w io.Writer, data *ReportData, format ReportFormat) error {
	switch format {
	case ReportFormatCSV:
		return rs.writeCSV(w, data)
	case ReportFormatExcel:
		return rs.writeExcel(w, data)
	case ReportFormatPDF:
		return rs.writePDF(w, data)
	case ReportFormatJSON:
		return rs.writeJSON(w, data)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// SaveToFile сохраняет отчет в директорию отчетов и возвращает путь к файлу
func (rs *ReportService) SaveToFile(data *ReportData, format ReportFormat, name string) (string, error) {
	if err := os.MkdirAll(rs.reportsDir, 0755); err != nil {
		return "", err
	}

	timestamp := data.GeneratedAt.Format("20060102_150405")
	filePath := filepath.Join(rs.reportsDir, fmt.Sprintf("%s_%s.%s", name, timestamp, format.Extension()))

	file, err := os.Create(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if err := rs.Write(file, data, format); err != nil {
		return "", err
	}
	return filePath, nil
}

// writeCSV записывает CSV отчет
func (rs *ReportService) writeCSV(w io.Writer, data *ReportData) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(data.Headers); err != nil {
		return err
	}
	for _, row := range data.Rows {
		if err := writer.Write(rowValues(data.Headers, row)); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// writeExcel записывает Excel отчет
func (rs *ReportService) writeExcel(w io.Writer, data *ReportData) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Warn("Failed to close Excel file")
		}
	}()

	sheetName := "PM Due"
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	for i, header := range data.Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIdx, row := range data.Rows {
		for colIdx, header := range data.Headers {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if value, ok := row[header]; ok {
				f.SetCellValue(sheetName, cell, value)
			}
		}
	}

	if len(data.Headers) > 0 {
		endCell, err := excelize.CoordinatesToCellName(len(data.Headers), len(data.Rows)+1)
		if err != nil {
			return err
		}
		if err := f.AutoFilter(sheetName, "A1:"+endCell, []excelize.AutoFilterOptions{}); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// writePDF записывает PDF отчет. Встроенные шрифты gofpdf не содержат
// кириллицы, поэтому заголовки отчета на английском.
func (rs *ReportService) writePDF(w io.Writer, data *ReportData) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 14)

	pdf.Cell(40, 10, data.Title)
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(40, 8, "Generated at: "+data.GeneratedAt.Format("2006-01-02 15:04 MST"))
	pdf.Ln(12)

	colWidth := 277.0 / float64(len(data.Headers))
	pdf.SetFont("Arial", "B", 8)
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 7, header, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		for _, value := range rowValues(data.Headers, row) {
			pdf.CellFormat(colWidth, 6, tr(truncate(value, 40)), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.Output(w)
}

// writeJSON записывает JSON отчет
func (rs *ReportService) writeJSON(w io.Writer, data *ReportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func rowValues(headers []string, row map[string]interface{}) []string {
	record := make([]string, len(headers))
	for i, header := range headers {
		if value, ok := row[header]; ok {
			record[i] = fmt.Sprintf("%v", value)
		}
	}
	return record
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
