package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cmms_backend/models"
	"cmms_backend/scheduler"
)

func sampleDueReport() *DueReport {
	lookahead := 14
	now := utc(2024, 6, 1)
	overdue := models.PreventiveMaintenance{
		ID: uuid.New(), Name: "Belt check", EquipmentID: uuid.New(),
		FrequencyType: models.FrequencyMonthly, FrequencyValue: 1,
		IsActive: true, NextDueDate: ptrTime(utc(2024, 5, 20)), LastCompletedAt: ptrTime(utc(2024, 4, 20)),
	}
	pending := models.PreventiveMaintenance{
		ID: uuid.New(), Name: "New pump", EquipmentID: uuid.New(),
		FrequencyType: models.FrequencyCustom, FrequencyValue: 10, FrequencyUnit: models.UnitDays,
		IsActive: true,
	}
	result := scheduler.Classify([]models.PreventiveMaintenance{overdue, pending}, now, &lookahead)
	return &DueReport{
		GeneratedAt:   now,
		LookaheadDays: &lookahead,
		Summary:       result.Summary(),
		Items:         result.Items,
		Uninitialized: result.Uninitialized,
	}
}

func TestParseReportFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ReportFormat
		wantErr bool
	}{
		{"", ReportFormatCSV, false},
		{"CSV", ReportFormatCSV, false},
		{"excel", ReportFormatExcel, false},
		{"xlsx", ReportFormatExcel, false},
		{"pdf", ReportFormatPDF, false},
		{" json ", ReportFormatJSON, false},
		{"docx", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseReportFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "xlsx", ReportFormatExcel.Extension())
	assert.Equal(t, "application/pdf", ReportFormatPDF.ContentType())
}

func TestBuildDueReportData(t *testing.T) {
	data := BuildDueReportData(sampleDueReport())

	assert.Equal(t, dueReportHeaders, data.Headers)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, "Belt check", data.Rows[0]["Name"])
	assert.Equal(t, "overdue", data.Rows[0]["Status"])
	assert.Equal(t, "2024-05-20", data.Rows[0]["Next Due"])
	assert.Equal(t, "2024-04-20", data.Rows[0]["Last Completed"])
	assert.Equal(t, "uninitialized", data.Rows[1]["Status"])
	assert.Equal(t, "", data.Rows[1]["Next Due"])
	assert.Equal(t, 1, data.Summary["overdue"])
	assert.Equal(t, 14, data.Summary["lookahead_days"])
}

func TestReportService_Write(t *testing.T) {
	rs := NewReportService(t.TempDir())
	data := BuildDueReportData(sampleDueReport())

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, rs.Write(&buf, data, ReportFormatCSV))

		records, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, data.Headers, records[0])
		assert.Equal(t, "Belt check", records[1][0])
	})

	t.Run("excel", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, rs.Write(&buf, data, ReportFormatExcel))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()
		value, err := f.GetCellValue("PM Due", "A2")
		require.NoError(t, err)
		assert.Equal(t, "Belt check", value)
	})

	t.Run("pdf", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, rs.Write(&buf, data, ReportFormatPDF))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, rs.Write(&buf, data, ReportFormatJSON))

		var decoded ReportData
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Len(t, decoded.Rows, 2)
	})

	t.Run("unsupported", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, rs.Write(&buf, data, "docx"))
	})
}

func TestReportService_SaveToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	rs := NewReportService(dir)

	path, err := rs.SaveToFile(BuildDueReportData(sampleDueReport()), ReportFormatExcel, "pm_due")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "pm_due_20240601_090000.xlsx"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
