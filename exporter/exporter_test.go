package exporter

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"cotejo/importer"
	"cotejo/matching"
)

func sampleResults() []matching.MatchResult {
	confidence := 92
	return []matching.MatchResult{
		{
			SourceID: "C1", TargetID: "G1",
			SourceDescription: "parafuso sextavado m8", TargetDescription: "Parafuso Sextavado M8 Zincado",
			TargetStatus: "ativo", Similarity: 75,
		},
		{
			SourceID: "C2", TargetID: "G7",
			SourceDescription: "luva pvc 25", TargetDescription: "Luva PVC soldável 25mm",
			TargetStatus: "inativo", Similarity: 67,
			ArbiterConfidence: &confidence, ArbiterRationale: "mesmo item",
		},
	}
}

func TestResultsTable(t *testing.T) {
	table := ResultsTable(sampleResults())

	assert.Equal(t, ResultColumns, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []any{"C1", "G1", "parafuso sextavado m8", "Parafuso Sextavado M8 Zincado", "ativo", 75, nil, nil}, table.Rows[0])
	assert.Equal(t, 92, table.Rows[1][6])
	assert.Equal(t, "mesmo item", table.Rows[1][7])
}

func TestRecordsTable(t *testing.T) {
	first := matching.NewRecordWithColumns([]string{"id", "descricao"}, []any{1, "porca"})
	second := matching.NewRecordWithColumns([]string{"id", "descricao", "descricao_corrigida"}, []any{2, "aruela", "arruela"})

	table := RecordsTable("galileu", []*matching.Record{first, second})

	assert.Equal(t, []string{"id", "descricao", "descricao_corrigida"}, table.Columns)
	assert.Equal(t, []any{1, "porca", nil}, table.Rows[0])
	assert.Equal(t, []any{2, "aruela", "arruela"}, table.Rows[1])
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, ResultsTable(sampleResults())))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(ResultColumns, ","), lines[0])
	assert.Equal(t, "C1,G1,parafuso sextavado m8,Parafuso Sextavado M8 Zincado,ativo,75,,", lines[1])
	assert.Equal(t, "C2,G7,luva pvc 25,Luva PVC soldável 25mm,inativo,67,92,mesmo item", lines[2])
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, ResultsTable(sampleResults())))

	var decoded struct {
		Total int              `json:"total"`
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2, decoded.Total)
	assert.Equal(t, "G7", decoded.Items[1]["galileu_id"])
	assert.Equal(t, float64(92), decoded.Items[1]["confianca_llm"])
	assert.Nil(t, decoded.Items[0]["confianca_llm"])

	// порядок колонок сохраняется
	assert.Less(t, strings.Index(buf.String(), `"cliente_id"`), strings.Index(buf.String(), `"razao_llm"`))
}

func TestWriteFile_ExcelRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultResultsFile)
	require.NoError(t, WriteFile(path, ResultsTable(sampleResults())))

	sheet, err := importer.ReadFile(path, importer.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Resultado", sheet.Name)
	assert.Equal(t, ResultColumns, sheet.Columns)
	require.Len(t, sheet.Records, 2)
	assert.Equal(t, "G1", sheet.Records[0].String("galileu_id"))
	assert.Equal(t, "75", sheet.Records[0].String("porcentagem_string"))
	assert.Equal(t, "", sheet.Records[0].String("confianca_llm"))
	assert.Equal(t, "92", sheet.Records[1].String("confianca_llm"))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	styleID, err := f.GetCellStyle("Resultado", "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	assert.True(t, style.Font.Bold)
}

func TestWriteFile_UnsupportedFormat(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "saida.ods"), Table{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"json": FormatJSON, ".CSV": FormatCSV, "excel": FormatExcel, "xlsx": FormatExcel} {
		got, err := ParseFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Dados", sheetName("  "))
	assert.Equal(t, "a_b", sheetName("a/b"))
	assert.Len(t, []rune(sheetName(strings.Repeat("x", 40))), maxSheetName)
}
