package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cotejo/exporter"
	reconciliationapp "cotejo/internal/application/reconciliation"
	"cotejo/internal/config"
	"cotejo/importer"
	"cotejo/proofreading"
	apperrors "cotejo/server/errors"
	"cotejo/server/middleware"
)

// CorrectionHandler обработчик корректуры текста и колонок
type CorrectionHandler struct {
	useCase  *reconciliationapp.UseCase
	settings config.ProofreadingConfig
	errors   *middleware.ErrorHandler
}

// NewCorrectionHandler создает обработчик корректуры
func NewCorrectionHandler(useCase *reconciliationapp.UseCase, settings config.ProofreadingConfig, errors *middleware.ErrorHandler) *CorrectionHandler {
	return &CorrectionHandler{
		useCase:  useCase,
		settings: settings,
		errors:   errors,
	}
}

// CorrectTextRequest запрос корректуры строки
type CorrectTextRequest struct {
	Text string `json:"text" binding:"required"`
}

// CorrectTextResponse исправленная строка
type CorrectTextResponse struct {
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Changed   bool   `json:"changed"`
}

// CorrectColumnForm параметры корректуры колонки файла
type CorrectColumnForm struct {
	Column      string `form:"column" binding:"required"`
	Output      string `form:"output"`
	Sheet       string `form:"sheet"`
	StripMarkup bool   `form:"strip_markup"`
	// xlsx (по умолчанию), csv или json
	Format string `form:"format"`
}

// HandleCorrect исправляет строку (JSON) или колонку загруженного файла (multipart)
// @Summary Корректура текста
// @Description JSON {"text": "..."} возвращает исправленную строку. Multipart с файлом и колонкой возвращает файл с колонкой <column>_corrigida.
// @Tags proofreading
// @Accept json,multipart/form-data
// @Produce json,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param request body CorrectTextRequest false "Строка для корректуры"
// @Param file formData file false "Набор данных"
// @Param column formData string false "Колонка для корректуры"
// @Success 200 {object} JSONResponse "Исправленная строка"
// @Failure 400 {object} middleware.ErrorResponse "Некорректный запрос"
// @Router /correct [post]
func (h *CorrectionHandler) HandleCorrect(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		h.correctFile(c)
		return
	}

	var req CorrectTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errors.Handle(c, apperrors.NewValidationError("Поле text обязательно", err), "failed to bind request")
		return
	}
	corrected, err := h.useCase.CorrectText(c.Request.Context(), req.Text)
	if err != nil {
		h.errors.Handle(c, err, "correction failed")
		return
	}
	SendJSONResponse(c, http.StatusOK, CorrectTextResponse{
		Original:  req.Text,
		Corrected: corrected,
		Changed:   corrected != req.Text,
	})
}

func (h *CorrectionHandler) correctFile(c *gin.Context) {
	var form CorrectColumnForm
	if err := c.ShouldBind(&form); err != nil {
		h.errors.Handle(c, apperrors.NewValidationError("Поле column обязательно", err), "failed to bind form")
		return
	}
	if form.Format == "" {
		form.Format = string(exporter.FormatExcel)
	}
	format, err := exporter.ParseFormat(form.Format)
	if err != nil {
		h.errors.Handle(c, err, "failed to parse format")
		return
	}

	sheet, filename, err := readUpload(c, "file", importer.ReadOptions{Sheet: form.Sheet, StripMarkup: form.StripMarkup})
	if err != nil {
		h.errors.Handle(c, err, "failed to read file")
		return
	}

	stats, err := h.useCase.CorrectColumn(c.Request.Context(), sheet.Records, proofreading.ColumnOptions{
		Column:      form.Column,
		Output:      form.Output,
		Concurrency: h.settings.Concurrency,
		GroupDelay:  h.settings.GroupDelay.Std(),
	})
	if err != nil {
		h.errors.Handle(c, err, "column correction failed")
		return
	}

	c.Header("X-Rows-Total", strconv.Itoa(stats.Rows))
	c.Header("X-Rows-Changed", strconv.Itoa(stats.Changed))
	c.Header("X-Output-Column", stats.Output)

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	table := exporter.RecordsTable(sheet.Name, sheet.Records)
	if err := SendTable(c, format, fmt.Sprintf("%s_corrigido.%s", base, format), table); err != nil {
		h.errors.Handle(c, err, "failed to export corrected file")
	}
}
