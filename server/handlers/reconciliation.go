package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"cotejo/database"
	"cotejo/exporter"
	reconciliationapp "cotejo/internal/application/reconciliation"
	"cotejo/internal/config"
	"cotejo/importer"
	"cotejo/matching"
	apperrors "cotejo/server/errors"
	"cotejo/server/middleware"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

// ReconciliationHandler обработчик запусков сверки и их истории
type ReconciliationHandler struct {
	useCase  *reconciliationapp.UseCase
	defaults *config.Config
	errors   *middleware.ErrorHandler
}

// NewReconciliationHandler создает обработчик сверки
func NewReconciliationHandler(useCase *reconciliationapp.UseCase, defaults *config.Config, errors *middleware.ErrorHandler) *ReconciliationHandler {
	return &ReconciliationHandler{
		useCase:  useCase,
		defaults: defaults,
		errors:   errors,
	}
}

// ReconcileForm поля формы запуска; незаданные берутся из конфигурации
type ReconcileForm struct {
	SourceSheet string `form:"source_sheet"`
	TargetSheet string `form:"target_sheet"`
	StripMarkup bool   `form:"strip_markup"`

	SourceDescription string `form:"source_description"`
	SourceID          string `form:"source_id"`
	TargetDescription string `form:"target_description"`
	TargetStatus      string `form:"target_status"`
	TargetID          string `form:"target_id"`

	PreFilterThreshold  *float64 `form:"prefilter_threshold"`
	ConfidenceThreshold *float64 `form:"confidence_threshold"`
	BatchSize           *int     `form:"batch_size"`
	MaxCandidates       *int     `form:"max_candidates"`
	UseArbiter          *bool    `form:"use_arbiter"`

	// json (по умолчанию), csv или xlsx
	Format string `form:"format"`
}

func (f ReconcileForm) columns() config.ColumnsConfig {
	return config.ColumnsConfig{
		SourceDescription: f.SourceDescription,
		SourceID:          f.SourceID,
		TargetDescription: f.TargetDescription,
		TargetStatus:      f.TargetStatus,
		TargetID:          f.TargetID,
	}
}

func (f ReconcileForm) options(base matching.Options) matching.Options {
	if f.PreFilterThreshold != nil {
		base.PreFilterThreshold = *f.PreFilterThreshold
	}
	if f.ConfidenceThreshold != nil {
		base.ConfidenceThreshold = *f.ConfidenceThreshold
	}
	if f.BatchSize != nil {
		base.BatchSize = *f.BatchSize
	}
	if f.MaxCandidates != nil {
		base.MaxCandidates = *f.MaxCandidates
	}
	if f.UseArbiter != nil {
		base.UseArbiter = *f.UseArbiter
	}
	return base
}

// RunDetailsResponse запуск с результатами
type RunDetailsResponse struct {
	Run     *database.Run          `json:"run"`
	Results []matching.MatchResult `json:"results"`
}

// RunListResponse список запусков
type RunListResponse struct {
	Runs  []database.Run `json:"runs"`
	Total int            `json:"total"`
}

// HandleReconcile запускает сверку двух загруженных файлов
// @Summary Сверить два набора данных
// @Description Принимает файлы источника и цели (xlsx или csv), возвращает принятые пары
// @Tags reconciliation
// @Accept multipart/form-data
// @Produce json
// @Param source formData file true "Набор источника"
// @Param target formData file true "Набор цели"
// @Param source_description formData string false "Колонка описания источника"
// @Param source_id formData string false "Колонка идентификатора источника"
// @Param target_description formData string false "Колонка описания цели"
// @Param target_status formData string false "Колонка статуса цели"
// @Param target_id formData string false "Колонка идентификатора цели"
// @Param use_arbiter formData bool false "Проверять пары арбитром"
// @Param format formData string false "json, csv или xlsx"
// @Success 200 {object} JSONResponse "Отчет сверки"
// @Failure 400 {object} middleware.ErrorResponse "Некорректные параметры"
// @Failure 503 {object} middleware.ErrorResponse "Арбитр не настроен"
// @Router /reconcile [post]
func (h *ReconciliationHandler) HandleReconcile(c *gin.Context) {
	var form ReconcileForm
	if err := c.ShouldBind(&form); err != nil {
		h.errors.Handle(c, apperrors.NewValidationError("Некорректные параметры формы", err), "failed to bind form")
		return
	}

	format := exporter.FormatJSON
	if form.Format != "" {
		parsed, err := exporter.ParseFormat(form.Format)
		if err != nil {
			h.errors.Handle(c, err, "failed to parse format")
			return
		}
		format = parsed
	}

	source, sourceName, err := readUpload(c, "source", importer.ReadOptions{Sheet: form.SourceSheet, StripMarkup: form.StripMarkup})
	if err != nil {
		h.errors.Handle(c, err, "failed to read source")
		return
	}
	target, targetName, err := readUpload(c, "target", importer.ReadOptions{Sheet: form.TargetSheet, StripMarkup: form.StripMarkup})
	if err != nil {
		h.errors.Handle(c, err, "failed to read target")
		return
	}

	result, err := h.useCase.Reconcile(c.Request.Context(), reconciliationapp.ReconcileRequest{
		SourceName: sourceName,
		TargetName: targetName,
		Source:     source.Records,
		Target:     target.Records,
		Schema:     form.columns().Merge(h.defaults.Columns).Schema(),
		Options:    form.options(h.defaults.ToOptions()),
	})
	if err != nil {
		h.errors.Handle(c, err, "reconciliation failed")
		return
	}

	if result.RunID != "" {
		c.Header("X-Run-ID", result.RunID)
	}
	if format == exporter.FormatJSON {
		SendJSONResponse(c, http.StatusOK, result)
		return
	}
	if err := SendTable(c, format, "cotejamento_resultado."+string(format), exporter.ResultsTable(result.Report.Results)); err != nil {
		h.errors.Handle(c, err, "failed to export results")
	}
}

// HandleListRuns возвращает последние запуски
// @Summary Список запусков
// @Tags runs
// @Produce json
// @Param limit query int false "Количество (по умолчанию 20)"
// @Success 200 {object} JSONResponse "Запуски, новые первыми"
// @Failure 503 {object} middleware.ErrorResponse "История отключена"
// @Router /runs [get]
func (h *ReconciliationHandler) HandleListRuns(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultRunsLimit, maxRunsLimit)
	if err != nil {
		h.errors.Handle(c, err, "invalid limit")
		return
	}
	runs, err := h.useCase.ListRuns(c.Request.Context(), limit)
	if err != nil {
		h.errors.Handle(c, err, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []database.Run{}
	}
	SendJSONResponse(c, http.StatusOK, RunListResponse{Runs: runs, Total: len(runs)})
}

// HandleGetRun возвращает запуск с результатами
// @Summary Запуск сверки
// @Tags runs
// @Produce json
// @Param id path string true "Идентификатор запуска"
// @Success 200 {object} JSONResponse "Запуск и результаты"
// @Failure 404 {object} middleware.ErrorResponse "Запуск не найден"
// @Router /runs/{id} [get]
func (h *ReconciliationHandler) HandleGetRun(c *gin.Context) {
	run, results, err := h.useCase.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errors.Handle(c, err, "failed to load run")
		return
	}
	SendJSONResponse(c, http.StatusOK, RunDetailsResponse{Run: run, Results: results})
}

// HandleExportRun выгружает результаты запуска файлом
// @Summary Выгрузка результатов запуска
// @Tags runs
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Идентификатор запуска"
// @Param format query string false "xlsx (по умолчанию), csv или json"
// @Success 200 {file} file "Файл результатов"
// @Failure 404 {object} middleware.ErrorResponse "Запуск не найден"
// @Router /runs/{id}/export [get]
func (h *ReconciliationHandler) HandleExportRun(c *gin.Context) {
	format, err := exporter.ParseFormat(c.DefaultQuery("format", string(exporter.FormatExcel)))
	if err != nil {
		h.errors.Handle(c, err, "failed to parse format")
		return
	}
	run, results, err := h.useCase.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errors.Handle(c, err, "failed to load run")
		return
	}
	filename := fmt.Sprintf("cotejamento_%s.%s", run.ID, format)
	if err := SendTable(c, format, filename, exporter.ResultsTable(results)); err != nil {
		h.errors.Handle(c, err, "failed to export run")
	}
}
