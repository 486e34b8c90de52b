package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cotejo/exporter"
	apperrors "cotejo/server/errors"
)

// JSONResponse стандартная структура JSON ответа
type JSONResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// SendJSONResponse отправляет успешный ответ в стандартной обертке
func SendJSONResponse(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, JSONResponse{
		Success:   statusCode >= 200 && statusCode < 300,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// SendTable отдает таблицу файлом заданного формата.
// Файл собирается целиком до отправки, чтобы ошибка записи не оборвала ответ.
func SendTable(c *gin.Context, format exporter.Format, filename string, table exporter.Table) error {
	var buf bytes.Buffer
	if err := exporter.Write(&buf, format, table); err != nil {
		return apperrors.NewInternalError("failed to build export", err)
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
	return nil
}
