package handlers

import (
	"fmt"
	"mime/multipart"
	"strconv"

	"github.com/gin-gonic/gin"

	"cotejo/importer"
	apperrors "cotejo/server/errors"
)

// readUpload читает загруженный файл формы. Имя файла возвращается для истории запусков.
func readUpload(c *gin.Context, field string, opts importer.ReadOptions) (*importer.Sheet, string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, "", apperrors.NewValidationError(fmt.Sprintf("Файл %q не передан", field), err)
	}
	sheet, err := readMultipartFile(header, opts)
	if err != nil {
		return nil, "", err
	}
	return sheet, header.Filename, nil
}

func readMultipartFile(header *multipart.FileHeader, opts importer.ReadOptions) (*importer.Sheet, error) {
	format, err := importer.DetectFormat(header.Filename)
	if err != nil {
		return nil, err
	}
	file, err := header.Open()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to open upload", err)
	}
	defer file.Close()

	sheet, err := importer.Read(file, format, opts)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("Не удалось прочитать файл %q: %v", header.Filename, err), err)
	}
	return sheet, nil
}

// queryInt читает целый параметр запроса с ограничением сверху
func queryInt(c *gin.Context, key string, defaultValue, maxValue int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, apperrors.NewValidationError(fmt.Sprintf("Параметр %s должен быть положительным числом", key), err)
	}
	return min(value, maxValue), nil
}
