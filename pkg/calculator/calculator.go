package calculator

import (
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/catalog"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/logging"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/models"
	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/security"
)

// Credits applies the credit formula of t to an accumulated unit count:
// floor(units * rate), clamped to the type's cap.
func Credits(t catalog.Type, units int) int {
	spec := catalog.Lookup(t)
	if units <= 0 {
		return 0
	}

	// past this many units the cap applies; checking first keeps the product below overflow
	capUnits := (spec.MaxCredits*spec.Rate.Denominator + spec.Rate.Numerator - 1) / spec.Rate.Numerator
	if units >= capUnits {
		return spec.MaxCredits
	}
	return units * spec.Rate.Numerator / spec.Rate.Denominator
}

// Total sums the values of a credit summary.
func Total(summary map[catalog.Type]int) int {
	total := 0
	for _, credits := range summary {
		total += credits
	}
	return total
}

// ParseActivitiesCSV parses an uploaded CSV file into activity rows.
// Expected columns: tipo, descricao, link, unidades, especificacao.
func ParseActivitiesCSV(fileHeader *multipart.FileHeader) ([]models.ActivityInput, error) {
	start := time.Now()

	// Validate file
	if err := security.ValidateUpload(fileHeader); err != nil {
		logging.LogSecurityEvent("Invalid file upload attempted", "medium",
			"filename", fileHeader.Filename,
			"size", fileHeader.Size,
			"error", err.Error())
		return nil, err
	}

	file, err := fileHeader.Open()
	if err != nil {
		logging.LogError("Failed to open uploaded file", err,
			"filename", fileHeader.Filename,
			"size", fileHeader.Size)
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	rows, skippedRows, err := parseActivities(file, fileHeader.Filename)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		err := fmt.Errorf("no valid activity rows found in CSV file")
		logging.LogError("CSV parsing resulted in no activities", err,
			"filename", fileHeader.Filename,
			"skipped_rows", skippedRows)
		return nil, err
	}

	logging.LogFileOperation("csv_parse", fileHeader.Filename, fileHeader.Size, time.Since(start), true,
		"total_activities", len(rows),
		"skipped_rows", skippedRows)

	return rows, nil
}

func parseActivities(file io.ReadSeeker, filename string) ([]models.ActivityInput, int, error) {
	// Try to detect delimiter: comma or semicolon, whichever is more frequent
	firstBytes := make([]byte, 1024)
	n, _ := file.Read(firstBytes)
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("failed to reset file pointer: %w", err)
	}

	delimiter := ','
	if n > 0 {
		content := string(firstBytes[:n])
		if strings.Count(content, ";") > strings.Count(content, ",") {
			delimiter = ';'
		}
	}

	reader := csv.NewReader(file)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	logging.LogDebug("CSV delimiter detected", "delimiter", string(delimiter))

	var rows []models.ActivityInput
	var skippedRows int

	for rowNum := 0; ; rowNum++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logging.LogWarn("CSV parsing error",
				"filename", filename,
				"row", rowNum,
				"error", err.Error())
			skippedRows++
			continue
		}

		if rowNum == 0 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "tipo") {
			continue
		}

		if len(record) < 5 {
			if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
				continue
			}
			skippedRows++
			continue
		}

		unitsStr := strings.TrimSpace(record[3])
		units, err := strconv.Atoi(unitsStr)
		if err != nil {
			logging.LogWarn("Invalid unit count in CSV",
				"filename", filename,
				"row", rowNum,
				"units_str", unitsStr,
				"error", err.Error())
			skippedRows++
			continue
		}

		rows = append(rows, models.ActivityInput{
			Row:           rowNum + 1,
			Type:          strings.TrimSpace(record[0]),
			Description:   strings.TrimSpace(record[1]),
			Link:          strings.TrimSpace(record[2]),
			Units:         units,
			Specification: strings.TrimSpace(record[4]),
		})

		if len(rows) >= models.MaxImportRows {
			logging.LogWarn("Maximum import row limit reached",
				"filename", filename,
				"max_rows", models.MaxImportRows)
			break
		}
	}

	return rows, skippedRows, nil
}
