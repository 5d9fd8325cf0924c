package csvparse

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tijlk/money-flow/internal/models"
)

// ParseCSV parses allocations from a CSV string.
// It returns the allocations in row order and a list of error messages for invalid rows.
//
// Recognised columns: ID, Description, Strategy, IBAN, Account Type, Account ID,
// Percentage, Target Balance, Fixed Amount, Max Amount, Min Amount, Priority.
// Rows without an ID get a new one.
func ParseCSV(content string) ([]models.Allocation, []string) {
	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, []string{fmt.Sprintf("Failed to read CSV: %v", err)}
	}

	if len(records) < 2 {
		return []models.Allocation{}, nil // Empty or header-only
	}

	headers := parseHeaders(records[0])
	var allocations []models.Allocation
	var errors []string

	for i, record := range records[1:] {
		rowNum := i + 2
		if len(record) < len(headers) {
			errors = append(errors, fmt.Sprintf("Row %d: Not enough fields", rowNum))
			continue
		}

		rowMap := make(map[string]string)
		for j, header := range headers {
			rowMap[header] = strings.TrimSpace(record[j])
		}

		a, err := mapToAllocation(rowMap)
		if err != nil {
			errors = append(errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		a.Position = len(allocations) + 1
		allocations = append(allocations, *a)
	}

	return allocations, errors
}

func parseHeaders(row []string) []string {
	headers := make([]string, len(row))
	for i, h := range row {
		headers[i] = strings.TrimSpace(h)
	}
	return headers
}

func mapToAllocation(row map[string]string) (*models.Allocation, error) {
	strategyStr := row["Strategy"]
	if strategyStr == "" {
		return nil, fmt.Errorf("missing Strategy")
	}
	strategy, err := models.ParseStrategy(strategyStr)
	if err != nil {
		return nil, err
	}

	a := &models.Allocation{
		ID:          row["ID"],
		Description: row["Description"],
		Strategy:    strategy,
		IBAN:        strings.ReplaceAll(row["IBAN"], " ", ""),
		AccountType: row["Account Type"],
		AccountID:   row["Account ID"],
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AccountType == "" {
		a.AccountType = "IBAN"
	}

	if a.Percentage, err = parseDecimal(row, "Percentage"); err != nil {
		return nil, err
	}
	if a.TargetBalance, err = parseDecimal(row, "Target Balance"); err != nil {
		return nil, err
	}
	if a.FixedAmount, err = parseDecimal(row, "Fixed Amount"); err != nil {
		return nil, err
	}
	if a.MaxAmount, err = parseOptionalDecimal(row, "Max Amount"); err != nil {
		return nil, err
	}
	if a.MinAmount, err = parseOptionalDecimal(row, "Min Amount"); err != nil {
		return nil, err
	}

	if priorityStr := row["Priority"]; priorityStr != "" {
		priority, err := strconv.Atoi(priorityStr)
		if err != nil {
			return nil, fmt.Errorf("invalid Priority: %s", priorityStr)
		}
		a.Priority = priority
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func parseDecimal(row map[string]string, column string) (decimal.Decimal, error) {
	d, err := parseOptionalDecimal(row, column)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Decimal, nil
}

// parseOptionalDecimal accepts both "12.50" and "12,50".
func parseOptionalDecimal(row map[string]string, column string) (decimal.NullDecimal, error) {
	value := row[column]
	if value == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.Replace(value, ",", ".", 1))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid %s: %s", column, value)
	}
	return decimal.NewNullDecimal(d), nil
}
