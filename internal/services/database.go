package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/shopspring/decimal"
	"github.com/tijlk/money-flow/internal/config"
	"github.com/tijlk/money-flow/internal/models"
)

const (
	allocationsPartition = "ALLOCATIONS"
	settingsPartition    = "SETTINGS"
	mainAccountRowKey    = "MAIN_ACCOUNT"
	batchSize            = 100
)

// ErrPolicyNotFound is returned when no main account settings are stored.
var ErrPolicyNotFound = errors.New("main account policy not found")

// DatabaseService stores allocations and main account settings in Azure Table Storage.
type DatabaseService struct {
	serviceClient    *aztables.ServiceClient
	allocationsTable string
	settingsTable    string
}

// NewDatabaseService creates a new DatabaseService instance.
func NewDatabaseService(cfg config.StorageConfig) (*DatabaseService, error) {
	tableURL := cfg.TableServiceURL
	if tableURL == "" {
		return nil, fmt.Errorf("storage.table_service_url is required")
	}

	var client *aztables.ServiceClient
	if isLocal(tableURL) {
		slog.Info("using Azurite credentials for database service")
		cred, err := aztables.NewSharedKeyCredential(azuriteAccountName, azuriteAccountKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create shared key credential: %w", err)
		}
		client, err = aztables.NewServiceClientWithSharedKey(tableURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create table service client with shared key: %w", err)
		}
	} else {
		cred, err := newDefaultAzureCredential("database")
		if err != nil {
			return nil, fmt.Errorf("failed to create default azure credential: %w", err)
		}
		client, err = aztables.NewServiceClient(tableURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create table service client: %w", err)
		}
	}

	svc := &DatabaseService{
		serviceClient:    client,
		allocationsTable: cfg.AllocationsTable,
		settingsTable:    cfg.SettingsTable,
	}

	if err := svc.CreateTables(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	slog.Info("database service initialized successfully",
		"table_url", tableURL,
		"allocations_table", cfg.AllocationsTable,
		"settings_table", cfg.SettingsTable,
	)
	return svc, nil
}

// CreateTables ensures all required tables exist.
func (s *DatabaseService) CreateTables(ctx context.Context) error {
	for _, tableName := range []string{s.allocationsTable, s.settingsTable} {
		_, err := s.serviceClient.CreateTable(ctx, tableName, nil)
		if err != nil {
			var azErr *azcore.ResponseError
			if errors.As(err, &azErr) && azErr.ErrorCode == "TableAlreadyExists" {
				continue
			}
			return fmt.Errorf("failed to create table %s: %w", tableName, err)
		}
	}
	return nil
}

func (s *DatabaseService) getClient(tableName string) *aztables.Client {
	return s.serviceClient.NewClient(tableName)
}

// ListAllocations returns the stored allocations in insertion order.
func (s *DatabaseService) ListAllocations(ctx context.Context) ([]models.Allocation, error) {
	client := s.getClient(s.allocationsTable)

	filter := fmt.Sprintf("PartitionKey eq '%s'", allocationsPartition)
	pager := client.NewListEntitiesPager(&aztables.ListEntitiesOptions{
		Filter: &filter,
	})

	allocations := []models.Allocation{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list allocations: %w", err)
		}
		for _, entity := range resp.Entities {
			var parsed map[string]any
			if err := json.Unmarshal(entity, &parsed); err != nil {
				slog.Warn("skipping unreadable allocation entity", "error", err)
				continue
			}
			allocations = append(allocations, allocationFromEntity(parsed))
		}
	}

	sort.SliceStable(allocations, func(i, j int) bool {
		return allocations[i].Position < allocations[j].Position
	})
	return allocations, nil
}

// SaveAllocation upserts a single allocation. New allocations are appended
// after the last stored position.
func (s *DatabaseService) SaveAllocation(ctx context.Context, a models.Allocation) error {
	if a.Position == 0 {
		existing, err := s.ListAllocations(ctx)
		if err != nil {
			return err
		}
		a.Position = nextPosition(existing, a.ID)
	}

	entityJSON, err := json.Marshal(allocationToEntity(a))
	if err != nil {
		return fmt.Errorf("failed to marshal allocation: %w", err)
	}
	_, err = s.getClient(s.allocationsTable).UpsertEntity(ctx, entityJSON, nil)
	if err != nil {
		return fmt.Errorf("failed to upsert allocation %s: %w", a.ID, err)
	}
	return nil
}

// DeleteAllocation deletes an allocation by its ID (RowKey).
func (s *DatabaseService) DeleteAllocation(ctx context.Context, id string) error {
	_, err := s.getClient(s.allocationsTable).DeleteEntity(ctx, allocationsPartition, id, nil)
	if err != nil {
		return fmt.Errorf("failed to delete allocation %s: %w", id, err)
	}
	return nil
}

// ReplaceAllocations makes the stored set equal to allocations, deleting rows
// that are no longer present.
func (s *DatabaseService) ReplaceAllocations(ctx context.Context, allocations []models.Allocation) error {
	client := s.getClient(s.allocationsTable)

	existing, err := s.ListAllocations(ctx)
	if err != nil {
		return err
	}

	var batch []aztables.TransactionAction
	keep := make(map[string]bool, len(allocations))
	for i, a := range allocations {
		a.Position = i + 1
		keep[a.ID] = true
		entityJSON, err := json.Marshal(allocationToEntity(a))
		if err != nil {
			return fmt.Errorf("failed to marshal allocation %s: %w", a.ID, err)
		}
		batch = append(batch, aztables.TransactionAction{
			ActionType: aztables.TransactionTypeInsertReplace,
			Entity:     entityJSON,
		})
	}

	for _, a := range existing {
		if keep[a.ID] {
			continue
		}
		deleteJSON, _ := json.Marshal(map[string]any{
			"PartitionKey": allocationsPartition,
			"RowKey":       a.ID,
		})
		batch = append(batch, aztables.TransactionAction{
			ActionType: aztables.TransactionTypeDelete,
			Entity:     deleteJSON,
		})
	}

	for i := 0; i < len(batch); i += batchSize {
		end := min(i+batchSize, len(batch))
		if _, err := client.SubmitTransaction(ctx, batch[i:end], nil); err != nil {
			return fmt.Errorf("failed to submit allocation batch %d-%d: %w", i, end, err)
		}
	}

	slog.Info("replaced allocations", "count", len(allocations), "previous_count", len(existing))
	return nil
}

// GetPolicy reads the main account settings.
func (s *DatabaseService) GetPolicy(ctx context.Context) (models.MainAccountPolicy, error) {
	resp, err := s.getClient(s.settingsTable).GetEntity(ctx, settingsPartition, mainAccountRowKey, nil)
	if err != nil {
		var azErr *azcore.ResponseError
		if errors.As(err, &azErr) && azErr.ErrorCode == "ResourceNotFound" {
			return models.MainAccountPolicy{}, ErrPolicyNotFound
		}
		return models.MainAccountPolicy{}, fmt.Errorf("failed to get main account settings: %w", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(resp.Value, &parsed); err != nil {
		return models.MainAccountPolicy{}, fmt.Errorf("failed to decode main account settings: %w", err)
	}
	return policyFromEntity(parsed), nil
}

// SavePolicy upserts the main account settings.
func (s *DatabaseService) SavePolicy(ctx context.Context, p models.MainAccountPolicy) error {
	entityJSON, err := json.Marshal(map[string]any{
		"PartitionKey": settingsPartition,
		"RowKey":       mainAccountRowKey,
		"AccountID":    p.AccountID,
		"Minimum":      p.Minimum.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal main account settings: %w", err)
	}
	if _, err := s.getClient(s.settingsTable).UpsertEntity(ctx, entityJSON, nil); err != nil {
		return fmt.Errorf("failed to save main account settings: %w", err)
	}
	return nil
}

func nextPosition(existing []models.Allocation, id string) int {
	last := 0
	for _, a := range existing {
		if a.ID == id {
			return a.Position
		}
		last = max(last, a.Position)
	}
	return last + 1
}

// allocationToEntity stores decimals as strings so amounts survive the round trip exactly.
func allocationToEntity(a models.Allocation) map[string]any {
	entity := map[string]any{
		"PartitionKey":  allocationsPartition,
		"RowKey":        a.ID,
		"Description":   a.Description,
		"Strategy":      string(a.Strategy),
		"IBAN":          a.IBAN,
		"AccountType":   a.AccountType,
		"AccountID":     a.AccountID,
		"Percentage":    a.Percentage.String(),
		"TargetBalance": a.TargetBalance.String(),
		"FixedAmount":   a.FixedAmount.String(),
		"Priority":      a.Priority,
		"Position":      a.Position,
	}
	if a.MaxAmount.Valid {
		entity["MaxAmount"] = a.MaxAmount.Decimal.String()
	}
	if a.MinAmount.Valid {
		entity["MinAmount"] = a.MinAmount.Decimal.String()
	}
	return entity
}

func allocationFromEntity(parsed map[string]any) models.Allocation {
	return models.Allocation{
		ID:            entityString(parsed, "RowKey"),
		Description:   entityString(parsed, "Description"),
		Strategy:      models.Strategy(entityString(parsed, "Strategy")),
		IBAN:          entityString(parsed, "IBAN"),
		AccountType:   entityString(parsed, "AccountType"),
		AccountID:     entityString(parsed, "AccountID"),
		Percentage:    entityDecimal(parsed, "Percentage").Decimal,
		TargetBalance: entityDecimal(parsed, "TargetBalance").Decimal,
		FixedAmount:   entityDecimal(parsed, "FixedAmount").Decimal,
		MaxAmount:     entityDecimal(parsed, "MaxAmount"),
		MinAmount:     entityDecimal(parsed, "MinAmount"),
		Priority:      entityInt(parsed, "Priority"),
		Position:      entityInt(parsed, "Position"),
	}
}

func policyFromEntity(parsed map[string]any) models.MainAccountPolicy {
	return models.MainAccountPolicy{
		AccountID: entityString(parsed, "AccountID"),
		Minimum:   entityDecimal(parsed, "Minimum").Decimal,
	}
}

func entityString(parsed map[string]any, key string) string {
	switch v := parsed[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

// entityDecimal accepts both string and numeric columns; missing or unparsable
// values are reported as not set.
func entityDecimal(parsed map[string]any, key string) decimal.NullDecimal {
	switch v := parsed[key].(type) {
	case string:
		if v == "" {
			return decimal.NullDecimal{}
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			slog.Warn("ignoring invalid decimal column", "column", key, "value", v)
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(v))
	}
	return decimal.NullDecimal{}
}

func entityInt(parsed map[string]any, key string) int {
	switch v := parsed[key].(type) {
	case float64:
		return int(v)
	case string:
		i, _ := strconv.Atoi(v)
		return i
	}
	return 0
}
