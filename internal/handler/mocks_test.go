package handler

import (
	"context"

	"github.com/tijlk/money-flow/internal/models"
)

// MockDatabaseClient is a mock implementation of DatabaseClient
type MockDatabaseClient struct {
	ListAllocationsFunc    func(ctx context.Context) ([]models.Allocation, error)
	SaveAllocationFunc     func(ctx context.Context, a models.Allocation) error
	DeleteAllocationFunc   func(ctx context.Context, id string) error
	ReplaceAllocationsFunc func(ctx context.Context, allocations []models.Allocation) error
	GetPolicyFunc          func(ctx context.Context) (models.MainAccountPolicy, error)
	SavePolicyFunc         func(ctx context.Context, p models.MainAccountPolicy) error
}

func (m *MockDatabaseClient) ListAllocations(ctx context.Context) ([]models.Allocation, error) {
	if m.ListAllocationsFunc != nil {
		return m.ListAllocationsFunc(ctx)
	}
	return nil, nil
}

func (m *MockDatabaseClient) SaveAllocation(ctx context.Context, a models.Allocation) error {
	if m.SaveAllocationFunc != nil {
		return m.SaveAllocationFunc(ctx, a)
	}
	return nil
}

func (m *MockDatabaseClient) DeleteAllocation(ctx context.Context, id string) error {
	if m.DeleteAllocationFunc != nil {
		return m.DeleteAllocationFunc(ctx, id)
	}
	return nil
}

func (m *MockDatabaseClient) ReplaceAllocations(ctx context.Context, allocations []models.Allocation) error {
	if m.ReplaceAllocationsFunc != nil {
		return m.ReplaceAllocationsFunc(ctx, allocations)
	}
	return nil
}

func (m *MockDatabaseClient) GetPolicy(ctx context.Context) (models.MainAccountPolicy, error) {
	if m.GetPolicyFunc != nil {
		return m.GetPolicyFunc(ctx)
	}
	return models.MainAccountPolicy{}, nil
}

func (m *MockDatabaseClient) SavePolicy(ctx context.Context, p models.MainAccountPolicy) error {
	if m.SavePolicyFunc != nil {
		return m.SavePolicyFunc(ctx, p)
	}
	return nil
}

// MockBlobClient is a mock implementation of BlobClient
type MockBlobClient struct {
	UploadTextFunc    func(ctx context.Context, containerName, blobName, content string) error
	DownloadTextFunc  func(ctx context.Context, containerName, blobName string) (string, error)
	ListBlobNamesFunc func(ctx context.Context, containerName, prefix string) ([]string, error)
}

func (m *MockBlobClient) UploadText(ctx context.Context, containerName, blobName, content string) error {
	if m.UploadTextFunc != nil {
		return m.UploadTextFunc(ctx, containerName, blobName, content)
	}
	return nil
}

func (m *MockBlobClient) DownloadText(ctx context.Context, containerName, blobName string) (string, error) {
	if m.DownloadTextFunc != nil {
		return m.DownloadTextFunc(ctx, containerName, blobName)
	}
	return "", nil
}

func (m *MockBlobClient) ListBlobNames(ctx context.Context, containerName, prefix string) ([]string, error) {
	if m.ListBlobNamesFunc != nil {
		return m.ListBlobNamesFunc(ctx, containerName, prefix)
	}
	return nil, nil
}

// MockQueueClient is a mock implementation of QueueClient
type MockQueueClient struct {
	EnqueueMessageFunc func(ctx context.Context, queueName string, message any) error
}

func (m *MockQueueClient) EnqueueMessage(ctx context.Context, queueName string, message any) error {
	if m.EnqueueMessageFunc != nil {
		return m.EnqueueMessageFunc(ctx, queueName, message)
	}
	return nil
}

// MockEmailClient is a mock implementation of EmailClient
type MockEmailClient struct {
	SendRunSummaryFunc   func(ctx context.Context, to []string, report *models.RunReport) error
	SendImportErrorsFunc func(ctx context.Context, to []string, errors []string) error
}

func (m *MockEmailClient) SendRunSummary(ctx context.Context, to []string, report *models.RunReport) error {
	if m.SendRunSummaryFunc != nil {
		return m.SendRunSummaryFunc(ctx, to, report)
	}
	return nil
}

func (m *MockEmailClient) SendImportErrors(ctx context.Context, to []string, errors []string) error {
	if m.SendImportErrorsFunc != nil {
		return m.SendImportErrorsFunc(ctx, to, errors)
	}
	return nil
}

// MockAccountClient is a mock implementation of AccountClient
type MockAccountClient struct {
	ListAccountsFunc func(ctx context.Context) ([]models.Account, error)
}

func (m *MockAccountClient) ListAccounts(ctx context.Context) ([]models.Account, error) {
	if m.ListAccountsFunc != nil {
		return m.ListAccountsFunc(ctx)
	}
	return nil, nil
}

// MockRunner is a mock implementation of Runner
type MockRunner struct {
	RunFunc func(ctx context.Context) (*models.RunReport, error)
}

func (m *MockRunner) Run(ctx context.Context) (*models.RunReport, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx)
	}
	return &models.RunReport{}, nil
}
