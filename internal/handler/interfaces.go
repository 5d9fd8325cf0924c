package handler

import (
	"context"

	"github.com/tijlk/money-flow/internal/models"
)

// DatabaseClient defines the allocation and policy storage used by handlers.
type DatabaseClient interface {
	ListAllocations(ctx context.Context) ([]models.Allocation, error)
	SaveAllocation(ctx context.Context, a models.Allocation) error
	DeleteAllocation(ctx context.Context, id string) error
	ReplaceAllocations(ctx context.Context, allocations []models.Allocation) error
	GetPolicy(ctx context.Context) (models.MainAccountPolicy, error)
	SavePolicy(ctx context.Context, p models.MainAccountPolicy) error
}

// BlobClient defines the interface for blob storage operations used by handlers.
type BlobClient interface {
	UploadText(ctx context.Context, containerName, blobName, content string) error
	DownloadText(ctx context.Context, containerName, blobName string) (string, error)
	ListBlobNames(ctx context.Context, containerName, prefix string) ([]string, error)
}

// QueueClient defines the interface for queue operations used by handlers.
type QueueClient interface {
	EnqueueMessage(ctx context.Context, queueName string, message any) error
}

// EmailClient defines the notifications sent by handlers.
type EmailClient interface {
	SendRunSummary(ctx context.Context, to []string, report *models.RunReport) error
	SendImportErrors(ctx context.Context, to []string, errors []string) error
}

// AccountClient lists the user's bank accounts.
type AccountClient interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
}

// Runner executes one allocation run.
type Runner interface {
	Run(ctx context.Context) (*models.RunReport, error)
}
