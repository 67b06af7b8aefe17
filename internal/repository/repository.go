package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ipmarket/internal/models"
)

// Repository is the persistence boundary for the gateway: the listings read
// model, workflow run audit log, purchase records, sync bookkeeping, and
// runtime switches. Nothing here is authoritative for marketplace state.
type Repository interface {
	// Listings read model.
	UpsertListing(ctx context.Context, item *models.Listing) error
	MarkListingStatus(ctx context.Context, tokenID uint64, status string, seenAt time.Time) error
	GetListingByTokenID(ctx context.Context, tokenID uint64) (*models.Listing, error)
	ListListings(ctx context.Context, params ListListingsParams) ([]models.Listing, error)
	CountListings(ctx context.Context, params ListListingsParams) (int64, error)
	MarkListingsStaleBefore(ctx context.Context, seenBefore time.Time) (int64, error)
	ListingsSummary(ctx context.Context) (ListingsSummary, error)

	// Workflow runs.
	InsertWorkflowRun(ctx context.Context, item *models.WorkflowRun) error
	UpdateWorkflowRun(ctx context.Context, runID string, updates map[string]any) error
	GetWorkflowRunByRunID(ctx context.Context, runID string) (*models.WorkflowRun, error)
	ListWorkflowRuns(ctx context.Context, params ListWorkflowRunsParams) ([]models.WorkflowRun, error)
	CountWorkflowRuns(ctx context.Context, params ListWorkflowRunsParams) (int64, error)
	ListWorkflowRunsByStatus(ctx context.Context, status string, limit int) ([]models.WorkflowRun, error)

	// Purchases.
	InsertPurchase(ctx context.Context, item *models.Purchase) error
	ListPurchases(ctx context.Context, params ListPurchasesParams) ([]models.Purchase, error)
	CountPurchases(ctx context.Context, params ListPurchasesParams) (int64, error)

	// Sync bookkeeping.
	GetSyncState(ctx context.Context, scope string) (*models.SyncState, error)
	SaveSyncState(ctx context.Context, state *models.SyncState) error

	// System settings.
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
}

type ListListingsParams struct {
	Limit    int
	Offset   int
	Status   *string
	Seller   *string
	MinPrice *uint64
	MaxPrice *uint64
	OrderBy  string
	Asc      *bool
}

type ListWorkflowRunsParams struct {
	Limit   int
	Offset  int
	Kind    *string
	Status  *string
	TokenID *uint64
	Caller  *string
	Since   *time.Time
	OrderBy string
	Asc     *bool
}

type ListPurchasesParams struct {
	Limit   int
	Offset  int
	Buyer   *string
	Status  *string
	TokenID *uint64
	OrderBy string
	Asc     *bool
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}

type ListingsSummary struct {
	Listed           int64           `json:"listed"`
	Sold             int64           `json:"sold"`
	TotalValueTokens decimal.Decimal `json:"total_value_tokens"`
}
