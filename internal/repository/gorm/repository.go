package gormrepository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ipmarket/internal/models"
	"ipmarket/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- Listings ----------------------------------------------------------------

func (s *Store) UpsertListing(ctx context.Context, item *models.Listing) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.TokenID == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"seller",
			"price_e8s",
			"seller_approval",
			"status",
			"listed_at",
			"last_seen_at",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) MarkListingStatus(ctx context.Context, tokenID uint64, status string, seenAt time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	if tokenID == 0 || strings.TrimSpace(status) == "" {
		return nil
	}
	if seenAt.IsZero() {
		seenAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Model(&models.Listing{}).
		Where("token_id = ?", tokenID).
		Updates(map[string]any{
			"status":       strings.TrimSpace(status),
			"last_seen_at": seenAt,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (s *Store) GetListingByTokenID(ctx context.Context, tokenID uint64) (*models.Listing, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if tokenID == 0 {
		return nil, nil
	}
	var item models.Listing
	err := s.db.WithContext(ctx).Model(&models.Listing{}).Where("token_id = ?", tokenID).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) listingsQuery(ctx context.Context, params repository.ListListingsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Listing{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Seller != nil && strings.TrimSpace(*params.Seller) != "" {
		query = query.Where("seller = ?", strings.TrimSpace(*params.Seller))
	}
	if params.MinPrice != nil {
		query = query.Where("price_e8s >= ?", *params.MinPrice)
	}
	if params.MaxPrice != nil {
		query = query.Where("price_e8s <= ?", *params.MaxPrice)
	}
	return query
}

func (s *Store) ListListings(ctx context.Context, params repository.ListListingsParams) ([]models.Listing, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.listingsQuery(ctx, params), params.OrderBy, params.Asc, "updated_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Listing
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountListings(ctx context.Context, params repository.ListListingsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.listingsQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// MarkListingsStaleBefore flips listings not seen by any sync page or stream
// event since the cutoff to unlisted. Sold rows are left alone.
func (s *Store) MarkListingsStaleBefore(ctx context.Context, seenBefore time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if seenBefore.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.Listing{}).
		Where("status = ?", models.ListingStatusListed).
		Where("last_seen_at < ?", seenBefore).
		Updates(map[string]any{
			"status":     models.ListingStatusUnlisted,
			"updated_at": time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (s *Store) ListingsSummary(ctx context.Context) (repository.ListingsSummary, error) {
	out := repository.ListingsSummary{TotalValueTokens: decimal.Zero}
	if s == nil || s.db == nil {
		return out, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.Listing{}).
		Where("status = ?", models.ListingStatusListed).
		Count(&out.Listed).Error; err != nil {
		return out, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Listing{}).
		Where("status = ?", models.ListingStatusSold).
		Count(&out.Sold).Error; err != nil {
		return out, err
	}
	var sumE8s *string
	if err := s.db.WithContext(ctx).Model(&models.Listing{}).
		Where("status = ?", models.ListingStatusListed).
		Select("SUM(price_e8s)::text").
		Scan(&sumE8s).Error; err != nil {
		return out, err
	}
	if sumE8s != nil && strings.TrimSpace(*sumE8s) != "" {
		total, err := decimal.NewFromString(strings.TrimSpace(*sumE8s))
		if err == nil {
			out.TotalValueTokens = total.Div(decimal.NewFromInt(100_000_000))
		}
	}
	return out, nil
}

// --- Workflow runs -----------------------------------------------------------

func (s *Store) InsertWorkflowRun(ctx context.Context, item *models.WorkflowRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.RunID) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateWorkflowRun(ctx context.Context, runID string, updates map[string]any) error {
	if s == nil || s.db == nil {
		return nil
	}
	runID = strings.TrimSpace(runID)
	if runID == "" || len(updates) == 0 {
		return nil
	}
	next := map[string]any{
		"updated_at": time.Now().UTC(),
	}
	for k, v := range updates {
		next[k] = v
	}
	return s.db.WithContext(ctx).Model(&models.WorkflowRun{}).Where("run_id = ?", runID).Updates(next).Error
}

func (s *Store) GetWorkflowRunByRunID(ctx context.Context, runID string) (*models.WorkflowRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, nil
	}
	var item models.WorkflowRun
	err := s.db.WithContext(ctx).Model(&models.WorkflowRun{}).Where("run_id = ?", runID).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) runsQuery(ctx context.Context, params repository.ListWorkflowRunsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.WorkflowRun{})
	if params.Kind != nil && strings.TrimSpace(*params.Kind) != "" {
		query = query.Where("kind = ?", strings.TrimSpace(*params.Kind))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.TokenID != nil && *params.TokenID > 0 {
		query = query.Where("token_id = ?", *params.TokenID)
	}
	if params.Caller != nil && strings.TrimSpace(*params.Caller) != "" {
		query = query.Where("caller = ?", strings.TrimSpace(*params.Caller))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("started_at >= ?", *params.Since)
	}
	return query
}

func (s *Store) ListWorkflowRuns(ctx context.Context, params repository.ListWorkflowRunsParams) ([]models.WorkflowRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.runsQuery(ctx, params), params.OrderBy, params.Asc, "started_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.WorkflowRun
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountWorkflowRuns(ctx context.Context, params repository.ListWorkflowRunsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.runsQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListWorkflowRunsByStatus(ctx context.Context, status string, limit int) ([]models.WorkflowRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, nil
	}
	var items []models.WorkflowRun
	if err := s.db.WithContext(ctx).Model(&models.WorkflowRun{}).
		Where("status = ?", status).
		Order("started_at asc").
		Limit(normalizeLimit(limit, 50)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Purchases ---------------------------------------------------------------

func (s *Store) InsertPurchase(ctx context.Context, item *models.Purchase) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) purchasesQuery(ctx context.Context, params repository.ListPurchasesParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Purchase{})
	if params.Buyer != nil && strings.TrimSpace(*params.Buyer) != "" {
		query = query.Where("buyer = ?", strings.TrimSpace(*params.Buyer))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.TokenID != nil && *params.TokenID > 0 {
		query = query.Where("token_id = ?", *params.TokenID)
	}
	return query
}

func (s *Store) ListPurchases(ctx context.Context, params repository.ListPurchasesParams) ([]models.Purchase, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyOrder(s.purchasesQuery(ctx, params), params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Purchase
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPurchases(ctx context.Context, params repository.ListPurchasesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.purchasesQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// --- Sync state --------------------------------------------------------------

func (s *Store) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return nil, nil
	}
	var item models.SyncState
	err := s.db.WithContext(ctx).Model(&models.SyncState{}).Where("scope = ?", scope).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	if s == nil || s.db == nil || state == nil {
		return nil
	}
	if strings.TrimSpace(state.Scope) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"cursor",
			"last_success_at",
			"last_attempt_at",
			"last_error",
			"stats_json",
		}),
	}).Create(state).Error
}

// --- System settings ---------------------------------------------------------

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Key) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		query = query.Where("key LIKE ?", strings.TrimSpace(*params.Prefix)+"%")
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "key")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.SystemSetting
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers -----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
