package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/jonesrussell/gomonitor/internal/logger"
	"github.com/jonesrussell/gomonitor/internal/manager"
	"github.com/jonesrussell/gomonitor/internal/models"
)

const (
	defaultPageSize    = 20
	defaultHistorySize = 50
	dateLayout         = "2006-01-02"
)

// RecordService is the handler's view of the record manager.
type RecordService interface {
	Register(ctx context.Context, input manager.RegisterInput) (*manager.RegisterResult, error)
	BulkRegister(ctx context.Context, items []manager.RegisterInput, skipErrors bool) (*manager.BulkResult, error)
	UpdateStock(ctx context.Context, externalID int64, newStock int, platform *models.Platform) (*manager.StockUpdateResult, error)
	UpdatePrice(ctx context.Context, externalID int64, newPrice decimal.Decimal, platform *models.Platform) (*manager.PriceUpdateResult, error)
	List(ctx context.Context, filter manager.ListFilter) ([]models.ListedRecord, int, error)
	Detail(ctx context.Context, recordID int64) (*models.ListedRecord, error)
	History(ctx context.Context, recordID int64, filter manager.HistoryFilter) ([]models.HistoryEntry, error)
	Toggle(ctx context.Context, externalID int64, enabled bool) (int64, error)
	Remove(ctx context.Context, externalID int64, confirm bool) (*manager.RemoveResult, error)
	Stats(ctx context.Context) (*manager.SystemStats, error)
}

// RecordHandler exposes record operations over HTTP.
type RecordHandler struct {
	service RecordService
	log     logger.Logger
}

func NewRecordHandler(service RecordService, log logger.Logger) *RecordHandler {
	return &RecordHandler{service: service, log: log}
}

type listQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Platform string `form:"platform" binding:"omitempty,oneof=yahoo mercari rakuten"`
	Search   string `form:"search" binding:"omitempty,max=255"`
}

func (h *RecordHandler) List(c *gin.Context) {
	e := begin(c)

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		e.validationFailed(fieldErrors(err))
		return
	}
	if q.Page == 0 {
		q.Page = 1
	}
	if q.Limit == 0 {
		q.Limit = defaultPageSize
	}

	filter := manager.ListFilter{
		Platform: platformPtr(q.Platform),
		Search:   q.Search,
		Limit:    q.Limit,
		Offset:   (q.Page - 1) * q.Limit,
	}

	records, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.log.Error("Failed to list records", logger.Error(err))
		e.failFrom(err)
		return
	}

	e.okList(gin.H{"records": records}, "records listed", NewPagination(q.Page, q.Limit, total))
}

func (h *RecordHandler) Detail(c *gin.Context) {
	e := begin(c)

	recordID, ok := pathID(c)
	if !ok {
		e.validationFailed(map[string][]string{"recordId": {"must be a positive integer"}})
		return
	}

	record, err := h.service.Detail(c.Request.Context(), recordID)
	if err != nil {
		e.failFrom(err)
		return
	}

	e.ok(record, "record detail")
}

type historyQuery struct {
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=200"`
	ChangeType string `form:"changeType" binding:"omitempty,oneof=stock_change price_change both"`
	DateFrom   string `form:"dateFrom" binding:"omitempty,datetime=2006-01-02"`
	DateTo     string `form:"dateTo" binding:"omitempty,datetime=2006-01-02"`
}

func (h *RecordHandler) History(c *gin.Context) {
	e := begin(c)

	recordID, ok := pathID(c)
	if !ok {
		e.validationFailed(map[string][]string{"recordId": {"must be a positive integer"}})
		return
	}

	var q historyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		e.validationFailed(fieldErrors(err))
		return
	}
	if q.Limit == 0 {
		q.Limit = defaultHistorySize
	}

	filter := manager.HistoryFilter{Limit: q.Limit}
	if q.ChangeType != "" {
		ct := models.ChangeType(q.ChangeType)
		filter.ChangeType = &ct
	}
	if q.DateFrom != "" {
		from, _ := time.Parse(dateLayout, q.DateFrom)
		filter.DateFrom = &from
	}
	if q.DateTo != "" {
		// Inclusive upper bound: the whole given day.
		to, _ := time.Parse(dateLayout, q.DateTo)
		to = to.Add(24*time.Hour - time.Nanosecond)
		filter.DateTo = &to
	}

	entries, err := h.service.History(c.Request.Context(), recordID, filter)
	if err != nil {
		h.log.Error("Failed to query history",
			logger.Int64("record_id", recordID),
			logger.Error(err),
		)
		e.failFrom(err)
		return
	}

	e.ok(gin.H{"entries": entries, "count": len(entries)}, "record history")
}

type registerRequest struct {
	ExternalID      int64   `json:"externalId" binding:"required,min=1"`
	SourceURL       string  `json:"sourceUrl" binding:"required,url"`
	Platform        string  `json:"platform" binding:"required,oneof=yahoo mercari rakuten"`
	SourceProductID *string `json:"sourceProductId" binding:"omitempty,max=100"`
}

func (r registerRequest) toInput() manager.RegisterInput {
	return manager.RegisterInput{
		ExternalID:      r.ExternalID,
		SourceURL:       r.SourceURL,
		Platform:        models.Platform(r.Platform),
		SourceProductID: r.SourceProductID,
	}
}

func (h *RecordHandler) Register(c *gin.Context) {
	e := begin(c)

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		e.validationFailed(fieldErrors(err))
		return
	}

	result, err := h.service.Register(c.Request.Context(), req.toInput())
	if err != nil {
		e.failFrom(err)
		return
	}

	e.created(result, "record registered")
}

type bulkRegisterRequest struct {
	Products   []registerRequest `json:"products" binding:"required,min=1,dive"`
	SkipErrors bool              `json:"skipErrors"`
}

func (h *RecordHandler) BulkRegister(c *gin.Context) {
	e := begin(c)

	var req bulkRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		e.validationFailed(fieldErrors(err))
		return
	}

	items := make([]manager.RegisterInput, len(req.Products))
	for i, p := range req.Products {
		items[i] = p.toInput()
	}

	result, err := h.service.BulkRegister(c.Request.Context(), items, req.SkipErrors)
	if err != nil {
		e.failFrom(err)
		return
	}

	e.created(result, "bulk registration finished")
}

type updateStockRequest struct {
	ExternalID int64  `json:"externalId" binding:"required,min=1"`
	NewStock   *int   `json:"newStock" binding:"required,gte=0"`
	Platform   string `json:"platform" binding:"omitempty,oneof=yahoo mercari rakuten"`
}

func (h *RecordHandler) UpdateStock(c *gin.Context) {
	e := begin(c)

	var req updateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		e.validationFailed(fieldErrors(err))
		return
	}

	result, err := h.service.UpdateStock(c.Request.Context(), req.ExternalID, *req.NewStock, platformPtr(req.Platform))
	if err != nil {
		e.failFrom(err)
		return
	}

	message := "stock updated"
	if !result.Changed {
		message = "no change"
	}
	e.ok(result, message)
}

type updatePriceRequest struct {
	ExternalID int64    `json:"externalId" binding:"required,min=1"`
	NewPrice   *float64 `json:"newPrice" binding:"required,gte=0"`
	Platform   string   `json:"platform" binding:"omitempty,oneof=yahoo mercari rakuten"`
}

func (h *RecordHandler) UpdatePrice(c *gin.Context) {
	e := begin(c)

	var req updatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		e.validationFailed(fieldErrors(err))
		return
	}

	result, err := h.service.UpdatePrice(c.Request.Context(), req.ExternalID, decimal.NewFromFloat(*req.NewPrice), platformPtr(req.Platform))
	if err != nil {
		e.failFrom(err)
		return
	}

	message := "price updated"
	if !result.Changed {
		message = "no change"
	}
	e.ok(result, message)
}

type toggleRequest struct {
	ExternalID int64 `json:"externalId" binding:"required,min=1"`
	Enabled    *bool `json:"enabled" binding:"required"`
}

func (h *RecordHandler) ToggleMonitoring(c *gin.Context) {
	e := begin(c)

	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		e.validationFailed(fieldErrors(err))
		return
	}

	affected, err := h.service.Toggle(c.Request.Context(), req.ExternalID, *req.Enabled)
	if err != nil {
		e.failFrom(err)
		return
	}

	e.ok(gin.H{"affected": affected}, "monitoring toggled")
}

type removeQuery struct {
	ExternalID int64 `form:"externalId" binding:"required,min=1"`
	Confirm    *bool `form:"confirm" binding:"required"`
}

func (h *RecordHandler) Remove(c *gin.Context) {
	e := begin(c)

	var q removeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		e.validationFailed(fieldErrors(err))
		return
	}

	result, err := h.service.Remove(c.Request.Context(), q.ExternalID, *q.Confirm)
	if err != nil {
		e.failFrom(err)
		return
	}

	e.ok(result, "record removed")
}

func (h *RecordHandler) Stats(c *gin.Context) {
	e := begin(c)

	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to compute stats", logger.Error(err))
		e.failFrom(err)
		return
	}

	e.ok(stats, "system stats")
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func platformPtr(s string) *models.Platform {
	if s == "" {
		return nil
	}
	p := models.Platform(s)
	return &p
}
