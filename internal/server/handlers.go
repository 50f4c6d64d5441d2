package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangsam/leadscore/core"
	"github.com/huangsam/leadscore/internal/contract"
	"github.com/huangsam/leadscore/schema"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgBodyTooLarge     = "request body too large"
)

// handler serves the v1 API for the tenant carried by the request context.
type handler struct {
	baseCfg *contract.Config
	mgr     contract.StoreManager
	engine  *core.Engine
}

type putConfigRequest struct {
	Version    *int                                            `json:"version" validate:"required,min=0"`
	Weights    *schema.WeightSet                               `json:"weights"`
	Thresholds *schema.ThresholdSet                            `json:"thresholds"`
	Dimensions map[schema.DimensionKey]schema.DimensionOptions `json:"dimensions"`
}

type setWeightRequest struct {
	Dimension     string `json:"dimension" validate:"required"`
	Weight        *int   `json:"weight" validate:"required,min=0,max=100"`
	AcceptClamped bool   `json:"accept_clamped"`
}

type setThresholdsRequest struct {
	HotMin  *int `json:"hot_min" validate:"required,min=0,max=100"`
	WarmMin *int `json:"warm_min" validate:"required,min=0,max=100"`
}

type batchRequest struct {
	Contacts []schema.Contact `json:"contacts" validate:"required,min=1,max=1000"`
}

func (h *handler) service() *core.ConfigService {
	var store contract.ConfigStore
	if h.mgr != nil {
		store = h.mgr.GetConfigStore()
	}
	return core.NewConfigService(store, h.baseCfg.FrameworkConfigs)
}

func (h *handler) results() contract.ResultStore {
	if h.mgr == nil {
		return nil
	}
	return h.mgr.GetResultStore()
}

func (h *handler) tenant(ctx context.Context) string {
	if tenant, ok := core.TenantFromContext(ctx); ok {
		return tenant
	}
	return h.baseCfg.Tenant
}

// bind decodes the JSON body into req and validates its tags.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		abortReadError(c, err)
		return false
	}
	if err := contract.ValidateStruct(req); err != nil {
		abortError(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return false
	}
	return true
}

// abortReadError answers 413 when the body limit was hit, 400 otherwise.
func abortReadError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		abortError(c, http.StatusRequestEntityTooLarge, msgBodyTooLarge, fmt.Sprintf("limit is %d bytes", tooLarge.Limit))
		return
	}
	abortError(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
}

func frameworkParam(c *gin.Context) (schema.FrameworkID, bool) {
	fw, err := schema.ParseFrameworkID(c.Param("framework"))
	if err != nil {
		handleError(c, err)
		return "", false
	}
	return fw, true
}

// Health reports liveness.
// GET /healthz
func (h *handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListFrameworks returns the tenant's effective configuration of every framework.
// GET /v1/frameworks
func (h *handler) ListFrameworks(c *gin.Context) {
	ctx := c.Request.Context()
	cfgs, err := h.service().LoadAll(ctx, h.tenant(ctx), schema.AllFrameworks)
	if handleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"tenant": h.tenant(ctx), "frameworks": cfgs})
}

// GetConfig returns one framework configuration.
// GET /v1/configs/:framework
func (h *handler) GetConfig(c *gin.Context) {
	fw, ok := frameworkParam(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	fc, err := h.service().Load(ctx, h.tenant(ctx), fw)
	if handleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, fc)
}

// PutConfig replaces the parts of a configuration present in the body. The
// body version must match the stored version.
// PUT /v1/configs/:framework
func (h *handler) PutConfig(c *gin.Context) {
	fw, ok := frameworkParam(c)
	if !ok {
		return
	}
	var req putConfigRequest
	if !bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	svc := h.service()
	fc, err := svc.Load(ctx, h.tenant(ctx), fw)
	if handleError(c, err) {
		return
	}
	if req.Weights != nil {
		fc = fc.WithWeights(*req.Weights)
	}
	if req.Thresholds != nil {
		fc = fc.WithThresholds(*req.Thresholds)
	}
	for key, opts := range req.Dimensions {
		fc = fc.WithDimension(key, opts)
	}
	fc.Version = *req.Version

	saved, err := svc.Save(ctx, h.tenant(ctx), fc)
	if handleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, saved)
}

// SetWeight edits one dimension weight. A rebalance that clamped other
// dimensions answers 409 with the proposal unless accept_clamped is set.
// PATCH /v1/configs/:framework/weights
func (h *handler) SetWeight(c *gin.Context) {
	fw, ok := frameworkParam(c)
	if !ok {
		return
	}
	var req setWeightRequest
	if !bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	key := schema.DimensionKey(strings.ToLower(strings.TrimSpace(req.Dimension)))
	fc, err := h.service().SetWeight(ctx, h.tenant(ctx), fw, key, *req.Weight, req.AcceptClamped)
	if unbalanced, clamped := schema.AsUnbalanced(err); clamped {
		resp := weightsResponse{
			Saved:    req.AcceptClamped,
			Advisory: unbalanced.Error(),
			Clamped:  unbalanced.Clamped,
			Config:   fc,
		}
		if !req.AcceptClamped {
			c.JSON(http.StatusConflict, resp)
			return
		}
		c.JSON(http.StatusOK, resp)
		return
	}
	if handleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, weightsResponse{Saved: true, Config: fc})
}

// SetThresholds replaces the tier thresholds.
// PUT /v1/configs/:framework/thresholds
func (h *handler) SetThresholds(c *gin.Context) {
	fw, ok := frameworkParam(c)
	if !ok {
		return
	}
	var req setThresholdsRequest
	if !bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	ts := schema.ThresholdSet{HotMin: *req.HotMin, WarmMin: *req.WarmMin}
	fc, err := h.service().SetThresholds(ctx, h.tenant(ctx), fw, ts)
	if handleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, fc)
}

// Score scores one enrichment payload. The framework "all" scores every
// framework and answers with a list.
// POST /v1/score/:framework
func (h *handler) Score(c *gin.Context) {
	frameworks, err := contract.ParseFrameworkList(c.Param("framework"))
	if err != nil {
		handleError(c, err)
		return
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abortReadError(c, err)
		return
	}
	payload, err := core.DecodePayload(body)
	if handleError(c, err) {
		return
	}
	if id := c.Query("contact_id"); id != "" {
		payload.ContactID = id
	}

	ctx := c.Request.Context()
	cfgs, err := h.service().LoadAll(ctx, h.tenant(ctx), frameworks)
	if handleError(c, err) {
		return
	}
	results, err := h.engine.ScoreFrameworks(payload, cfgs...)
	if handleError(c, err) {
		return
	}
	if len(results) == 1 && !strings.EqualFold(c.Param("framework"), "all") {
		c.JSON(http.StatusOK, results[0])
		return
	}
	c.JSON(http.StatusOK, results)
}

// ScoreBatch scores many contacts against one framework and records the run.
// POST /v1/score/:framework/batch
func (h *handler) ScoreBatch(c *gin.Context) {
	fw, ok := frameworkParam(c)
	if !ok {
		return
	}
	var req batchRequest
	if !bind(c, &req) {
		return
	}

	ctx := c.Request.Context()
	fc, err := h.service().Load(ctx, h.tenant(ctx), fw)
	if handleError(c, err) {
		return
	}
	batch, err := core.RunBatch(ctx, h.engine, h.results(), h.tenant(ctx), req.Contacts, fc)
	if handleError(c, err) {
		return
	}
	if batch.Canceled {
		_ = c.Error(errors.New("batch canceled before every contact finished"))
	}
	c.JSON(http.StatusOK, batch)
}
