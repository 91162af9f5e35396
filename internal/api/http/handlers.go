package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"github.com/edirooss/airportsim/internal/api/http/dto"
	"github.com/edirooss/airportsim/internal/api/metrics"
	"github.com/edirooss/airportsim/internal/config"
	"github.com/edirooss/airportsim/internal/infrastructure/obslog"
	"github.com/edirooss/airportsim/internal/service/external"
	"github.com/edirooss/airportsim/pkg/jsonx"
)

type handlers struct {
	log     *zap.Logger
	ctl     Controller
	metrics *metrics.Service
}

// getMetrics serves GET /api/metrics (spec.md §6.1), with cache-status
// headers in the same style as the teacher's /api/channels/summary.
func (h *handlers) getMetrics(c *gin.Context) {
	if c.Query("force") == "1" {
		h.metrics.Invalidate()
	}

	res, err := h.metrics.Get(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}

	c.Header("X-Cache", map[bool]string{true: "HIT", false: "MISS"}[res.CacheHit])
	c.Header("X-Metrics-Generated-At", strconv.FormatInt(res.GeneratedAt.UnixMilli(), 10))
	c.JSON(http.StatusOK, res.Data)
}

var channelsByName = map[string]obslog.Channel{
	"scheduling":  obslog.Scheduling,
	"memory":      obslog.Memory,
	"events":      obslog.Events,
	"performance": obslog.Performance,
	"resources":   obslog.Resources,
}

// getLogs serves GET /api/logs/:channel, tailing the named channel's ring
// buffer (spec.md §6.5/§6.6).
func (h *handlers) getLogs(c *gin.Context) {
	name := c.Param("channel")
	ch, ok := channelsByName[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "unknown log channel"})
		return
	}

	n := 100
	if raw := c.Query("n"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			n = parsed
		}
	}

	lines := h.ctl.Logs().Tail(ch, n)
	c.Header("X-Total-Count", strconv.Itoa(len(lines)))
	c.JSON(http.StatusOK, gin.H{"channel": name, "lines": lines})
}

var severityByName = map[string]external.Severity{
	"CLEAR":    external.Clear,
	"LIGHT":    external.Light,
	"MODERATE": external.Moderate,
	"SEVERE":   external.Severe,
	"EXTREME":  external.Extreme,
}

// postWeather serves POST /api/crisis/weather (spec.md §6.3): push a new
// weather severity/window/ground-stop state into the shared crisis source.
func (h *handlers) postWeather(c *gin.Context) {
	var req dto.WeatherReq
	if err := jsonx.ParseStrictJSONBody(c.Request, &req); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	sev, ok := severityByName[req.Severity]
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "unknown severity"})
		return
	}

	h.ctl.Crisis().Report(sev, req.Window, req.GroundStop)
	c.JSON(http.StatusOK, gin.H{"severity": req.Severity, "window": req.Window, "ground_stop": req.GroundStop})
}

// patchWeights serves PATCH /api/scheduler/weights (spec.md §4.7, §6.3):
// apply only the fields the caller sent, starting from the scheduler's
// current weights, and reject (422) if the result doesn't sum to 1±0.01.
func (h *handlers) patchWeights(c *gin.Context) {
	var req dto.WeightsReq
	if err := jsonx.ParseStrictJSONBody(c.Request, &req); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	calc := h.ctl.Scheduler().PIS()
	next := calc.Weights()

	if v, ok := req.Alpha.Value(); ok {
		next.Alpha = v
	}
	if v, ok := req.Beta.Value(); ok {
		next.Beta = v
	}
	if v, ok := req.Gamma.Value(); ok {
		next.Gamma = v
	}
	if v, ok := req.Delta.Value(); ok {
		next.Delta = v
	}
	if v, ok := req.Eps.Value(); ok {
		next.Eps = v
	}

	if !calc.UpdateWeights(next) {
		_ = c.Error(errors.New("weights must sum to 1 within ±0.01"))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "weights must sum to 1 within ±0.01"})
		return
	}

	c.JSON(http.StatusOK, toWeightsResp(next))
}

// postCooldown serves POST /api/scheduler/cooldown (spec.md §6.3): hold the
// learning engine's weight shifts steady for the next N completions.
func (h *handlers) postCooldown(c *gin.Context) {
	var req dto.CooldownReq
	if err := jsonx.ParseStrictJSONBody(c.Request, &req); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	h.ctl.Scheduler().Learning().Cooldown(req.Rounds)
	c.JSON(http.StatusOK, gin.H{"rounds": req.Rounds})
}

// getResourcesSafe serves GET /api/resources/safe (spec.md §4.5, C5): report
// whether the Banker's pool's current allocation state is safe. Diagnostic
// only — the lifecycle driver's hot path never calls into the Banker, per
// spec.md §4.5's "remains available for future use."
func (h *handlers) getResourcesSafe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"safe": h.ctl.Resources().IsSafe()})
}

func toWeightsResp(w config.PISWeights) dto.WeightsResp {
	return dto.WeightsResp{Alpha: w.Alpha, Beta: w.Beta, Gamma: w.Gamma, Delta: w.Delta, Eps: w.Eps}
}
