package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/airportsim/internal/api/metrics"
	"github.com/edirooss/airportsim/internal/config"
	"github.com/edirooss/airportsim/internal/domain/flight"
	"github.com/edirooss/airportsim/internal/infrastructure/hmfq"
	"github.com/edirooss/airportsim/internal/infrastructure/obslog"
	"github.com/edirooss/airportsim/internal/infrastructure/resourcepool"
	"github.com/edirooss/airportsim/internal/service/external"
)

// fakeController backs the Controller interface with real infrastructure
// pieces (a real Scheduler/Crisis/Manager/Banker), the same way the handlers
// would see them from the engine, minus the rest of the engine's moving
// parts.
type fakeController struct {
	sched     *hmfq.Scheduler
	crisis    *external.InMemoryCrisis
	logs      *obslog.Manager
	resources *resourcepool.Banker
}

func (f *fakeController) Scheduler() *hmfq.Scheduler       { return f.sched }
func (f *fakeController) Crisis() *external.InMemoryCrisis { return f.crisis }
func (f *fakeController) Logs() *obslog.Manager            { return f.logs }
func (f *fakeController) Resources() *resourcepool.Banker  { return f.resources }

func newTestController(t *testing.T) *fakeController {
	t.Helper()
	obs, err := obslog.New(zap.NewNop(), t.TempDir())
	if err != nil {
		t.Fatalf("obslog.New: %v", err)
	}
	t.Cleanup(func() { _ = obs.Close() })

	sched := hmfq.New(
		hmfq.NewCalculator(config.DefaultPISWeights()),
		hmfq.NewAgingManager(config.DefaultAgingConfig()),
		hmfq.NewQuantumManager(config.DefaultQuantumConfig()),
		hmfq.NewPreemptionManager(config.DefaultPreemptionConfig()),
		hmfq.NewInheritanceTable(),
		hmfq.NewLearningEngine(config.DefaultLearningConfig()),
	)

	capacity := resourcepool.CapacityFromCounts(map[resourcepool.Kind]int{resourcepool.FuelTruck: 2})
	return &fakeController{
		sched:     sched,
		crisis:    external.NewInMemoryCrisis(),
		logs:      obs,
		resources: resourcepool.NewBanker(capacity),
	}
}

type fakeSource struct{}

func (fakeSource) ActiveFlights() []*flight.Flight                    { return nil }
func (fakeSource) SimTime() int64                                     { return 42 }
func (fakeSource) RunwayCounts() (int, int)                           { return 3, 4 }
func (fakeSource) GateCounts() (int, int)                             { return 5, 8 }
func (fakeSource) HandledTotals() (int64, int64, float64)             { return 2, 1, 90.5 }
func (fakeSource) PageFaults() (int64, int64, float64)                { return 1, 9, 0.1 }
func (fakeSource) QueueDepths() [5]int                                { return [5]int{1, 2, 3, 4, 5} }
func (fakeSource) ContextSwitches() int64                             { return 7 }

func newTestRouter(t *testing.T) (*fakeController, *metrics.Service) {
	ctl := newTestController(t)
	svc := metrics.NewService(zap.NewNop(), fakeSource{}, metrics.Options{TTL: time.Hour})
	return ctl, svc
}

func doRequest(t *testing.T, r http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetMetricsReturnsSnapshot(t *testing.T) {
	ctl, svc := newTestRouter(t)
	r := NewRouter(zap.NewNop(), ctl, svc)

	w := doRequest(t, r, http.MethodGet, "/api/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Cache") == "" {
		t.Errorf("missing X-Cache header")
	}

	var snap metrics.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.CurrentSimTime != 42 {
		t.Errorf("CurrentSimTime = %d, want 42", snap.CurrentSimTime)
	}
}

func TestGetLogsUnknownChannelReturns404(t *testing.T) {
	ctl, svc := newTestRouter(t)
	r := NewRouter(zap.NewNop(), ctl, svc)

	w := doRequest(t, r, http.MethodGet, "/api/logs/nonsense", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetLogsKnownChannelReturnsLines(t *testing.T) {
	ctl, svc := newTestRouter(t)
	ctl.logs.Log(obslog.Scheduling, "hello there")
	r := NewRouter(zap.NewNop(), ctl, svc)

	w := doRequest(t, r, http.MethodGet, "/api/logs/scheduling", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var payload struct {
		Channel string   `json:"channel"`
		Lines   []string `json:"lines"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(payload.Lines) != 1 {
		t.Fatalf("lines = %v, want 1 entry", payload.Lines)
	}
}

func TestPostWeatherUpdatesCrisis(t *testing.T) {
	ctl, svc := newTestRouter(t)
	r := NewRouter(zap.NewNop(), ctl, svc)

	body, _ := json.Marshal(map[string]any{"severity": "SEVERE", "window": 0.4, "ground_stop": true})
	w := doRequest(t, r, http.MethodPost, "/api/crisis/weather", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}

	sev, window := ctl.crisis.Weather()
	if sev != external.Severe || window != 0.4 || !ctl.crisis.GroundStop() {
		t.Errorf("crisis state = (%v, %v, %v), want (Severe, 0.4, true)", sev, window, ctl.crisis.GroundStop())
	}
}

func TestPostWeatherUnknownSeverityReturns400(t *testing.T) {
	ctl, svc := newTestRouter(t)
	r := NewRouter(zap.NewNop(), ctl, svc)

	// "TORNADO" fails the binding:"oneof=..." tag before the handler's own
	// severityByName lookup is ever reached.
	body, _ := json.Marshal(map[string]any{"severity": "TORNADO", "window": 0.5})
	w := doRequest(t, r, http.MethodPost, "/api/crisis/weather", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for an unknown severity enum", w.Code)
	}
}

func TestPatchWeightsRejectsInvalidSum(t *testing.T) {
	ctl, svc := newTestRouter(t)
	r := NewRouter(zap.NewNop(), ctl, svc)

	body, _ := json.Marshal(map[string]any{"alpha": 0.9, "beta": 0.9})
	w := doRequest(t, r, http.MethodPatch, "/api/scheduler/weights", body)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 for weights that don't sum to 1, body=%s", w.Code, w.Body.String())
	}
}

func TestPatchWeightsAppliesPartialUpdate(t *testing.T) {
	ctl, svc := newTestRouter(t)
	r := NewRouter(zap.NewNop(), ctl, svc)

	before := ctl.sched.PIS().Weights()
	// Swap alpha/gamma so the sum stays at 1 without touching beta/delta/eps.
	body, _ := json.Marshal(map[string]any{"alpha": before.Gamma, "gamma": before.Alpha})
	w := doRequest(t, r, http.MethodPatch, "/api/scheduler/weights", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}

	after := ctl.sched.PIS().Weights()
	if after.Alpha != before.Gamma || after.Gamma != before.Alpha {
		t.Errorf("weights after patch = %+v, want alpha/gamma swapped from %+v", after, before)
	}
	if after.Beta != before.Beta || after.Delta != before.Delta || after.Eps != before.Eps {
		t.Errorf("untouched fields changed: before=%+v after=%+v", before, after)
	}
}

func TestPostCooldownSetsLearningCooldown(t *testing.T) {
	ctl, svc := newTestRouter(t)
	r := NewRouter(zap.NewNop(), ctl, svc)

	body, _ := json.Marshal(map[string]any{"rounds": 3})
	w := doRequest(t, r, http.MethodPost, "/api/scheduler/cooldown", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}
}

func TestGetResourcesSafeReportsBankerState(t *testing.T) {
	ctl, svc := newTestRouter(t)
	r := NewRouter(zap.NewNop(), ctl, svc)

	w := doRequest(t, r, http.MethodGet, "/api/resources/safe", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", w.Code, w.Body.String())
	}

	var payload struct {
		Safe bool `json:"safe"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !payload.Safe {
		t.Errorf("safe = false for a Banker pool with no registered flights, want true (vacuously safe)")
	}
}

func TestPostWeatherRejectsOutOfRangeWindow(t *testing.T) {
	ctl, svc := newTestRouter(t)
	r := NewRouter(zap.NewNop(), ctl, svc)

	body, _ := json.Marshal(map[string]any{"severity": "SEVERE", "window": 1.5})
	w := doRequest(t, r, http.MethodPost, "/api/crisis/weather", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for window outside [0,1] (binding:\"gte=0,lte=1\")", w.Code)
	}
}

func TestPostCooldownRejectsNegativeRounds(t *testing.T) {
	ctl, svc := newTestRouter(t)
	r := NewRouter(zap.NewNop(), ctl, svc)

	body, _ := json.Marshal(map[string]any{"rounds": -1})
	w := doRequest(t, r, http.MethodPost, "/api/scheduler/cooldown", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for negative rounds (binding:\"gte=0\")", w.Code)
	}
}

func TestPingReturnsPong(t *testing.T) {
	ctl, svc := newTestRouter(t)
	r := NewRouter(zap.NewNop(), ctl, svc)

	w := doRequest(t, r, http.MethodGet, "/api/ping", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
