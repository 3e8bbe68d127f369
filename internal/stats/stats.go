package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"time"
)

const (
	Commands         = "Commands"
	CommandFailures  = "CommandFailures"
	StrokesApplied   = "StrokesApplied"
	GuessesSubmitted = "GuessesSubmitted"
	CorrectGuesses   = "CorrectGuesses"
	ActiveClients    = "ActiveClients"
	RoomsPurged      = "RoomsPurged"
)

var defaultMetrics = []string{
	Commands,
	CommandFailures,
	StrokesApplied,
	GuessesSubmitted,
	CorrectGuesses,
	ActiveClients,
	RoomsPurged,
}

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	Add(name string, delta int)
	RegisterMetric(name string)
	Run()
}

// StatsUpdater applies counter changes on a single goroutine so callers never
// block on the map.
type StatsUpdater struct {
	vars       *expvar.Map
	updateChan chan metricsUpdateReq
	done       chan struct{}
}

type metricsUpdateReq struct {
	name  string
	value int
}

func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	data := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		if err := json.Unmarshal([]byte(kv.Value.String()), &value); err == nil {
			data[kv.Key] = value
		}
	})

	json.NewEncoder(w).Encode(data)
}

// NewStatsUpdater registers GET /debug/vars on mux and the default drawsync
// counters.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		vars:       new(expvar.Map).Init(),
		updateChan: make(chan metricsUpdateReq, 512),
		done:       make(chan struct{}),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))

	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))
	for _, name := range defaultMetrics {
		su.RegisterMetric(name)
	}
	return su
}

func (su *StatsUpdater) updateMetrics() {
	defer close(su.done)
	for req := range su.updateChan {
		metric, ok := su.vars.Get(req.name).(*expvar.Int)
		if !ok {
			metric = expvar.NewInt(req.name)
			su.vars.Set(req.name, metric)
		}
		metric.Add(int64(req.value))
	}
}

func (su *StatsUpdater) Incr(name string) {
	su.Add(name, 1)
}

func (su *StatsUpdater) Decr(name string) {
	su.Add(name, -1)
}

func (su *StatsUpdater) Add(name string, delta int) {
	su.updateChan <- metricsUpdateReq{name: name, value: delta}
}

func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, new(expvar.Int))
}

// Value returns a counter's current value, or 0 for an unknown name.
func (su *StatsUpdater) Value(name string) int64 {
	if v, ok := su.vars.Get(name).(*expvar.Int); ok {
		return v.Value()
	}
	return 0
}

func (su *StatsUpdater) Run() {
	go su.updateMetrics()
}

// Stop drains pending updates. No counter may change after it returns.
func (su *StatsUpdater) Stop() {
	close(su.updateChan)
	<-su.done
}

// CountCommand records one handled command and, when it failed, a failure.
func CountCommand(sp StatsProvider, succeeded bool) {
	sp.Incr(Commands)
	if !succeeded {
		sp.Incr(CommandFailures)
	}
}
