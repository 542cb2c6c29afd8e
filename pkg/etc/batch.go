package etc

import (
	"log/slog"
	"runtime"
	"sync"
)

// Mode selects which figure of merit a scenario asks for.
type Mode int

const (
	ModeSNR Mode = iota
	ModeExposureTime
	ModeSensitivity
)

func (m Mode) String() string {
	switch m {
	case ModeExposureTime:
		return "exposure time"
	case ModeSensitivity:
		return "sensitivity"
	default:
		return "snr"
	}
}

// Scenario is one evaluation request against an assembled detector.
type Scenario struct {
	Name      string
	Mode      Mode
	ExpTime   float64 // s, for ModeSNR and ModeSensitivity
	SNRTarget float64 // for ModeExposureTime and ModeSensitivity
	TargetMag float64 // apparent magnitude of the configured target, for ModeSensitivity
}

// Result carries one scenario outcome. A failed scenario keeps its error
// without aborting the rest of the batch.
type Result struct {
	Scenario Scenario
	Value    Quantity
	Err      error
}

func evaluate(det Detector, sc Scenario) Result {
	res := Result{Scenario: sc}
	switch sc.Mode {
	case ModeSNR:
		v, err := det.SNR(sc.ExpTime)
		res.Value, res.Err = Quantity{Value: v, Unit: Dimensionless}, err
	case ModeExposureTime:
		v, err := det.ExposureTime(sc.SNRTarget)
		res.Value, res.Err = Quantity{Value: v, Unit: Second}, err
	case ModeSensitivity:
		v, err := det.Sensitivity(sc.ExpTime, sc.SNRTarget, sc.TargetMag)
		res.Value, res.Err = Quantity{Value: v, Unit: Magnitude}, err
	default:
		res.Err = configErrorf("Scenario", "unknown mode %d", sc.Mode)
	}
	return res
}

// RunBatch evaluates the scenarios against the detector on a worker pool.
// The chain is evaluated once up front, the workers only read cached state.
// Results keep the scenario order.
func RunBatch(det Detector, scenarios []Scenario, workers int) []Result {
	results := make([]Result, len(scenarios))
	if len(scenarios) == 0 {
		return results
	}
	if err := det.Prime(); err != nil {
		for i, sc := range scenarios {
			results[i] = Result{Scenario: sc, Err: err}
		}
		return results
	}
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > len(scenarios) {
		workers = len(scenarios)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = evaluate(det, scenarios[i])
			}
		}()
	}
	for i := range scenarios {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, res := range results {
		if res.Err != nil {
			slog.Warn("scenario failed", "name", res.Scenario.Name, "mode", res.Scenario.Mode, "err", res.Err)
		}
	}
	return results
}
