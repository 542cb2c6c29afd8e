package etc

import (
	"math"
	"testing"
)

func testScene(t *testing.T) *Scene {
	t.Helper()
	common := CommonConf{
		WlMin:     500 * Nanometer,
		WlMax:     600 * Nanometer,
		WlDelta:   5 * Nanometer,
		DAperture: 0.5,
	}
	reflectance, err := ConstantSpectrum(common.WlBins(), 0.9, Dimensionless)
	if err != nil {
		t.Fatalf("ConstantSpectrum: %v", err)
	}
	qe, err := ConstantSpectrum(common.WlBins(), 0.8, ElectronPerPhoton)
	if err != nil {
		t.Fatalf("ConstantSpectrum: %v", err)
	}
	params := NewImagerParams()
	params.QuantumEfficiency = qe
	params.PixelsX = 64
	params.PixelsY = 64
	params.PixelSize = 6.5e-6
	params.FNumber = 13
	return &Scene{
		Common: common,
		Target: BlackBodyTargetSpec{Params: NewBlackBodyTargetParams()},
		Components: []ComponentSpec{
			CosmicBackgroundSpec{Temp: 270, Emissivity: 1},
			MirrorSpec{Reflectance: reflectance, Obstruction: NewObstructionParams()},
		},
		Detector: ImagerSpec{Params: params},
	}
}

func TestCommonConfWlBins(t *testing.T) {
	c := CommonConf{WlMin: 500 * Nanometer, WlMax: 600 * Nanometer, WlDelta: 5 * Nanometer, DAperture: 1}
	bins := c.WlBins()
	if len(bins) != 21 {
		t.Fatalf("bins = %d, want 21", len(bins))
	}
	if bins[0] != 500*Nanometer {
		t.Errorf("first bin = %g, want %g", bins[0], 500*Nanometer)
	}
	if math.Abs(bins[20]-600*Nanometer) > 1e-18 {
		t.Errorf("last bin = %g, want %g", bins[20], 600*Nanometer)
	}
}

func TestSceneAssemble(t *testing.T) {
	det, err := testScene(t).Assemble()
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	snr, err := det.SNR(100)
	if err != nil {
		t.Fatalf("SNR: %v", err)
	}
	if snr <= 0 {
		t.Errorf("SNR = %g, want > 0", snr)
	}
}

func TestSceneAssembleChain(t *testing.T) {
	node, det, err := testScene(t).AssembleChain()
	if err != nil {
		t.Fatalf("AssembleChain: %v", err)
	}
	if det == nil {
		t.Fatal("no detector returned")
	}
	sig, err := node.Signal()
	if err != nil {
		t.Fatalf("Signal: %v", err)
	}
	// Mirror reflectance must already be applied at the last node.
	target, err := NewBlackBodyTarget(testScene(t).Common.WlBins(), NewBlackBodyTargetParams())
	if err != nil {
		t.Fatalf("NewBlackBodyTarget: %v", err)
	}
	raw, _ := target.Signal()
	if !sig.Flux.Equal(raw.Flux.Scale(0.9), 1e-9) {
		t.Error("last chain node does not carry the mirror attenuation")
	}
	bg, err := node.Background()
	if err != nil {
		t.Fatalf("Background: %v", err)
	}
	if bg.Value[len(bg.Value)/2] <= 0 {
		t.Error("sky background lost along the chain")
	}
}

func TestSceneValidation(t *testing.T) {
	t.Run("missing target", func(t *testing.T) {
		s := testScene(t)
		s.Target = nil
		if _, err := s.Assemble(); err == nil {
			t.Error("accepted a scene without target")
		}
	})
	t.Run("missing detector", func(t *testing.T) {
		s := testScene(t)
		s.Detector = nil
		if _, err := s.Assemble(); err == nil {
			t.Error("accepted a scene without detector")
		}
	})
	t.Run("bad wavelength range", func(t *testing.T) {
		s := testScene(t)
		s.Common.WlMax = s.Common.WlMin
		if _, err := s.Assemble(); err == nil {
			t.Error("accepted an empty wavelength range")
		}
	})
	t.Run("broken component", func(t *testing.T) {
		s := testScene(t)
		s.Components = append(s.Components, FilterSpec{})
		if _, err := s.Assemble(); err == nil {
			t.Error("accepted an underspecified filter")
		}
	})
}

func TestRunBatch(t *testing.T) {
	det, err := testScene(t).Assemble()
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	scenarios := []Scenario{
		{Name: "deep", Mode: ModeSNR, ExpTime: 3600},
		{Name: "quick", Mode: ModeSNR, ExpTime: 1},
		{Name: "survey", Mode: ModeExposureTime, SNRTarget: 10},
		{Name: "limit", Mode: ModeSensitivity, ExpTime: 600, SNRTarget: 5},
		{Name: "broken", Mode: ModeSNR, ExpTime: -1},
	}
	results := RunBatch(det, scenarios, 3)
	if len(results) != len(scenarios) {
		t.Fatalf("results = %d, want %d", len(results), len(scenarios))
	}
	for i, res := range results {
		if res.Scenario.Name != scenarios[i].Name {
			t.Errorf("result %d is %q, want %q", i, res.Scenario.Name, scenarios[i].Name)
		}
	}
	if results[4].Err == nil {
		t.Error("negative exposure time did not fail")
	}
	for _, res := range results[:4] {
		if res.Err != nil {
			t.Fatalf("scenario %q failed: %v", res.Scenario.Name, res.Err)
		}
	}
	if results[0].Value.Value <= results[1].Value.Value {
		t.Error("longer exposure did not raise the SNR")
	}
	if results[2].Value.Unit != Second {
		t.Errorf("exposure time unit = %s, want %s", results[2].Value.Unit, Second)
	}
	if results[3].Value.Unit != Magnitude {
		t.Errorf("sensitivity unit = %s, want %s", results[3].Value.Unit, Magnitude)
	}
}

func TestRunBatchEmpty(t *testing.T) {
	det, err := testScene(t).Assemble()
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if results := RunBatch(det, nil, 4); len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
}
