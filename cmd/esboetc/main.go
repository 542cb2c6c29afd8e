package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"esboetc/pkg/etc"
)

var (
	sceneFile string
	verbose   bool
	workers   int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "esboetc",
		Short:         "Exposure time, SNR and sensitivity calculator for astronomical instruments",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}

	root.PersistentFlags().StringVarP(&sceneFile, "scene", "s", "", "scene description file (JSON)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().IntVar(&workers, "workers", 0, "parallel scenario workers, 0 for one per CPU")
	root.MarkPersistentFlagRequired("scene")

	root.AddCommand(newSNRCmd())
	root.AddCommand(newExpTimeCmd())
	root.AddCommand(newSensitivityCmd())
	root.AddCommand(newRenderCmd())

	return root
}

func newSNRCmd() *cobra.Command {
	var expTimes string
	cmd := &cobra.Command{
		Use:   "snr",
		Short: "Compute the signal-to-noise ratio for given exposure times",
		RunE: func(cmd *cobra.Command, args []string) error {
			times, err := parseFloatList(expTimes)
			if err != nil {
				return fmt.Errorf("--exp-time: %w", err)
			}
			det, _, err := assembleScene()
			if err != nil {
				return err
			}
			scenarios := make([]etc.Scenario, len(times))
			for i, t := range times {
				scenarios[i] = etc.Scenario{
					Name:    fmt.Sprintf("t=%gs", t),
					Mode:    etc.ModeSNR,
					ExpTime: t,
				}
			}
			return printResults(etc.RunBatch(det, scenarios, workers))
		},
	}
	cmd.Flags().StringVarP(&expTimes, "exp-time", "t", "", "exposure times in seconds, comma separated")
	cmd.MarkFlagRequired("exp-time")
	return cmd
}

func newExpTimeCmd() *cobra.Command {
	var snrTargets string
	cmd := &cobra.Command{
		Use:   "exptime",
		Short: "Compute the exposure time needed for given SNR targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := parseFloatList(snrTargets)
			if err != nil {
				return fmt.Errorf("--snr: %w", err)
			}
			det, _, err := assembleScene()
			if err != nil {
				return err
			}
			scenarios := make([]etc.Scenario, len(targets))
			for i, snr := range targets {
				scenarios[i] = etc.Scenario{
					Name:      fmt.Sprintf("snr=%g", snr),
					Mode:      etc.ModeExposureTime,
					SNRTarget: snr,
				}
			}
			return printResults(etc.RunBatch(det, scenarios, workers))
		},
	}
	cmd.Flags().StringVar(&snrTargets, "snr", "", "SNR targets, comma separated")
	cmd.MarkFlagRequired("snr")
	return cmd
}

func newSensitivityCmd() *cobra.Command {
	var expTimes, snrTargets string
	cmd := &cobra.Command{
		Use:   "sensitivity",
		Short: "Compute the limiting magnitude for exposure time and SNR pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			times, err := parseFloatList(expTimes)
			if err != nil {
				return fmt.Errorf("--exp-time: %w", err)
			}
			targets, err := parseFloatList(snrTargets)
			if err != nil {
				return fmt.Errorf("--snr: %w", err)
			}
			if len(times) != len(targets) {
				return fmt.Errorf("need as many exposure times as SNR targets, got %d and %d",
					len(times), len(targets))
			}
			det, cfg, err := assembleScene()
			if err != nil {
				return err
			}
			scenarios := make([]etc.Scenario, len(times))
			for i := range times {
				scenarios[i] = etc.Scenario{
					Name:      fmt.Sprintf("t=%gs snr=%g", times[i], targets[i]),
					Mode:      etc.ModeSensitivity,
					ExpTime:   times[i],
					SNRTarget: targets[i],
					TargetMag: cfg.Target.Magnitude,
				}
			}
			return printResults(etc.RunBatch(det, scenarios, workers))
		},
	}
	cmd.Flags().StringVarP(&expTimes, "exp-time", "t", "", "exposure times in seconds, comma separated")
	cmd.Flags().StringVar(&snrTargets, "snr", "", "SNR targets, comma separated")
	cmd.MarkFlagRequired("exp-time")
	cmd.MarkFlagRequired("snr")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var overlayPath, snrPlotPath, spectraPrefix string
	var tMin, tMax float64
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render diagnostic images and plots for the scene",
		RunE: func(cmd *cobra.Command, args []string) error {
			if overlayPath == "" && snrPlotPath == "" && spectraPrefix == "" {
				return fmt.Errorf("nothing to render, pass --overlay, --snr-plot or --spectra")
			}
			scene, _, err := loadScene(sceneFile)
			if err != nil {
				return err
			}
			node, det, err := scene.AssembleChain()
			if err != nil {
				return err
			}
			if err := det.Prime(); err != nil {
				return err
			}

			if overlayPath != "" {
				imager, ok := det.(*etc.Imager)
				if !ok {
					return fmt.Errorf("--overlay needs an imaging detector")
				}
				maps, err := imager.Maps()
				if err != nil {
					return err
				}
				if err := etc.RenderExposureOverlay(maps, overlayPath); err != nil {
					return err
				}
				slog.Info("wrote exposure overlay", "path", overlayPath)
			}

			if snrPlotPath != "" {
				if err := etc.PlotSNRCurve(det, tMin, tMax, 200, snrPlotPath); err != nil {
					return err
				}
				slog.Info("wrote SNR curve", "path", snrPlotPath)
			}

			if spectraPrefix != "" {
				if err := renderSpectra(node, spectraPrefix); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&overlayPath, "overlay", "", "write the exposed detector region to this JPG file")
	cmd.Flags().StringVar(&snrPlotPath, "snr-plot", "", "write an SNR vs exposure time plot to this file")
	cmd.Flags().Float64Var(&tMin, "t-min", 1, "shortest exposure time for --snr-plot, seconds")
	cmd.Flags().Float64Var(&tMax, "t-max", 3600, "longest exposure time for --snr-plot, seconds")
	cmd.Flags().StringVar(&spectraPrefix, "spectra", "", "write signal and background spectra plots with this path prefix")
	return cmd
}

// renderSpectra plots the signal flux and background radiance arriving at
// the detector.
func renderSpectra(node etc.Radiant, prefix string) error {
	signal, err := node.Signal()
	if err != nil {
		return err
	}
	background, err := node.Background()
	if err != nil {
		return err
	}

	signalPath := prefix + "_signal.png"
	if err := etc.PlotSpectra("Signal at detector", "Flux density [W/m^3]", signalPath,
		etc.SpectrumCurve{Label: "signal", Spectrum: signal.Flux}); err != nil {
		return err
	}
	slog.Info("wrote signal spectrum", "path", signalPath)

	backgroundPath := prefix + "_background.png"
	if err := etc.PlotSpectra("Background at detector", "Radiance [W/m^3/sr]", backgroundPath,
		etc.SpectrumCurve{Label: "background", Spectrum: background}); err != nil {
		return err
	}
	slog.Info("wrote background spectrum", "path", backgroundPath)
	return nil
}

func assembleScene() (etc.Detector, *sceneConfig, error) {
	scene, cfg, err := loadScene(sceneFile)
	if err != nil {
		return nil, nil, err
	}
	det, err := scene.Assemble()
	if err != nil {
		return nil, nil, err
	}
	return det, cfg, nil
}

func printResults(results []etc.Result) error {
	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Printf("%-24s FAILED: %v\n", res.Scenario.Name, res.Err)
			continue
		}
		fmt.Printf("%-24s %s = %s\n", res.Scenario.Name, res.Scenario.Mode, res.Value)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}

func parseFloatList(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", part)
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return values, nil
}
