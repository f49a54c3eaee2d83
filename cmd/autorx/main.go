// Command autorx runs the radiosonde reception control plane: it starts the
// Scheduler Loop over a configured SDR fleet, launches scanners and decoders
// as subprocesses, fans decoded telemetry out to the configured exporter
// sinks, and serves Prometheus metrics until signalled to shut down.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vk5qi/autorx-go/internal/config"
	"github.com/vk5qi/autorx-go/internal/decoder"
	"github.com/vk5qi/autorx-go/internal/exporter"
	"github.com/vk5qi/autorx-go/internal/fltlog"
	"github.com/vk5qi/autorx-go/internal/scanner"
	"github.com/vk5qi/autorx-go/internal/scheduler"
)

// skewtDecimation controls how many track samples the flight-summary
// endpoint skips between Skew-T points; matches auto_rx's own default
// sounding density for a single flight.
const skewtDecimation = 10

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "station.json", "path to the station config file")
	frequency := flag.Float64("frequency", 0, "lock the scanner's whitelist to a single frequency (MHz), bypassing search")
	ephemeris := flag.String("ephemeris", "", "override the RS92 ephemeris file path")
	metricsAddr := flag.String("metrics-addr", "", "override the config's metrics listen address (host:port)")
	envPath := flag.String("env", ".env", "optional KEY=value file holding upload credentials (AUTORX_APRS_*, AUTORX_NETWORK_URL)")
	flag.Parse()

	if err := config.LoadEnvFile(*envPath); err != nil {
		log.Printf("autorx: %v", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("autorx: %v", err)
		return 1
	}
	if *frequency > 0 {
		cfg.OverrideFrequency(*frequency)
	}
	if *ephemeris != "" {
		cfg.RS92Ephemeris = *ephemeris
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	reg := prometheus.NewRegistry()
	metrics := scheduler.NewMetrics(reg)

	sinks, closeSinks := buildSinks(cfg)

	registry := scheduler.NewRegistry(buildDevices(cfg))
	table := scheduler.NewTable()
	results := scheduler.NewResultQueue()

	loop := scheduler.New(scheduler.Options{
		Registry:     registry,
		Table:        table,
		Results:      results,
		Tick:         cfg.TickInterval,
		Metrics:      metrics,
		StartScanner: startScannerFunc(cfg, results),
		StartDecoder: startDecoderFunc(cfg, sinks),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/flights/", flightHandler(cfg, metrics))
	server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		log.Printf("autorx: metrics listening on %s", cfg.MetricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("autorx: metrics server: %v", err)
		}
	}()

	loop.Run(ctx)

	log.Printf("autorx: shutting down")
	loop.Shutdown(closeSinks...)
	if err := server.Close(); err != nil {
		log.Printf("autorx: error closing metrics server: %v", err)
	}
	return 0
}

// buildDevices translates the config's device_order/sdr_settings into the
// Device Registry's input slice, preserving declaration order.
func buildDevices(cfg *config.StationConfig) []scheduler.Device {
	devices := make([]scheduler.Device, 0, len(cfg.DeviceOrder))
	for _, id := range cfg.DeviceOrder {
		s := cfg.SDRSettings[id]
		devices = append(devices, scheduler.Device{
			ID:        id,
			BiasTee:   s.Bias,
			PPMOffset: s.PPM,
			Gain:      s.Gain,
		})
	}
	return devices
}

// buildSinks constructs the exporter fan-out list every Decoder shares. The
// CSV telemetry log is always present; the network and APRS upload sinks
// are optional and controlled by AUTORX_-prefixed environment variables,
// matching the station config's own override convention, since they are
// stand-in upload integrations rather than part of the station schema.
func buildSinks(cfg *config.StationConfig) ([]exporter.Sink, []func() error) {
	sinks := []exporter.Sink{exporter.NewTelemetryLogger(cfg.LoggingPath)}

	if url := os.Getenv("AUTORX_NETWORK_URL"); url != "" {
		sinks = append(sinks, exporter.NewNetworkSink(url))
	}
	if addr := os.Getenv("AUTORX_APRS_ADDR"); addr != "" {
		callsign := os.Getenv("AUTORX_APRS_CALLSIGN")
		passcode := os.Getenv("AUTORX_APRS_PASSCODE")
		sinks = append(sinks, exporter.NewAPRSSink(addr, callsign, passcode))
	}

	closers := make([]func() error, len(sinks))
	for i, s := range sinks {
		closers[i] = s.Close
	}
	return sinks, closers
}

func startScannerFunc(cfg *config.StationConfig, results *scheduler.ResultQueue) scheduler.StartScannerFunc {
	return func(deviceID string, settings scheduler.Device) (scheduler.TaskHandle, error) {
		opts := scanner.Options{
			MinFreq:         cfg.MinFreq,
			MaxFreq:         cfg.MaxFreq,
			SearchStep:      cfg.SearchStep,
			Whitelist:       cfg.Whitelist,
			Greylist:        cfg.Greylist,
			Blacklist:       cfg.Blacklist,
			SNRThreshold:    cfg.SNRThreshold,
			MinDistance:     cfg.MinDistance,
			Quantization:    cfg.Quantization,
			ScanDwellTime:   cfg.ScanDwellTime,
			DetectDwellTime: cfg.DetectDwellTime,
			MaxPeaks:        cfg.MaxPeaks,
			SDRPower:        cfg.SDRPower,
			SDRFM:           cfg.SDRFM,
			DeviceIdx:       deviceID,
			Gain:            settings.Gain,
			PPM:             settings.PPMOffset,
			Bias:            settings.BiasTee,
			RSPath:          cfg.RSPath,
		}
		return scanner.Start(context.Background(), opts, func(batch []scanner.Detection) {
			out := make([]scheduler.Detection, len(batch))
			for i, d := range batch {
				out[i] = scheduler.Detection{FreqMHz: d.FreqMHz, SondeType: d.SondeType}
			}
			results.Put(out)
		})
	}
}

// flightHandler serves a post-flight summary (track, burst point, Skew-T
// sounding) for the sonde serial named in the request path, e.g.
// GET /flights/S1234567. This is the only caller that feeds
// fltlog.ReadLogBySerial a real BuildObserver, so autorx_skewt_build_seconds
// only has samples once an operator or dashboard actually requests a
// flight's Skew-T.
func flightHandler(cfg *config.StationConfig, metrics *scheduler.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serial := strings.TrimPrefix(r.URL.Path, "/flights/")
		if serial == "" {
			http.Error(w, "missing sonde serial", http.StatusBadRequest)
			return
		}
		summary := fltlog.ReadLogBySerial(cfg.LoggingPath, serial, skewtDecimation, metrics.ObserveSkewtBuild)
		if summary.Path == "" {
			http.Error(w, "no flight log found for serial", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(summary); err != nil {
			log.Printf("autorx: encoding flight summary for %s: %v", serial, err)
		}
	}
}

func startDecoderFunc(cfg *config.StationConfig, sinks []exporter.Sink) scheduler.StartDecoderFunc {
	return func(deviceID string, settings scheduler.Device, freqMHz float64, sondeType string) (scheduler.TaskHandle, error) {
		opts := decoder.Options{
			SondeType:     sondeType,
			SondeFreqMHz:  freqMHz,
			DeviceIdx:     deviceID,
			Gain:          settings.Gain,
			PPM:           settings.PPMOffset,
			Bias:          settings.BiasTee,
			SDRFM:         cfg.SDRFM,
			RSPath:        cfg.RSPath,
			Sinks:         sinks,
			Timeout:       time.Duration(cfg.RxTimeout) * time.Second,
			RS92Ephemeris: cfg.RS92Ephemeris,
		}
		return decoder.Start(context.Background(), opts)
	}
}
