package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/neteq/limits"
	"github.com/opd-ai/neteq/simulation"
)

// defaultToneDuration applies when no input file bounds the run.
const defaultToneDuration = 10 * time.Second

// CLI configuration
type CLIConfig struct {
	configPath string
	inputPath  string
	duration   time.Duration

	sampleRate uint
	channels   uint

	maxJitterMs        uint
	reorderWindowMs    uint
	reorderProbability float64
	loss               float64
	burstStart         float64
	burstContinue      float64
	duplicate          float64
	seed               uint64

	minDelayMs     uint
	maxDelayMs     uint
	noNetEQ        bool
	fastAccelerate bool

	jsonStats     string
	statsInterval time.Duration
	recordPath    string
	replayPath    string
	dashboardAddr string
	realtime      bool

	logLevel string
	help     bool
}

// parseCLIFlags parses args into a configuration.
func parseCLIFlags(fs *flag.FlagSet, args []string) (*CLIConfig, error) {
	config := &CLIConfig{}

	// Input configuration
	fs.StringVar(&config.configPath, "config", "", "YAML scenario file; keys present override flags")
	fs.StringVar(&config.inputPath, "input", "", "MP3 file to play (default: 440 Hz tone)")
	fs.DurationVar(&config.duration, "duration", 0, "Virtual playout duration (0: whole input, 10s for the tone)")

	// Engine configuration
	fs.UintVar(&config.sampleRate, "sample-rate", 16000, "Engine output sample rate in Hz")
	fs.UintVar(&config.channels, "channels", 1, "Engine output channels")
	fs.UintVar(&config.minDelayMs, "min-delay-ms", 0, "Minimum target delay in ms")
	fs.UintVar(&config.maxDelayMs, "max-delay-ms", 0, "Maximum target delay in ms (0: unbounded)")
	fs.BoolVar(&config.noNetEQ, "no-neteq", false, "Bypass the jitter buffer and play packets in arrival order")
	fs.BoolVar(&config.fastAccelerate, "fast-accelerate", false, "Allow fast accelerate far above the target")

	// Network configuration
	fs.UintVar(&config.maxJitterMs, "max-jitter-ms", 40, "Maximum one-way jitter in ms (<= 500)")
	fs.UintVar(&config.reorderWindowMs, "reorder-window-ms", 0, "Maximum reorder hold-back in ms (<= 200)")
	fs.Float64Var(&config.reorderProbability, "reorder-probability", 0.5, "Probability a packet is held back when reordering")
	fs.Float64Var(&config.loss, "loss", 0, "Independent packet loss probability")
	fs.Float64Var(&config.burstStart, "burst-start", 0, "Probability a loss burst starts")
	fs.Float64Var(&config.burstContinue, "burst-continue", 0, "Probability a loss burst continues")
	fs.Float64Var(&config.duplicate, "duplicate", 0, "Packet duplication probability")
	fs.Uint64Var(&config.seed, "seed", 1, "Network random seed")

	// Output configuration
	fs.StringVar(&config.jsonStats, "json-stats", "", "Write JSONL statistics to this file")
	fs.DurationVar(&config.statsInterval, "stats-interval", time.Second, "Statistics interval in virtual time")
	fs.StringVar(&config.recordPath, "record", "", "Record delivered datagrams to this trace file")
	fs.StringVar(&config.replayPath, "replay", "", "Replay a recorded trace instead of simulating a network")
	fs.StringVar(&config.dashboardAddr, "dashboard", "", "Serve the live dashboard on this address")
	fs.BoolVar(&config.realtime, "realtime", false, "Pace playout to wall-clock time")

	// Logging configuration
	fs.StringVar(&config.logLevel, "log-level", "WARN", "Log level (DEBUG, INFO, WARN, ERROR)")

	// Help
	fs.BoolVar(&config.help, "help", false, "Show help message")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return config, nil
}

// printUsage prints the usage information.
func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "NetEQ Network Simulator")
	fmt.Fprintln(w, "=======================")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Streams audio through a simulated network into an adaptive jitter buffer")
	fmt.Fprintln(w, "and reports how playout coped with:")
	fmt.Fprintln(w, "  • Jitter and reordering")
	fmt.Fprintln(w, "  • Independent and burst packet loss")
	fmt.Fprintln(w, "  • Duplicated packets")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s [options]\n", fs.Name())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintf(w, "  # Ten seconds of tone over 40 ms of jitter\n")
	fmt.Fprintf(w, "  %s\n", fs.Name())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  # An MP3 over a lossy, reordering network with JSONL statistics\n")
	fmt.Fprintf(w, "  %s -input song.mp3 -max-jitter-ms 200 -reorder-window-ms 80 -loss 0.05 -json-stats neteq_stats.jsonl\n", fs.Name())
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  # Replay a recorded trace with a higher minimum delay\n")
	fmt.Fprintf(w, "  %s -replay run.trace -min-delay-ms 60\n", fs.Name())
}

// validateCLIConfig validates the CLI configuration.
func validateCLIConfig(config *CLIConfig) error {
	if config.sampleRate == 0 || config.sampleRate > limits.MaxSampleRate || config.sampleRate*10%1000 != 0 {
		return fmt.Errorf("invalid sample rate %d: must be a multiple of 100 Hz up to %d", config.sampleRate, limits.MaxSampleRate)
	}

	if config.channels == 0 || config.channels > limits.MaxChannels {
		return fmt.Errorf("invalid channel count %d: must be between 1 and %d", config.channels, limits.MaxChannels)
	}

	if config.maxJitterMs > simulation.MaxJitterMs {
		return fmt.Errorf("max jitter cannot exceed %d ms", simulation.MaxJitterMs)
	}

	if config.reorderWindowMs > simulation.MaxReorderWindowMs {
		return fmt.Errorf("reorder window cannot exceed %d ms", simulation.MaxReorderWindowMs)
	}

	probabilities := map[string]float64{
		"reorder probability": config.reorderProbability,
		"loss":                config.loss,
		"burst start":         config.burstStart,
		"burst continue":      config.burstContinue,
		"duplicate":           config.duplicate,
	}
	for name, p := range probabilities {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}

	if config.maxDelayMs > 0 && config.minDelayMs > config.maxDelayMs {
		return fmt.Errorf("min delay %d ms exceeds max delay %d ms", config.minDelayMs, config.maxDelayMs)
	}

	if config.duration < 0 {
		return fmt.Errorf("duration cannot be negative")
	}

	if config.statsInterval <= 0 {
		return fmt.Errorf("stats interval must be positive")
	}

	if config.replayPath != "" && (config.recordPath != "" || config.inputPath != "") {
		return fmt.Errorf("replay cannot be combined with record or input")
	}

	if _, err := logrus.ParseLevel(config.logLevel); err != nil {
		return fmt.Errorf("invalid log level %q", config.logLevel)
	}

	return nil
}

// configureLogging applies the log level to the standard logger.
func configureLogging(level string) error {
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	logrus.SetLevel(parsed)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(os.Stderr)
	return nil
}

// setupSignalHandling sets up graceful shutdown on interrupt signals.
func setupSignalHandling(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, stopping playout...\n", sig)
		cancel()
	}()
}

// main is the entry point for the simulator.
func main() {
	fs := flag.NewFlagSet("neteq-sim", flag.ExitOnError)
	cliConfig, err := parseCLIFlags(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Show help if requested
	if cliConfig.help {
		printUsage(os.Stdout, fs)
		os.Exit(0)
	}

	if cliConfig.configPath != "" {
		scenario, err := loadScenario(cliConfig.configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load scenario: %v\n", err)
			os.Exit(1)
		}
		scenario.apply(cliConfig)
	}

	if err := validateCLIConfig(cliConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Use -help for usage information.\n")
		os.Exit(1)
	}

	if err := configureLogging(cliConfig.logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandling(cancel)

	summary, err := run(ctx, cliConfig)
	if summary != "" {
		fmt.Println(summary)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Simulation failed: %v\n", err)
		os.Exit(1)
	}
}
