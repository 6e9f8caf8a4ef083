// Command waterfuse monitors a water flow meter on GPIO and cuts
// power to the pump relay when flow volume or duration exceeds
// configured limits, then waits for an explicit reset.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/sweeney/waterfuse/internal/config"
	"github.com/sweeney/waterfuse/internal/control"
	"github.com/sweeney/waterfuse/internal/counter"
	"github.com/sweeney/waterfuse/internal/gpio"
	"github.com/sweeney/waterfuse/internal/logic"
	"github.com/sweeney/waterfuse/internal/status"
	"github.com/sweeney/waterfuse/internal/vlog"
)

const (
	defaultLogPath = "/var/log/waterfuse.log"
	defaultPidPath = "/var/run/waterfuse/waterfuse.pid"
)

// verbosityFlag makes -v repeatable: each occurrence raises verbosity
// by one.
type verbosityFlag int

func (v *verbosityFlag) String() string   { return strconv.Itoa(int(*v)) }
func (v *verbosityFlag) Set(string) error { *v++; return nil }
func (v *verbosityFlag) IsBoolFlag() bool { return true }

type options struct {
	confPath   string
	statePath  string
	pidPath    string
	logPath    string
	foreground bool
	overrides  config.Overrides
	pinFlow    int
	pinButton  int
	pinRelay   int
	tick       time.Duration
}

func main() {
	confPath := flag.String("conf", config.DefaultPath, "Config file path")
	statePath := flag.String("state", status.DefaultPath, "Status record file path")
	pidPath := flag.String("pid", defaultPidPath, "Pid file path")
	logPath := flag.String("logfile", defaultLogPath, "Log file path")
	foreground := flag.Bool("d", false, "Run in foreground: log to stderr, no pid file")
	maxLitres := flag.Int("l", 0, "Override max litres per episode (0 = from config)")
	clicksPerLitre := flag.Int("c", 0, "Override clicks per litre (0 = from config)")
	timeLimit := flag.Int("t", 0, "Override episode time limit in minutes (0 = from config)")
	resetPeriod := flag.Int("r", 0, "Override stall reset period in seconds (0 = from config)")
	pinFlow := flag.Int("pin-flow", gpio.DefaultPinFlow, "BCM pin number for the flow meter")
	pinButton := flag.Int("pin-button", gpio.DefaultPinButton, "BCM pin number for the reset button")
	pinRelay := flag.Int("pin-relay", gpio.DefaultPinRelay, "BCM pin number for the pump relay")
	tick := flag.Duration("tick", time.Second, "Control loop tick period")

	var verbosity verbosityFlag
	flag.Var(&verbosity, "v", "Increase verbosity (repeatable)")

	flag.Parse()

	overrides := config.NoOverrides()
	overrides.MaxLitres = *maxLitres
	overrides.ClicksPerLitre = *clicksPerLitre
	overrides.TimeLimitMinutes = *timeLimit
	overrides.ResetPeriodSecs = *resetPeriod
	overrides.Verbosity = int(verbosity)

	opts := options{
		confPath:   *confPath,
		statePath:  *statePath,
		pidPath:    *pidPath,
		logPath:    *logPath,
		foreground: *foreground,
		overrides:  overrides,
		pinFlow:    *pinFlow,
		pinButton:  *pinButton,
		pinRelay:   *pinRelay,
		tick:       *tick,
	}

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(opts options) error {
	cfg, cfgErr := config.Load(opts.confPath)
	cfg = opts.overrides.Apply(cfg)

	// Log sink: stderr in foreground mode, the log file otherwise.
	// The file handle is kept so SIGHUP can reopen it.
	var logFile *os.File
	logSink := os.Stderr
	if !opts.foreground {
		f, err := openLogFile(opts.logPath)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		logSink = f
	}
	logger := vlog.New(logSink, cfg.Verbosity)
	if cfgErr != nil {
		logger.Printf(0, "config: %v (using defaults)", cfgErr)
	}

	// GPIO failure before the loop is fatal: without the interrupt
	// there is nothing to monitor.
	pulses := &counter.Counter{}
	board, err := gpio.NewRealBoard(opts.pinFlow, opts.pinButton, opts.pinRelay, pulses.Increment)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer board.Close()

	if !opts.foreground {
		if err := writePidFile(opts.pidPath); err != nil {
			return fmt.Errorf("write pid file: %w", err)
		}
		defer os.Remove(opts.pidPath)
	}

	logger.Printf(0, "Starting")

	// The loop is the sole relay writer once running; this is the
	// pre-loop initial energize.
	if err := board.Set(true); err != nil {
		return fmt.Errorf("energize relay: %w", err)
	}

	persist := status.NewWriter(opts.statePath)
	if err := persist.Write(logic.Record{Status: logic.StatusStarted, Reason: logic.ReasonStartup}); err != nil {
		logger.Printf(0, "write status: %v", err)
	}
	logConfig(logger, cfg)

	// Async control surface: the handler goroutine only raises queue
	// flags, never touches the relay or the controller.
	queue := &control.Queue{}
	sigCtl := make(chan os.Signal, 4)
	signal.Notify(sigCtl, syscall.SIGHUP, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGCONT)
	go func() {
		for s := range sigCtl {
			switch s {
			case syscall.SIGHUP:
				queue.RaiseReload()
			case syscall.SIGUSR1:
				queue.RaiseReset(logic.ResetSignal)
			case syscall.SIGUSR2:
				queue.RaiseDumpStats()
			case syscall.SIGCONT:
				queue.RaiseEmergencyStop()
			}
		}
	}()

	reload := func() logic.Config {
		next, err := config.Load(opts.confPath)
		if err != nil {
			logger.Printf(0, "reload config: %v (using defaults)", err)
		}
		next = opts.overrides.Apply(next)

		// SIGHUP also rolls the log.
		if logFile != nil {
			if f, err := openLogFile(opts.logPath); err != nil {
				logger.Printf(0, "reopen log file: %v", err)
			} else {
				logger.SetOutput(f)
				logFile.Close()
				logFile = f
			}
		}
		return next
	}

	sigTerm := make(chan os.Signal, 1)
	signal.Notify(sigTerm, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(opts.tick)
	defer ticker.Stop()

	ctrl := logic.NewController(cfg, time.Now())
	return runLoop(ctrl, pulses, queue, board, board, persist, logger, reload, time.Now, ticker.C, sigTerm)
}

// recorder is the slice of status.Writer the loop needs; tests
// substitute a fake.
type recorder interface {
	Write(logic.Record) error
}

func runLoop(ctrl *logic.Controller, pulses *counter.Counter, queue *control.Queue, button gpio.Button, relay gpio.Relay, persist recorder, logger *vlog.Logger, reload func() logic.Config, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			logger.Printf(0, "received %v, shutting down", s)
			if err := persist.Write(logic.Record{Status: logic.StatusStopped, Reason: logic.ReasonShutdown}); err != nil {
				logger.Printf(0, "write status: %v", err)
			}
			return nil

		case <-tick:
			t := now()

			// Fixed order per tick: pulses, button, control events,
			// state transition, relay, status record.
			delta := pulses.ReadAndAdvance()

			if queue.DrainReload() {
				cfg := reload()
				ctrl.SetConfig(cfg)
				logger.SetVerbosity(cfg.Verbosity)
				logConfig(logger, cfg)
			}

			pressed, err := button.Pressed()
			if err != nil {
				logger.Printf(0, "button read error: %v", err)
				pressed = false
			}

			out := ctrl.Tick(logic.Input{
				Delta:         delta,
				ButtonPressed: pressed,
				Events:        queue.Drain(),
				Time:          t,
			})
			snap := ctrl.Snapshot(t)

			logger.Printf(3, "clicks: %d, litres: %d, phase=%s, new=%d",
				snap.EpisodeClicks, snap.EpisodeLitres, snap.Phase, delta)

			// Relay first: cutting flow outranks bookkeeping.
			switch out.Relay {
			case logic.RelayOn:
				if err := relay.Set(true); err != nil {
					logger.Printf(0, "relay write error: %v", err)
				}
			case logic.RelayOff:
				if err := relay.Set(false); err != nil {
					logger.Printf(0, "relay write error: %v", err)
				}
			}

			tripped := false
			for _, rec := range out.Records {
				switch rec.Status {
				case logic.StatusStarted:
					logger.Printf(2, "Turning pump on after reset by %s", rec.Reason)
				case logic.StatusStopped:
					logger.Printf(2, "Turning pump off (%s) litres:%d, seconds:%d",
						rec.Reason, snap.EpisodeLitres,
						int(snap.LastClickTime.Sub(snap.FirstClickTime).Seconds()))
					if rec.Reason == logic.ReasonVolume || rec.Reason == logic.ReasonTime {
						tripped = true
					}
				}
				if err := persist.Write(rec); err != nil {
					// Persistence never outranks the relay decision.
					logger.Printf(0, "write status %s/%s: %v", rec.Status, rec.Reason, err)
				}
			}

			if tripped {
				logStats(logger, 2, snap)
			}
			if out.DumpStats {
				logStats(logger, 0, snap)
			}
		}
	}
}

func logConfig(logger *vlog.Logger, cfg logic.Config) {
	logger.Printf(0, "reset_period: %d", int(cfg.ResetPeriod.Seconds()))
	logger.Printf(0, "time_limit: %d", int(cfg.TimeLimit.Seconds()))
	logger.Printf(0, "max_litres: %d", cfg.MaxLitres)
	logger.Printf(0, "clicks_per_litre: %d", cfg.ClicksPerLitre)
	logger.Printf(0, "verbose: %d", cfg.Verbosity)
}

func logStats(logger *vlog.Logger, level int, snap logic.Stats) {
	logger.Printf(level, "last_click_time: %d seconds ago", int(snap.Now.Sub(snap.LastClickTime).Seconds()))
	logger.Printf(level, "first_click_time: %d seconds ago", int(snap.Now.Sub(snap.FirstClickTime).Seconds()))
	logger.Printf(level, "episode_clicks: %d", snap.EpisodeClicks)
	logger.Printf(level, "total_litres: %d", snap.TotalLitres)
}

func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
}

func writePidFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
