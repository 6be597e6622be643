package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"reflect"
	"runtime"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/encodeous/lrr/perf"
	"github.com/encodeous/lrr/sim"
	"github.com/encodeous/lrr/state"
	"github.com/encodeous/tint"
	"github.com/goccy/go-yaml"
	slogmulti "github.com/samber/slog-multi"
	"go.uber.org/multierr"
)

var ErrScenarioComplete = errors.New("scenario complete")

// ReadScenario loads, expands and validates a scenario file
func ReadScenario(scenarioPath string) (*state.ScenarioCfg, error) {
	var cfg state.ScenarioCfg
	file, err := os.ReadFile(scenarioPath)
	if err != nil {
		return nil, err
	}
	err = yaml.Unmarshal(file, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", scenarioPath, err)
	}
	err = state.ExpandScenario(&cfg)
	if err != nil {
		return nil, err
	}
	err = state.ScenarioValidator(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger logs to the console, and to logPath as well when it is set
func NewLogger(level slog.Level, prefix string, logPath string) (*slog.Logger, io.Closer, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        level,
			AddSource:    false,
			CustomPrefix: prefix,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	var closer io.Closer = nopCloser{}
	if logPath != "" {
		err := os.MkdirAll(path.Dir(logPath), 0700)
		if err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
		closer = f
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// Bootstrap runs a scenario file from the command line
func Bootstrap(scenarioPath, logPath string, verbose, realtime bool) (*Network, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	cfg, err := ReadScenario(scenarioPath)
	if err != nil {
		return nil, err
	}
	if logPath != "" {
		cfg.LogPath = logPath
	}
	logger, closer, err := NewLogger(level, cfg.Name, cfg.LogPath)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	if !realtime {
		return RunVirtual(*cfg, logger)
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Start(ctx, *cfg, logger, nil)
}

func newState(ctx context.Context, cfg state.ScenarioCfg, logger *slog.Logger, dispatch chan<- func(*state.State) error) *state.State {
	ctx, cancel := context.WithCancelCause(ctx)
	return &state.State{
		Modules: make(map[string]state.NyModule),
		Env: &state.Env{
			Context:         ctx,
			Cancel:          cancel,
			DispatchChannel: dispatch,
			ScenarioCfg:     cfg,
			Log:             logger,
		},
	}
}

// RunVirtual runs the scenario on virtual time as fast as possible
func RunVirtual(cfg state.ScenarioCfg, logger *slog.Logger) (*Network, error) {
	s := newState(context.Background(), cfg, logger, nil)
	loop := sim.NewEventLoop()
	s.Clock = loop
	network := NewNetwork(&s.ScenarioCfg, loop, logger)

	s.Log.Info("init modules")
	err := initModules(s, network.Graph, network)
	if err != nil {
		s.Cancel(err)
		return network, multierr.Append(err, Stop(s))
	}
	s.Log.Info("init modules complete", "duration", cfg.Duration)

	s.Started.Store(true)
	err = runGuarded(func() {
		loop.Run(cfg.Duration)
	})
	if err != nil {
		s.Log.Error("simulation aborted", "error", err)
		s.Cancel(err)
	} else {
		s.Cancel(ErrScenarioComplete)
	}
	stopErr := Stop(s)
	return network, multierr.Append(err, stopErr)
}

// Snapshot builds the scenario network on virtual time and advances the graph to at. No traffic is sent.
func Snapshot(cfg state.ScenarioCfg, at time.Duration, logger *slog.Logger) (*Network, error) {
	loop := sim.NewEventLoop()
	network := NewNetwork(&cfg, loop, logger)
	var err error
	perr := runGuarded(func() {
		err = network.Graph.Start(network.Graph.Nodes)
		if err == nil {
			loop.Run(at)
		}
	})
	if err = multierr.Append(err, perr); err != nil {
		return nil, err
	}
	return network, nil
}

// Start runs the scenario on wall clock time through the dispatch loop until the scenario ends or ctx is done.
// initState, when set, receives the state before the main loop starts.
func Start(ctx context.Context, cfg state.ScenarioCfg, logger *slog.Logger, initState **state.State) (*Network, error) {
	dispatch := make(chan func(env *state.State) error, 128)
	s := newState(ctx, cfg, logger, dispatch)
	s.Clock = state.NewWallClock(s.Env, clock.New())
	network := NewNetwork(&s.ScenarioCfg, s.Clock, logger)
	if initState != nil {
		*initState = s
	}

	s.Log.Info("init modules")
	err := initModules(s, network.Graph, network)
	if err != nil {
		s.Cancel(err)
		return network, multierr.Append(err, Stop(s))
	}
	s.Log.Info("init modules complete")
	s.Clock.ScheduleOnce(cfg.Duration, func() {
		s.Cancel(ErrScenarioComplete)
	})

	s.Log.Info("simulation running in real time. To exit early, send SIGINT or Ctrl+C.")
	err = MainLoop(s, dispatch)
	if err != nil {
		return network, err
	}
	if cause := context.Cause(s.Context); !errors.Is(cause, ErrScenarioComplete) && !errors.Is(cause, context.Canceled) {
		return network, cause
	}
	return network, nil
}

// initModules registers and initializes modules in order. Modules registered before a failure are
// still cleaned up by Stop.
func initModules(s *state.State, modules ...state.NyModule) error {
	for _, module := range modules {
		s.Modules[reflect.TypeOf(module).String()] = module
		if err := module.Init(s); err != nil {
			return err
		}
	}
	return nil
}

// runGuarded turns a fatal setup or consistency panic into an error
func runGuarded(fun func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", e)
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
	}()
	fun()
	return nil
}

func MainLoop(s *state.State, dispatch <-chan func(*state.State) error) error {
	s.Log.Debug("started main loop")
	s.Started.Store(true)
	for {
		select {
		case fun := <-dispatch:
			if fun == nil {
				goto endLoop
			}
			start := time.Now()
			var err error
			perr := runGuarded(func() {
				err = fun(s)
			})
			err = multierr.Append(err, perr)
			if err != nil {
				s.Log.Error("error occurred during dispatch: ", "error", err)
				s.Cancel(err)
			}
			elapsed := time.Since(start)
			perf.DispatchLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > state.SlowDispatch {
				s.Log.Warn("dispatch took a long time!", "fun", runtime.FuncForPC(reflect.ValueOf(fun).Pointer()).Name(), "elapsed", elapsed, "len", len(dispatch))
			}
		case <-s.Context.Done():
			goto endLoop
		}
	}
endLoop:
	s.Log.Info("stopped main loop", "reason", context.Cause(s.Context).Error())
	return Stop(s)
}

// Stop cleans up every module once, later calls do nothing
func Stop(s *state.State) error {
	if s.Stopping.Swap(true) {
		return nil
	}
	s.Cancel(context.Canceled)
	s.Log.Info("cleaning up modules")
	var errs error
	for moduleName, module := range s.Modules {
		err := module.Cleanup(s)
		if err != nil {
			s.Log.Error("error occurred during Stop: ", "module", moduleName, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", moduleName, err))
		}
	}
	s.Log.Info("stopped")
	return errs
}
