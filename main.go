package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/samuelfneumann/drivelearn/agent"
	"github.com/samuelfneumann/drivelearn/agent/critic"
	"github.com/samuelfneumann/drivelearn/config"
	"github.com/samuelfneumann/drivelearn/environment/airsim"
	"github.com/samuelfneumann/drivelearn/environment/road"
	"github.com/samuelfneumann/drivelearn/experiment"
	"github.com/samuelfneumann/drivelearn/experiment/checkpointer"
	"github.com/samuelfneumann/drivelearn/experiment/tracker"
	"github.com/samuelfneumann/drivelearn/experiment/trackers"
	"github.com/samuelfneumann/drivelearn/expreplay"
	"github.com/samuelfneumann/drivelearn/trainer"
	"github.com/samuelfneumann/drivelearn/utils/clock"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Parse(args)
	if err != nil {
		return err
	}

	agentID := uuid.New()
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(cfg.Level()).With().Timestamp().
		Str("agent", agentID.String()).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	if err := cfg.MakeDirs(); err != nil {
		return err
	}

	// Geometry
	roadLines, err := road.LoadRoadLines(cfg.RoadLinesPath())
	if err != nil {
		return fmt.Errorf("could not load road lines: %w", err)
	}
	rewardLines, err := road.LoadRewardLines(cfg.RewardLinesPath())
	if err != nil {
		return fmt.Errorf("could not load reward lines: %w", err)
	}
	seeds := cfg.Seeds()
	starter, err := road.NewStarter(roadLines, seeds.Starter)
	if err != nil {
		return err
	}
	task := road.NewTask(rewardLines)

	// Model
	criticConfig := critic.DefaultConfig(cfg.BatchSize, cfg.TrainConvLayers)
	if cfg.Solver != nil {
		criticConfig.Solver = cfg.Solver
	}
	model, err := critic.New(criticConfig, seeds.Critic)
	if err != nil {
		return err
	}
	defer model.Close()

	if cfg.WeightsPath != "" {
		packet, err := agent.LoadPacket(cfg.WeightsPath)
		if err != nil {
			return err
		}
		if err := model.ApplyWeights(packet); err != nil {
			return fmt.Errorf("could not load weights: %w", err)
		}
		logger.Info().Str("path", cfg.WeightsPath).Msg("loaded weights")
	}

	// Experience
	memory, err := expreplay.NewReplayMemory(cfg.ReplayMemorySize)
	if err != nil {
		return err
	}
	sampler, err := expreplay.NewSampler(cfg.BatchSize, seeds.Sampler, logger)
	if err != nil {
		return err
	}

	dialer := airsim.Dialer{
		Address: cfg.AirSimAddress,
		Timeout: time.Duration(cfg.RPCTimeout),
	}

	epochConfig := experiment.DefaultEpochConfig(cfg.MaxEpochRuntime(),
		cfg.MinEpsilon, cfg.PerIterEpsilonReduction)
	sessionConfig := experiment.DefaultSessionConfig(epochConfig, seeds.Driver)
	sessionConfig.Local = cfg.LocalRun
	sessionConfig.BatchUpdateFrequency = cfg.BatchUpdateFrequency
	sessionConfig.PrioritizedSampling = cfg.PrioritizedSampling

	var discoverer experiment.Discoverer
	var check checkpointer.Checkpointer
	if cfg.LocalRun {
		check = checkpointer.NewBatchCount(cfg.CheckpointDir(), model)
	} else {
		discovery := trainer.NewDiscovery(cfg.DataDir, cfg.ExperimentName,
			cfg.TrainerPort, agentID, &http.Client{Timeout: trainer.DefaultTimeout},
			clock.Real{}, logger)
		discoverer = experiment.DiscovererFunc(
			func(ctx context.Context) (experiment.Trainer, error) {
				client, err := discovery.Discover(ctx)
				if err != nil {
					return nil, err
				}
				return client, nil
			})
	}

	session, err := experiment.NewSession(sessionConfig, model, dialer, starter,
		task, memory, sampler, discoverer, check, clock.Real{}, logger)
	if err != nil {
		return err
	}

	// Trackers
	resultsDir := filepath.Join(cfg.DataDir, "results", cfg.ExperimentName)
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return err
	}
	returns := trackers.NewReturn(filepath.Join(resultsDir, "returns.bin"))
	session.Register(tracker.ExcludeBootstrap(returns))
	session.Register(trackers.NewEpisodeLength(
		filepath.Join(resultsDir, "lengths.bin")))
	if cfg.Ledger {
		ledger, err := trackers.NewLedger(cfg.LedgerPath(), agentID)
		if err != nil {
			return err
		}
		session.Register(ledger)
	}
	if cfg.PlotEvery > 0 {
		plot := trackers.NewPathPlot(cfg.PlotDir(), roadLines, rewardLines)
		session.Register(tracker.Every(cfg.PlotEvery, plot))
	}

	logger.Info().
		Str("experiment", cfg.ExperimentName).
		Bool("local", cfg.LocalRun).
		Int("memory", cfg.ReplayMemorySize).
		Int("batch", cfg.BatchSize).
		Msg("starting session")

	err = session.Run(ctx)
	saveErr := session.Save()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	mean, std := returns.Summary(100)
	logger.Info().
		Int("epochs", session.Epochs()).
		Float64("return_mean", mean).
		Float64("return_std", std).
		Msg("session stopped")
	return saveErr
}
