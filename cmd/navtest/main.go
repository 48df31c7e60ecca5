// Command navtest is the navigation-test tool from spec §6: a standalone
// harness that builds spatial memory, the global/local planners, and the
// navigation façade around a self-contained simulated robot, then either
// answers one semantic query and navigates to the best match, or drives
// straight to an odom-frame coordinate via --justgo.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.korebot.dev/core/globalplan"
	"go.korebot.dev/core/internal/logging"
	"go.korebot.dev/core/localplan"
	"go.korebot.dev/core/memory"
	"go.korebot.dev/core/nav"
	"go.korebot.dev/core/spatialmath"
	"go.korebot.dev/core/stream"
)

func main() {
	app := &cli.App{
		Name:  "navtest",
		Usage: "exercise spatial memory and navigation against a simulated robot",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "new-memory", Usage: "wipe spatial-memory on start"},
			&cli.StringFlag{Name: "spatial-memory-dir", Value: "./navtest_data", Usage: "root of persisted state"},
			&cli.StringFlag{Name: "query", Usage: "issue one semantic query then navigate"},
			&cli.BoolFlag{Name: "skip-build", Usage: "don't start spatial-memory ingestion"},
			&cli.StringFlag{Name: "justgo", Usage: "direct A* navigation to odom-frame x,y[,theta]"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "navtest:", err)
		os.Exit(1)
	}
}

func run(cctx *cli.Context) error {
	logger := logging.NewLogger("navtest")
	defer logger.Sync() //nolint:errcheck

	dir := cctx.String("spatial-memory-dir")
	if cctx.Bool("new-memory") {
		if err := os.RemoveAll(dir); err != nil {
			return errors.Wrap(err, "navtest: wiping spatial-memory-dir")
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "navtest: creating spatial-memory-dir")
	}

	store, err := memory.OpenStore(filepath.Join(dir, "frames.sqlite"))
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	locations, err := memory.OpenLocationRegistry(filepath.Join(dir, "locations.db"))
	if err != nil {
		return err
	}
	defer locations.Close() //nolint:errcheck

	embedder := memory.NewFallbackProvider(noopEmbedder{}, 128, logger)
	spatialMem := memory.NewSpatialMemory(store, embedder, 0.5, 1.0, logger)

	planner := localplan.NewPlanner(localplan.DefaultConfig(), logger)
	robot := newSimRobot(planner)
	navCfg := nav.DefaultConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	stopEvent := stream.NewStopEvent()
	go func() {
		<-ctx.Done()
		stopEvent.Stop()
	}()

	if !cctx.Bool("skip-build") {
		go runIngestion(ctx, spatialMem, robot, logger)
	}

	switch {
	case cctx.String("query") != "":
		return runQuery(ctx, cctx.String("query"), spatialMem, locations, robot, navCfg, stopEvent, logger)
	case cctx.String("justgo") != "":
		return runJustGo(ctx, cctx.String("justgo"), robot, navCfg, stopEvent, logger)
	default:
		logger.Infow("no --query or --justgo given, idling until interrupted")
		<-ctx.Done()
		return nil
	}
}

// runIngestion periodically ingests the simulated robot's own pose with a
// blank frame, exercising the C1->C3 "sensors published on topics, C3
// ingests" flow described in spec §1's control-flow summary, without
// requiring a live video/odometry collaborator.
func runIngestion(ctx context.Context, mem *memory.SpatialMemory, robot *simRobot, logger logging.Logger) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pos, yaw := robot.Pose()
			rot := spatialmath.NewVector3D(0, 0, yaw)
			if _, _, err := mem.Ingest(nil, pos, rot); err != nil {
				logger.Warnw("ingestion failed", "error", err)
			}
		}
	}
}

func runQuery(
	ctx context.Context,
	query string,
	mem *memory.SpatialMemory,
	locations *memory.LocationRegistry,
	robot *simRobot,
	navCfg nav.Config,
	stopEvent *stream.StopEvent,
	logger logging.Logger,
) error {
	if loc, ok, err := locations.Get(query); err == nil && ok {
		logger.Infow("query matched a named location", "query", query)
		return navigateTo(ctx, robot, navCfg, loc.Position, nil, stopEvent, logger)
	}

	results, err := mem.QueryByText(query, 1)
	if err != nil {
		return errors.Wrap(err, "navtest: query_by_text")
	}
	if len(results) == 0 {
		logger.Warnw("no spatial-memory match for query", "query", query)
		return nil
	}

	target := spatialmath.NewVector2D(results[0].Metadata.Position.X(), results[0].Metadata.Position.Y())
	return navigateTo(ctx, robot, navCfg, target, nil, stopEvent, logger)
}

func runJustGo(ctx context.Context, spec string, robot *simRobot, navCfg nav.Config, stopEvent *stream.StopEvent, logger logging.Logger) error {
	goal, theta, err := parseJustGo(spec)
	if err != nil {
		return err
	}
	return navigateTo(ctx, robot, navCfg, goal, theta, stopEvent, logger)
}

// navigateTo plans a global path from the robot's current odom-frame pose
// to goal and drives it with the local planner via the navigation façade.
func navigateTo(
	ctx context.Context,
	robot *simRobot,
	navCfg nav.Config,
	goal spatialmath.Vector,
	theta *float64,
	stopEvent *stream.StopEvent,
	logger logging.Logger,
) error {
	pos, _ := robot.Pose()
	path, err := globalplan.Plan(robot.Costmap(), pos, goal, globalplan.DefaultOptions())
	if err != nil {
		return errors.Wrap(err, "navtest: global plan failed")
	}

	ok := nav.NavigatePathLocal(ctx, robot, navCfg, path, 60*time.Second, theta, stopEvent, logger)
	if !ok {
		logger.Warnw("navigation did not reach goal")
		return nil
	}
	logger.Infow("navigation reached goal")
	return nil
}

// parseJustGo parses "x,y" or "x,y,theta" into an odom-frame goal vector
// and an optional heading.
func parseJustGo(spec string) (spatialmath.Vector, *float64, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return spatialmath.Vector{}, nil, errors.Errorf("navtest: --justgo must be x,y or x,y,theta, got %q", spec)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return spatialmath.Vector{}, nil, errors.Wrap(err, "navtest: parsing --justgo x")
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return spatialmath.Vector{}, nil, errors.Wrap(err, "navtest: parsing --justgo y")
	}
	goal := spatialmath.NewVector2D(x, y)
	if len(parts) == 2 {
		return goal, nil, nil
	}
	theta, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return spatialmath.Vector{}, nil, errors.Wrap(err, "navtest: parsing --justgo theta")
	}
	return goal, &theta, nil
}
