package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/forgeops/anvil/pkg/log"
	"github.com/forgeops/anvil/pkg/metrics"
	"github.com/forgeops/anvil/pkg/types"
	"github.com/rs/zerolog"
)

// Discoverer populates a read-only snapshot of live backend state.
// Discovery is best-effort: connectivity failures are recorded in the
// result, not returned as errors.
type Discoverer interface {
	Discover(ctx context.Context) (*types.DiscoveryResult, error)
}

// Processor applies changes to converge live state toward intent.
type Processor interface {
	Process(ctx context.Context, discovery *types.DiscoveryResult) (*types.ProcessingResult, error)
}

// Housekeeper verifies applied changes, optionally cleans up, and
// persists a record of what was done.
type Housekeeper interface {
	Housekeep(ctx context.Context, processing *types.ProcessingResult) (*types.HousekeepingResult, error)
}

// Component is a resource-specific engine driven through the
// discover-process-housekeep contract.
type Component interface {
	Discoverer
	Processor
	Housekeeper
	ID() string
	Name() string
}

// Controller is the discover/process/housekeep state machine. It owns
// phase sequencing, timestamps, and the merged result; all
// resource-specific behavior lives in the Component.
//
// The controller is single-threaded: one invocation per server/volume
// set at a time, no internal locking.
type Controller struct {
	component    Component
	discoverOnly bool

	state        types.LifecycleState
	timestamps   map[types.Phase]types.PhaseTimestamps
	executed     []types.Phase
	discovery    *types.DiscoveryResult
	processing   *types.ProcessingResult
	housekeeping *types.HousekeepingResult

	logger zerolog.Logger
}

// NewController creates a controller over the given component.
func NewController(component Component, discoverOnly bool) *Controller {
	return &Controller{
		component:    component,
		discoverOnly: discoverOnly,
		state:        types.StateIdle,
		timestamps:   make(map[types.Phase]types.PhaseTimestamps),
		logger:       log.WithComponent(component.Name()),
	}
}

// State returns the current state machine position.
func (c *Controller) State() types.LifecycleState {
	return c.state
}

// ran reports whether the phase was started during this run.
func (c *Controller) ran(phase types.Phase) bool {
	_, ok := c.timestamps[phase]
	return ok
}

// beginPhase records the phase start and returns a func that records the
// end. The end timestamp is written even when the phase fails.
func (c *Controller) beginPhase(phase types.Phase) func() {
	timer := metrics.NewTimer()
	ts := types.PhaseTimestamps{StartedAt: time.Now().UTC()}
	c.timestamps[phase] = ts
	c.executed = append(c.executed, phase)
	return func() {
		ts.EndedAt = time.Now().UTC()
		c.timestamps[phase] = ts
		timer.ObserveDurationVec(metrics.PhaseDuration, string(phase))
	}
}

// Discover runs the discovery phase. A connectivity failure inside the
// component is recorded in the snapshot but does not fail the phase;
// downstream phases re-check connectivity themselves.
func (c *Controller) Discover(ctx context.Context) error {
	c.state = types.StateDiscovering
	done := c.beginPhase(types.PhaseDiscover)
	defer done()

	discovery, err := c.component.Discover(ctx)
	c.discovery = discovery
	if err != nil {
		c.state = types.StateFailed
		metrics.PhaseFailures.WithLabelValues(string(types.PhaseDiscover)).Inc()
		return fmt.Errorf("discovery failed: %w", err)
	}

	if discovery != nil && !discovery.Connected {
		c.logger.Warn().Str("error", discovery.ConnectError).Msg("backend unreachable during discovery")
	}

	c.state = types.StateDiscovered
	return nil
}

// Process runs the processing phase. Discovery is auto-run with a
// warning if it has not happened yet. With discoverOnly set, processing
// is a recorded no-op.
func (c *Controller) Process(ctx context.Context) error {
	if c.discovery == nil {
		c.logger.Warn().Msg("processing requested before discovery, running discovery first")
		if err := c.Discover(ctx); err != nil {
			return err
		}
	}

	c.state = types.StateProcessing
	done := c.beginPhase(types.PhaseProcess)
	defer done()

	if c.discoverOnly {
		c.logger.Info().Msg("discover-only mode, skipping processing")
		c.processing = &types.ProcessingResult{Skipped: true}
		c.state = types.StateProcessed
		return nil
	}

	processing, err := c.component.Process(ctx, c.discovery)
	c.processing = processing
	if err != nil {
		c.state = types.StateFailed
		metrics.PhaseFailures.WithLabelValues(string(types.PhaseProcess)).Inc()
		return fmt.Errorf("processing failed: %w", err)
	}

	c.state = types.StateProcessed
	return nil
}

// Housekeep runs the housekeeping phase. Unlike Process it does not
// auto-run its predecessor; it warns and verifies what it can.
func (c *Controller) Housekeep(ctx context.Context) error {
	if c.processing == nil {
		c.logger.Warn().Msg("housekeeping requested before processing ran")
	}

	c.state = types.StateHousekeeping
	done := c.beginPhase(types.PhaseHousekeep)
	defer done()

	housekeeping, err := c.component.Housekeep(ctx, c.processing)
	c.housekeeping = housekeeping
	if err != nil {
		c.state = types.StateFailed
		metrics.PhaseFailures.WithLabelValues(string(types.PhaseHousekeep)).Inc()
		return fmt.Errorf("housekeeping failed: %w", err)
	}

	c.state = types.StateDone
	return nil
}

// Execute runs the requested subset of phases in canonical order and
// returns the merged result whether or not a phase failed. When a phase
// fails and housekeeping was requested, the component is still asked to
// housekeep so records accumulated before the failure reach the
// artifact store; the run stays failed.
func (c *Controller) Execute(ctx context.Context, phases []types.Phase) *types.Result {
	want := make(map[types.Phase]bool, len(phases))
	for _, p := range phases {
		want[p] = true
	}

	var runErr error
	if want[types.PhaseDiscover] {
		runErr = c.Discover(ctx)
	}
	if runErr == nil && want[types.PhaseProcess] {
		runErr = c.Process(ctx)
	}
	if runErr == nil && want[types.PhaseHousekeep] {
		runErr = c.Housekeep(ctx)
	}

	if runErr != nil && want[types.PhaseHousekeep] && !c.ran(types.PhaseHousekeep) {
		c.logger.Warn().Msg("run failed, flushing partial results to the artifact store")
		housekeeping, err := c.component.Housekeep(ctx, c.processing)
		c.housekeeping = housekeeping
		if err != nil {
			c.logger.Warn().Err(err).Msg("artifact flush after failure did not complete")
		}
	}

	status := types.Status{Success: runErr == nil}
	if runErr != nil {
		status.Error = runErr.Error()
		status.Message = fmt.Sprintf("lifecycle halted in state %s", c.state)
	} else {
		status.Message = "all requested phases completed"
		if c.state != types.StateFailed && len(c.executed) > 0 {
			c.state = types.StateDone
		}
	}

	return &types.Result{
		Discovery:    c.discovery,
		Processing:   c.processing,
		Housekeeping: c.housekeeping,
		Metadata: types.Metadata{
			ComponentID:    c.component.ID(),
			ComponentName:  c.component.Name(),
			State:          c.state,
			Timestamps:     c.timestamps,
			PhasesExecuted: c.executed,
			Status:         status,
		},
	}
}
