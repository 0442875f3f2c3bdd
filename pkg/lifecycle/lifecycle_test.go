package lifecycle

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/forgeops/anvil/pkg/log"
	"github.com/forgeops/anvil/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel, JSONOutput: true, Output: io.Discard})
	os.Exit(m.Run())
}

// fakeComponent counts phase invocations and returns canned results or
// injected errors.
type fakeComponent struct {
	discoverCalls  int
	processCalls   int
	housekeepCalls int

	discovery    *types.DiscoveryResult
	discoverErr  error
	processErr   error
	housekeepErr error

	// processing input captured to verify what the controller hands down.
	housekeepInput *types.ProcessingResult
}

func (f *fakeComponent) ID() string   { return "fake-1" }
func (f *fakeComponent) Name() string { return "fake" }

func (f *fakeComponent) Discover(ctx context.Context) (*types.DiscoveryResult, error) {
	f.discoverCalls++
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	if f.discovery != nil {
		return f.discovery, nil
	}
	return &types.DiscoveryResult{Connected: true}, nil
}

func (f *fakeComponent) Process(ctx context.Context, d *types.DiscoveryResult) (*types.ProcessingResult, error) {
	f.processCalls++
	if f.processErr != nil {
		return nil, f.processErr
	}
	return &types.ProcessingResult{
		Resources: []types.ResourceRecord{{Kind: types.ResourceVolume, Created: true}},
	}, nil
}

func (f *fakeComponent) Housekeep(ctx context.Context, p *types.ProcessingResult) (*types.HousekeepingResult, error) {
	f.housekeepCalls++
	f.housekeepInput = p
	if f.housekeepErr != nil {
		return nil, f.housekeepErr
	}
	return &types.HousekeepingResult{ResourcesVerified: true}, nil
}

var allPhases = []types.Phase{types.PhaseDiscover, types.PhaseProcess, types.PhaseHousekeep}

func TestFullRunStateTransitions(t *testing.T) {
	fake := &fakeComponent{}
	c := NewController(fake, false)

	assert.Equal(t, types.StateIdle, c.State())

	result := c.Execute(context.Background(), allPhases)

	assert.Equal(t, types.StateDone, c.State())
	assert.True(t, result.Metadata.Status.Success)
	assert.Equal(t, 1, fake.discoverCalls)
	assert.Equal(t, 1, fake.processCalls)
	assert.Equal(t, 1, fake.housekeepCalls)
	assert.Equal(t, allPhases, result.Metadata.PhasesExecuted)
	assert.Equal(t, "fake-1", result.Metadata.ComponentID)
}

func TestTimestampsRecordedForEveryPhase(t *testing.T) {
	c := NewController(&fakeComponent{}, false)
	result := c.Execute(context.Background(), allPhases)

	for _, phase := range allPhases {
		ts, ok := result.Metadata.Timestamps[phase]
		require.True(t, ok, "missing timestamps for %s", phase)
		assert.False(t, ts.StartedAt.IsZero())
		assert.False(t, ts.EndedAt.IsZero())
		assert.False(t, ts.EndedAt.Before(ts.StartedAt))
	}
}

// A failing phase must still record both start and end timestamps.
func TestTimestampsRecordedOnFailure(t *testing.T) {
	fake := &fakeComponent{processErr: errors.New("boom")}
	c := NewController(fake, false)

	result := c.Execute(context.Background(), allPhases)

	assert.Equal(t, types.StateFailed, c.State())
	assert.False(t, result.Metadata.Status.Success)
	assert.Contains(t, result.Metadata.Status.Error, "boom")

	ts := result.Metadata.Timestamps[types.PhaseProcess]
	assert.False(t, ts.StartedAt.IsZero())
	assert.False(t, ts.EndedAt.IsZero())
}

// A process failure halts the lifecycle, but the component is still
// asked to housekeep so partial records reach the artifact store.
func TestFailureStillFlushesArtifacts(t *testing.T) {
	fake := &fakeComponent{processErr: errors.New("boom")}
	c := NewController(fake, false)

	result := c.Execute(context.Background(), allPhases)

	assert.Equal(t, 1, fake.processCalls)
	assert.Equal(t, 1, fake.housekeepCalls)
	assert.NotNil(t, result.Housekeeping)
	// The flush is not a housekeeping phase: the run stays failed and
	// the phase is not recorded as executed.
	assert.Equal(t, types.StateFailed, result.Metadata.State)
	assert.NotContains(t, result.Metadata.PhasesExecuted, types.PhaseHousekeep)
}

// Without housekeeping in the requested phases there is nothing to flush.
func TestFailureWithoutHousekeepRequested(t *testing.T) {
	fake := &fakeComponent{processErr: errors.New("boom")}
	c := NewController(fake, false)

	c.Execute(context.Background(), []types.Phase{types.PhaseDiscover, types.PhaseProcess})

	assert.Equal(t, 1, fake.processCalls)
	assert.Zero(t, fake.housekeepCalls)
}

func TestDiscoverOnlySkipsProcessing(t *testing.T) {
	fake := &fakeComponent{}
	c := NewController(fake, true)

	result := c.Execute(context.Background(), allPhases)

	assert.True(t, result.Metadata.Status.Success)
	assert.Zero(t, fake.processCalls, "component Process must not run in discover-only mode")
	require.NotNil(t, result.Processing)
	assert.True(t, result.Processing.Skipped)
	// The process phase is still recorded as executed.
	assert.Contains(t, result.Metadata.PhasesExecuted, types.PhaseProcess)
}

func TestProcessAutoRunsDiscovery(t *testing.T) {
	fake := &fakeComponent{}
	c := NewController(fake, false)

	err := c.Process(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, fake.discoverCalls)
	assert.Equal(t, 1, fake.processCalls)
}

func TestHousekeepWithoutProcessingPassesNil(t *testing.T) {
	fake := &fakeComponent{}
	c := NewController(fake, false)

	err := c.Housekeep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, fake.housekeepCalls)
	assert.Nil(t, fake.housekeepInput)
	assert.Zero(t, fake.discoverCalls)
}

func TestDiscoveryConnectivityFailureIsNotAnError(t *testing.T) {
	fake := &fakeComponent{discovery: &types.DiscoveryResult{ConnectError: "connection refused"}}
	c := NewController(fake, false)

	err := c.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.StateDiscovered, c.State())
}

func TestDiscoveryInternalErrorFailsPhase(t *testing.T) {
	fake := &fakeComponent{discoverErr: errors.New("bad state")}
	c := NewController(fake, false)

	result := c.Execute(context.Background(), allPhases)

	assert.Equal(t, types.StateFailed, c.State())
	assert.False(t, result.Metadata.Status.Success)
	assert.Zero(t, fake.processCalls)
}

func TestResultPopulatedOnFailure(t *testing.T) {
	fake := &fakeComponent{housekeepErr: errors.New("db locked")}
	c := NewController(fake, false)

	result := c.Execute(context.Background(), allPhases)

	require.NotNil(t, result.Discovery)
	require.NotNil(t, result.Processing)
	assert.Equal(t, types.StateFailed, result.Metadata.State)
	assert.Contains(t, result.Metadata.Status.Message, "failed")
}

func TestPhaseSubset(t *testing.T) {
	fake := &fakeComponent{}
	c := NewController(fake, false)

	result := c.Execute(context.Background(), []types.Phase{types.PhaseDiscover})

	assert.True(t, result.Metadata.Status.Success)
	assert.Equal(t, 1, fake.discoverCalls)
	assert.Zero(t, fake.processCalls)
	assert.Zero(t, fake.housekeepCalls)
	assert.Nil(t, result.Processing)
	assert.Equal(t, []types.Phase{types.PhaseDiscover}, result.Metadata.PhasesExecuted)
}
