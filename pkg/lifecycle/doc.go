/*
Package lifecycle drives components through the discover/process/housekeep
state machine that structures every Anvil run.

The controller owns phase sequencing, state transitions, timestamps, and
the merged run result. All resource-specific behavior lives behind the
Component interface, so new provisioning engines plug in without touching
the sequencing logic.

# State Machine

	 idle ──► discovering ──► discovered ──► processing ──► processed
	                │                             │              │
	                ▼                             ▼              ▼
	             failed ◄─────────────────────────┘        housekeeping
	                ▲                                            │
	                └────────────────────────────────────────────┤
	                                                             ▼
	                                                           done

Failed is reachable from any in-progress state. Phase start and end
timestamps are recorded unconditionally, including on failure, so run
output always shows where time went.

# Phase Semantics

Discover is read-only and best-effort: a connectivity failure is recorded
in the snapshot, not returned as an error, because partial discovery
output is still useful for diagnosis.

Process converges live state toward intent. If discovery has not run the
controller runs it first with a warning. In discover-only mode the phase
is recorded as executed but the component is never asked to mutate
anything.

Housekeep verifies, cleans up, and persists artifacts. It does not
auto-run processing; verifying a run that never happened is reported as
a warning in the result instead. When an earlier phase fails and
housekeeping was requested, Execute still asks the component to
housekeep so records accumulated before the failure reach the artifact
store; the run result stays failed.

# Usage

	engine := provision.NewEngine(cfg, client, store)
	controller := lifecycle.NewController(engine, cfg.DiscoverOnly)
	result := controller.Execute(ctx, []types.Phase{
		types.PhaseDiscover, types.PhaseProcess, types.PhaseHousekeep,
	})

Execute always returns a populated result, success or not, so automation
callers can inspect exactly which phase broke and what had been done by
then.

The controller is single-threaded. One controller drives one component
through one run; concurrent runs against the same server are not
supported and not locked against.
*/
package lifecycle
