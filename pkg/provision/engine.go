package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/forgeops/anvil/pkg/artifacts"
	"github.com/forgeops/anvil/pkg/capacity"
	"github.com/forgeops/anvil/pkg/config"
	"github.com/forgeops/anvil/pkg/log"
	"github.com/forgeops/anvil/pkg/naming"
	"github.com/forgeops/anvil/pkg/orphans"
	"github.com/forgeops/anvil/pkg/reconciler"
	"github.com/forgeops/anvil/pkg/truenas"
	"github.com/forgeops/anvil/pkg/types"
	"github.com/rs/zerolog"
)

// Backend is the full storage controller surface the engine needs.
// *truenas.Client satisfies it.
type Backend interface {
	reconciler.Backend
	orphans.Deleter
	Ping(ctx context.Context) (*truenas.SystemInfo, error)
	Alerts(ctx context.Context) (int, error)
	ReportingData(ctx context.Context) ([]byte, error)
	ListPools(ctx context.Context) ([]types.Pool, error)
	ListVolumes(ctx context.Context) ([]types.Zvol, error)
	GetTarget(ctx context.Context, id int) (*types.Target, error)
	GetExtent(ctx context.Context, id int) (*types.Extent, error)
}

// Engine is the iSCSI boot-disk provisioner: the most developed
// instantiation of the discover-process-housekeep contract. It turns a
// desired boot-volume specification into the ordered chain of storage
// objects (volume, target, extent, association) on the controller.
type Engine struct {
	cfg      config.Config
	backend  Backend
	namer    *naming.Namer
	recon    *reconciler.Reconciler
	recorder artifacts.Recorder
	logger   zerolog.Logger
}

// NewEngine wires the engine from validated configuration.
func NewEngine(cfg config.Config, backend Backend, recorder artifacts.Recorder) *Engine {
	namer := naming.New(cfg.ZFSPool, cfg.ServerID, cfg.OpenshiftVersion, cfg.Hostname)
	return &Engine{
		cfg:      cfg,
		backend:  backend,
		namer:    namer,
		recon:    reconciler.New(backend, namer, cfg.DryRun),
		recorder: recorder,
		logger:   log.WithComponent("provision"),
	}
}

// ID returns the component identifier used in run metadata.
func (e *Engine) ID() string {
	return fmt.Sprintf("iscsi-boot-%s", e.namer.ServerID)
}

// Name returns the component name.
func (e *Engine) Name() string {
	return "iscsi-provisioner"
}

// Discover populates the read-only snapshot: connectivity, system info,
// alerts, full resource enumeration, and the pool capacity check.
// Failures are swallowed into result fields so callers can inspect
// partial state.
func (e *Engine) Discover(ctx context.Context) (*types.DiscoveryResult, error) {
	result := &types.DiscoveryResult{}

	info, err := e.backend.Ping(ctx)
	if err != nil {
		result.ConnectError = err.Error()
		e.logger.Warn().Err(err).Msg("connectivity probe failed")
		return result, nil
	}
	result.Connected = true
	result.SystemVersion = info.Version
	result.Hostname = info.Hostname

	if alerts, err := e.backend.Alerts(ctx); err == nil {
		result.Alerts = alerts
	} else {
		e.logger.Warn().Err(err).Msg("alert enumeration failed")
	}

	if _, err := e.backend.ReportingData(ctx); err == nil {
		result.ReportingOK = true
	} else {
		e.logger.Warn().Err(err).Msg("reporting endpoint unavailable")
	}

	enumerate := func(what string, fn func() error) {
		if err := fn(); err != nil {
			e.logger.Warn().Err(err).Str("what", what).Msg("enumeration failed")
			if result.EnumerateError == "" {
				result.EnumerateError = fmt.Sprintf("%s: %v", what, err)
			}
		}
	}

	enumerate("pools", func() (err error) {
		result.Pools, err = e.backend.ListPools(ctx)
		return
	})
	enumerate("volumes", func() (err error) {
		result.Volumes, err = e.backend.ListVolumes(ctx)
		return
	})
	enumerate("targets", func() (err error) {
		result.Targets, err = e.backend.ListTargets(ctx)
		return
	})
	enumerate("extents", func() (err error) {
		result.Extents, err = e.backend.ListExtents(ctx)
		return
	})
	enumerate("associations", func() (err error) {
		result.Associations, err = e.backend.ListTargetExtents(ctx)
		return
	})

	result.Capacity = capacity.Check(result.Pools, e.cfg.ZFSPool, e.cfg.RequiredBytes())
	if result.Capacity.Found && !result.Capacity.Sufficient {
		e.logger.Warn().
			Int64("free", result.Capacity.FreeBytes).
			Int64("required", result.Capacity.RequiredBytes).
			Str("pool", e.cfg.ZFSPool).
			Msg("pool free space below required volume size")
	}

	return result, nil
}

// Process runs the reconciler chain in strict dependency order. The
// first resource failure aborts the phase.
func (e *Engine) Process(ctx context.Context, _ *types.DiscoveryResult) (*types.ProcessingResult, error) {
	records, service, err := e.recon.Run(ctx, e.cfg.RequiredBytes())
	result := &types.ProcessingResult{Resources: records, Service: service}
	if err != nil {
		return result, err
	}
	return result, nil
}

// Housekeep re-verifies each resource by direct lookup, optionally runs
// orphan cleanup, and always attempts to persist the resource-details
// artifact. Verification failures are warnings, never errors.
func (e *Engine) Housekeep(ctx context.Context, processing *types.ProcessingResult) (*types.HousekeepingResult, error) {
	result := &types.HousekeepingResult{
		Verifications: make(map[types.ResourceKind]bool),
	}

	if processing == nil || processing.Skipped {
		result.Warnings = append(result.Warnings, "no processing results to verify")
	} else {
		e.verify(ctx, processing, result)
	}

	if e.cfg.CleanupUnused {
		result.Cleanup = e.cleanup(ctx)
	}

	// Artifact persistence is attempted even when verification partially
	// failed.
	id, err := e.persistArtifact(processing, result)
	if err != nil {
		result.ArtifactError = err.Error()
		e.logger.Warn().Err(err).Msg("failed to persist resource artifact")
	} else {
		result.ArtifactID = id
	}

	return result, nil
}

// verify checks each ensured resource by name or ID lookup and ANDs the
// per-resource booleans into ResourcesVerified.
func (e *Engine) verify(ctx context.Context, processing *types.ProcessingResult, result *types.HousekeepingResult) {
	verified := true
	check := func(kind types.ResourceKind, ok bool, err error) {
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s verification failed: %v", kind, err))
			ok = false
		} else if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s not found during verification", kind))
		}
		result.Verifications[kind] = ok
		verified = verified && ok
	}

	var targetID, extentID int

	for _, rec := range processing.Resources {
		switch rec.Kind {
		case types.ResourceVolume:
			vol, err := e.backend.GetDataset(ctx, e.namer.VolumePath())
			check(rec.Kind, vol != nil, err)

		case types.ResourceTarget:
			// Real IDs verify by direct lookup; dry-run placeholders fall
			// back to the IQN.
			if rec.ID > 0 {
				target, err := e.backend.GetTarget(ctx, rec.ID)
				if target != nil {
					targetID = target.ID
				}
				check(rec.Kind, target != nil, err)
				break
			}
			targets, err := e.backend.ListTargets(ctx)
			found := false
			for _, t := range targets {
				if t.Name == e.namer.TargetIQN() {
					found = true
					targetID = t.ID
				}
			}
			check(rec.Kind, found, err)

		case types.ResourceExtent:
			if rec.ID > 0 {
				extent, err := e.backend.GetExtent(ctx, rec.ID)
				if extent != nil {
					extentID = extent.ID
				}
				check(rec.Kind, extent != nil, err)
				break
			}
			extents, err := e.backend.ListExtents(ctx)
			found := false
			for _, x := range extents {
				if x.Name == e.namer.ExtentName() {
					found = true
					extentID = x.ID
				}
			}
			check(rec.Kind, found, err)

		case types.ResourceAssociation:
			assocs, err := e.backend.ListTargetExtents(ctx)
			found := false
			for _, a := range assocs {
				if a.TargetID == targetID && a.ExtentID == extentID {
					found = true
				}
			}
			check(rec.Kind, found, err)
		}
	}

	result.ResourcesVerified = verified && len(result.Verifications) > 0
	if !result.ResourcesVerified {
		e.logger.Warn().Msg("resource verification incomplete")
	}
}

// cleanup re-enumerates live state and removes extents and targets not
// referenced by any association.
func (e *Engine) cleanup(ctx context.Context) *types.CleanupResult {
	extents, err := e.backend.ListExtents(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("cleanup: extent enumeration failed")
		return &types.CleanupResult{}
	}
	targets, err := e.backend.ListTargets(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("cleanup: target enumeration failed")
		return &types.CleanupResult{}
	}
	assocs, err := e.backend.ListTargetExtents(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("cleanup: association enumeration failed")
		return &types.CleanupResult{}
	}

	set := orphans.Find(extents, targets, assocs)
	if e.cfg.DryRun {
		e.logger.Info().
			Ints("extents", set.ExtentIDs).
			Ints("targets", set.TargetIDs).
			Msg("dry run: orphans found, not deleting")
		return &types.CleanupResult{Found: len(set.ExtentIDs) + len(set.TargetIDs)}
	}

	result := orphans.Clean(ctx, e.backend, set)
	return &result
}

// resourceDetails is the artifact payload persisted during housekeeping.
type resourceDetails struct {
	ServerID         string                 `json:"server_id"`
	Hostname         string                 `json:"hostname"`
	OpenshiftVersion string                 `json:"openshift_version"`
	VolumePath       string                 `json:"volume_path"`
	TargetIQN        string                 `json:"target_iqn"`
	ExtentName       string                 `json:"extent_name"`
	Portal           string                 `json:"portal"`
	Resources        []types.ResourceRecord `json:"resources,omitempty"`
	Timestamp        time.Time              `json:"timestamp"`
}

func (e *Engine) persistArtifact(processing *types.ProcessingResult, hk *types.HousekeepingResult) (string, error) {
	details := resourceDetails{
		ServerID:         e.namer.ServerID,
		Hostname:         e.cfg.Hostname,
		OpenshiftVersion: e.cfg.OpenshiftVersion,
		VolumePath:       e.namer.VolumePath(),
		TargetIQN:        e.namer.TargetIQN(),
		ExtentName:       e.namer.ExtentName(),
		Portal:           fmt.Sprintf("%s:3260", e.cfg.TrueNASIP),
		Timestamp:        time.Now().UTC(),
	}
	if processing != nil {
		details.Resources = processing.Resources
	}

	payload, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("failed to encode resource details: %w", err)
	}

	return e.recorder.AddArtifact("resource_details", payload, map[string]string{
		"component":         e.ID(),
		"server_id":         e.namer.ServerID,
		"openshift_version": e.cfg.OpenshiftVersion,
		"verified":          fmt.Sprintf("%t", hk.ResourcesVerified),
	})
}
