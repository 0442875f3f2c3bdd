package reconciler

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgeops/anvil/pkg/log"
	"github.com/forgeops/anvil/pkg/metrics"
	"github.com/forgeops/anvil/pkg/naming"
	"github.com/forgeops/anvil/pkg/truenas"
	"github.com/forgeops/anvil/pkg/types"
	"github.com/rs/zerolog"
)

// ErrPreconditionMissing indicates an ensure step attempted without its
// dependency satisfied (e.g. an association without both IDs).
var ErrPreconditionMissing = errors.New("resource precondition missing")

// placeholderID is recorded for resources that would be created in
// dry-run mode.
const placeholderID = -1

// Backend is the subset of the storage controller client the reconciler
// needs. *truenas.Client satisfies it.
type Backend interface {
	GetDataset(ctx context.Context, path string) (*types.Zvol, error)
	CreateDataset(ctx context.Context, path string) error
	CreateZvol(ctx context.Context, path string, sizeBytes int64) (*types.Zvol, error)
	ListTargets(ctx context.Context) ([]types.Target, error)
	CreateTarget(ctx context.Context, iqn, alias string) (*types.Target, error)
	ListExtents(ctx context.Context) ([]types.Extent, error)
	CreateExtent(ctx context.Context, name, zvolPath string) (*types.Extent, error)
	ListTargetExtents(ctx context.Context) ([]types.Association, error)
	CreateTargetExtent(ctx context.Context, targetID, extentID, lun int) (*types.Association, error)
	ServiceState(ctx context.Context, service string) (string, error)
	StartService(ctx context.Context, service string) error
}

// Reconciler drives each resource type toward its desired state with an
// idempotent ensure-or-create protocol: look up by derived name, reuse if
// present, create otherwise. The first failure halts the chain.
type Reconciler struct {
	backend Backend
	namer   *naming.Namer
	dryRun  bool
	logger  zerolog.Logger
}

// New creates a reconciler for one (server, version) resource set.
func New(backend Backend, namer *naming.Namer, dryRun bool) *Reconciler {
	return &Reconciler{
		backend: backend,
		namer:   namer,
		dryRun:  dryRun,
		logger:  log.WithComponent("reconciler"),
	}
}

// Run executes the full ensure chain in dependency order: volume, target,
// extent, association, then the service check. Records for completed steps
// are always returned, including the failing one; steps after the first
// failure are not attempted. The service check failure is a warning only.
func (r *Reconciler) Run(ctx context.Context, sizeBytes int64) ([]types.ResourceRecord, types.ServiceRecord, error) {
	var records []types.ResourceRecord

	volume, err := r.EnsureVolume(ctx, sizeBytes)
	records = append(records, volume)
	if err != nil {
		return records, types.ServiceRecord{}, err
	}

	target, err := r.EnsureTarget(ctx)
	records = append(records, target)
	if err != nil {
		return records, types.ServiceRecord{}, err
	}

	extent, err := r.EnsureExtent(ctx, volume)
	records = append(records, extent)
	if err != nil {
		return records, types.ServiceRecord{}, err
	}

	assoc, err := r.EnsureAssociation(ctx, target, extent)
	records = append(records, assoc)
	if err != nil {
		return records, types.ServiceRecord{}, err
	}

	return records, r.EnsureServiceRunning(ctx), nil
}

// EnsureVolume ensures the boot zvol exists at the derived path, creating
// the parent dataset chain first when needed.
func (r *Reconciler) EnsureVolume(ctx context.Context, sizeBytes int64) (types.ResourceRecord, error) {
	path := r.namer.VolumePath()
	record := types.ResourceRecord{Kind: types.ResourceVolume, Name: path, Path: path}

	existing, err := r.backend.GetDataset(ctx, path)
	if err != nil {
		return r.fail(record, fmt.Errorf("volume lookup failed: %w", err))
	}
	if existing != nil {
		r.logger.Info().Str("path", path).Msg("volume already exists, reusing")
		record.Created = true
		record.Existed = true
		metrics.ResourcesEnsured.WithLabelValues(string(record.Kind), "existed").Inc()
		return record, nil
	}

	if r.dryRun {
		return r.skipCreate(record), nil
	}

	parent := r.namer.ParentDataset()
	parentDS, err := r.backend.GetDataset(ctx, parent)
	if err != nil {
		return r.fail(record, fmt.Errorf("parent dataset lookup failed: %w", err))
	}
	if parentDS == nil {
		if err := r.backend.CreateDataset(ctx, parent); err != nil {
			return r.fail(record, fmt.Errorf("parent dataset creation failed: %w", err))
		}
		r.logger.Info().Str("path", parent).Msg("created parent dataset")
	}

	created, err := r.backend.CreateZvol(ctx, path, sizeBytes)
	if err != nil {
		return r.fail(record, fmt.Errorf("volume creation failed: %w", err))
	}

	r.logger.Info().Str("path", created.Path).Int64("size", created.SizeBytes).Msg("created volume")
	record.Created = true
	metrics.ResourcesEnsured.WithLabelValues(string(record.Kind), "created").Inc()
	return record, nil
}

// EnsureTarget ensures an iSCSI target with the derived IQN exists.
func (r *Reconciler) EnsureTarget(ctx context.Context) (types.ResourceRecord, error) {
	iqn := r.namer.TargetIQN()
	record := types.ResourceRecord{Kind: types.ResourceTarget, Name: iqn}

	targets, err := r.backend.ListTargets(ctx)
	if err != nil {
		return r.fail(record, fmt.Errorf("target lookup failed: %w", err))
	}
	for _, t := range targets {
		if t.Name == iqn {
			r.logger.Info().Str("iqn", iqn).Int("id", t.ID).Msg("target already exists, reusing")
			record.Created = true
			record.Existed = true
			record.ID = t.ID
			metrics.ResourcesEnsured.WithLabelValues(string(record.Kind), "existed").Inc()
			return record, nil
		}
	}

	if r.dryRun {
		return r.skipCreate(record), nil
	}

	created, err := r.backend.CreateTarget(ctx, iqn, r.namer.TargetAlias())
	if err != nil {
		return r.fail(record, fmt.Errorf("target creation failed: %w", err))
	}

	r.logger.Info().Str("iqn", iqn).Int("id", created.ID).Msg("created target")
	record.Created = true
	record.ID = created.ID
	metrics.ResourcesEnsured.WithLabelValues(string(record.Kind), "created").Inc()
	return record, nil
}

// EnsureExtent ensures a DISK extent backed by the ensured volume. The
// volume must have been ensured first.
func (r *Reconciler) EnsureExtent(ctx context.Context, volume types.ResourceRecord) (types.ResourceRecord, error) {
	name := r.namer.ExtentName()
	record := types.ResourceRecord{Kind: types.ResourceExtent, Name: name}

	if !volume.Created {
		return r.fail(record, fmt.Errorf("%w: backing volume was not ensured", ErrPreconditionMissing))
	}

	extents, err := r.backend.ListExtents(ctx)
	if err != nil {
		return r.fail(record, fmt.Errorf("extent lookup failed: %w", err))
	}
	for _, e := range extents {
		if e.Name == name {
			r.logger.Info().Str("name", name).Int("id", e.ID).Msg("extent already exists, reusing")
			record.Created = true
			record.Existed = true
			record.ID = e.ID
			metrics.ResourcesEnsured.WithLabelValues(string(record.Kind), "existed").Inc()
			return record, nil
		}
	}

	if r.dryRun {
		return r.skipCreate(record), nil
	}

	created, err := r.backend.CreateExtent(ctx, name, r.namer.VolumePath())
	if err != nil {
		return r.fail(record, fmt.Errorf("extent creation failed: %w", err))
	}

	r.logger.Info().Str("name", name).Int("id", created.ID).Msg("created extent")
	record.Created = true
	record.ID = created.ID
	metrics.ResourcesEnsured.WithLabelValues(string(record.Kind), "created").Inc()
	return record, nil
}

// EnsureAssociation binds the ensured target and extent at LUN 0. Both
// IDs must be present; a missing ID fails fast.
func (r *Reconciler) EnsureAssociation(ctx context.Context, target, extent types.ResourceRecord) (types.ResourceRecord, error) {
	record := types.ResourceRecord{
		Kind: types.ResourceAssociation,
		Name: fmt.Sprintf("%s<->%s", target.Name, extent.Name),
	}

	if target.ID == 0 || extent.ID == 0 {
		return r.fail(record, fmt.Errorf("%w: association requires both target and extent IDs", ErrPreconditionMissing))
	}

	assocs, err := r.backend.ListTargetExtents(ctx)
	if err != nil {
		return r.fail(record, fmt.Errorf("association lookup failed: %w", err))
	}
	for _, a := range assocs {
		if a.TargetID == target.ID && a.ExtentID == extent.ID {
			r.logger.Info().Int("id", a.ID).Msg("association already exists, reusing")
			record.Created = true
			record.Existed = true
			record.ID = a.ID
			metrics.ResourcesEnsured.WithLabelValues(string(record.Kind), "existed").Inc()
			return record, nil
		}
	}

	if r.dryRun {
		return r.skipCreate(record), nil
	}

	created, err := r.backend.CreateTargetExtent(ctx, target.ID, extent.ID, 0)
	if err != nil {
		return r.fail(record, fmt.Errorf("association creation failed: %w", err))
	}

	r.logger.Info().Int("id", created.ID).Int("target", target.ID).Int("extent", extent.ID).Msg("created association")
	record.Created = true
	record.ID = created.ID
	metrics.ResourcesEnsured.WithLabelValues(string(record.Kind), "created").Inc()
	return record, nil
}

// EnsureServiceRunning checks the iSCSI service and starts it if stopped.
// Failures here are warnings, not hard failures: the resources just
// created may already be functional.
func (r *Reconciler) EnsureServiceRunning(ctx context.Context) types.ServiceRecord {
	if r.dryRun {
		return types.ServiceRecord{Warning: "dry run: service state not checked"}
	}

	state, err := r.backend.ServiceState(ctx, truenas.ServiceISCSI)
	if err != nil {
		r.logger.Warn().Err(err).Msg("could not verify iSCSI service state")
		return types.ServiceRecord{Warning: fmt.Sprintf("service state check failed: %v", err)}
	}
	if state == "RUNNING" {
		return types.ServiceRecord{Running: true}
	}

	r.logger.Info().Str("state", state).Msg("iSCSI service not running, starting")
	if err := r.backend.StartService(ctx, truenas.ServiceISCSI); err != nil {
		r.logger.Warn().Err(err).Msg("failed to start iSCSI service")
		return types.ServiceRecord{Warning: fmt.Sprintf("service start failed: %v", err)}
	}
	return types.ServiceRecord{Running: true, Started: true}
}

// skipCreate records a dry-run ensure with a synthetic placeholder ID.
func (r *Reconciler) skipCreate(record types.ResourceRecord) types.ResourceRecord {
	r.logger.Info().Str("name", record.Name).Str("kind", string(record.Kind)).Msg("dry run: skipping creation")
	record.Created = true
	record.DryRun = true
	if record.Kind != types.ResourceVolume {
		record.ID = placeholderID
	}
	metrics.ResourcesEnsured.WithLabelValues(string(record.Kind), "dry_run").Inc()
	return record
}

// fail records the error on the resource record and propagates it.
func (r *Reconciler) fail(record types.ResourceRecord, err error) (types.ResourceRecord, error) {
	r.logger.Error().Err(err).Str("name", record.Name).Str("kind", string(record.Kind)).Msg("ensure failed")
	record.Error = err.Error()
	metrics.ResourcesEnsured.WithLabelValues(string(record.Kind), "error").Inc()
	return record, err
}
