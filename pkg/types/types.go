package types

import (
	"time"
)

// Pool represents a storage pool on the backend. Pools are discovered,
// never mutated by this engine.
type Pool struct {
	Name       string
	FreeBytes  int64
	TotalBytes int64
	Healthy    bool
	Status     string
}

// Zvol represents a block volume identified by its hierarchical path name
// (e.g. "tank/openshift_installations/r630_server1_4_12").
type Zvol struct {
	Path      string
	SizeBytes int64
}

// Target represents an iSCSI target endpoint.
type Target struct {
	ID    int
	Name  string // IQN
	Alias string
}

// Extent maps a target-visible LUN to an underlying volume.
type Extent struct {
	ID        int
	Name      string
	Disk      string // backing zvol path, prefixed "zvol/"
	BlockSize int
	ReadOnly  bool
}

// Association binds one Target to one Extent at a fixed LUN.
type Association struct {
	ID       int
	TargetID int
	ExtentID int
	LUN      int
}

// ResourceRecord captures the outcome of a single ensure step.
// Existed is true when the resource was found rather than created;
// DryRun records that no mutating call was issued.
type ResourceRecord struct {
	Kind    ResourceKind
	Name    string
	ID      int    // backend-assigned ID; 0 for volumes
	Path    string // set for volumes
	Created bool
	Existed bool
	DryRun  bool
	Error   string
}

// ResourceKind identifies a reconciled resource type.
type ResourceKind string

const (
	ResourceVolume      ResourceKind = "volume"
	ResourceTarget      ResourceKind = "target"
	ResourceExtent      ResourceKind = "extent"
	ResourceAssociation ResourceKind = "association"
)

// Phase identifies a lifecycle phase.
type Phase string

const (
	PhaseDiscover  Phase = "discover"
	PhaseProcess   Phase = "process"
	PhaseHousekeep Phase = "housekeep"
)

// LifecycleState represents the controller state machine position.
type LifecycleState string

const (
	StateIdle         LifecycleState = "idle"
	StateDiscovering  LifecycleState = "discovering"
	StateDiscovered   LifecycleState = "discovered"
	StateProcessing   LifecycleState = "processing"
	StateProcessed    LifecycleState = "processed"
	StateHousekeeping LifecycleState = "housekeeping"
	StateDone         LifecycleState = "done"
	StateFailed       LifecycleState = "failed"
)

// PhaseTimestamps records when a phase started and ended. Both are set
// even when the phase fails.
type PhaseTimestamps struct {
	StartedAt time.Time
	EndedAt   time.Time
}

// CapacityResult is the outcome of a pool capacity check.
type CapacityResult struct {
	Found         bool
	Sufficient    bool
	FreeBytes     int64
	RequiredBytes int64
	Error         string
}

// DiscoveryResult is the read-only snapshot produced by the discover phase.
// Enumeration errors are swallowed into per-field error strings so callers
// can inspect partial state.
type DiscoveryResult struct {
	Connected      bool
	ConnectError   string
	SystemVersion  string
	Hostname       string
	Alerts         int
	ReportingOK    bool
	Pools          []Pool
	Volumes        []Zvol
	Targets        []Target
	Extents        []Extent
	Associations   []Association
	Capacity       CapacityResult
	EnumerateError string
}

// ProcessingResult is the outcome of the process phase.
type ProcessingResult struct {
	Skipped   bool
	Resources []ResourceRecord
	Service   ServiceRecord
}

// ServiceRecord records the storage-service check that follows resource
// creation. A failure here is a warning, never a hard failure.
type ServiceRecord struct {
	Running bool
	Started bool
	Warning string
}

// HousekeepingResult is the outcome of the housekeep phase.
type HousekeepingResult struct {
	Verifications     map[ResourceKind]bool
	ResourcesVerified bool
	Cleanup           *CleanupResult
	ArtifactID        string
	ArtifactError     string
	Warnings          []string
}

// OrphanSet holds the IDs of extents and targets unreferenced by any
// association.
type OrphanSet struct {
	ExtentIDs []int
	TargetIDs []int
}

// CleanupResult summarizes an orphan cleanup pass. Individual delete
// failures are counted, not fatal.
type CleanupResult struct {
	Found   int
	Cleaned int
	Failed  int
}

// Status is the terminal success/error summary of a run.
type Status struct {
	Success bool
	Error   string
	Message string
}

// Metadata describes a completed lifecycle run.
type Metadata struct {
	ComponentID    string
	ComponentName  string
	State          LifecycleState
	Timestamps     map[Phase]PhaseTimestamps
	PhasesExecuted []Phase
	Status         Status
}

// Result is the full structured outcome of a lifecycle run. It is populated
// whether or not any phase failed so automation callers can always inspect
// which phase broke.
type Result struct {
	Discovery    *DiscoveryResult
	Processing   *ProcessingResult
	Housekeeping *HousekeepingResult
	Metadata     Metadata
}
