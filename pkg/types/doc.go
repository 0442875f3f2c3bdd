/*
Package types defines the core data structures used throughout anvil.

This package contains the domain model for iSCSI boot-disk provisioning:
storage pools, block volumes (zvols), iSCSI targets, extents, and the
target-extent associations that bind them, plus the phase and result types
produced by the lifecycle engine.

# Core Types

Backend resources:
  - Pool: storage pool with free/total capacity (read-only)
  - Zvol: block volume identified by hierarchical path
  - Target: iSCSI endpoint identified by IQN and backend integer ID
  - Extent: mapping from a LUN to a backing zvol
  - Association: (target, extent, lun) binding record

Lifecycle results:
  - ResourceRecord: per-resource ensure outcome (created/existed/dry-run)
  - DiscoveryResult, ProcessingResult, HousekeepingResult: phase-scoped
    immutable result structs merged explicitly by the lifecycle controller
  - Result: the full structured run outcome with metadata and timestamps

All types are plain data with no behavior; behavior lives in the packages
that operate on them (reconciler, orphans, lifecycle).
*/
package types
