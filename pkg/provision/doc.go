/*
Package provision implements the iSCSI boot-volume engine behind the
lifecycle Component interface.

Discovery snapshots the controller (connectivity, alerts, pools, the
full iSCSI object inventory) and runs the pool capacity check.
Processing delegates to the reconciler's ensure chain. Housekeeping
re-verifies every ensured resource by direct lookup, optionally removes
orphaned extents and targets, and records the resource-details artifact
that later tooling uses to locate the boot volume.
*/
package provision
