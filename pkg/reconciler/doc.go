/*
Package reconciler converges the iSCSI resource chain toward its desired
state with an idempotent ensure-or-create protocol.

Each resource is looked up by its deterministically derived name; if it
exists it is reused, otherwise it is created. Running the chain twice
with the same inputs creates nothing the second time.

# Resource Chain

Resources are ensured in strict dependency order:

	volume ──► target ──► extent ──► association ──► service check
	(zvol)     (IQN)      (DISK,     (LUN 0)         (iscsitarget)
	                       512b)

The first failure halts the chain; resources ensured before the failure
are left in place and reported in the result records. The trailing
service check is a warning, never a failure: the resources just created
may already be functional.

# Dry Run

In dry-run mode lookups still happen but mutations are skipped. Records
for resources that would be created carry a synthetic placeholder ID of
-1 so the downstream association step can still complete the chain.

The lookup-then-create sequence is not atomic. A resource created by a
concurrent actor between the lookup and the create surfaces as a create
error, which is the safe failure mode.
*/
package reconciler
