package naming

import (
	"fmt"
	"strings"

	"github.com/forgeops/anvil/pkg/log"
)

const (
	// iqnBase is the backend's IQN prefix for generated targets.
	iqnBase = "iqn.2005-10.org.freenas.ctl"

	// installDir is the parent dataset under which boot volumes live.
	installDir = "openshift_installations"

	// unknownServer is substituted when no server ID is configured so
	// discovery stays usable without full config.
	unknownServer = "unknown"
)

// Namer derives the deterministic resource identifiers for one
// (server, OpenShift version) pair. Identical inputs always produce
// identical names, which is what makes the ensure chain idempotent.
type Namer struct {
	Pool     string
	ServerID string
	Version  string
	Hostname string
}

// New builds a Namer. A missing server ID degrades to the literal
// "unknown" with a logged warning rather than failing.
func New(pool, serverID, version, hostname string) *Namer {
	if serverID == "" {
		logger := log.WithComponent("naming")
		logger.Warn().Msg("no server_id configured, resource names will use 'unknown'")
		serverID = unknownServer
	}
	return &Namer{
		Pool:     pool,
		ServerID: serverID,
		Version:  version,
		Hostname: hostname,
	}
}

// versionSlug replaces dots with underscores: "4.12" -> "4_12".
func (n *Namer) versionSlug() string {
	return strings.ReplaceAll(n.Version, ".", "_")
}

// VolumePath returns the zvol path, e.g.
// "tank/openshift_installations/r630_server1_4_12".
func (n *Namer) VolumePath() string {
	return fmt.Sprintf("%s/%s/r630_%s_%s", n.Pool, installDir, n.ServerID, n.versionSlug())
}

// ParentDataset returns the dataset the volume lives under, e.g.
// "tank/openshift_installations".
func (n *Namer) ParentDataset() string {
	return fmt.Sprintf("%s/%s", n.Pool, installDir)
}

// TargetIQN returns the iSCSI qualified name, e.g.
// "iqn.2005-10.org.freenas.ctl:iscsi.r630-server1.openshift4_12".
func (n *Namer) TargetIQN() string {
	return fmt.Sprintf("%s:iscsi.r630-%s.openshift%s", iqnBase, n.ServerID, n.versionSlug())
}

// TargetAlias returns a human-readable alias for the target.
func (n *Namer) TargetAlias() string {
	return fmt.Sprintf("r630-%s OpenShift %s boot", n.ServerID, n.Version)
}

// ExtentName returns the extent name, e.g.
// "openshift_r630_server1_4_12_extent".
func (n *Namer) ExtentName() string {
	return fmt.Sprintf("openshift_r630_%s_%s_extent", n.ServerID, n.versionSlug())
}
