package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/forgeops/anvil/pkg/artifacts"
	"github.com/forgeops/anvil/pkg/bmc"
	"github.com/forgeops/anvil/pkg/config"
	"github.com/forgeops/anvil/pkg/lifecycle"
	"github.com/forgeops/anvil/pkg/log"
	"github.com/forgeops/anvil/pkg/provision"
	"github.com/forgeops/anvil/pkg/truenas"
	"github.com/forgeops/anvil/pkg/types"
	"github.com/spf13/cobra"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision the iSCSI boot volume chain for a server",
	Long: `Run the full lifecycle against the storage controller: discover
live state, ensure the volume/target/extent/association chain exists,
then verify the result and persist a resource-details artifact.

Every step is idempotent; re-running against an already provisioned
server reuses what exists and creates nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		phases, err := parsePhases(cmd)
		if err != nil {
			return err
		}

		return runLifecycle(cmd, cfg, phases)
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Snapshot controller state without changing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg.DiscoverOnly = true

		return runLifecycle(cmd, cfg, []types.Phase{types.PhaseDiscover})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{provisionCmd, discoverCmd} {
		cmd.Flags().String("config", "", "Path to YAML config file")
		cmd.Flags().String("truenas-ip", "", "TrueNAS controller address")
		cmd.Flags().String("api-key", "", "TrueNAS API key")
		cmd.Flags().String("server-id", "", "Server identifier used in resource names")
		cmd.Flags().String("hostname", "", "Server hostname")
		cmd.Flags().String("openshift-version", "", "OpenShift version being installed")
		cmd.Flags().String("zvol-size", "", "Boot volume size (e.g. 500G)")
		cmd.Flags().String("pool", "", "ZFS pool holding the boot volumes")
		cmd.Flags().String("output", "text", "Output format: text or json")
		cmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")
	}

	provisionCmd.Flags().StringSlice("phases", nil, "Comma-separated phase subset (discover,process,housekeep)")
	provisionCmd.Flags().Bool("dry-run", false, "Log intended changes without mutating the controller")
	provisionCmd.Flags().Bool("discover-only", false, "Run the lifecycle but skip all mutations")
	provisionCmd.Flags().Bool("cleanup", false, "Delete orphaned extents and targets during housekeeping")
}

// loadConfig builds the effective configuration: defaults, then the
// config file, then explicit flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Defaults()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	override := func(flag string, dst *string) {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			*dst = v
		}
	}
	override("truenas-ip", &cfg.TrueNASIP)
	override("api-key", &cfg.APIKey)
	override("server-id", &cfg.ServerID)
	override("hostname", &cfg.Hostname)
	override("openshift-version", &cfg.OpenshiftVersion)
	override("zvol-size", &cfg.ZvolSize)
	override("pool", &cfg.ZFSPool)

	if cmd.Flags().Lookup("dry-run") != nil {
		if v, _ := cmd.Flags().GetBool("dry-run"); v {
			cfg.DryRun = true
		}
		if v, _ := cmd.Flags().GetBool("discover-only"); v {
			cfg.DiscoverOnly = true
		}
		if v, _ := cmd.Flags().GetBool("cleanup"); v {
			cfg.CleanupUnused = true
		}
	}

	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// parsePhases validates the --phases subset. An empty flag means all
// three phases in canonical order.
func parsePhases(cmd *cobra.Command) ([]types.Phase, error) {
	names, _ := cmd.Flags().GetStringSlice("phases")
	if len(names) == 0 {
		return []types.Phase{types.PhaseDiscover, types.PhaseProcess, types.PhaseHousekeep}, nil
	}

	valid := map[string]types.Phase{
		"discover":  types.PhaseDiscover,
		"process":   types.PhaseProcess,
		"housekeep": types.PhaseHousekeep,
	}
	var phases []types.Phase
	for _, name := range names {
		phase, ok := valid[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown phase %q (want discover, process or housekeep)", name)
		}
		phases = append(phases, phase)
	}
	return phases, nil
}

func runLifecycle(cmd *cobra.Command, cfg config.Config, phases []types.Phase) error {
	jsonOutput, _ := cmd.Flags().GetString("output")
	asJSON := jsonOutput == "json"

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON || asJSON,
	})

	client := truenas.NewClient(cfg.BaseURL(), cfg.APIKey, cfg.InsecureSkipVerify)

	store, err := artifacts.NewBoltStore(cfg.ArtifactDB)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := provision.NewEngine(cfg, client, store)
	controller := lifecycle.NewController(engine, cfg.DiscoverOnly)

	ctx := context.Background()
	result := controller.Execute(ctx, phases)

	// The BMC step runs only after a fully successful mutating run.
	var bootState *bmc.BootState
	if cfg.RedfishURL != "" && result.Metadata.Status.Success && !cfg.DryRun && !cfg.DiscoverOnly {
		bootState, err = configureBoot(ctx, cfg)
		if err != nil {
			// Best-effort: the volume chain is in place either way.
			logger := log.WithComponent("bmc")
			logger.Warn().Err(err).Msg("boot configuration failed")
		}
	}

	if asJSON {
		out := struct {
			*types.Result
			Boot *bmc.BootState `json:"Boot,omitempty"`
		}{result, bootState}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		printResult(result, bootState)
	}

	if !result.Metadata.Status.Success {
		return fmt.Errorf("%s", result.Metadata.Status.Error)
	}
	return nil
}

func configureBoot(ctx context.Context, cfg config.Config) (*bmc.BootState, error) {
	conf, err := bmc.Connect(ctx, bmc.Options{
		Endpoint: cfg.RedfishURL,
		Username: cfg.RedfishUser,
		Password: cfg.RedfishPassword,
		Insecure: cfg.InsecureSkipVerify,
	})
	if err != nil {
		return nil, err
	}
	defer conf.Close()

	return conf.ConfigureBoot(ctx)
}

func printResult(result *types.Result, boot *bmc.BootState) {
	if d := result.Discovery; d != nil {
		if d.Connected {
			fmt.Printf("✓ Controller reachable (%s, %d alerts)\n", d.SystemVersion, d.Alerts)
		} else {
			fmt.Printf("✗ Controller unreachable: %s\n", d.ConnectError)
		}
		if d.Capacity.Found {
			mark := "✓"
			if !d.Capacity.Sufficient {
				mark = "✗"
			}
			fmt.Printf("%s Pool capacity: %d free, %d required\n", mark, d.Capacity.FreeBytes, d.Capacity.RequiredBytes)
		}
	}

	if p := result.Processing; p != nil {
		if p.Skipped {
			fmt.Println("- Processing skipped (discover-only)")
		}
		for _, r := range p.Resources {
			switch {
			case r.Error != "":
				fmt.Printf("✗ %s %s: %s\n", r.Kind, r.Name, r.Error)
			case r.DryRun:
				fmt.Printf("- %s %s: would create\n", r.Kind, r.Name)
			case r.Existed:
				fmt.Printf("✓ %s %s: already exists\n", r.Kind, r.Name)
			default:
				fmt.Printf("✓ %s %s: created\n", r.Kind, r.Name)
			}
		}
		if p.Service.Warning != "" {
			fmt.Printf("! iSCSI service: %s\n", p.Service.Warning)
		} else if p.Service.Started {
			fmt.Println("✓ iSCSI service started")
		} else if p.Service.Running {
			fmt.Println("✓ iSCSI service running")
		}
	}

	if h := result.Housekeeping; h != nil {
		if h.ResourcesVerified {
			fmt.Println("✓ All resources verified")
		} else {
			fmt.Println("! Resource verification incomplete")
		}
		for _, w := range h.Warnings {
			fmt.Printf("! %s\n", w)
		}
		if h.Cleanup != nil {
			fmt.Printf("✓ Cleanup: %d orphans found, %d removed, %d failed\n",
				h.Cleanup.Found, h.Cleanup.Cleaned, h.Cleanup.Failed)
		}
		if h.ArtifactID != "" {
			fmt.Printf("✓ Artifact recorded: %s\n", h.ArtifactID)
		} else if h.ArtifactError != "" {
			fmt.Printf("! Artifact not recorded: %s\n", h.ArtifactError)
		}
	}

	if boot != nil {
		fmt.Printf("✓ Next boot: %s (%s, power %s)\n", boot.Target, boot.Enabled, boot.PowerState)
	}

	status := result.Metadata.Status
	fmt.Println()
	if status.Success {
		fmt.Printf("✓ %s (state: %s)\n", status.Message, result.Metadata.State)
	} else {
		fmt.Printf("✗ %s\n", status.Error)
	}
}
