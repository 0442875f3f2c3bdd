package bmc

import (
	"context"
	"fmt"

	"github.com/forgeops/anvil/pkg/log"
	"github.com/rs/zerolog"
	"github.com/stmcginnis/gofish"
	"github.com/stmcginnis/gofish/schemas"
)

// Options contain the Redfish connection details for the server BMC.
type Options struct {
	Endpoint string
	Username string
	Password string
	Insecure bool
}

// BootState is the boot override state read back after configuration.
type BootState struct {
	SystemID     string
	Manufacturer string
	Target       string
	Enabled      string
	PowerState   string
}

// Configurator points a server at its freshly provisioned iSCSI boot
// volume through the BMC. All of it is best-effort: the volume chain is
// already in place, the server can always be repointed by hand.
type Configurator struct {
	client *gofish.APIClient
	logger zerolog.Logger
}

// Connect establishes the Redfish session.
func Connect(ctx context.Context, opts Options) (*Configurator, error) {
	client, err := gofish.ConnectContext(ctx, gofish.ClientConfig{
		Endpoint: opts.Endpoint,
		Username: opts.Username,
		Password: opts.Password,
		Insecure: opts.Insecure,
	})
	if err != nil {
		return nil, fmt.Errorf("redfish connect failed: %w", err)
	}
	return &Configurator{
		client: client,
		logger: log.WithComponent("bmc"),
	}, nil
}

// Close tears down the Redfish session.
func (c *Configurator) Close() {
	c.client.Logout()
}

// system returns the first computer system the BMC exposes. Single-node
// BMCs expose exactly one.
func (c *Configurator) system() (*schemas.ComputerSystem, error) {
	systems, err := c.client.Service.Systems()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate systems: %w", err)
	}
	if len(systems) == 0 {
		return nil, fmt.Errorf("BMC exposes no computer systems")
	}
	return systems[0], nil
}

// SetRemoteBootOnce sets the next boot source to the remote drive so the
// server picks up the iSCSI volume on its next power cycle.
func (c *Configurator) SetRemoteBootOnce(ctx context.Context) error {
	system, err := c.system()
	if err != nil {
		return err
	}

	boot := schemas.Boot{
		BootSourceOverrideEnabled: schemas.OnceBootSourceOverrideEnabled,
		BootSourceOverrideTarget:  schemas.RemoteDriveBootSource,
	}
	// Older BMCs reject the mode field entirely; only send it when the
	// system already reports one.
	if system.Boot.BootSourceOverrideMode != "" {
		boot.BootSourceOverrideMode = schemas.UEFIBootSourceOverrideMode
	}

	c.logger.Info().
		Str("system", system.ID).
		Str("target", string(boot.BootSourceOverrideTarget)).
		Msg("setting next boot source")

	if err := system.SetBoot(&boot); err != nil {
		return fmt.Errorf("failed to set boot override: %w", err)
	}
	return nil
}

// ReadBootState re-reads the system and reports the effective boot
// override, for inclusion in run output.
func (c *Configurator) ReadBootState(ctx context.Context) (*BootState, error) {
	system, err := c.system()
	if err != nil {
		return nil, err
	}
	return &BootState{
		SystemID:     system.ID,
		Manufacturer: system.Manufacturer,
		Target:       string(system.Boot.BootSourceOverrideTarget),
		Enabled:      string(system.Boot.BootSourceOverrideEnabled),
		PowerState:   string(system.PowerState),
	}, nil
}

// ConfigureBoot is the one-shot helper the CLI uses: set the override,
// read it back, log the outcome. A nil BootState with nil error never
// happens; an error means the server was left untouched or in an
// unknown override state.
func (c *Configurator) ConfigureBoot(ctx context.Context) (*BootState, error) {
	if err := c.SetRemoteBootOnce(ctx); err != nil {
		return nil, err
	}
	state, err := c.ReadBootState(ctx)
	if err != nil {
		return nil, fmt.Errorf("boot override set but readback failed: %w", err)
	}
	c.logger.Info().
		Str("target", state.Target).
		Str("enabled", state.Enabled).
		Str("power", state.PowerState).
		Msg("boot override configured")
	return state, nil
}
