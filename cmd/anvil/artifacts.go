package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/forgeops/anvil/pkg/artifacts"
	"github.com/spf13/cobra"
)

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Inspect recorded provisioning artifacts",
}

var artifactListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		list, err := store.ListArtifacts()
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No artifacts recorded.")
			return nil
		}
		for _, a := range list {
			fmt.Printf("%s  %s  %s  server=%s\n",
				a.ID, a.CreatedAt.Format("2006-01-02 15:04:05"), a.Kind, a.Metadata["server_id"])
		}
		return nil
	},
}

var artifactGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Print one artifact as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		artifact, err := store.GetArtifact(args[0])
		if err != nil {
			return err
		}

		out := struct {
			*artifacts.Artifact
			Content json.RawMessage `json:"content"`
		}{artifact, json.RawMessage(artifact.Content)}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	artifactCmd.AddCommand(artifactListCmd)
	artifactCmd.AddCommand(artifactGetCmd)

	artifactCmd.PersistentFlags().String("db", "anvil-artifacts.db", "Path to the artifact database")
}

func openStore(cmd *cobra.Command) (*artifacts.BoltStore, error) {
	path, _ := cmd.Flags().GetString("db")
	return artifacts.NewBoltStore(path)
}
