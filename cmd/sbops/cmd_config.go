package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newCmdConfig returns the parent command for sbops.yml inspection.
func newCmdConfig() *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Read and validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.PersistentFlags().StringP("file", "f", "", "Path to sbops.yml (default: the file: db-url)")
	c.AddCommand(newCmdConfigShow(), newCmdConfigValidate())
	return c
}

// configFileFlag resolves -f, falling back to the file: db-url.
func configFileFlag(cmd *cobra.Command) (string, error) {
	if f := flagString(cmd, "file"); f != "" {
		return f, nil
	}
	return configFilePath(getDBURL(cmd))
}

func newCmdConfigShow() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the configuration with the environment overlay applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFileFlag(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, path)
			if err != nil {
				return err
			}
			data, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newCmdConfigValidate() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFileFlag(cmd)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd, path)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config %s: %w", path, err)
			}
			env := cfg.Environment
			if env == "" {
				env = "(none)"
			}
			target := cfg.Backend.Target
			if target == "" {
				target = "aks"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (environment %s, backend %s target %s)\n", path, env, cfg.Backend.Name, target)
			return nil
		},
	}
}
