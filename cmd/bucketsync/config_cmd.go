package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newConfigCmd())
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if showPath, _ := cmd.Flags().GetBool("path"); showPath {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cfg.Path)
				return err
			}

			if write, _ := cmd.Flags().GetBool("write"); write {
				if err := cfg.Validate(); err != nil {
					return err
				}
				if err := cfg.Save(cfg.Path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", green("saved"), cfg.Path)
			}

			data, err := cfg.Masked().YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().Bool("path", false, "print only the resolved config file path")
	cmd.Flags().Bool("write", false, "save the effective configuration to the config file")
	return cmd
}
