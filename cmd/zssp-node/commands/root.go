package commands

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/opd-ai/zssp/node"
	"github.com/spf13/cobra"
)

var (
	home       string
	passphrase string
	configPath string

	opts *node.Options
)

func Execute() error {
	root := &cobra.Command{
		Use:          "zssp-node",
		Short:        "ZSSP session endpoint over UDP",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".zssp")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}
			if passphrase == "" {
				passphrase = os.Getenv("ZSSP_PASSPHRASE")
			}

			var err error
			if configPath == "" {
				if _, statErr := os.Stat(filepath.Join(home, "zssp.toml")); statErr == nil {
					configPath = filepath.Join(home, "zssp.toml")
				}
			}
			if configPath != "" {
				opts, err = node.LoadConfig(configPath)
			} else {
				opts = node.NewOptions()
				err = opts.Validate()
			}
			if err != nil {
				return err
			}
			return opts.ConfigureLogging()
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "data dir (default ~/.zssp)")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the identity key (or ZSSP_PASSPHRASE)")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML config file (default <home>/zssp.toml if present)")

	root.AddCommand(initCmd(), identityCmd(), runCmd())
	return root.Execute()
}

func requirePassphrase() ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase required (-p or ZSSP_PASSPHRASE)")
	}
	return []byte(passphrase), nil
}
