package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/opd-ai/zssp/node"
	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate the node identity and store it encrypted",
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := requirePassphrase()
			if err != nil {
				return err
			}
			static, created, err := node.LoadOrCreateIdentity(home, pass)
			if err != nil {
				return err
			}
			if !created {
				fmt.Println("Identity already exists.")
			} else {
				fmt.Println("Identity created.")
			}
			fmt.Printf("Identity: %s\n", hex.EncodeToString(static.Public))
			return nil
		},
	}
}
