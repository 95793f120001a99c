package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/flynn/noise"
	"github.com/opd-ai/zssp/crypto"
	"github.com/opd-ai/zssp/node"
	"github.com/spf13/cobra"
)

func identityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "identity",
		Short: "Print the identity blob for peer configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			static, err := loadIdentity()
			if err != nil {
				return err
			}
			fmt.Println(hex.EncodeToString(static.Public))
			return nil
		},
	}
}

func loadIdentity() (static noise.DHKey, err error) {
	pass, err := requirePassphrase()
	if err != nil {
		return static, err
	}
	ks, err := crypto.NewEncryptedKeyStore(home, pass)
	if err != nil {
		return static, err
	}
	defer ks.Close()
	if !ks.Exists(node.IdentityKeyName) {
		return static, errors.New("no identity in " + filepath.Clean(home) + ", run init first")
	}
	return ks.LoadStaticKey(node.IdentityKeyName)
}
