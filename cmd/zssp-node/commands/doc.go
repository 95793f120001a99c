// Package commands defines the zssp-node CLI.
//
// Commands
//
//   - init      Create the node identity in the encrypted key store
//   - identity  Print the identity blob peers configure for this node
//   - run       Start the node and relay stdin lines to every session
package commands
