// Package node runs ZSSP sessions over UDP. A Node owns the static
// identity, answers and initiates handshakes through session.Receive and
// session.New, keeps the session table that session.Host lookups are
// served from, and does the periodic rekey, keepalive and timeout work in
// Iterate.
//
//	opts, _ := node.LoadConfig("zssp.toml")
//	n, _ := node.New(opts, static)
//	n.OnData(func(id session.SessionID, from net.Addr, data []byte) { ... })
//	n.Start()
//	go n.Run(ctx)
package node
