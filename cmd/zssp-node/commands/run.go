package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/zssp/crypto"
	"github.com/opd-ai/zssp/node"
	"github.com/opd-ai/zssp/session"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func runCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the node; stdin lines are sent to every established session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				opts.ListenAddr = listen
			}
			static, err := loadIdentity()
			if err != nil {
				return err
			}

			n, err := node.New(opts, static)
			if err != nil {
				return err
			}
			n.OnSession(func(id session.SessionID, from net.Addr) {
				fmt.Printf("* session %s up with %s\n", id, from)
			})
			n.OnData(func(id session.SessionID, from net.Addr, data []byte) {
				fmt.Printf("[%s] %s\n", id, data)
			})
			if err := n.Start(); err != nil {
				return err
			}
			defer n.Close()
			fmt.Printf("Listening on %s\n", n.LocalAddr())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if opts.MetricsAddr != "" {
				srv := &http.Server{Addr: opts.MetricsAddr, Handler: metricsMux(n), ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						crypto.NewPackageLogger("main", "run").
							WithField("addr", opts.MetricsAddr).
							WithError(err, "serve metrics").
							Error("Metrics server failed")
					}
				}()
				defer srv.Shutdown(context.Background())
			}

			go relayStdin(ctx, n)
			return n.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "override listen_addr")
	return cmd
}

func metricsMux(n *node.Node) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", n.Metrics().Handler())
	return mux
}

func relayStdin(ctx context.Context, n *node.Node) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		for _, id := range n.Sessions() {
			if err := n.SendTo(id, line); err != nil {
				logrus.WithFields(logrus.Fields{
					"function":   "relayStdin",
					"session_id": id.String(),
					"error":      err.Error(),
				}).Warn("Send failed")
			}
		}
	}
}
