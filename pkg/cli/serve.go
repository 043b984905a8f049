package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/harrisonrobin/qplan/pkg/web"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the planning form and dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		srv := web.New(a.planner, a.capacity, web.Options{
			Addr:        a.cfg.Server.Addr,
			Departments: a.cfg.Departments,
			Clients:     a.cfg.Clients,
		}, logger)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	rootCmd.AddCommand(serveCmd)
}
