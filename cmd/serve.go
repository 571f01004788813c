package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vendeza/Glavred/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API server over a persistent workspace",
	Long: `Start an HTTP server exposing one long-lived editing session as a
JSON API. The session keeps the draft, the latest evaluation, and the
version history across requests.

By default it listens on port 8080. Use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port := viper.GetInt("port")

		ws, err := newWorkspace()
		if err != nil {
			return err
		}
		srv := api.NewServer(ws)

		addr := fmt.Sprintf(":%d", port)
		ui.Info("Serving API at http://localhost%s", addr)
		return http.ListenAndServe(addr, srv.Router())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	viper.SetDefault("port", 8080)
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}
