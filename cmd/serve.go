package cmd

import (
	"fmt"

	"github.com/Beastly713/steg/pkg/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var (
	listenAddr  string
	corsOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve hide/extract over HTTP",
	Long: `Serve starts an HTTP API. Every request works on in-memory buffers; nothing
is written to the output directory.

  GET  /api/v1/health
  POST /api/v1/hide      multipart: carrier, payload  -> stego image
  POST /api/v1/extract   multipart: carrier           -> hidden file
  POST /api/v1/capacity  multipart: carrier           -> JSON capacity report`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			gin.SetMode(gin.ReleaseMode)
		}

		router := server.NewRouter(server.NewHandler(logger), corsOrigins)

		logger.Info().Str("addr", listenAddr).Msg("server starting")
		cmd.Printf("[+] Listening on %s\n", listenAddr)
		if err := router.Run(listenAddr); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&listenAddr, "addr", ":8080", "Address to listen on")
	serveCmd.Flags().StringSliceVar(&corsOrigins, "cors-origin", nil, "Allowed CORS origin (repeatable; default any)")
}
