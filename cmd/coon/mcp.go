package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/coon/internal/mcp"
)

func (c *cli) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		Long: `Expose coon_compress, coon_decompress, coon_analyze and coon_validate
as Model Context Protocol tools over stdin/stdout. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			srv, err := mcp.NewServer(&mcp.Config{
				Name:          "coon",
				Version:       version,
				Defaults:      a.defaults(),
				Logger:        a.logger.Named("mcp"),
				MeterProvider: a.tel.MeterProvider(),
			}, a.svc)
			if err != nil {
				return fmt.Errorf("failed to create mcp server: %w", err)
			}
			return srv.Run(cmd.Context())
		},
	}
}
