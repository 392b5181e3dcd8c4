package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/coon/internal/registry"
)

func (c *cli) registryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage reusable widget components",
		Long: `Manage the component registry used by the component_ref and hybrid
strategies. Changes are saved to the configured registry file (registry.path
or --registry).

Examples:
  coon registry list --category forms
  coon registry show email_input
  coon registry add card_header --name "Card Header" -f header.dart --param title
  coon registry export email_input email_input.json`,
	}
	cmd.AddCommand(
		c.registryListCmd(),
		c.registryShowCmd(),
		c.registryAddCmd(),
		c.registryDeleteCmd(),
		c.registryExportCmd(),
		c.registryImportCmd(),
	)
	return cmd
}

func (c *cli) registryListCmd() *cobra.Command {
	var (
		category string
		tags     []string
		name     string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg := c.app.reg
			var comps []*registry.Component
			switch {
			case category != "":
				comps = reg.SearchByCategory(category)
			case len(tags) > 0:
				comps = reg.SearchByTags(tags...)
			case name != "":
				comps = reg.SearchByName(name)
			default:
				comps = reg.List()
			}
			if asJSON {
				return writeJSON(cmd, "", comps)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tREF\tCATEGORY\tTOKENS\tNAME")
			for _, comp := range comps {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", comp.ID, comp.Ref, comp.Category, comp.TokenCount, comp.Name)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			stats := reg.Stats()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "\n%d components, %d tokens\n", stats.TotalComponents, stats.TotalTokens)
			return err
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by category")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "filter by tag (repeatable, any match)")
	cmd.Flags().StringVar(&name, "name", "", "filter by name substring")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print components as JSON")
	return cmd
}

func (c *cli) registryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a component",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := c.app.reg.Get(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, "", comp)
		},
	}
}

func (c *cli) registryAddCmd() *cobra.Command {
	var (
		name        string
		codeFile    string
		params      []string
		description string
		category    string
		tags        []string
		version     string
	)
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Register a component and save the registry",
		Long: `Register a component from a Dart snippet read from --code-file or stdin.
An existing component with the same id is replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readInput(cmd, codeFile)
			if err != nil {
				return err
			}
			opts := []registry.Option{
				registry.WithParameters(params...),
				registry.WithDescription(description),
				registry.WithCategory(category),
				registry.WithTags(tags...),
			}
			if version != "" {
				opts = append(opts, registry.WithVersion(version))
			}
			comp, err := c.app.reg.Register(args[0], name, strings.TrimSpace(code), opts...)
			if err != nil {
				return err
			}
			if err := c.app.saveRegistry(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "registered %s as %s\n", comp.ID, comp.Ref)
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (required)")
	cmd.Flags().StringVarP(&codeFile, "code-file", "f", "", "file holding the component code (default stdin)")
	cmd.Flags().StringSliceVar(&params, "param", nil, "parameter name (repeatable)")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&category, "category", "", "category")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringVar(&version, "version", "", "component version")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (c *cli) registryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a component and save the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.app.reg.Delete(args[0]) {
				return fmt.Errorf("%w: %s", registry.ErrNotFound, args[0])
			}
			if err := c.app.saveRegistry(); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return err
		},
	}
}

func (c *cli) registryExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <id> <file>",
		Short: "Write one component to a JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.reg.Export(args[0], args[1])
		},
	}
}

func (c *cli) registryImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Register a component from a JSON file and save the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comp, err := c.app.reg.Import(args[0])
			if err != nil {
				return err
			}
			if err := c.app.saveRegistry(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %s\n", comp.ID)
			return err
		},
	}
}
