package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mocktape/mocktape/pkg/cassette"
)

func newCassetteCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "cassette",
		Short: "Inspect and export recorded cassettes",
	}
	cmd.PersistentFlags().StringVarP(&dir, "dir", "d", "cassettes", "cassette directory")

	list := &cobra.Command{
		Use:   "list",
		Short: "List cassettes in the directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := cassette.NewFileStore(dir)
			if err != nil {
				return err
			}
			names, err := store.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cassettes found.")
				return nil
			}
			for _, name := range names {
				c, _, err := store.Load(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d recordings\t%d endpoints\n",
					name, len(c.Recordings), c.Metadata.UniqueEndpoints)
			}
			return nil
		},
	}

	inspect := &cobra.Command{
		Use:   "inspect <name>",
		Short: "Show a cassette's recordings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cassette.NewFileStore(dir)
			if err != nil {
				return err
			}
			c, found, err := store.Load(args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("cassette %q does not exist in %s", args[0], dir)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cassette: %s (v%s)\n", c.Name, c.Version)
			fmt.Fprintf(out, "Created:  %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Updated:  %s\n", c.UpdatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Requests: %d (%d unique endpoints)\n\n", c.Metadata.TotalRequests, c.Metadata.UniqueEndpoints)
			for _, rec := range c.Recordings {
				fmt.Fprintf(out, "  %-6s %-40s -> %d  (%s)\n",
					rec.Request.Method, rec.Request.URL, rec.Response.Status, rec.Duration)
			}
			return nil
		},
	}

	export := &cobra.Command{
		Use:   "export <name>",
		Short: "Export a cassette as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cassette.NewFileStore(dir)
			if err != nil {
				return err
			}
			c, found, err := store.Load(args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("cassette %q does not exist in %s", args[0], dir)
			}
			raw, err := cassette.ExportYAML(c)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}

	cmd.AddCommand(list, inspect, export)
	return cmd
}
