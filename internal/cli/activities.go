// internal/cli/activities.go
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"iluma-intelligence/pkg/registry"
)

// NewActivitiesCmd inspects the activity registry the workers validate job
// variables against. It needs no input file.
func NewActivitiesCmd() *cobra.Command {
	var registryPath string

	cmd := &cobra.Command{
		Use:   "activities",
		Short: "List and check activities of the worker registry",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&registryPath, "registry", "", "registry file (default: the built-in registry)")

	catalog := func() (*registry.Catalog, error) {
		if registryPath == "" {
			return registry.Default()
		}
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return nil, err
		}
		return registry.Compile(reg)
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered activities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TASK TYPE\tID\tOPERATIONS\tTIMEOUT\tRETRIES")
			for _, taskType := range c.TaskTypes() {
				a, _ := c.Activity(taskType)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", a.TaskType, a.ID, strings.Join(a.Operations, ","), a.Timeout, a.Retries)
			}
			return tw.Flush()
		},
	}

	validate := &cobra.Command{
		Use:   "validate <task-type> <variables.json>",
		Short: "Check job variables against an activity's input schema",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog()
			if err != nil {
				return err
			}
			var r io.Reader = os.Stdin
			if args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			data, err := io.ReadAll(r)
			if err != nil {
				return err
			}

			result, err := c.ValidateInput(args[0], string(data))
			if err != nil {
				return err
			}
			if result.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", args[0])
				return nil
			}
			for _, msg := range result.GetErrorMessages() {
				fmt.Fprintln(cmd.OutOrStdout(), msg)
			}
			return fmt.Errorf("%s: %d validation errors", args[0], len(result.Errors))
		},
	}

	cmd.AddCommand(list, validate)
	return cmd
}
