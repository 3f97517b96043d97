/*-------------------------------------------------------------------------
 *
 * pgEdge Schema Documenter
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	overrideSetColumn   string
	overrideUnsetColumn string
)

var overridesCmd = &cobra.Command{
	Use:   "overrides",
	Short: "Manage manually reviewed descriptions",
	Long: `overrides manages the store of human-reviewed descriptions. An override
outranks every other source: canonical files, propagation, and pattern
inference all yield to it. Overrides persist across runs.`,
}

var overridesSetCmd = &cobra.Command{
	Use:   "set <entity> <description>",
	Short: "Record an override for an entity or (with --column) one of its columns",
	Args:  cobra.ExactArgs(2),
	RunE:  runOverridesSet,
}

var overridesUnsetCmd = &cobra.Command{
	Use:   "unset <entity>",
	Short: "Remove an override",
	Args:  cobra.ExactArgs(1),
	RunE:  runOverridesUnset,
}

var overridesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every stored override",
	Args:  cobra.NoArgs,
	RunE:  runOverridesList,
}

func init() {
	overridesSetCmd.Flags().StringVar(&overrideSetColumn, "column", "", "Column to override (omit for the entity description)")
	overridesUnsetCmd.Flags().StringVar(&overrideUnsetColumn, "column", "", "Column whose override to remove")

	overridesCmd.AddCommand(overridesSetCmd, overridesUnsetCmd, overridesListCmd)
	rootCmd.AddCommand(overridesCmd)
}

func runOverridesSet(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Set(args[0], overrideSetColumn, args[1]); err != nil {
		return err
	}

	target := args[0]
	if overrideSetColumn != "" {
		target += "." + overrideSetColumn
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Override recorded for %s\n", target)
	return nil
}

func runOverridesUnset(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Unset(args[0], overrideUnsetColumn); err != nil {
		return err
	}

	target := args[0]
	if overrideUnsetColumn != "" {
		target += "." + overrideUnsetColumn
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Override removed for %s\n", target)
	return nil
}

func runOverridesList(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	overrides, err := store.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(overrides) == 0 {
		fmt.Fprintln(out, "No overrides stored.")
		return nil
	}

	for _, o := range overrides {
		target := o.Entity
		if o.Column != "" {
			target += "." + o.Column
		}
		fmt.Fprintf(out, "%s\t%s\t(updated %s)\n",
			target, o.Description, o.UpdatedAt.Format("2006-01-02"))
	}
	return nil
}
