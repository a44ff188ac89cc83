// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The cellref command analyzes reactive references in notebook files.
//
// A notebook file is a sequence of Python cells separated by "---"
// lines; a cell may name itself with a leading "# cell: name" comment.
// With no arguments, cellref starts an interactive session.
package main // import "go.cellref.dev/cmd/cellref"

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"go.cellref.dev/notebook"
	"go.cellref.dev/repl"
	"go.cellref.dev/resolve"
)

func main() {
	os.Exit(doMain())
}

func doMain() int {
	log.SetPrefix("cellref: ")
	log.SetFlags(0)
	if err := newRootCmd().Execute(); err != nil {
		log.Print(err)
		return 1
	}
	return 0
}

// flags shared by the analysis subcommands.
type analysisFlags struct {
	bindings string
	cell     string
	setup    string
	asJSON   bool
}

func (f *analysisFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.bindings, "bindings", "", "YAML binding table to resolve against instead of the notebook's own cells")
	fs.StringVar(&f.cell, "cell", "", "analyze only the named cell")
	fs.StringVar(&f.setup, "setup", "", "treat the named cell as a non-reactive setup cell")
	fs.BoolVar(&f.asJSON, "json", false, "emit JSON")
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cellref",
		Short: "resolve reactive references between notebook cells",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newResolveCmd(), newDepsCmd(), newDefsCmd(), newReplCmd())
	return root
}

func newResolveCmd() *cobra.Command {
	var flags analysisFlags
	cmd := &cobra.Command{
		Use:   "resolve FILE",
		Short: "print each cell's reactive references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args[0], &flags)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newDepsCmd() *cobra.Command {
	var flags analysisFlags
	cmd := &cobra.Command{
		Use:   "deps FILE",
		Short: "print the cell dependency graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeps(cmd, args[0], &flags)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newDefsCmd() *cobra.Command {
	var flags analysisFlags
	cmd := &cobra.Command{
		Use:   "defs FILE",
		Short: "print the names each cell defines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDefs(cmd, args[0], &flags)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func newReplCmd() *cobra.Command {
	var flags analysisFlags
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "start an interactive session",
		Args:  cobra.NoArgs,
		RunE:  runRepl,
	}
	flags.register(cmd.Flags())
	return cmd
}

// load reads the notebook and the binding table to resolve against:
// the --bindings file if given, otherwise the table assembled from the
// notebook's own cells.
func load(path string, flags *analysisFlags) ([]notebook.Cell, resolve.Table, error) {
	cells, err := notebook.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if flags.bindings != "" {
		table, err := notebook.LoadTable(flags.bindings)
		if err != nil {
			return nil, nil, err
		}
		return cells, table, nil
	}
	return cells, notebook.BuildTable(cells), nil
}

// jsonRef is the JSON form of one resolved reference.
type jsonRef struct {
	Cell string   `json:"cell"`
	From int      `json:"from"`
	To   int      `json:"to"`
	Name string   `json:"name"`
	Defs []string `json:"defined_in,omitempty"`
}

func runResolve(cmd *cobra.Command, path string, flags *analysisFlags) error {
	cells, table, err := load(path, flags)
	if err != nil {
		return err
	}
	var out []jsonRef
	for _, cell := range cells {
		if flags.cell != "" && cell.ID != flags.cell {
			continue
		}
		for _, ref := range notebook.Refs(cell, table, flags.setup) {
			out = append(out, jsonRef{
				Cell: cell.ID,
				From: ref.From,
				To:   ref.To,
				Name: ref.Name,
				Defs: table.Owners(ref.Name),
			})
		}
	}
	if flags.asJSON {
		return writeJSON(cmd, out)
	}
	for _, r := range out {
		fmt.Fprintf(cmd.OutOrStdout(), "%s:%d-%d: %s (from %s)\n",
			r.Cell, r.From, r.To, r.Name, joinOr(r.Defs, "?"))
	}
	return nil
}

func runDeps(cmd *cobra.Command, path string, flags *analysisFlags) error {
	cells, _, err := load(path, flags)
	if err != nil {
		return err
	}
	graph := notebook.Graph(cells, flags.setup)
	if flags.asJSON {
		return writeJSON(cmd, graph)
	}
	ids := make([]string, 0, len(graph))
	for id := range graph {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, joinOr(graph[id], "-"))
	}
	return nil
}

func runDefs(cmd *cobra.Command, path string, flags *analysisFlags) error {
	cells, _, err := load(path, flags)
	if err != nil {
		return err
	}
	table := notebook.BuildTable(cells)
	if flags.asJSON {
		return writeJSON(cmd, table)
	}
	repl.WriteTable(cmd.OutOrStdout(), table)
	return nil
}

func runRepl(cmd *cobra.Command, _ []string) error {
	var table resolve.Table
	if bindings, err := cmd.Flags().GetString("bindings"); err == nil && bindings != "" {
		table, err = notebook.LoadTable(bindings)
		if err != nil {
			return err
		}
	}
	setup, _ := cmd.Flags().GetString("setup")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(cmd.OutOrStdout(), "Welcome to cellref (type a cell, end with a blank line)")
	}
	repl.REPL(notebook.NewSession(table, setup))
	return nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func joinOr(elems []string, empty string) string {
	if len(elems) == 0 {
		return empty
	}
	return strings.Join(elems, ", ")
}
