// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package notebook

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"go.cellref.dev/resolve"
)

// tableFile is the on-disk form of a binding table.
type tableFile struct {
	Bindings map[string]tableEntry `yaml:"bindings"`
}

type tableEntry struct {
	Cells []string `yaml:"cells"`
	Kind  string   `yaml:"kind,omitempty"`
}

// LoadTable reads a binding table from a YAML file.
func LoadTable(path string) (resolve.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bindings: %w", err)
	}
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing bindings %s: %w", path, err)
	}
	table := make(resolve.Table, len(file.Bindings))
	for name, entry := range file.Bindings {
		kind := resolve.KindValue
		switch entry.Kind {
		case "", "value":
		case "module":
			kind = resolve.KindModule
		default:
			return nil, fmt.Errorf("%s: binding %q has unknown kind %q", path, name, entry.Kind)
		}
		table[name] = resolve.Binding{Cells: entry.Cells, Kind: kind}
	}
	return table, nil
}

// SaveTable writes a binding table to a YAML file.
func SaveTable(path string, table resolve.Table) error {
	file := tableFile{Bindings: make(map[string]tableEntry, len(table))}
	for name, b := range table {
		cells := append([]string(nil), b.Cells...)
		sort.Strings(cells)
		entry := tableEntry{Cells: cells}
		if b.Kind == resolve.KindModule {
			entry.Kind = "module"
		}
		file.Bindings[name] = entry
	}
	data, err := yaml.Marshal(file)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o666); err != nil {
		return fmt.Errorf("writing bindings: %w", err)
	}
	return nil
}
