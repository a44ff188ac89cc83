// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chunkedfile provides utilities for testing that resolved
// reactive references are reported in the appropriate places.
//
// A chunked file consists of several chunks of cell source separated by
// "---" lines. Each chunk is an input to the resolver under test.
// Lines containing "###" carry expectations: the following
// whitespace-separated words are the names expected to resolve as
// reactive references on that line.
//
// Example:
//
//	def f(a): return a + b ### b
//	---
//	x = [n for n in data] ### data
//
// A client test feeds each chunk into the resolver, then calls
// chunk.GotRef for every reference that actually resolved. Any
// discrepancy between actual and expected references is reported via
// the client's reporter, typically a testing.T.
package chunkedfile // import "go.cellref.dev/internal/chunkedfile"

import (
	"fmt"
	"os"
	"strings"
)

const debug = false

// A Chunk is a portion of a chunked file.
// It carries the references expected to resolve, keyed by line.
type Chunk struct {
	Source   string
	filename string
	report   Reporter
	wantRefs map[int][]string
}

// Reporter is implemented by *testing.T.
type Reporter interface {
	Errorf(format string, args ...interface{})
}

// Read parses a chunked file and returns its chunks.
// It reports failures using the reporter.
//
// Each chunk's Source is padded with leading newlines so that its line
// numbers match the original file, which keeps reported positions
// clickable in editors.
func Read(filename string, report Reporter) (chunks []Chunk) {
	data, err := os.ReadFile(filename)
	if err != nil {
		report.Errorf("%s", err)
		return
	}
	return readBytes(filename, data, report)
}

func readBytes(filename string, data []byte, report Reporter) (chunks []Chunk) {
	linenum := 1

	for i, chunk := range strings.Split(string(data), "\n---\n") {
		if debug {
			fmt.Printf("chunk %d at line %d: %s\n", i, linenum, chunk)
		}
		src := strings.Repeat("\n", linenum-1) + chunk

		wantRefs := make(map[int][]string)

		// Parse expectations of the form:
		// ### name1 name2
		lines := strings.Split(chunk, "\n")
		for j := 0; j < len(lines); j, linenum = j+1, linenum+1 {
			line := lines[j]
			hashes := strings.Index(line, "###")
			if hashes < 0 {
				continue
			}
			names := strings.Fields(line[hashes+len("###"):])
			if len(names) == 0 {
				report.Errorf("\n%s:%d: ### with no expected names", filename, linenum)
				continue
			}
			wantRefs[linenum] = names
			if debug {
				fmt.Printf("\t%d\t%v\n", linenum, names)
			}
		}
		linenum++

		chunks = append(chunks, Chunk{src, filename, report, wantRefs})
	}
	return chunks
}

// GotRef should be called by the client for each reference that
// resolved, with the line it occurred on. Unexpected references are
// reported to the chunk's reporter.
func (chunk *Chunk) GotRef(linenum int, name string) {
	want := chunk.wantRefs[linenum]
	for i, w := range want {
		if w == name {
			chunk.wantRefs[linenum] = append(want[:i:i], want[i+1:]...)
			if len(chunk.wantRefs[linenum]) == 0 {
				delete(chunk.wantRefs, linenum)
			}
			return
		}
	}
	chunk.report.Errorf("\n%s:%d: unexpected reference: %s", chunk.filename, linenum, name)
}

// Done should be called by the client to indicate the chunk has no more
// references. Done reports expected references that did not occur.
func (chunk *Chunk) Done() {
	for linenum, names := range chunk.wantRefs {
		chunk.report.Errorf("\n%s:%d: expected reference(s) not resolved: %s",
			chunk.filename, linenum, strings.Join(names, " "))
	}
}
