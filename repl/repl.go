// Package repl provides a read/analyze/print loop for notebook cells.
//
// It supports readline-style command editing,
// and interrupts through Control-C.
//
// Each input chunk is treated as a fresh cell: the REPL prints the
// chunk's reactive references against the bindings accumulated from
// earlier chunks, then folds the chunk's own definitions into the
// session. A line that opens a suite or a bracket switches the REPL to
// continuation prompts until the input is complete.
package repl // import "go.cellref.dev/repl"

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"

	"go.cellref.dev/notebook"
	"go.cellref.dev/resolve"
)

// REPL executes a read, analyze, print loop over the session.
// Control-C surfaces as readline.ErrInterrupt and discards the
// current chunk.
func REPL(session *notebook.Session) {
	rl, err := readline.New(">>> ")
	if err != nil {
		PrintError(err)
		return
	}
	defer rl.Close()
	for n := 1; ; n++ {
		if err := rap(rl, session, fmt.Sprintf("cell%d", n)); err != nil {
			if err == readline.ErrInterrupt {
				fmt.Println(err)
				continue
			}
			break
		}
	}
	fmt.Println()
}

// rap reads, analyzes, and prints one cell.
//
// It returns an error (possibly readline.ErrInterrupt)
// only if readline failed.
func rap(rl *readline.Instance, session *notebook.Session, id string) error {
	eof := false

	// readline returns EOF, ErrInterrupted, or a line including "\n".
	rl.SetPrompt(">>> ")
	readline := func() (string, error) {
		line, err := rl.Readline()
		rl.SetPrompt("... ")
		if err != nil {
			if err == io.EOF {
				eof = true
			}
			return "", err
		}
		return line + "\n", nil
	}

	src, err := readCell(readline)
	if err != nil {
		if eof {
			return io.EOF
		}
		return err
	}
	if strings.TrimSpace(src) == "" {
		return nil
	}

	cell := notebook.Cell{ID: id, Source: src}
	refs, ok := session.Analyze(cell)
	if ok {
		table := session.Table()
		for _, ref := range refs {
			line, col := position(src, ref.From)
			owners := strings.Join(table.Owners(ref.Name), ", ")
			fmt.Printf("%d:%d: %s (from %s)\n", line, col, ref.Name, owners)
		}
	}
	session.Commit(cell)
	return nil
}

// readCell reads one cell's worth of input: a single line, or, if the
// first line opens a suite or bracket, lines until a blank one.
func readCell(readline func() (string, error)) (string, error) {
	var b strings.Builder
	for {
		line, err := readline()
		if err != nil {
			return "", err
		}
		b.WriteString(line)
		src := b.String()
		if !needsMore(src) {
			return src, nil
		}
		if strings.TrimSpace(line) == "" {
			return src, nil
		}
	}
}

// needsMore reports whether the input so far is visibly incomplete:
// inside a bracket, after a trailing backslash, or after a colon line
// that opens an indented suite.
func needsMore(src string) bool {
	depth := 0
	var quote byte
	escaped := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		}
	}
	if depth > 0 || quote != 0 {
		return true
	}
	trimmed := strings.TrimRight(src, "\n")
	if strings.HasSuffix(trimmed, "\\") {
		return true
	}
	// A suite keeps going until the blank line that readCell sees.
	for _, line := range strings.Split(trimmed, "\n") {
		if code := trimComment(line); strings.HasSuffix(code, ":") {
			return true
		}
	}
	return false
}

func trimComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	return strings.TrimSpace(line)
}

// PrintError prints the error to stderr.
func PrintError(err error) {
	fmt.Fprintln(os.Stderr, err)
}

// WriteTable prints the session's binding table, one name per line.
func WriteTable(w io.Writer, table resolve.Table) {
	for _, name := range sortedNames(table) {
		b := table[name]
		fmt.Fprintf(w, "%s\t%s\t%s\n", name, b.Kind, strings.Join(table.Owners(name), ", "))
	}
}

func sortedNames(table resolve.Table) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// position converts a byte offset to 1-based line and column.
func position(src string, off int) (line, col int) {
	line, col = 1, 1
	for i := 0; i < off && i < len(src); i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
