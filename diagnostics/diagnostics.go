// Package diagnostics formats errors in target profile files and prints them
// in a consistent way.
package diagnostics

import (
	"errors"
	"fmt"
	"go/token"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/tinygo-org/romdfu/targets"
	"gopkg.in/yaml.v2"
)

// A single diagnostic.
type Diagnostic struct {
	Pos token.Position
	Msg string
}

// One or multiple errors of a particular profile file.
type FileDiagnostic struct {
	Filename    string
	Diagnostics []Diagnostic
}

// yaml.v2 puts the line number in the message text.
var yamlLine = regexp.MustCompile(`^(?:yaml: )?line (\d+): (.*)$`)

// CreateDiagnostics reads the underlying errors in the error object and
// creates a set of diagnostics that's sorted and can be readily printed.
func CreateDiagnostics(err error) FileDiagnostic {
	var fileDiag FileDiagnostic
	if err == nil {
		return fileDiag
	}

	var parseErr *targets.ParseError
	var profileErrs targets.Errors
	switch {
	case errors.As(err, &profileErrs):
		for _, e := range profileErrs {
			fileDiag.Filename = e.Filename
			name := e.Name
			if name == "" {
				name = "#" + strconv.Itoa(e.Index)
			}
			fileDiag.Diagnostics = append(fileDiag.Diagnostics, Diagnostic{
				Pos: token.Position{Filename: e.Filename},
				Msg: "target " + name + ": " + e.Err.Error(),
			})
		}
	case errors.As(err, &parseErr):
		fileDiag.Filename = parseErr.Filename
		fileDiag.Diagnostics = createYAMLDiagnostics(parseErr.Filename, parseErr.Err)
	default:
		fileDiag.Diagnostics = []Diagnostic{{Msg: err.Error()}}
	}

	// Sort these diagnostics by line. Profile errors have no line and stay
	// in file order.
	sort.SliceStable(fileDiag.Diagnostics, func(i, j int) bool {
		return fileDiag.Diagnostics[i].Pos.Line < fileDiag.Diagnostics[j].Pos.Line
	})

	return fileDiag
}

// Extract diagnostics from a YAML decoding error. A type error may contain
// many problems, each with its own line.
func createYAMLDiagnostics(filename string, err error) []Diagnostic {
	var msgs []string
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		msgs = typeErr.Errors
	} else {
		msgs = []string{err.Error()}
	}
	diags := make([]Diagnostic, 0, len(msgs))
	for _, msg := range msgs {
		diag := Diagnostic{Pos: token.Position{Filename: filename}, Msg: msg}
		if m := yamlLine.FindStringSubmatch(msg); m != nil {
			diag.Pos.Line, _ = strconv.Atoi(m[1])
			diag.Msg = m[2]
		}
		diags = append(diags, diag)
	}
	return diags
}

// Write file diagnostics to the given writer with 'wd' as the relative
// working directory.
func (fileDiag FileDiagnostic) WriteTo(w io.Writer, wd string) {
	for _, diag := range fileDiag.Diagnostics {
		diag.WriteTo(w, wd)
	}
}

// Write this diagnostic to the given writer with 'wd' as the relative working
// directory.
func (diag Diagnostic) WriteTo(w io.Writer, wd string) {
	if diag.Pos.Filename == "" {
		fmt.Fprintln(w, diag.Msg)
		return
	}
	pos := RelativePosition(diag.Pos, wd)
	if pos.Line == 0 {
		fmt.Fprintf(w, "%s: %s\n", pos.Filename, diag.Msg)
		return
	}
	fmt.Fprintf(w, "%s:%d: %s\n", pos.Filename, pos.Line, diag.Msg)
}

// Convert the position in pos (assumed to have an absolute path) into a
// relative path if possible.
func RelativePosition(pos token.Position, wd string) token.Position {
	// Check whether we even have a working directory.
	if wd == "" || !filepath.IsAbs(pos.Filename) {
		return pos
	}

	// Make the path relative, for easier reading. Ignore any errors in the
	// process (falling back to the absolute path).
	relpath, err := filepath.Rel(wd, pos.Filename)
	if err == nil {
		pos.Filename = relpath
	}
	return pos
}
