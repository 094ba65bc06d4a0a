// Package colorize wraps fatih/color sprint functions with a global
// enable/disable switch, so CLI output can be colorized when writing
// to a terminal and rendered plain otherwise.
package colorize

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

var enabled = true

// SetEnabled turns colorization on or off process-wide; bindomctl
// disables it when asked to with -no-color. Output to a non-terminal is
// already rendered plain by fatih/color itself.
func SetEnabled(e bool) { enabled = e }

func wrap(col func(a ...interface{}) string) func(...interface{}) string {
	return func(is ...interface{}) string {
		if !enabled {
			return fmt.Sprintf(strings.Repeat("%s", len(is)), is...)
		}
		return col(is...)
	}
}

var (
	dimFn   = wrap(color.New(color.FgCyan).SprintFunc())
	valueFn = wrap(color.New(color.FgGreen).SprintFunc())
	taintFn = wrap(color.New(color.FgRed, color.Bold).SprintFunc())
	botFn   = wrap(color.New(color.FgHiRed).SprintFunc())
	addrFn  = wrap(color.New(color.FgYellow).SprintFunc())
)

// Dim colorizes a dimension's rendering (register name, Mem(...), MemItv(...)).
func Dim(s string) string { return dimFn(s) }

// Value colorizes a cell value's rendering.
func Value(s string) string { return valueFn(s) }

// Taint colorizes the taint suffix of a tainted cell.
func Taint(s string) string { return taintFn(s) }

// Bot colorizes the bottom/infeasible marker.
func Bot(s string) string { return botFn(s) }

// Addr colorizes a bare address, used by the hex/string intrinsics.
func Addr(s string) string { return addrFn(s) }
