// Package script implements the patch-script parser (§4.H): a file path in,
// a patch set out. The grammar is line-oriented:
//
//	line := OP WS FROM WS TO
//
// OP is a token naming a patch.Kind (§6: REPLACE_FUNCTION_INTERNAL or NOP),
// FROM and TO are whitespace-separated symbol-name tokens. Blank or
// whitespace-only lines are skipped (§9 Open Questions). Syntax is scoped
// to the grammar itself (§4.H): a line that does not tokenize to exactly
// three tokens, or that exceeds 255 bytes, is a Syntax error. An OP token
// that is not in the table below is not a grammar violation — it parses
// into a patch.Unrecognized patch and is deferred to apply time, where it
// surfaces as status.Unknown (§8 scenario 4).
package script

import (
	"bufio"
	"errors"
	"os"
	"strings"

	"github.com/xyproto/dpatch/internal/dlog"
	"github.com/xyproto/dpatch/internal/patch"
	"github.com/xyproto/dpatch/internal/patchset"
	"github.com/xyproto/dpatch/internal/status"
)

// MaxLineLength is the longest line (in bytes) the parser will accept.
const MaxLineLength = 255

// operations maps the closed set of script tokens named in spec.md §6 to
// the patch.Kind they produce. This is the "string -> enum table" spec.md
// §9 notes is missing from the original source and must be defined by a
// real implementation.
var operations = map[string]patch.Kind{
	"REPLACE_FUNCTION_INTERNAL": patch.ReplaceFunctionInternal,
	"NOP":                       patch.Nop,
}

// Parse reads path line by line and adds each successfully parsed triple to
// a fresh patch set, returning it. A script produces exactly one patch set
// (§3).
func Parse(path string) (*patchset.Set, status.Status) {
	f, err := os.Open(path)
	if err != nil {
		dlog.Errorf("patch script %q: %v", path, err)
		return nil, status.File
	}
	defer f.Close()

	set := patchset.New()
	scanner := bufio.NewScanner(f)
	// Scanner's internal buffer must be able to hold lines longer than
	// MaxLineLength so that the length check below can reject them with
	// Syntax instead of the scanner itself failing with a generic "token
	// too long" I/O error.
	const maxScanLine = 64 * 1024
	buf := make([]byte, 0, maxScanLine)
	scanner.Buffer(buf, maxScanLine)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		if len(line) > MaxLineLength {
			dlog.Errorf("patch script %q:%d: line exceeds %d bytes", path, lineNo, MaxLineLength)
			return nil, status.Syntax
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		tokens := strings.Fields(line)
		if len(tokens) != 3 {
			dlog.Errorf("patch script %q:%d: expected 3 tokens, got %d", path, lineNo, len(tokens))
			return nil, status.Syntax
		}

		kind, ok := operations[tokens[0]]
		if !ok {
			dlog.Infof("patch script %q:%d: unrecognized operation %q, deferring to apply time", path, lineNo, tokens[0])
			kind = patch.Unrecognized
		}

		set.Add(kind, tokens[1], tokens[2])
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			dlog.Errorf("patch script %q:%d: line exceeds %d bytes", path, lineNo+1, MaxLineLength)
			return nil, status.Syntax
		}
		dlog.Errorf("patch script %q: %v", path, err)
		return nil, status.File
	}

	return set, status.OK
}
