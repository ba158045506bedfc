package enhancer

import (
	"fmt"
	"strings"
)

// unifiedDiff produces a minimal unified-format diff between original and
// enhanced content. It is not a full Myers diff: each differing line
// position is reported as a line-number header plus remove/add lines
// rather than
// computing a minimal edit script, which is sufficient for a
// human-readable preview without pulling in an external diff library the
// rest of the corpus does not otherwise use.
func unifiedDiff(path, original, enhanced string) string {
	if original == enhanced {
		return ""
	}
	origLines := strings.Split(original, "\n")
	newLines := strings.Split(enhanced, "\n")

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", path, path)

	max := len(origLines)
	if len(newLines) > max {
		max = len(newLines)
	}
	for i := 0; i < max; i++ {
		var o, n string
		oOK, nOK := i < len(origLines), i < len(newLines)
		if oOK {
			o = origLines[i]
		}
		if nOK {
			n = newLines[i]
		}
		if oOK && nOK && o == n {
			continue
		}
		fmt.Fprintf(&b, "@@ line %d @@\n", i+1)
		if oOK {
			fmt.Fprintf(&b, "-%s\n", o)
		}
		if nOK {
			fmt.Fprintf(&b, "+%s\n", n)
		}
	}
	return b.String()
}
