package main

import (
	"fmt"
	"io"
	"strings"
)

const (
	ansiDim   = "\033[2m"
	ansiBold  = "\033[1m"
	ansiReset = "\033[0m"
)

// render writes the completion to w. On a terminal the current line up to
// the cursor is shown dimmed in front of the highlighted completion;
// otherwise the completion is written verbatim so it can be piped.
func render(w io.Writer, tty bool, before, completion string) {
	if !tty {
		io.WriteString(w, completion)
		return
	}

	lead := before
	if i := strings.LastIndexByte(before, '\n'); i >= 0 {
		lead = before[i+1:]
	}
	fmt.Fprintf(w, "%s%s%s%s%s%s", ansiDim, lead, ansiReset, ansiBold, completion, ansiReset)
	if !strings.HasSuffix(completion, "\n") {
		io.WriteString(w, "\n")
	}
}
