package main

import (
	"fmt"
	"io"
)

// printNotices surfaces one-time daemon messages such as the guest login
// nudge and the post-sign-in re-upload prompt.
func printNotices(out io.Writer, notices []string) {
	for _, notice := range notices {
		fmt.Fprintf(out, "Note: %s\n", notice)
	}
}
