package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/specialistvlad/scenegrid/internal/executor"
)

// printResult writes res to the app's output in the configured format.
func (a *App) printResult(res *executor.Result) error {
	if a.config.Output == OutputJSON {
		enc := json.NewEncoder(a.outW)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err := fmt.Fprint(a.outW, formatResult(res))
	return err
}

func formatResult(res *executor.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "request:    %s\n", res.RequestID)
	fmt.Fprintf(&b, "state:      %s\n", res.State)
	if res.CommittedName != "" {
		fmt.Fprintf(&b, "name:       %s\n", res.CommittedName)
	}
	fmt.Fprintf(&b, "datablocks: %d\n", res.Datablocks)
	if t := res.Traversal; t != nil {
		fmt.Fprintf(&b, "traversal:  %s (path length %d)\n", t.Reason, t.PathLength)
	}
	fmt.Fprintf(&b, "duration:   %s\n", res.Duration)
	for _, issue := range res.Validation.Errors {
		fmt.Fprintf(&b, "error:      %s\n", issue)
	}
	for _, issue := range res.Validation.Warnings {
		fmt.Fprintf(&b, "warning:    %s\n", issue)
	}
	if res.Error != "" {
		fmt.Fprintf(&b, "failure:    %s\n", res.Error)
	}
	for _, cerr := range res.CleanupErrors {
		fmt.Fprintf(&b, "cleanup:    %s\n", cerr)
	}
	return b.String()
}
