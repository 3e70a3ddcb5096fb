package main

import (
	"encoding/json"
	"fmt"
	"os"
)

func main() {
	Execute()
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	exit(1)
}

// exit releases the open data set before leaving, since os.Exit skips
// deferred calls and cobra finalizers.
func exit(code int) {
	closeInstance()
	os.Exit(code)
}

func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fatal("Error encoding JSON", err)
	}
}
