// Command advisor-cli evaluates a budget and asks financial questions from
// the terminal, using the same rules and answerers as the web server.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
