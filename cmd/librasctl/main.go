// Command librasctl turns hand signs seen by a webcam into keyboard and mouse
// input, controlled over a local websocket.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
