// Command assetpipe resolves image files through the asset pipeline and
// inspects the durable outbound queue.
//
// Usage:
//
//	assetpipe resolve [--budget N] [--queue-dir DIR] FILE...
//	assetpipe queue ls --queue-dir DIR
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
