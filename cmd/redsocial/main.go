// Command redsocial はSNSバックエンドの各APIサービスを起動する。
//
//	redsocial serve <auth|like|post|user>
//	redsocial migrate
//	redsocial healthcheck <auth|like|post|user>
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/redsocial/internal/app"
)

func main() {
	if err := app.NewRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "redsocial: %v\n", err)
		os.Exit(1)
	}
}
