// cmd/adminctl/main.go
//
// Operator CLI for the storefront admin.
//
// Commands
// --------
//
//	adminctl migrate                         create missing tables
//	adminctl user add --email E [--password P]
//	adminctl export [--out FILE]             JSON snapshot of every table
//	adminctl reset --confirm "DELETE ALL DATA"
//
// Every command boots through internal/app, so it reads the same conf/
// directory and STOREFRONT_ environment as cmd/web.
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
