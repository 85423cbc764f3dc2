// Command dataplay runs the table engines against local files.
//
//	dataplay describe sales.csv
//	dataplay filter sales.csv --where amount:gt:100 --sort amount --desc
//	dataplay aggregate sales.csv --group region --values amount --funcs sum,mean
//	dataplay join orders.csv customers.parquet --on customer_id --how left --out joined.parquet
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/dataplay/internal/core"
)

func main() {
	// .env is optional for the CLI; real environment variables win.
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if msg := core.FormatUserError(err); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(1)
	}
}
