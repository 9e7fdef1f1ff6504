// Command quakerisk ranks US regions by recent earthquake activity and assesses
// client properties for earthquake insurance.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
