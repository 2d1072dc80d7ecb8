// Package cli provides the mausctl command-line interface: encode/decode
// for single .maus streams, pack/unpack for .mauz archives.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set by main.go
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "mausctl",
	Short: "Encode and decode .maus streams and .mauz archives",
	Long: `mausctl reads and writes the .maus stream format and its .mauz
archive container:
  - PBKDF2-HMAC password-based key derivation, HKDF subkey split
  - AES-CBC payload encryption with an HMAC integrity tag
  - Deflate or LZMA payload compression
  - Optional RSA key-wrap and RSA/DSA/ECDSA signatures
  - Per-entry selective filename/timestamp/comment encryption`,
	Version: Version,
}

var globalReporter *Reporter

// Execute runs the mausctl CLI. Returns the process exit code.
func Execute(version string) int {
	Version = version
	rootCmd.Version = version

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		if globalReporter != nil {
			globalReporter.Cancel()
			fmt.Fprintln(os.Stderr, "\ncancelling operation...")
		} else {
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
