// mausctl encodes and decodes .maus streams and .mauz archives.
//
// Commands:
//
//	encode   Encode a file into a .maus stream
//	decode   Decode a .maus stream back to its original file
//	pack     Pack one or more files into a .mauz archive
//	unpack   Unpack a .mauz archive into a directory
package main

import (
	"os"

	"github.com/mausctl/maus/internal/cli"
)

// version is the application version reported by --version.
const version = "v0.1.0"

func main() {
	os.Exit(cli.Execute(version))
}
