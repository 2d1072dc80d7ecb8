package cli

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	streamerr "github.com/mausctl/maus/internal/errors"
	"github.com/mausctl/maus/internal/progressbus"
	"github.com/mausctl/maus/internal/streamcodec"
)

func init() {
	decodeCmd.SilenceErrors = true
	decodeCmd.SilenceUsage = true
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode a .maus stream back to its original file",
	Long: `Decode a .maus stream back to its original contents.

If no password is provided and the stream is encrypted, you will be
prompted to enter one interactively.

Examples:
  mausctl decode -i secret.maus -o secret.txt
  mausctl decode -i secret.maus -o secret.txt -p "mypassword"
  echo "mypassword" | mausctl decode -i secret.maus -P`,
	RunE: runDecode,
}

var (
	decInput         string
	decOutput        string
	decPassword      string
	decPasswordStdin bool
	decQuiet         bool
	decYes           bool
)

func init() {
	rootCmd.AddCommand(decodeCmd)

	decodeCmd.Flags().StringVarP(&decInput, "input", "i", "", "Input .maus file to decode")
	decodeCmd.Flags().StringVarP(&decOutput, "output", "o", "", "Output file path (auto-detected if not specified)")

	decodeCmd.Flags().StringVarP(&decPassword, "password", "p", "", "Decryption password")
	decodeCmd.Flags().BoolVarP(&decPasswordStdin, "password-stdin", "P", false, "Read password from stdin")

	decodeCmd.Flags().BoolVarP(&decQuiet, "quiet", "q", false, "Suppress progress output")
	decodeCmd.Flags().BoolVarP(&decYes, "yes", "y", false, "Overwrite output file without prompting")

	_ = decodeCmd.MarkFlagRequired("input")
}

func runDecode(cmd *cobra.Command, args []string) error {
	if decInput == "" {
		return fmt.Errorf("input file is required (-i)")
	}
	info, err := os.Stat(decInput)
	if err != nil {
		return fmt.Errorf("input file not found: %s", decInput)
	}
	if info.IsDir() {
		return fmt.Errorf("input must be a file, not a directory: %s", decInput)
	}

	wire, err := os.ReadFile(decInput)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	reporter := NewReporter(decQuiet)
	globalReporter = reporter
	bus := progressbus.New(reporter)

	opts, err := resolveDecodeOptions()
	if err != nil {
		return err
	}

	dc := streamcodec.NewDecompressCodec(bus)
	entry, err := dc.Decode(bytes.NewReader(wire), opts)
	if streamerr.Is(err, streamerr.ErrInvalidState) && len(opts.Password) == 0 && len(opts.RawKey) == 0 {
		// Stream is encrypted but no credential was supplied; prompt once.
		password, perr := ReadPasswordInteractive(false)
		if perr != nil {
			return perr
		}
		opts.Password = []byte(password)
		entry, err = dc.Decode(bytes.NewReader(wire), opts)
	}
	if err != nil {
		reporter.PrintError("%v", err)
		return err
	}

	outputFile := decOutput
	if outputFile == "" {
		outputFile = entry.Path
		if outputFile == "" || outputFile == decInput {
			outputFile = strings.TrimSuffix(decInput, ".maus")
			if outputFile == decInput {
				outputFile = decInput + ".decoded"
			}
		}
	}
	if err := confirmOverwrite(outputFile, decYes); err != nil {
		return err
	}
	if err := os.WriteFile(outputFile, entry.Plaintext, 0o600); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	reporter.Finish()
	reporter.PrintSuccess("Decoded %s -> %s", decInput, outputFile)
	return nil
}

func resolveDecodeOptions() (streamcodec.OpenOptions, error) {
	if decPasswordStdin {
		pw, err := ReadPasswordFromStdin()
		if err != nil {
			return streamcodec.OpenOptions{}, err
		}
		return streamcodec.OpenOptions{Password: []byte(pw)}, nil
	}
	if decPassword != "" {
		return streamcodec.OpenOptions{Password: []byte(decPassword)}, nil
	}
	return streamcodec.OpenOptions{}, nil
}
