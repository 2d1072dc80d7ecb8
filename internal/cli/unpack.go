package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mausctl/maus/internal/archive"
	"github.com/mausctl/maus/internal/progressbus"
	"github.com/mausctl/maus/internal/streamcodec"
)

func init() {
	unpackCmd.SilenceErrors = true
	unpackCmd.SilenceUsage = true
}

var unpackCmd = &cobra.Command{
	Use:   "unpack",
	Short: "Unpack a .mauz archive into a directory",
	Long: `Unpack a .mauz archive, restoring every entry's original path
beneath the output directory.

Entries whose filename was itself encrypted are held as an Unknown
placeholder until the supplied password resolves them - if it does not
match, those entries are reported and skipped rather than aborting the
whole extraction.

Examples:
  mausctl unpack -i bundle.mauz -o out/
  mausctl unpack -i secret.mauz -o out/ -p "mypassword"`,
	RunE: runUnpack,
}

var (
	unpackInput         string
	unpackOutput        string
	unpackPassword      string
	unpackPasswordStdin bool
	unpackHashFn        string
	unpackQuiet         bool
	unpackYes           bool
)

func init() {
	rootCmd.AddCommand(unpackCmd)

	unpackCmd.Flags().StringVarP(&unpackInput, "input", "i", "", "Input .mauz archive to unpack")
	unpackCmd.Flags().StringVarP(&unpackOutput, "output", "o", "", "Output directory")

	unpackCmd.Flags().StringVarP(&unpackPassword, "password", "p", "", "Decryption password")
	unpackCmd.Flags().BoolVarP(&unpackPasswordStdin, "password-stdin", "P", false, "Read password from stdin")
	unpackCmd.Flags().StringVar(&unpackHashFn, "hash", "sha256", "Hash function the archive was packed with")

	unpackCmd.Flags().BoolVarP(&unpackQuiet, "quiet", "q", false, "Suppress progress output")
	unpackCmd.Flags().BoolVarP(&unpackYes, "yes", "y", false, "Overwrite existing files without prompting")

	_ = unpackCmd.MarkFlagRequired("input")
}

func runUnpack(cmd *cobra.Command, args []string) error {
	if unpackInput == "" {
		return fmt.Errorf("input file is required (-i)")
	}
	info, err := os.Stat(unpackInput)
	if err != nil {
		return fmt.Errorf("input file not found: %s", unpackInput)
	}
	if info.IsDir() {
		return fmt.Errorf("input must be a file, not a directory: %s", unpackInput)
	}

	outDir := unpackOutput
	if outDir == "" {
		outDir = strings.TrimSuffix(filepath.Base(unpackInput), ".mauz")
	}

	hashFn, err := parseHashFn(unpackHashFn)
	if err != nil {
		return err
	}

	f, err := os.Open(unpackInput)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	reporter := NewReporter(unpackQuiet)
	globalReporter = reporter
	bus := progressbus.New(reporter)

	a, err := archive.ReadArchive(f, hashFn, bus)
	if err != nil {
		reporter.PrintError("%v", err)
		return err
	}

	opts, err := resolveUnpackOptions()
	if err != nil {
		return err
	}
	if len(opts.Password) == 0 && len(opts.RawKey) == 0 && hasUnknownEntries(a) {
		password, perr := ReadPasswordInteractive(false)
		if perr != nil {
			return perr
		}
		opts.Password = []byte(password)
	}

	var failures []string
	for i, e := range a.Entries {
		if e.Kind == archive.EntryUnknown {
			resolved, err := a.Resolve(int64(i), opts)
			if err != nil {
				failures = append(failures, fmt.Sprintf("entry %d: %v", i, err))
				continue
			}
			e = resolved
		}
		if err := writeUnpackedEntry(outDir, e); err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", e.Path, err))
		}
	}

	reporter.Finish()
	if len(failures) > 0 {
		for _, f := range failures {
			reporter.PrintError("%s", f)
		}
		return fmt.Errorf("%d entries failed to unpack", len(failures))
	}
	reporter.PrintSuccess("Unpacked %d entries into %s", len(a.Entries), outDir)
	return nil
}

func hasUnknownEntries(a *archive.Archive) bool {
	for _, e := range a.Entries {
		if e.Kind == archive.EntryUnknown {
			return true
		}
	}
	return false
}

func resolveUnpackOptions() (streamcodec.OpenOptions, error) {
	if unpackPasswordStdin {
		pw, err := ReadPasswordFromStdin()
		if err != nil {
			return streamcodec.OpenOptions{}, err
		}
		return streamcodec.OpenOptions{Password: []byte(pw)}, nil
	}
	if unpackPassword != "" {
		return streamcodec.OpenOptions{Password: []byte(unpackPassword)}, nil
	}
	return streamcodec.OpenOptions{}, nil
}

func writeUnpackedEntry(outDir string, e *archive.ArchiveEntry) error {
	target := filepath.Join(outDir, filepath.FromSlash(e.Path))
	if e.Kind == archive.EntryDir {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if !unpackYes {
		if err := confirmOverwrite(target, false); err != nil {
			return err
		}
	}
	return os.WriteFile(target, e.Plaintext, 0o600)
}
