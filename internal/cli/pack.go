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
	"github.com/mausctl/maus/internal/streamheader"
)

func init() {
	packCmd.SilenceErrors = true
	packCmd.SilenceUsage = true
}

var packCmd = &cobra.Command{
	Use:   "pack",
	Short: "Pack one or more files into a .mauz archive",
	Long: `Pack one or more files (and, recursively, directories) into a
single .mauz archive, each as its own .maus entry bound by a manifest.

Examples:
  mausctl pack -i a.txt -i b.txt -o bundle.mauz
  mausctl pack -i project/ -o project.mauz --compression deflate
  mausctl pack -i secret/ -o secret.mauz --encrypt-filename -p "mypassword"`,
	RunE: runPack,
}

var (
	packInputs        []string
	packOutput        string
	packPassword      string
	packPasswordStdin bool
	packCompression   string
	packHashFn        string
	packAESBits       int
	packPBKDF2Cycles  int64
	packEncryptName   bool
	packNoEncrypt     bool
	packQuiet         bool
	packYes           bool
)

func init() {
	rootCmd.AddCommand(packCmd)

	packCmd.Flags().StringArrayVarP(&packInputs, "input", "i", nil, "Input file or directory (can be specified multiple times)")
	packCmd.Flags().StringVarP(&packOutput, "output", "o", "", "Output .mauz file path")

	packCmd.Flags().StringVarP(&packPassword, "password", "p", "", "Encryption password (omit to be prompted)")
	packCmd.Flags().BoolVarP(&packPasswordStdin, "password-stdin", "P", false, "Read password from stdin")
	packCmd.Flags().BoolVar(&packNoEncrypt, "no-encrypt", false, "Write unencrypted entries; skips the password prompt")

	packCmd.Flags().StringVar(&packCompression, "compression", "none", "Payload compression: none, deflate, or lzma")
	packCmd.Flags().StringVar(&packHashFn, "hash", "sha256", "Hash function shared by every entry and the manifest")
	packCmd.Flags().IntVar(&packAESBits, "aes-bits", 256, "AES key size when encrypting: 128, 192, or 256")
	packCmd.Flags().Int64Var(&packPBKDF2Cycles, "pbkdf2-cycles", DefaultPBKDF2Cycles, "PBKDF2 iteration count")
	packCmd.Flags().BoolVar(&packEncryptName, "encrypt-filename", false, "Hide each entry's path behind the Unknown placeholder until decrypted")

	packCmd.Flags().BoolVarP(&packQuiet, "quiet", "q", false, "Suppress progress output")
	packCmd.Flags().BoolVarP(&packYes, "yes", "y", false, "Overwrite output file without prompting")

	_ = packCmd.MarkFlagRequired("input")
}

func runPack(cmd *cobra.Command, args []string) error {
	if len(packInputs) == 0 {
		return fmt.Errorf("at least one input file or directory is required (-i)")
	}

	paths, err := expandPackInputs(packInputs)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files found to pack")
	}

	outputFile := packOutput
	if outputFile == "" {
		outputFile = "archive.mauz"
	}
	if err := confirmOverwrite(outputFile, packYes); err != nil {
		return err
	}

	compression, err := parseCompression(packCompression)
	if err != nil {
		return err
	}
	hashFn, err := parseHashFn(packHashFn)
	if err != nil {
		return err
	}

	var password []byte
	var aesBits int
	if !packNoEncrypt {
		pw, err := resolvePackPassword()
		if err != nil {
			return err
		}
		password = []byte(pw)
		aesBits, err = parseAESKeyBits(packAESBits)
		if err != nil {
			return err
		}
	}

	entries := make([]archive.WriteEntry, 0, len(paths))
	for _, p := range paths {
		plaintext, relPath, err := readPackEntry(p)
		if err != nil {
			return err
		}
		cfg := streamcodec.Config{
			Version:     streamheader.CurrentVersion,
			Compression: compression,
			HashFn:      hashFn,
			Path:        relPath,
		}
		if !packNoEncrypt {
			cfg.Encryption = streamheader.EncryptionAES
			cfg.AESKeyBits = aesBits
			cfg.PBKDF2Cycles = packPBKDF2Cycles
			cfg.Password = password
			cfg.EncryptedOptions = map[streamcodec.EncryptedOption]bool{
				streamcodec.EncryptFilename: packEncryptName,
			}
		}
		entries = append(entries, archive.WriteEntry{Config: cfg, Plaintext: plaintext})
	}

	reporter := NewReporter(packQuiet)
	globalReporter = reporter
	bus := progressbus.New(reporter)

	wire, err := archive.WriteArchive(streamheader.CurrentVersion, entries, nil, bus)
	if err != nil {
		reporter.PrintError("%v", err)
		return err
	}
	if err := os.WriteFile(outputFile, wire, 0o600); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	reporter.Finish()
	reporter.PrintSuccess("Packed %d entries into %s", len(entries), outputFile)
	return nil
}

func resolvePackPassword() (string, error) {
	if packPasswordStdin {
		return ReadPasswordFromStdin()
	}
	if packPassword != "" {
		return packPassword, nil
	}
	return ReadPasswordInteractive(true)
}

// expandPackInputs walks each input path, returning every regular file
// (directories are recursed into) plus an explicit empty-directory marker
// for an input directory whose whole tree contains no regular files. Empty
// subdirectories inside an input directory get no marker.
func expandPackInputs(inputs []string) ([]string, error) {
	var files []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("input not found: %s", in)
		}
		if !info.IsDir() {
			files = append(files, in)
			continue
		}
		sawFile := false
		err = filepath.Walk(in, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() {
				sawFile = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", in, err)
		}
		if !sawFile {
			files = append(files, in+string(filepath.Separator))
		}
	}
	return files, nil
}

// readPackEntry returns the plaintext payload and archive-relative path for
// one input path. A trailing separator marks the §4.1.4 empty-directory
// variant: the payload is the literal single byte '/'.
func readPackEntry(path string) ([]byte, string, error) {
	if strings.HasSuffix(path, string(filepath.Separator)) {
		dir := strings.TrimSuffix(path, string(filepath.Separator))
		return []byte("/"), filepath.ToSlash(dir) + "/", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	return data, filepath.ToSlash(path), nil
}
