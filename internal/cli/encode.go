package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mausctl/maus/internal/progressbus"
	"github.com/mausctl/maus/internal/streamcodec"
	"github.com/mausctl/maus/internal/streamheader"
)

func init() {
	encodeCmd.SilenceErrors = true
	encodeCmd.SilenceUsage = true
}

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode a file into a .maus stream",
	Long: `Encode a single file into a .maus stream.

If no password is provided, you will be prompted to enter one
interactively (with confirmation). The password is hidden while typing.

Examples:
  mausctl encode -i secret.txt -o secret.maus
  mausctl encode -i secret.txt -o secret.maus -p "mypassword" --compression deflate
  mausctl encode -i data.db -o data.maus --aes-bits 256 --encrypt-filename
  echo "mypassword" | mausctl encode -i secret.txt -o secret.maus -P`,
	RunE: runEncode,
}

var (
	encInput          string
	encOutput         string
	encPassword       string
	encPasswordStdin  bool
	encComment        string
	encCompression    string
	encHashFn         string
	encAESBits        int
	encPBKDF2Cycles   int64
	encEncryptName    bool
	encEncryptTimes   bool
	encEncryptComment bool
	encQuiet          bool
	encYes            bool
	encNoEncrypt      bool
)

func init() {
	rootCmd.AddCommand(encodeCmd)

	encodeCmd.Flags().StringVarP(&encInput, "input", "i", "", "Input file to encode")
	encodeCmd.Flags().StringVarP(&encOutput, "output", "o", "", "Output .maus file path")

	encodeCmd.Flags().StringVarP(&encPassword, "password", "p", "", "Encryption password (omit to be prompted)")
	encodeCmd.Flags().BoolVarP(&encPasswordStdin, "password-stdin", "P", false, "Read password from stdin")
	encodeCmd.Flags().BoolVar(&encNoEncrypt, "no-encrypt", false, "Write an unencrypted stream; skips the password prompt")

	encodeCmd.Flags().StringVarP(&encComment, "comment", "c", "", "Comment to store in header")
	encodeCmd.Flags().StringVar(&encCompression, "compression", "none", "Payload compression: none, deflate, or lzma")
	encodeCmd.Flags().StringVar(&encHashFn, "hash", "sha256", "Hash function: sha256, sha512, sha3-256, sha3-512, or blake2b-512")
	encodeCmd.Flags().IntVar(&encAESBits, "aes-bits", 256, "AES key size when encrypting: 128, 192, or 256")
	encodeCmd.Flags().Int64Var(&encPBKDF2Cycles, "pbkdf2-cycles", DefaultPBKDF2Cycles, "PBKDF2 iteration count")

	encodeCmd.Flags().BoolVar(&encEncryptName, "encrypt-filename", false, "Move the filename into the encrypted secondary option list")
	encodeCmd.Flags().BoolVar(&encEncryptTimes, "encrypt-times", false, "Move created/modified timestamps into the encrypted secondary option list")
	encodeCmd.Flags().BoolVar(&encEncryptComment, "encrypt-comment", false, "Move the comment into the encrypted secondary option list")

	encodeCmd.Flags().BoolVarP(&encQuiet, "quiet", "q", false, "Suppress progress output")
	encodeCmd.Flags().BoolVarP(&encYes, "yes", "y", false, "Overwrite output file without prompting")

	_ = encodeCmd.MarkFlagRequired("input")
}

func runEncode(cmd *cobra.Command, args []string) error {
	if encInput == "" {
		return fmt.Errorf("input file is required (-i)")
	}
	info, err := os.Stat(encInput)
	if err != nil {
		return fmt.Errorf("input file not found: %s", encInput)
	}
	if info.IsDir() {
		return fmt.Errorf("input must be a file, not a directory: %s", encInput)
	}

	outputFile := encOutput
	if outputFile == "" {
		outputFile = encInput + ".maus"
	}
	if err := confirmOverwrite(outputFile, encYes); err != nil {
		return err
	}

	compression, err := parseCompression(encCompression)
	if err != nil {
		return err
	}
	hashFn, err := parseHashFn(encHashFn)
	if err != nil {
		return err
	}

	cfg := streamcodec.Config{
		Version:     streamheader.CurrentVersion,
		Compression: compression,
		HashFn:      hashFn,
		Path:        encInput,
		Comment:     encComment,
	}

	if !encNoEncrypt {
		password, err := resolveEncodePassword()
		if err != nil {
			return err
		}
		aesBits, err := parseAESKeyBits(encAESBits)
		if err != nil {
			return err
		}
		cfg.Encryption = streamheader.EncryptionAES
		cfg.AESKeyBits = aesBits
		cfg.PBKDF2Cycles = encPBKDF2Cycles
		cfg.Password = []byte(password)
		cfg.EncryptedOptions = map[streamcodec.EncryptedOption]bool{
			streamcodec.EncryptFilename:     encEncryptName,
			streamcodec.EncryptCreatedTime:  encEncryptTimes,
			streamcodec.EncryptModifiedTime: encEncryptTimes,
			streamcodec.EncryptComment:      encEncryptComment,
		}
	}

	plaintext, err := os.ReadFile(encInput)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	if fi, statErr := os.Stat(encInput); statErr == nil {
		mtime := fi.ModTime()
		cfg.ModifiedTime = &mtime
	}
	now := time.Now()
	cfg.CreatedTime = &now

	reporter := NewReporter(encQuiet)
	globalReporter = reporter
	bus := progressbus.New(reporter)

	cc, err := streamcodec.NewCompressCodec(cfg, bus)
	if err != nil {
		return err
	}
	defer cc.Close()
	if _, err := cc.Write(plaintext); err != nil {
		return err
	}
	var out bytes.Buffer
	if err := cc.Finish(&out); err != nil {
		reporter.PrintError("%v", err)
		return err
	}
	if err := os.WriteFile(outputFile, out.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	reporter.Finish()
	reporter.PrintSuccess("Encoded %s -> %s", encInput, outputFile)
	return nil
}

func resolveEncodePassword() (string, error) {
	if encPasswordStdin {
		return ReadPasswordFromStdin()
	}
	if encPassword != "" {
		return encPassword, nil
	}
	return ReadPasswordInteractive(true)
}

func confirmOverwrite(path string, force bool) error {
	if force {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	fmt.Fprintf(os.Stderr, "Output file %s already exists. Overwrite? [y/N]: ", path)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	if response != "y" && response != "yes" {
		return fmt.Errorf("operation cancelled")
	}
	return nil
}
