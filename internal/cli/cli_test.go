package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mausctl/maus/internal/progressbus"
)

func TestReporterEmit(t *testing.T) {
	r := NewReporter(false)
	var buf bytes.Buffer
	old := os.Stderr
	rp, w, _ := os.Pipe()
	os.Stderr = w
	r.Emit(progressbus.Event{Kind: progressbus.EntryStart, EntryPath: "a.txt"})
	r.Finish()
	w.Close()
	os.Stderr = old
	buf.ReadFrom(rp)
	if !strings.Contains(buf.String(), "a.txt") {
		t.Errorf("expected entry path in output, got %q", buf.String())
	}
}

func TestReporterQuietSuppressesOutput(t *testing.T) {
	r := NewReporter(true)
	old := os.Stderr
	rp, w, _ := os.Pipe()
	os.Stderr = w
	r.Emit(progressbus.Event{Kind: progressbus.EntryStart, EntryPath: "a.txt"})
	r.PrintSuccess("done")
	w.Close()
	os.Stderr = old
	var buf bytes.Buffer
	buf.ReadFrom(rp)
	if buf.Len() != 0 {
		t.Errorf("quiet mode should not produce output, got: %q", buf.String())
	}
}

func TestReporterPrintErrorAlwaysOutputs(t *testing.T) {
	r := NewReporter(true)
	old := os.Stderr
	rp, w, _ := os.Pipe()
	os.Stderr = w
	r.PrintError("boom")
	w.Close()
	os.Stderr = old
	var buf bytes.Buffer
	buf.ReadFrom(rp)
	if !strings.Contains(buf.String(), "boom") {
		t.Errorf("PrintError should always output, got: %q", buf.String())
	}
}

func TestReporterCancel(t *testing.T) {
	r := NewReporter(false)
	if r.IsCancelled() {
		t.Error("should not be cancelled initially")
	}
	r.Cancel()
	if !r.IsCancelled() {
		t.Error("should be cancelled after Cancel()")
	}
}

func TestEncodeValidation(t *testing.T) {
	t.Run("missing input", func(t *testing.T) {
		encInput = ""
		err := encodeCmd.RunE(encodeCmd, nil)
		if err == nil || !strings.Contains(err.Error(), "input") {
			t.Errorf("err = %v, want mention of input", err)
		}
	})

	t.Run("nonexistent input file", func(t *testing.T) {
		encInput = "/nonexistent/file/path.txt"
		err := encodeCmd.RunE(encodeCmd, nil)
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("err = %v, want mention of not found", err)
		}
	})

	t.Run("invalid compression", func(t *testing.T) {
		tmp := filepath.Join(t.TempDir(), "test.txt")
		if err := os.WriteFile(tmp, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		encInput = tmp
		encNoEncrypt = true
		encCompression = "bogus"
		defer func() { encNoEncrypt = false; encCompression = "none" }()

		err := encodeCmd.RunE(encodeCmd, nil)
		if err == nil || !strings.Contains(err.Error(), "compression") {
			t.Errorf("err = %v, want mention of compression", err)
		}
	})

	t.Run("invalid aes-bits", func(t *testing.T) {
		tmp := filepath.Join(t.TempDir(), "test.txt")
		if err := os.WriteFile(tmp, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		encInput = tmp
		encCompression = "none"
		encPassword = "pw"
		encAESBits = 64
		defer func() { encAESBits = 256; encPassword = "" }()

		err := encodeCmd.RunE(encodeCmd, nil)
		if err == nil || !strings.Contains(err.Error(), "aes-bits") {
			t.Errorf("err = %v, want mention of aes-bits", err)
		}
	})
}

func TestDecodeValidation(t *testing.T) {
	t.Run("missing input", func(t *testing.T) {
		decInput = ""
		err := decodeCmd.RunE(decodeCmd, nil)
		if err == nil || !strings.Contains(err.Error(), "input") {
			t.Errorf("err = %v, want mention of input", err)
		}
	})

	t.Run("nonexistent input file", func(t *testing.T) {
		decInput = "/nonexistent/file.maus"
		err := decodeCmd.RunE(decodeCmd, nil)
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("err = %v, want mention of not found", err)
		}
	})

	t.Run("input is directory", func(t *testing.T) {
		decInput = t.TempDir()
		err := decodeCmd.RunE(decodeCmd, nil)
		if err == nil || !strings.Contains(err.Error(), "directory") {
			t.Errorf("err = %v, want mention of directory", err)
		}
	})
}

func TestEncodeDecodeRoundTripViaCLI(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "hello.txt")
	if err := os.WriteFile(inPath, []byte("hello, mausctl"), 0o644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "hello.maus")

	encInput = inPath
	encOutput = outPath
	encNoEncrypt = true
	encCompression = "deflate"
	encYes = true
	encQuiet = true
	defer func() {
		encInput, encOutput, encNoEncrypt, encCompression, encYes, encQuiet = "", "", false, "none", false, false
	}()

	if err := runEncode(encodeCmd, nil); err != nil {
		t.Fatalf("runEncode: %v", err)
	}

	decodedPath := filepath.Join(dir, "hello.out")
	decInput = outPath
	decOutput = decodedPath
	decYes = true
	decQuiet = true
	defer func() {
		decInput, decOutput, decYes, decQuiet = "", "", false, false
	}()

	if err := runDecode(decodeCmd, nil); err != nil {
		t.Fatalf("runDecode: %v", err)
	}

	got, err := os.ReadFile(decodedPath)
	if err != nil {
		t.Fatalf("reading decoded output: %v", err)
	}
	if string(got) != "hello, mausctl" {
		t.Errorf("decoded content = %q, want %q", got, "hello, mausctl")
	}
}

func TestPackUnpackRoundTripViaCLI(t *testing.T) {
	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.txt")
	bPath := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(aPath, []byte("A"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bPath, []byte("B"), 0o644); err != nil {
		t.Fatal(err)
	}
	archivePath := filepath.Join(dir, "bundle.mauz")

	packInputs = []string{aPath, bPath}
	packOutput = archivePath
	packNoEncrypt = true
	packYes = true
	packQuiet = true
	defer func() {
		packInputs, packOutput, packNoEncrypt, packYes, packQuiet = nil, "", false, false, false
	}()

	if err := runPack(packCmd, nil); err != nil {
		t.Fatalf("runPack: %v", err)
	}

	outDir := filepath.Join(dir, "out")
	unpackInput = archivePath
	unpackOutput = outDir
	unpackYes = true
	unpackQuiet = true
	defer func() {
		unpackInput, unpackOutput, unpackYes, unpackQuiet = "", "", false, false
	}()

	if err := runUnpack(unpackCmd, nil); err != nil {
		t.Fatalf("runUnpack: %v", err)
	}

	gotA, err := os.ReadFile(filepath.Join(outDir, filepath.FromSlash(aPath)))
	if err != nil {
		t.Fatalf("reading unpacked a.txt: %v", err)
	}
	if string(gotA) != "A" {
		t.Errorf("unpacked a.txt = %q, want A", gotA)
	}
}
