package guest

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/src-d/go-billy.v4/memfs"
	"gopkg.in/src-d/go-billy.v4/osfs"
	"gopkg.in/src-d/go-billy.v4/util"

	werrors "github.com/wippyai/hello-element/errors"
)

func TestReadFile(t *testing.T) {
	data := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	mem := memfs.New()
	if err := util.WriteFile(mem, "hello.wasm", data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ReadFile(mem, "./hello.wasm")
	if err != nil {
		t.Fatalf("memfs: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("memfs: got %x, want %x", got, data)
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.wasm"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = ReadFile(osfs.New(dir), "./hello.wasm")
	if err != nil {
		t.Fatalf("osfs: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("osfs: got %x, want %x", got, data)
	}
}

func TestReadFile_Errors(t *testing.T) {
	tests := []struct {
		name string
		dir  func(t *testing.T) string
	}{
		{"memfs", nil},
		{"osfs", func(t *testing.T) string { return t.TempDir() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := memfs.New()
			if tt.dir != nil {
				fs = osfs.New(tt.dir(t))
			}
			_, err := ReadFile(fs, "missing.wasm")
			if !errors.Is(err, os.ErrNotExist) {
				t.Errorf("err = %v, want os.ErrNotExist in chain", err)
			}
			if !errors.Is(err, &werrors.Error{Phase: werrors.PhaseLoad, Kind: werrors.KindInvalidData}) {
				t.Errorf("err = %v, want load/invalid_data", err)
			}
		})
	}

	_, err := ReadFile(nil, "hello.wasm")
	if !errors.Is(err, &werrors.Error{Phase: werrors.PhaseLoad, Kind: werrors.KindInvalidInput}) {
		t.Errorf("nil fs: err = %v, want load/invalid_input", err)
	}
}
