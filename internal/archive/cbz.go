package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CreateCBZ packs files into a comic book archive at output. Entries keep
// the order of files, which readers use as page order. The archive is
// written to a temp file in the same directory and renamed into place, so a
// failed run never leaves a truncated .cbz behind.
func CreateCBZ(files []string, output string) (err error) {
	if len(files) == 0 {
		return errors.New("cbz: no files")
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return fmt.Errorf("cbz: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(output), ".chaptrix-*.cbz")
	if err != nil {
		return fmt.Errorf("cbz: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	z := zip.NewWriter(tmp)
	seen := make(map[string]int, len(files))
	for _, file := range files {
		if err = addFile(z, file, entryName(file, seen)); err != nil {
			return fmt.Errorf("cbz %s: %w", file, err)
		}
	}

	if err = z.Close(); err != nil {
		return fmt.Errorf("cbz: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("cbz: %w", err)
	}

	if err = os.Rename(tmp.Name(), output); err != nil {
		return fmt.Errorf("cbz: %w", err)
	}
	return nil
}

// entryName flattens to the base name; duplicate bases get a numeric prefix.
func entryName(file string, seen map[string]int) string {
	base := filepath.Base(file)
	n := seen[base]
	seen[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%d_%s", n, base)
}

func addFile(z *zip.Writer, file, name string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = name
	header.Method = zip.Deflate

	w, err := z.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(w, f)
	return err
}
