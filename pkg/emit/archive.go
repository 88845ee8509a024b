package emit

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sceylan/pyfinder-go/pkg/perrors"
)

// ArchiveProducts zips every file in dir matching a .json or .jpg
// extension into <tempDataDir>/shakemap_products/shakemap_output_<ts>.zip
// and returns the archive path.
func ArchiveProducts(tempDataDir, dir string, now time.Time) (string, error) {
	productsDir := filepath.Join(tempDataDir, "shakemap_products")
	if err := os.MkdirAll(productsDir, 0o755); err != nil {
		return "", &perrors.ConfigError{Op: "create shakemap_products dir", Err: err}
	}

	archivePath := filepath.Join(productsDir, "shakemap_output_"+now.UTC().Format("20060102_150405")+".zip")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", &perrors.ConfigError{Op: "list export directory", Err: err}
	}

	archive, err := os.Create(archivePath)
	if err != nil {
		return "", &perrors.ConfigError{Op: "create archive", Err: err}
	}
	defer archive.Close()

	zw := zip.NewWriter(archive)
	defer zw.Close()

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".json" && ext != ".jpg" {
			continue
		}
		if err := addFileToZip(zw, filepath.Join(dir, entry.Name()), entry.Name()); err != nil {
			return "", err
		}
	}

	return archivePath, nil
}

func addFileToZip(zw *zip.Writer, path, name string) error {
	src, err := os.Open(path)
	if err != nil {
		return &perrors.ConfigError{Op: "open " + name + " for archiving", Err: err}
	}
	defer src.Close()

	dst, err := zw.Create(name)
	if err != nil {
		return &perrors.ConfigError{Op: "add " + name + " to archive", Err: err}
	}

	if _, err := io.Copy(dst, src); err != nil {
		return &perrors.ConfigError{Op: "write " + name + " into archive", Err: err}
	}
	return nil
}
