package blob

import (
	"context"
	"fmt"
	"io"
	"os"
)

// writeFile streams r to path and closes r.
func writeFile(path string, r io.ReadCloser) error {
	defer func() { _ = r.Close() }()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Open constructs a Store for the given driver. An empty driver falls back to
// CDRFLUX_BLOB_DRIVER, then to the filesystem backend rooted at root.
func Open(ctx context.Context, driver Driver, root string) (Store, error) {
	if driver == "" {
		driver = Driver(os.Getenv("CDRFLUX_BLOB_DRIVER"))
	}
	switch driver {
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	case DriverFilesystem, "":
		return NewFilesystem(root)
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}
