package blob

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// PushRun uploads every file under <outDir>/<runName> to the store, keyed
// <runName>/<relative path>. Returns the number of files uploaded.
func PushRun(ctx context.Context, st Store, outDir, runName string) (int, error) {
	src := filepath.Join(outDir, runName)
	count := 0
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		key := path.Join(runName, filepath.ToSlash(rel))
		_, perr := st.Put(ctx, key, f)
		_ = f.Close()
		if perr != nil {
			return fmt.Errorf("put %s: %w", key, perr)
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("push run %s: %w", runName, err)
	}
	return count, nil
}

// PullRun downloads every object under <runName>/ into <outDir>/<runName>,
// overwriting same-named local files. Returns the number of files written.
func PullRun(ctx context.Context, st Store, outDir, runName string) (int, error) {
	prefix := runName + "/"
	infos, err := st.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("pull run %s: %w", runName, err)
	}
	count := 0
	for _, info := range infos {
		rel := strings.TrimPrefix(info.Key, prefix)
		dst := filepath.Join(outDir, runName, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return count, err
		}
		rc, err := st.Get(ctx, info.Key)
		if err != nil {
			return count, fmt.Errorf("get %s: %w", info.Key, err)
		}
		if err := writeFile(dst, rc); err != nil {
			return count, fmt.Errorf("write %s: %w", dst, err)
		}
		count++
	}
	return count, nil
}

// DeleteRun removes every object under <runName>/ from the store; combined
// with PushRun it implements move semantics.
func DeleteRun(ctx context.Context, st Store, runName string) error {
	infos, err := st.List(ctx, runName+"/")
	if err != nil {
		return err
	}
	for _, info := range infos {
		if err := st.Delete(ctx, info.Key); err != nil {
			return fmt.Errorf("delete %s: %w", info.Key, err)
		}
	}
	return nil
}
