package streamzip_test

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/streamzip-go/streamzip"
)

// Example streams every regular file under a directory tree into a ZIP
// archive, submitting one AddEntry call per file as the walk discovers it
// rather than building the whole file list up front.
func Example() {
	root := "."
	out, err := os.CreateTemp("", "streamzip-example-*.zip")
	if err != nil {
		log.Fatal(err)
	}
	defer os.Remove(out.Name())

	ar := streamzip.NewArchive(out, streamzip.ArchiveOptions{})

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		opts := streamzip.EntryOptionsFromFileInfo(filepath.ToSlash(rel), info)
		_, err = ar.AddEntry(context.Background(), opts, f)
		return err
	})
	if err != nil {
		log.Fatal(err)
	}

	if _, err := ar.Finalize(nil); err != nil {
		log.Fatal(err)
	}
}
