// Package archive manages the on-disk layout of a scraped bug corpus.
//
// The layout doubles as the scraper's resume checkpoint: an artifact is
// "downloaded" if and only if it exists under its canonical name, and every
// write goes through a temp file in the same directory followed by a rename,
// so a canonical name never refers to a partial write.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
)

const (
	batchPrefix   = "bugs."
	batchExt      = ".xml"
	attachmentDir = "attachments"
	attachPrefix  = "attachment."
	attachExt     = ".dat"
)

var (
	batchNameRegex  = regexp.MustCompile(`^bugs\.(\d{4,})\.xml$`)
	attachNameRegex = regexp.MustCompile(`^attachment\.(\d+)\.dat$`)
)

// ErrMalformedName is returned when a file in the archive matches a canonical
// extension but not the canonical naming pattern. This is treated as archive
// corruption rather than something to skip over, since an unreadable name may
// hide already-downloaded data.
var ErrMalformedName = errors.New("malformed archive filename")

// Batch is a handle to a committed batch file.
type Batch struct {
	Index int
	Path  string
}

type Archive struct {
	root string
}

// Open creates the archive directory structure if it does not exist yet.
func Open(root string) (*Archive, error) {
	err := os.MkdirAll(filepath.Join(root, attachmentDir), 0755)
	if err != nil {
		return nil, fmt.Errorf("create archive layout: %w", err)
	}
	return &Archive{root: root}, nil
}

func (a *Archive) Root() string {
	return a.root
}

func (a *Archive) BatchPath(index int) string {
	return filepath.Join(a.root, fmt.Sprintf("%s%04d%s", batchPrefix, index, batchExt))
}

func (a *Archive) AttachmentPath(id int) string {
	return filepath.Join(a.root, AttachmentRef(id))
}

// AttachmentRef is the canonical attachment path relative to the archive
// root. Downstream consumers (the import transformer) embed this reference.
func AttachmentRef(id int) string {
	return filepath.Join(attachmentDir, fmt.Sprintf("%s%d%s", attachPrefix, id, attachExt))
}

// Batches enumerates committed batch files sorted by index.
func (a *Archive) Batches() ([]Batch, error) {
	entries, err := os.ReadDir(a.root)
	if err != nil {
		return nil, err
	}

	var batches []Batch
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != batchExt {
			continue
		}
		groups := batchNameRegex.FindStringSubmatch(name)
		if groups == nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedName, name)
		}
		index, err := strconv.Atoi(groups[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedName, name)
		}
		batches = append(batches, Batch{
			Index: index,
			Path:  filepath.Join(a.root, name),
		})
	}

	slices.SortFunc(batches, func(x, y Batch) int {
		return x.Index - y.Index
	})
	return batches, nil
}

// NextBatchIndex returns one past the highest committed batch index, so
// indices from earlier runs are never reused.
func (a *Archive) NextBatchIndex() (int, error) {
	batches, err := a.Batches()
	if err != nil {
		return 0, err
	}
	if len(batches) == 0 {
		return 1, nil
	}
	return batches[len(batches)-1].Index + 1, nil
}

// AttachmentIDs enumerates the ids of all committed attachment files.
func (a *Archive) AttachmentIDs() (map[int]struct{}, error) {
	entries, err := os.ReadDir(filepath.Join(a.root, attachmentDir))
	if err != nil {
		return nil, err
	}

	ids := map[int]struct{}{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != attachExt {
			continue
		}
		groups := attachNameRegex.FindStringSubmatch(name)
		if groups == nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedName, name)
		}
		id, err := strconv.Atoi(groups[1])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedName, name)
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (a *Archive) HasAttachment(id int) bool {
	_, err := os.Stat(a.AttachmentPath(id))
	return err == nil
}

// CommitBatch durably publishes the contents of r under the canonical batch
// name for index. Returns a handle and the number of bytes written.
func (a *Archive) CommitBatch(index int, r io.Reader) (Batch, int64, error) {
	path := a.BatchPath(index)
	n, err := a.commit(a.root, path, r)
	if err != nil {
		return Batch{}, 0, err
	}
	return Batch{Index: index, Path: path}, n, nil
}

// RewriteBatch atomically replaces a committed batch file in place.
func (a *Archive) RewriteBatch(b Batch, contents []byte) error {
	_, err := a.commit(a.root, b.Path, bytes.NewReader(contents))
	return err
}

// CommitAttachment durably publishes the contents of r under the canonical
// attachment name for id.
func (a *Archive) CommitAttachment(id int, r io.Reader) (string, int64, error) {
	path := a.AttachmentPath(id)
	n, err := a.commit(filepath.Join(a.root, attachmentDir), path, r)
	if err != nil {
		return "", 0, err
	}
	return path, n, nil
}

// commit streams r to a temp file in dir and renames it to canonical once
// fully written. The temp file lives in the same directory as the canonical
// name so the rename stays on one filesystem.
func (a *Archive) commit(dir, canonical string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(dir, ".partial-*")
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	if err := os.Rename(tmp.Name(), canonical); err != nil {
		os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}
