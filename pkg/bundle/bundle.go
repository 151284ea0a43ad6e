// Package bundle writes an export payload to disk.
//
// A bundle has a fixed layout:
//
//	<slug>.html
//	images/<asset>.png
//	previews/<preview>.png
//	manifest.json
//
// [WriteDir] lays it out in a directory and [WriteArchive] streams the same
// files into a .tar.xz archive. Asset names come from the payload and are
// validated as plain basenames before anything touches the filesystem.
package bundle

import (
	"archive/tar"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/matzehuels/mailframe/pkg/errors"
	"github.com/matzehuels/mailframe/pkg/export"
)

const (
	ImageDir    = "images"
	PreviewDir  = "previews"
	Manifest    = "manifest.json"
	ArchiveExt  = ".tar.xz"
	defaultName = "export"
)

// ManifestData describes the bundle contents for downstream link and GIF
// reconstruction.
type ManifestData struct {
	HTML             string                   `json:"html"`
	Width            int                      `json:"width"`
	Height           int                      `json:"height"`
	TableLayout      bool                     `json:"tableLayout"`
	Images           []string                 `json:"images"`
	Previews         []string                 `json:"previews"`
	LinkPlaceholders []export.LinkPlaceholder `json:"linkPlaceholders"`
	GIFPlaceholders  []export.GIFPlaceholder  `json:"gifPlaceholders"`
	CreatedAt        time.Time                `json:"createdAt"`
}

// File is one bundle entry with a slash-separated relative path.
type File struct {
	Path string
	Data []byte
}

// Files returns the bundle as relative paths and contents, manifest last.
func Files(p *export.Payload) ([]File, error) {
	if p == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "payload is required")
	}
	name := p.Filename
	if name == "" {
		name = defaultName
	}
	htmlName := name + ".html"
	if err := errors.ValidateAssetName(htmlName); err != nil {
		return nil, err
	}

	m := ManifestData{
		HTML:             htmlName,
		Width:            p.Width,
		Height:           p.Height,
		TableLayout:      p.TableMode,
		LinkPlaceholders: p.LinkPlaceholders,
		GIFPlaceholders:  p.GIFPlaceholders,
		CreatedAt:        time.Now().UTC(),
	}
	files := []File{{Path: htmlName, Data: []byte(p.HTML)}}

	add := func(dir string, assets []export.Asset, names *[]string) error {
		for _, a := range assets {
			if err := errors.ValidateAssetName(a.Name); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "asset %q", a.Name)
			}
			files = append(files, File{Path: dir + "/" + a.Name, Data: a.Data})
			*names = append(*names, a.Name)
		}
		return nil
	}
	if err := add(ImageDir, p.Assets, &m.Images); err != nil {
		return nil, err
	}
	if err := add(PreviewDir, p.PreviewAssets, &m.Previews); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return append(files, File{Path: Manifest, Data: data}), nil
}

// WriteDir writes the bundle into dir, creating it as needed, and returns
// the path of the HTML file.
func WriteDir(dir string, p *export.Payload) (string, error) {
	files, err := Files(p)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", errors.Wrap(errors.ErrCodeInternal, err, "create %s", filepath.Dir(path))
		}
		if err := os.WriteFile(path, f.Data, 0o644); err != nil {
			return "", errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
		}
	}
	return filepath.Join(dir, files[0].Path), nil
}

// WriteArchive streams the bundle into w as tar compressed with xz.
func WriteArchive(w io.Writer, p *export.Payload) error {
	files, err := Files(p)
	if err != nil {
		return err
	}

	xw, err := xz.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create xz writer: %w", err)
	}
	tw := tar.NewWriter(xw)

	now := time.Now()
	for _, f := range files {
		hdr := &tar.Header{
			Name:    f.Path,
			Mode:    0o644,
			Size:    int64(len(f.Data)),
			ModTime: now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write header %s: %w", f.Path, err)
		}
		if _, err := tw.Write(f.Data); err != nil {
			return fmt.Errorf("write %s: %w", f.Path, err)
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("close tar: %w", err)
	}
	return xw.Close()
}

// CreateArchive writes the archive to path.
func CreateArchive(path string, p *export.Payload) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteArchive(f, p)
}

// ReadArchive lists the files of an archive written by WriteArchive.
func ReadArchive(r io.Reader) (map[string][]byte, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xz: %w", err)
	}
	tr := tar.NewReader(xr)
	out := make(map[string][]byte)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", hdr.Name, err)
		}
		out[hdr.Name] = data
	}
}
