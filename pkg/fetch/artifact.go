package fetch

import (
	"archive/tar"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/l3aro/pyresolve/internal/log"
)

// ErrUnrecognizedArtifact is returned for downloads of an unknown kind.
var ErrUnrecognizedArtifact = errors.New("unrecognized artifact")

// ArtifactKind is the closed set of download shapes the unpacker handles.
type ArtifactKind int

const (
	ArtifactUnrecognized ArtifactKind = iota
	ArtifactDirectory
	ArtifactZipLike
	ArtifactTarGz
	ArtifactTarBz2
)

func (k ArtifactKind) String() string {
	switch k {
	case ArtifactDirectory:
		return "directory"
	case ArtifactZipLike:
		return "zip"
	case ArtifactTarGz:
		return "tar.gz"
	case ArtifactTarBz2:
		return "tar.bz2"
	default:
		return "unrecognized"
	}
}

// Artifact is one entry of a download directory.
type Artifact struct {
	Path string
	Kind ArtifactKind
}

// Classify determines the kind of a downloaded entry from its name.
func Classify(name string, isDir bool) ArtifactKind {
	if isDir {
		return ArtifactDirectory
	}
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".whl"), strings.HasSuffix(lower, ".zip"):
		return ArtifactZipLike
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return ArtifactTarGz
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return ArtifactTarBz2
	default:
		return ArtifactUnrecognized
	}
}

// Unpack places a single artifact into dest.
func Unpack(a Artifact, dest string) error {
	switch a.Kind {
	case ArtifactDirectory:
		return moveDir(a.Path, dest)
	case ArtifactZipLike:
		return extractZip(a.Path, dest)
	case ArtifactTarGz:
		return extractTarGz(a.Path, dest)
	case ArtifactTarBz2:
		return extractTarBz2(a.Path, dest)
	default:
		return fmt.Errorf("%w: %s", ErrUnrecognizedArtifact, filepath.Base(a.Path))
	}
}

// UnpackAll unpacks every artifact found in downloadDir into dest. Entries
// that fail are logged and skipped; their errors are joined in the result.
func UnpackAll(downloadDir, dest string, logger log.Logger) error {
	entries, err := os.ReadDir(downloadDir)
	if err != nil {
		return fmt.Errorf("reading download directory: %w", err)
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	var errs []error
	for _, e := range entries {
		a := Artifact{
			Path: filepath.Join(downloadDir, e.Name()),
			Kind: Classify(e.Name(), e.IsDir()),
		}
		if err := Unpack(a, dest); err != nil {
			logger.Warn("skipping artifact", "artifact", e.Name(), "kind", a.Kind.String(), "error", err)
			errs = append(errs, err)
			continue
		}
		logger.Debug("unpacked artifact", "artifact", e.Name(), "kind", a.Kind.String())
	}
	return errors.Join(errs...)
}

func moveDir(src, dest string) error {
	target := filepath.Join(dest, filepath.Base(src))
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("replacing %s: %w", target, err)
	}
	if err := os.Rename(src, target); err != nil {
		return fmt.Errorf("moving %s: %w", src, err)
	}
	return nil
}

func extractZip(archive, dest string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Base(archive), err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("reading %s: %w", f.Name, err)
		}
		err = writeFile(target, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func extractTarGz(archive, dest string) error {
	file, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Base(archive), err)
	}
	defer gz.Close()
	return extractTar(tar.NewReader(gz), dest)
}

func extractTarBz2(archive, dest string) error {
	file, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer file.Close()
	return extractTar(tar.NewReader(bzip2.NewReader(file)), dest)
}

func extractTar(tr *tar.Reader, dest string) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar: %w", err)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr); err != nil {
				return err
			}
		}
	}
}

func writeFile(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return out.Close()
}

// safeJoin rejects archive members that would land outside dest.
func safeJoin(dest, name string) (string, error) {
	dest = filepath.Clean(dest)
	target := filepath.Join(dest, filepath.FromSlash(name))
	if target != dest && !strings.HasPrefix(target, dest+string(filepath.Separator)) {
		return "", fmt.Errorf("archive member %q escapes destination", name)
	}
	return target, nil
}
