// Package corpus loads the game script corpus from a scripts.zip archive or an unpacked
// scripts directory into an immutable in-memory view.
package corpus

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gobwas/glob"

	"scriptdex/internal/application/common/slogger"
	"scriptdex/internal/domain/errors/domain"
)

// Path namespaces inside a view.
const (
	ScriptsPrefix = "scripts/"
	ImagesPrefix  = "images/"
)

// Options selects where the corpus is read from. Empty fields are skipped.
type Options struct {
	ScriptsZip  string
	ScriptsDir  string
	DstRoot     string
	ProjectRoot string
}

// View is an immutable snapshot of the corpus. All methods are safe for concurrent use.
type View struct {
	files   map[string][]byte
	paths   []string
	sha12   string
	sources map[string]string
}

type candidate struct {
	kind string // zip or dir
	path string
}

// candidates lists the places a corpus may live, archives first.
func candidates(opts Options) []candidate {
	var out []candidate
	if opts.ScriptsZip != "" {
		out = append(out, candidate{kind: "zip", path: opts.ScriptsZip})
	}
	if opts.ScriptsDir != "" {
		out = append(out, candidate{kind: "dir", path: opts.ScriptsDir})
	}
	if opts.ProjectRoot != "" {
		out = append(out, candidate{kind: "zip", path: filepath.Join(opts.ProjectRoot, "data", "scripts.zip")})
	}
	if opts.DstRoot != "" {
		out = append(out, candidate{kind: "zip", path: filepath.Join(opts.DstRoot, "data", "databundles", "scripts.zip")})
	}
	if opts.ProjectRoot != "" {
		out = append(out, candidate{kind: "dir", path: filepath.Join(opts.ProjectRoot, "scripts")})
	}
	if opts.DstRoot != "" {
		out = append(out, candidate{kind: "dir", path: filepath.Join(opts.DstRoot, "data", "scripts")})
	}
	return out
}

// Open loads the first usable candidate. It returns domain.ErrNoSourceCorpus when none
// exists.
func Open(ctx context.Context, opts Options) (*View, error) {
	for _, c := range candidates(opts) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Stat(c.path)
		if err != nil {
			continue
		}

		var files map[string][]byte
		switch c.kind {
		case "zip":
			if info.IsDir() {
				continue
			}
			files, err = loadZip(ctx, c.path)
		default:
			if !info.IsDir() {
				continue
			}
			files, err = loadDir(ctx, c.path)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slogger.Warn(ctx, "Skipping unreadable corpus candidate", slogger.Fields3(
				"kind", c.kind,
				"path", c.path,
				"error", err.Error(),
			))
			continue
		}

		sources := map[string]string{"scripts_" + c.kind: c.path}
		if opts.DstRoot != "" {
			sources["dst_root"] = opts.DstRoot
			imagesDir := filepath.Join(opts.DstRoot, "data", "images")
			if n := mountImages(imagesDir, files); n > 0 {
				sources["images_dir"] = imagesDir
			}
		}

		view := newView(files, sources)
		slogger.Info(ctx, "Loaded source corpus", slogger.Fields{
			"kind":   c.kind,
			"path":   c.path,
			"files":  len(view.paths),
			"sha256": view.sha12,
		})
		return view, nil
	}

	return nil, fmt.Errorf("%w: tried %d candidates", domain.ErrNoSourceCorpus, len(candidates(opts)))
}

// NewMemory builds a view from in-memory contents. Keys are normalized like archive
// entries.
func NewMemory(contents map[string]string, sources map[string]string) *View {
	files := make(map[string][]byte, len(contents))
	for p, body := range contents {
		files[normalizeEntry(p)] = []byte(body)
	}
	if sources == nil {
		sources = map[string]string{}
	}
	return newView(files, sources)
}

func newView(files map[string][]byte, sources map[string]string) *View {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return &View{
		files:   files,
		paths:   paths,
		sha12:   contentHash(paths, files),
		sources: sources,
	}
}

// contentHash hashes path\0len\0bytes records of the scripts namespace in path order.
func contentHash(paths []string, files map[string][]byte) string {
	h := sha256.New()
	for _, p := range paths {
		if !strings.HasPrefix(p, ScriptsPrefix) {
			continue
		}
		data := files[p]
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write([]byte(strconv.Itoa(len(data))))
		h.Write([]byte{0})
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

func loadZip(ctx context.Context, zipPath string) (map[string][]byte, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, errors.Join(domain.ErrCorpusUnreadable, err)
	}
	defer r.Close()

	files := make(map[string][]byte, len(r.File))
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readZipEntry(f)
		if err != nil {
			return nil, errors.Join(domain.ErrCorpusUnreadable, fmt.Errorf("%s: %w", f.Name, err))
		}
		files[normalizeEntry(f.Name)] = data
	}
	return files, nil
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func loadDir(ctx context.Context, root string) (map[string][]byte, error) {
	files := make(map[string][]byte)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		files[ScriptsPrefix+filepath.ToSlash(rel)] = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// mountImages adds the atlas xml files of dir under images/.
func mountImages(dir string, files map[string][]byte) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		files[ImagesPrefix+e.Name()] = data
		n++
	}
	return n
}

// normalizeEntry maps an archive entry name into the view namespace.
func normalizeEntry(name string) string {
	p := strings.TrimLeft(path.Clean(strings.ReplaceAll(name, "\\", "/")), "/")
	p = strings.TrimPrefix(p, "./")
	if strings.HasPrefix(p, ScriptsPrefix) || strings.HasPrefix(p, ImagesPrefix) {
		return p
	}
	return ScriptsPrefix + p
}

func (v *View) lookupKey(p string) string {
	p = strings.TrimLeft(strings.ReplaceAll(p, "\\", "/"), "/")
	if _, ok := v.files[p]; ok {
		return p
	}
	return ScriptsPrefix + p
}

// Files returns every path in sorted order.
func (v *View) Files() []string {
	out := make([]string, len(v.paths))
	copy(out, v.paths)
	return out
}

// Read returns the bytes of p, accepting paths with or without the scripts/ prefix.
func (v *View) Read(p string) ([]byte, bool) {
	data, ok := v.files[v.lookupKey(p)]
	return data, ok
}

// ReadString returns the contents of p as a string.
func (v *View) ReadString(p string) (string, bool) {
	data, ok := v.Read(p)
	if !ok {
		return "", false
	}
	return string(data), true
}

// Glob returns the sorted paths matching pattern.
func (v *View) Glob(pattern string) ([]string, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("invalid corpus pattern %q: %w", pattern, err)
	}
	var out []string
	for _, p := range v.paths {
		if g.Match(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// SHA256_12 returns the truncated content hash of the scripts namespace.
func (v *View) SHA256_12() string {
	return v.sha12
}

// Sources returns a copy of the load provenance.
func (v *View) Sources() map[string]string {
	out := make(map[string]string, len(v.sources))
	for k, val := range v.sources {
		out[k] = val
	}
	return out
}

// Len returns the number of files in the view.
func (v *View) Len() int {
	return len(v.paths)
}
