package scanner

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"imagebatch/database"
	"imagebatch/imageprocessor"
	"imagebatch/types"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 0x80, A: 0xff})
		}
	}
	return img
}

func writePNG(t *testing.T, fs afero.Fs, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func noFallbackRegistry(fs afero.Fs) *imageprocessor.ImageLoaderRegistry {
	r := imageprocessor.NewImageLoaderRegistry(fs)
	r.SetFallbackLoader(nil)
	return r
}

type recorder struct {
	events []types.Event
}

func (r *recorder) emit(ev types.Event) { r.events = append(r.events, ev) }

func (r *recorder) progress() []float64 {
	var out []float64
	for _, ev := range r.events {
		if ev.Kind == types.EventProgress {
			out = append(out, ev.Fraction)
		}
	}
	return out
}

func (r *recorder) logs() []string {
	var out []string
	for _, ev := range r.events {
		if ev.Kind == types.EventLog {
			out = append(out, ev.Message)
		}
	}
	return out
}

func TestListSupportedFilesInWalkOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, p := range []string{"/src/b.png", "/src/a.JPG", "/src/notes.txt", "/src/sub/c.webp", "/src/sub/deeper/d.tiff", "/src/sub/e.tif"} {
		afero.WriteFile(fs, p, []byte("x"), 0644)
	}

	tasks, err := List(fs, "/src")
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	want := []string{"a.JPG", "b.png", filepath.Join("sub", "c.webp"), filepath.Join("sub", "deeper", "d.tiff")}
	if len(tasks) != len(want) {
		t.Fatalf("got %d tasks: %+v", len(tasks), tasks)
	}
	for i, task := range tasks {
		if task.RelPath != want[i] {
			t.Errorf("task %d rel = %s, want %s", i, task.RelPath, want[i])
		}
		if task.AbsPath != filepath.Join("/src", want[i]) {
			t.Errorf("task %d abs = %s", i, task.AbsPath)
		}
	}

	n, err := Count(fs, "/src")
	if err != nil || n != len(want) {
		t.Errorf("Count = %d, %v", n, err)
	}
}

func TestWalkVisitsDirectoriesFirst(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/src/sub/a.png", []byte("x"), 0644)
	afero.WriteFile(fs, "/src/z.png", []byte("x"), 0644)

	var order []string
	err := Walk(fs, "/src", Visitor{
		Dir:   func(rel string) error { order = append(order, "dir:"+rel); return nil },
		Image: func(task types.ImageTask) error { order = append(order, "img:"+task.RelPath); return nil },
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"dir:.", "dir:sub", "img:" + filepath.Join("sub", "a.png"), "img:z.png"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestWalkStopsOnVisitorError(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/src/a.png", []byte("x"), 0644)
	afero.WriteFile(fs, "/src/b.png", []byte("x"), 0644)

	stop := errors.New("stop")
	seen := 0
	err := Walk(fs, "/src", Visitor{Image: func(types.ImageTask) error { seen++; return stop }})
	if !errors.Is(err, stop) || seen != 1 {
		t.Errorf("err = %v, seen = %d", err, seen)
	}
}

func TestWalkMissingRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := List(fs, "/nope")

	var nf *types.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Path != "/nope" {
		t.Errorf("path = %s", nf.Path)
	}

	afero.WriteFile(fs, "/file.png", []byte("x"), 0644)
	if _, err := List(fs, "/file.png"); !errors.As(err, &nf) {
		t.Errorf("file root should be NotFoundError, got %v", err)
	}
}

func TestWalkFollowsFileSymlinks(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.png", filepath.Join("sub", "e.png")} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	links := map[string]string{
		"b.png": filepath.Join(root, "a.png"),
		"c.png": filepath.Join(root, "missing.png"),
		"d":     filepath.Join(root, "sub"),
	}
	for name, target := range links {
		if err := os.Symlink(target, filepath.Join(root, name)); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}
	}

	tasks, err := List(afero.NewOsFs(), root)
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, task := range tasks {
		got = append(got, task.RelPath)
	}
	want := []string{"a.png", "b.png", filepath.Join("sub", "e.png")}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("rel paths = %v, want %v", got, want)
	}
}

func TestWalkEmptyRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/empty", 0755)

	tasks, err := List(fs, "/empty")
	if err != nil || len(tasks) != 0 {
		t.Errorf("List = %v, %v", tasks, err)
	}
}

func buildTree(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	writePNG(t, fs, "/photos/a.png", gradient(32, 32))
	writePNG(t, fs, "/photos/b.png", gradient(32, 32))
	afero.WriteFile(fs, "/photos/broken.png", []byte("definitely not a png"), 0644)
	writePNG(t, fs, "/photos/sub/c.png", gradient(16, 48))
	return fs
}

func TestBuildIndex(t *testing.T) {
	for _, workers := range []int{1, 4} {
		fs := buildTree(t)
		rec := &recorder{}

		idx, err := BuildIndex(context.Background(), "/photos", IndexOptions{
			Fs:       fs,
			Workers:  workers,
			Registry: noFallbackRegistry(fs),
		}, rec.emit)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}

		wantPaths := []string{"/photos/a.png", "/photos/b.png", "/photos/sub/c.png"}
		if strings.Join(idx.Paths, ",") != strings.Join(wantPaths, ",") {
			t.Errorf("workers=%d: paths = %v", workers, idx.Paths)
		}
		if idx.Total != 4 || idx.Failed() != 1 {
			t.Errorf("workers=%d: total = %d failed = %d", workers, idx.Total, idx.Failed())
		}
		if d := idx.Hashes["/photos/a.png"].Distance(idx.Hashes["/photos/b.png"]); d != 0 {
			t.Errorf("workers=%d: identical images at distance %d", workers, d)
		}

		logs := rec.logs()
		if len(logs) != 1 || !strings.HasPrefix(logs[0], "Error hashing broken.png: ") {
			t.Errorf("workers=%d: logs = %q", workers, logs)
		}

		progress := rec.progress()
		if len(progress) != 4 {
			t.Fatalf("workers=%d: %d progress events", workers, len(progress))
		}
		for i := 1; i < len(progress); i++ {
			if progress[i] < progress[i-1] {
				t.Errorf("workers=%d: progress went backwards: %v", workers, progress)
			}
		}
		if progress[len(progress)-1] != HashPhaseEnd {
			t.Errorf("workers=%d: final progress %v", workers, progress[len(progress)-1])
		}
	}
}

func TestBuildIndexEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/photos", 0755)
	rec := &recorder{}

	idx, err := BuildIndex(context.Background(), "/photos", IndexOptions{Fs: fs}, rec.emit)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 0 || len(rec.events) != 0 {
		t.Errorf("len = %d, events = %v", idx.Len(), rec.events)
	}
}

func TestBuildIndexCancelled(t *testing.T) {
	fs := buildTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := &recorder{}

	idx, err := BuildIndex(ctx, "/photos", IndexOptions{Fs: fs, Registry: noFallbackRegistry(fs)}, rec.emit)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if idx.Len() != 0 || len(rec.progress()) != 0 {
		t.Errorf("cancelled build hashed %d files, %d progress events", idx.Len(), len(rec.progress()))
	}
}

func TestBuildIndexMissingRoot(t *testing.T) {
	var nf *types.NotFoundError
	_, err := BuildIndex(context.Background(), "/nope", IndexOptions{Fs: afero.NewMemMapFs()}, nil)
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

// heldFs delays opening hold until after has been read and closed, so the
// later file finishes first
type heldFs struct {
	afero.Fs
	hold, after string
	read        chan struct{}
	once        *sync.Once
}

type closeHookFile struct {
	afero.File
	onClose func()
}

func (f closeHookFile) Close() error {
	err := f.File.Close()
	f.onClose()
	return err
}

func (h heldFs) Open(name string) (afero.File, error) {
	if name == h.hold {
		<-h.read
	}
	f, err := h.Fs.Open(name)
	if err != nil || name != h.after {
		return f, err
	}
	return closeHookFile{File: f, onClose: func() { h.once.Do(func() { close(h.read) }) }}, nil
}

func TestBuildIndexReportsInEnumerationOrder(t *testing.T) {
	mem := afero.NewMemMapFs()
	afero.WriteFile(mem, "/photos/a.png", []byte("not a png at all"), 0644)
	afero.WriteFile(mem, "/photos/b.png", []byte("nope"), 0644)
	writePNG(t, mem, "/photos/c.png", gradient(16, 16))
	afero.WriteFile(mem, "/photos/d.png", []byte("still not a png"), 0644)

	fs := heldFs{Fs: mem, hold: "/photos/a.png", after: "/photos/b.png", read: make(chan struct{}), once: &sync.Once{}}
	rec := &recorder{}

	idx, err := BuildIndex(context.Background(), "/photos", IndexOptions{
		Fs:       fs,
		Workers:  4,
		Registry: noFallbackRegistry(fs),
	}, rec.emit)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 1 || idx.Failed() != 3 {
		t.Errorf("len = %d, failed = %d", idx.Len(), idx.Failed())
	}

	logs := rec.logs()
	want := []string{"a.png", "b.png", "d.png"}
	if len(logs) != len(want) {
		t.Fatalf("logs = %q", logs)
	}
	for i, name := range want {
		if !strings.HasPrefix(logs[i], "Error hashing "+name+": ") {
			t.Errorf("log %d = %q, want %s", i, logs[i], name)
		}
	}

	progress := rec.progress()
	wantProgress := []float64{0.125, 0.25, 0.375, 0.5}
	if len(progress) != len(wantProgress) {
		t.Fatalf("progress = %v", progress)
	}
	for i := range wantProgress {
		if progress[i] != wantProgress[i] {
			t.Errorf("progress = %v, want %v", progress, wantProgress)
			break
		}
	}
}

func TestBuildIndexReusesCache(t *testing.T) {
	fs := buildTree(t)
	cache, err := database.InitDatabase(filepath.Join(t.TempDir(), "fingerprints.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	opts := IndexOptions{Fs: fs, Cache: cache, Algorithm: types.HashDifference, Registry: noFallbackRegistry(fs)}

	first, err := BuildIndex(context.Background(), "/photos", opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached != 0 {
		t.Errorf("first run cached = %d", first.Cached)
	}

	second, err := BuildIndex(context.Background(), "/photos", opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	if second.Cached != 3 {
		t.Errorf("second run cached = %d, want 3", second.Cached)
	}
	for _, p := range first.Paths {
		if first.Hashes[p] != second.Hashes[p] {
			t.Errorf("%s: cached fingerprint differs", p)
		}
	}

	writePNG(t, fs, "/photos/a.png", gradient(40, 20))
	third, _ := BuildIndex(context.Background(), "/photos", opts, nil)
	if third.Cached != 2 {
		t.Errorf("after rewrite cached = %d, want 2", third.Cached)
	}
}

func TestProgressTracker(t *testing.T) {
	events := make(chan types.Event, 8)
	tracker := NewProgressTracker("Testing", events)

	events <- types.ProgressEvent(0.25)
	events <- types.SkipEvent("/a.png", types.SkipReasonVertical)
	events <- types.LogEvent("Processed: b.png")
	events <- types.ProgressEvent(1)
	close(events)

	tracker.Wait()

	if tracker.Fraction() != 1 {
		t.Errorf("fraction = %v", tracker.Fraction())
	}
	if tracker.Skipped() != 1 {
		t.Errorf("skipped = %d", tracker.Skipped())
	}
	if skips := tracker.Skips(); len(skips) != 1 || skips[0] != "/a.png: vertical" {
		t.Errorf("skips = %q", skips)
	}
	if msgs := tracker.Messages(); len(msgs) != 1 || msgs[0] != "Processed: b.png" {
		t.Errorf("messages = %q", msgs)
	}
}
