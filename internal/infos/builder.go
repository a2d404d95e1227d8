package infos

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/banshee-data/udi-dataset/internal/boxcodec"
	"github.com/banshee-data/udi-dataset/internal/fsutil"
	"github.com/banshee-data/udi-dataset/internal/labels"
	"github.com/banshee-data/udi-dataset/internal/monitoring"
)

// Capture subdirectories under the dataset root.
const (
	LidarDir = "lidar"
	LabelDir = "label"
	ImageDir = "image"
)

// FramePaths holds the three asset paths of one frame.
type FramePaths struct {
	Token    int
	Filename string
	Lidar    string
	Image    string
	Label    string
}

// PathsFor returns the asset paths for token under root.
func PathsFor(root string, token int, filename string) FramePaths {
	stem := strconv.Itoa(token)
	if filename != "" {
		stem = strings.SplitN(filename, ".", 2)[0]
	}
	return FramePaths{
		Token:    token,
		Filename: filename,
		Lidar:    filepath.Join(root, LidarDir, stem+".bin"),
		Image:    filepath.Join(root, ImageDir, stem+".jpg"),
		Label:    filepath.Join(root, LabelDir, stem+"_bin.json"),
	}
}

// Builder turns a capture directory into an InfoCollection.
type Builder struct {
	fs     fsutil.FileSystem
	parser *labels.Parser

	// Progress receives a per-frame progress bar. Nil disables it.
	Progress io.Writer

	// Version tags the produced collection. Empty means DefaultVersion.
	Version string
}

// NewBuilder creates a Builder. A nil fs uses the OS filesystem.
func NewBuilder(fs fsutil.FileSystem, parser *labels.Parser) *Builder {
	if fs == nil {
		fs = fsutil.OSFileSystem{}
	}
	if parser == nil {
		parser = labels.NewParser(fs)
	}
	return &Builder{fs: fs, parser: parser}
}

// ListFrames enumerates the lidar directory and returns the frames sorted by
// token. Label and image files are not enumerated; their absence surfaces
// when the frame is parsed.
func (b *Builder) ListFrames(root string) ([]FramePaths, error) {
	lidarDir := filepath.Join(root, LidarDir)
	names, err := b.fs.ListFiles(lidarDir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", lidarDir, err)
	}

	frames := make([]FramePaths, 0, len(names))
	seen := make(map[int]string, len(names))
	for _, name := range names {
		stem := strings.SplitN(name, ".", 2)[0]
		token, err := strconv.Atoi(stem)
		if err != nil {
			return nil, fmt.Errorf("lidar file %s: frame token %q is not an integer", name, stem)
		}
		if prev, dup := seen[token]; dup {
			return nil, fmt.Errorf("lidar files %s and %s share frame token %d", prev, name, token)
		}
		seen[token] = name
		frames = append(frames, PathsFor(root, token, name))
	}

	sort.Slice(frames, func(i, j int) bool { return frames[i].Token < frames[j].Token })
	return frames, nil
}

// BuildFrame parses one frame and converts its boxes to canonical form.
func (b *Builder) BuildFrame(p FramePaths) (*FrameInfo, error) {
	frame, err := b.parser.Parse(p.Token, p.Lidar, p.Image, p.Label)
	if err != nil {
		return nil, err
	}

	boxes := make([]boxcodec.CanonicalBox, len(frame.Boxes))
	for i, raw := range frame.Boxes {
		boxes[i] = raw.ToCanonical()
	}

	info := &FrameInfo{
		LidarPath:    p.Lidar,
		CamFrontPath: p.Image,
		Filename:     p.Filename,
		Token:        p.Token,
		GTBoxes:      boxes,
		GTNames:      frame.Names,
	}
	return info, info.Validate()
}

// Build parses every frame under root. The first failing frame aborts the
// build; no partial collection is returned.
func (b *Builder) Build(root string) (*InfoCollection, error) {
	frames, err := b.ListFrames(root)
	if err != nil {
		return nil, err
	}

	progress := b.Progress
	if progress == nil {
		progress = io.Discard
	}
	bar := progressbar.NewOptions(len(frames),
		progressbar.OptionSetDescription("building infos"),
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowCount(),
	)

	c := &InfoCollection{
		Infos:    make([]FrameInfo, 0, len(frames)),
		Metadata: Metadata{Version: b.version()},
	}
	for _, p := range frames {
		info, err := b.BuildFrame(p)
		if err != nil {
			return nil, err
		}
		c.Infos = append(c.Infos, *info)
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	monitoring.Logf("built %d frames (%d objects) from %s", len(c.Infos), c.NumObjects(), root)
	return c, nil
}

// Create builds the collection for root and persists it to outPath,
// replacing any existing file. Nothing is written if the build fails.
func (b *Builder) Create(root, outPath string) (*InfoCollection, error) {
	c, err := b.Build(root)
	if err != nil {
		return nil, err
	}
	if err := Save(b.fs, outPath, c); err != nil {
		return nil, err
	}
	monitoring.Logf("wrote %s", outPath)
	return c, nil
}

func (b *Builder) version() string {
	if b.Version == "" {
		return DefaultVersion
	}
	return b.Version
}
