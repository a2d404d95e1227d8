package infos

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/banshee-data/udi-dataset/internal/boxcodec"
	"github.com/banshee-data/udi-dataset/internal/fsutil"
)

// Save encodes c as CBOR and writes it atomically to path, replacing any
// existing collection.
func Save(fs fsutil.FileSystem, path string, c *InfoCollection) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid collection: %w", err)
	}
	data, err := cbor.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode info collection: %w", err)
	}
	if err := fs.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("write info collection %s: %w", path, err)
	}
	return nil
}

// Load reads a collection written by Save.
func Load(fs fsutil.FileSystem, path string) (*InfoCollection, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read info collection %s: %w", path, err)
	}
	var c InfoCollection
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode info collection %s: %w", path, err)
	}
	for i := range c.Infos {
		if c.Infos[i].GTBoxes == nil {
			c.Infos[i].GTBoxes = []boxcodec.CanonicalBox{}
		}
		if c.Infos[i].GTNames == nil {
			c.Infos[i].GTNames = []string{}
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("info collection %s: %w", path, err)
	}
	return &c, nil
}
