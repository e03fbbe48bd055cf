package images

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	_ "golang.org/x/image/webp"
)

// Variant is one generated rendition of an image at a specific pixel width.
type Variant struct {
	Width int
	Path  string
}

// OutputFormat selects between keeping each source image's own encoding
// and re-encoding every variant into one target format.
type OutputFormat struct {
	keep bool
	ext  string
}

// KeepOriginal keeps the source encoding.
func KeepOriginal() OutputFormat { return OutputFormat{keep: true} }

// ReEncode converts every variant to the given extension.
func ReEncode(ext string) OutputFormat { return OutputFormat{ext: strings.ToLower(ext)} }

// ParseFormat maps an image_format config value to an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(s) {
	case "keep":
		return KeepOriginal(), nil
	case "webp", "jpg", "jpeg", "png", "gif":
		return ReEncode(s), nil
	}
	return OutputFormat{}, fmt.Errorf("unsupported image format %q", s)
}

// Keep reports whether the source encoding is retained.
func (f OutputFormat) Keep() bool { return f.keep }

// ExtFor returns the output extension used for a given source file.
func (f OutputFormat) ExtFor(srcPath string) string {
	if f.keep {
		return strings.TrimPrefix(strings.ToLower(filepath.Ext(srcPath)), ".")
	}
	return f.ext
}

// Generate produces the responsive ladder for one original image: a resized
// re-encoded copy for every requested width below the natural width, plus
// one entry at the natural width (a byte-for-byte copy when the format is
// kept). The result is ordered ascending by width and is never empty on
// success. On any failure every file written for this ladder is removed.
func Generate(origPath, outDir string, widths []int, format OutputFormat, quality int) ([]Variant, error) {
	data, err := os.ReadFile(origPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, origPath)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, origPath, err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create variant directory: %w", err)
	}

	bounds := src.Bounds()
	natW, natH := bounds.Dx(), bounds.Dy()
	base := filepath.Base(origPath)
	stem := SlugifyName(strings.TrimSuffix(base, filepath.Ext(base)))
	ext := format.ExtFor(origPath)

	var variants []Variant
	fail := func(err error) ([]Variant, error) {
		for _, v := range variants {
			os.Remove(v.Path)
		}
		return nil, err
	}

	for _, target := range widths {
		if target >= natW {
			continue
		}
		height := int(math.Round(float64(natH) * float64(target) / float64(natW)))
		if height < 1 {
			height = 1
		}
		resized := imaging.Resize(src, target, height, imaging.Lanczos)
		out := filepath.Join(outDir, fmt.Sprintf("%s-%dw.%s", stem, target, ext))
		if err := encodeTo(out, resized, ext, quality); err != nil {
			return fail(err)
		}
		variants = append(variants, Variant{Width: target, Path: out})
	}

	full := filepath.Join(outDir, fmt.Sprintf("%s-%dw.%s", stem, natW, ext))
	if format.Keep() {
		if err := writeFileAtomic(full, data); err != nil {
			return fail(fmt.Errorf("%w: %s: %v", ErrEncode, full, err))
		}
	} else {
		if err := encodeTo(full, src, ext, quality); err != nil {
			return fail(err)
		}
	}
	variants = append(variants, Variant{Width: natW, Path: full})

	sort.Slice(variants, func(i, j int) bool { return variants[i].Width < variants[j].Width })
	return variants, nil
}

// encodeTo encodes img into ext at the given quality and writes the result
// atomically. Quality only affects formats that support it.
func encodeTo(dest string, img image.Image, ext string, quality int) error {
	var buf bytes.Buffer
	switch strings.ToLower(ext) {
	case "webp":
		opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrEncode, dest, err)
		}
		if err := webp.Encode(&buf, img, opts); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrEncode, dest, err)
		}
	default:
		f, err := imaging.FormatFromExtension(ext)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrEncode, dest, err)
		}
		if err := imaging.Encode(&buf, img, f, imaging.JPEGQuality(quality)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrEncode, dest, err)
		}
	}
	if err := writeFileAtomic(dest, buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncode, dest, err)
	}
	return nil
}
