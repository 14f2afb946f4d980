package document

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
)

var ErrUnsupportedImage = errors.New("unsupported image")

// LoadedImage is a decoded image ready to be placed. Format is "jpeg" or
// "png".
type LoadedImage struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

type ImageLoader interface {
	LoadImage(ctx context.Context, url string) (LoadedImage, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetchImageLoader downloads and decodes images. PNG and GIF sources are
// re-encoded as plain PNG so the PDF backend never sees interlaced or
// animated data.
type FetchImageLoader struct {
	fetcher Fetcher
}

func NewFetchImageLoader(f Fetcher) *FetchImageLoader {
	return &FetchImageLoader{fetcher: f}
}

func (l *FetchImageLoader) LoadImage(ctx context.Context, url string) (LoadedImage, error) {
	data, err := l.fetcher.Fetch(ctx, url)
	if err != nil {
		return LoadedImage{}, err
	}
	return DecodeImage(data)
}

func DecodeImage(data []byte) (LoadedImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return LoadedImage{}, err
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return LoadedImage{}, ErrUnsupportedImage
	}

	switch format {
	case "jpeg":
		return LoadedImage{Data: data, Format: "jpeg", Width: b.Dx(), Height: b.Dy()}, nil
	case "png", "gif":
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return LoadedImage{}, err
		}
		return LoadedImage{Data: buf.Bytes(), Format: "png", Width: b.Dx(), Height: b.Dy()}, nil
	default:
		return LoadedImage{}, ErrUnsupportedImage
	}
}

// fitBox scales w×h to fit inside the box without cropping or anisotropic
// stretching and centres it.
func fitBox(imgW, imgH int, boxX, boxY, boxW, boxH float64) (x, y, w, h float64) {
	if imgW <= 0 || imgH <= 0 || boxW <= 0 || boxH <= 0 {
		return boxX, boxY, 0, 0
	}
	scale := boxW / float64(imgW)
	if s := boxH / float64(imgH); s < scale {
		scale = s
	}
	w = float64(imgW) * scale
	h = float64(imgH) * scale
	x = boxX + (boxW-w)/2
	y = boxY + (boxH-h)/2
	return x, y, w, h
}
