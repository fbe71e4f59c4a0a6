package nn

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ImageNet normalization, which is what both detectors were trained with
var (
	channelMean = [3]float32{0.485, 0.456, 0.406}
	channelStd  = [3]float32{0.229, 0.224, 0.225}
)

// MaxSourcePixels bounds the size of a decoded upload. Compressed formats can
// declare dimensions far beyond what their byte size suggests.
const MaxSourcePixels = 50_000_000

var (
	ErrEmptyImage    = errors.New("empty image")
	ErrImageTooLarge = errors.New("image dimensions too large")
)

// Tensor is a normalized RGB image of FrameSize x FrameSize, laid out as CHW float32.
type Tensor struct {
	Data          []float32
	Width         int     // Always FrameSize
	Height        int     // Always FrameSize
	SourceWidth   int     // Width of the image before it was resized
	SourceHeight  int     // Height of the image before it was resized
	MeanIntensity float32 // Mean of all RGB values of the resized image, before normalization, in [0,1]
}

// DecodeTensor decodes an encoded image (jpeg, png, gif, bmp, tiff) and prepares it for inference.
// The header is read first so oversized images are rejected before any pixel is allocated.
func DecodeTensor(encoded []byte) (*Tensor, error) {
	if len(encoded) == 0 {
		return nil, ErrEmptyImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, ErrEmptyImage
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	img, err := imaging.Decode(bytes.NewReader(encoded), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return NewTensor(img)
}

// NewTensor resizes img to the processing frame and normalizes it.
// Boxes produced from this tensor are NOT scaled back to the source size.
func NewTensor(img image.Image) (*Tensor, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, ErrEmptyImage
	}

	resized := imaging.Resize(img, FrameSize, FrameSize, imaging.Lanczos)

	channelSize := FrameSize * FrameSize
	t := &Tensor{
		Data:         make([]float32, 3*channelSize),
		Width:        FrameSize,
		Height:       FrameSize,
		SourceWidth:  b.Dx(),
		SourceHeight: b.Dy(),
	}

	var sum float64
	for y := 0; y < FrameSize; y++ {
		row := resized.Pix[y*resized.Stride : y*resized.Stride+FrameSize*4]
		offset := y * FrameSize
		for x := 0; x < FrameSize; x++ {
			i := offset + x
			for c := 0; c < 3; c++ {
				v := float32(row[x*4+c]) / 255.0
				sum += float64(v)
				t.Data[c*channelSize+i] = (v - channelMean[c]) / channelStd[c]
			}
		}
	}
	t.MeanIntensity = float32(sum / float64(3*channelSize))

	return t, nil
}
