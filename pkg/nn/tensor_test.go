package nn

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grayImage(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestNewTensor(t *testing.T) {
	tensor, err := NewTensor(grayImage(100, 80, 128))
	require.NoError(t, err)
	assert.Equal(t, FrameSize, tensor.Width)
	assert.Equal(t, FrameSize, tensor.Height)
	assert.Equal(t, 100, tensor.SourceWidth)
	assert.Equal(t, 80, tensor.SourceHeight)
	assert.Len(t, tensor.Data, 3*FrameSize*FrameSize)
	assert.InDelta(t, 128.0/255.0, tensor.MeanIntensity, 0.01)

	// first value of the red channel is ImageNet-normalized
	assert.InDelta(t, (128.0/255.0-0.485)/0.229, tensor.Data[0], 0.05)
}

func TestDecodeTensor(t *testing.T) {
	_, err := DecodeTensor(nil)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = DecodeTensor([]byte("definitely not an image"))
	assert.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, grayImage(64, 64, 10)))
	tensor, err := DecodeTensor(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 64, tensor.SourceWidth)
}

// pngHeader is a PNG signature plus an IHDR chunk declaring an 8-bit gray image of w x h.
// It is enough for image.DecodeConfig; the pixel data is absent.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth, color type 0 (gray)

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecodeTensorRejectsHugeDimensions(t *testing.T) {
	_, err := DecodeTensor(pngHeader(16000, 16000))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	// Just inside the budget passes the header check and fails later on the missing pixels
	_, err = DecodeTensor(pngHeader(5000, 5000))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrImageTooLarge)
}
