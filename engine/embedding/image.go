package embedding

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/snapseek/snapseek/engine/core"
)

// NormalizedImage is an image converted to the model input contract: a single
// color model, a fixed square resolution, PNG-encoded. Width and Height keep
// the original pixel dimensions for catalog metadata.
type NormalizedImage struct {
	PNG    []byte
	Width  int
	Height int
}

// NormalizeImage decodes arbitrary caller-supplied image bytes (jpeg, png,
// gif, webp) and resizes them to a target square resolution. Undecodable
// input is a client error, not a server one.
func NormalizeImage(data []byte, target int) (*NormalizedImage, error) {
	if len(data) == 0 {
		return nil, core.NewInputError("image payload is empty", nil)
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, core.NewInputError("image could not be decoded", err)
	}
	bounds := src.Bounds()
	// Flatten onto white so alpha channels do not leak into the encoder.
	dst := image.NewNRGBA(image.Rect(0, 0, target, target))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, core.NewInternalError("encode normalized image", err)
	}
	return &NormalizedImage{
		PNG:    buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

// neutralImage renders a uniform mid-gray square used to probe the model
// output dimensionality without a real photograph.
func neutralImage(target int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, target, target))
	gray := color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	for y := 0; y < target; y++ {
		for x := 0; x < target; x++ {
			img.SetNRGBA(x, y, gray)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
