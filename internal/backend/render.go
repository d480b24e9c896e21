package backend

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"math/rand"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp"
)

// decodeInitImage accepts png, jpeg and webp payloads.
func decodeInitImage(b []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode init image: %w", err)
	}
	return img, nil
}

func randomColor(rng *rand.Rand) color.RGBA {
	return color.RGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255}
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a)*(1-t) + float64(b)*t)
}

// renderPNG draws a seeded diagonal gradient, optionally blended over an init
// image, with the prompt as a caption. Equal inputs give identical bytes.
func renderPNG(w, h int, seed int64, prompt string, init image.Image, strength float64) ([]byte, error) {
	rng := rand.New(rand.NewSource(seed))
	from, to := randomColor(rng), randomColor(rng)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	span := float64(w + h - 2)
	if span <= 0 {
		span = 1
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := float64(x+y) / span
			i := img.PixOffset(x, y)
			img.Pix[i+0] = lerp(from.R, to.R, t)
			img.Pix[i+1] = lerp(from.G, to.G, t)
			img.Pix[i+2] = lerp(from.B, to.B, t)
			img.Pix[i+3] = 255
		}
	}

	if init != nil {
		scaled := image.NewRGBA(img.Bounds())
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), init, init.Bounds(), draw.Src, nil)
		for i := 0; i < len(img.Pix); i += 4 {
			for c := 0; c < 3; c++ {
				img.Pix[i+c] = lerp(scaled.Pix[i+c], img.Pix[i+c], strength)
			}
		}
	}

	drawCaption(img, prompt)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawCaption(img *image.RGBA, text string) {
	face := basicfont.Face7x13
	maxRunes := (img.Bounds().Dx() - 16) / face.Advance
	if maxRunes <= 0 || text == "" {
		return
	}
	r := []rune(text)
	if len(r) > maxRunes {
		r = r[:maxRunes]
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot:  fixed.P(8, img.Bounds().Dy()-8),
	}
	d.DrawString(string(r))
}
