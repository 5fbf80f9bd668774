// Package quality measures how far a stego image drifted from its carrier.
package quality

import (
	"image"
	"image/color"
	"math"
)

// PSNR returns the peak signal-to-noise ratio in dB between the colour
// channels of original and stego. Identical images yield +Inf; images of
// different sizes yield 0.
func PSNR(original, stego image.Image) float64 {
	ob, sb := original.Bounds(), stego.Bounds()
	if ob.Dx() != sb.Dx() || ob.Dy() != sb.Dy() || ob.Empty() {
		return 0.0
	}

	var mse float64
	for y := 0; y < ob.Dy(); y++ {
		for x := 0; x < ob.Dx(); x++ {
			a := color.NRGBAModel.Convert(original.At(ob.Min.X+x, ob.Min.Y+y)).(color.NRGBA)
			b := color.NRGBAModel.Convert(stego.At(sb.Min.X+x, sb.Min.Y+y)).(color.NRGBA)
			mse += sq(a.R, b.R) + sq(a.G, b.G) + sq(a.B, b.B)
		}
	}
	mse /= float64(ob.Dx() * ob.Dy() * 3)

	if mse == 0 {
		return math.Inf(1)
	}

	// PSNR = 20 * log10(MAX / sqrt(MSE)), MAX = 255 for 8-bit channels.
	return 20 * math.Log10(255.0/math.Sqrt(mse))
}

func sq(a, b uint8) float64 {
	d := float64(a) - float64(b)
	return d * d
}
