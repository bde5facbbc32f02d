package video

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// Output frame settings.
const (
	FrameWidth  = 1920
	FrameHeight = 1080
	FPS         = 30
)

// Background is the pad and fallback color, RGB(12,12,16).
const Background = "0x0C0C10"

// Geometry is where a scaled image lands inside the frame.
type Geometry struct {
	Width, Height int
	X, Y          int
}

// Letterbox fits a srcW x srcH image inside dstW x dstH preserving aspect
// ratio, centered.
func Letterbox(srcW, srcH, dstW, dstH int) Geometry {
	scale := min(float64(dstW)/float64(srcW), float64(dstH)/float64(srcH))
	w := int(float64(srcW) * scale)
	h := int(float64(srcH) * scale)
	return Geometry{
		Width:  w,
		Height: h,
		X:      (dstW - w) / 2,
		Y:      (dstH - h) / 2,
	}
}

// ImageSize reads the pixel dimensions of a JPEG, PNG or GIF.
func ImageSize(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open background: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("read background %s: %w", path, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return 0, 0, fmt.Errorf("background %s has zero size", path)
	}
	return cfg.Width, cfg.Height, nil
}

// filter scales with Lanczos and pads to the full frame. RGB keeps odd
// offsets exact before the final yuv420p conversion.
func filter(g Geometry) string {
	return fmt.Sprintf("format=rgb24,scale=%d:%d:flags=lanczos,pad=%d:%d:%d:%d:color=%s,format=yuv420p",
		g.Width, g.Height, FrameWidth, FrameHeight, g.X, g.Y, Background)
}
