// Command genraster generates a synthetic annual-flux GeoTIFF for local
// development and manual testing. The raster holds a radial flux
// gradient with a band of no-data pixels so the renderer's transparency
// path is exercised. An optional PNG preview runs the real
// decode-and-colorize pipeline against the generated file.
//
// Usage:
//
//	go run ./cmd/genraster -out testdata/flux_sample.tiff -width 256 -height 256 -png preview.png
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"image/png"
	"log"
	"math"
	"os"

	"github.com/couchcryptid/solar-flux-service/internal/geotiff"
	"github.com/couchcryptid/solar-flux-service/internal/render"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the generated TIFF")
	width := flag.Int("width", 256, "raster width in pixels")
	height := flag.Int("height", 256, "raster height in pixels")
	maxFlux := flag.Float64("max-flux", 1800, "peak flux value in kWh/kW/year")
	pngOut := flag.String("png", "", "optional path for a colorized PNG preview")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *width <= 0 || *height <= 0 {
		return fmt.Errorf("width and height must be positive")
	}

	samples := synthesize(*width, *height, *maxFlux)
	data := encodeTIFF(*width, *height, samples)

	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	log.Printf("wrote %s: %dx%d, %d bytes", *out, *width, *height, len(data))

	if *pngOut == "" {
		return nil
	}

	// Round-trip through the real pipeline so the preview matches what
	// the service would serve.
	raster, err := geotiff.Decode(data)
	if err != nil {
		return fmt.Errorf("decode generated raster: %w", err)
	}
	img, err := render.Flux(raster)
	if err != nil {
		return fmt.Errorf("colorize generated raster: %w", err)
	}

	f, err := os.Create(*pngOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", *pngOut, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	log.Printf("wrote preview %s", *pngOut)
	return nil
}

// synthesize builds a radial flux gradient peaking at the center, with
// a no-data stripe along the left edge mimicking masked-out pixels.
func synthesize(width, height int, maxFlux float64) []float64 {
	samples := make([]float64, width*height)
	cx, cy := float64(width)/2, float64(height)/2
	maxDist := math.Hypot(cx, cy)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < width/16 {
				samples[y*width+x] = -9999 // no-data
				continue
			}
			dist := math.Hypot(float64(x)-cx, float64(y)-cy)
			samples[y*width+x] = maxFlux * (1 - dist/maxDist)
		}
	}
	return samples
}

// encodeTIFF writes a little-endian classic TIFF with one float32 band
// in a single strip.
func encodeTIFF(width, height int, samples []float64) []byte {
	pix := make([]byte, 0, len(samples)*4)
	for _, v := range samples {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(float32(v)))
		pix = append(pix, b[:]...)
	}

	const dataOffset = 8
	ifdOffset := dataOffset + len(pix)

	type entry struct {
		tag, typ uint16
		val      uint32
	}
	const typeShort, typeLong = uint16(3), uint16(4)
	entries := []entry{
		{256, typeLong, uint32(width)},    // ImageWidth
		{257, typeLong, uint32(height)},   // ImageLength
		{258, typeShort, 32},              // BitsPerSample
		{259, typeShort, 1},               // Compression: none
		{262, typeShort, 1},               // PhotometricInterpretation
		{273, typeLong, dataOffset},       // StripOffsets
		{277, typeShort, 1},               // SamplesPerPixel
		{278, typeLong, uint32(height)},   // RowsPerStrip
		{279, typeLong, uint32(len(pix))}, // StripByteCounts
		{339, typeShort, 3},               // SampleFormat: IEEE float
	}

	out := make([]byte, 8, ifdOffset+2+len(entries)*12+4)
	out[0], out[1] = 'I', 'I'
	binary.LittleEndian.PutUint16(out[2:4], 42)
	binary.LittleEndian.PutUint32(out[4:8], uint32(ifdOffset))
	out = append(out, pix...)

	var cnt [2]byte
	binary.LittleEndian.PutUint16(cnt[:], uint16(len(entries)))
	out = append(out, cnt[:]...)
	for _, e := range entries {
		var b [12]byte
		binary.LittleEndian.PutUint16(b[0:2], e.tag)
		binary.LittleEndian.PutUint16(b[2:4], e.typ)
		binary.LittleEndian.PutUint32(b[4:8], 1)
		if e.typ == typeShort {
			binary.LittleEndian.PutUint16(b[8:10], uint16(e.val))
		} else {
			binary.LittleEndian.PutUint32(b[8:12], e.val)
		}
		out = append(out, b[:]...)
	}
	out = append(out, 0, 0, 0, 0) // no next IFD
	return out
}
