// Package geotiff decodes single-band scientific TIFF rasters into the
// uniform float64 representation the flux renderer consumes.
//
// The vendor's flux GeoTIFFs are single-band IEEE-float rasters
// (SampleFormat=3), which golang.org/x/image/tiff rejects: it only
// handles the baseline integer photometric modes. The band reader here
// parses the classic TIFF container directly for grayscale strip
// images of any numeric width; containers it cannot handle (RGB,
// palette, tiled) are handed to the x/image decoder and reduced to
// luminance.
package geotiff

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/image/tiff"

	"github.com/couchcryptid/solar-flux-service/internal/domain"
)

const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagTileWidth       = 322
	tagSampleFormat    = 339
)

const (
	compressionNone       = 1
	compressionDeflate    = 8
	compressionDeflateOld = 32946
)

const (
	formatUint  = 1
	formatInt   = 2
	formatFloat = 3
)

// maxPixels bounds the decoded allocation. Roof-scale flux rasters are
// a few hundred pixels on a side; anything past this is a hostile or
// corrupt container.
const maxPixels = 64 << 20

// Decode parses raster bytes into a single-band float64 raster.
// Malformed, truncated, or unreadable input yields domain.ErrDecode.
func Decode(data []byte) (*domain.Raster, error) {
	raster, err := decodeBand(data)
	if err == nil {
		return raster, nil
	}
	if !errFallback(err) {
		return nil, err
	}
	return decodeGeneral(data)
}

// errUnsupported marks a well-formed container the band reader does not
// handle itself; Decode retries those through x/image/tiff.
type errUnsupported struct{ reason string }

func (e *errUnsupported) Error() string { return "unsupported tiff layout: " + e.reason }

func errFallback(err error) bool {
	var u *errUnsupported
	return errors.As(err, &u)
}

// decodeBand reads the first band of a grayscale strip TIFF.
func decodeBand(data []byte) (*domain.Raster, error) {
	bo, ifdOffset, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	ifd, err := parseIFD(data, bo, ifdOffset)
	if err != nil {
		return nil, err
	}

	if _, tiled := ifd[tagTileWidth]; tiled {
		return nil, &errUnsupported{"tiled storage"}
	}
	if photo := ifd.uintOr(tagPhotometric, 1); photo > 1 {
		return nil, &errUnsupported{fmt.Sprintf("photometric %d", photo)}
	}

	width := int(ifd.uintOr(tagImageWidth, 0))
	height := int(ifd.uintOr(tagImageLength, 0))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: missing or invalid dimensions", domain.ErrDecode)
	}
	if width*height > maxPixels {
		return nil, fmt.Errorf("%w: raster too large (%dx%d)", domain.ErrDecode, width, height)
	}

	bits := int(ifd.uintOr(tagBitsPerSample, 1))
	format := int(ifd.uintOr(tagSampleFormat, formatUint))
	spp := int(ifd.uintOr(tagSamplesPerPixel, 1))
	planar := int(ifd.uintOr(tagPlanarConfig, 1))
	compression := int(ifd.uintOr(tagCompression, compressionNone))

	if spp < 1 {
		return nil, fmt.Errorf("%w: invalid samples per pixel %d", domain.ErrDecode, spp)
	}

	bytesPerSample, err := sampleWidth(bits, format)
	if err != nil {
		return nil, err
	}
	// Bound the strip buffer the same way maxPixels bounds the pixel
	// count; the declared sample count must never drive the allocation.
	if width*height*spp*bytesPerSample > maxPixels*8 {
		return nil, fmt.Errorf("%w: raster data too large (%dx%d, %d samples per pixel)", domain.ErrDecode, width, height, spp)
	}
	if compression != compressionNone && compression != compressionDeflate && compression != compressionDeflateOld {
		return nil, &errUnsupported{fmt.Sprintf("compression %d", compression)}
	}

	offsets, err := ifd.uints(tagStripOffsets)
	if err != nil {
		return nil, fmt.Errorf("%w: missing strip offsets", domain.ErrDecode)
	}
	counts, err := ifd.uints(tagStripByteCounts)
	if err != nil || len(counts) != len(offsets) {
		return nil, fmt.Errorf("%w: missing or mismatched strip byte counts", domain.ErrDecode)
	}

	rowsPerStrip := int(ifd.uintOr(tagRowsPerStrip, uint64(height)))
	if rowsPerStrip <= 0 || rowsPerStrip > height {
		rowsPerStrip = height
	}
	stripsPerBand := (height + rowsPerStrip - 1) / rowsPerStrip

	// Planar configuration 2 stores each band's strips consecutively;
	// the first band is the first stripsPerBand strips.
	stripCount := len(offsets)
	if planar == 2 {
		if stripCount < stripsPerBand {
			return nil, fmt.Errorf("%w: %d strips for %d-strip band", domain.ErrDecode, stripCount, stripsPerBand)
		}
		stripCount = stripsPerBand
	}

	pixelStride := spp
	if planar == 2 {
		pixelStride = 1
	}

	buf := make([]byte, 0, width*height*pixelStride*bytesPerSample)
	for i := 0; i < stripCount; i++ {
		strip, err := readStrip(data, offsets[i], counts[i], compression)
		if err != nil {
			return nil, err
		}
		buf = append(buf, strip...)
	}

	needed := width * height * pixelStride * bytesPerSample
	if len(buf) < needed {
		return nil, fmt.Errorf("%w: truncated strip data (%d of %d bytes)", domain.ErrDecode, len(buf), needed)
	}

	samples := make([]float64, width*height)
	for i := range samples {
		off := i * pixelStride * bytesPerSample
		v := readSample(buf[off:off+bytesPerSample], bo, bits, format)
		// Non-finite samples are vendor no-data; coerce to the sentinel.
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		samples[i] = v
	}

	raster := &domain.Raster{Width: width, Height: height, Samples: samples}
	if err := raster.Validate(); err != nil {
		return nil, err
	}
	return raster, nil
}

func parseHeader(data []byte) (binary.ByteOrder, uint32, error) {
	if len(data) < 8 {
		return nil, 0, fmt.Errorf("%w: short header", domain.ErrDecode)
	}
	var bo binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		bo = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		bo = binary.BigEndian
	default:
		return nil, 0, fmt.Errorf("%w: not a TIFF container", domain.ErrDecode)
	}
	if bo.Uint16(data[2:4]) != 42 {
		return nil, 0, fmt.Errorf("%w: bad TIFF magic", domain.ErrDecode)
	}
	return bo, bo.Uint32(data[4:8]), nil
}

// ifdEntry is one 12-byte directory entry. raw holds the inline value
// field, which is an offset when the value does not fit in 4 bytes.
type ifdEntry struct {
	typ   uint16
	count uint32
	raw   []byte
	data  []byte
	bo    binary.ByteOrder
}

type ifdMap map[uint16]ifdEntry

func parseIFD(data []byte, bo binary.ByteOrder, offset uint32) (ifdMap, error) {
	if int64(offset)+2 > int64(len(data)) {
		return nil, fmt.Errorf("%w: IFD offset out of range", domain.ErrDecode)
	}
	n := int(bo.Uint16(data[offset : offset+2]))
	end := int64(offset) + 2 + int64(n)*12
	if end > int64(len(data)) {
		return nil, fmt.Errorf("%w: truncated IFD", domain.ErrDecode)
	}

	ifd := make(ifdMap, n)
	for i := 0; i < n; i++ {
		e := data[int(offset)+2+i*12:]
		ifd[bo.Uint16(e[0:2])] = ifdEntry{
			typ:   bo.Uint16(e[2:4]),
			count: bo.Uint32(e[4:8]),
			raw:   e[8:12],
			data:  data,
			bo:    bo,
		}
	}
	return ifd, nil
}

// typeSizes maps TIFF field types to their byte widths. Only the
// integer types that carry layout tags are listed.
var typeSizes = map[uint16]int{1: 1, 3: 2, 4: 4}

// uints reads an entry's values as unsigned integers.
func (m ifdMap) uints(tag uint16) ([]uint64, error) {
	e, ok := m[tag]
	if !ok {
		return nil, fmt.Errorf("%w: missing tag %d", domain.ErrDecode, tag)
	}
	size, ok := typeSizes[e.typ]
	if !ok {
		return nil, &errUnsupported{fmt.Sprintf("tag %d field type %d", tag, e.typ)}
	}

	total := size * int(e.count)
	var src []byte
	if total <= 4 {
		src = e.raw
	} else {
		off := int64(e.bo.Uint32(e.raw))
		if off+int64(total) > int64(len(e.data)) {
			return nil, fmt.Errorf("%w: tag %d value out of range", domain.ErrDecode, tag)
		}
		src = e.data[off:]
	}

	vals := make([]uint64, e.count)
	for i := range vals {
		switch size {
		case 1:
			vals[i] = uint64(src[i])
		case 2:
			vals[i] = uint64(e.bo.Uint16(src[i*2:]))
		case 4:
			vals[i] = uint64(e.bo.Uint32(src[i*4:]))
		}
	}
	return vals, nil
}

// uintOr reads the first value of a tag, or def when the tag is absent.
func (m ifdMap) uintOr(tag uint16, def uint64) uint64 {
	vals, err := m.uints(tag)
	if err != nil || len(vals) == 0 {
		return def
	}
	return vals[0]
}

func sampleWidth(bits, format int) (int, error) {
	switch format {
	case formatUint, formatInt:
		switch bits {
		case 8, 16, 32:
			return bits / 8, nil
		}
	case formatFloat:
		switch bits {
		case 32, 64:
			return bits / 8, nil
		}
	}
	return 0, &errUnsupported{fmt.Sprintf("sample format %d/%d bits", format, bits)}
}

func readStrip(data []byte, offset, count uint64, compression int) ([]byte, error) {
	if offset+count > uint64(len(data)) {
		return nil, fmt.Errorf("%w: strip extends past end of data", domain.ErrDecode)
	}
	strip := data[offset : offset+count]

	if compression == compressionNone {
		return strip, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(strip))
	if err != nil {
		return nil, fmt.Errorf("%w: bad deflate strip: %v", domain.ErrDecode, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, maxPixels*8))
	if err != nil {
		return nil, fmt.Errorf("%w: bad deflate strip: %v", domain.ErrDecode, err)
	}
	return out, nil
}

func readSample(b []byte, bo binary.ByteOrder, bits, format int) float64 {
	switch format {
	case formatFloat:
		if bits == 32 {
			return float64(math.Float32frombits(bo.Uint32(b)))
		}
		return math.Float64frombits(bo.Uint64(b))
	case formatInt:
		switch bits {
		case 8:
			return float64(int8(b[0]))
		case 16:
			return float64(int16(bo.Uint16(b)))
		default:
			return float64(int32(bo.Uint32(b)))
		}
	default:
		switch bits {
		case 8:
			return float64(b[0])
		case 16:
			return float64(bo.Uint16(b))
		default:
			return float64(bo.Uint32(b))
		}
	}
}

// decodeGeneral routes non-grayscale or tiled containers through the
// x/image decoder and reduces pixels to 16-bit luminance.
func decodeGeneral(data []byte) (*domain.Raster, error) {
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 || width*height > maxPixels {
		return nil, fmt.Errorf("%w: invalid decoded dimensions %dx%d", domain.ErrDecode, width, height)
	}

	samples := make([]float64, 0, width*height)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			// BT.601 luma on the 16-bit channels.
			samples = append(samples, (0.299*float64(r)+0.587*float64(g)+0.114*float64(bl))/257.0)
		}
	}

	raster := &domain.Raster{Width: width, Height: height, Samples: samples}
	if err := raster.Validate(); err != nil {
		return nil, err
	}
	return raster, nil
}
