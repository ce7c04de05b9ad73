// Package scanner holds the capture-side adapters: the network camera frame
// source, the barcode decoder, and the detection chime. The decoder library
// is treated as a black box behind the port.Decoder interface.
package scanner

import (
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
)

// ZxingDecoder decodes retail barcode symbologies (EAN-13/8, UPC-A/E,
// Code128, Code39) from camera frames.
type ZxingDecoder struct {
	readers []gozxing.Reader
	hints   map[gozxing.DecodeHintType]interface{}
}

func NewZxingDecoder() *ZxingDecoder {
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_POSSIBLE_FORMATS: []gozxing.BarcodeFormat{
			gozxing.BarcodeFormat_EAN_13,
			gozxing.BarcodeFormat_EAN_8,
			gozxing.BarcodeFormat_UPC_A,
			gozxing.BarcodeFormat_UPC_E,
			gozxing.BarcodeFormat_CODE_128,
			gozxing.BarcodeFormat_CODE_39,
		},
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	return &ZxingDecoder{
		readers: []gozxing.Reader{
			oned.NewMultiFormatUPCEANReader(hints),
			oned.NewCode128Reader(),
			oned.NewCode39Reader(),
		},
		hints: hints,
	}
}

// Decode returns the candidate values found in the frame. A frame with no
// recognizable symbol is not an error; it simply yields no candidates.
func (d *ZxingDecoder) Decode(img image.Image) ([]string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("build bitmap: %w", err)
	}

	var candidates []string
	for _, reader := range d.readers {
		result, err := reader.Decode(bmp, d.hints)
		if err != nil {
			// No symbol of this family in the frame; try the next reader.
			continue
		}
		if text := result.GetText(); text != "" {
			candidates = append(candidates, text)
		}
	}
	return candidates, nil
}
