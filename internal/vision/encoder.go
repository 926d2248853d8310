// Package vision wraps the external ONNX face-encoder model used for
// image-based enrollment. Detection/landmarking is out of scope here; the
// model consumes an aligned face image and produces the 128-dimensional
// feature vector the matcher works with.
package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/clockd/internal/feature"
)

// Encoder extracts face feature vectors using an ONNX encoder model.
type Encoder struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputW       int
	inputH       int
}

// NewEncoder loads the ONNX face encoder. The model expects a 150x150 RGB
// crop and emits a feature.Dim-length vector.
func NewEncoder(modelPath string) (*Encoder, error) {
	inputW, inputH := 150, 150

	inputShape := ort.NewShape(1, 3, int64(inputH), int64(inputW))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(feature.Dim))
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"},
		[]string{"embedding"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create encoder session: %w", err)
	}

	return &Encoder{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputW:       inputW,
		inputH:       inputH,
	}, nil
}

// Encode decodes an image (JPEG or PNG), runs the encoder and returns a
// normalized feature vector plus a crude quality score derived from how much
// the source had to be upscaled to reach model resolution.
func (e *Encoder) Encode(imageData []byte) ([]float64, float32, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, 0, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	quality := float32(1.0)
	if area := bounds.Dx() * bounds.Dy(); area < e.inputW*e.inputH {
		quality = float32(area) / float32(e.inputW*e.inputH)
	}

	input := imageToFloat32CHW(img, e.inputW, e.inputH)
	copy(e.inputTensor.GetData(), input)

	if err := e.session.Run(); err != nil {
		return nil, 0, fmt.Errorf("run encoder: %w", err)
	}

	out := e.outputTensor.GetData()
	vector := make([]float64, feature.Dim)
	for i := range vector {
		vector[i] = float64(out[i])
	}
	normalize(vector)

	return vector, quality, nil
}

func (e *Encoder) Close() {
	if e.session != nil {
		e.session.Destroy()
	}
	if e.inputTensor != nil {
		e.inputTensor.Destroy()
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
	}
}

// imageToFloat32CHW converts an image to CHW float32 with (x-127.5)/127.5
// normalization after a nearest-neighbour resize.
func imageToFloat32CHW(img image.Image, targetW, targetH int) []float32 {
	resized := resizeImage(img, targetW, targetH)
	bounds := resized.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	data := make([]float32, 3*h*w)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := resized.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

			rf := float32(r >> 8)
			gf := float32(g >> 8)
			bf := float32(b >> 8)

			idx := y*w + x
			data[0*h*w+idx] = (rf - 127.5) / 127.5
			data[1*h*w+idx] = (gf - 127.5) / 127.5
			data[2*h*w+idx] = (bf - 127.5) / 127.5
		}
	}

	return data
}

// resizeImage performs nearest-neighbour resize (fast, good enough for ML input).
func resizeImage(img image.Image, targetW, targetH int) image.Image {
	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))

	for y := 0; y < targetH; y++ {
		for x := 0; x < targetW; x++ {
			srcX := bounds.Min.X + x*srcW/targetW
			srcY := bounds.Min.Y + y*srcH/targetH
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}

	return dst
}

// normalize performs L2 normalization in-place.
func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	norm := math.Sqrt(sum)
	if norm > 0 {
		for i := range v {
			v[i] /= norm
		}
	}
}
