package session

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"gocv.io/x/gocv"
)

// Source produces BGR frames.
type Source interface {
	// Read fills dst with the next frame.
	Read(dst *gocv.Mat) error
	Close() error
}

// Opener acquires a Source. It is called once per Start.
type Opener func(ctx context.Context) (Source, error)

// CameraSource reads from a video capture device.
type CameraSource struct {
	dev *gocv.VideoCapture
	id  int
}

// OpenCamera returns an Opener for the camera with the given device index.
func OpenCamera(id int) Opener {
	return func(context.Context) (Source, error) {
		dev, err := gocv.VideoCaptureDevice(id)
		if err != nil {
			return nil, errors.Wrapf(err, "open camera %d", id)
		}
		if !dev.IsOpened() {
			dev.Close()
			return nil, errors.Errorf("camera %d not available", id)
		}
		return &CameraSource{dev: dev, id: id}, nil
	}
}

func (c *CameraSource) Read(dst *gocv.Mat) error {
	if ok := c.dev.Read(dst); !ok || dst.Empty() {
		return errors.Errorf("camera %d returned no frame", c.id)
	}
	return nil
}

func (c *CameraSource) Close() error {
	return c.dev.Close()
}

// FileSource serves one stored image as an endless stream of identical frames.
type FileSource struct {
	path  string
	frame gocv.Mat
}

// OpenFile returns an Opener that loads path on Start.
func OpenFile(path string) Opener {
	return func(context.Context) (Source, error) {
		frame, err := LoadImage(path)
		if err != nil {
			return nil, err
		}
		return &FileSource{path: path, frame: frame}, nil
	}
}

func (f *FileSource) Read(dst *gocv.Mat) error {
	if f.frame.Empty() {
		return errors.Errorf("%s: source closed", f.path)
	}
	f.frame.CopyTo(dst)
	return nil
}

func (f *FileSource) Close() error {
	return f.frame.Close()
}

// LoadImage reads an image file into a BGR mat. Formats OpenCV was built
// without are decoded in Go and converted.
func LoadImage(path string) (gocv.Mat, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if !mat.Empty() {
		return mat, nil
	}
	mat.Close()

	file, err := os.Open(path)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "failed to open image")
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return gocv.NewMat(), errors.Wrapf(err, "failed to decode image %s", filepath.Base(path))
	}
	return ImageToMat(img)
}

// ImageToMat converts an image.Image to a BGR gocv.Mat.
func ImageToMat(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return gocv.NewMat(), errors.New("empty image")
	}

	mat := gocv.NewMatWithSize(h, w, gocv.MatTypeCV8UC3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			mat.SetUCharAt(y, x*3+0, uint8(b>>8))
			mat.SetUCharAt(y, x*3+1, uint8(g>>8))
			mat.SetUCharAt(y, x*3+2, uint8(r>>8))
		}
	}
	return mat, nil
}

// SupportedExtensions lists the file extensions batch runs pick up.
func SupportedExtensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp"}
}

// IsSupportedImage reports whether path has a supported extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions() {
		if ext == e {
			return true
		}
	}
	return false
}
