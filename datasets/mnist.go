package datasets

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"net/url"
	"os"
	"path"

	"github.com/pkg/errors"

	"github.com/suyunov6/slurm-cnn/downloader"
)

// The MNIST-family datasets (MNIST, FashionMNIST, KMNIST) share the IDX file
// format: gzip-compressed files with a big-endian binary header followed by
// raw 28x28 grayscale pixels (images) or single label bytes.
const (
	mnistURL        = "https://storage.googleapis.com/cvdf-datasets/mnist"
	fashionMNISTURL = "http://fashion-mnist.s3-website.eu-central-1.amazonaws.com"
	kmnistURL       = "http://codh.rois.ac.jp/kmnist/dataset/kmnist"

	idxWidth  = 28
	idxHeight = 28

	idxImagesMagic = 0x00000803
	idxLabelsMagic = 0x00000801
)

var idxSplitFiles = map[Split][2]string{
	Train: {"train-images-idx3-ubyte.gz", "train-labels-idx1-ubyte.gz"},
	Test:  {"t10k-images-idx3-ubyte.gz", "t10k-labels-idx1-ubyte.gz"},
}

var (
	digitClasses = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}

	fashionMNISTClasses = []string{"t-shirt/top", "trouser", "pullover", "dress", "coat",
		"sandal", "shirt", "sneaker", "bag", "ankle_boot"}

	kmnistClasses = []string{"o", "ki", "su", "tsu", "na", "ha", "ma", "ya", "re", "wo"}
)

type idxImagesHeader struct {
	Magic     int32
	NumImages int32
	Height    int32
	Width     int32
}

type idxLabelsHeader struct {
	Magic     int32
	NumLabels int32
}

// grayImage is a single 28x28 grayscale image: 0 is black (the background),
// 255 is white (the drawing).
type grayImage [idxWidth * idxHeight]byte

var _ image.Image = grayImage{}

// ColorModel implements image.Image.
func (img grayImage) ColorModel() color.Model { return color.GrayModel }

// Bounds implements image.Image.
func (img grayImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, idxWidth, idxHeight)
}

// At implements image.Image.
func (img grayImage) At(x, y int) color.Color {
	return color.Gray{Y: img[y*idxWidth+x]}
}

// idxBuilder returns the catalog Builder for an IDX-format dataset served
// from baseURL. Files are stored under `<baseDir>/<name>/`, since the three
// MNIST-family datasets use the same file names.
func idxBuilder(name, baseURL string) Builder {
	return func(baseDir string, cfg *Config) (*Dataset, error) {
		dir := path.Join(baseDir, name)
		files := idxSplitFiles[cfg.Split]
		if cfg.Download {
			for _, file := range files {
				fileURL, err := url.JoinPath(baseURL, file)
				if err != nil {
					return nil, errors.Wrapf(err, "joining %q and %q", baseURL, file)
				}
				if err = downloader.DownloadIfMissing(fileURL, path.Join(dir, file), ""); err != nil {
					return nil, errors.WithMessagef(err, "downloading %s", name)
				}
			}
		}
		images, err := loadIDXImages(path.Join(dir, files[0]))
		if err != nil {
			return nil, errors.WithMessagef(err, "loading %s images", name)
		}
		labels, err := loadIDXLabels(path.Join(dir, files[1]))
		if err != nil {
			return nil, errors.WithMessagef(err, "loading %s labels", name)
		}
		if len(images) != len(labels) {
			return nil, errors.Errorf("%s %s split has %d images but %d labels",
				name, cfg.Split, len(images), len(labels))
		}
		return NewDataset(fmt.Sprintf("%s-%s", name, cfg.Split), images, labels, cfg)
	}
}

// loadIDXImages opens an IDX images file, parses it, and returns the images
// in storage order.
func loadIDXImages(filePath string) ([]image.Image, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", filePath)
	}
	defer func() { _ = f.Close() }()
	reader, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "un-gzipping %q", filePath)
	}
	defer func() { _ = reader.Close() }()

	var header idxImagesHeader
	if err = binary.Read(reader, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrapf(err, "reading header of %q", filePath)
	}
	if header.Magic != idxImagesMagic {
		return nil, errors.Errorf("%q is not an IDX images file: magic is %#08x, wanted %#08x",
			filePath, header.Magic, idxImagesMagic)
	}
	if header.Width != idxWidth || header.Height != idxHeight {
		return nil, errors.Errorf("%q has %dx%d images, only %dx%d supported",
			filePath, header.Width, header.Height, idxWidth, idxHeight)
	}
	images := make([]image.Image, header.NumImages)
	for i := int32(0); i < header.NumImages; i++ {
		var img grayImage
		if err = binary.Read(reader, binary.BigEndian, &img); err != nil {
			return nil, errors.Wrapf(err, "reading image %d (of %d) from %q", i, header.NumImages, filePath)
		}
		images[i] = img
	}
	return images, nil
}

// loadIDXLabels opens an IDX labels file, parses it, and returns the labels
// in storage order.
func loadIDXLabels(filePath string) ([]int64, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", filePath)
	}
	defer func() { _ = f.Close() }()
	reader, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "un-gzipping %q", filePath)
	}
	defer func() { _ = reader.Close() }()

	var header idxLabelsHeader
	if err = binary.Read(reader, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrapf(err, "reading header of %q", filePath)
	}
	if header.Magic != idxLabelsMagic {
		return nil, errors.Errorf("%q is not an IDX labels file: magic is %#08x, wanted %#08x",
			filePath, header.Magic, idxLabelsMagic)
	}
	labels := make([]int64, header.NumLabels)
	for i := int32(0); i < header.NumLabels; i++ {
		var label uint8
		if err = binary.Read(reader, binary.BigEndian, &label); err != nil {
			return nil, errors.Wrapf(err, "reading label %d (of %d) from %q", i, header.NumLabels, filePath)
		}
		labels[i] = int64(label)
	}
	return labels, nil
}
