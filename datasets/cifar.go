package datasets

import (
	"fmt"
	"image"
	"io"
	"os"
	"path"

	"github.com/pkg/errors"

	"github.com/suyunov6/slurm-cnn/downloader"
)

// CIFAR-10 and CIFAR-100 are distributed as tar.gz archives of fixed-record
// binary files: one (CIFAR-10) or two (CIFAR-100) label bytes followed by
// 32x32x3 pixels stored as channel planes (all red, then green, then blue).
// See https://www.cs.toronto.edu/~kriz/cifar.html.
const (
	cifar10URL      = "https://www.cs.toronto.edu/~kriz/cifar-10-binary.tar.gz"
	cifar10TarName  = "cifar-10-binary.tar.gz"
	cifar10SubDir   = "cifar-10-batches-bin"
	cifar10Checksum = "c4a38c50a1bc5f3a1c5537f2155ab9d68f9f25eb1ed8d9ddda3db29a59bca1dd"

	cifar100URL      = "https://www.cs.toronto.edu/~kriz/cifar-100-binary.tar.gz"
	cifar100TarName  = "cifar-100-binary.tar.gz"
	cifar100SubDir   = "cifar-100-binary"
	cifar100Checksum = "58a81ae192c23a4be8b1804d68e518ed807d710a4eb253b1f2a199162a40d8ec"

	cifarWidth      = 32
	cifarHeight     = 32
	cifarPlaneBytes = cifarWidth * cifarHeight
	cifarImageBytes = 3 * cifarPlaneBytes
)

var (
	cifar10Classes = []string{"airplane", "automobile", "bird", "cat", "deer", "dog",
		"frog", "horse", "ship", "truck"}

	cifar100FineClasses = []string{"apple", "aquarium_fish", "baby", "bear", "beaver", "bed", "bee", "beetle",
		"bicycle", "bottle", "bowl", "boy", "bridge", "bus", "butterfly", "camel", "can", "castle",
		"caterpillar", "cattle", "chair", "chimpanzee", "clock", "cloud", "cockroach", "couch", "crab",
		"crocodile", "cup", "dinosaur", "dolphin", "elephant", "flatfish", "forest", "fox", "girl",
		"hamster", "house", "kangaroo", "keyboard", "lamp", "lawn_mower", "leopard", "lion", "lizard",
		"lobster", "man", "maple_tree", "motorcycle", "mountain", "mouse", "mushroom", "oak_tree",
		"orange", "orchid", "otter", "palm_tree", "pear", "pickup_truck", "pine_tree", "plain", "plate",
		"poppy", "porcupine", "possum", "rabbit", "raccoon", "ray", "road", "rocket", "rose", "sea",
		"seal", "shark", "shrew", "skunk", "skyscraper", "snail", "snake", "spider", "squirrel",
		"streetcar", "sunflower", "sweet_pepper", "table", "tank", "telephone", "television", "tiger",
		"tractor", "train", "trout", "tulip", "turtle", "wardrobe", "whale", "willow_tree", "wolf",
		"woman", "worm"}
)

func cifar10SplitFiles(split Split) []string {
	if split == Test {
		return []string{"test_batch.bin"}
	}
	files := make([]string, 0, 5)
	for i := 1; i <= 5; i++ {
		files = append(files, fmt.Sprintf("data_batch_%d.bin", i))
	}
	return files
}

func buildCIFAR10(baseDir string, cfg *Config) (*Dataset, error) {
	if cfg.Download {
		err := downloader.DownloadAndUntarIfMissing(cifar10URL, baseDir, cifar10TarName, cifar10SubDir, cifar10Checksum)
		if err != nil {
			return nil, errors.WithMessage(err, "downloading CIFAR10")
		}
	}
	var images []image.Image
	var labels []int64
	for _, file := range cifar10SplitFiles(cfg.Split) {
		var err error
		// One leading label byte per record.
		images, labels, err = loadCIFARFile(path.Join(baseDir, cifar10SubDir, file), 1, 0, images, labels)
		if err != nil {
			return nil, errors.WithMessagef(err, "loading CIFAR10 %s split", cfg.Split)
		}
	}
	return NewDataset(fmt.Sprintf("CIFAR10-%s", cfg.Split), images, labels, cfg)
}

func buildCIFAR100(baseDir string, cfg *Config) (*Dataset, error) {
	if cfg.Download {
		err := downloader.DownloadAndUntarIfMissing(cifar100URL, baseDir, cifar100TarName, cifar100SubDir, cifar100Checksum)
		if err != nil {
			return nil, errors.WithMessage(err, "downloading CIFAR100")
		}
	}
	file := "train.bin"
	if cfg.Split == Test {
		file = "test.bin"
	}
	// Two label bytes per record: coarse then fine. Keep the fine label.
	images, labels, err := loadCIFARFile(path.Join(baseDir, cifar100SubDir, file), 2, 1, nil, nil)
	if err != nil {
		return nil, errors.WithMessagef(err, "loading CIFAR100 %s split", cfg.Split)
	}
	return NewDataset(fmt.Sprintf("CIFAR100-%s", cfg.Split), images, labels, cfg)
}

// loadCIFARFile parses one fixed-record CIFAR binary file, appending decoded
// images and labels to the given slices. Each record has numLabelBytes label
// bytes (labelIndex selects which to keep) followed by the planar RGB pixels.
func loadCIFARFile(filePath string, numLabelBytes, labelIndex int,
	images []image.Image, labels []int64) ([]image.Image, []int64, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening %q", filePath)
	}
	defer func() { _ = f.Close() }()

	record := make([]byte, numLabelBytes+cifarImageBytes)
	for recordNum := 0; ; recordNum++ {
		n, err := io.ReadFull(f, record)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "reading record %d from %q: got %d of %d bytes",
				recordNum, filePath, n, len(record))
		}
		images = append(images, cifarRecordToImage(record[numLabelBytes:]))
		labels = append(labels, int64(record[labelIndex]))
	}
	return images, labels, nil
}

// cifarRecordToImage converts the planar RGB pixel bytes of one record into
// an NRGBA image.
func cifarRecordToImage(pix []byte) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, cifarWidth, cifarHeight))
	for y := 0; y < cifarHeight; y++ {
		for x := 0; x < cifarWidth; x++ {
			offset := y*cifarWidth + x
			pos := y*img.Stride + x*4
			img.Pix[pos+0] = pix[offset]
			img.Pix[pos+1] = pix[cifarPlaneBytes+offset]
			img.Pix[pos+2] = pix[2*cifarPlaneBytes+offset]
			img.Pix[pos+3] = 0xFF
		}
	}
	return img
}
