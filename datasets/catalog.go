// Package datasets provides the catalog of supported vision datasets, fuzzy
// name resolution against it, in-memory train.Dataset implementations for the
// MNIST-family (IDX) and CIFAR binary formats, and a streaming pass that
// computes per-channel normalization statistics.
package datasets

import (
	"sort"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
)

// Builder constructs one split of a catalog dataset rooted at baseDir.
type Builder func(baseDir string, cfg *Config) (*Dataset, error)

// Spec describes one entry of the dataset catalog.
type Spec struct {
	// Name is the canonical dataset name, as listed by Names.
	Name string

	// Channels of the source images: 1 for grayscale, 3 for RGB. Note that
	// tensor conversion always yields 3 channels (grayscale is replicated).
	Channels int

	// Classes are the human-readable label names, indexed by label value.
	Classes []string

	// Builder constructs a split of this dataset.
	Builder Builder
}

// NumClasses returns the number of label classes.
func (s *Spec) NumClasses() int { return len(s.Classes) }

var catalog = []*Spec{
	{Name: "MNIST", Channels: 1, Classes: digitClasses,
		Builder: idxBuilder("MNIST", mnistURL)},
	{Name: "FashionMNIST", Channels: 1, Classes: fashionMNISTClasses,
		Builder: idxBuilder("FashionMNIST", fashionMNISTURL)},
	{Name: "KMNIST", Channels: 1, Classes: kmnistClasses,
		Builder: idxBuilder("KMNIST", kmnistURL)},
	{Name: "CIFAR10", Channels: 3, Classes: cifar10Classes,
		Builder: buildCIFAR10},
	{Name: "CIFAR100", Channels: 3, Classes: cifar100FineClasses,
		Builder: buildCIFAR100},
}

// Names returns the canonical names of all catalog datasets, in catalog order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for _, spec := range catalog {
		names = append(names, spec.Name)
	}
	return names
}

// normalizeName makes dataset names case- and space-insensitive.
func normalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
}

// maxSuggestions returned in the error message of a failed resolution.
const maxSuggestions = 3

// Resolve finds the catalog entry for a dataset name, ignoring case and
// spaces: "cifar 10", "Cifar10" and "CIFAR10" all resolve to the same entry.
//
// On a miss it returns an error listing the canonical names of the catalog
// entries lexically closest to the query.
func Resolve(name string) (*Spec, error) {
	key := normalizeName(name)
	for _, spec := range catalog {
		if normalizeName(spec.Name) == key {
			return spec, nil
		}
	}
	suggestions := closestNames(key, maxSuggestions)
	return nil, errors.Errorf("dataset %q not found, did you mean [%s]?",
		name, strings.Join(suggestions, ", "))
}

// MustResolve is like Resolve, but panics on a miss.
func MustResolve(name string) *Spec {
	spec, err := Resolve(name)
	if err != nil {
		exceptions.Panicf("%+v", err)
	}
	return spec
}

// closestNames ranks the catalog entries by lexical similarity to the
// normalized query and returns the canonical names of the top n. There is no
// similarity floor: even remote names are suggested rather than none.
func closestNames(key string, n int) []string {
	type scored struct {
		name  string
		ratio float64
	}
	ranked := make([]scored, 0, len(catalog))
	for _, spec := range catalog {
		matcher := difflib.NewMatcher(splitChars(key), splitChars(normalizeName(spec.Name)))
		ranked = append(ranked, scored{name: spec.Name, ratio: matcher.Ratio()})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].ratio > ranked[j].ratio })
	if n > len(ranked) {
		n = len(ranked)
	}
	names := make([]string, 0, n)
	for _, s := range ranked[:n] {
		names = append(names, s.name)
	}
	return names
}

func splitChars(s string) []string {
	return strings.Split(s, "")
}
