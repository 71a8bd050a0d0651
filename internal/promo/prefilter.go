// Package promo provides a bloom-filter prefilter over known promo codes.
// The apply-discount path consults it before calling the commerce API, so
// obviously bogus codes are rejected without a network round trip. Bloom
// false positives simply fall through to the authoritative upstream check.
package promo

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"
)

const (
	defaultCapacity = 1_000_000
	defaultFPR      = 0.001

	minCodeLen = 4
	maxCodeLen = 12
)

// Prefilter answers "might this promo code exist?" A nil Prefilter answers
// yes for everything, so a missing snapshot degrades to upstream-only
// checking instead of rejecting every code.
type Prefilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// MayContain reports whether the code might be a known promo code. Codes
// are matched case-insensitively.
func (p *Prefilter) MayContain(code string) bool {
	if p == nil {
		return true
	}
	code = normalize(code)
	if len(code) < minCodeLen || len(code) > maxCodeLen {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.filter.TestString(code)
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// BuildFromCodeLists scans gzipped newline-delimited code list files
// concurrently and returns a Prefilter covering every well-formed code.
func BuildFromCodeLists(paths []string, capacity uint, fpr float64) (*Prefilter, error) {
	if len(paths) == 0 {
		return nil, errors.New("no code list files")
	}
	if capacity == 0 {
		capacity = defaultCapacity
	}
	if fpr <= 0 {
		fpr = defaultFPR
	}

	filters := make([]*bloom.BloomFilter, len(paths))
	var g errgroup.Group
	for i, path := range paths {
		g.Go(func() error {
			f, err := scanCodeFile(path, capacity, fpr)
			if err != nil {
				return errors.Wrapf(err, "scan %s", path)
			}
			filters[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := filters[0]
	for _, f := range filters[1:] {
		if err := merged.Merge(f); err != nil {
			return nil, errors.Wrap(err, "merge filters")
		}
	}
	return &Prefilter{filter: merged}, nil
}

func scanCodeFile(path string, capacity uint, fpr float64) (*bloom.BloomFilter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "gzip reader")
	}
	defer func() { _ = gz.Close() }()

	filter := bloom.NewWithEstimates(capacity, fpr)
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		code := normalize(scanner.Text())
		if len(code) < minCodeLen || len(code) > maxCodeLen {
			continue
		}
		filter.AddString(code)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan")
	}
	return filter, nil
}

// Load reads a filter snapshot previously written by Save.
func Load(path string) (*Prefilter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open snapshot")
	}
	defer func() { _ = f.Close() }()

	filter := &bloom.BloomFilter{}
	if _, err := filter.ReadFrom(bufio.NewReader(f)); err != nil {
		return nil, errors.Wrap(err, "read snapshot")
	}
	return &Prefilter{filter: filter}, nil
}

// Save writes the filter snapshot to the given path.
func (p *Prefilter) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create snapshot")
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	p.mu.RLock()
	_, err = p.filter.WriteTo(w)
	p.mu.RUnlock()
	if err != nil {
		return errors.Wrap(err, "write snapshot")
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "flush snapshot")
	}
	return nil
}
