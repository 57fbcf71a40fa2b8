// Package importer loads offers in bulk from gzip-compressed JSON-lines
// files.
//
// Files are decoded concurrently. Applicable item IDs are pre-filtered
// against a bloom filter of the catalog, the survivors are confirmed with a
// single catalog lookup, and accepted offers are created in file order.
package importer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/inventory-offers/internal/domain/item"
	"github.com/xenking/inventory-offers/internal/domain/offer"
	"github.com/xenking/inventory-offers/internal/wire"
)

const (
	bloomFPR      = 0.001
	maxLineBytes  = 1 << 20
	progressEvery = 10_000
)

// Catalog is the item lookup used to check applicable items.
type Catalog interface {
	List(ctx context.Context) ([]item.Item, error)
	GetByIDs(ctx context.Context, ids []string) ([]item.Item, error)
}

// Offers creates offers. *offer.Service satisfies it.
type Offers interface {
	Get(ctx context.Context, id string) (*offer.Offer, error)
	Create(ctx context.Context, o *offer.Offer) error
}

// Problem is a rejected input line.
type Problem struct {
	File string
	Line int
	Err  error
}

func (p Problem) String() string {
	return fmt.Sprintf("%s:%d: %v", p.File, p.Line, p.Err)
}

// Result summarizes an import.
type Result struct {
	Read     int
	Created  int
	Problems []Problem
}

type record struct {
	file  string
	line  int
	offer *offer.Offer
	err   error
}

// Importer imports offer files.
type Importer struct {
	catalog Catalog
	offers  Offers
	lg      *slog.Logger
}

// New creates an Importer. A nil logger uses slog.Default.
func New(catalog Catalog, offers Offers, lg *slog.Logger) *Importer {
	if lg == nil {
		lg = slog.Default()
	}
	return &Importer{catalog: catalog, offers: offers, lg: lg}
}

// Import reads every file and creates the offers that pass validation.
// Rejected lines are reported in Result.Problems; storage failures abort
// the import.
func (im *Importer) Import(ctx context.Context, files []string) (*Result, error) {
	perFile := make([][]record, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			recs, err := im.readFile(gCtx, f)
			if err != nil {
				return err
			}
			perFile[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var recs []record
	for _, r := range perFile {
		recs = append(recs, r...)
	}
	res := &Result{Read: len(recs)}

	if err := im.checkItems(ctx, recs); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, r := range recs {
		if r.err == nil {
			r.err = im.create(ctx, r.offer, seen)
		}
		if r.err == nil {
			res.Created++
			if res.Created%progressEvery == 0 {
				im.lg.Info("import progress", slog.Int("created", res.Created))
			}
			continue
		}
		if !rejected(r.err) {
			return nil, errors.Wrapf(r.err, "%s:%d", r.file, r.line)
		}
		res.Problems = append(res.Problems, Problem{File: r.file, Line: r.line, Err: r.err})
	}
	return res, nil
}

var (
	errDuplicate = errors.New("duplicate offer id")
	errExists    = errors.New("offer already exists")
)

func rejected(err error) bool {
	var uErr *offer.UnknownItemsError
	var bad *decodeError
	return errors.As(err, &uErr) ||
		errors.As(err, &bad) ||
		errors.Is(err, offer.ErrInvalid) ||
		errors.Is(err, errDuplicate) ||
		errors.Is(err, errExists)
}

func (im *Importer) create(ctx context.Context, o *offer.Offer, seen map[string]struct{}) error {
	if o.ID != "" {
		if _, ok := seen[o.ID]; ok {
			return errDuplicate
		}
		seen[o.ID] = struct{}{}

		_, err := im.offers.Get(ctx, o.ID)
		switch {
		case err == nil:
			return errExists
		case !errors.Is(err, offer.ErrNotFound):
			return errors.Wrap(err, "get offer")
		}
	}
	return im.offers.Create(ctx, o)
}

// checkItems rejects records referencing items that are not in the catalog.
// Every catalog ID goes into a bloom filter; IDs the filter has never seen
// are definitely unknown, and the rest are confirmed in one batch.
func (im *Importer) checkItems(ctx context.Context, recs []record) error {
	items, err := im.catalog.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list catalog")
	}
	filter := bloom.NewWithEstimates(uint(max(len(items), 1)), bloomFPR)
	for _, it := range items {
		filter.AddString(it.ID)
	}

	maybe := make(map[string]struct{})
	for i := range recs {
		r := &recs[i]
		if r.err != nil {
			continue
		}
		var missing []string
		for _, id := range r.offer.Items {
			if !filter.TestString(id) {
				missing = append(missing, id)
				continue
			}
			maybe[id] = struct{}{}
		}
		if len(missing) > 0 {
			r.err = &offer.UnknownItemsError{IDs: missing}
		}
	}
	if len(maybe) == 0 {
		return nil
	}

	ids := make([]string, 0, len(maybe))
	for id := range maybe {
		ids = append(ids, id)
	}
	found, err := im.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "confirm catalog items")
	}
	known := make(map[string]struct{}, len(found))
	for _, it := range found {
		known[it.ID] = struct{}{}
	}
	if len(known) < len(maybe) {
		im.lg.Info("bloom filter false positives", slog.Int("count", len(maybe)-len(known)))
	}

	for i := range recs {
		r := &recs[i]
		if r.err != nil {
			continue
		}
		var missing []string
		for _, id := range r.offer.Items {
			if _, ok := known[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			r.err = &offer.UnknownItemsError{IDs: missing}
		}
	}
	return nil
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "decode offer: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// readFile decodes one gzip-compressed JSON-lines file. Blank lines are
// skipped.
func (im *Importer) readFile(ctx context.Context, path string) ([]record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	var recs []record
	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		r := record{file: path, line: line}
		r.offer, r.err = wire.DecodeOffer(data)
		if r.err != nil {
			r.err = &decodeError{err: r.err}
		}
		recs = append(recs, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "scan %s", path)
	}

	im.lg.Info("file read", slog.String("path", path), slog.Int("offers", len(recs)))
	return recs, nil
}
