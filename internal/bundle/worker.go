package bundle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wichananm65/embroidery-shop-backend/internal/events"
	"go.uber.org/zap"
)

// ErrIncomplete is returned when some design files could not be fetched.
// Partial bundles are only served on demand, never stored.
var ErrIncomplete = errors.New("bundle is missing files")

type ObjectStore interface {
	Put(ctx context.Context, objectPath string, r io.Reader) error
	Exists(objectPath string) bool
}

type BundlePathSetter interface {
	SetBundlePath(ctx context.Context, id int, path string) error
}

// Worker precomputes bundles for freshly purchased designs so later
// downloads take the signed-link path.
type Worker struct {
	service *Service
	store   ObjectStore
	paths   BundlePathSetter
	log     *zap.Logger
}

func NewWorker(service *Service, store ObjectStore, paths BundlePathSetter, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{service: service, store: store, paths: paths, log: log}
}

// HandleOrderPaid builds every missing bundle of the order. It returns an
// error if any product failed so the event is retried.
func (w *Worker) HandleOrderPaid(ctx context.Context, e events.OrderPaid) error {
	var errs []error
	for _, id := range e.ProductIDs {
		if err := w.Precompute(ctx, id); err != nil {
			w.log.Error("bundle precompute failed", zap.String("order_ref", e.OrderRef), zap.Int("product_id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("product %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Precompute stores the product's bundle unless a stored one is already
// recorded.
func (w *Worker) Precompute(ctx context.Context, productID int) error {
	doc, current, err := w.service.products.DocumentData(ctx, productID)
	if err != nil {
		return err
	}
	if current != nil && *current != "" && w.store.Exists(*current) {
		return nil
	}

	archive, err := w.service.Build(ctx, productID)
	if err != nil {
		return err
	}
	if len(archive.Skipped) > 0 {
		return fmt.Errorf("%w: %v", ErrIncomplete, archive.Skipped)
	}
	objectPath := fmt.Sprintf("bundles/%d/%s", productID, archive.Filename)
	if err := w.store.Put(ctx, objectPath, bytes.NewReader(archive.Data)); err != nil {
		return fmt.Errorf("store bundle: %w", err)
	}
	if err := w.paths.SetBundlePath(ctx, productID, objectPath); err != nil {
		return fmt.Errorf("record bundle path: %w", err)
	}
	w.log.Info("bundle precomputed", zap.Int("product_id", productID), zap.String("title", doc.Title),
		zap.String("path", objectPath), zap.Int("bytes", len(archive.Data)))
	return nil
}
