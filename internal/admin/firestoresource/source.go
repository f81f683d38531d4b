package firestoresource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/kflex/dashboard/internal/admin/orders"
	"github.com/kflex/dashboard/internal/admin/products"
	"github.com/kflex/dashboard/internal/admin/reviews"
	pfirestore "github.com/kflex/dashboard/internal/platform/firestore"
	"github.com/kflex/dashboard/internal/platform/storage"
)

const (
	ordersCollection   = "orders"
	productsCollection = "products"
	reviewsCollection  = "reviews"
)

// ImageStore uploads product images.
type ImageStore interface {
	Upload(ctx context.Context, object, contentType string, write func(io.Writer) error) (storage.ObjectRef, error)
}

// Source reads and mutates dashboard records stored directly in Firestore.
type Source struct {
	provider *pfirestore.Provider
	images   ImageStore
}

// New constructs a Firestore-backed source. images may be nil, in which case product
// images are rejected.
func New(provider *pfirestore.Provider, images ImageStore) (*Source, error) {
	if provider == nil {
		return nil, errors.New("firestore source requires firestore provider")
	}
	return &Source{provider: provider, images: images}, nil
}

// FetchOrders returns every order document.
func (s *Source) FetchOrders(ctx context.Context) ([]orders.Order, error) {
	var out []orders.Order
	err := s.each(ctx, ordersCollection, "orders.list", func(id string, data map[string]any) {
		out = append(out, orderFromData(id, data))
	})
	return out, err
}

// UpdateOrderStatus sets the status field of an existing order.
func (s *Source) UpdateOrderStatus(ctx context.Context, id string, status orders.Status) error {
	doc, err := s.doc(ctx, ordersCollection, id)
	if err != nil {
		return err
	}
	_, err = doc.Update(ctx, []firestore.Update{{Path: "status", Value: string(status)}})
	return mapNotFound(pfirestore.WrapError("orders.updateStatus", err), orders.ErrOrderNotFound)
}

// DeleteOrder removes an existing order.
func (s *Source) DeleteOrder(ctx context.Context, id string) error {
	doc, err := s.doc(ctx, ordersCollection, id)
	if err != nil {
		return err
	}
	_, err = doc.Delete(ctx, firestore.Exists)
	return mapNotFound(pfirestore.WrapError("orders.delete", err), orders.ErrOrderNotFound)
}

// FetchProducts returns every product document.
func (s *Source) FetchProducts(ctx context.Context) ([]products.Product, error) {
	var out []products.Product
	err := s.each(ctx, productsCollection, "products.list", func(id string, data map[string]any) {
		out = append(out, productFromData(id, data))
	})
	return out, err
}

// CreateProduct stores a new product document with a generated id.
func (s *Source) CreateProduct(ctx context.Context, input products.Input) (products.Product, error) {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return products.Product{}, err
	}
	doc := client.Collection(productsCollection).NewDoc()
	imageRef, err := s.uploadImage(ctx, doc.ID, input.Image)
	if err != nil {
		return products.Product{}, err
	}
	data := productData(input, imageRef)
	data["sold"] = int64(0)
	if _, ok := data["stock"]; !ok {
		data["stock"] = int64(0)
	}
	if _, err := doc.Create(ctx, data); err != nil {
		return products.Product{}, pfirestore.WrapError("products.create", err)
	}
	return productFromData(doc.ID, data), nil
}

// UpdateProduct updates the editable fields of an existing product.
func (s *Source) UpdateProduct(ctx context.Context, id string, input products.Input) (products.Product, error) {
	doc, err := s.doc(ctx, productsCollection, id)
	if err != nil {
		return products.Product{}, err
	}
	imageRef, err := s.uploadImage(ctx, doc.ID, input.Image)
	if err != nil {
		return products.Product{}, err
	}
	data := productData(input, imageRef)
	updates := make([]firestore.Update, 0, len(data))
	for _, key := range []string{"name", "description", "price", "stock", "image"} {
		if value, ok := data[key]; ok {
			updates = append(updates, firestore.Update{Path: key, Value: value})
		}
	}
	if _, err := doc.Update(ctx, updates); err != nil {
		return products.Product{}, mapNotFound(pfirestore.WrapError("products.update", err), products.ErrProductNotFound)
	}
	snap, err := doc.Get(ctx)
	if err != nil {
		return products.Product{}, mapNotFound(pfirestore.WrapError("products.get", err), products.ErrProductNotFound)
	}
	return productFromData(snap.Ref.ID, snap.Data()), nil
}

// DeleteProduct removes an existing product.
func (s *Source) DeleteProduct(ctx context.Context, id string) error {
	doc, err := s.doc(ctx, productsCollection, id)
	if err != nil {
		return err
	}
	_, err = doc.Delete(ctx, firestore.Exists)
	return mapNotFound(pfirestore.WrapError("products.delete", err), products.ErrProductNotFound)
}

// FetchReviews returns every review document.
func (s *Source) FetchReviews(ctx context.Context) ([]reviews.Review, error) {
	var out []reviews.Review
	err := s.each(ctx, reviewsCollection, "reviews.list", func(id string, data map[string]any) {
		out = append(out, reviewFromData(id, data))
	})
	return out, err
}

// DeleteReview removes an existing review.
func (s *Source) DeleteReview(ctx context.Context, id string) error {
	doc, err := s.doc(ctx, reviewsCollection, id)
	if err != nil {
		return err
	}
	_, err = doc.Delete(ctx, firestore.Exists)
	return mapNotFound(pfirestore.WrapError("reviews.delete", err), reviews.ErrReviewNotFound)
}

func (s *Source) each(ctx context.Context, collection, op string, fn func(id string, data map[string]any)) error {
	client, err := s.provider.Client(ctx)
	if err != nil {
		return err
	}
	// Ordering by a field would silently skip documents that lack it.
	iter := client.Collection(collection).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return pfirestore.WrapError(op, err)
		}
		fn(snap.Ref.ID, snap.Data())
	}
}

func (s *Source) doc(ctx context.Context, collection, id string) (*firestore.DocumentRef, error) {
	id = strings.TrimSpace(id)
	if id == "" || strings.Contains(id, "/") {
		return nil, fmt.Errorf("firestore source: invalid %s id %q", collection, id)
	}
	client, err := s.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(collection).Doc(id), nil
}

func (s *Source) uploadImage(ctx context.Context, productID string, image *products.Image) (string, error) {
	if image == nil {
		return "", nil
	}
	if s.images == nil {
		return "", errors.New("firestore source: image storage not configured")
	}
	name := path.Base(strings.TrimSpace(image.Filename))
	if name == "." || name == "/" || name == "" {
		name = "image"
	}
	ref, err := s.images.Upload(ctx, path.Join("products", productID, name), image.ContentType, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(image.Data))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("firestore source: upload image: %w", err)
	}
	return ref.URI, nil
}

func mapNotFound(err, sentinel error) error {
	if err == nil {
		return nil
	}
	if pfirestore.IsNotFound(err) {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}
