package storefront

import (
	"context"
	"log/slog"

	"github.com/utafrali/storefront/internal/cart"
	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/checkout"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/wishlist"
)

// --- Cart ---

// FetchCart reloads the cart mirror.
func (s *Storefront) FetchCart(ctx context.Context) (cart.Snapshot, error) {
	_, err := s.Cart.Fetch(ctx)
	return s.Cart.Snapshot(), s.settle(ctx, err)
}

// AddToCart adds one unit of productID.
func (s *Storefront) AddToCart(ctx context.Context, productID string) (*domain.Cart, error) {
	c, err := s.Cart.Add(ctx, productID)
	return c, s.settle(ctx, err)
}

// RemoveFromCart deletes the line holding productID.
func (s *Storefront) RemoveFromCart(ctx context.Context, productID string) (*domain.Cart, error) {
	c, err := s.Cart.Remove(ctx, productID)
	return c, s.settle(ctx, err)
}

// SetCartQuantity sets the quantity of productID.
func (s *Storefront) SetCartQuantity(ctx context.Context, productID string, count int) (*domain.Cart, error) {
	c, err := s.Cart.SetQuantity(ctx, productID, count)
	return c, s.settle(ctx, err)
}

// --- Wishlist ---

// FetchWishlist reloads the wishlist mirror.
func (s *Storefront) FetchWishlist(ctx context.Context) (wishlist.Snapshot, error) {
	_, err := s.Wishlist.Fetch(ctx)
	return s.Wishlist.Snapshot(), s.settle(ctx, err)
}

// AddToWishlist saves productID.
func (s *Storefront) AddToWishlist(ctx context.Context, productID string) (*domain.Wishlist, error) {
	l, err := s.Wishlist.Add(ctx, productID)
	return l, s.settle(ctx, err)
}

// RemoveFromWishlist drops productID.
func (s *Storefront) RemoveFromWishlist(ctx context.Context, productID string) (*domain.Wishlist, error) {
	l, err := s.Wishlist.Remove(ctx, productID)
	return l, s.settle(ctx, err)
}

// ToggleWishlist adds productID when absent and removes it when present.
func (s *Storefront) ToggleWishlist(ctx context.Context, productID string) (*domain.Wishlist, error) {
	l, err := s.Wishlist.Toggle(ctx, productID)
	return l, s.settle(ctx, err)
}

// --- Listing ---

// ApplyFilters restarts the product listing with f.
func (s *Storefront) ApplyFilters(ctx context.Context, f catalog.Filters) (catalog.View, error) {
	return s.Listing.Apply(ctx, f)
}

// NextPage appends the following listing page.
func (s *Storefront) NextPage(ctx context.Context) (catalog.View, error) {
	return s.Listing.Next(ctx)
}

// --- Checkout ---

// LoadCheckout loads the saved addresses.
func (s *Storefront) LoadCheckout(ctx context.Context) (checkout.State, error) {
	st, err := s.Checkout.Load(ctx)
	return st, s.settle(ctx, err)
}

// SaveAddress creates or updates an address and selects it.
func (s *Storefront) SaveAddress(ctx context.Context, addr domain.Address) (checkout.State, error) {
	st, err := s.Checkout.SaveAddress(ctx, addr)
	return st, s.settle(ctx, err)
}

// DeleteAddress removes an address.
func (s *Storefront) DeleteAddress(ctx context.Context, id string) (checkout.State, error) {
	st, err := s.Checkout.DeleteAddress(ctx, id)
	return st, s.settle(ctx, err)
}

// checkoutCart returns the cart to submit, fetching it when the mirror is
// empty.
func (s *Storefront) checkoutCart(ctx context.Context) (*domain.Cart, error) {
	if c := s.Cart.Cart(); !c.Empty() {
		return c, nil
	}
	return s.Cart.Fetch(ctx)
}

// PlaceCashOrder submits a cash order for the current cart. The upstream
// empties the cart on success, so the mirror is reloaded.
func (s *Storefront) PlaceCashOrder(ctx context.Context) (*domain.Confirmation, error) {
	c, err := s.checkoutCart(ctx)
	if err != nil {
		return nil, s.settle(ctx, err)
	}
	conf, err := s.Checkout.PlaceCashOrder(ctx, c)
	if err != nil {
		return nil, s.settle(ctx, err)
	}
	if _, err := s.Cart.Fetch(ctx); err != nil {
		s.logger.WarnContext(ctx, "cart reload after order failed", slog.String("error", err.Error()))
	}
	return conf, nil
}

// StartOnlinePayment opens a hosted payment session for the current cart.
// The provider sends the browser back to the configured return URL.
func (s *Storefront) StartOnlinePayment(ctx context.Context) (*domain.CheckoutRedirect, error) {
	c, err := s.checkoutCart(ctx)
	if err != nil {
		return nil, s.settle(ctx, err)
	}
	redirect, err := s.Checkout.StartOnlinePayment(ctx, c, s.returnURL)
	return redirect, s.settle(ctx, err)
}
