package domain

// WishlistProduct is a product saved to the wishlist.
type WishlistProduct struct {
	ID       string  `json:"id"`
	Title    string  `json:"title,omitempty"`
	Image    string  `json:"image,omitempty"`
	Price    float64 `json:"price,omitempty"`
	Category string  `json:"category,omitempty"`
	Brand    string  `json:"brand,omitempty"`
}

// Wishlist mirrors the upstream wishlist resource.
type Wishlist struct {
	Products []WishlistProduct `json:"products"`
}

// Contains reports whether productID is on the wishlist.
func (w *Wishlist) Contains(productID string) bool {
	if w == nil {
		return false
	}
	for _, p := range w.Products {
		if p.ID == productID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (w *Wishlist) Clone() *Wishlist {
	if w == nil {
		return nil
	}
	return &Wishlist{Products: append([]WishlistProduct(nil), w.Products...)}
}

// FillProductDetails copies details from prev into entries the upstream
// returned as bare ids. Membership and order stay exactly as received.
func (w *Wishlist) FillProductDetails(prev *Wishlist) {
	if w == nil || prev == nil {
		return
	}
	known := make(map[string]WishlistProduct, len(prev.Products))
	for _, p := range prev.Products {
		known[p.ID] = p
	}
	for i, p := range w.Products {
		if p.Title != "" {
			continue
		}
		if old, ok := known[p.ID]; ok {
			w.Products[i] = old
		}
	}
}
