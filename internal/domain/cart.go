package domain

// ProductRef is the product summary embedded in cart lines.
type ProductRef struct {
	ID    string  `json:"id"`
	Title string  `json:"title,omitempty"`
	Image string  `json:"image,omitempty"`
	Price float64 `json:"price,omitempty"`
}

// CartItem is one cart line.
type CartItem struct {
	ItemID    string     `json:"itemId"`
	Product   ProductRef `json:"product"`
	Quantity  int        `json:"quantity"`
	LinePrice float64    `json:"linePrice"`
}

// Cart mirrors the upstream cart resource.
type Cart struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"ownerId"`
	Items      []CartItem `json:"items"`
	TotalPrice float64    `json:"totalPrice"`
	ItemCount  int        `json:"itemCount"`
}

// Empty reports whether the cart is missing or has no lines.
func (c *Cart) Empty() bool {
	return c == nil || len(c.Items) == 0
}

// FindItem returns the line holding productID.
func (c *Cart) FindItem(productID string) (CartItem, bool) {
	if c == nil {
		return CartItem{}, false
	}
	for _, item := range c.Items {
		if item.Product.ID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}

// Clone returns a deep copy.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = append([]CartItem(nil), c.Items...)
	return &cp
}

// FillProductDetails copies title, image and price from prev into lines the
// upstream returned with a bare product id. Quantities, prices and totals stay
// exactly as received.
func (c *Cart) FillProductDetails(prev *Cart) {
	if c == nil || prev == nil {
		return
	}
	for i := range c.Items {
		p := &c.Items[i].Product
		if p.Title != "" {
			continue
		}
		if old, ok := prev.FindItem(p.ID); ok {
			id := p.ID
			*p = old.Product
			p.ID = id
		}
	}
}
