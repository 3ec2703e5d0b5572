package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/pagination"
)

// identified is implemented by wire objects that carry an _id.
type identified interface {
	identity() string
}

// ref decodes a field the upstream sends either as a bare id string or as a
// populated object.
type ref[T any] struct {
	ID    string
	Value *T
}

func (r *ref[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = ref[T]{}
		return nil
	}
	if b[0] == '"' {
		var id string
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*r = ref[T]{ID: id}
		return nil
	}

	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	r.Value = &v
	r.ID = ""
	if obj, ok := any(&v).(identified); ok {
		r.ID = obj.identity()
	}
	return nil
}

func (r ref[T]) namedRef() domain.NamedRef {
	out := domain.NamedRef{ID: r.ID}
	if w, ok := any(r.Value).(*wireRef); ok && w != nil {
		out.Name = w.Name
	}
	return out
}

type wireRef struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

func (w *wireRef) identity() string { return w.ID }

// --- Products ---

type wireProduct struct {
	ID                 string       `json:"_id" validate:"required"`
	Title              string       `json:"title"`
	ImageCover         string       `json:"imageCover"`
	Images             []string     `json:"images"`
	Description        string       `json:"description"`
	Price              float64      `json:"price" validate:"gte=0"`
	PriceAfterDiscount float64      `json:"priceAfterDiscount"`
	RatingsAverage     float64      `json:"ratingsAverage"`
	RatingsQuantity    int          `json:"ratingsQuantity"`
	Category           ref[wireRef] `json:"category"`
	Brand              ref[wireRef] `json:"brand"`
}

func (w *wireProduct) identity() string { return w.ID }

func (w *wireProduct) toDomain() domain.Product {
	return domain.Product{
		ID:                 w.ID,
		Title:              w.Title,
		ImageCover:         w.ImageCover,
		Price:              w.Price,
		PriceAfterDiscount: w.PriceAfterDiscount,
		Category:           w.Category.namedRef(),
		Brand:              w.Brand.namedRef(),
		Images:             w.Images,
		RatingsAverage:     w.RatingsAverage,
		RatingsQuantity:    w.RatingsQuantity,
		Description:        w.Description,
	}
}

type productListResponse struct {
	Results  int                  `json:"results"`
	Metadata *pagination.Metadata `json:"metadata"`
	Data     []wireProduct        `json:"data" validate:"required,dive"`
}

type productResponse struct {
	Data *wireProduct `json:"data" validate:"required"`
}

// --- Cart ---

type wireCartItem struct {
	ID      string           `json:"_id"`
	Count   int              `json:"count" validate:"gte=0"`
	Price   float64          `json:"price"`
	Product ref[wireProduct] `json:"product"`
}

type wireCart struct {
	ID             string         `json:"_id" validate:"required"`
	CartOwner      string         `json:"cartOwner"`
	Products       []wireCartItem `json:"products" validate:"dive"`
	TotalCartPrice float64        `json:"totalCartPrice"`
}

type cartResponse struct {
	Status         string    `json:"status"`
	NumOfCartItems int       `json:"numOfCartItems"`
	CartID         string    `json:"cartId"`
	Data           *wireCart `json:"data" validate:"required"`
}

func (r *cartResponse) toDomain() (*domain.Cart, error) {
	cart := &domain.Cart{
		ID:         r.Data.ID,
		OwnerID:    r.Data.CartOwner,
		Items:      make([]domain.CartItem, 0, len(r.Data.Products)),
		TotalPrice: r.Data.TotalCartPrice,
		ItemCount:  r.NumOfCartItems,
	}
	for _, line := range r.Data.Products {
		if line.Product.ID == "" {
			return nil, errMissingID("cart line product")
		}
		item := domain.CartItem{
			ItemID:    line.ID,
			Product:   domain.ProductRef{ID: line.Product.ID},
			Quantity:  line.Count,
			LinePrice: line.Price,
		}
		if p := line.Product.Value; p != nil {
			item.Product.Title = p.Title
			item.Product.Image = p.ImageCover
			item.Product.Price = p.Price
		}
		cart.Items = append(cart.Items, item)
	}
	if cart.ItemCount == 0 {
		cart.ItemCount = len(cart.Items)
	}
	return cart, nil
}

// --- Wishlist ---

type wishlistResponse struct {
	Status string             `json:"status"`
	Data   []ref[wireProduct] `json:"data" validate:"required"`
}

func (r *wishlistResponse) toDomain() (*domain.Wishlist, error) {
	list := &domain.Wishlist{Products: make([]domain.WishlistProduct, 0, len(r.Data))}
	for _, entry := range r.Data {
		if entry.ID == "" {
			return nil, errMissingID("wishlist product")
		}
		p := domain.WishlistProduct{ID: entry.ID}
		if v := entry.Value; v != nil {
			p.Title = v.Title
			p.Image = v.ImageCover
			p.Price = v.Price
			p.Category = v.Category.namedRef().Name
			p.Brand = v.Brand.namedRef().Name
		}
		list.Products = append(list.Products, p)
	}
	return list, nil
}

// --- Reference data ---

type wireCategory struct {
	ID    string `json:"_id" validate:"required"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Image string `json:"image"`
}

type categoryListResponse struct {
	Results  int                  `json:"results"`
	Metadata *pagination.Metadata `json:"metadata"`
	Data     []wireCategory       `json:"data" validate:"required,dive"`
}

type wireSubcategory struct {
	ID       string       `json:"_id" validate:"required"`
	Name     string       `json:"name"`
	Slug     string       `json:"slug"`
	Category ref[wireRef] `json:"category"`
}

type subcategoryListResponse struct {
	Data []wireSubcategory `json:"data" validate:"required,dive"`
}

// --- Addresses ---

type wireAddress struct {
	ID      string `json:"_id" validate:"required"`
	Name    string `json:"name"`
	Details string `json:"details"`
	Phone   string `json:"phone"`
	City    string `json:"city"`
}

func (w wireAddress) toDomain() domain.Address {
	return domain.Address{ID: w.ID, Name: w.Name, Details: w.Details, Phone: w.Phone, City: w.City}
}

// addressData holds either the full address list or the single saved address,
// depending on which shape the upstream answered with.
type addressData struct {
	List []wireAddress `validate:"dive"`
	One  *wireAddress
}

func (d *addressData) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		return json.Unmarshal(b, &d.List)
	}
	var one wireAddress
	if err := json.Unmarshal(b, &one); err != nil {
		return fmt.Errorf("address data: %w", err)
	}
	d.One = &one
	return nil
}

type addressResponse struct {
	Status string       `json:"status"`
	Data   *addressData `json:"data" validate:"required"`
}

type addressListResponse struct {
	Data []wireAddress `json:"data" validate:"required,dive"`
}

// --- Auth ---

type authResponse struct {
	Message string `json:"message"`
	User    struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
	Token string `json:"token" validate:"required"`
}

// --- Orders ---

type wireShippingAddress struct {
	Details string `json:"details"`
	Phone   string `json:"phone"`
	City    string `json:"city"`
}

type wireOrder struct {
	ID                string              `json:"_id" validate:"required"`
	TotalOrderPrice   float64             `json:"totalOrderPrice"`
	PaymentMethodType string              `json:"paymentMethodType"`
	ShippingAddress   wireShippingAddress `json:"shippingAddress"`
	CreatedAt         time.Time           `json:"createdAt"`
}

type orderResponse struct {
	Status string     `json:"status"`
	Data   *wireOrder `json:"data" validate:"required"`
}

type checkoutSessionResponse struct {
	Status  string `json:"status"`
	Session *struct {
		URL string `json:"url" validate:"required,url"`
	} `json:"session" validate:"required"`
}

type orderRequest struct {
	ShippingAddress wireShippingAddress `json:"shippingAddress"`
}

func newOrderRequest(addr domain.Address) orderRequest {
	return orderRequest{ShippingAddress: wireShippingAddress{
		Details: addr.Details,
		Phone:   addr.Phone,
		City:    addr.City,
	}}
}
