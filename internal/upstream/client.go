package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/validator"
)

const maxResponseBytes = 4 << 20

// DefaultTokenHeader is the header the upstream reads the session token from.
const DefaultTokenHeader = "token"

// Config locates the upstream API.
type Config struct {
	BaseURL     string
	TokenHeader string
}

// Client is a typed client for the upstream e-commerce REST API. Every
// response is decoded into a wire schema and validated before it is turned
// into domain types.
type Client struct {
	doer        httpclient.Doer
	baseURL     string
	tokenHeader string
	logger      *slog.Logger
}

// New creates a Client sending requests through doer.
func New(doer httpclient.Doer, cfg Config, logger *slog.Logger) *Client {
	header := cfg.TokenHeader
	if header == "" {
		header = DefaultTokenHeader
	}
	return &Client{
		doer:        doer,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		tokenHeader: header,
		logger:      logger,
	}
}

func errMissingID(what string) error {
	return fmt.Errorf("%s has no id", what)
}

// call performs one request. A non-nil out is decoded from the response body
// and validated.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, token string, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(c.tokenHeader, token)
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		c.logger.WarnContext(ctx, "upstream call failed",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return httpclient.TransportError(err, op)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, op)
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return apperrors.Upstream(op+": malformed response", err)
	}
	if err := validator.Validate(out); err != nil {
		c.logger.ErrorContext(ctx, "upstream contract violation",
			slog.String("op", op),
			slog.String("error", err.Error()),
		)
		return apperrors.Upstream(op+": unexpected response shape", err)
	}
	return nil
}

func contractError(op string, err error) error {
	return apperrors.Upstream(op+": unexpected response shape", err)
}

// --- Auth ---

// AuthResult is the outcome of a successful sign-in or sign-up.
type AuthResult struct {
	Token string
	Name  string
	Email string
}

// SignUpRequest is the registration payload.
type SignUpRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	RePassword string `json:"rePassword"`
	Phone      string `json:"phone"`
}

// SignIn exchanges credentials for a session token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	var out authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, "sign in", http.MethodPost, "/auth/signin", nil, "", body, &out); err != nil {
		return nil, err
	}
	return &AuthResult{Token: out.Token, Name: out.User.Name, Email: out.User.Email}, nil
}

// SignUp registers a new account and returns its session token.
func (c *Client) SignUp(ctx context.Context, in SignUpRequest) (*AuthResult, error) {
	var out authResponse
	if err := c.call(ctx, "sign up", http.MethodPost, "/auth/signup", nil, "", in, &out); err != nil {
		return nil, err
	}
	return &AuthResult{Token: out.Token, Name: out.User.Name, Email: out.User.Email}, nil
}

// ResetPassword sets a new password and returns the fresh session token.
func (c *Client) ResetPassword(ctx context.Context, email, newPassword string) (string, error) {
	var out struct {
		Token string `json:"token" validate:"required"`
	}
	body := map[string]string{"email": email, "newPassword": newPassword}
	if err := c.call(ctx, "reset password", http.MethodPut, "/auth/resetPassword", nil, "", body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// --- Cart ---

func (c *Client) cartCall(ctx context.Context, op, method, path, token string, body any) (*domain.Cart, error) {
	var out cartResponse
	if err := c.call(ctx, op, method, path, nil, token, body, &out); err != nil {
		return nil, err
	}
	cart, err := out.toDomain()
	if err != nil {
		return nil, contractError(op, err)
	}
	return cart, nil
}

// GetCart returns the signed-in user's cart.
func (c *Client) GetCart(ctx context.Context, token string) (*domain.Cart, error) {
	return c.cartCall(ctx, "get cart", http.MethodGet, "/cart", token, nil)
}

// AddToCart adds one unit of productID and returns the new cart.
func (c *Client) AddToCart(ctx context.Context, token, productID string) (*domain.Cart, error) {
	return c.cartCall(ctx, "add to cart", http.MethodPost, "/cart", token, map[string]string{"productId": productID})
}

// UpdateCartItem sets the quantity of productID and returns the new cart.
func (c *Client) UpdateCartItem(ctx context.Context, token, productID string, count int) (*domain.Cart, error) {
	body := map[string]int{"count": count}
	return c.cartCall(ctx, "update cart item", http.MethodPut, "/cart/"+url.PathEscape(productID), token, body)
}

// RemoveCartItem removes productID and returns the new cart.
func (c *Client) RemoveCartItem(ctx context.Context, token, productID string) (*domain.Cart, error) {
	return c.cartCall(ctx, "remove cart item", http.MethodDelete, "/cart/"+url.PathEscape(productID), token, nil)
}

// --- Wishlist ---

func (c *Client) wishlistCall(ctx context.Context, op, method, path, token string, body any) (*domain.Wishlist, error) {
	var out wishlistResponse
	if err := c.call(ctx, op, method, path, nil, token, body, &out); err != nil {
		return nil, err
	}
	list, err := out.toDomain()
	if err != nil {
		return nil, contractError(op, err)
	}
	return list, nil
}

// GetWishlist returns the wishlist with populated products.
func (c *Client) GetWishlist(ctx context.Context, token string) (*domain.Wishlist, error) {
	return c.wishlistCall(ctx, "get wishlist", http.MethodGet, "/wishlist", token, nil)
}

// AddToWishlist adds productID. The upstream answers with product ids only.
func (c *Client) AddToWishlist(ctx context.Context, token, productID string) (*domain.Wishlist, error) {
	return c.wishlistCall(ctx, "add to wishlist", http.MethodPost, "/wishlist", token, map[string]string{"productId": productID})
}

// RemoveFromWishlist removes productID. The upstream answers with product ids only.
func (c *Client) RemoveFromWishlist(ctx context.Context, token, productID string) (*domain.Wishlist, error) {
	return c.wishlistCall(ctx, "remove from wishlist", http.MethodDelete, "/wishlist/"+url.PathEscape(productID), token, nil)
}

// --- Catalog ---

// ListProducts returns one page of products matching query.
func (c *Client) ListProducts(ctx context.Context, query url.Values) (*domain.ProductPage, error) {
	var out productListResponse
	if err := c.call(ctx, "list products", http.MethodGet, "/products", query, "", nil, &out); err != nil {
		return nil, err
	}
	page := &domain.ProductPage{
		Products: make([]domain.Product, 0, len(out.Data)),
		Metadata: out.Metadata,
	}
	for i := range out.Data {
		page.Products = append(page.Products, out.Data[i].toDomain())
	}
	return page, nil
}

// GetProduct returns one product.
func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var out productResponse
	if err := c.call(ctx, "get product", http.MethodGet, "/products/"+url.PathEscape(id), nil, "", nil, &out); err != nil {
		return nil, err
	}
	p := out.Data.toDomain()
	return &p, nil
}

// ListCategories returns every category.
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out categoryListResponse
	if err := c.call(ctx, "list categories", http.MethodGet, "/categories", nil, "", nil, &out); err != nil {
		return nil, err
	}
	categories := make([]domain.Category, 0, len(out.Data))
	for _, w := range out.Data {
		categories = append(categories, domain.Category{ID: w.ID, Name: w.Name, Slug: w.Slug, Image: w.Image})
	}
	return categories, nil
}

// ListBrands returns every brand.
func (c *Client) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	var out categoryListResponse
	if err := c.call(ctx, "list brands", http.MethodGet, "/brands", nil, "", nil, &out); err != nil {
		return nil, err
	}
	brands := make([]domain.Brand, 0, len(out.Data))
	for _, w := range out.Data {
		brands = append(brands, domain.Brand{ID: w.ID, Name: w.Name, Slug: w.Slug, Image: w.Image})
	}
	return brands, nil
}

// ListSubcategories returns every subcategory across all categories.
func (c *Client) ListSubcategories(ctx context.Context) ([]domain.Subcategory, error) {
	var out subcategoryListResponse
	if err := c.call(ctx, "list subcategories", http.MethodGet, "/subcategories", nil, "", nil, &out); err != nil {
		return nil, err
	}
	subs := make([]domain.Subcategory, 0, len(out.Data))
	for _, w := range out.Data {
		subs = append(subs, domain.Subcategory{ID: w.ID, Name: w.Name, Slug: w.Slug, CategoryID: w.Category.ID})
	}
	return subs, nil
}

// Ping issues the cheapest catalog read for readiness checks.
func (c *Client) Ping(ctx context.Context) error {
	var out categoryListResponse
	return c.call(ctx, "ping", http.MethodGet, "/brands", url.Values{"limit": {"1"}}, "", nil, &out)
}

// --- Addresses ---

// AddressResult is the outcome of an address mutation. When the upstream
// answers with the full list, List is set and Saved is the entry matching the
// submitted address.
type AddressResult struct {
	Saved domain.Address
	List  []domain.Address
}

func toAddresses(in []wireAddress) []domain.Address {
	out := make([]domain.Address, 0, len(in))
	for _, w := range in {
		out = append(out, w.toDomain())
	}
	return out
}

func (c *Client) addressMutation(ctx context.Context, op, method, path, token string, addr domain.Address) (*AddressResult, error) {
	body := map[string]string{"name": addr.Name, "details": addr.Details, "phone": addr.Phone, "city": addr.City}
	var out addressResponse
	if err := c.call(ctx, op, method, path, nil, token, body, &out); err != nil {
		return nil, err
	}

	if out.Data.One != nil {
		return &AddressResult{Saved: out.Data.One.toDomain()}, nil
	}

	list := toAddresses(out.Data.List)
	res := &AddressResult{List: list}
	found := false
	for i := len(list) - 1; i >= 0; i-- {
		a := list[i]
		if (addr.ID != "" && a.ID == addr.ID) ||
			(addr.ID == "" && a.Name == addr.Name && a.Details == addr.Details && a.Phone == addr.Phone && a.City == addr.City) {
			res.Saved = a
			found = true
			break
		}
	}
	if !found {
		if len(list) == 0 {
			return nil, contractError(op, errors.New("address list empty after save"))
		}
		res.Saved = list[len(list)-1]
	}
	return res, nil
}

// ListAddresses returns the user's saved addresses.
func (c *Client) ListAddresses(ctx context.Context, token string) ([]domain.Address, error) {
	var out addressListResponse
	if err := c.call(ctx, "list addresses", http.MethodGet, "/addresses", nil, token, nil, &out); err != nil {
		return nil, err
	}
	return toAddresses(out.Data), nil
}

// AddAddress creates an address.
func (c *Client) AddAddress(ctx context.Context, token string, addr domain.Address) (*AddressResult, error) {
	return c.addressMutation(ctx, "add address", http.MethodPost, "/addresses", token, addr)
}

// UpdateAddress replaces the address with addr.ID.
func (c *Client) UpdateAddress(ctx context.Context, token string, addr domain.Address) (*AddressResult, error) {
	return c.addressMutation(ctx, "update address", http.MethodPut, "/addresses/"+url.PathEscape(addr.ID), token, addr)
}

// RemoveAddress deletes an address and returns the remaining list.
func (c *Client) RemoveAddress(ctx context.Context, token, id string) ([]domain.Address, error) {
	var out addressListResponse
	if err := c.call(ctx, "remove address", http.MethodDelete, "/addresses/"+url.PathEscape(id), nil, token, nil, &out); err != nil {
		return nil, err
	}
	return toAddresses(out.Data), nil
}

// --- Orders ---

// CreateCashOrder places a cash-on-delivery order for cartID.
func (c *Client) CreateCashOrder(ctx context.Context, token, cartID string, addr domain.Address) (*domain.Order, error) {
	var out orderResponse
	path := "/orders/" + url.PathEscape(cartID)
	if err := c.call(ctx, "create cash order", http.MethodPost, path, nil, token, newOrderRequest(addr), &out); err != nil {
		return nil, err
	}
	return &domain.Order{
		ID:            out.Data.ID,
		CartID:        cartID,
		PaymentMethod: domain.PaymentCash,
		TotalPrice:    out.Data.TotalOrderPrice,
		ShippingAddress: domain.Address{
			ID:      addr.ID,
			Name:    addr.Name,
			Details: out.Data.ShippingAddress.Details,
			Phone:   out.Data.ShippingAddress.Phone,
			City:    out.Data.ShippingAddress.City,
		},
		CreatedAt: out.Data.CreatedAt,
	}, nil
}

// CreateCheckoutSession opens a hosted payment session for cartID. The
// provider redirects the browser to returnURL once payment completes.
func (c *Client) CreateCheckoutSession(ctx context.Context, token, cartID string, addr domain.Address, returnURL string) (*domain.CheckoutRedirect, error) {
	var out checkoutSessionResponse
	path := "/orders/checkout-session/" + url.PathEscape(cartID)
	query := url.Values{"url": {returnURL}}
	if err := c.call(ctx, "create checkout session", http.MethodPost, path, query, token, newOrderRequest(addr), &out); err != nil {
		return nil, err
	}
	return &domain.CheckoutRedirect{URL: out.Session.URL}, nil
}
