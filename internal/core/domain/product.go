package domain

// Product is an immutable snapshot of a remote catalog lookup. Quantity is
// the only field the client mutates before the product becomes a cart line;
// zero means the remote payload omitted it and it defaults to 1.
type Product struct {
	ID       int64  `json:"prd_id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity,omitempty"`
}

// CartItem is one line of the in-progress cart, identified by product code.
type CartItem struct {
	ProductID int64  `json:"prd_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Subtotal is price times quantity for this line.
func (i CartItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}
