package model

// CartItem is one line of a checkout snapshot as the client saw it.
type CartItem struct {
	BookID    string
	Title     string
	Quantity  int32
	UnitPrice int64
	AuthorID  string
}

type Cart struct {
	Items []CartItem
}

func (c Cart) Sum() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}

// Quantities folds repeated lines of the same book.
func (c Cart) Quantities() map[string]int32 {
	out := make(map[string]int32, len(c.Items))
	for _, item := range c.Items {
		out[item.BookID] += item.Quantity
	}
	return out
}
