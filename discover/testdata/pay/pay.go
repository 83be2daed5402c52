package pay

type Money struct {
	Amount   int64  `stag:"amount"`
	Currency string `stag:"currency"`
}
