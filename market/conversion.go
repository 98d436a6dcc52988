package market

import (
	"errors"
	"fmt"
)

var ErrCrossRate = errors.New("cross conversion requires an explicit rate")

// QuoteToAccountRate converts one unit of the pair's quote currency into
// the account currency, using price (the pair's own mid) when the account
// currency is the base.
func QuoteToAccountRate(in Instrument, accountCurrency string, price float64) (float64, error) {
	// EUR_USD, GBP_USD, ... in a USD account
	if in.Quote == accountCurrency {
		return 1.0, nil
	}

	// USD_JPY mid gives JPY per USD; we want USD per JPY
	if in.Base == accountCurrency {
		if !usable(price) {
			return 0, fmt.Errorf("%s: %w", in, ErrNoPrice)
		}
		return 1.0 / price, nil
	}

	// EUR_GBP in a USD account
	return 0, fmt.Errorf("%w: %s -> %s", ErrCrossRate, in.Quote, accountCurrency)
}
