package quote

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"yieldpilot/internal/model"
)

// zeroAddress is how both routers spell a chain's gas token.
const zeroAddress = "0x0000000000000000000000000000000000000000"

func tokenParam(asset model.Asset) string {
	if asset.Native {
		return zeroAddress
	}
	return asset.Address.Hex()
}

func parseRaw(field, value string) (*big.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: empty %s", ErrNoRoute, field)
	}
	raw, ok := new(big.Int).SetString(value, 10)
	if !ok || raw.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s %q", field, value)
	}
	return raw, nil
}

func parseRawOptional(value string) *big.Int {
	raw, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok || raw.Sign() < 0 {
		return nil
	}
	return raw
}

func parseHexRaw(value string) *big.Int {
	value = strings.TrimSpace(value)
	if value == "" {
		return new(big.Int)
	}
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		raw, ok := new(big.Int).SetString(value[2:], 16)
		if ok {
			return raw
		}
		return new(big.Int)
	}
	if raw, ok := new(big.Int).SetString(value, 10); ok {
		return raw
	}
	return new(big.Int)
}

func parseUSD(value string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// priceImpact is the percentage of USD value lost between input and output.
func priceImpact(fromUSD, toUSD decimal.Decimal) decimal.Decimal {
	if !fromUSD.IsPositive() || !toUSD.IsPositive() {
		return decimal.Zero
	}
	return fromUSD.Sub(toUSD).Div(fromUSD).Mul(decimal.NewFromInt(100)).Round(4)
}

// applySlippage returns raw reduced by bps basis points, rounded down.
func applySlippage(raw *big.Int, bps int) *big.Int {
	if raw == nil {
		return nil
	}
	if bps <= 0 {
		return new(big.Int).Set(raw)
	}
	if bps > 10_000 {
		bps = 10_000
	}
	out := new(big.Int).Mul(raw, big.NewInt(int64(10_000-bps)))
	return out.Quo(out, big.NewInt(10_000))
}

func usdValue(raw *big.Int, decimals uint8, priceUSD string) decimal.Decimal {
	price := parseUSD(priceUSD)
	if raw == nil || price.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)).Mul(price).Round(6)
}

func addressOrZero(value string) common.Address {
	if !common.IsHexAddress(value) {
		return common.Address{}
	}
	return common.HexToAddress(value)
}

func decodeHex(value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "0x" {
		return nil, nil
	}
	return hexutil.Decode(value)
}
