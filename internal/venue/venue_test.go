package venue

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"yieldpilot/internal/amount"
	"yieldpilot/internal/model"
)

var (
	testUSDC  = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	testUser  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testOwner = common.HexToAddress("0x2222222222222222222222222222222222222222")
	maxWord   = strings.Repeat("f", 64)
)

func TestFixedPoolSupplyCalldata(t *testing.T) {
	pool := NewFixedPool(AaveV3, DefaultTables())

	call, err := pool.EncodeSupply(supplyReq(model.Ethereum, "100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "617ba037" +
		"000000000000000000000000a0b86991c6218b36c1d19d4a2e9eb0ce3606eb48" +
		"0000000000000000000000000000000000000000000000000000000005f5e100" +
		"0000000000000000000000001111111111111111111111111111111111111111" +
		"0000000000000000000000000000000000000000000000000000000000000000"
	if got := hex.EncodeToString(call.Data); got != want {
		t.Fatalf("calldata mismatch:\n got %s\nwant %s", got, want)
	}
	if len(call.Data) != 4+4*32 {
		t.Fatalf("calldata length %d", len(call.Data))
	}
	firstWord := hex.EncodeToString(call.Data[4:36])
	if !strings.Contains(firstWord, strings.ToLower(testUSDC.Hex()[2:])) {
		t.Fatalf("asset not in first word: %s", firstWord)
	}
	if call.To != common.HexToAddress("0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2") {
		t.Fatalf("unexpected pool %s", call.To.Hex())
	}
	if call.AmountRaw.String() != "100000000" {
		t.Fatalf("amount raw = %s", call.AmountRaw)
	}
}

func TestFixedPoolWithdrawCalldata(t *testing.T) {
	pool := NewFixedPool(AaveV3, DefaultTables())

	call, err := pool.EncodeWithdraw(withdrawReq(model.Ethereum, "25"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "69328dec" +
		"000000000000000000000000a0b86991c6218b36c1d19d4a2e9eb0ce3606eb48" +
		"00000000000000000000000000000000000000000000000000000000017d7840" +
		"0000000000000000000000001111111111111111111111111111111111111111"
	if got := hex.EncodeToString(call.Data); got != want {
		t.Fatalf("calldata mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestMaxAndAllEncodeIdentically(t *testing.T) {
	tables := DefaultTables()
	adapters := []Adapter{
		NewFixedPool(AaveV3, tables),
		NewIsolatedMarket(CompoundV3, tables),
	}

	for _, adapter := range adapters {
		maxCall, err := adapter.EncodeWithdraw(withdrawReq(model.Ethereum, "max"))
		if err != nil {
			t.Fatalf("%s max: unexpected error: %v", adapter.Protocol(), err)
		}
		allCall, err := adapter.EncodeWithdraw(withdrawReq(model.Ethereum, "ALL"))
		if err != nil {
			t.Fatalf("%s all: unexpected error: %v", adapter.Protocol(), err)
		}
		if !bytes.Equal(maxCall.Data, allCall.Data) {
			t.Fatalf("%s: max and all differ", adapter.Protocol())
		}
		if !strings.Contains(hex.EncodeToString(maxCall.Data), maxWord) {
			t.Fatalf("%s: missing max word", adapter.Protocol())
		}
		if !amount.IsMaxUint256(maxCall.AmountRaw) {
			t.Fatalf("%s: amount raw %s", adapter.Protocol(), maxCall.AmountRaw)
		}
	}
}

func TestFixedPoolWithdrawMaxCalldata(t *testing.T) {
	pool := NewFixedPool(AaveV3, DefaultTables())
	call, err := pool.EncodeWithdraw(withdrawReq(model.Ethereum, "max"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "69328dec" +
		"000000000000000000000000a0b86991c6218b36c1d19d4a2e9eb0ce3606eb48" +
		maxWord +
		"0000000000000000000000001111111111111111111111111111111111111111"
	if got := hex.EncodeToString(call.Data); got != want {
		t.Fatalf("calldata mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestIsolatedMarketCalldata(t *testing.T) {
	market := NewIsolatedMarket(CompoundV3, DefaultTables())

	call, err := market.EncodeSupply(supplyReq(model.Ethereum, "100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "f2b9fdb8" +
		"000000000000000000000000a0b86991c6218b36c1d19d4a2e9eb0ce3606eb48" +
		"0000000000000000000000000000000000000000000000000000000005f5e100"
	if got := hex.EncodeToString(call.Data); got != want {
		t.Fatalf("calldata mismatch:\n got %s\nwant %s", got, want)
	}
	if call.To != common.HexToAddress("0xc3d688B66703497DAA19211EEdff47f25384cdc3") {
		t.Fatalf("unexpected market %s", call.To.Hex())
	}

	call, err = market.EncodeWithdraw(withdrawReq(model.Ethereum, "max"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = "f3fef3a3" +
		"000000000000000000000000a0b86991c6218b36c1d19d4a2e9eb0ce3606eb48" +
		maxWord
	if got := hex.EncodeToString(call.Data); got != want {
		t.Fatalf("calldata mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestIsolatedMarketResolution(t *testing.T) {
	market := NewIsolatedMarket(CompoundV3, DefaultTables())

	usdc, ok := market.ResolvePool(model.Base, "")
	if !ok || usdc != common.HexToAddress("0xb125E6687d4313864e53df431d5425969c15Eb2F") {
		t.Fatalf("default market = %s %v", usdc.Hex(), ok)
	}
	weth, ok := market.ResolvePool(model.Base, "cWETHv3")
	if !ok || weth != common.HexToAddress("0x46e6b214b524310239732D51387075E0e70970bf") {
		t.Fatalf("named market = %s %v", weth.Hex(), ok)
	}
	if _, ok := market.ResolvePool(model.Polygon, "WETH"); ok {
		t.Fatalf("expected no WETH market on polygon")
	}

	receipt, ok := market.ResolveReceiptToken("usdc", model.Ethereum)
	if !ok || receipt != common.HexToAddress("0xc3d688B66703497DAA19211EEdff47f25384cdc3") {
		t.Fatalf("receipt token = %s %v", receipt.Hex(), ok)
	}

	req := supplyReq(model.Ethereum, "1")
	req.Symbol = "WETH"
	call, err := market.EncodeSupply(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if call.To != common.HexToAddress("0xA17581A9E3356d9A858b789D68B4d866e593aE94") {
		t.Fatalf("asset market not preferred: %s", call.To.Hex())
	}

	req.Market = "cUSDTv3"
	req.Chain = model.Base
	if _, err := market.EncodeSupply(req); !errors.Is(err, ErrVenueUnavailable) {
		t.Fatalf("expected venue unavailable, got %v", err)
	}
}

func TestVaultCalldata(t *testing.T) {
	vault := NewStandardVault(MetaMorpho, DefaultTables())

	call, err := vault.EncodeSupply(supplyReq(model.Ethereum, "100"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "6e553f65" +
		"0000000000000000000000000000000000000000000000000000000005f5e100" +
		"0000000000000000000000001111111111111111111111111111111111111111"
	if got := hex.EncodeToString(call.Data); got != want {
		t.Fatalf("calldata mismatch:\n got %s\nwant %s", got, want)
	}
	if call.To != common.HexToAddress("0xBEEF01735c132Ada46AA9aA4c54623cAA92A64CB") {
		t.Fatalf("default vault = %s", call.To.Hex())
	}

	req := withdrawReq(model.Ethereum, "25")
	req.Owner = testOwner
	call, err = vault.EncodeWithdraw(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = "b460af94" +
		"00000000000000000000000000000000000000000000000000000000017d7840" +
		"0000000000000000000000001111111111111111111111111111111111111111" +
		"0000000000000000000000002222222222222222222222222222222222222222"
	if got := hex.EncodeToString(call.Data); got != want {
		t.Fatalf("calldata mismatch:\n got %s\nwant %s", got, want)
	}
	if call.Method != "withdraw" {
		t.Fatalf("method = %s", call.Method)
	}

	req.Amount = "max"
	call, err = vault.EncodeWithdraw(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = "ba087652" + maxWord +
		"0000000000000000000000001111111111111111111111111111111111111111" +
		"0000000000000000000000002222222222222222222222222222222222222222"
	if got := hex.EncodeToString(call.Data); got != want {
		t.Fatalf("calldata mismatch:\n got %s\nwant %s", got, want)
	}
	if call.Method != "redeem" {
		t.Fatalf("method = %s", call.Method)
	}
}

func TestVaultSelectorsForExit(t *testing.T) {
	vault := NewStandardVault(MetaMorpho, DefaultTables())
	redeem, _ := Selector(KindVault, "redeem")
	withdraw, _ := Selector(KindVault, "withdraw")

	maxCall, err := vault.EncodeWithdraw(withdrawReq(model.Ethereum, "all"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(maxCall.Selector(), redeem) || bytes.Equal(maxCall.Selector(), withdraw) {
		t.Fatalf("max exit selector %x", maxCall.Selector())
	}

	exactCall, err := vault.EncodeWithdraw(withdrawReq(model.Ethereum, "10"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(exactCall.Selector(), withdraw) || bytes.Equal(exactCall.Selector(), redeem) {
		t.Fatalf("exact exit selector %x", exactCall.Selector())
	}
}

func TestVaultResolution(t *testing.T) {
	tables := DefaultTables()
	vault := NewStandardVault(MetaMorpho, tables)

	byName, ok := vault.ResolvePool(model.Ethereum, "gtUSDC")
	if !ok || byName != common.HexToAddress("0xdd0f28e19C1780eb6396170735D45153D261490d") {
		t.Fatalf("vault by name = %s %v", byName.Hex(), ok)
	}
	byAsset, ok := vault.ResolvePool(model.Ethereum, "weth")
	if !ok || byAsset != common.HexToAddress("0x2371e134e3455e0593363cBF89d3b6cf53740618") {
		t.Fatalf("vault by asset = %s %v", byAsset.Hex(), ok)
	}
	if _, ok := vault.ResolvePool(model.Arbitrum, "USDC"); ok {
		t.Fatalf("expected no vault on arbitrum")
	}
	if _, ok := vault.ResolvePool(model.Ethereum, "DAI"); ok {
		t.Fatalf("expected no default DAI vault")
	}

	req := supplyReq(model.Ethereum, "1")
	req.Market = "gtWETH"
	if _, err := vault.EncodeSupply(req); !errors.Is(err, ErrAssetMismatch) {
		t.Fatalf("expected asset mismatch, got %v", err)
	}
}

func TestVaultBaseSymbolTotalOverTable(t *testing.T) {
	tables := DefaultTables()
	for chain, vaults := range tables.Vaults {
		for key, vault := range vaults {
			if key != model.Key(vault.Symbol) {
				t.Fatalf("%s: key %s does not match symbol %s", chain, key, vault.Symbol)
			}
			if got := VaultBaseSymbol(vault.Symbol); got != vault.Asset {
				t.Fatalf("%s: VaultBaseSymbol(%s) = %s, want %s", chain, vault.Symbol, got, vault.Asset)
			}
			if VaultBaseSymbol(vault.Symbol) != VaultBaseSymbol(vault.Symbol) {
				t.Fatalf("non deterministic strip for %s", vault.Symbol)
			}
		}
		for asset, name := range tables.DefaultVaults[chain] {
			vault, ok := vaults[model.Key(name)]
			if !ok {
				t.Fatalf("%s: default vault %s missing", chain, name)
			}
			if vault.Asset != asset {
				t.Fatalf("%s: default vault %s holds %s, not %s", chain, name, vault.Asset, asset)
			}
		}
	}

	if got := VaultBaseSymbol("USDC"); got != "USDC" {
		t.Fatalf("unprefixed symbol changed: %s", got)
	}
}

func TestAmountRawMatchesAcrossAdapters(t *testing.T) {
	registry := DefaultRegistry(DefaultTables())

	var first string
	var lengths []int
	for _, protocol := range []string{AaveV3, CompoundV3, MetaMorpho} {
		adapter, err := registry.Adapter(protocol)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		call, err := adapter.EncodeSupply(supplyReq(model.Ethereum, "100.1234569"))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", protocol, err)
		}
		if first == "" {
			first = call.AmountRaw.String()
		}
		if call.AmountRaw.String() != first {
			t.Fatalf("%s: amount raw %s != %s", protocol, call.AmountRaw, first)
		}
		lengths = append(lengths, len(call.Data))
	}
	if first != "100123456" {
		t.Fatalf("amount raw = %s", first)
	}
	if lengths[0] != 4+4*32 || lengths[1] != 4+2*32 || lengths[2] != 4+2*32 {
		t.Fatalf("calldata lengths = %v", lengths)
	}
}

func TestUnavailableVenue(t *testing.T) {
	tables := DefaultTables()
	delete(tables.Pools, model.Polygon)
	pool := NewFixedPool(AaveV3, tables)

	_, err := pool.EncodeSupply(supplyReq(model.Polygon, "1"))
	var unavailableErr *UnavailableError
	if !errors.As(err, &unavailableErr) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if unavailableErr.Chain != model.Polygon {
		t.Fatalf("chain = %s", unavailableErr.Chain)
	}

	registry := DefaultRegistry(DefaultTables())
	if _, err := registry.AdapterOn("morpho", model.Arbitrum); !errors.Is(err, ErrVenueUnavailable) {
		t.Fatalf("expected venue unavailable, got %v", err)
	}
	if _, err := registry.Adapter("spark"); !errors.Is(err, ErrVenueUnavailable) {
		t.Fatalf("expected unknown protocol error, got %v", err)
	}
}

func TestAmountErrorsPropagate(t *testing.T) {
	pool := NewFixedPool(AaveV3, DefaultTables())
	if _, err := pool.EncodeSupply(supplyReq(model.Ethereum, "-1")); !errors.Is(err, amount.ErrNegative) {
		t.Fatalf("expected negative error, got %v", err)
	}
	if _, err := pool.EncodeWithdraw(withdrawReq(model.Ethereum, "")); !errors.Is(err, amount.ErrEmptyAmount) {
		t.Fatalf("expected empty error, got %v", err)
	}
}

func TestZeroAmountEncodes(t *testing.T) {
	pool := NewFixedPool(AaveV3, DefaultTables())
	call, err := pool.EncodeSupply(supplyReq(model.Ethereum, "0"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if call.AmountRaw.Sign() != 0 {
		t.Fatalf("amount raw = %s", call.AmountRaw)
	}
}

func TestCheckCalldataRejectsBadLength(t *testing.T) {
	parsed, err := AavePoolABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	method := parsed.Methods["supply"]
	data := append([]byte{}, method.ID...)
	data = append(data, make([]byte, 3*32)...)

	err = checkCalldata(AaveV3, KindFixedPool, method, data, 4)
	if !errors.Is(err, ErrEncodeInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}

	err = checkCalldata(AaveV3, KindIsolatedMarket, method, append(data, make([]byte, 32)...), 4)
	if !errors.Is(err, ErrEncodeInvariant) {
		t.Fatalf("expected selector mismatch, got %v", err)
	}
}

func TestMergeOverridesTables(t *testing.T) {
	override := Tables{
		Pools: map[model.Chain]common.Address{
			model.Polygon: common.HexToAddress("0x3333333333333333333333333333333333333333"),
		},
		Vaults: map[model.Chain]map[string]Vault{
			model.Arbitrum: {"steakUSDC": {Symbol: "steakUSDC", Address: testOwner, Asset: "USDC"}},
		},
	}
	merged := DefaultTables().Merge(override)

	if merged.Pools[model.Polygon] != common.HexToAddress("0x3333333333333333333333333333333333333333") {
		t.Fatalf("pool not overridden")
	}
	if merged.Pools[model.Ethereum] == (common.Address{}) {
		t.Fatalf("base pool lost")
	}
	vault := NewStandardVault(MetaMorpho, merged)
	addr, ok := vault.ResolvePool(model.Arbitrum, "STEAKUSDC")
	if !ok || addr != testOwner {
		t.Fatalf("override vault = %s %v", addr.Hex(), ok)
	}
}

func TestOversizedAmountNeverEncodes(t *testing.T) {
	tables := DefaultTables()
	adapters := []Adapter{
		NewFixedPool(AaveV3, tables),
		NewIsolatedMarket(CompoundV3, tables),
		NewStandardVault(MetaMorpho, tables),
	}
	over := "115792089237316195423570985008687907853269984665640564039457584007913129.640037"
	numericMax := "115792089237316195423570985008687907853269984665640564039457584007913129.639935"

	for _, adapter := range adapters {
		if _, err := adapter.EncodeSupply(supplyReq(model.Ethereum, over)); !errors.Is(err, amount.ErrOutOfRange) {
			t.Fatalf("%s supply: expected out of range, got %v", adapter.Protocol(), err)
		}
		if _, err := adapter.EncodeWithdraw(withdrawReq(model.Ethereum, over)); !errors.Is(err, amount.ErrOutOfRange) {
			t.Fatalf("%s withdraw: expected out of range, got %v", adapter.Protocol(), err)
		}
		if _, err := adapter.EncodeWithdraw(withdrawReq(model.Ethereum, numericMax)); !errors.Is(err, amount.ErrOutOfRange) {
			t.Fatalf("%s numeric max withdraw: expected out of range, got %v", adapter.Protocol(), err)
		}
	}
}

func TestPackCallRefusesWideIntegers(t *testing.T) {
	parsed, err := ERC4626ABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	wide := new(big.Int).Lsh(big.NewInt(1), 256)
	wide.Add(wide, big.NewInt(101))
	_, err = packCall(MetaMorpho, KindVault, parsed, "deposit", wide, testUser)
	if !errors.Is(err, ErrEncodeInvariant) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	if _, err := packCall(MetaMorpho, KindVault, parsed, "deposit", big.NewInt(-1), testUser); !errors.Is(err, ErrEncodeInvariant) {
		t.Fatalf("expected invariant error for negative, got %v", err)
	}
}

func supplyReq(chain model.Chain, amt string) SupplyRequest {
	return SupplyRequest{
		Chain:      chain,
		Asset:      testUSDC,
		Symbol:     "USDC",
		Amount:     amt,
		Decimals:   6,
		OnBehalfOf: testUser,
	}
}

func withdrawReq(chain model.Chain, amt string) WithdrawRequest {
	return WithdrawRequest{
		Chain:     chain,
		Asset:     testUSDC,
		Symbol:    "USDC",
		Amount:    amt,
		Decimals:  6,
		Recipient: testUser,
	}
}
