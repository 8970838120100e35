package xcm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestTransferRoundTripProperty checks that any well-formed transfer survives encoding and decoding.
func TestTransferRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("transfer programs round trip", prop.ForAll(
		func(amountHi uint64, amountLo uint64, fee uint64, para uint32, key []uint8, chainID uint64) bool {
			var token [20]byte
			copy(token[:], key)

			amount := new(uint256.Int).Lsh(uint256.NewInt(amountHi), 64)
			amount.Or(amount, uint256.NewInt(amountLo))

			prog := Program{
				ReserveAssetDeposited{Assets: Assets{{
					ID:  NewLocation(1, Parachain(para)),
					Fun: Fungible{Amount: *amount},
				}}},
				ClearOrigin{},
				BuyExecution{Fees: NewFungible(Parent(), fee), WeightLimit: Unlimited},
				DepositAsset{
					Assets:      WildAllCounted{Count: 1},
					Beneficiary: NewLocation(0, AccountKey20{Network: Ethereum(chainID), Key: token}),
				},
			}

			encoded, err := EncodeVersioned(&Versioned{Version: V4, Program: prog})
			if err != nil {
				return false
			}
			decoded, err := DecodeVersioned(encoded, MaxDecodeDepth)
			if err != nil || len(decoded.Program) != len(prog) {
				return false
			}
			got := decoded.Program[0].(ReserveAssetDeposited).Assets[0]
			beneficiary := decoded.Program[3].(DepositAsset).Beneficiary
			return got.Equal(prog[0].(ReserveAssetDeposited).Assets[0]) &&
				beneficiary.Equal(prog[3].(DepositAsset).Beneficiary)
		},
		gen.UInt64(),
		gen.UInt64(),
		gen.UInt64(),
		gen.UInt32(),
		gen.SliceOfN(20, gen.UInt8()),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
