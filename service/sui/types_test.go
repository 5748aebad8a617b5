package sui

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Owner
	}{
		{"address", `{"AddressOwner":"0xabc"}`, Owner{Kind: OwnerAddress, Address: "0xabc"}},
		{"object", `{"ObjectOwner":"0xdef"}`, Owner{Kind: OwnerObject, Address: "0xdef"}},
		{"shared", `{"Shared":{"initial_shared_version":42}}`, Owner{Kind: OwnerShared, InitialSharedVersion: "42"}},
		{"immutable", `"Immutable"`, Owner{Kind: OwnerImmutable}},
		{"null", `null`, Owner{}},
		{"unknown variant", `{"ConsensusV2":{}}`, Owner{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Owner
			require.NoError(t, json.Unmarshal([]byte(tt.json), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRawTransactionDecode(t *testing.T) {
	payload := `{
		"digest": "D1",
		"transaction": {"data": {"sender": "0xaaa", "transaction": {"kind": "ProgrammableTransaction", "transactions": [
			{"SplitCoins": ["GasCoin", [{"Input": 0}]]},
			{"MoveCall": {"package": "0x2", "module": "pay", "function": "split"}},
			{"MoveCall": {"package": "0xcafe", "module": "capy", "function": "mint"}}
		]}}},
		"effects": {"status": {"status": "success"}, "gasUsed": {"computationCost": "100", "storageCost": "50", "storageRebate": "30"}},
		"objectChanges": [
			{"type": "created", "sender": "0xaaa", "owner": {"AddressOwner": "0xbbb"}, "objectType": "0xcafe::capy::Capy", "objectId": "0x1", "version": "3"},
			{"type": "published", "packageId": "0xcafe", "version": "1"}
		],
		"balanceChanges": [{"owner": {"AddressOwner": "0xaaa"}, "coinType": "0x2::sui::SUI", "amount": "-120"}]
	}`

	var tx RawTransaction
	require.NoError(t, json.Unmarshal([]byte(payload), &tx))

	assert.Equal(t, "0xaaa", tx.Sender())
	assert.True(t, tx.Succeeded())
	require.Len(t, tx.MoveCalls(), 2)
	assert.Equal(t, "mint", tx.MoveCalls()[1].Function)
	require.Len(t, tx.ObjectChanges, 2)
	assert.Equal(t, "0xbbb", tx.ObjectChanges[0].Owner.Address)
	assert.Nil(t, tx.ObjectChanges[1].Owner)
	assert.Equal(t, "-120", tx.BalanceChanges[0].Amount)
}

func TestRawTransactionAccessorsOnEmpty(t *testing.T) {
	var tx *RawTransaction
	assert.Equal(t, "", tx.Sender())
	assert.False(t, tx.Succeeded())
	assert.Nil(t, tx.MoveCalls())
}

func TestMoveTypeHelpers(t *testing.T) {
	long := "0x0000000000000000000000000000000000000000000000000000000000000002::coin::Coin<0x0000000000000000000000000000000000000000000000000000000000000002::sui::SUI>"

	assert.True(t, IsCoinType(long))
	assert.True(t, IsCoinType("0x2::coin::Coin<0xabc::usdc::USDC>"))
	assert.False(t, IsCoinType("0x2::coin::TreasuryCap<0xabc::usdc::USDC>"))
	assert.True(t, IsNativeCoin(long))
	assert.True(t, IsNativeCoin("0x2::sui::SUI"))
	assert.False(t, IsNativeCoin("0x2::coin::Coin<0xabc::usdc::USDC>"))
	assert.Equal(t, "0x2::coin::Coin<0x2::sui::SUI>", NormalizeType(long))
	assert.Equal(t, "0xabc::usdc::USDC", CoinInnerType("0x2::coin::Coin<0xabc::usdc::USDC>"))
	assert.Equal(t, "Coin", TypeName(long))
	assert.Equal(t, "Kiosk", TypeName("0x2::kiosk::Kiosk"))
}
