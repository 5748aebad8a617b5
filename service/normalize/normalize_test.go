package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/txplain/service/labels"
	"github.com/brojonat/txplain/service/sui"
)

const (
	alice = "0x00000000000000000000000000000000000000000000000000000000000a11ce"
	bob   = "0x0000000000000000000000000000000000000000000000000000000000000b0b"
	carol = "0x00000000000000000000000000000000000000000000000000000000000ca201"
	dave  = "0x0000000000000000000000000000000000000000000000000000000000000da3"
)

func owner(addr string) *sui.Owner {
	o := sui.AddressOwned(addr)
	return &o
}

func baseTx() *sui.RawTransaction {
	return &sui.RawTransaction{
		Digest: "digest",
		Transaction: &sui.TransactionEnvelope{Data: sui.TransactionData{
			Sender: alice,
			Transaction: sui.ProgrammableTransaction{Transactions: []sui.Command{
				{MoveCall: &sui.MoveCall{Package: "0xcafe", Module: "capy", Function: "mint"}},
				{},
				{MoveCall: &sui.MoveCall{Package: "0x2", Module: "transfer", Function: "public_transfer"}},
			}},
		}},
		Effects: &sui.Effects{Status: sui.ExecutionStatus{Status: "success"}},
	}
}

func TestNormalize_Categories(t *testing.T) {
	raw := baseTx()
	raw.ObjectChanges = []sui.ObjectChange{
		{Type: sui.ChangeCreated, Sender: alice, Owner: owner(bob), ObjectType: "0xcafe::capy::Capy", ObjectID: "0x1", Version: "5", Digest: "c1"},
		{Type: sui.ChangeMutated, Sender: alice, Owner: owner(alice), ObjectType: "0xcafe::capy::CapyNFT", ObjectID: "0x2", Version: "5"},
		{Type: sui.ChangeDeleted, Sender: alice, ObjectType: "0xcafe::capy::Egg", ObjectID: "0x3", Version: "5"},
		{Type: sui.ChangeTransferred, Sender: alice, Recipient: owner(carol), ObjectType: "0xcafe::capy::CapyNFT", ObjectID: "0x4", Version: "5"},
		{Type: sui.ChangePublished, PackageID: "0xcafe", Version: "1"},
		{Type: sui.ChangeWrapped, Sender: alice, ObjectType: "0xcafe::capy::Capy", ObjectID: "0x5"},
	}
	enriched := map[string]*sui.EnrichedObject{
		"0x1": {ObjectID: "0x1", Display: map[string]string{"name": "Capy #1"}},
	}

	c := New(nil).Normalize(raw, enriched, labels.New())

	assert.Equal(t, alice, c.Sender)
	require.Len(t, c.Created, 1)
	assert.True(t, c.Created[0].IsNFT)
	require.NotNil(t, c.Created[0].NFT)
	assert.Equal(t, "Capy #1", c.Created[0].NFT.Name)
	assert.Equal(t, bob, c.Created[0].Owner.Address)

	require.Len(t, c.Mutated, 1)
	assert.False(t, c.Mutated[0].IsNFT, "mutations are never classified")
	assert.Equal(t, alice, c.Mutated[0].Owner.Address)

	require.Len(t, c.Deleted, 1)
	assert.Nil(t, c.Deleted[0].Owner)
	assert.Nil(t, c.Deleted[0].NFT)

	require.Len(t, c.Transferred, 1)
	tr := c.Transferred[0]
	assert.Equal(t, alice, tr.From.Address)
	assert.Equal(t, carol, tr.To.Address)
	assert.True(t, tr.IsNFT)
	assert.Nil(t, tr.NFT, "no enrichment, no metadata")
	assert.Nil(t, tr.Coin)

	require.Len(t, c.Calls, 2)
	assert.Equal(t, "capy::mint", c.Calls[0].DisplayName)
	assert.Equal(t, "transfer::public_transfer", c.Calls[1].DisplayName)
}

func TestNormalize_CoinTransfer(t *testing.T) {
	raw := baseTx()
	raw.ObjectChanges = []sui.ObjectChange{
		{Type: sui.ChangeTransferred, Sender: alice, Recipient: owner(bob), ObjectType: "0x2::coin::Coin<0xdba34672e30cb065b1f93e3ab55318768fd6fef66c15942c9f7cb846e2f900e7::usdc::USDC>", ObjectID: "0xc"},
		{Type: sui.ChangeTransferred, Sender: alice, Recipient: owner(bob), ObjectType: "0x2::coin::Coin<0x2::sui::SUI>", ObjectID: "0xd"},
	}
	enriched := map[string]*sui.EnrichedObject{
		"0xc": {
			ObjectID: "0xc",
			Display:  map[string]string{"name": "looks like an NFT"},
			Fields:   map[string]any{"balance": json.Number("2500000")},
		},
	}

	c := New(nil).Normalize(raw, enriched, nil)

	require.Len(t, c.Transferred, 2)
	usdc := c.Transferred[0]
	require.NotNil(t, usdc.Coin)
	assert.False(t, usdc.IsNFT, "coins never classify as NFTs")
	assert.Equal(t, "USDC", usdc.Coin.Symbol)
	assert.Equal(t, 6, usdc.Coin.Decimals)
	require.NotNil(t, usdc.Coin.Amount)
	assert.Equal(t, int64(2500000), usdc.Coin.Amount.Int64())

	native := c.Transferred[1]
	require.NotNil(t, native.Coin)
	assert.Equal(t, "SUI", native.Coin.Symbol)
	assert.Nil(t, native.Coin.Amount, "no enrichment, unknown amount")
}

func TestNormalize_BalanceChanges(t *testing.T) {
	raw := baseTx()
	raw.BalanceChanges = []sui.BalanceChange{
		{Owner: sui.AddressOwned(alice), CoinType: "0x2::sui::SUI", Amount: "-1000000"},
		{Owner: sui.AddressOwned(bob), CoinType: "0xabc::fud::FUD", Amount: "995000"},
		{Owner: sui.AddressOwned(bob), CoinType: "0xabc::fud::FUD", Amount: "not-a-number"},
	}

	c := New(nil).Normalize(raw, nil, nil)

	require.Len(t, c.BalanceChanges, 3)
	assert.True(t, c.BalanceChanges[0].IsNative())
	assert.Equal(t, int64(-1000000), c.BalanceChanges[0].Amount.Int64())
	assert.Equal(t, "FUD", c.BalanceChanges[1].Symbol)
	assert.Equal(t, 6, c.BalanceChanges[1].Decimals)
	assert.Nil(t, c.BalanceChanges[2].Amount)
}

func TestNormalize_AddressDiscoveryOrder(t *testing.T) {
	raw := baseTx()
	raw.ObjectChanges = []sui.ObjectChange{
		// Transfer listed first, but created NFT owners are visited before transfers.
		{Type: sui.ChangeTransferred, Sender: alice, Recipient: owner(carol), ObjectType: "0xcafe::x::Thing", ObjectID: "0x9"},
		{Type: sui.ChangeCreated, Sender: alice, Owner: owner(bob), ObjectType: "0xcafe::capy::CapyNFT", ObjectID: "0x1"},
		// Not an NFT: its owner is not discovered here.
		{Type: sui.ChangeCreated, Sender: alice, Owner: owner(dave), ObjectType: "0xcafe::pool::Pool", ObjectID: "0x2"},
		// Object-owned NFT: skipped.
		{Type: sui.ChangeCreated, Sender: alice, Owner: &sui.Owner{Kind: sui.OwnerObject, Address: "0xparent"}, ObjectType: "0xcafe::capy::CapyNFT", ObjectID: "0x3"},
	}
	raw.BalanceChanges = []sui.BalanceChange{
		{Owner: sui.AddressOwned(dave), CoinType: "0x2::sui::SUI", Amount: "5"},
	}

	l := labels.New()
	New(nil).Normalize(raw, nil, l)

	assert.Equal(t, []labels.Entry{
		{Label: "User A", Address: alice},
		{Label: "User B", Address: bob},
		{Label: "User C", Address: carol},
		{Label: "User D", Address: dave},
	}, l.Entries())
}

func TestNormalize_NilAndEmpty(t *testing.T) {
	c := New(nil).Normalize(nil, nil, labels.New())
	require.NotNil(t, c)
	assert.Empty(t, c.Created)

	c = New(nil).Normalize(&sui.RawTransaction{}, nil, labels.New())
	assert.Equal(t, "", c.Sender)
	assert.Empty(t, c.Calls)
}

func TestChangesHelpers(t *testing.T) {
	c := &Changes{Created: []ObjectChange{
		{ObjectID: "0x1", IsNFT: true},
		{ObjectID: "0x2"},
	}}
	assert.Len(t, c.CreatedNFTs(), 1)
	assert.Len(t, c.CreatedOther(), 1)
	assert.True(t, c.WasCreated("0x2"))
	assert.False(t, c.WasCreated("0x3"))
	assert.True(t, SameAddress("0xABC", " 0xabc"))
}
