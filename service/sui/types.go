package sui

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Object change kinds reported by sui_getTransactionBlock.
const (
	ChangeCreated     = "created"
	ChangeMutated     = "mutated"
	ChangeDeleted     = "deleted"
	ChangeTransferred = "transferred"
	ChangePublished   = "published"
	ChangeWrapped     = "wrapped"
)

// RawTransaction is the transaction block as returned by the RPC node.
// It mirrors the JSON-RPC response shape and is never mutated after fetch.
type RawTransaction struct {
	Digest         string               `json:"digest"`
	Transaction    *TransactionEnvelope `json:"transaction,omitempty"`
	Effects        *Effects             `json:"effects,omitempty"`
	ObjectChanges  []ObjectChange       `json:"objectChanges,omitempty"`
	BalanceChanges []BalanceChange      `json:"balanceChanges,omitempty"`
	TimestampMs    string               `json:"timestampMs,omitempty"`
	Checkpoint     string               `json:"checkpoint,omitempty"`
}

// TransactionEnvelope wraps the signed transaction data.
type TransactionEnvelope struct {
	Data TransactionData `json:"data"`
}

// TransactionData holds the sender and the programmable transaction.
type TransactionData struct {
	Sender      string                  `json:"sender"`
	Transaction ProgrammableTransaction `json:"transaction"`
}

// ProgrammableTransaction is the ordered list of commands the sender submitted.
type ProgrammableTransaction struct {
	Kind         string    `json:"kind"`
	Transactions []Command `json:"transactions"`
}

// Command is one programmable transaction command. Only MoveCall is decoded;
// SplitCoins, TransferObjects and friends are left empty.
type Command struct {
	MoveCall *MoveCall `json:"MoveCall,omitempty"`
}

// MoveCall is a call into a Move package function.
type MoveCall struct {
	Package       string   `json:"package"`
	Module        string   `json:"module"`
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments,omitempty"`
}

// Effects carries execution status and gas accounting.
type Effects struct {
	Status  ExecutionStatus `json:"status"`
	GasUsed GasUsed         `json:"gasUsed"`
}

// ExecutionStatus is "success" or "failure" with an optional error.
type ExecutionStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// GasUsed holds gas costs in MIST, encoded as decimal strings.
type GasUsed struct {
	ComputationCost         string `json:"computationCost"`
	StorageCost             string `json:"storageCost"`
	StorageRebate           string `json:"storageRebate"`
	NonRefundableStorageFee string `json:"nonRefundableStorageFee,omitempty"`
}

// ObjectChange is one raw per-object change record.
type ObjectChange struct {
	Type            string `json:"type"`
	Sender          string `json:"sender,omitempty"`
	Owner           *Owner `json:"owner,omitempty"`
	Recipient       *Owner `json:"recipient,omitempty"`
	ObjectType      string `json:"objectType,omitempty"`
	ObjectID        string `json:"objectId,omitempty"`
	PackageID       string `json:"packageId,omitempty"`
	Version         string `json:"version,omitempty"`
	PreviousVersion string `json:"previousVersion,omitempty"`
	Digest          string `json:"digest,omitempty"`
}

// BalanceChange is a signed coin balance delta for one owner.
type BalanceChange struct {
	Owner    Owner  `json:"owner"`
	CoinType string `json:"coinType"`
	Amount   string `json:"amount"`
}

// Sender returns the transaction sender, or "" when the input was not requested.
func (t *RawTransaction) Sender() string {
	if t == nil || t.Transaction == nil {
		return ""
	}
	return t.Transaction.Data.Sender
}

// Succeeded reports whether execution status is "success".
func (t *RawTransaction) Succeeded() bool {
	if t == nil || t.Effects == nil {
		return false
	}
	return t.Effects.Status.Status == "success"
}

// MoveCalls returns the MoveCall commands in submission order.
func (t *RawTransaction) MoveCalls() []MoveCall {
	if t == nil || t.Transaction == nil {
		return nil
	}
	var calls []MoveCall
	for _, cmd := range t.Transaction.Data.Transaction.Transactions {
		if cmd.MoveCall != nil {
			calls = append(calls, *cmd.MoveCall)
		}
	}
	return calls
}

// OwnerKind tags the Owner variant.
type OwnerKind int

const (
	OwnerUnknown OwnerKind = iota
	OwnerAddress
	OwnerObject
	OwnerShared
	OwnerImmutable
)

func (k OwnerKind) String() string {
	switch k {
	case OwnerAddress:
		return "address"
	case OwnerObject:
		return "object"
	case OwnerShared:
		return "shared"
	case OwnerImmutable:
		return "immutable"
	default:
		return "unknown"
	}
}

// Owner describes who owns an object. Address holds the owning account for
// OwnerAddress and the parent object id for OwnerObject.
type Owner struct {
	Kind                 OwnerKind
	Address              string
	InitialSharedVersion string
}

// AddressOwned returns an Owner for a plain account address.
func AddressOwned(addr string) Owner {
	return Owner{Kind: OwnerAddress, Address: addr}
}

// IsAddress reports whether the owner is an account address.
func (o Owner) IsAddress() bool {
	return o.Kind == OwnerAddress && o.Address != ""
}

// UnmarshalJSON accepts "Immutable", {"AddressOwner": ..}, {"ObjectOwner": ..}
// and {"Shared": {"initial_shared_version": ..}}. Anything else is OwnerUnknown.
func (o *Owner) UnmarshalJSON(data []byte) error {
	*o = Owner{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		if s == "Immutable" {
			o.Kind = OwnerImmutable
		}
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("invalid owner: %w", err)
	}

	if v, ok := raw["AddressOwner"]; ok {
		o.Kind = OwnerAddress
		return json.Unmarshal(v, &o.Address)
	}
	if v, ok := raw["ObjectOwner"]; ok {
		o.Kind = OwnerObject
		return json.Unmarshal(v, &o.Address)
	}
	if v, ok := raw["Shared"]; ok {
		o.Kind = OwnerShared
		var shared struct {
			InitialSharedVersion json.Number `json:"initial_shared_version"`
		}
		if err := json.Unmarshal(v, &shared); err == nil {
			o.InitialSharedVersion = shared.InitialSharedVersion.String()
		}
		return nil
	}
	return nil
}

// MarshalJSON writes the same shape the node uses so raw records round-trip.
func (o Owner) MarshalJSON() ([]byte, error) {
	switch o.Kind {
	case OwnerAddress:
		return json.Marshal(map[string]string{"AddressOwner": o.Address})
	case OwnerObject:
		return json.Marshal(map[string]string{"ObjectOwner": o.Address})
	case OwnerShared:
		return json.Marshal(map[string]map[string]string{
			"Shared": {"initial_shared_version": o.InitialSharedVersion},
		})
	case OwnerImmutable:
		return json.Marshal("Immutable")
	default:
		return []byte("null"), nil
	}
}

// EnrichedObject is the supplemental per-object data fetched with
// sui_getObject. Display and Fields may be nil.
type EnrichedObject struct {
	ObjectID string            `json:"objectId"`
	Type     string            `json:"type,omitempty"`
	Version  string            `json:"version,omitempty"`
	Display  map[string]string `json:"display,omitempty"`
	Fields   map[string]any    `json:"fields,omitempty"`
}
