package types

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// TxType defines the purpose of a transaction.
type TxType byte

const (
	TxTypeTransfer   TxType = 0x01 // Plain value transfer between accounts
	TxTypeBid        TxType = 0x10 // Bid on the current jackpot round; Value is the offered amount
	TxTypeDonate     TxType = 0x11 // Donate Value to the jackpot
	TxTypeClaim      TxType = 0x12 // Claim the lapsed round as its last bidder
	TxTypeSetToken   TxType = 0x20 // Owner binds the reward token endpoint (To)
	TxTypeSetTrophy  TxType = 0x21 // Owner binds the trophy issuer endpoint (To)
	TxTypeSetCharity TxType = 0x22 // Owner binds the charity wallet (To)
)

var txTypeNames = map[TxType]string{
	TxTypeTransfer:   "transfer",
	TxTypeBid:        "bid",
	TxTypeDonate:     "donate",
	TxTypeClaim:      "claim",
	TxTypeSetToken:   "set_token",
	TxTypeSetTrophy:  "set_trophy",
	TxTypeSetCharity: "set_charity",
}

// String returns the stable lowercase name used in logs and metrics.
func (t TxType) String() string {
	if name, ok := txTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(0x%02x)", byte(t))
}

// Valid reports whether the type is one the node understands.
func (t TxType) Valid() bool {
	_, ok := txTypeNames[t]
	return ok
}

// Admin reports whether the transaction type is restricted to the owner.
func (t TxType) Admin() bool {
	switch t {
	case TxTypeSetToken, TxTypeSetTrophy, TxTypeSetCharity:
		return true
	default:
		return false
	}
}

// Transaction is a signed request to apply one operation against the node.
type Transaction struct {
	ChainID string   `json:"chainId"`
	Type    TxType   `json:"type"`
	Nonce   uint64   `json:"nonce"`
	To      []byte   `json:"to,omitempty"`
	Value   *big.Int `json:"value,omitempty"`
	Data    []byte   `json:"data,omitempty"`

	// Signatures
	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
	V *big.Int `json:"v"`

	from []byte
}

// Hash covers every field except the signature.
func (tx *Transaction) Hash() ([]byte, error) {
	txData := struct {
		ChainID string
		Type    TxType
		Nonce   uint64
		To      []byte
		Value   *big.Int
		Data    []byte
	}{tx.ChainID, tx.Type, tx.Nonce, tx.To, tx.Value, tx.Data}

	b, err := json.Marshal(txData)
	if err != nil {
		return nil, err
	}
	hash := sha256.Sum256(b)
	return hash[:], nil
}

func (tx *Transaction) Sign(privKey *ecdsa.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(hash, privKey)
	if err != nil {
		return err
	}
	tx.R = new(big.Int).SetBytes(sig[:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	tx.V = new(big.Int).SetBytes([]byte{sig[64] + 27})
	tx.from = nil
	return nil
}

// From recovers the signer address.
func (tx *Transaction) From() ([]byte, error) {
	if tx.from != nil {
		return tx.from, nil
	}
	if tx.R == nil || tx.S == nil || tx.V == nil {
		return nil, errors.New("transaction: missing signature")
	}
	rBytes, sBytes := tx.R.Bytes(), tx.S.Bytes()
	if len(rBytes) > 32 || len(sBytes) > 32 {
		return nil, errors.New("transaction: malformed signature")
	}
	v := tx.V.Uint64()
	if v != 27 && v != 28 {
		return nil, fmt.Errorf("transaction: invalid recovery id %d", v)
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 65)
	copy(sig[32-len(rBytes):32], rBytes)
	copy(sig[64-len(sBytes):64], sBytes)
	sig[64] = byte(v - 27)
	pubKey, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return nil, err
	}
	tx.from = crypto.PubkeyToAddress(*pubKey).Bytes()
	return tx.from, nil
}

// Sender returns the recovered signer as a fixed-size address.
func (tx *Transaction) Sender() ([20]byte, error) {
	var out [20]byte
	from, err := tx.From()
	if err != nil {
		return out, err
	}
	copy(out[:], from)
	return out, nil
}

// Recipient returns To as a fixed-size address.
func (tx *Transaction) Recipient() ([20]byte, error) {
	var out [20]byte
	if len(tx.To) != 20 {
		return out, fmt.Errorf("transaction: recipient must be 20 bytes, got %d", len(tx.To))
	}
	copy(out[:], tx.To)
	return out, nil
}

// Amount returns a copy of Value, treating nil as zero.
func (tx *Transaction) Amount() *big.Int {
	if tx.Value == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(tx.Value)
}
