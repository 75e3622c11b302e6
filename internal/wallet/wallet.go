// Package wallet provides the signing capability used on proposal batches.
package wallet

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/workbenchapp/worknet-proposer/internal/domain"
)

// ErrMissingSigner is returned when a transaction needs a key the signer does
// not hold.
var ErrMissingSigner = errors.New("signer not available")

// Signer signs every transaction of a batch or none of them.
type Signer interface {
	PublicKey() solana.PublicKey
	SignAll(txs []*solana.Transaction) error
}

// Keypair signs with a single private key.
type Keypair struct {
	key solana.PrivateKey
}

// Ensure Keypair implements Signer.
var _ Signer = (*Keypair)(nil)

// NewKeypair wraps a private key.
func NewKeypair(key solana.PrivateKey) *Keypair {
	return &Keypair{key: key}
}

// LoadKeypair reads a solana-keygen JSON key file.
func LoadKeypair(path string) (*Keypair, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading keypair from %s: %w", path, err)
	}
	return &Keypair{key: key}, nil
}

// PublicKey returns the wallet address.
func (k *Keypair) PublicKey() solana.PublicKey {
	return k.key.PublicKey()
}

// SignAll signs every transaction in txs. Required signers other than this
// key make the whole batch fail before anything is signed.
func (k *Keypair) SignAll(txs []*solana.Transaction) error {
	pub := k.key.PublicKey()
	for i, tx := range txs {
		for _, signer := range tx.Message.Signers() {
			if !signer.Equals(pub) {
				return fmt.Errorf("transaction %d: %w: %s", i, ErrMissingSigner, signer)
			}
		}
	}

	for i, tx := range txs {
		if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
			if key.Equals(pub) {
				return &k.key
			}
			return nil
		}); err != nil {
			return fmt.Errorf("signing transaction %d: %w", i, err)
		}
	}
	return nil
}

// FullySigned reports an error unless every required signature of tx is
// present and valid.
func FullySigned(tx *solana.Transaction) error {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) < required {
		return fmt.Errorf("%w: %d of %d signatures", domain.ErrUnsignedTransaction, len(tx.Signatures), required)
	}
	for i := 0; i < required; i++ {
		if tx.Signatures[i].IsZero() {
			return fmt.Errorf("%w: signature %d missing", domain.ErrUnsignedTransaction, i)
		}
	}
	if err := tx.VerifySignatures(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnsignedTransaction, err)
	}
	return nil
}
