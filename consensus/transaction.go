package consensus

import "github.com/AMCarbonaro/PULSE/types"

// ReceiveTransaction admits a signed transaction into the pending pool.
// The sender must be solvent and currently pulsing.
func (e *Engine) ReceiveTransaction(tx types.Transaction) error {
	if err := verifyTransactionSignature(tx); err != nil {
		return err
	}
	if tx.Amount <= 0 || tx.SenderPubkey == tx.RecipientPubkey {
		return ErrInvalidTransaction
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.accounts[tx.SenderPubkey].Balance < tx.Amount {
		return ErrInsufficientBalance
	}
	if _, pulsing := e.heartbeatPool[tx.SenderPubkey]; !pulsing {
		return ErrSenderNotPulsing
	}

	e.txPool = append(e.txPool, tx)
	return nil
}
