package consensus

import "errors"

// Sentinel errors returned by Engine admission and block methods. Callers
// match with errors.Is; HTTP and P2P layers map these to their own
// response codes.
var (
	ErrInvalidHeartbeatSignature  = errors.New("consensus: invalid heartbeat signature")
	ErrStaleHeartbeat             = errors.New("consensus: stale heartbeat")
	ErrInvalidHeartRate           = errors.New("consensus: invalid heart rate")
	ErrInsufficientParticipants   = errors.New("consensus: insufficient live participants")
	ErrInvalidTransactionSignature = errors.New("consensus: invalid transaction signature")
	ErrInsufficientBalance        = errors.New("consensus: insufficient balance")
	ErrSenderNotPulsing           = errors.New("consensus: sender not pulsing")
	ErrBiometricValidationFailed  = errors.New("consensus: biometric validation failed")
	ErrInvalidPreviousHash        = errors.New("consensus: invalid previous hash")
	ErrInvalidTransaction         = errors.New("consensus: invalid transaction")
	ErrCrypto                     = errors.New("consensus: crypto error")
	ErrStorage                    = errors.New("consensus: storage error")
)
