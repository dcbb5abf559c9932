package telegram

import "errors"

// Sentinel errors returned by Parse and the layer parsers. A non-nil error
// from Parse always comes wrapped around one of these via %w, so callers can
// use errors.Is. Parse itself never returns ErrEncryptedNoKey or
// ErrDecryptFailed: a payload it could not decrypt is reported by
// Telegram.DecryptionFailed with a nil error.
var (
	// ErrFrameIncomplete means the buffer ended before a layer's fixed
	// fields could be read; the framer should retain bytes for more data.
	ErrFrameIncomplete = errors.New("telegram: frame incomplete")

	// ErrUnknownCI means a CI byte at a layer boundary did not match any
	// known variant for that layer.
	ErrUnknownCI = errors.New("telegram: unknown CI field")

	// ErrUnsupportedELLVariant is returned for ELL CI 0x86 (ELL V), whose
	// variable-length layout is not implemented.
	ErrUnsupportedELLVariant = errors.New("telegram: ELL V variant not supported")

	// ErrEncryptedNoKey means the telegram requires a confidentiality key
	// that was not supplied.
	ErrEncryptedNoKey = errors.New("telegram: encrypted, no key supplied")

	// ErrMacFailed means an AFL MAC check failed; decryption was not
	// attempted.
	ErrMacFailed = errors.New("telegram: AFL MAC check failed")

	// ErrDecryptFailed means decryption ran but the post-decrypt 0x2F 0x2F
	// (or ELL payload CRC) check failed, indicating the wrong key.
	ErrDecryptFailed = errors.New("telegram: decryption check failed")

	// ErrFormatUnknown means a compact frame (TPL 0x79) referenced a
	// format_signature this parser has not yet learned from a full frame.
	ErrFormatUnknown = errors.New("telegram: compact frame format signature unknown")

	// ErrBadMacLength means the AFL MCL authentication-type nibble did not
	// map to one of the permitted MAC lengths (2, 4, 8, 12, 16).
	ErrBadMacLength = errors.New("telegram: bad AFL MAC length")
)
