package security

import (
	"bytes"
	"errors"
	"testing"
)

// establish runs a deterministic handshake far enough that encryption works.
func establish(t *testing.T) *Security {
	t.Helper()
	s := &Security{}
	s.InitializeWith(0x12345678, 0x9ABCDEF0, 0x175e97ae769689bf, 189993144, 0x5213f40d, 0x24964436)
	if _, err := s.StartChallenge(0x4339047a, 0x6418bb163fec0269); err != nil {
		t.Fatalf("StartChallenge() error: %v", err)
	}
	if err := s.AcceptChallenge(); err != nil {
		t.Fatalf("AcceptChallenge() error: %v", err)
	}
	return s
}

func TestHandshakeVector(t *testing.T) {
	s := &Security{}
	s.InitializeWith(0, 0, 0x175e97ae769689bf, 189993144, 0x5213f40d, 0x24964436)
	if got := s.Phase(); got != PhaseHandshakeStarted {
		t.Fatalf("Phase() = %v, want HandshakeStarted", got)
	}

	challenge, err := s.StartChallenge(0x4339047a, 0x6418bb163fec0269)
	if err != nil {
		t.Fatalf("StartChallenge() error: %v", err)
	}
	if want := uint64(0x267d7919d45e6fbe); challenge != want {
		t.Fatalf("StartChallenge() = %#x, want %#x", challenge, want)
	}

	if err := s.AcceptChallenge(); err != nil {
		t.Fatalf("AcceptChallenge() error: %v", err)
	}
	if got := s.Phase(); got != PhaseEstablished {
		t.Fatalf("Phase() = %v, want Established", got)
	}
}

func TestHandshakeMismatch(t *testing.T) {
	s := &Security{}
	s.InitializeWith(0, 0, 0x175e97ae769689bf, 189993144, 0x5213f40d, 0x24964436)

	_, err := s.StartChallenge(0x4339047a, 0xdeadbeefdeadbeef)
	var mismatch *KeyExchangeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("StartChallenge() error = %v, want KeyExchangeMismatchError", err)
	}
}

func TestOperationsBeforeEstablished(t *testing.T) {
	s := &Security{}
	if _, err := s.Encrypt([]byte{1, 2, 3}); !errors.Is(err, ErrUninitialized) {
		t.Errorf("Encrypt() error = %v, want ErrUninitialized", err)
	}
	if _, err := s.Decrypt(nil); !errors.Is(err, ErrUninitialized) {
		t.Errorf("Decrypt() error = %v, want ErrUninitialized", err)
	}
	if _, err := s.NextCountByte(); !errors.Is(err, ErrUninitialized) {
		t.Errorf("NextCountByte() error = %v, want ErrUninitialized", err)
	}
	if err := s.AcceptChallenge(); !errors.Is(err, ErrHandshakeUnfinished) {
		t.Errorf("AcceptChallenge() error = %v, want ErrHandshakeUnfinished", err)
	}
	if _, err := s.StartChallenge(0, 0); !errors.Is(err, ErrUninitialized) {
		t.Errorf("StartChallenge() error = %v, want ErrUninitialized", err)
	}
}

func TestDoubleInitialize(t *testing.T) {
	s := &Security{}
	if _, err := s.Initialize(); err != nil {
		t.Fatalf("Initialize() error: %v", err)
	}
	if _, err := s.Initialize(); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("second Initialize() error = %v, want ErrAlreadyInitialized", err)
	}
}

func TestEncryptionRoundtrip(t *testing.T) {
	s := establish(t)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"single block", []byte("8bytes!!")},
		{"multiple blocks", bytes.Repeat([]byte{0xAB}, 64)},
		{"needs padding", []byte("hello")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encrypted, err := s.Encrypt(tt.data)
			if err != nil {
				t.Fatalf("Encrypt() error: %v", err)
			}
			if len(encrypted) != EncryptedLength(len(tt.data)) {
				t.Fatalf("Encrypt() produced %d bytes, want %d", len(encrypted), EncryptedLength(len(tt.data)))
			}

			decrypted, err := s.Decrypt(encrypted)
			if err != nil {
				t.Fatalf("Decrypt() error: %v", err)
			}
			if !bytes.Equal(decrypted[:len(tt.data)], tt.data) {
				t.Fatalf("Decrypt() = %x, want prefix %x", decrypted, tt.data)
			}
			for _, b := range decrypted[len(tt.data):] {
				if b != 0 {
					t.Fatalf("Decrypt() padding = %x, want zeroes", decrypted[len(tt.data):])
				}
			}
		})
	}
}

func TestDecryptUnaligned(t *testing.T) {
	s := establish(t)

	_, err := s.Decrypt(make([]byte, 13))
	var blockErr *InvalidBlockLengthError
	if !errors.As(err, &blockErr) {
		t.Fatalf("Decrypt() error = %v, want InvalidBlockLengthError", err)
	}
	if blockErr.Length != 13 {
		t.Fatalf("InvalidBlockLengthError.Length = %d, want 13", blockErr.Length)
	}
}

func TestEncryptedLength(t *testing.T) {
	for n := 0; n < 64; n++ {
		padded := EncryptedLength(n)
		if padded%BlockSize != 0 {
			t.Fatalf("EncryptedLength(%d) = %d, not block aligned", n, padded)
		}
		if diff := padded - n; diff < 0 || diff > 7 {
			t.Fatalf("EncryptedLength(%d) - %d = %d, want within [0, 7]", n, n, diff)
		}
	}
}

func TestCountByteSequence(t *testing.T) {
	a := establish(t)
	b := establish(t)

	// Same seed must yield the same sequence on both sides.
	for i := 0; i < 32; i++ {
		ba, err := a.NextCountByte()
		if err != nil {
			t.Fatalf("NextCountByte() error: %v", err)
		}
		bb, err := b.NextCountByte()
		if err != nil {
			t.Fatalf("NextCountByte() error: %v", err)
		}
		if ba != bb {
			t.Fatalf("count byte %d: %#x != %#x", i, ba, bb)
		}
	}
}

func TestCountByteAdvances(t *testing.T) {
	s := establish(t)

	seen := make(map[byte]int)
	for i := 0; i < 16; i++ {
		b, err := s.NextCountByte()
		if err != nil {
			t.Fatalf("NextCountByte() error: %v", err)
		}
		seen[b]++
	}
	if len(seen) < 2 {
		t.Fatalf("count byte never changed across 16 draws: %v", seen)
	}
}

func TestCRCByteDeterministic(t *testing.T) {
	s := establish(t)

	data := []byte{0x01, 0x02, 0x03, 0x04}
	first, err := s.CRCByte(data)
	if err != nil {
		t.Fatalf("CRCByte() error: %v", err)
	}
	second, err := s.CRCByte(data)
	if err != nil {
		t.Fatalf("CRCByte() error: %v", err)
	}
	if first != second {
		t.Fatalf("CRCByte() not deterministic: %#x != %#x", first, second)
	}
}
