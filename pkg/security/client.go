package security

import "encoding/binary"

// ClientHandshake implements the client half of the key exchange. The server
// never uses it; it backs the packet-decryptor tooling and end-to-end tests
// that need a real counterparty.
type ClientHandshake struct {
	valueK        uint32
	valueA        uint32
	valueB        uint32
	handshakeSeed uint64
	countSeed     uint32
	crcSeed       uint32
	responded     bool
}

// Respond consumes the server's initialization data and produces the
// client's public value and encrypted key material.
func (c *ClientHandshake) Respond(init InitializationData) (uint32, uint64, error) {
	secret := randomUint32() & 0x7FFFFFFF
	return c.RespondWith(init, secret)
}

// RespondWith is Respond with a fixed secret exponent, for deterministic
// exchanges.
func (c *ClientHandshake) RespondWith(init InitializationData, secret uint32) (uint32, uint64, error) {
	valueB := powMod(init.G, secret, init.P)
	valueK := powMod(init.A, secret, init.P)

	c.valueK = valueK
	c.valueA = init.A
	c.valueB = valueB
	c.handshakeSeed = init.HandshakeSeed
	c.countSeed = init.CountSeed
	c.crcSeed = init.CRCSeed
	c.responded = true

	keyPlain := transformKey(toUint64(valueB, init.A), valueK, loByte(loWord(valueB))&0x07)

	exchangeCipher, err := newCompatCipher(transformKey(toUint64(init.A, valueB), valueK, loByte(loWord(valueK))&0x03))
	if err != nil {
		return 0, 0, err
	}

	var block [8]byte
	binary.LittleEndian.PutUint64(block[:], keyPlain)
	exchangeCipher.encryptBlock(block[:])

	return valueB, binary.LittleEndian.Uint64(block[:]), nil
}

// VerifyChallenge checks the server's encrypted challenge against the
// client's own computation.
func (c *ClientHandshake) VerifyChallenge(challenge uint64) error {
	if !c.responded {
		return ErrUninitialized
	}

	exchangeCipher, err := newCompatCipher(transformKey(toUint64(c.valueA, c.valueB), c.valueK, loByte(loWord(c.valueK))&0x03))
	if err != nil {
		return err
	}

	expected := transformKey(toUint64(c.valueA, c.valueB), c.valueK, loByte(loWord(c.valueA))&0x07)

	var block [8]byte
	binary.LittleEndian.PutUint64(block[:], challenge)
	exchangeCipher.decryptBlock(block[:])
	received := binary.LittleEndian.Uint64(block[:])

	if received != expected {
		return &KeyExchangeMismatchError{Received: received, Calculated: expected}
	}
	return nil
}

// Establish derives the permanent session state after the challenge was
// confirmed. The returned Security mirrors the server's established session.
func (c *ClientHandshake) Establish() (*Security, error) {
	if !c.responded {
		return nil, ErrUninitialized
	}

	cipher, err := newCompatCipher(transformKey(c.handshakeSeed, c.valueK, 0x03))
	if err != nil {
		return nil, err
	}

	return &Security{
		phase:      PhaseEstablished,
		crcSeed:    c.crcSeed,
		cipher:     cipher,
		countBytes: generateCountSeed(c.countSeed),
	}, nil
}
