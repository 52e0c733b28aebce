package protocol

// SecuritySetup is the server's opening message: the seeds and public
// key-exchange parameters the client needs to run the handshake.
type SecuritySetup struct {
	Seed          uint64
	CountSeed     uint32
	CRCSeed       uint32
	HandshakeSeed uint64
	G             uint32
	P             uint32
	A             uint32
}

func (*SecuritySetup) Opcode() uint16 { return OpcodeSecuritySetup }

func (p *SecuritySetup) EncodeTo(w *Writer) {
	w.U64(p.Seed)
	w.U32(p.CountSeed)
	w.U32(p.CRCSeed)
	w.U64(p.HandshakeSeed)
	w.U32(p.G)
	w.U32(p.P)
	w.U32(p.A)
}

func (p *SecuritySetup) DecodeFrom(r *Reader) error {
	p.Seed = r.U64()
	p.CountSeed = r.U32()
	p.CRCSeed = r.U32()
	p.HandshakeSeed = r.U64()
	p.G = r.U32()
	p.P = r.U32()
	p.A = r.U32()
	return nil
}

// HandshakeChallenge is the client's reply: its public value and the
// encrypted key material the server must verify.
type HandshakeChallenge struct {
	B   uint32
	Key uint64
}

func (*HandshakeChallenge) Opcode() uint16 { return OpcodeHandshakeChallenge }

func (p *HandshakeChallenge) EncodeTo(w *Writer) {
	w.U32(p.B)
	w.U64(p.Key)
}

func (p *HandshakeChallenge) DecodeFrom(r *Reader) error {
	p.B = r.U32()
	p.Key = r.U64()
	return nil
}

// HandshakeAccepted confirms the server's challenge; it carries no fields.
type HandshakeAccepted struct{}

func (*HandshakeAccepted) Opcode() uint16        { return OpcodeHandshakeAccepted }
func (*HandshakeAccepted) EncodeTo(*Writer)      {}
func (*HandshakeAccepted) DecodeFrom(*Reader) error { return nil }

// IdentityInformation announces the speaking module on either side of the
// connection.
type IdentityInformation struct {
	ModuleName string
	Locality   byte
}

func (*IdentityInformation) Opcode() uint16 { return OpcodeIdentityInformation }

func (p *IdentityInformation) EncodeTo(w *Writer) {
	w.String(p.ModuleName)
	w.U8(p.Locality)
}

func (p *IdentityInformation) DecodeFrom(r *Reader) error {
	p.ModuleName = r.String()
	p.Locality = r.U8()
	return nil
}

// KeepAlive is the client's periodic liveness ping; it carries no fields and
// only refreshes the session's idle timer.
type KeepAlive struct{}

func (*KeepAlive) Opcode() uint16        { return OpcodeKeepAlive }
func (*KeepAlive) EncodeTo(*Writer)      {}
func (*KeepAlive) DecodeFrom(*Reader) error { return nil }

// Disconnect tells the client the server is closing the connection.
type Disconnect struct {
	Reason byte
}

func (*Disconnect) Opcode() uint16 { return OpcodeDisconnect }

func (p *Disconnect) EncodeTo(w *Writer) {
	w.U8(p.Reason)
}

func (p *Disconnect) DecodeFrom(r *Reader) error {
	p.Reason = r.U8()
	return nil
}
