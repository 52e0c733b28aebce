package protocol

// Position is the wire form of a world position: region, local coordinates
// and heading.
type Position struct {
	Region  uint16
	X       float32
	Y       float32
	Z       float32
	Heading uint16
}

func (p *Position) encodeTo(w *Writer) {
	w.U16(p.Region)
	w.F32(p.X)
	w.F32(p.Y)
	w.F32(p.Z)
	w.U16(p.Heading)
}

func (p *Position) decodeFrom(r *Reader) {
	p.Region = r.U16()
	p.X = r.F32()
	p.Y = r.F32()
	p.Z = r.F32()
	p.Heading = r.U16()
}

// Movement target discriminants shared by request and response unions.
const (
	movementDirection byte = 0
	movementLocation  byte = 1
)

// MovementTarget is the client's requested movement: either a concrete
// destination in region-local u16 coordinates or a free direction.
type MovementTarget struct {
	HasDestination bool

	// Destination fields, valid when HasDestination.
	Region uint16
	X      uint16
	Y      uint16
	Z      uint16

	// Direction fields otherwise.
	Unknown byte
	Angle   uint16
}

// MovementRequest asks the server to start moving the player.
type MovementRequest struct {
	Kind MovementTarget
}

func (*MovementRequest) Opcode() uint16 { return OpcodeMovementRequest }

func (p *MovementRequest) EncodeTo(w *Writer) {
	if p.Kind.HasDestination {
		w.U8(movementLocation)
		w.U16(p.Kind.Region)
		w.U16(p.Kind.X)
		w.U16(p.Kind.Y)
		w.U16(p.Kind.Z)
	} else {
		w.U8(movementDirection)
		w.U8(p.Kind.Unknown)
		w.U16(p.Kind.Angle)
	}
}

func (p *MovementRequest) DecodeFrom(r *Reader) error {
	switch r.U8() {
	case movementLocation:
		p.Kind.HasDestination = true
		p.Kind.Region = r.U16()
		p.Kind.X = r.U16()
		p.Kind.Y = r.U16()
		p.Kind.Z = r.U16()
	case movementDirection:
		p.Kind.HasDestination = false
		p.Kind.Unknown = r.U8()
		p.Kind.Angle = r.U16()
	default:
		return ErrInvalidDiscriminant
	}
	return nil
}

// MovementDestination is the server's echo of where an entity now heads:
// a location, or a heading with a moving flag.
type MovementDestination struct {
	HasLocation bool

	Region uint16
	X      uint16
	Y      uint16
	Z      uint16

	Moving  bool
	Heading uint16
}

// DestinationLocation builds a location destination.
func DestinationLocation(region, x, y, z uint16) MovementDestination {
	return MovementDestination{HasLocation: true, Region: region, X: x, Y: y, Z: z}
}

// DestinationDirection builds a free-direction destination.
func DestinationDirection(moving bool, heading uint16) MovementDestination {
	return MovementDestination{Moving: moving, Heading: heading}
}

// MovementSource is the position an entity moves from, in the compressed
// form the client expects.
type MovementSource struct {
	Region uint16
	X      uint16
	Y      float32
	Z      uint16
}

// MovementResponse announces an entity's new movement to every observer.
type MovementResponse struct {
	EntityID    uint32
	Destination MovementDestination
	Source      *MovementSource
}

func (*MovementResponse) Opcode() uint16 { return OpcodeMovementResponse }

func (p *MovementResponse) EncodeTo(w *Writer) {
	w.U32(p.EntityID)
	if p.Destination.HasLocation {
		w.U8(movementLocation)
		w.U16(p.Destination.Region)
		w.U16(p.Destination.X)
		w.U16(p.Destination.Y)
		w.U16(p.Destination.Z)
	} else {
		w.U8(movementDirection)
		w.Bool(p.Destination.Moving)
		w.U16(p.Destination.Heading)
	}
	if p.Source != nil {
		w.U8(1)
		w.U16(p.Source.Region)
		w.U16(p.Source.X)
		w.F32(p.Source.Y)
		w.U16(p.Source.Z)
	} else {
		w.U8(0)
	}
}

func (p *MovementResponse) DecodeFrom(r *Reader) error {
	p.EntityID = r.U32()
	switch r.U8() {
	case movementLocation:
		p.Destination.HasLocation = true
		p.Destination.Region = r.U16()
		p.Destination.X = r.U16()
		p.Destination.Y = r.U16()
		p.Destination.Z = r.U16()
	case movementDirection:
		p.Destination.Moving = r.Bool()
		p.Destination.Heading = r.U16()
	default:
		return ErrInvalidDiscriminant
	}
	if r.Bool() {
		p.Source = &MovementSource{
			Region: r.U16(),
			X:      r.U16(),
			Y:      r.F32(),
			Z:      r.U16(),
		}
	}
	return nil
}

// Rotation is the client turning in place while idle.
type Rotation struct {
	Heading uint16
}

func (*Rotation) Opcode() uint16 { return OpcodeRotation }

func (p *Rotation) EncodeTo(w *Writer) {
	w.U16(p.Heading)
}

func (p *Rotation) DecodeFrom(r *Reader) error {
	p.Heading = r.U16()
	return nil
}

// MovementInterrupt stops an entity's announced movement at its current
// position, typically because a higher-importance state replaced it.
type MovementInterrupt struct {
	EntityID uint32
	Position Position
}

func (*MovementInterrupt) Opcode() uint16 { return OpcodeMovementInterrupt }

func (p *MovementInterrupt) EncodeTo(w *Writer) {
	w.U32(p.EntityID)
	p.Position.encodeTo(w)
}

func (p *MovementInterrupt) DecodeFrom(r *Reader) error {
	p.EntityID = r.U32()
	p.Position.decodeFrom(r)
	return nil
}
