package protocol

// TargetEntity asks to select an entity as the player's target.
type TargetEntity struct {
	UniqueID uint32
}

func (*TargetEntity) Opcode() uint16 { return OpcodeTargetEntity }

func (p *TargetEntity) EncodeTo(w *Writer) {
	w.U32(p.UniqueID)
}

func (p *TargetEntity) DecodeFrom(r *Reader) error {
	p.UniqueID = r.U32()
	return nil
}

// TargetError mirrors the client's target failure codes.
type TargetError byte

const (
	TargetErrorInvalidTarget TargetError = 0x04
	TargetErrorOutOfRange    TargetError = 0x05
	TargetErrorDead          TargetError = 0x06
)

// TargetEntityResponse answers a target request. On success it carries the
// targeted entity and, for monsters, its remaining health.
type TargetEntityResponse struct {
	Success  bool
	Failure  TargetError
	UniqueID uint32
	Health   uint32
	HasHealth bool
}

func (*TargetEntityResponse) Opcode() uint16 { return OpcodeTargetEntityResponse }

func (p *TargetEntityResponse) EncodeTo(w *Writer) {
	if !p.Success {
		w.U8(2)
		w.U8(byte(p.Failure))
		return
	}
	w.U8(1)
	w.U32(p.UniqueID)
	if p.HasHealth {
		w.U8(1)
		w.U32(p.Health)
	} else {
		w.U8(0)
	}
}

func (p *TargetEntityResponse) DecodeFrom(r *Reader) error {
	switch r.U8() {
	case 1:
		p.Success = true
		p.UniqueID = r.U32()
		if r.Bool() {
			p.HasHealth = true
			p.Health = r.U32()
		}
	case 2:
		p.Failure = TargetError(r.U8())
	default:
		return ErrInvalidDiscriminant
	}
	return nil
}

// UntargetEntity clears the player's target.
type UntargetEntity struct {
	UniqueID uint32
}

func (*UntargetEntity) Opcode() uint16 { return OpcodeUntargetEntity }

func (p *UntargetEntity) EncodeTo(w *Writer) {
	w.U32(p.UniqueID)
}

func (p *UntargetEntity) DecodeFrom(r *Reader) error {
	p.UniqueID = r.U32()
	return nil
}

// UntargetResponse acknowledges clearing the target.
type UntargetResponse struct {
	Success bool
}

func (*UntargetResponse) Opcode() uint16 { return OpcodeUntargetResponse }

func (p *UntargetResponse) EncodeTo(w *Writer) {
	if p.Success {
		w.U8(1)
	} else {
		w.U8(2)
	}
}

func (p *UntargetResponse) DecodeFrom(r *Reader) error {
	p.Success = r.U8() == 1
	return nil
}

// EntityLifeState is the client's alive/dead wire code.
type EntityLifeState byte

const (
	LifeStateAlive EntityLifeState = 1
	LifeStateDead  EntityLifeState = 2
)

// UpdatedState selects which aspect of an entity EntityUpdateState carries.
type UpdatedState byte

const (
	UpdateStateLife   UpdatedState = 0
	UpdateStateMotion UpdatedState = 1
	UpdateStateBody   UpdatedState = 4
)

// EntityUpdateState broadcasts a one-byte state flip (alive/dead, walk/run,
// body stance) for an entity.
type EntityUpdateState struct {
	UniqueID uint32
	Kind     UpdatedState
	Value    byte
}

func (*EntityUpdateState) Opcode() uint16 { return OpcodeEntityUpdateState }

func (p *EntityUpdateState) EncodeTo(w *Writer) {
	w.U32(p.UniqueID)
	w.U8(byte(p.Kind))
	w.U8(p.Value)
}

func (p *EntityUpdateState) DecodeFrom(r *Reader) error {
	p.UniqueID = r.U32()
	p.Kind = UpdatedState(r.U8())
	p.Value = r.U8()
	return nil
}

// EntityBarsUpdate broadcasts an entity's health/mana after a change.
type EntityBarsUpdate struct {
	SourceID uint32
	TargetID uint32
	Health   uint32
	Mana     uint32
}

func (*EntityBarsUpdate) Opcode() uint16 { return OpcodeEntityBarsUpdate }

func (p *EntityBarsUpdate) EncodeTo(w *Writer) {
	w.U32(p.SourceID)
	w.U32(p.TargetID)
	w.U8(0)
	w.U8(0x10) // health and mana both present
	w.U32(p.Health)
	w.U32(p.Mana)
}

func (p *EntityBarsUpdate) DecodeFrom(r *Reader) error {
	p.SourceID = r.U32()
	p.TargetID = r.U32()
	r.U8()
	r.U8()
	p.Health = r.U32()
	p.Mana = r.U32()
	return nil
}
