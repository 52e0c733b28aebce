package protocol

// ActionError mirrors the client's result codes for failed or stopped
// actions.
type ActionError byte

const (
	ActionErrorCompleted              ActionError = 0x00
	ActionErrorObstacle               ActionError = 0x01
	ActionErrorNotLearned             ActionError = 0x03
	ActionErrorInsufficientMP         ActionError = 0x04
	ActionErrorCooldown               ActionError = 0x05
	ActionErrorInvalidTarget          ActionError = 0x06
	ActionErrorInvalidDistance        ActionError = 0x07
	ActionErrorBuffsIntersect         ActionError = 0x0C
	ActionErrorInvalidWeapon          ActionError = 0x0D
	ActionErrorInsufficientAmmunition ActionError = 0x0E
	ActionErrorWeaponBroken           ActionError = 0x0F
	ActionErrorObstacleInPath         ActionError = 0x10
	ActionErrorUntargetable           ActionError = 0x11
	ActionErrorInsufficientHP         ActionError = 0x13
)

// ActionTarget addresses what an action applies to.
type ActionTarget struct {
	Kind     ActionTargetKind
	EntityID uint32

	// Area fields, valid for ActionTargetArea.
	Region uint16
	X      float32
	Y      float32
	Z      float32
}

// ActionTargetKind is the ActionTarget union discriminant.
type ActionTargetKind byte

const (
	ActionTargetNone   ActionTargetKind = 0
	ActionTargetEntity ActionTargetKind = 1
	ActionTargetArea   ActionTargetKind = 2
)

func (t *ActionTarget) encodeTo(w *Writer) {
	w.U8(byte(t.Kind))
	switch t.Kind {
	case ActionTargetEntity:
		w.U32(t.EntityID)
	case ActionTargetArea:
		w.U16(t.Region)
		w.F32(t.X)
		w.F32(t.Y)
		w.F32(t.Z)
	}
}

func (t *ActionTarget) decodeFrom(r *Reader) error {
	t.Kind = ActionTargetKind(r.U8())
	switch t.Kind {
	case ActionTargetNone:
	case ActionTargetEntity:
		t.EntityID = r.U32()
	case ActionTargetArea:
		t.Region = r.U16()
		t.X = r.F32()
		t.Y = r.F32()
		t.Z = r.F32()
	default:
		return ErrInvalidDiscriminant
	}
	return nil
}

// ActionKind is what the client asks the server to do.
type ActionKind byte

const (
	ActionAttack     ActionKind = 1
	ActionPickupItem ActionKind = 2
	ActionUseSkill   ActionKind = 4
	ActionCancelBuff ActionKind = 5
)

// PerformAction is the client's action command: start something, or stop the
// current action.
type PerformAction struct {
	Stop bool

	// Do fields, valid when Stop is false.
	Kind    ActionKind
	SkillID uint32 // Only for UseSkill and CancelBuff.
	Target  ActionTarget
}

// PerformAction union discriminants.
const (
	performActionDo   byte = 1
	performActionStop byte = 2
)

func (*PerformAction) Opcode() uint16 { return OpcodePerformAction }

func (p *PerformAction) EncodeTo(w *Writer) {
	if p.Stop {
		w.U8(performActionStop)
		return
	}
	w.U8(performActionDo)
	w.U8(byte(p.Kind))
	if p.Kind == ActionUseSkill || p.Kind == ActionCancelBuff {
		w.U32(p.SkillID)
	}
	p.Target.encodeTo(w)
}

func (p *PerformAction) DecodeFrom(r *Reader) error {
	switch r.U8() {
	case performActionStop:
		p.Stop = true
		return nil
	case performActionDo:
	default:
		return ErrInvalidDiscriminant
	}

	p.Kind = ActionKind(r.U8())
	switch p.Kind {
	case ActionAttack, ActionPickupItem:
	case ActionUseSkill, ActionCancelBuff:
		p.SkillID = r.U32()
	default:
		return ErrInvalidDiscriminant
	}
	return p.Target.decodeFrom(r)
}

// PerformActionResponse acknowledges an action command.
type PerformActionResponse struct {
	Stop bool

	// Do branch: success or failure code.
	Success     bool
	FailureCode uint16

	// Stop branch: why the action ended.
	StopReason ActionError
}

// Do/Stop response codes on the do branch.
const (
	doActionSuccess byte = 1
	doActionFailure byte = 3
)

// ActionResponseSuccess builds a successful acknowledgement.
func ActionResponseSuccess() *PerformActionResponse {
	return &PerformActionResponse{Success: true}
}

// ActionResponseFailure builds a failed acknowledgement with the client's
// failure code.
func ActionResponseFailure(code ActionError) *PerformActionResponse {
	return &PerformActionResponse{FailureCode: uint16(code)}
}

// ActionResponseStop builds a stop notification.
func ActionResponseStop(reason ActionError) *PerformActionResponse {
	return &PerformActionResponse{Stop: true, StopReason: reason}
}

func (*PerformActionResponse) Opcode() uint16 { return OpcodePerformActionResponse }

func (p *PerformActionResponse) EncodeTo(w *Writer) {
	if p.Stop {
		w.U8(performActionStop)
		w.U8(byte(p.StopReason))
		return
	}
	w.U8(performActionDo)
	if p.Success {
		w.U8(doActionSuccess)
	} else {
		w.U8(doActionFailure)
		w.U16(p.FailureCode)
	}
}

func (p *PerformActionResponse) DecodeFrom(r *Reader) error {
	switch r.U8() {
	case performActionStop:
		p.Stop = true
		p.StopReason = ActionError(r.U8())
		return nil
	case performActionDo:
	default:
		return ErrInvalidDiscriminant
	}
	switch r.U8() {
	case doActionSuccess:
		p.Success = true
	case doActionFailure:
		p.FailureCode = r.U16()
	default:
		return ErrInvalidDiscriminant
	}
	return nil
}

// DamageKind distinguishes normal hits from criticals.
type DamageKind byte

const (
	DamageStandard DamageKind = 1
	DamageCritical DamageKind = 2
)

// DamageValue is one damage number dealt to a target.
type DamageValue struct {
	Kind   DamageKind
	Amount uint32
}

// SkillPartDamage flags on the wire.
const (
	damagePartDefault     byte = 0x00
	damagePartKillingBlow byte = 0x80
	damagePartAbort       byte = 0x08
)

// PerEntityDamage is the damage one skill execution dealt to one target.
type PerEntityDamage struct {
	Target      uint32
	Value       DamageValue
	KillingBlow bool
	Aborted     bool
}

func (d *PerEntityDamage) encodeTo(w *Writer) {
	w.U32(d.Target)
	switch {
	case d.Aborted:
		w.U8(damagePartAbort)
	case d.KillingBlow:
		w.U8(damagePartKillingBlow)
		w.U8(byte(d.Value.Kind))
		w.U32(d.Value.Amount)
		w.U16(0)
		w.U8(0)
	default:
		w.U8(damagePartDefault)
		w.U8(byte(d.Value.Kind))
		w.U32(d.Value.Amount)
		w.U16(0)
		w.U8(0)
	}
}

// ActionUpdateKind tags what a PerformActionUpdate reports.
type ActionUpdateKind byte

const (
	ActionUpdateNone   ActionUpdateKind = 0
	ActionUpdateAttack ActionUpdateKind = 1
)

// PerformActionUpdate reports a skill execution, optionally with the damage
// it dealt, to every observer of the source entity.
type PerformActionUpdate struct {
	Failure     bool
	FailureCode ActionError

	SkillID  uint32
	SourceID uint32
	Instance uint32
	TargetID uint32
	Kind     ActionUpdateKind
	Damage   []PerEntityDamage
}

func (*PerformActionUpdate) Opcode() uint16 { return OpcodePerformActionUpdate }

func (p *PerformActionUpdate) EncodeTo(w *Writer) {
	if p.Failure {
		w.U8(performActionStop)
		w.U8(byte(p.FailureCode))
		return
	}
	w.U8(performActionDo)
	w.U16(0x3002)
	w.U32(p.SkillID)
	w.U32(p.SourceID)
	w.U32(p.Instance)
	w.U32(0)
	w.U32(p.TargetID)
	w.U8(byte(p.Kind))
	if p.Kind == ActionUpdateAttack {
		if len(p.Damage) == 0 {
			w.U8(0)
			return
		}
		w.U8(1)
		w.U8(1) // damage instances per target
		w.U8(byte(len(p.Damage)))
		for i := range p.Damage {
			p.Damage[i].encodeTo(w)
		}
	}
}

func (p *PerformActionUpdate) DecodeFrom(r *Reader) error {
	// Outbound-only; decoding exists for tooling and tests.
	switch r.U8() {
	case performActionStop:
		p.Failure = true
		p.FailureCode = ActionError(r.U8())
		return nil
	case performActionDo:
	default:
		return ErrInvalidDiscriminant
	}
	r.U16()
	p.SkillID = r.U32()
	p.SourceID = r.U32()
	p.Instance = r.U32()
	r.U32()
	p.TargetID = r.U32()
	p.Kind = ActionUpdateKind(r.U8())
	if p.Kind == ActionUpdateAttack {
		if r.U8() == 0 {
			return nil
		}
		r.U8()
		count := int(r.U8())
		for i := 0; i < count; i++ {
			var d PerEntityDamage
			d.Target = r.U32()
			switch r.U8() {
			case damagePartAbort:
				d.Aborted = true
			case damagePartKillingBlow:
				d.KillingBlow = true
				d.Value.Kind = DamageKind(r.U8())
				d.Value.Amount = r.U32()
				r.U16()
				r.U8()
			default:
				d.Value.Kind = DamageKind(r.U8())
				d.Value.Amount = r.U32()
				r.U16()
				r.U8()
			}
			p.Damage = append(p.Damage, d)
		}
	}
	return nil
}
