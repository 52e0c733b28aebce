package protocol

// SpawnKind is the entity category carried in spawn packets; the client
// derives the concrete layout from the reference id, this tag only selects
// the trailing fields.
type SpawnKind byte

const (
	SpawnKindPlayer   SpawnKind = 1
	SpawnKindMonster  SpawnKind = 2
	SpawnKindNPC      SpawnKind = 3
	SpawnKindItemDrop SpawnKind = 4
)

// EntitySpawnData is the shared body of single and grouped spawns.
type EntitySpawnData struct {
	RefID    uint32
	UniqueID uint32
	Position Position
	Kind     SpawnKind

	// Player fields.
	Name string

	// Monster fields.
	Rarity byte

	// Item drop fields.
	OwnerID   uint32
	HasOwner  bool

	// NPC interaction options, has-more terminated.
	InteractOptions []byte
}

func (d *EntitySpawnData) encodeTo(w *Writer) {
	w.U32(d.RefID)
	w.U32(d.UniqueID)
	d.Position.encodeTo(w)
	w.U8(byte(d.Kind))
	switch d.Kind {
	case SpawnKindPlayer:
		w.String(d.Name)
	case SpawnKindMonster:
		w.U8(d.Rarity)
	case SpawnKindNPC:
		for _, option := range d.InteractOptions {
			w.U8(SeqElement)
			w.U8(option)
		}
		w.U8(SeqEnd)
	case SpawnKindItemDrop:
		if d.HasOwner {
			w.U8(1)
			w.U32(d.OwnerID)
		} else {
			w.U8(0)
		}
	}
}

func (d *EntitySpawnData) decodeFrom(r *Reader) error {
	d.RefID = r.U32()
	d.UniqueID = r.U32()
	d.Position.decodeFrom(r)
	d.Kind = SpawnKind(r.U8())
	switch d.Kind {
	case SpawnKindPlayer:
		d.Name = r.String()
	case SpawnKindMonster:
		d.Rarity = r.U8()
	case SpawnKindNPC:
		for {
			marker := r.U8()
			if marker == SeqEnd || r.Err() != nil {
				break
			}
			d.InteractOptions = append(d.InteractOptions, r.U8())
		}
	case SpawnKindItemDrop:
		if r.Bool() {
			d.HasOwner = true
			d.OwnerID = r.U32()
		}
	default:
		return ErrInvalidDiscriminant
	}
	return nil
}

// EntitySpawn announces a single entity entering the observer's view.
type EntitySpawn struct {
	Data EntitySpawnData
}

func (*EntitySpawn) Opcode() uint16 { return OpcodeEntitySpawn }

func (p *EntitySpawn) EncodeTo(w *Writer) {
	p.Data.encodeTo(w)
}

func (p *EntitySpawn) DecodeFrom(r *Reader) error {
	return p.Data.decodeFrom(r)
}

// EntityDespawn announces an entity leaving the observer's view.
type EntityDespawn struct {
	UniqueID uint32
}

func (*EntityDespawn) Opcode() uint16 { return OpcodeEntityDespawn }

func (p *EntityDespawn) EncodeTo(w *Writer) {
	w.U32(p.UniqueID)
}

func (p *EntityDespawn) DecodeFrom(r *Reader) error {
	p.UniqueID = r.U32()
	return nil
}

// GroupSpawnKind distinguishes batched spawns from batched despawns.
type GroupSpawnKind byte

const (
	GroupSpawn   GroupSpawnKind = 1
	GroupDespawn GroupSpawnKind = 2
)

// GroupSpawnStart opens a batched spawn/despawn sequence.
type GroupSpawnStart struct {
	Kind  GroupSpawnKind
	Count uint16
}

func (*GroupSpawnStart) Opcode() uint16 { return OpcodeGroupSpawnStart }

func (p *GroupSpawnStart) EncodeTo(w *Writer) {
	w.U8(byte(p.Kind))
	w.U16(p.Count)
}

func (p *GroupSpawnStart) DecodeFrom(r *Reader) error {
	p.Kind = GroupSpawnKind(r.U8())
	p.Count = r.U16()
	return nil
}

// GroupSpawnData carries the batch contents: spawn bodies or despawn ids,
// lengths implied by the surrounding start packet.
type GroupSpawnData struct {
	Kind     GroupSpawnKind
	Spawns   []EntitySpawnData
	Despawns []uint32
}

func (*GroupSpawnData) Opcode() uint16 { return OpcodeGroupSpawnData }

func (p *GroupSpawnData) EncodeTo(w *Writer) {
	if p.Kind == GroupDespawn {
		for _, id := range p.Despawns {
			w.U32(id)
		}
		return
	}
	for i := range p.Spawns {
		p.Spawns[i].encodeTo(w)
	}
}

func (p *GroupSpawnData) DecodeFrom(r *Reader) error {
	// The element count lives in the preceding GroupSpawnStart; on decode the
	// payload is consumed to exhaustion based on the kind set by the caller.
	if p.Kind == GroupDespawn {
		for r.Remaining() >= 4 {
			p.Despawns = append(p.Despawns, r.U32())
		}
		return nil
	}
	for r.Remaining() > 0 {
		var data EntitySpawnData
		if err := data.decodeFrom(r); err != nil {
			return err
		}
		p.Spawns = append(p.Spawns, data)
	}
	return nil
}

// GroupSpawnEnd closes a batched spawn/despawn sequence.
type GroupSpawnEnd struct{}

func (*GroupSpawnEnd) Opcode() uint16        { return OpcodeGroupSpawnEnd }
func (*GroupSpawnEnd) EncodeTo(*Writer)      {}
func (*GroupSpawnEnd) DecodeFrom(*Reader) error { return nil }
