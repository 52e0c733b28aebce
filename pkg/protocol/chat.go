package protocol

// ChatChannel is where a chat message goes.
type ChatChannel byte

const (
	ChatChannelAll     ChatChannel = 1
	ChatChannelPrivate ChatChannel = 2
	ChatChannelParty   ChatChannel = 4
	ChatChannelGuild   ChatChannel = 5
	ChatChannelGlobal  ChatChannel = 6
	ChatChannelNotice  ChatChannel = 7
)

// ChatMessage is a client chat submission. Private messages carry the
// recipient's name.
type ChatMessage struct {
	Channel   ChatChannel
	Index     byte
	Recipient string
	Message   string
}

func (*ChatMessage) Opcode() uint16 { return OpcodeChatMessage }

func (p *ChatMessage) EncodeTo(w *Writer) {
	w.U8(byte(p.Channel))
	w.U8(p.Index)
	if p.Channel == ChatChannelPrivate {
		w.String(p.Recipient)
	}
	w.UTF16String(p.Message)
}

func (p *ChatMessage) DecodeFrom(r *Reader) error {
	p.Channel = ChatChannel(r.U8())
	p.Index = r.U8()
	if p.Channel == ChatChannelPrivate {
		p.Recipient = r.String()
	}
	p.Message = r.UTF16String()
	return nil
}

// ChatMessageResponse acknowledges a chat submission back to its sender.
type ChatMessageResponse struct {
	Success bool
	Channel ChatChannel
	Index   byte
}

func (*ChatMessageResponse) Opcode() uint16 { return OpcodeChatMessageResponse }

func (p *ChatMessageResponse) EncodeTo(w *Writer) {
	if p.Success {
		w.U8(1)
	} else {
		w.U8(2)
	}
	w.U8(byte(p.Channel))
	w.U8(p.Index)
}

func (p *ChatMessageResponse) DecodeFrom(r *Reader) error {
	p.Success = r.U8() == 1
	p.Channel = ChatChannel(r.U8())
	p.Index = r.U8()
	return nil
}

// ChatUpdate delivers someone else's chat line to an observer. All-chat
// carries the speaker's unique id, other channels the speaker's name.
type ChatUpdate struct {
	Channel  ChatChannel
	SourceID uint32
	Sender   string
	Message  string
}

func (*ChatUpdate) Opcode() uint16 { return OpcodeChatUpdate }

func (p *ChatUpdate) EncodeTo(w *Writer) {
	w.U8(byte(p.Channel))
	if p.Channel == ChatChannelAll {
		w.U32(p.SourceID)
	} else {
		w.String(p.Sender)
	}
	w.UTF16String(p.Message)
}

func (p *ChatUpdate) DecodeFrom(r *Reader) error {
	p.Channel = ChatChannel(r.U8())
	if p.Channel == ChatChannelAll {
		p.SourceID = r.U32()
	} else {
		p.Sender = r.String()
	}
	p.Message = r.UTF16String()
	return nil
}
