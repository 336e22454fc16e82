package core

import (
	"sort"

	"github.com/automoto/kitchen-mp/shared/netconfig"
)

// Conn is the server's handle on one transport connection.
type Conn interface {
	Id() string
	SendMessage(msg any) error
}

// Participant is an admitted connection and its player entity.
type Participant struct {
	ID     netconfig.ParticipantID
	Name   string
	Conn   Conn
	Holder *Holder
}

// Participants tracks admitted connections. It is only touched from the
// session's command thread.
type Participants struct {
	byID   map[netconfig.ParticipantID]*Participant
	byConn map[string]*Participant
}

func NewParticipants() *Participants {
	return &Participants{
		byID:   make(map[netconfig.ParticipantID]*Participant),
		byConn: make(map[string]*Participant),
	}
}

// NextID returns the lowest free participant id, starting at 1.
func (p *Participants) NextID() netconfig.ParticipantID {
	for id := netconfig.ParticipantID(1); ; id++ {
		if _, taken := p.byID[id]; !taken {
			return id
		}
	}
}

func (p *Participants) Add(part *Participant) {
	p.byID[part.ID] = part
	p.byConn[part.Conn.Id()] = part
}

// Remove drops the participant bound to conn, freeing its id for reuse.
func (p *Participants) Remove(conn Conn) (*Participant, bool) {
	part, ok := p.byConn[conn.Id()]
	if !ok {
		return nil, false
	}
	delete(p.byConn, conn.Id())
	delete(p.byID, part.ID)
	return part, true
}

func (p *Participants) ByConn(conn Conn) (*Participant, bool) {
	part, ok := p.byConn[conn.Id()]
	return part, ok
}

// IDs returns the connected ids in ascending order.
func (p *Participants) IDs() []netconfig.ParticipantID {
	ids := make([]netconfig.ParticipantID, 0, len(p.byID))
	for id := range p.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (p *Participants) Count() int { return len(p.byID) }

// Each calls fn for every participant in id order.
func (p *Participants) Each(fn func(*Participant)) {
	for _, id := range p.IDs() {
		fn(p.byID[id])
	}
}
