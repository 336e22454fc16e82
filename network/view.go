package network

import (
	"sort"

	"github.com/automoto/kitchen-mp/shared/catalog"
	"github.com/automoto/kitchen-mp/shared/holder"
	"github.com/automoto/kitchen-mp/shared/messages"
	"github.com/automoto/kitchen-mp/shared/netcomponents"
	"github.com/automoto/kitchen-mp/shared/netconfig"
	"github.com/automoto/kitchen-mp/shared/observer"
	"github.com/automoto/kitchen-mp/shared/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EntityState is one replicated entity with its decoded component values.
type EntityState struct {
	Ref        netconfig.NetRef
	Components []any
}

// ObjectView is the local replica of a shared object.
type ObjectView struct {
	ref    netconfig.NetRef
	kind   int
	parent netconfig.NetRef
}

func (o *ObjectView) Ref() netconfig.NetRef    { return o.ref }
func (o *ObjectView) Kind() int                { return o.kind }
func (o *ObjectView) Parent() netconfig.NetRef { return o.parent }

// ParentView is the local capability for a replicated holder.
type ParentView struct {
	*holder.Slot
	Type   netcomponents.HolderType
	Player *netcomponents.NetPlayerData // set for player holders
}

// Reparented describes an object moving between holders.
type Reparented struct {
	Object   netconfig.NetRef
	Previous netconfig.NetRef
	Current  netconfig.NetRef
}

// View mirrors the replicated match and objects. It is only touched from the
// goroutine that calls Client.Update.
type View struct {
	match   *session.Match
	catalog *catalog.Catalog
	logger  zerolog.Logger

	objects map[netconfig.NetRef]*ObjectView
	parents map[netconfig.NetRef]*ParentView

	spawned    observer.Event[*ObjectView]
	reparented observer.Event[Reparented]
	cleared    observer.Event[messages.ClearParentEvent]
	removed    observer.Event[netconfig.NetRef]
}

// NewView creates an empty replica. sendReady is forwarded to the match
// replica for the interact intent.
func NewView(cfg session.Config, cat *catalog.Catalog, sendReady func() error) *View {
	if cat == nil {
		cat = catalog.Default()
	}
	return &View{
		match:   session.NewReplica(cfg, sendReady),
		catalog: cat,
		logger:  log.With().Str("component", "view").Logger(),
		objects: make(map[netconfig.NetRef]*ObjectView),
		parents: make(map[netconfig.NetRef]*ParentView),
	}
}

func (v *View) Match() *session.Match { return v.match }

func (v *View) Catalog() *catalog.Catalog { return v.catalog }

// ApplySnapshot applies a full snapshot. Holders are applied before objects
// so an object can attach to a holder that arrived in the same snapshot.
// Entities missing from the snapshot are dropped.
func (v *View) ApplySnapshot(entities []EntityState) {
	present := make(map[netconfig.NetRef]bool, len(entities))
	var objects []EntityState

	for _, ent := range entities {
		present[ent.Ref] = true
		isObject := false
		for _, data := range ent.Components {
			if _, ok := data.(netcomponents.NetSharedObjectData); ok {
				isObject = true
			}
		}
		if isObject {
			objects = append(objects, ent)
			continue
		}
		v.applyEntity(ent)
	}
	for _, ent := range objects {
		v.applyEntity(ent)
	}

	v.sweep(present)
}

func (v *View) applyEntity(ent EntityState) {
	for _, data := range ent.Components {
		switch d := data.(type) {
		case netcomponents.NetGameStateData:
			if err := v.match.ApplyState(d); err != nil {
				v.logger.Error().Err(err).Msg("failed to apply game state")
			}
		case netcomponents.NetHolderData:
			v.parent(ent.Ref).Type = d.Type
		case netcomponents.NetPlayerData:
			p := d
			v.parent(ent.Ref).Player = &p
		case netcomponents.NetSharedObjectData:
			v.applyObject(ent.Ref, d)
		}
	}
}

func (v *View) parent(ref netconfig.NetRef) *ParentView {
	p, ok := v.parents[ref]
	if !ok {
		p = &ParentView{Slot: holder.NewSlot(ref, nil)}
		v.parents[ref] = p
	}
	return p
}

func (v *View) applyObject(ref netconfig.NetRef, d netcomponents.NetSharedObjectData) {
	obj, ok := v.objects[ref]
	if !ok {
		obj = &ObjectView{ref: ref, kind: d.Kind}
		v.objects[ref] = obj
		v.attach(obj, d.Parent)
		v.spawned.Emit(obj)
		return
	}
	obj.kind = d.Kind
	if obj.parent == d.Parent {
		return
	}
	prev := obj.parent
	v.detach(obj)
	v.attach(obj, d.Parent)
	v.reparented.Emit(Reparented{Object: ref, Previous: prev, Current: d.Parent})
}

// attach binds obj to the holder ref. The server is authoritative, so a
// stale local occupant is evicted.
func (v *View) attach(obj *ObjectView, ref netconfig.NetRef) {
	obj.parent = ref
	if ref == netconfig.NoRef {
		return
	}
	p, ok := v.parents[ref]
	if !ok {
		v.logger.Warn().Uint("ref", uint(obj.ref)).Uint("parent", uint(ref)).Msg("object parent not replicated")
		return
	}
	if !p.TryAcquire(obj) {
		p.Release()
		p.TryAcquire(obj)
	}
}

func (v *View) detach(obj *ObjectView) {
	if obj.parent == netconfig.NoRef {
		return
	}
	if p, ok := v.parents[obj.parent]; ok {
		if held, ok := p.Held(); ok && held.Ref() == obj.ref {
			p.Release()
		}
	}
	obj.parent = netconfig.NoRef
}

// ClearParent handles the server's notice that an object is about to be
// destroyed: the holder lets go of it right away.
func (v *View) ClearParent(evt messages.ClearParentEvent) {
	if obj, ok := v.objects[evt.Object]; ok {
		v.detach(obj)
	} else if p, ok := v.parents[evt.Parent]; ok {
		if held, ok := p.Held(); ok && held.Ref() == evt.Object {
			p.Release()
		}
	}
	v.cleared.Emit(evt)
}

func (v *View) sweep(present map[netconfig.NetRef]bool) {
	for ref, obj := range v.objects {
		if present[ref] {
			continue
		}
		v.detach(obj)
		delete(v.objects, ref)
		v.removed.Emit(ref)
	}
	for ref := range v.parents {
		if !present[ref] {
			delete(v.parents, ref)
		}
	}
}

// Object resolves a replicated object.
func (v *View) Object(ref netconfig.NetRef) (*ObjectView, bool) {
	o, ok := v.objects[ref]
	return o, ok
}

// Parent resolves a replicated holder.
func (v *View) Parent(ref netconfig.NetRef) (*ParentView, bool) {
	p, ok := v.parents[ref]
	return p, ok
}

// Objects returns the replicated objects ordered by ref.
func (v *View) Objects() []*ObjectView {
	out := make([]*ObjectView, 0, len(v.objects))
	for _, o := range v.objects {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ref < out[j].ref })
	return out
}

// Counters returns the refs of counter holders in ascending order.
func (v *View) Counters() []netconfig.NetRef {
	var refs []netconfig.NetRef
	for ref, p := range v.parents {
		if p.Type == netcomponents.HolderCounter {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	return refs
}

// Players returns the replicated player holders ordered by participant.
func (v *View) Players() []*ParentView {
	var out []*ParentView
	for _, p := range v.parents {
		if p.Player != nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Player.Participant < out[j].Player.Participant })
	return out
}

func (v *View) OnObjectSpawned(fn func(*ObjectView)) func() { return v.spawned.Subscribe(fn) }

func (v *View) OnObjectReparented(fn func(Reparented)) func() { return v.reparented.Subscribe(fn) }

// OnObjectCleared fires when the server announces an object's destruction.
func (v *View) OnObjectCleared(fn func(messages.ClearParentEvent)) func() {
	return v.cleared.Subscribe(fn)
}

func (v *View) OnObjectRemoved(fn func(netconfig.NetRef)) func() { return v.removed.Subscribe(fn) }
