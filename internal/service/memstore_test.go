package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/campus-booking/internal/booking"
	"github.com/iliyamo/campus-booking/internal/model"
	"github.com/iliyamo/campus-booking/internal/notify"
	"github.com/iliyamo/campus-booking/internal/repository"
)

// memState is everything memStore persists.  InTx works on a clone and
// swaps it in on success.
type memState struct {
	nextID        uint64
	users         map[uint64]model.User
	spaces        map[uint64]model.Space
	equipment     map[uint64]model.Equipment
	workshops     map[uint64]model.Workshop
	reservations  []model.Reservation
	documents     []model.ReservationDocument
	counters      map[string]int
	blocks        []model.RecurringBlock
	inscriptions  []model.Inscription
	notifications []model.Notification
}

func (s *memState) clone() *memState {
	c := *s
	c.users = cloneMap(s.users)
	c.spaces = cloneMap(s.spaces)
	c.equipment = cloneMap(s.equipment)
	c.workshops = cloneMap(s.workshops)
	c.counters = cloneMap(s.counters)
	c.reservations = append([]model.Reservation(nil), s.reservations...)
	c.documents = append([]model.ReservationDocument(nil), s.documents...)
	c.blocks = append([]model.RecurringBlock(nil), s.blocks...)
	c.inscriptions = append([]model.Inscription(nil), s.inscriptions...)
	c.notifications = append([]model.Notification(nil), s.notifications...)
	return &c
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// memStore is an in-memory Store.  Transactions are serialised by mu,
// which stands in for the row locks of the SQL store.
type memStore struct {
	mu  sync.Mutex
	st  *memState
	now func() time.Time
}

func newMemStore() *memStore {
	return &memStore{
		st: &memState{
			users:     map[uint64]model.User{},
			spaces:    map[uint64]model.Space{},
			equipment: map[uint64]model.Equipment{},
			workshops: map[uint64]model.Workshop{},
			counters:  map[string]int{},
		},
		now: func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) },
	}
}

func (m *memStore) id() uint64 {
	m.st.nextID++
	return m.st.nextID
}

// seeding helpers

func (m *memStore) addUser(first, last string, role model.Role) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := model.User{ID: m.id(), FirstName: first, LastName: last, Email: first + "@campus.test", Role: role, IsActive: true}
	m.st.users[u.ID] = u
	return u
}

func (m *memStore) addSpace(name string, responsible *uint64) model.Space {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.Space{ID: m.id(), DisplayID: "ES_" + name, Name: name, ResponsibleUserID: responsible, IsActive: true}
	m.st.spaces[s.ID] = s
	return s
}

func (m *memStore) addEquipment(name string, responsible, fixedTo *uint64) model.Equipment {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := model.Equipment{ID: m.id(), DisplayID: "EQ_" + name, Name: name, ResponsibleUserID: responsible, FixedToSpaceID: fixedTo, IsActive: true}
	m.st.equipment[e.ID] = e
	return e
}

func (m *memStore) addWorkshop(w model.Workshop) model.Workshop {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.ID = m.id()
	w.IsActive = true
	m.st.workshops[w.ID] = w
	return w
}

func (m *memStore) reservations() []model.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Reservation(nil), m.st.reservations...)
}

func (m *memStore) documents() []model.ReservationDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ReservationDocument(nil), m.st.documents...)
}

// Store

func (m *memStore) InTx(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	saved := m.st
	m.st = saved.clone()
	if err := fn(&memTx{m: m}); err != nil {
		m.st = saved
		return err
	}
	return nil
}

func (m *memStore) UserByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.st.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memStore) UsersByRoles(_ context.Context, roles ...model.Role) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.st.users {
		for _, r := range roles {
			if u.Role == r && u.IsActive {
				out = append(out, u)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.st.users {
		if x.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.ID = m.id()
	m.st.users[u.ID] = *u
	return nil
}

func (m *memStore) DisplayIDExists(_ context.Context, kind model.ResourceKind, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case model.KindSpace:
		for _, s := range m.st.spaces {
			if s.DisplayID == id {
				return true, nil
			}
		}
	case model.KindEquipment:
		for _, e := range m.st.equipment {
			if e.DisplayID == id {
				return true, nil
			}
		}
	case model.KindWorkshop:
		for _, w := range m.st.workshops {
			if w.DisplayID == id {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *memStore) CreateSpace(_ context.Context, s *model.Space) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	m.st.spaces[s.ID] = *s
	return nil
}

func (m *memStore) CreateEquipment(_ context.Context, e *model.Equipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.id()
	m.st.equipment[e.ID] = *e
	return nil
}

func (m *memStore) CreateWorkshop(_ context.Context, w *model.Workshop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.ID = m.id()
	m.st.workshops[w.ID] = *w
	return nil
}

func (m *memStore) UpdateSpace(_ context.Context, s *model.Space) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.st.spaces[s.ID]
	if !ok || !cur.IsActive {
		return repository.ErrNotFound
	}
	cur.Name, cur.Description, cur.Location = s.Name, s.Description, s.Location
	cur.Capacity, cur.ResponsibleUserID = s.Capacity, s.ResponsibleUserID
	m.st.spaces[s.ID] = cur
	*s = cur
	return nil
}

func (m *memStore) UpdateEquipment(_ context.Context, e *model.Equipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.st.equipment[e.ID]
	if !ok || !cur.IsActive {
		return repository.ErrNotFound
	}
	cur.Name, cur.Description, cur.SerialNumber, cur.FixedAssetID = e.Name, e.Description, e.SerialNumber, e.FixedAssetID
	cur.FixedToSpaceID, cur.ResponsibleUserID = e.FixedToSpaceID, e.ResponsibleUserID
	m.st.equipment[e.ID] = cur
	*e = cur
	return nil
}

func (m *memStore) UpdateWorkshop(_ context.Context, w *model.Workshop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.st.workshops[w.ID]
	if !ok || !cur.IsActive {
		return repository.ErrNotFound
	}
	cur.Name, cur.Description, cur.Teacher, cur.Capacity = w.Name, w.Description, w.Teacher, w.Capacity
	cur.StartDate, cur.EndDate = w.StartDate, w.EndDate
	cur.InscriptionsStartDate, cur.InscriptionsOpen = w.InscriptionsStartDate, w.InscriptionsOpen
	cur.ResponsibleUserID = w.ResponsibleUserID
	m.st.workshops[w.ID] = cur
	*w = cur
	return nil
}

func (m *memStore) DeactivateResource(_ context.Context, kind model.ResourceKind, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case model.KindSpace:
		if s, ok := m.st.spaces[id]; ok {
			s.IsActive = false
			m.st.spaces[id] = s
		}
	case model.KindEquipment:
		if e, ok := m.st.equipment[id]; ok {
			e.IsActive = false
			m.st.equipment[id] = e
		}
	case model.KindWorkshop:
		if w, ok := m.st.workshops[id]; ok {
			w.IsActive = false
			m.st.workshops[id] = w
		}
	}
	return nil
}

func (m *memStore) ListSpaces(context.Context, string) ([]model.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Space, 0, len(m.st.spaces))
	for _, s := range m.st.spaces {
		if s.IsActive {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListEquipment(context.Context, string) ([]model.Equipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Equipment, 0, len(m.st.equipment))
	for _, e := range m.st.equipment {
		if e.IsActive {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListWorkshops(context.Context, string) ([]model.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Workshop, 0, len(m.st.workshops))
	for _, w := range m.st.workshops {
		if w.IsActive {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetSpace(_ context.Context, id uint64) (model.Space, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.st.spaces[id]
	if !ok {
		return model.Space{}, repository.ErrNotFound
	}
	return s, nil
}

func (m *memStore) GetEquipment(_ context.Context, id uint64) (model.Equipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.st.equipment[id]
	if !ok {
		return model.Equipment{}, repository.ErrNotFound
	}
	return e, nil
}

func (m *memStore) GetWorkshop(_ context.Context, id uint64) (model.Workshop, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.st.workshops[id]
	if !ok {
		return model.Workshop{}, repository.ErrNotFound
	}
	return w, nil
}

func (m *memStore) FixedEquipment(_ context.Context, spaceIDs []uint64) ([]model.Equipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Equipment
	for _, e := range m.st.equipment {
		if !e.IsActive || e.FixedToSpaceID == nil {
			continue
		}
		for _, id := range spaceIDs {
			if *e.FixedToSpaceID == id {
				out = append(out, e)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) OpenDueInscriptions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, w := range m.st.workshops {
		if w.IsActive && !w.InscriptionsOpen && w.InscriptionsStartDate != nil && !w.InscriptionsStartDate.After(now) {
			w.InscriptionsOpen = true
			m.st.workshops[id] = w
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListReservations(_ context.Context, f repository.ReservationFilter) ([]model.ReservationItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ReservationItem
	for _, r := range m.st.reservations {
		it := m.item(r)
		if f.UserID != nil && r.UserID != *f.UserID {
			continue
		}
		if f.ResponsibleUserID != nil {
			resp := it.ResponsibleUserID()
			if resp == nil || *resp != *f.ResponsibleUserID {
				continue
			}
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (m *memStore) DeleteReservation(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, r := range m.st.reservations {
		if r.ID == id {
			m.st.reservations = append(m.st.reservations[:i], m.st.reservations[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) ListBlocks(context.Context) ([]model.RecurringBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.RecurringBlock(nil), m.st.blocks...), nil
}

func (m *memStore) DeleteBlock(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.st.blocks {
		if b.ID == id {
			m.st.blocks = append(m.st.blocks[:i], m.st.blocks[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) ListInscriptions(_ context.Context, f repository.InscriptionFilter) ([]model.InscriptionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.InscriptionItem
	for _, in := range m.st.inscriptions {
		it := m.inscriptionItem(in)
		if f.Status != "" && in.Status != f.Status {
			continue
		}
		if f.ResponsibleUserID != nil {
			resp := it.Workshop.ResponsibleUserID
			if resp == nil || *resp != *f.ResponsibleUserID {
				continue
			}
		}
		if f.WorkshopID != nil && in.WorkshopID != *f.WorkshopID {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (m *memStore) ListNotifications(_ context.Context, userID uint64) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Notification{}
	for _, n := range m.st.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) MarkNotificationRead(_ context.Context, userID, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.st.notifications {
		if n.ID == id && n.UserID == userID {
			m.st.notifications[i].IsRead = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memStore) MarkAllNotificationsRead(_ context.Context, userID uint64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i, x := range m.st.notifications {
		if x.UserID == userID && !x.IsRead {
			m.st.notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}

// Insert makes memStore the notify.Inbox of a dispatcher in tests.
func (m *memStore) Insert(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = m.id()
	m.st.notifications = append(m.st.notifications, *n)
	return nil
}

func (m *memStore) item(r model.Reservation) model.ReservationItem {
	u := m.st.users[r.UserID]
	it := model.ReservationItem{
		Reservation: r,
		User:        model.UserSummary{ID: u.ID, Name: u.FullName(), Email: u.Email},
	}
	if r.SpaceID != nil {
		s := m.st.spaces[*r.SpaceID]
		it.Space = &model.ResourceSummary{ID: s.ID, DisplayID: s.DisplayID, Name: s.Name, ResponsibleUserID: s.ResponsibleUserID}
	}
	if r.EquipmentID != nil {
		e := m.st.equipment[*r.EquipmentID]
		it.Equipment = &model.ResourceSummary{ID: e.ID, DisplayID: e.DisplayID, Name: e.Name, ResponsibleUserID: e.ResponsibleUserID}
	}
	return it
}

func (m *memStore) inscriptionItem(in model.Inscription) model.InscriptionItem {
	u := m.st.users[in.UserID]
	w := m.st.workshops[in.WorkshopID]
	return model.InscriptionItem{
		Inscription: in,
		User:        model.UserSummary{ID: u.ID, Name: u.FullName(), Email: u.Email},
		Workshop:    model.ResourceSummary{ID: w.ID, DisplayID: w.DisplayID, Name: w.Name, ResponsibleUserID: w.ResponsibleUserID},
	}
}

// memTx runs with memStore.mu held.
type memTx struct{ m *memStore }

func (t *memTx) LockResources(_ context.Context, refs []booking.ResourceRef) ([]model.Lock, error) {
	st := t.m.st
	out := make([]model.Lock, 0, len(refs))
	for _, ref := range refs {
		switch ref.Kind {
		case model.KindSpace:
			s, ok := st.spaces[ref.ID]
			if !ok || !s.IsActive {
				return nil, repository.ErrNotFound
			}
			out = append(out, model.Lock{Kind: ref.Kind, ID: s.ID, Name: s.Name, ResponsibleUserID: s.ResponsibleUserID})
		case model.KindEquipment:
			e, ok := st.equipment[ref.ID]
			if !ok || !e.IsActive {
				return nil, repository.ErrNotFound
			}
			out = append(out, model.Lock{Kind: ref.Kind, ID: e.ID, Name: e.Name, ResponsibleUserID: e.ResponsibleUserID, FixedToSpaceID: e.FixedToSpaceID})
		default:
			return nil, repository.ErrNotFound
		}
	}
	return out, nil
}

func (t *memTx) ActiveBookings(_ context.Context, refs []booking.ResourceRef, window booking.Interval) ([]booking.Booked, error) {
	want := make(map[booking.ResourceRef]bool, len(refs))
	for _, r := range refs {
		want[r] = true
	}
	var out []booking.Booked
	for _, r := range t.m.st.reservations {
		b := booking.BookedFrom(r)
		if r.Status == model.ReservationRejected || !want[b.Ref] || !booking.Overlaps(b.Interval, window) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (t *memTx) BlocksOverlapping(context.Context, time.Time, time.Time) ([]model.RecurringBlock, error) {
	return append([]model.RecurringBlock(nil), t.m.st.blocks...), nil
}

func (t *memTx) CartMember(_ context.Context, cart string) (repository.CartMember, bool, error) {
	for _, r := range t.m.st.reservations {
		if r.CartSubmissionID != nil && *r.CartSubmissionID == cart {
			return repository.CartMember{DisplayID: r.DisplayID, UserID: r.UserID}, true, nil
		}
	}
	return repository.CartMember{}, false, nil
}

func (t *memTx) NextCounter(_ context.Context, day string) (int, error) {
	t.m.st.counters[day]++
	return t.m.st.counters[day], nil
}

func (t *memTx) InsertReservation(_ context.Context, r *model.Reservation) error {
	r.ID = t.m.id()
	r.CreatedAt = t.m.now()
	r.UpdatedAt = r.CreatedAt
	t.m.st.reservations = append(t.m.st.reservations, *r)
	return nil
}

func (t *memTx) InsertDocument(_ context.Context, d *model.ReservationDocument) error {
	d.ID = t.m.id()
	t.m.st.documents = append(t.m.st.documents, *d)
	return nil
}

func (t *memTx) reservation(id uint64) (int, bool) {
	for i, r := range t.m.st.reservations {
		if r.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (t *memTx) LockReservation(_ context.Context, id uint64) (model.ReservationItem, error) {
	i, ok := t.reservation(id)
	if !ok {
		return model.ReservationItem{}, repository.ErrNotFound
	}
	return t.m.item(t.m.st.reservations[i]), nil
}

func (t *memTx) UpdateReservationStatus(_ context.Context, c repository.StatusChange) error {
	i, ok := t.reservation(c.ID)
	if !ok || t.m.st.reservations[i].Status != model.ReservationPending {
		return repository.ErrConflict
	}
	r := &t.m.st.reservations[i]
	r.Status, r.ApprovedByUserID, r.ApprovedAt = c.Status, c.ApprovedBy, c.ApprovedAt
	return nil
}

func (t *memTx) CheckOut(_ context.Context, id, by uint64, at time.Time) error {
	i, ok := t.reservation(id)
	if !ok {
		return repository.ErrConflict
	}
	r := &t.m.st.reservations[i]
	if r.Status != model.ReservationApproved || r.CheckedOutAt != nil || r.EquipmentID == nil {
		return repository.ErrConflict
	}
	r.CheckedOutAt, r.CheckedOutByUserID = &at, &by
	return nil
}

func (t *memTx) CheckIn(_ context.Context, id, by uint64, at time.Time) error {
	i, ok := t.reservation(id)
	if !ok {
		return repository.ErrConflict
	}
	r := &t.m.st.reservations[i]
	if r.CheckedOutAt == nil || r.CheckedInAt != nil {
		return repository.ErrConflict
	}
	r.CheckedInAt, r.CheckedInByUserID = &at, &by
	return nil
}

func (t *memTx) InsertBlock(_ context.Context, b *model.RecurringBlock) error {
	b.ID = t.m.id()
	t.m.st.blocks = append(t.m.st.blocks, *b)
	return nil
}

func (t *memTx) LockWorkshop(_ context.Context, id uint64) (model.Workshop, error) {
	w, ok := t.m.st.workshops[id]
	if !ok || !w.IsActive {
		return model.Workshop{}, repository.ErrNotFound
	}
	return w, nil
}

func (t *memTx) CountActiveInscriptions(_ context.Context, workshopID uint64) (int, error) {
	n := 0
	for _, in := range t.m.st.inscriptions {
		if in.WorkshopID == workshopID && (in.Status == model.InscriptionPending || in.Status == model.InscriptionApproved) {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertInscription(_ context.Context, in *model.Inscription) error {
	for _, x := range t.m.st.inscriptions {
		if x.WorkshopID == in.WorkshopID && x.UserID == in.UserID {
			return repository.ErrDuplicate
		}
	}
	in.ID = t.m.id()
	t.m.st.inscriptions = append(t.m.st.inscriptions, *in)
	return nil
}

func (t *memTx) LockInscription(_ context.Context, id uint64) (model.InscriptionItem, error) {
	for _, in := range t.m.st.inscriptions {
		if in.ID == id {
			return t.m.inscriptionItem(in), nil
		}
	}
	return model.InscriptionItem{}, repository.ErrNotFound
}

func (t *memTx) UpdateInscriptionStatus(_ context.Context, c repository.InscriptionChange) error {
	for i, in := range t.m.st.inscriptions {
		if in.ID == c.ID {
			if in.Status != c.From {
				return repository.ErrConflict
			}
			by, at := c.DecidedBy, c.DecidedAt
			t.m.st.inscriptions[i].Status = c.Status
			t.m.st.inscriptions[i].ApprovedByUserID = &by
			t.m.st.inscriptions[i].DecidedAt = &at
			return nil
		}
	}
	return repository.ErrConflict
}

// memNotifier records every message handed to it.
type memNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (n *memNotifier) Notify(_ context.Context, msgs ...notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msgs...)
	return n.err
}

func (n *memNotifier) sent() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.msgs...)
}

func (n *memNotifier) recipients() map[uint64]int {
	out := map[uint64]int{}
	for _, m := range n.sent() {
		out[m.RecipientID]++
	}
	return out
}

var (
	_ Store = (*memStore)(nil)
	_ Tx    = (*memTx)(nil)
	_ Store = (*SQLStore)(nil)
	_ Tx    = (*repository.Tx)(nil)
)
