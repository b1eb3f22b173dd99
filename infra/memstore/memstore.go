package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kerbrat/tripcast/core/model"
	"github.com/kerbrat/tripcast/core/store"
)

// Store is a mutex-guarded in-memory document store implementing every core
// store interface. It backs tests and single-process deployments.
type Store struct {
	mu        sync.RWMutex
	vehicles  map[string]map[string]model.Vehicle
	orders    map[string]map[string]model.PendingOrder
	trips     map[string]map[string]model.Trip
	forecasts map[string]map[string]model.Forecast
	queue     map[string]map[string]model.RecalcEntry
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		vehicles:  map[string]map[string]model.Vehicle{},
		orders:    map[string]map[string]model.PendingOrder{},
		trips:     map[string]map[string]model.Trip{},
		forecasts: map[string]map[string]model.Forecast{},
		queue:     map[string]map[string]model.RecalcEntry{},
	}
}

// PutVehicle inserts or replaces a vehicle, assigning an ID when absent.
func (s *Store) PutVehicle(v model.Vehicle) model.Vehicle {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	s.mu.Lock()
	if s.vehicles[v.OrgID] == nil {
		s.vehicles[v.OrgID] = map[string]model.Vehicle{}
	}
	s.vehicles[v.OrgID][v.ID] = v
	s.mu.Unlock()
	return v
}

// PutOrder inserts or replaces a pending order, assigning an ID when absent.
func (s *Store) PutOrder(o model.PendingOrder) model.PendingOrder {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	s.mu.Lock()
	if s.orders[o.OrgID] == nil {
		s.orders[o.OrgID] = map[string]model.PendingOrder{}
	}
	s.orders[o.OrgID][o.ID] = o
	s.mu.Unlock()
	return o
}

// DeleteOrder removes an order if present.
func (s *Store) DeleteOrder(orgID, orderID string) {
	s.mu.Lock()
	delete(s.orders[orgID], orderID)
	s.mu.Unlock()
}

// Order returns one order by ID.
func (s *Store) Order(orgID, orderID string) (model.PendingOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orgID][orderID]
	return o, ok
}

// PutTrip inserts or replaces a trip, assigning an ID when absent.
func (s *Store) PutTrip(tr model.Trip) model.Trip {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	s.mu.Lock()
	if s.trips[tr.OrgID] == nil {
		s.trips[tr.OrgID] = map[string]model.Trip{}
	}
	s.trips[tr.OrgID][tr.ID] = tr
	s.mu.Unlock()
	return tr
}

func (s *Store) Vehicle(_ context.Context, orgID, vehicleID string) (model.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[orgID][vehicleID]
	if !ok {
		return model.Vehicle{}, store.ErrNotFound
	}
	return v, nil
}

func (s *Store) ActiveVehicles(_ context.Context, orgID string) ([]model.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.Vehicle
	for _, v := range s.vehicles[orgID] {
		if v.Active {
			res = append(res, v)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *Store) PendingByVehicle(_ context.Context, orgID, vehicleID string) ([]model.PendingOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.PendingOrder
	for _, o := range s.orders[orgID] {
		if o.Status == model.OrderPending && o.SuggestedVehicleID == vehicleID {
			res = append(res, o)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *Store) PendingByOrg(_ context.Context, orgID string) ([]model.PendingOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.PendingOrder
	for _, o := range s.orders[orgID] {
		if o.Status == model.OrderPending {
			res = append(res, o)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *Store) SetEDD(_ context.Context, orgID, orderID string, edd model.EDD) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orgID][orderID]
	if !ok {
		return store.ErrNotFound
	}
	o.EDD = &edd
	s.orders[orgID][orderID] = o
	return nil
}

func (s *Store) CommittedByVehicle(_ context.Context, orgID, vehicleID, from, to string) ([]model.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.Trip
	for _, tr := range s.trips[orgID] {
		if tr.VehicleID != vehicleID || !tr.Status.Committed() {
			continue
		}
		if tr.Date < from || tr.Date > to {
			continue
		}
		res = append(res, tr)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Date < res[j].Date })
	return res, nil
}

func (s *Store) DispatchedByOrder(_ context.Context, orgID, orderID string) ([]model.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.Trip
	for _, tr := range s.trips[orgID] {
		if tr.OrderID == orderID && tr.Status == model.TripDispatched {
			res = append(res, tr)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *Store) Forecast(_ context.Context, orgID, vehicleID string) (model.Forecast, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fc, ok := s.forecasts[orgID][vehicleID]
	if !ok {
		return model.Forecast{}, store.ErrNotFound
	}
	// Readers must never observe or mutate the live map.
	fc.FreeSlots = fc.CloneSlots()
	return fc, nil
}

func (s *Store) PutForecast(_ context.Context, orgID string, f model.Forecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.forecasts[orgID] == nil {
		s.forecasts[orgID] = map[string]model.Forecast{}
	}
	f.FreeSlots = f.CloneSlots()
	s.forecasts[orgID][f.VehicleID] = f
	return nil
}

func (s *Store) Upsert(_ context.Context, e model.RecalcEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue[e.OrgID] == nil {
		s.queue[e.OrgID] = map[string]model.RecalcEntry{}
	}
	if prev, ok := s.queue[e.OrgID][e.VehicleID]; ok {
		e.EnqueuedAt = prev.EnqueuedAt
	}
	s.queue[e.OrgID][e.VehicleID] = e
	return nil
}

func (s *Store) Due(_ context.Context, orgID string, now time.Time) ([]model.RecalcEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []model.RecalcEntry
	for _, e := range s.queue[orgID] {
		if !e.ScheduledAt.After(now) {
			res = append(res, e)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ScheduledAt.Before(res[j].ScheduledAt) })
	return res, nil
}

func (s *Store) Delete(_ context.Context, orgID, vehicleID string) error {
	s.mu.Lock()
	delete(s.queue[orgID], vehicleID)
	if len(s.queue[orgID]) == 0 {
		delete(s.queue, orgID)
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) Orgs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orgs := make([]string, 0, len(s.queue))
	for orgID := range s.queue {
		orgs = append(orgs, orgID)
	}
	sort.Strings(orgs)
	return orgs, nil
}

// Entry returns the live queue entry for a vehicle, if any.
func (s *Store) Entry(orgID, vehicleID string) (model.RecalcEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.queue[orgID][vehicleID]
	return e, ok
}
