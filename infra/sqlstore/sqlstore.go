package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/kerbrat/tripcast/core/model"
	"github.com/kerbrat/tripcast/core/store"
)

// Store persists the engine's documents in a SQL database. Vehicles, orders
// and forecasts are stored as JSON documents with the columns the engine
// filters on lifted out. Supported drivers: "sqlite" (modernc) and "pgx".
type Store struct {
	db     *sql.DB
	driver string
}

const schema = `
CREATE TABLE IF NOT EXISTS vehicles (
    org_id TEXT NOT NULL,
    id TEXT NOT NULL,
    active INTEGER NOT NULL,
    doc TEXT NOT NULL,
    PRIMARY KEY (org_id, id)
);
CREATE TABLE IF NOT EXISTS orders (
    org_id TEXT NOT NULL,
    id TEXT NOT NULL,
    status TEXT NOT NULL,
    suggested_vehicle_id TEXT NOT NULL,
    doc TEXT NOT NULL,
    PRIMARY KEY (org_id, id)
);
CREATE TABLE IF NOT EXISTS trips (
    org_id TEXT NOT NULL,
    id TEXT NOT NULL,
    vehicle_id TEXT NOT NULL,
    order_id TEXT NOT NULL,
    trip_date TEXT NOT NULL,
    status TEXT NOT NULL,
    doc TEXT NOT NULL,
    PRIMARY KEY (org_id, id)
);
CREATE TABLE IF NOT EXISTS forecasts (
    org_id TEXT NOT NULL,
    vehicle_id TEXT NOT NULL,
    doc TEXT NOT NULL,
    PRIMARY KEY (org_id, vehicle_id)
);
CREATE TABLE IF NOT EXISTS recalc_queue (
    org_id TEXT NOT NULL,
    vehicle_id TEXT NOT NULL,
    scheduled_at INTEGER NOT NULL,
    enqueued_at INTEGER NOT NULL,
    PRIMARY KEY (org_id, vehicle_id)
);`

// Open opens or creates the database and ensures the schema. driver must be
// "sqlite" or "pgx"; dsn is a file path for sqlite or a connection URL for
// postgres.
func Open(driver, dsn string) (*Store, error) {
	if driver != "sqlite" && driver != "pgx" {
		return nil, fmt.Errorf("sqlstore: unknown driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			if cerr := db.Close(); cerr != nil {
				return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
			}
			return nil, err
		}
	}
	return &Store{db: db, driver: driver}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// rebind rewrites ? placeholders to $n for the pgx driver.
func (s *Store) rebind(query string) string {
	if s.driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PutVehicle inserts or replaces a vehicle, assigning an ID when absent.
func (s *Store) PutVehicle(ctx context.Context, v model.Vehicle) (model.Vehicle, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	doc, err := json.Marshal(v)
	if err != nil {
		return v, err
	}
	active := 0
	if v.Active {
		active = 1
	}
	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO vehicles (org_id, id, active, doc) VALUES (?, ?, ?, ?)
         ON CONFLICT (org_id, id) DO UPDATE SET active = excluded.active, doc = excluded.doc`),
		v.OrgID, v.ID, active, string(doc))
	return v, err
}

func (s *Store) Vehicle(ctx context.Context, orgID, vehicleID string) (model.Vehicle, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT doc FROM vehicles WHERE org_id = ? AND id = ?`), orgID, vehicleID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Vehicle{}, store.ErrNotFound
	}
	if err != nil {
		return model.Vehicle{}, err
	}
	var v model.Vehicle
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return model.Vehicle{}, fmt.Errorf("unmarshal vehicle: %w", err)
	}
	return v, nil
}

func (s *Store) ActiveVehicles(ctx context.Context, orgID string) ([]model.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT doc FROM vehicles WHERE org_id = ? AND active = 1 ORDER BY id`), orgID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Vehicle
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var v model.Vehicle
		if err := json.Unmarshal([]byte(doc), &v); err != nil {
			return nil, fmt.Errorf("unmarshal vehicle: %w", err)
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

// PutOrder inserts or replaces a pending order, assigning an ID when absent.
func (s *Store) PutOrder(ctx context.Context, o model.PendingOrder) (model.PendingOrder, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	doc, err := json.Marshal(o)
	if err != nil {
		return o, err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO orders (org_id, id, status, suggested_vehicle_id, doc) VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (org_id, id) DO UPDATE SET status = excluded.status,
           suggested_vehicle_id = excluded.suggested_vehicle_id, doc = excluded.doc`),
		o.OrgID, o.ID, string(o.Status), o.SuggestedVehicleID, string(doc))
	return o, err
}

// DeleteOrder removes an order.
func (s *Store) DeleteOrder(ctx context.Context, orgID, orderID string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`DELETE FROM orders WHERE org_id = ? AND id = ?`), orgID, orderID)
	return err
}

// Order returns one order by ID.
func (s *Store) Order(ctx context.Context, orgID, orderID string) (model.PendingOrder, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT doc FROM orders WHERE org_id = ? AND id = ?`), orgID, orderID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PendingOrder{}, store.ErrNotFound
	}
	if err != nil {
		return model.PendingOrder{}, err
	}
	var o model.PendingOrder
	if err := json.Unmarshal([]byte(doc), &o); err != nil {
		return model.PendingOrder{}, fmt.Errorf("unmarshal order: %w", err)
	}
	return o, nil
}

func (s *Store) PendingByVehicle(ctx context.Context, orgID, vehicleID string) ([]model.PendingOrder, error) {
	return s.queryOrders(ctx, s.rebind(
		`SELECT doc FROM orders WHERE org_id = ? AND status = ? AND suggested_vehicle_id = ? ORDER BY id`),
		orgID, string(model.OrderPending), vehicleID)
}

func (s *Store) PendingByOrg(ctx context.Context, orgID string) ([]model.PendingOrder, error) {
	return s.queryOrders(ctx, s.rebind(
		`SELECT doc FROM orders WHERE org_id = ? AND status = ? ORDER BY id`),
		orgID, string(model.OrderPending))
}

func (s *Store) queryOrders(ctx context.Context, query string, args ...any) ([]model.PendingOrder, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.PendingOrder
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var o model.PendingOrder
		if err := json.Unmarshal([]byte(doc), &o); err != nil {
			return nil, fmt.Errorf("unmarshal order: %w", err)
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

func (s *Store) SetEDD(ctx context.Context, orgID, orderID string, edd model.EDD) error {
	o, err := s.Order(ctx, orgID, orderID)
	if err != nil {
		return err
	}
	o.EDD = &edd
	_, err = s.PutOrder(ctx, o)
	return err
}

// PutTrip inserts or replaces a trip, assigning an ID when absent.
func (s *Store) PutTrip(ctx context.Context, tr model.Trip) (model.Trip, error) {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	doc, err := json.Marshal(tr)
	if err != nil {
		return tr, err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO trips (org_id, id, vehicle_id, order_id, trip_date, status, doc) VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (org_id, id) DO UPDATE SET vehicle_id = excluded.vehicle_id,
           order_id = excluded.order_id, trip_date = excluded.trip_date,
           status = excluded.status, doc = excluded.doc`),
		tr.OrgID, tr.ID, tr.VehicleID, tr.OrderID, tr.Date, string(tr.Status), string(doc))
	return tr, err
}

func (s *Store) CommittedByVehicle(ctx context.Context, orgID, vehicleID, from, to string) ([]model.Trip, error) {
	committed := []any{
		string(model.TripScheduled), string(model.TripDispatched),
		string(model.TripDelivered), string(model.TripReturned),
	}
	args := append([]any{orgID, vehicleID, from, to}, committed...)
	return s.queryTrips(ctx, s.rebind(
		`SELECT doc FROM trips WHERE org_id = ? AND vehicle_id = ? AND trip_date >= ? AND trip_date <= ?
         AND status IN (?, ?, ?, ?) ORDER BY trip_date`), args...)
}

func (s *Store) DispatchedByOrder(ctx context.Context, orgID, orderID string) ([]model.Trip, error) {
	return s.queryTrips(ctx, s.rebind(
		`SELECT doc FROM trips WHERE org_id = ? AND order_id = ? AND status = ? ORDER BY id`),
		orgID, orderID, string(model.TripDispatched))
}

func (s *Store) queryTrips(ctx context.Context, query string, args ...any) ([]model.Trip, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.Trip
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var tr model.Trip
		if err := json.Unmarshal([]byte(doc), &tr); err != nil {
			return nil, fmt.Errorf("unmarshal trip: %w", err)
		}
		res = append(res, tr)
	}
	return res, rows.Err()
}

func (s *Store) Forecast(ctx context.Context, orgID, vehicleID string) (model.Forecast, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT doc FROM forecasts WHERE org_id = ? AND vehicle_id = ?`), orgID, vehicleID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Forecast{}, store.ErrNotFound
	}
	if err != nil {
		return model.Forecast{}, err
	}
	var fc model.Forecast
	if err := json.Unmarshal([]byte(doc), &fc); err != nil {
		return model.Forecast{}, fmt.Errorf("unmarshal forecast: %w", err)
	}
	return fc, nil
}

func (s *Store) PutForecast(ctx context.Context, orgID string, f model.Forecast) error {
	doc, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO forecasts (org_id, vehicle_id, doc) VALUES (?, ?, ?)
         ON CONFLICT (org_id, vehicle_id) DO UPDATE SET doc = excluded.doc`),
		orgID, f.VehicleID, string(doc))
	return err
}

func (s *Store) Upsert(ctx context.Context, e model.RecalcEntry) error {
	// On conflict only scheduled_at moves; enqueued_at keeps marking the
	// first write of the burst.
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO recalc_queue (org_id, vehicle_id, scheduled_at, enqueued_at) VALUES (?, ?, ?, ?)
         ON CONFLICT (org_id, vehicle_id) DO UPDATE SET scheduled_at = excluded.scheduled_at`),
		e.OrgID, e.VehicleID, e.ScheduledAt.Unix(), e.EnqueuedAt.Unix())
	return err
}

func (s *Store) Due(ctx context.Context, orgID string, now time.Time) ([]model.RecalcEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT vehicle_id, scheduled_at, enqueued_at FROM recalc_queue
         WHERE org_id = ? AND scheduled_at <= ? ORDER BY scheduled_at`),
		orgID, now.Unix())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []model.RecalcEntry
	for rows.Next() {
		var vehicleID string
		var scheduledAt, enqueuedAt int64
		if err := rows.Scan(&vehicleID, &scheduledAt, &enqueuedAt); err != nil {
			return nil, err
		}
		res = append(res, model.RecalcEntry{
			VehicleID:   vehicleID,
			OrgID:       orgID,
			ScheduledAt: time.Unix(scheduledAt, 0).UTC(),
			EnqueuedAt:  time.Unix(enqueuedAt, 0).UTC(),
		})
	}
	return res, rows.Err()
}

func (s *Store) Delete(ctx context.Context, orgID, vehicleID string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`DELETE FROM recalc_queue WHERE org_id = ? AND vehicle_id = ?`), orgID, vehicleID)
	return err
}

func (s *Store) Orgs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT org_id FROM recalc_queue ORDER BY org_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []string
	for rows.Next() {
		var orgID string
		if err := rows.Scan(&orgID); err != nil {
			return nil, err
		}
		res = append(res, orgID)
	}
	return res, rows.Err()
}
