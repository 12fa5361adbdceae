// Package appointments books shop visits in the PocketBase "appointments"
// collection.
package appointments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shop-finder/internal/status"
	"shop-finder/models"
	"shop-finder/utils"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

const CollectionName = "appointments"

// NewCollection describes the appointments collection. shopsCollectionID
// links the shop_id relation.
func NewCollection(shopsCollectionID string) *core.Collection {
	collection := core.NewBaseCollection(CollectionName)

	collection.Fields.Add(
		&core.TextField{Name: "reference", Required: true, Max: 20},
		&core.RelationField{Name: "shop_id", Required: true, CollectionId: shopsCollectionID, MaxSelect: 1},
		&core.TextField{Name: "user_id", Required: true},
		&core.TextField{Name: "service", Required: true},
		&core.TextField{Name: "date", Required: true, Pattern: `^\d{4}-\d{2}-\d{2}$`},
		&core.TextField{Name: "time", Required: true, Pattern: `^\d{2}:\d{2}$`},
		&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{
			string(models.AppointmentUpcoming),
			string(models.AppointmentCompleted),
			string(models.AppointmentCancelled),
		}},
		&core.TextField{Name: "price", Pattern: `^\d+(\.\d{1,2})?$`},
		&core.NumberField{Name: "duration", OnlyInt: true},
		&core.AutodateField{Name: "created", OnCreate: true},
		&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
	)
	collection.AddIndex("idx_appointments_reference", true, "reference", "")
	collection.AddIndex("idx_appointments_user", false, "user_id, date, time", "")

	return collection
}

type CreateRequest struct {
	ShopID   string          `json:"shopId"`
	UserID   string          `json:"userId"`
	Service  string          `json:"service"`
	Date     string          `json:"date"`
	Time     string          `json:"time"`
	Price    decimal.Decimal `json:"price"`
	Duration int             `json:"duration"`
}

// Validate checks the request and fills in the catalog duration.
func (r *CreateRequest) Validate() error {
	switch {
	case r.ShopID == "", r.UserID == "", r.Service == "":
		return fmt.Errorf("%w: shop, user and service are required", status.ErrInvalidAppointment)
	case r.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", status.ErrInvalidAppointment)
	case r.Duration < 0:
		return fmt.Errorf("%w: duration must not be negative", status.ErrInvalidAppointment)
	}

	if _, err := time.Parse(models.AppointmentDateFormat, r.Date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", status.ErrInvalidAppointment, r.Date)
	}
	if _, err := time.Parse(models.AppointmentTimeFormat, r.Time); err != nil {
		return fmt.Errorf("%w: time %q is not HH:MM", status.ErrInvalidAppointment, r.Time)
	}

	if r.Duration == 0 {
		r.Duration = models.ServiceDuration(r.Service)
	}
	return nil
}

type Service struct {
	app core.App
}

func NewService(app core.App) *Service {
	return &Service{app: app}
}

// Create books an upcoming appointment.
func (s *Service) Create(ctx context.Context, req CreateRequest) (models.Appointment, error) {
	if err := req.Validate(); err != nil {
		return models.Appointment{}, err
	}

	reference, err := utils.GenerateReference("APT")
	if err != nil {
		return models.Appointment{}, err
	}

	appointment := models.Appointment{
		Reference: reference,
		ShopID:    req.ShopID,
		UserID:    req.UserID,
		Service:   req.Service,
		Date:      req.Date,
		Time:      req.Time,
		Status:    models.AppointmentUpcoming,
		Price:     req.Price.Round(2),
		Duration:  req.Duration,
	}

	collection, err := s.app.FindCachedCollectionByNameOrId(CollectionName)
	if err != nil {
		return appointment, fmt.Errorf("find appointments collection: %w", err)
	}

	record := core.NewRecord(collection)
	ApplyToRecord(record, appointment)
	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return appointment, fmt.Errorf("create appointment: %w", err)
	}

	slog.Info("Appointment booked", "reference", reference, "shopID", req.ShopID, "userID", req.UserID)
	return FromRecord(record), nil
}

// ListByUser returns the user's appointments, earliest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	records := []*core.Record{}
	err := s.app.RecordQuery(CollectionName).
		WithContext(ctx).
		AndWhere(dbx.HashExp{"user_id": userID}).
		OrderBy("date ASC", "time ASC").
		All(&records)
	if err != nil {
		return nil, fmt.Errorf("list appointments for %s: %w", userID, err)
	}

	appointments := make([]models.Appointment, 0, len(records))
	for _, record := range records {
		appointments = append(appointments, FromRecord(record))
	}
	return appointments, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Appointment, error) {
	record, err := s.find(ctx, id)
	if err != nil {
		return models.Appointment{}, err
	}
	return FromRecord(record), nil
}

// UpdateStatus moves an upcoming appointment to next. Completed and
// cancelled appointments stay as they are.
func (s *Service) UpdateStatus(ctx context.Context, id string, next models.AppointmentStatus) (models.Appointment, error) {
	if !next.Valid() {
		return models.Appointment{}, fmt.Errorf("%w: unknown status %q", status.ErrInvalidAppointment, next)
	}

	record, err := s.find(ctx, id)
	if err != nil {
		return models.Appointment{}, err
	}

	current := models.AppointmentStatus(record.GetString("status"))
	if err := checkTransition(current, next); err != nil {
		return FromRecord(record), err
	}
	if current == next {
		return FromRecord(record), nil
	}

	record.Set("status", string(next))
	if err := s.app.SaveWithContext(ctx, record); err != nil {
		return models.Appointment{}, fmt.Errorf("update appointment %s: %w", id, err)
	}
	return FromRecord(record), nil
}

func (s *Service) Cancel(ctx context.Context, id string) (models.Appointment, error) {
	return s.UpdateStatus(ctx, id, models.AppointmentCancelled)
}

func (s *Service) find(ctx context.Context, id string) (*core.Record, error) {
	record, err := s.app.FindRecordById(CollectionName, id, func(q *dbx.SelectQuery) error {
		q.WithContext(ctx)
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment %s: %w", id, err)
	}
	return record, nil
}

func checkTransition(current, next models.AppointmentStatus) error {
	if current == next || current == models.AppointmentUpcoming {
		return nil
	}
	return fmt.Errorf("%w: appointment is already %s", status.ErrInvalidAppointment, current)
}

func FromRecord(record *core.Record) models.Appointment {
	price, err := decimal.NewFromString(record.GetString("price"))
	if err != nil {
		price = decimal.Zero
	}

	return models.Appointment{
		ID:        record.Id,
		Reference: record.GetString("reference"),
		ShopID:    record.GetString("shop_id"),
		UserID:    record.GetString("user_id"),
		Service:   record.GetString("service"),
		Date:      record.GetString("date"),
		Time:      record.GetString("time"),
		Status:    models.AppointmentStatus(record.GetString("status")),
		Price:     price,
		Duration:  record.GetInt("duration"),
	}
}

func ApplyToRecord(record *core.Record, a models.Appointment) {
	if a.ID != "" {
		record.Id = a.ID
	}
	record.Set("reference", a.Reference)
	record.Set("shop_id", a.ShopID)
	record.Set("user_id", a.UserID)
	record.Set("service", a.Service)
	record.Set("date", a.Date)
	record.Set("time", a.Time)
	record.Set("status", string(a.Status))
	record.Set("price", a.Price.StringFixed(2))
	record.Set("duration", a.Duration)
}
