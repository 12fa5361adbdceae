package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AppointmentStatus string

const (
	AppointmentUpcoming  AppointmentStatus = "upcoming"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentUpcoming, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID        string            `json:"id"`
	Reference string            `json:"reference"`
	ShopID    string            `json:"shopId"`
	UserID    string            `json:"userId"`
	Service   string            `json:"service"`
	Date      string            `json:"date"` // 2006-01-02
	Time      string            `json:"time"` // 15:04
	Status    AppointmentStatus `json:"status"`
	Price     decimal.Decimal   `json:"price"`
	Duration  int               `json:"duration"` // minutes
}

const (
	AppointmentDateFormat = "2006-01-02"
	AppointmentTimeFormat = "15:04"
)

// StartsAt parses Date and Time in loc.
func (a Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(AppointmentDateFormat+" "+AppointmentTimeFormat, a.Date+" "+a.Time, loc)
}
