package models

import (
	"encoding/json"
	"time"
)

// Role of an admin console user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleUser     Role = "user"
)

// User is the identity returned by the login endpoint.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// DisplayName prefers the full name and falls back to the email.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.Email
	}
}

// Session is the client-held authentication state.
type Session struct {
	User         *User
	AccessToken  string
	RefreshToken string
}

// IsAuthenticated reports whether both the access token and the user are present.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != "" && s.User != nil
}

// StationStatus as reported by the charge point.
type StationStatus string

const (
	StationAvailable   StationStatus = "Available"
	StationOccupied    StationStatus = "Occupied"
	StationUnavailable StationStatus = "Unavailable"
	StationFaulted     StationStatus = "Faulted"
)

// Station is a read-only snapshot of a charging station.
type Station struct {
	ID            string            `json:"id"`
	ChargePointID string            `json:"chargePointId"`
	Name          string            `json:"name"`
	Location      string            `json:"location"`
	Status        StationStatus     `json:"status"`
	SiteID        string            `json:"siteId"`
	Connectors    []json.RawMessage `json:"connectors"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// TransactionStatus of a charging transaction.
type TransactionStatus string

const (
	TransactionActive    TransactionStatus = "active"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionStopped   TransactionStatus = "stopped"
)

// Transaction is a read-only snapshot of a charging transaction.
type Transaction struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	StationID   string            `json:"stationId"`
	ConnectorID int               `json:"connectorId"`
	Status      TransactionStatus `json:"status"`
	StartTime   time.Time         `json:"startTime"`
	EndTime     *time.Time        `json:"endTime,omitempty"`
	Amount      float64           `json:"amount"`
	Energy      *float64          `json:"energy,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// TransactionStats aggregates transactions server side.
type TransactionStats struct {
	TotalTransactions      int     `json:"totalTransactions"`
	CompletedTransactions  int     `json:"completedTransactions"`
	TotalEnergy            float64 `json:"totalEnergy"`
	TotalRevenue           float64 `json:"totalRevenue"`
	AverageTransactionCost float64 `json:"averageTransactionCost"`
	AverageEnergy          float64 `json:"averageEnergy"`
	AverageDuration        float64 `json:"averageDuration"`
}
