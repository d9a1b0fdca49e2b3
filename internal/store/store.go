package store

import (
	"context"
	"strings"
	"time"

	"github.com/bcrosbie/noose/internal/domain"
)

// RecordStore is the persistence contract used by the service layer. Agent
// and profile totals are maintained by the store itself when an accident is
// inserted; callers never write them.
type RecordStore interface {
	Load(ctx context.Context) error
	Close() error

	ListAgents(ctx context.Context, filter domain.AgentFilter) ([]domain.Agent, error)
	GetAgent(ctx context.Context, id string) (domain.Agent, error)
	InsertAgent(ctx context.Context, agent domain.Agent) (domain.Agent, error)

	ListAccidents(ctx context.Context, filter domain.AccidentFilter) ([]domain.Accident, error)
	InsertAccident(ctx context.Context, accident domain.Accident) (domain.Accident, error)

	GetProfile(ctx context.Context) (domain.ColleagueProfile, error)
	ListQuotes(ctx context.Context, filter domain.QuoteFilter) ([]domain.DailyQuote, error)
	ListPopups(ctx context.Context, filter domain.PopupFilter) ([]domain.Popup, error)
}

// ReferenceSeeder is implemented by stores that can be provisioned with the
// operator-owned profile, quotes and popups. Seeding only fills empty tables.
type ReferenceSeeder interface {
	SeedReferenceData(ctx context.Context, data domain.ReferenceData) error
}

const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// timestampLayout keeps a fixed fraction width so stored timestamps sort
// lexically in chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(value time.Time) string {
	return value.UTC().Format(timestampLayout)
}

func nowUTC() string {
	return formatTime(time.Now())
}

// agentOrderColumn maps an AgentOrder onto a SQL column. Unknown orders fall
// back to agent_number so the value is never interpolated raw.
func agentOrderColumn(order domain.AgentOrder, costColumn string) string {
	switch order {
	case domain.OrderName:
		return "name"
	case domain.OrderTotalAccidents:
		return "total_accidents"
	case domain.OrderTotalCost:
		return costColumn
	default:
		return "agent_number"
	}
}

func orderDirection(descending bool) string {
	if descending {
		return "DESC"
	}
	return "ASC"
}

func withTimestamps(createdAt, updatedAt string) (string, string) {
	if strings.TrimSpace(createdAt) == "" {
		createdAt = nowUTC()
	}
	if strings.TrimSpace(updatedAt) == "" {
		updatedAt = createdAt
	}
	return createdAt, updatedAt
}
