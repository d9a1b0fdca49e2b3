package domain

import "github.com/shopspring/decimal"

// DateLayout is the calendar-date format used for accident dates.
const DateLayout = "2006-01-02"

type Agent struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	AgentNumber    int64  `json:"agent_number"`
	TotalAccidents int64  `json:"total_accidents"`
	TotalCost      Amount `json:"total_cost"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// CombinedScore is accident count multiplied by total cost. An agent with no
// recorded cost scores zero however many accidents they have.
func (a Agent) CombinedScore() decimal.Decimal {
	return decimal.NewFromInt(a.TotalAccidents).Mul(a.TotalCost.Decimal)
}

type Accident struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Cost        Amount `json:"cost"`
	AddedBy     string `json:"added_by"`
	AgentID     string `json:"agent_id,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func (a Accident) Unassigned() bool {
	return a.AgentID == ""
}

type ColleagueProfile struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	Surname        string `json:"surname" yaml:"surname"`
	Nickname       string `json:"nickname,omitempty" yaml:"nickname"`
	PhotoURL       string `json:"photo_url,omitempty" yaml:"photo_url"`
	TotalAccidents int64  `json:"total_accidents" yaml:"-"`
	TotalCost      Amount `json:"total_cost" yaml:"-"`
	UpdatedAt      string `json:"updated_at" yaml:"-"`
}

type DailyQuote struct {
	ID        string `json:"id" yaml:"id"`
	Content   string `json:"content" yaml:"content"`
	Author    string `json:"author" yaml:"author"`
	Date      string `json:"date" yaml:"date"`
	IsActive  bool   `json:"is_active" yaml:"is_active"`
	CreatedAt string `json:"created_at" yaml:"-"`
}

type Popup struct {
	ID           string `json:"id" yaml:"id"`
	Title        string `json:"title" yaml:"title"`
	ImageURL     string `json:"image_url" yaml:"image_url"`
	RedirectURL  string `json:"redirect_url,omitempty" yaml:"redirect_url"`
	IsActive     bool   `json:"is_active" yaml:"is_active"`
	DisplayOrder int64  `json:"display_order" yaml:"display_order"`
}

// ReferenceData is the operator-provisioned content the application only reads.
type ReferenceData struct {
	Profile *ColleagueProfile `yaml:"profile"`
	Quotes  []DailyQuote      `yaml:"quotes"`
	Popups  []Popup           `yaml:"popups"`
}

type AgentOrder string

const (
	OrderAgentNumber    AgentOrder = "agent_number"
	OrderName           AgentOrder = "name"
	OrderTotalAccidents AgentOrder = "total_accidents"
	OrderTotalCost      AgentOrder = "total_cost"
)

type AgentFilter struct {
	OrderBy    AgentOrder
	Descending bool
	Limit      int64
}

// AccidentFilter selects accidents. Results are ordered by date, newest first,
// unless OldestFirst is set.
type AccidentFilter struct {
	AgentID     string
	Unassigned  bool
	OldestFirst bool
	Limit       int64
}

type QuoteFilter struct {
	ActiveOnly bool
}

// PopupFilter results are ordered by display_order ascending.
type PopupFilter struct {
	ActiveOnly bool
	Limit      int64
}

type State struct {
	Agents    []Agent           `json:"agents"`
	Accidents []Accident        `json:"accidents"`
	Profile   *ColleagueProfile `json:"profile"`
	Quotes    []DailyQuote      `json:"quotes"`
	Popups    []Popup           `json:"popups"`
}

func EmptyState() State {
	return State{
		Agents:    []Agent{},
		Accidents: []Accident{},
		Quotes:    []DailyQuote{},
		Popups:    []Popup{},
	}
}
