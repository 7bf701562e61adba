/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the vending domain model from the external API contract. Domain values
  are immutable structs with unexported fields; the DTOs flatten them into
  plain maps and strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Machine:
    MachineDTO, BankDTO (request body for create is factory.MachineJSON)

  Customer:
    InsertCoinRequest, VendRequest, TakeCoinReturnResponse

  Operator:
    RestockRequest, LoadCoinsRequest

  Audit:
    EventDTO, AlertDTO, AlertsResponse

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request structs carry validator tags for shape (required, ranges).
  Names are resolved against the catalogs in handlers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/machine.go: MachineJSON type
*/
package api

import (
	"time"

	"github.com/warp/vending-engine/generic"
	"github.com/warp/vending-engine/session"
	"github.com/warp/vending-engine/vending"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// BankDTO represents a coin ledger in API responses.
type BankDTO struct {
	Coins     map[string]int `json:"coins"`
	Cents     int64          `json:"cents"`
	Formatted string         `json:"formatted"`
}

// MachineDTO represents a machine in API responses.
type MachineDTO struct {
	ID              string         `json:"id"`
	Version         int64          `json:"version"`
	Display         string         `json:"display"`
	CustomerBank    BankDTO        `json:"customer_bank"`
	MachineBank     BankDTO        `json:"machine_bank"`
	CoinReturn      BankDTO        `json:"coin_return"`
	Inventory       map[string]int `json:"inventory"`
	ExactChangeOnly bool           `json:"exact_change_only"`
}

// InsertCoinRequest describes a coin by its measured properties. Either
// field may be omitted for a coin the sensors could not read.
type InsertCoinRequest struct {
	Size   string `json:"size"`
	Weight string `json:"weight"`
}

// VendRequest selects a product. Names outside the catalog vend as sold out.
type VendRequest struct {
	Product string `json:"product"`
}

// TakeCoinReturnResponse is the machine after emptying the coin return plus
// what was taken.
type TakeCoinReturnResponse struct {
	Machine MachineDTO `json:"machine"`
	Taken   BankDTO    `json:"taken"`
}

// RestockRequest adds product stock.
type RestockRequest struct {
	Product  string `json:"product" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0,lte=1000"`
}

// LoadCoinsRequest adds coins to the machine bank.
type LoadCoinsRequest struct {
	Denomination string `json:"denomination" validate:"required"`
	Quantity     int    `json:"quantity" validate:"gt=0,lte=1000"`
}

// EventDTO represents one transition in a machine's log.
type EventDTO struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
	Type    string `json:"type"`
	Input   string `json:"input,omitempty"`
	Display string `json:"display"`
	At      string `json:"at"`
}

// AlertDTO flags a machine that cannot make change.
type AlertDTO struct {
	MachineID string `json:"machine_id"`
	Display   string `json:"display"`
	Since     string `json:"since"`
}

// AlertsResponse is the monitor's latest view.
type AlertsResponse struct {
	Alerts    []AlertDTO `json:"alerts"`
	CheckedAt string     `json:"checked_at,omitempty"`
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ScenarioDTO describes a demo machine preset.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest loads a preset as a new machine.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
	MachineID  string `json:"machine_id,omitempty" validate:"omitempty,max=64"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toBankDTO(b vending.Bank) BankDTO {
	coins := make(map[string]int, len(vending.Denominations()))
	for _, d := range vending.Denominations() {
		coins[d.String()] = b.Quantity(d)
	}
	return BankDTO{
		Coins:     coins,
		Cents:     b.Balance(),
		Formatted: vending.FormatCents(b.Balance()),
	}
}

func toMachineDTO(s session.Session) MachineDTO {
	m := s.Machine
	inventory := make(map[string]int, len(vending.Products()))
	for _, p := range vending.Products() {
		inventory[p.String()] = m.Stock(p)
	}
	return MachineDTO{
		ID:              string(s.ID),
		Version:         s.Version,
		Display:         m.Display(),
		CustomerBank:    toBankDTO(m.CustomerBank()),
		MachineBank:     toBankDTO(m.MachineBank()),
		CoinReturn:      toBankDTO(m.CoinReturn()),
		Inventory:       inventory,
		ExactChangeOnly: !m.CanMakeChange(),
	}
}

func toEventDTO(ev generic.Event) EventDTO {
	return EventDTO{
		ID:      string(ev.ID),
		Version: ev.Version,
		Type:    string(ev.Type),
		Input:   ev.Input,
		Display: ev.Display,
		At:      ev.At.Format(time.RFC3339),
	}
}

func toAlertDTO(a Alert) AlertDTO {
	return AlertDTO{
		MachineID: string(a.MachineID),
		Display:   a.Display,
		Since:     a.Since.Format(time.RFC3339),
	}
}
