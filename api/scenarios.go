/*
scenarios.go - Demo machine presets for testing and demonstrations

PURPOSE:
	Provides pre-built machines that demonstrate specific behaviors. Each
	scenario is a factory JSON definition; loading one creates a new machine
	next to the existing ones.

AVAILABLE SCENARIOS:

	stocked:      10 of every coin and product, ready to sell
	exact-change: quarters and dimes only, shows EXACT CHANGE ONLY
	single-dime:  one dime in the bank and one candy
	empty:        nothing at all

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "exact-change", "machine_id": "demo-1"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add the definition to scenarioJSON

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - factory/machine.go: Machine JSON definitions and presets
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/warp/vending-engine/factory"
	"github.com/warp/vending-engine/generic"
	"github.com/warp/vending-engine/session"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "stocked",
		Name:        "Stocked",
		Description: "10 of every coin and every product",
	},
	{
		ID:          "exact-change",
		Name:        "Exact Change Only",
		Description: "No nickels in the bank, so candy cannot be changed",
	},
	{
		ID:          "single-dime",
		Name:        "Single Dime",
		Description: "One dime of float and one candy; 75 cents buys candy with the dime back",
	},
	{
		ID:          "empty",
		Name:        "Empty",
		Description: "No coins, no products",
	},
}

// scenarioJSON returns the definition for a scenario, or false.
func scenarioJSON(scenarioID, machineID string) (string, bool) {
	switch scenarioID {
	case "stocked":
		return factory.StockedJSON(machineID, 10, 10), true
	case "exact-change":
		return factory.ExactChangeJSON(machineID), true
	case "single-dime":
		return fmt.Sprintf(`{"id": %q, "machine_bank": {"DIME": 1}, "inventory": {"CANDY": 1}}`, machineID), true
	case "empty":
		return factory.EmptyJSON(machineID), true
	default:
		return "", false
	}
}

// loadScenario parses the preset and creates the machine.
func (h *Handler) loadScenario(ctx context.Context, scenarioID, machineID string) (session.Session, error) {
	def, ok := scenarioJSON(scenarioID, machineID)
	if !ok {
		return session.Session{}, fmt.Errorf("%w: unknown scenario %q", generic.ErrInvalidInput, scenarioID)
	}
	id, m, err := factory.ParseMachine(def)
	if err != nil {
		return session.Session{}, err
	}
	return h.Service.Create(ctx, id, m)
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns the available presets.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario creates a machine from a preset.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	sess, err := h.loadScenario(r.Context(), req.ScenarioID, req.MachineID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMachineDTO(sess))
}
