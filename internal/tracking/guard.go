package tracking

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/nimbusvr/trackshop-backend/pkg/db/models"
	"github.com/nimbusvr/trackshop-backend/pkg/enums"
	pkgerrors "github.com/nimbusvr/trackshop-backend/pkg/errors"
	"github.com/nimbusvr/trackshop-backend/pkg/identity"
	"github.com/nimbusvr/trackshop-backend/pkg/types"
)

// EditFields is a partial admin edit. Nil pointers mean "leave untouched".
type EditFields struct {
	DisplayName     *string                      `json:"nombreUsuario,omitempty"`
	TrackerCount    *int                         `json:"numeroTrackers,omitempty"`
	Sensor          *string                      `json:"sensor,omitempty"`
	Magnetometer    *bool                        `json:"magneto,omitempty"`
	CaseColor       *string                      `json:"colorCase,omitempty"`
	CoverColor      *string                      `json:"colorTapa,omitempty"`
	TotalUSD        *decimal.Decimal             `json:"totalUsd,omitempty"`
	PaidUSD         *decimal.Decimal             `json:"abonadoUsd,omitempty"`
	Extras          *[]types.ExtraSelection      `json:"extrasSeleccionados,omitempty"`
	ShippingCountry *string                      `json:"paisEnvio,omitempty"`
	ShippingAddress *types.ShippingAddress       `json:"shippingAddress,omitempty"`
	VRChatUsername  *string                      `json:"vrchatUsername,omitempty"`
	OrderStatus     *enums.OrderStatus           `json:"estadoPedido,omitempty"`
	Progress        *types.ManufacturingProgress `json:"porcentajes,omitempty"`
	PromisedDate    *time.Time                   `json:"fechaLimite,omitempty"`

	// AdminOverride unlocks backward status moves and paid-amount decreases.
	AdminOverride bool `json:"adminOverride,omitempty"`
}

// Guard validates and applies manual operator edits to an existing record.
type Guard struct {
	now func() time.Time
}

// NewGuard returns an edit guard using the real clock.
func NewGuard() *Guard {
	return &Guard{now: time.Now}
}

// NewGuardWithClock returns a guard with an injected clock for tests.
func NewGuardWithClock(now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{now: now}
}

// ApplyEdit validates the edit against the existing record and returns the
// partial update map to persist. The user hash is recomputed only when the
// display name changes or the stored hash is malformed; every other edit
// leaves it alone.
func (g *Guard) ApplyEdit(existing *models.TrackingRecord, fields EditFields) (map[string]any, error) {
	if existing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "existing record required")
	}

	details := map[string]string{}
	var errs error

	fail := func(field, message string) {
		details[field] = message
		errs = multierr.Append(errs, fmt.Errorf("%s %s", field, message))
	}

	updates := map[string]any{}

	if fields.DisplayName != nil {
		if *fields.DisplayName == "" {
			fail("nombreUsuario", "must not be empty")
		} else if *fields.DisplayName != existing.DisplayName {
			updates["display_name"] = *fields.DisplayName
			updates["user_hash"] = identity.ComputeHash(*fields.DisplayName)
		}
	}

	if fields.TrackerCount != nil {
		if *fields.TrackerCount < 1 {
			fail("numeroTrackers", "must be at least 1")
		} else {
			updates["tracker_count"] = *fields.TrackerCount
		}
	}
	if fields.Sensor != nil {
		updates["sensor"] = *fields.Sensor
	}
	if fields.Magnetometer != nil {
		updates["magnetometer"] = *fields.Magnetometer
	}
	if fields.CaseColor != nil {
		updates["case_color"] = *fields.CaseColor
	}
	if fields.CoverColor != nil {
		updates["cover_color"] = *fields.CoverColor
	}

	if fields.TotalUSD != nil {
		if fields.TotalUSD.IsNegative() {
			fail("totalUsd", "must not be negative")
		} else {
			updates["total_usd"] = *fields.TotalUSD
		}
	}
	if fields.PaidUSD != nil {
		switch {
		case fields.PaidUSD.IsNegative():
			fail("abonadoUsd", "must not be negative")
		case fields.PaidUSD.LessThan(existing.PaidUSD) && !fields.AdminOverride:
			fail("abonadoUsd", "cannot decrease without admin override")
		default:
			updates["paid_usd"] = *fields.PaidUSD
		}
	}

	if fields.Extras != nil {
		updates["extras"] = *fields.Extras
	}
	if fields.ShippingCountry != nil {
		updates["shipping_country"] = *fields.ShippingCountry
	}
	if fields.ShippingAddress != nil {
		updates["shipping_address"] = fields.ShippingAddress
	}
	if fields.VRChatUsername != nil {
		updates["vrchat_username"] = *fields.VRChatUsername
	}

	if fields.OrderStatus != nil {
		next := *fields.OrderStatus
		switch {
		case !next.IsValid():
			fail("estadoPedido", "is not a known status")
		case !existing.OrderStatus.CanTransitionTo(next) && !fields.AdminOverride:
			fail("estadoPedido", fmt.Sprintf("cannot move backward from %s to %s without admin override", existing.OrderStatus, next))
		case next != existing.OrderStatus:
			updates["order_status"] = next
		}
	}

	if fields.Progress != nil {
		if err := validateProgress(*fields.Progress); err != nil {
			fail("porcentajes", err.Error())
		} else {
			updates["progress"] = *fields.Progress
		}
	}
	if fields.PromisedDate != nil {
		updates["promised_date"] = *fields.PromisedDate
	}

	if errs != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, errs, "invalid tracking edit").WithDetails(details)
	}

	// Repair a malformed stored hash even when the name did not change.
	if _, changed := updates["user_hash"]; !changed && !identity.IsValidHash(existing.UserHash) {
		updates["user_hash"] = identity.ComputeHash(existing.DisplayName)
	}

	if len(updates) > 0 {
		updates["updated_at"] = g.now().UTC()
	}
	return updates, nil
}

func validateProgress(p types.ManufacturingProgress) error {
	check := func(name string, value int) error {
		if value < 0 || value > 100 {
			return fmt.Errorf("%s must be between 0 and 100", name)
		}
		return nil
	}
	if err := check("placa", p.Board); err != nil {
		return err
	}
	if err := check("straps", p.Straps); err != nil {
		return err
	}
	if err := check("cases", p.Cases); err != nil {
		return err
	}
	return check("baterias", p.Batteries)
}
