// internal/writer/builder.go
package writer

import (
	"errors"
	"time"

	cfg "github.com/tamzrod/regbridge/internal/config"
	wmodbus "github.com/tamzrod/regbridge/internal/writer/modbus"
)

// BuildPlan converts one device config into a Writer Plan.
// Assumes config has already passed validation and normalization.
func BuildPlan(d cfg.DeviceConfig) (Plan, error) {
	if d.ID == "" {
		return Plan{}, errors.New("writer: device.id required")
	}

	plan := Plan{UnitID: d.ID}

	for _, t := range d.Targets {
		plan.Targets = append(plan.Targets, Target{
			Endpoint: t.Endpoint,
			UnitID:   t.UnitID,
			Offset:   t.Offset,
		})

		if d.StatusSlot != nil && t.StatusUnitID != nil {
			plan.Status = append(plan.Status, StatusPlan{
				Endpoint:   t.Endpoint,
				UnitID:     *t.StatusUnitID,
				BaseSlot:   *d.StatusSlot,
				DeviceName: d.DeviceName,
			})
		}
	}

	return plan, nil
}

// BuildEndpointClients creates one TCP client per unique endpoint across all
// devices. Clients serialize their requests, so devices may share them.
func BuildEndpointClients(devices []cfg.DeviceConfig) (map[string]endpointClient, func() error, error) {
	timeouts := map[string]time.Duration{}
	var order []string
	for _, d := range devices {
		for _, t := range d.Targets {
			to := time.Duration(t.TimeoutMs) * time.Millisecond
			prev, seen := timeouts[t.Endpoint]
			if !seen {
				order = append(order, t.Endpoint)
			}
			if !seen || to > prev {
				timeouts[t.Endpoint] = to
			}
		}
	}

	clients := make(map[string]endpointClient)
	var closers []func() error

	for _, endpoint := range order {
		c, err := wmodbus.NewEndpointClient(wmodbus.Config{
			Endpoint: endpoint,
			Timeout:  timeouts[endpoint],
		})
		if err != nil {
			for _, fn := range closers {
				_ = fn()
			}
			return nil, nil, err
		}
		clients[endpoint] = c
		closers = append(closers, c.Close)
	}

	closeAll := func() error {
		var last error
		for _, fn := range closers {
			if err := fn(); err != nil {
				last = err
			}
		}
		return last
	}

	return clients, closeAll, nil
}
