package influxdb

import (
	"time"

	"github.com/google/uuid"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementBlockState is the measurement block changes are written to.
const MeasurementBlockState = "block_state"

// WriteBlockState queues one block_state point. powered is stored as 0 or 1
// so it can be graphed next to power.
func (c *Client) WriteBlockState(registryID, blockID string, powered bool, power int, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	var on int
	if powered {
		on = 1
	}
	point := write.NewPoint(
		MeasurementBlockState,
		map[string]string{
			"registry_id": registryID,
			"block_id":    blockID,
		},
		map[string]any{
			"powered": on,
			"power":   power,
		},
		ts,
	)
	c.writeAPI.WritePoint(point)
}

// RecordBlockState writes the block's current state with the current time.
// It lets the client serve as the control service's telemetry recorder.
func (c *Client) RecordBlockState(registryID, blockID uuid.UUID, powered bool, power int) {
	c.WriteBlockState(registryID.String(), blockID.String(), powered, power, time.Now())
}
